//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package vdf

import (
	"context"
	"math/big"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/core/iqc"
)

// ClassGroupConstruction is the Wesolowski VDF over the class group whose
// discriminant is derived from the seed.
type ClassGroupConstruction struct {
	logger        *zap.Logger
	params        Params
	discriminants *lru.Cache[string, *big.Int]
}

var _ Construction = (*ClassGroupConstruction)(nil)

func newClassGroupConstruction(
	params Params,
	logger *zap.Logger,
) (Construction, error) {
	if params.Bits == 0 {
		params.Bits = DefaultDiscriminantBits
	}

	if params.Bits < iqc.MinDiscriminantLength {
		return nil, errors.Wrapf(
			ErrInvalidParams,
			"discriminant bits %d",
			params.Bits,
		)
	}

	if params.CacheSize <= 0 {
		params.CacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, *big.Int](params.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "discriminant cache")
	}

	params.Modulus = nil
	params.Trapdoor = nil

	return &ClassGroupConstruction{
		logger:        logger,
		params:        params,
		discriminants: cache,
	}, nil
}

func (c *ClassGroupConstruction) Name() string {
	return ClassGroupWesolowski
}

func (c *ClassGroupConstruction) Params() Params {
	return c.params
}

// Group returns the discriminant and generator for the seed x.
func (c *ClassGroupConstruction) Group(
	x *big.Int,
) (*big.Int, *iqc.ClassGroup, error) {
	key := x.String()
	d, ok := c.discriminants.Get(key)
	if !ok {
		var err error
		d, err = iqc.DiscriminantFromSeed(x, c.params.Bits)
		if err != nil {
			return nil, nil, errors.Wrap(err, "group")
		}

		c.discriminants.Add(key, d)
	}

	g, err := iqc.FromSeed(d, x)
	if err != nil {
		return nil, nil, errors.Wrap(err, "group")
	}

	return d, g, nil
}

func (c *ClassGroupConstruction) Solve(
	ctx context.Context,
	x *big.Int,
	t uint64,
) (*Output, error) {
	_, g, err := c.Group(x)
	if err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	c.logger.Debug(
		"solving",
		zap.Uint64("iterations", t),
		zap.Uint32("bits", c.params.Bits),
	)
	start := time.Now()

	y, proof, err := Solve(ctx, g, t, c.params.Progress)
	if err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	c.logger.Debug(
		"solved",
		zap.Uint64("iterations", t),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Output{Y: y.Serialize(), Proof: proof.Serialize()}, nil
}

func (c *ClassGroupConstruction) Evaluate(
	ctx context.Context,
	x *big.Int,
	t uint64,
) (*Output, error) {
	_, g, err := c.Group(x)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}

	y, err := EvaluateWithProgress(ctx, g, t, c.params.Progress)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}

	return &Output{Y: y.Serialize()}, nil
}

func (c *ClassGroupConstruction) Verify(
	x *big.Int,
	t uint64,
	out *Output,
) (bool, error) {
	if out == nil {
		return false, errors.Wrap(ErrMalformedOutput, "verify: missing output")
	}

	d, g, err := c.Group(x)
	if err != nil {
		return false, errors.Wrap(err, "verify")
	}

	y, err := iqc.NewClassGroupFromBytesDiscriminant(out.Y, d)
	if err != nil {
		return false, errors.Wrap(err, "verify: output")
	}

	proof, err := iqc.NewClassGroupFromBytesDiscriminant(out.Proof, d)
	if err != nil {
		return false, errors.Wrap(err, "verify: proof")
	}

	ok, err := verifyProof(g, y, proof, t)
	if err != nil {
		return false, errors.Wrap(err, "verify")
	}

	if !ok {
		c.logger.Debug("verification failed", zap.Uint64("iterations", t))
	}

	return ok, nil
}
