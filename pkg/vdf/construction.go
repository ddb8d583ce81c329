//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package vdf

import (
	"context"
	"math/big"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	ClassGroupWesolowski = "wesolowski"
	RSAWesolowski        = "rsa-wesolowski"
	DefaultConstruction  = ClassGroupWesolowski

	DefaultDiscriminantBits = 2048
	DefaultRSAModulusBits   = 2048
	DefaultCacheSize        = 64
)

// Output is the serialized result of a delay computation. Proof is empty
// when only the output was evaluated.
type Output struct {
	Y     []byte `json:"y"`
	Proof []byte `json:"proof,omitempty"`
}

// Params configures a construction. Bits is the discriminant length for the
// class group and the modulus length for RSA. Modulus and Trapdoor only apply
// to RSA; a trapdoor lets the holder solve without the delay.
type Params struct {
	Bits      uint32
	Modulus   *big.Int
	Trapdoor  *RSATrapdoor
	CacheSize int
	Progress  ProgressFunc
}

// Construction is a verifiable delay function over a fixed group family,
// keyed by an integer seed.
type Construction interface {
	Name() string
	// Params returns the public parameters. The trapdoor is never included.
	Params() Params
	Solve(ctx context.Context, x *big.Int, t uint64) (*Output, error)
	Evaluate(ctx context.Context, x *big.Int, t uint64) (*Output, error)
	// Verify returns false for a proof that fails the checking equation, and
	// an error wrapping ErrMalformedOutput for undecodable bytes.
	Verify(x *big.Int, t uint64, out *Output) (bool, error)
}

type constructor func(params Params, logger *zap.Logger) (Construction, error)

var constructions = map[string]constructor{
	ClassGroupWesolowski: newClassGroupConstruction,
	RSAWesolowski:        newRSAConstruction,
}

// New builds the named construction. An empty name selects the default.
func New(name string, params Params, logger *zap.Logger) (Construction, error) {
	if name == "" {
		name = DefaultConstruction
	}

	c, ok := constructions[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownConstruction, "new construction: %s", name)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	construction, err := c(params, logger.With(zap.String("construction", name)))
	return construction, errors.Wrap(err, "new construction")
}

// Constructions lists the registered construction names.
func Constructions() []string {
	names := make([]string, 0, len(constructions))
	for name := range constructions {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
