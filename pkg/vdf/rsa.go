//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package vdf

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/core/iqc"
)

const (
	// MinRSAModulusBits is the smallest accepted modulus length.
	MinRSAModulusBits = 64

	maxGeneratorAttempts = 256
)

var rsaGeneratorPrefix = []byte("rsa-generator")

// RSATrapdoor holds the factorization of an RSA modulus. Whoever holds it can
// seal a time-lock without paying the delay.
type RSATrapdoor struct {
	P *big.Int
	Q *big.Int
}

// GenerateRSATrapdoor creates two fresh primes whose product has exactly bits
// bits.
func GenerateRSATrapdoor(
	random io.Reader,
	bits uint32,
) (*RSATrapdoor, error) {
	if bits < MinRSAModulusBits {
		return nil, errors.Wrapf(ErrInvalidParams, "modulus bits %d", bits)
	}

	if random == nil {
		random = rand.Reader
	}

	for {
		p, err := rand.Prime(random, int(bits+1)/2)
		if err != nil {
			return nil, errors.Wrap(err, "generate rsa trapdoor")
		}

		q, err := rand.Prime(random, int(bits)/2)
		if err != nil {
			return nil, errors.Wrap(err, "generate rsa trapdoor")
		}

		trapdoor := &RSATrapdoor{P: p, Q: q}
		if p.Cmp(q) != 0 && trapdoor.Modulus().BitLen() == int(bits) {
			return trapdoor, nil
		}
	}
}

func (t *RSATrapdoor) Modulus() *big.Int {
	return new(big.Int).Mul(t.P, t.Q)
}

func (t *RSATrapdoor) phi() *big.Int {
	p := new(big.Int).Sub(t.P, bigOne)
	q := new(big.Int).Sub(t.Q, bigOne)
	return p.Mul(p, q)
}

// RSAConstruction is the Wesolowski VDF over Z_N^* for a public modulus N of
// unknown factorization.
type RSAConstruction struct {
	logger   *zap.Logger
	params   Params
	modulus  *big.Int
	trapdoor *RSATrapdoor
	size     int
}

var _ Construction = (*RSAConstruction)(nil)

func newRSAConstruction(params Params, logger *zap.Logger) (Construction, error) {
	modulus := params.Modulus
	if params.Trapdoor != nil {
		m := params.Trapdoor.Modulus()
		if modulus != nil && modulus.Cmp(m) != 0 {
			return nil, errors.Wrap(ErrInvalidParams, "trapdoor does not match modulus")
		}

		modulus = m
	}

	if modulus == nil {
		return nil, errors.Wrap(ErrInvalidParams, "missing modulus")
	}

	if modulus.BitLen() < MinRSAModulusBits || modulus.Bit(0) == 0 {
		return nil, errors.Wrapf(
			ErrInvalidParams,
			"modulus of %d bits",
			modulus.BitLen(),
		)
	}

	c := &RSAConstruction{
		logger:   logger,
		modulus:  new(big.Int).Set(modulus),
		trapdoor: params.Trapdoor,
		size:     (modulus.BitLen() + 7) / 8,
	}

	c.params = Params{
		Bits:     uint32(modulus.BitLen()),
		Modulus:  c.modulus,
		Progress: params.Progress,
	}

	return c, nil
}

func (c *RSAConstruction) Name() string {
	return RSAWesolowski
}

func (c *RSAConstruction) Params() Params {
	params := c.params
	params.Modulus = new(big.Int).Set(c.modulus)
	return params
}

func (c *RSAConstruction) encode(v *big.Int) []byte {
	return v.FillBytes(make([]byte, c.size))
}

func (c *RSAConstruction) decode(buf []byte) (*big.Int, error) {
	if len(buf) != c.size {
		return nil, ErrMalformedOutput
	}

	v := new(big.Int).SetBytes(buf)
	if v.Sign() == 0 || v.Cmp(c.modulus) >= 0 {
		return nil, ErrMalformedOutput
	}

	return v, nil
}

// Generator hashes the modulus and seed into a unit 1 < g < N - 1.
func (c *RSAConstruction) Generator(x *big.Int) (*big.Int, error) {
	encodedX := iqc.EncodeBigIntBigEndian(x)
	encodedN := c.modulus.Bytes()
	blocks := (c.size + 8 + sha256.Size - 1) / sha256.Size
	limit := new(big.Int).Sub(c.modulus, bigOne)

	g := new(big.Int)
	gcd := new(big.Int)
	for j := uint64(0); j < maxGeneratorAttempts; j++ {
		buf := make([]byte, 0, blocks*sha256.Size)
		for k := 0; k < blocks; k++ {
			h := sha256.New()
			h.Write(rsaGeneratorPrefix)
			h.Write(binary.BigEndian.AppendUint64(nil, j))
			h.Write(binary.BigEndian.AppendUint32(nil, uint32(k)))
			h.Write(encodedN)
			h.Write(encodedX)
			buf = h.Sum(buf)
		}

		g.SetBytes(buf)
		g.Mod(g, c.modulus)
		if g.Cmp(bigOne) <= 0 || g.Cmp(limit) >= 0 {
			continue
		}

		if gcd.GCD(nil, nil, g, c.modulus).Cmp(bigOne) != 0 {
			continue
		}

		return g, nil
	}

	return nil, errors.Wrap(ErrInvalidParams, "no generator for modulus")
}

func (c *RSAConstruction) square(
	ctx context.Context,
	g *big.Int,
	t uint64,
) (*big.Int, error) {
	y := new(big.Int).Set(g)
	for i := uint64(0); i < t; i++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "square")
		default:
		}

		y.Mul(y, y)
		y.Mod(y, c.modulus)

		if c.params.Progress != nil && (i+1)%progressInterval == 0 {
			c.params.Progress(i+1, t)
		}
	}

	if c.params.Progress != nil {
		c.params.Progress(t, t)
	}

	return y, nil
}

// longDivision computes g^(2^t // l) bit by bit.
func (c *RSAConstruction) longDivision(
	ctx context.Context,
	g, l *big.Int,
	t uint64,
) (*big.Int, error) {
	pi := big.NewInt(1)
	r := big.NewInt(1)
	for i := uint64(0); i < t; i++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "long division")
		default:
		}

		r.Lsh(r, 1)
		pi.Mul(pi, pi)
		pi.Mod(pi, c.modulus)
		if r.Cmp(l) >= 0 {
			r.Sub(r, l)
			pi.Mul(pi, g)
			pi.Mod(pi, c.modulus)
		}
	}

	return pi, nil
}

// withTrapdoor reduces the exponents mod phi(N).
func (c *RSAConstruction) withTrapdoor(g *big.Int, t uint64) (y, pi *big.Int) {
	phi := c.trapdoor.phi()
	T := new(big.Int).SetUint64(t)

	e := new(big.Int).Exp(bigTwo, T, phi)
	y = new(big.Int).Exp(g, e, c.modulus)

	l := HashPrime(t, c.encode(g), c.encode(y))
	r := new(big.Int).Exp(bigTwo, T, l)

	// (2^t - r) mod l*phi = l * ((2^t // l) mod phi)
	lPhi := new(big.Int).Mul(l, phi)
	q := new(big.Int).Exp(bigTwo, T, lPhi)
	q.Sub(q, r)
	q.Mod(q, lPhi)
	q.Div(q, l)

	return y, new(big.Int).Exp(g, q, c.modulus)
}

func (c *RSAConstruction) Solve(
	ctx context.Context,
	x *big.Int,
	t uint64,
) (*Output, error) {
	g, err := c.Generator(x)
	if err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	if c.trapdoor != nil {
		y, pi := c.withTrapdoor(g, t)
		c.logger.Debug("sealed with trapdoor", zap.Uint64("iterations", t))
		return &Output{Y: c.encode(y), Proof: c.encode(pi)}, nil
	}

	c.logger.Debug(
		"solving",
		zap.Uint64("iterations", t),
		zap.Int("bits", c.modulus.BitLen()),
	)
	start := time.Now()

	y, err := c.square(ctx, g, t)
	if err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	l := HashPrime(t, c.encode(g), c.encode(y))
	pi, err := c.longDivision(ctx, g, l, t)
	if err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	c.logger.Debug(
		"solved",
		zap.Uint64("iterations", t),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Output{Y: c.encode(y), Proof: c.encode(pi)}, nil
}

func (c *RSAConstruction) Evaluate(
	ctx context.Context,
	x *big.Int,
	t uint64,
) (*Output, error) {
	g, err := c.Generator(x)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}

	if c.trapdoor != nil {
		y, _ := c.withTrapdoor(g, t)
		return &Output{Y: c.encode(y)}, nil
	}

	y, err := c.square(ctx, g, t)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}

	return &Output{Y: c.encode(y)}, nil
}

func (c *RSAConstruction) Verify(
	x *big.Int,
	t uint64,
	out *Output,
) (bool, error) {
	if out == nil {
		return false, errors.Wrap(ErrMalformedOutput, "verify: missing output")
	}

	y, err := c.decode(out.Y)
	if err != nil {
		return false, errors.Wrap(err, "verify: output")
	}

	pi, err := c.decode(out.Proof)
	if err != nil {
		return false, errors.Wrap(err, "verify: proof")
	}

	g, err := c.Generator(x)
	if err != nil {
		return false, errors.Wrap(err, "verify")
	}

	l := HashPrime(t, c.encode(g), out.Y)
	r := new(big.Int).Exp(bigTwo, new(big.Int).SetUint64(t), l)

	lhs := new(big.Int).Exp(pi, l, c.modulus)
	lhs.Mul(lhs, new(big.Int).Exp(g, r, c.modulus))
	lhs.Mod(lhs, c.modulus)

	ok := lhs.Cmp(y) == 0
	if !ok {
		c.logger.Debug("verification failed", zap.Uint64("iterations", t))
	}

	return ok, nil
}
