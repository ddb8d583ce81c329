//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package iqc

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

// MaxFormAttempts bounds the prime search of FromSeed.
const MaxFormAttempts = 1 << 16

var formPrefix = []byte("form")

// FromSeed maps an integer seed to a reduced form of discriminant d. A 64-bit
// prime l with (d/l) = 1 is selected from a counter-mode hash of the seed and
// discriminant, and the form (l, b, (b^2 - d)/4l) is built from an odd square
// root b of d mod l.
func FromSeed(d, x *big.Int) (*ClassGroup, error) {
	if !ValidateDiscriminant(d) {
		return nil, errors.Wrap(ErrConfiguration, "form from seed: bad discriminant")
	}

	encodedX := EncodeBigIntBigEndian(x)
	encodedD := EncodeBigIntBigEndian(d)

	input := make([]byte, 0, len(formPrefix)+8+len(encodedX)+len(encodedD))
	input = append(input, formPrefix...)
	counterAt := len(input)
	input = append(input, make([]byte, 8)...)
	input = append(input, encodedX...)
	input = append(input, encodedD...)

	l := new(big.Int)
	dModL := new(big.Int)
	for j := uint64(0); j < MaxFormAttempts; j++ {
		binary.BigEndian.PutUint64(input[counterAt:counterAt+8], j)
		digest := sha256.Sum256(input)

		// top bit fixes the size, bottom bit makes it odd
		candidate := binary.BigEndian.Uint64(digest[:8]) | (1 << 63) | 1
		l.SetUint64(candidate)
		if !l.ProbablyPrime(1) {
			continue
		}

		if big.Jacobi(d, l) != 1 {
			continue
		}

		dModL.Mod(d, l)
		b := new(big.Int).ModSqrt(dModL, l)
		if b == nil {
			continue
		}

		if b.Bit(0) == 0 {
			b.Sub(l, b)
		}

		num := new(big.Int).Mul(b, b)
		num.Sub(num, d)
		fourL := new(big.Int).Lsh(l, 2)
		c, r := new(big.Int).QuoRem(num, fourL, new(big.Int))
		if r.Sign() != 0 {
			invariant("form from seed: non-integral c")
		}

		return NewClassGroup(new(big.Int).Set(l), b, c).Reduced(), nil
	}

	return nil, errors.Wrap(ErrConfiguration, "form from seed: no prime found")
}
