//
// Copyright (c) 2019 harmony-one
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package iqc

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

const (
	// MinDiscriminantLength is the smallest accepted discriminant bit length.
	MinDiscriminantLength = 64
	// MaxDiscriminantWindows bounds the number of sieve windows searched
	// before CreateDiscriminant gives up.
	MaxDiscriminantWindows = 16

	sieveWindow = 1 << 16
)

type pair struct {
	p int64
	q int64
}

var m = int64(8 * 3 * 5 * 7 * 11 * 13)

var (
	// residues mod m that are 7 mod 8 and coprime to 3, 5, 7, 11 and 13
	residues []int64
	// sieving primes 17 <= p < 2^16, with q = m^-1 mod p
	sieveInfo []pair
)

func init() {
	for x := int64(7); x < m; x += 8 {
		if x%3 != 0 && x%5 != 0 && x%7 != 0 && x%11 != 0 && x%13 != 0 {
			residues = append(residues, x)
		}
	}

	composite := make([]bool, sieveWindow)
	bigM := big.NewInt(m)
	for p := 2; p < sieveWindow; p++ {
		if composite[p] {
			continue
		}

		for j := p * p; j < sieveWindow; j += p {
			composite[j] = true
		}

		if p < 17 {
			continue
		}

		q := new(big.Int).ModInverse(bigM, big.NewInt(int64(p)))
		sieveInfo = append(sieveInfo, pair{p: int64(p), q: q.Int64()})
	}
}

func EntropyFromSeed(seed []byte, byteCount uint32) []byte {
	buffer := bytes.Buffer{}
	bufferSize := uint32(0)

	extra := uint16(0)
	input := make([]byte, len(seed)+2)
	copy(input, seed)
	for bufferSize <= byteCount {
		binary.BigEndian.PutUint16(input[len(seed):], extra)
		moreEntropy := sha256.Sum256(input)
		buffer.Write(moreEntropy[:])
		bufferSize += sha256.Size
		extra += 1
	}

	return buffer.Bytes()[:byteCount]
}

// CreateDiscriminant returns a discriminant of the given length using the
// given seed. It is -p for the smallest probable prime p = 7 (mod 8) of the
// form n + m*i above the seeded starting point n.
func CreateDiscriminant(seed []byte, length uint32) (*big.Int, error) {
	return createDiscriminant(seed, length, MaxDiscriminantWindows)
}

func createDiscriminant(
	seed []byte,
	length uint32,
	maxWindows int,
) (*big.Int, error) {
	if length < MinDiscriminantLength {
		return nil, errors.Wrapf(
			ErrInvalidDiscriminantLength,
			"create discriminant: %d bits",
			length,
		)
	}

	extra := uint8(length) & 7
	byteCount := ((length + 7) >> 3) + 2
	entropy := EntropyFromSeed(seed, byteCount)

	n := new(big.Int).SetBytes(entropy[:len(entropy)-2])
	n.Rsh(n, uint((8-extra)&7))
	n.SetBit(n, int(length-1), 1)
	n.Sub(n, new(big.Int).Mod(n, big.NewInt(m)))
	residue := residues[int(
		binary.BigEndian.Uint16(entropy[len(entropy)-2:]),
	)%len(residues)]
	n.Add(n, big.NewInt(residue))

	step := new(big.Int).Mul(big.NewInt(m), big.NewInt(sieveWindow))
	sieve := make([]bool, sieveWindow)
	negN := new(big.Int)
	rem := new(big.Int)
	bigP := new(big.Int)

	// Find the smallest prime >= n of the form n + m*x
	for window := 0; window < maxWindows; window++ {
		for i := range sieve {
			sieve[i] = false
		}

		negN.Neg(n)
		for _, v := range sieveInfo {
			// i = -n / m, so that m*i is -n (mod p)
			i := (rem.Mod(negN, bigP.SetInt64(v.p)).Int64() * v.q) % v.p

			for i < int64(len(sieve)) {
				sieve[i] = true
				i += v.p
			}
		}

		for i, composite := range sieve {
			if composite {
				continue
			}

			t := new(big.Int).Add(n, big.NewInt(m*int64(i)))
			if t.ProbablyPrime(1) {
				return t.Neg(t), nil
			}
		}

		n.Add(n, step)
	}

	return nil, errors.Wrapf(
		ErrDiscriminantNotFound,
		"create discriminant: %d windows",
		maxWindows,
	)
}

// DiscriminantFromSeed derives the discriminant for an integer seed.
func DiscriminantFromSeed(x *big.Int, length uint32) (*big.Int, error) {
	return CreateDiscriminant(EncodeBigIntBigEndian(x), length)
}

// ValidateDiscriminant reports whether d is a usable discriminant: negative,
// 1 mod 8 and of prime magnitude.
func ValidateDiscriminant(d *big.Int) bool {
	if d == nil || d.Sign() >= 0 {
		return false
	}

	if new(big.Int).Mod(d, bigEight).Cmp(bigOne) != 0 {
		return false
	}

	return new(big.Int).Neg(d).ProbablyPrime(1)
}
