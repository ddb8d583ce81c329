//
// Copyright (c) 2019 harmony-one
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package vdf

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/big"

	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/core/iqc"
)

// ProgressFunc receives the number of squarings performed out of total.
type ProgressFunc func(done, total uint64)

const (
	// below this many iterations the proof exponent is applied directly
	directProofThreshold = 64
	// upper bound on stored checkpoints, regardless of available memory
	maxCheckpoints = 10000000
	// bounds the block table of evalOptimized to 2^maxBlockBits entries
	maxBlockBits = 16
	// squarings between progress reports
	progressInterval = 1024
)

var (
	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

// Creates L and k parameters from papers, based on how many iterations need to
// be performed, and how many checkpoints of elementSize bytes fit in memory.
func approximateParameters(T uint64, elementSize int) (int, int) {
	budget := uint64(maxCheckpoints)
	if elementSize > 0 {
		available := memory.TotalMemory() / 8 / uint64(elementSize)
		if available > 0 && available < budget {
			budget = available
		}
	}

	L := 1
	k := optimalBlockBits(T, L)
	if T/uint64(k) > budget {
		kBudget := uint64(k) * budget
		L = int((T + kBudget - 1) / kBudget)
		k = optimalBlockBits(T, L)
		kBudget = uint64(k) * budget
		L = int((T + kBudget - 1) / kBudget)
	}

	return L, k
}

// Total time for proof: T/k + L * 2^(k+1)
// To optimize, set left equal to right, and solve for k
// k = W(T * log(2) / (2 * L))  / log(2), where W is the product log function
// W can be approximated by log(x) - log(log(x)) + 0.25
func optimalBlockBits(T uint64, L int) int {
	intermediate := float64(T) * math.Log(2) / float64(2*L)
	if intermediate <= math.E {
		return 1
	}

	k := int(math.Max(
		math.Round(
			math.Log(intermediate)-math.Log(math.Log(intermediate))+0.25,
		),
		1,
	))
	if k > maxBlockBits {
		k = maxBlockBits
	}

	return k
}

// checkpoints lists the multiples of k*L below T, followed by T.
func checkpoints(T uint64, k, L int) []uint64 {
	step := uint64(k * L)
	powers := make([]uint64, 0, T/step+2)
	for p := uint64(0); p < T; p += step {
		powers = append(powers, p)
	}

	return append(powers, T)
}

// iterateSquarings squares x up to each of the ascending powers and returns
// x^(2^p) for every p. The context is checked between squarings.
func iterateSquarings(
	ctx context.Context,
	x *iqc.ClassGroup,
	powers []uint64,
	progress ProgressFunc,
) (map[uint64]*iqc.ClassGroup, error) {
	calculated := make(map[uint64]*iqc.ClassGroup, len(powers))
	total := powers[len(powers)-1]

	done := uint64(0)
	curr := x
	for _, power := range powers {
		for ; done < power; done++ {
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), "iterate squarings")
			default:
			}

			curr = curr.Square()

			if progress != nil && (done+1)%progressInterval == 0 {
				progress(done+1, total)
			}
		}

		calculated[power] = curr
	}

	if progress != nil {
		progress(total, total)
	}

	return calculated, nil
}

// HashPrime derives the 128-bit Fiat-Shamir challenge prime from the public
// inputs. All of them must be included, or else there is the potential to
// forge proofs of time for larger iterations modulo the prime.
func HashPrime(T uint64, parts ...[]byte) *big.Int {
	var j uint64 = 0

	z := new(big.Int)
	for {
		s := append([]byte("prime"), binary.BigEndian.AppendUint64(nil, j)...)
		for _, part := range parts {
			s = append(s, part...)
		}
		s = binary.BigEndian.AppendUint64(s, T)

		checkSum := sha256.Sum256(s)
		checkSum[0] |= 0x80
		z.SetBytes(checkSum[:16])

		if z.ProbablyPrime(1) {
			return z
		}
		j++
	}
}

// Get's the ith block of 2^T // B
// such that sum(get_block(i) * 2^ki) = 2^T // B
func getBlock(i, k int, T uint64, B *big.Int) *big.Int {
	//(pow(2, k) * pow(2, T - k * (i + 1), B)) // B
	p1 := new(big.Int).Lsh(bigOne, uint(k))
	e := new(big.Int).SetUint64(T - uint64(k*(i+1)))
	p2 := new(big.Int).Exp(bigTwo, e, B)
	return p1.Mul(p1, p2).Div(p1, B)
}

// Optimized evalutation of h ^ (2^T // B), from the checkpoints C of h
func evalOptimized(
	ctx context.Context,
	identity *iqc.ClassGroup,
	B *big.Int,
	T uint64,
	k, l int,
	C map[uint64]*iqc.ClassGroup,
) (*iqc.ClassGroup, error) {
	k1 := k / 2
	k0 := k - k1
	blocks := int((T + uint64(k*l) - 1) / uint64(k*l))

	x := identity
	for j := l - 1; j > -1; j-- {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "eval optimized")
		default:
		}

		//x = pow(x, pow(2, k))
		x = x.Pow(int64(1) << k)

		ys := make([]*iqc.ClassGroup, 1<<k)
		for b := range ys {
			ys[b] = identity
		}

		for i := 0; i < blocks; i++ {
			if T < uint64(k*(i*l+j+1)) {
				continue
			}

			b := getBlock(i*l+j, k, T, B).Int64()
			ys[b] = ys[b].Multiply(C[uint64(i*k*l)])
		}

		for b1 := 0; b1 < 1<<k1; b1++ {
			z := identity
			for b0 := 0; b0 < 1<<k0; b0++ {
				z = z.Multiply(ys[b1<<k0+b0])
			}

			//x *= pow(z, b1 * pow(2, k0))
			x = x.Multiply(z.Pow(int64(b1) << k0))
		}

		for b0 := 0; b0 < 1<<k0; b0++ {
			z := identity
			for b1 := 0; b1 < 1<<k1; b1++ {
				z = z.Multiply(ys[b1<<k0+b0])
			}

			//x *= pow(z, b0)
			x = x.Multiply(z.Pow(int64(b0)))
		}
	}

	return x, nil
}

// quotientProof computes g^(2^T // B) by plain exponentiation.
func quotientProof(g *iqc.ClassGroup, B *big.Int, T uint64) *iqc.ClassGroup {
	q := new(big.Int).Lsh(bigOne, uint(T))
	return g.BigPow(q.Div(q, B))
}

// Evaluate computes g^(2^t) by t sequential squarings. t = 0 returns g.
func Evaluate(
	ctx context.Context,
	g *iqc.ClassGroup,
	t uint64,
) (*iqc.ClassGroup, error) {
	return EvaluateWithProgress(ctx, g, t, nil)
}

func EvaluateWithProgress(
	ctx context.Context,
	g *iqc.ClassGroup,
	t uint64,
	progress ProgressFunc,
) (y *iqc.ClassGroup, err error) {
	defer recoverInvariant(&err)

	powers, err := iterateSquarings(ctx, g, []uint64{t}, progress)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}

	return powers[t], nil
}

// EvaluateSeed maps x into the group of discriminant d and evaluates it.
func EvaluateSeed(
	ctx context.Context,
	d, x *big.Int,
	t uint64,
) (*iqc.ClassGroup, error) {
	g, err := iqc.FromSeed(d, x)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate seed")
	}

	return Evaluate(ctx, g, t)
}

// Prove computes the proof g^(2^t // l) for a known output y. The squarings
// are redone to collect checkpoints.
func Prove(
	ctx context.Context,
	g, y *iqc.ClassGroup,
	t uint64,
) (proof *iqc.ClassGroup, err error) {
	defer recoverInvariant(&err)

	B := HashPrime(t, g.Serialize(), y.Serialize())
	if t < directProofThreshold {
		return quotientProof(g, B, t), nil
	}

	L, k := approximateParameters(t, len(g.Serialize()))
	powers, err := iterateSquarings(ctx, g, checkpoints(t, k, L), nil)
	if err != nil {
		return nil, errors.Wrap(err, "prove")
	}

	proof, err = evalOptimized(
		ctx,
		iqc.IdentityForDiscriminant(g.Discriminant()),
		B,
		t,
		k,
		L,
		powers,
	)
	return proof, errors.Wrap(err, "prove")
}

// Solve computes y = g^(2^t) and its proof in a single pass of squarings.
func Solve(
	ctx context.Context,
	g *iqc.ClassGroup,
	t uint64,
	progress ProgressFunc,
) (y, proof *iqc.ClassGroup, err error) {
	defer recoverInvariant(&err)

	if t < directProofThreshold {
		y, err = EvaluateWithProgress(ctx, g, t, progress)
		if err != nil {
			return nil, nil, errors.Wrap(err, "solve")
		}

		B := HashPrime(t, g.Serialize(), y.Serialize())
		return y, quotientProof(g, B, t), nil
	}

	L, k := approximateParameters(t, len(g.Serialize()))
	powers, err := iterateSquarings(ctx, g, checkpoints(t, k, L), progress)
	if err != nil {
		return nil, nil, errors.Wrap(err, "solve")
	}

	y = powers[t]
	B := HashPrime(t, g.Serialize(), y.Serialize())
	proof, err = evalOptimized(
		ctx,
		iqc.IdentityForDiscriminant(g.Discriminant()),
		B,
		t,
		k,
		L,
		powers,
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "solve")
	}

	return y, proof, nil
}

// VerifyProof accepts iff proof^l * g^r == y with r = 2^t mod l. Elements of
// different discriminants are rejected.
func VerifyProof(g, y, proof *iqc.ClassGroup, t uint64) bool {
	ok, err := verifyProof(g, y, proof, t)
	return ok && err == nil
}

func verifyProof(g, y, proof *iqc.ClassGroup, t uint64) (ok bool, err error) {
	defer recoverInvariant(&err)

	d := g.Discriminant()
	if y.Discriminant().Cmp(d) != 0 || proof.Discriminant().Cmp(d) != 0 {
		return false, nil
	}

	if !g.Validate() || !y.Validate() || !proof.Validate() {
		return false, nil
	}

	B := HashPrime(t, g.Serialize(), y.Serialize())
	r := new(big.Int).Exp(bigTwo, new(big.Int).SetUint64(t), B)

	piB := proof.BigPow(B)
	gR := g.BigPow(r)

	return piB.Multiply(gR).Equal(y), nil
}
