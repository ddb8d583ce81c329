//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package vdf

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/core/iqc"
)

const testBits = 512

func testGenerator(t *testing.T, x int64) *iqc.ClassGroup {
	d, err := iqc.DiscriminantFromSeed(big.NewInt(x), testBits)
	require.NoError(t, err)
	g, err := iqc.FromSeed(d, big.NewInt(x))
	require.NoError(t, err)
	return g
}

func TestSolveVerify(t *testing.T) {
	g := testGenerator(t, 7)
	ctx := context.Background()

	for _, iterations := range []uint64{0, 1, 10, 63, 64, 100, 1000} {
		y, proof, err := Solve(ctx, g, iterations, nil)
		require.NoError(t, err)
		assert.True(t, VerifyProof(g, y, proof, iterations), "t=%d", iterations)

		evaluated, err := Evaluate(ctx, g, iterations)
		require.NoError(t, err)
		assert.True(t, evaluated.Equal(y))

		proved, err := Prove(ctx, g, y, iterations)
		require.NoError(t, err)
		assert.Equal(t, proof.Serialize(), proved.Serialize())
	}
}

func TestEvaluateZero(t *testing.T) {
	g := testGenerator(t, 3)
	y, err := Evaluate(context.Background(), g, 0)
	require.NoError(t, err)
	assert.Equal(t, g.Serialize(), y.Serialize())
}

func TestDeterminism(t *testing.T) {
	ctx := context.Background()
	y1, p1, err := Solve(ctx, testGenerator(t, 11), 500, nil)
	require.NoError(t, err)
	y2, p2, err := Solve(ctx, testGenerator(t, 11), 500, nil)
	require.NoError(t, err)

	assert.Equal(t, y1.Serialize(), y2.Serialize())
	assert.Equal(t, p1.Serialize(), p2.Serialize())
}

func TestProofTamper(t *testing.T) {
	g := testGenerator(t, 7)
	y, proof, err := Solve(context.Background(), g, 300, nil)
	require.NoError(t, err)

	assert.False(t, VerifyProof(g, y, proof, 299))
	assert.False(t, VerifyProof(g, y, proof, 301))
	assert.False(t, VerifyProof(g, y.Square(), proof, 300))
	assert.False(t, VerifyProof(g, y, proof.Square(), 300))

	d := g.Discriminant()
	buf := proof.Serialize()
	for i := 0; i < len(buf)*8; i += 7 {
		tampered := append([]byte{}, buf...)
		tampered[i/8] ^= 1 << (i % 8)

		decoded, err := iqc.NewClassGroupFromBytesDiscriminant(tampered, d)
		if err != nil {
			continue
		}
		assert.False(t, VerifyProof(g, y, decoded, 300), "bit %d", i)
	}
}

func TestVerifyDifferentDiscriminants(t *testing.T) {
	g := testGenerator(t, 7)
	h := testGenerator(t, 8)
	y, proof, err := Solve(context.Background(), g, 50, nil)
	require.NoError(t, err)

	assert.False(t, VerifyProof(h, y, proof, 50))
	assert.False(t, VerifyProof(g, h, proof, 50))
}

func TestEvalOptimizedParameters(t *testing.T) {
	ctx := context.Background()
	g := testGenerator(t, 5)
	identity := iqc.IdentityForDiscriminant(g.Discriminant())

	const T = 200
	y, err := Evaluate(ctx, g, T)
	require.NoError(t, err)
	B := HashPrime(T, g.Serialize(), y.Serialize())
	expected := quotientProof(g, B, T)

	for _, p := range [][2]int{{1, 1}, {2, 1}, {3, 2}, {4, 3}, {5, 7}} {
		k, L := p[0], p[1]
		powers, err := iterateSquarings(ctx, g, checkpoints(T, k, L), nil)
		require.NoError(t, err)

		proof, err := evalOptimized(ctx, identity, B, T, k, L, powers)
		require.NoError(t, err)
		assert.True(t, proof.Equal(expected), "k=%d L=%d", k, L)
	}
}

func TestHashPrime(t *testing.T) {
	a := HashPrime(10, []byte("x"), []byte("y"))
	b := HashPrime(10, []byte("x"), []byte("y"))
	c := HashPrime(11, []byte("x"), []byte("y"))

	assert.Equal(t, 128, a.BitLen())
	assert.True(t, a.ProbablyPrime(10))
	assert.Equal(t, 0, a.Cmp(b))
	assert.NotEqual(t, 0, a.Cmp(c))
}

func TestApproximateParameters(t *testing.T) {
	for _, T := range []uint64{64, 1000, 1 << 20, 1e9} {
		L, k := approximateParameters(T, 0)
		assert.GreaterOrEqual(t, L, 1)
		assert.GreaterOrEqual(t, k, 1)
		assert.LessOrEqual(t, k, maxBlockBits)
		assert.LessOrEqual(t, T/uint64(k*L), uint64(maxCheckpoints))
	}

	L, _ := approximateParameters(1e9, 0)
	assert.Greater(t, L, 1)
}

func TestCheckpoints(t *testing.T) {
	assert.Equal(t, []uint64{0, 6, 12, 18, 20}, checkpoints(20, 3, 2))
	assert.Equal(t, []uint64{0, 5, 10}, checkpoints(10, 5, 1))
}

func TestEvaluateCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Evaluate(ctx, testGenerator(t, 7), 1000)
	assert.True(t, errors.Is(err, context.Canceled))

	_, _, err = Solve(ctx, testGenerator(t, 7), 1000, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProgress(t *testing.T) {
	var last, total uint64
	calls := 0
	_, _, err := Solve(
		context.Background(),
		testGenerator(t, 7),
		3000,
		func(d, tt uint64) {
			assert.GreaterOrEqual(t, d, last)
			last, total = d, tt
			calls++
		},
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), last)
	assert.Equal(t, uint64(3000), total)
	assert.Equal(t, 3, calls)
}

func TestEvaluateCostScalesWithIterations(t *testing.T) {
	g := testGenerator(t, 7)
	perStep := map[uint64]time.Duration{}
	for _, iterations := range []uint64{10, 100, 1000} {
		start := time.Now()
		_, err := Evaluate(context.Background(), g, iterations)
		require.NoError(t, err)
		perStep[iterations] = time.Since(start) / time.Duration(iterations)
	}

	assert.Less(t, perStep[1000], 20*perStep[100])
	assert.Less(t, perStep[100], 20*perStep[10])
}
