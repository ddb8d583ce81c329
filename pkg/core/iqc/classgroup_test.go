//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package iqc

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDiscriminant(t *testing.T) *big.Int {
	d, err := DiscriminantFromSeed(big.NewInt(7), 512)
	require.NoError(t, err)
	return d
}

func testForm(t *testing.T, d *big.Int, x int64) *ClassGroup {
	g, err := FromSeed(d, big.NewInt(x))
	require.NoError(t, err)
	return g
}

func TestSmallClassGroup(t *testing.T) {
	// the class group of discriminant -23 is cyclic of order 3
	d := big.NewInt(-23)
	require.True(t, ValidateDiscriminant(d))

	g := GeneratorForDiscriminant(d)
	id := IdentityForDiscriminant(d)
	assert.Equal(t, "(2, 1, 3)", g.String())
	assert.False(t, g.Equal(id))
	assert.True(t, g.Pow(3).Equal(id))
	assert.True(t, g.Square().Equal(g.Inverse()))
	assert.True(t, NewClassGroup(big.NewInt(2), big.NewInt(-1), big.NewInt(3)).
		Equal(g.Inverse()))
}

func TestReducedIdempotent(t *testing.T) {
	d := testDiscriminant(t)
	g := testForm(t, d, 1)

	// (a, b + 2a, ...) is equivalent to (a, b, c) but not normalized
	a := g.A()
	b := new(big.Int).Add(g.B(), new(big.Int).Lsh(a, 1))
	shifted := NewClassGroupFromAbDiscriminant(a, b, d)
	require.True(t, shifted.Validate())
	require.False(t, shifted.IsReduced())

	once := shifted.Reduced()
	twice := once.Reduced()
	assert.True(t, once.IsReduced())
	assert.Equal(t, once.Serialize(), twice.Serialize())
	assert.True(t, once.Equal(g))
}

func TestGroupLaws(t *testing.T) {
	d := testDiscriminant(t)
	g := testForm(t, d, 7)
	h := testForm(t, d, 8)
	id := IdentityForDiscriminant(d)

	assert.True(t, g.Validate())
	assert.True(t, g.IsReduced())
	assert.Equal(t, 0, g.Discriminant().Cmp(d))

	assert.True(t, g.Multiply(id).Equal(g))
	assert.True(t, id.Multiply(g).Equal(g))
	assert.True(t, g.Multiply(g.Inverse()).Equal(id))
	assert.True(t, g.Square().Equal(g.Multiply(g)))
	assert.True(t, g.Multiply(h).Equal(h.Multiply(g)))
	assert.True(t, g.Multiply(h).Multiply(g).Equal(g.Square().Multiply(h)))

	x := g
	for i := 0; i < 4; i++ {
		x = x.Multiply(g)
	}
	assert.True(t, g.Pow(5).Equal(x))
	assert.True(t, g.BigPow(big.NewInt(5)).Equal(x))
	assert.True(t, g.Pow(0).Equal(id))

	for _, f := range []*ClassGroup{g.Square(), g.Multiply(h), g.Pow(1000)} {
		assert.True(t, f.IsReduced())
		assert.True(t, f.Validate())
	}
}

func TestMultiplyDifferentDiscriminants(t *testing.T) {
	g := GeneratorForDiscriminant(big.NewInt(-23))
	h := GeneratorForDiscriminant(big.NewInt(-47))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
	}()

	g.Multiply(h)
	t.Fatal("expected panic")
}

func TestSerializeRoundTrip(t *testing.T) {
	d := testDiscriminant(t)
	for x := int64(0); x < 8; x++ {
		g := testForm(t, d, x).Pow(x + 3)
		buf := g.Serialize()
		assert.Len(t, buf, 2*ElementIntSize(d))

		decoded, err := NewClassGroupFromBytesDiscriminant(buf, d)
		require.NoError(t, err)
		assert.True(t, decoded.Equal(g))
		assert.Equal(t, buf, decoded.Serialize())
	}
}

func TestDecodeMalformed(t *testing.T) {
	d := testDiscriminant(t)
	g := testForm(t, d, 3)
	buf := g.Serialize()
	intSize := ElementIntSize(d)

	_, err := NewClassGroupFromBytesDiscriminant(buf[1:], d)
	assert.ErrorIs(t, err, ErrMalformedElement)

	zeroA := append([]byte{}, buf...)
	for i := 0; i < intSize; i++ {
		zeroA[i] = 0
	}
	_, err = NewClassGroupFromBytesDiscriminant(zeroA, d)
	assert.ErrorIs(t, err, ErrMalformedElement)

	// b -> b + 2a keeps c integral but leaves the form unreduced
	a := g.A()
	b := new(big.Int).Add(g.B(), new(big.Int).Lsh(a, 1))
	unreduced := make([]byte, 2*intSize)
	copy(unreduced[:intSize], signBitFill(encodeTwosComplement(a), intSize))
	copy(unreduced[intSize:], signBitFill(encodeTwosComplement(b), intSize))
	_, err = NewClassGroupFromBytesDiscriminant(unreduced, d)
	assert.ErrorIs(t, err, ErrMalformedElement)

	// even b never satisfies b^2 = d (mod 4a)
	even := make([]byte, 2*intSize)
	copy(even[:intSize], signBitFill(encodeTwosComplement(a), intSize))
	copy(even[intSize:], signBitFill(encodeTwosComplement(big.NewInt(2)), intSize))
	_, err = NewClassGroupFromBytesDiscriminant(even, d)
	assert.ErrorIs(t, err, ErrMalformedElement)
}

func TestTwosComplement(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 127, 128, -128, -129, 255, 1 << 40, -(1 << 40)} {
		n := big.NewInt(v)
		enc := EncodeBigIntBigEndian(n)
		assert.Equal(t, (n.BitLen()+16)>>3, len(enc))
		assert.Equal(t, 0, decodeTwosComplement(enc).Cmp(n), "value %d", v)
	}
}

func TestFloorDivision(t *testing.T) {
	cases := [][3]int64{
		{7, 2, 3},
		{-7, 2, -4},
		{7, -2, -4},
		{-7, -2, 3},
		{-8, 2, -4},
	}
	for _, c := range cases {
		q := FloorDivision(big.NewInt(c[0]), big.NewInt(c[1]))
		assert.Equal(t, c[2], q.Int64(), "%d // %d", c[0], c[1])
	}
}

func TestSolveMod(t *testing.T) {
	s, u, ok := SolveMod(big.NewInt(3), big.NewInt(4), big.NewInt(7))
	require.True(t, ok)
	assert.Equal(t, int64(6), s.Int64())
	assert.Equal(t, int64(7), u.Int64())

	_, _, ok = SolveMod(big.NewInt(2), big.NewInt(3), big.NewInt(4))
	assert.False(t, ok)
}
