//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package cipher_test

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/cipher"
)

func TestRoundTrip(t *testing.T) {
	key := cipher.DeriveKey([]byte("vdf output"))
	nonce, err := cipher.NewNonce(rand.Reader)
	require.NoError(t, err)

	for _, size := range []int{0, 1, 5, 30, 31, 32, 62, 100, 1000} {
		plaintext := make([]byte, size)
		_, err := rand.Read(plaintext)
		require.NoError(t, err)

		ciphertext, tag, err := cipher.Encrypt(key, nonce, plaintext)
		require.NoError(t, err)
		assert.Len(t, ciphertext, size)
		assert.Len(t, tag, cipher.TagSize)

		decrypted, err := cipher.Decrypt(key, nonce, ciphertext, tag)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(plaintext, decrypted))
	}
}

func TestDeriveKey(t *testing.T) {
	a := cipher.DeriveKey([]byte{1, 2, 3})
	b := cipher.DeriveKey([]byte{1, 2, 3})
	c := cipher.DeriveKey([]byte{1, 2, 4})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, (&babyjub.Point{X: a.X, Y: a.Y}).InCurve())
}

func TestWrongKeyOrNonce(t *testing.T) {
	key := cipher.DeriveKey([]byte("right"))
	nonce := big.NewInt(42)
	ciphertext, tag, err := cipher.Encrypt(key, nonce, []byte("hello"))
	require.NoError(t, err)

	_, err = cipher.Decrypt(cipher.DeriveKey([]byte("wrong")), nonce, ciphertext, tag)
	assert.True(t, errors.Is(err, cipher.ErrAuthenticationFailed))

	_, err = cipher.Decrypt(key, big.NewInt(43), ciphertext, tag)
	assert.True(t, errors.Is(err, cipher.ErrAuthenticationFailed))

	flipped := append([]byte{}, ciphertext...)
	flipped[0] ^= 1
	_, err = cipher.Decrypt(key, nonce, flipped, tag)
	assert.True(t, errors.Is(err, cipher.ErrAuthenticationFailed))

	_, err = cipher.Decrypt(key, nonce, ciphertext[:4], tag)
	assert.True(t, errors.Is(err, cipher.ErrAuthenticationFailed))

	otherNonce, _, err := cipher.Encrypt(key, big.NewInt(43), []byte("hello"))
	require.NoError(t, err)
	assert.NotEqual(t, ciphertext, otherNonce)
}

func TestNonceEncoding(t *testing.T) {
	nonce, err := cipher.NewNonce(nil)
	require.NoError(t, err)

	encoded := cipher.EncodeNonce(nonce)
	assert.Len(t, encoded, cipher.NonceSize)

	decoded, err := cipher.DecodeNonce(encoded)
	require.NoError(t, err)
	assert.Equal(t, 0, nonce.Cmp(decoded))

	_, err = cipher.DecodeNonce(encoded[1:])
	assert.True(t, errors.Is(err, cipher.ErrInvalidNonce))

	_, err = cipher.DecodeNonce(cipher.EncodeNonce(constants.Q))
	assert.True(t, errors.Is(err, cipher.ErrInvalidNonce))

	_, _, err = cipher.Encrypt(cipher.DeriveKey(nil), constants.Q, []byte("x"))
	assert.True(t, errors.Is(err, cipher.ErrInvalidNonce))
}
