//
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

// Package cipher implements the time-lock stream cipher keyed by a VDF
// output. The key is a Baby Jubjub point derived from the output, the key
// stream and the tag are Poseidon hashes over the point and a nonce.
package cipher

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

const (
	// NonceSize is the encoded nonce length.
	NonceSize = 32
	// TagSize is the encoded tag length.
	TagSize = 32

	// bytes of key stream, and of ciphertext absorbed into the tag, per
	// field element
	blockSize = 31
)

var (
	ErrAuthenticationFailed = errors.New("cipher authentication failed")
	ErrInvalidNonce         = errors.New("invalid nonce")

	streamDomain = new(big.Int).Lsh(big.NewInt(1), 32)
	tagDomain    = new(big.Int).Add(streamDomain, big.NewInt(1))
)

// Key is the secret point S = s * B8.
type Key struct {
	X *big.Int
	Y *big.Int
}

// DeriveKey maps the canonical bytes of a VDF output to a key.
func DeriveKey(y []byte) *Key {
	h := sha3.NewLegacyKeccak256()
	h.Write(y)
	s := new(big.Int).SetBytes(h.Sum(nil))
	s.Mod(s, babyjub.SubOrder)

	p := babyjub.NewPoint().Mul(s, babyjub.B8)
	return &Key{X: p.X, Y: p.Y}
}

// NewNonce draws a uniform nonce below the field modulus.
func NewNonce(random io.Reader) (*big.Int, error) {
	if random == nil {
		random = rand.Reader
	}

	n, err := rand.Int(random, constants.Q)
	return n, errors.Wrap(err, "new nonce")
}

func EncodeNonce(nonce *big.Int) []byte {
	return nonce.FillBytes(make([]byte, NonceSize))
}

func DecodeNonce(buf []byte) (*big.Int, error) {
	if len(buf) != NonceSize {
		return nil, errors.Wrap(ErrInvalidNonce, "decode nonce")
	}

	nonce := new(big.Int).SetBytes(buf)
	if err := checkNonce(nonce); err != nil {
		return nil, errors.Wrap(err, "decode nonce")
	}

	return nonce, nil
}

func checkNonce(nonce *big.Int) error {
	if nonce == nil || nonce.Sign() < 0 || nonce.Cmp(constants.Q) >= 0 {
		return ErrInvalidNonce
	}

	return nil
}

func (k *Key) keyStream(nonce *big.Int, length int) ([]byte, error) {
	stream := make([]byte, 0, length+blockSize)
	buf := make([]byte, 32)
	for i := 0; len(stream) < length; i++ {
		h, err := poseidon.Hash([]*big.Int{
			streamDomain,
			k.X,
			k.Y,
			nonce,
			big.NewInt(int64(i)),
		})
		if err != nil {
			return nil, errors.Wrap(err, "key stream")
		}

		stream = append(stream, h.FillBytes(buf)[32-blockSize:]...)
	}

	return stream[:length], nil
}

func (k *Key) tag(nonce *big.Int, ciphertext []byte) ([]byte, error) {
	state, err := poseidon.Hash([]*big.Int{
		tagDomain,
		k.X,
		k.Y,
		nonce,
		big.NewInt(int64(len(ciphertext))),
	})
	if err != nil {
		return nil, errors.Wrap(err, "tag")
	}

	for i := 0; i < len(ciphertext); i += blockSize {
		end := i + blockSize
		if end > len(ciphertext) {
			end = len(ciphertext)
		}

		chunk := new(big.Int).SetBytes(ciphertext[i:end])
		state, err = poseidon.Hash([]*big.Int{state, chunk})
		if err != nil {
			return nil, errors.Wrap(err, "tag")
		}
	}

	return state.FillBytes(make([]byte, TagSize)), nil
}

// Encrypt XORs the plaintext with the key stream. The ciphertext has the
// length of the plaintext; the tag authenticates it under the key and nonce.
func Encrypt(
	key *Key,
	nonce *big.Int,
	plaintext []byte,
) (ciphertext []byte, tag []byte, err error) {
	if err := checkNonce(nonce); err != nil {
		return nil, nil, errors.Wrap(err, "encrypt")
	}

	stream, err := key.keyStream(nonce, len(plaintext))
	if err != nil {
		return nil, nil, errors.Wrap(err, "encrypt")
	}

	ciphertext = make([]byte, len(plaintext))
	subtle.XORBytes(ciphertext, plaintext, stream)

	tag, err = key.tag(nonce, ciphertext)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encrypt")
	}

	return ciphertext, tag, nil
}

// Decrypt checks the tag and recovers the plaintext.
func Decrypt(
	key *Key,
	nonce *big.Int,
	ciphertext []byte,
	tag []byte,
) ([]byte, error) {
	if err := checkNonce(nonce); err != nil {
		return nil, errors.Wrap(err, "decrypt")
	}

	expected, err := key.tag(nonce, ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt")
	}

	if subtle.ConstantTimeCompare(expected, tag) != 1 {
		return nil, errors.Wrap(ErrAuthenticationFailed, "decrypt")
	}

	stream, err := key.keyStream(nonce, len(ciphertext))
	if err != nil {
		return nil, errors.Wrap(err, "decrypt")
	}

	plaintext := make([]byte, len(ciphertext))
	subtle.XORBytes(plaintext, ciphertext, stream)

	return plaintext, nil
}
