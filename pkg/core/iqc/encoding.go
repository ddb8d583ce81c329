//
// Copyright (c) 2019 harmony-one
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package iqc

import "math/big"

func decodeTwosComplement(bytes []byte) *big.Int {
	if len(bytes) == 0 {
		return new(big.Int)
	}

	if bytes[0]&0x80 == 0 {
		// non-negative
		return new(big.Int).SetBytes(bytes)
	}

	inverted := make([]byte, len(bytes))
	for i := range bytes {
		inverted[i] = bytes[i] ^ 0xff
	}
	n := new(big.Int).SetBytes(inverted)
	return n.Sub(n.Neg(n), bigOne)
}

func encodeTwosComplement(n *big.Int) []byte {
	switch n.Sign() {
	case 1:
		bytes := n.Bytes()
		if bytes[0]&0x80 == 0 {
			return bytes
		}

		// one more byte for the positive sign
		buf := make([]byte, len(bytes)+1)
		copy(buf[1:], bytes)
		return buf
	case -1:
		// -n - 1, inverted, is the two's complement magnitude of n
		nMinus1 := new(big.Int).Neg(n)
		nMinus1.Sub(nMinus1, bigOne)
		bytes := nMinus1.Bytes()
		if len(bytes) == 0 {
			return []byte{0xff}
		}

		for i := range bytes {
			bytes[i] ^= 0xff
		}

		if bytes[0]&0x80 != 0 {
			return bytes
		}

		buf := make([]byte, len(bytes)+1)
		buf[0] = 0xff
		copy(buf[1:], bytes)
		return buf
	}

	return []byte{0x00}
}

func signBitFill(bytes []byte, targetLen int) []byte {
	if len(bytes) >= targetLen {
		return bytes
	}

	buf := make([]byte, targetLen)
	offset := targetLen - len(bytes)
	if bytes[0]&0x80 != 0 {
		for i := 0; i < offset; i++ {
			buf[i] = 0xff
		}
	}

	copy(buf[offset:], bytes)
	return buf
}

// EncodeBigIntBigEndian returns the two's complement big-endian encoding of a,
// padded to (bits+16)/8 bytes.
func EncodeBigIntBigEndian(a *big.Int) []byte {
	intSize := (a.BitLen() + 16) >> 3

	return signBitFill(encodeTwosComplement(a), intSize)
}
