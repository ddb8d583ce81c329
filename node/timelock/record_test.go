package timelock_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/timelock"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/vdf"
)

func TestRecordJSON(t *testing.T) {
	record := &timelock.Record{
		Construction:  vdf.ClassGroupWesolowski,
		X:             timelock.NewInteger(big.NewInt(7)),
		T:             1000,
		Bits:          256,
		MessageLength: 2,
		Nonce:         make([]byte, 32),
		CipherText:    []byte{0xab, 0xcd},
		Tag:           []byte{0x01},
		Proof:         []byte{0x02, 0x03},
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"x":7`)
	assert.Contains(t, string(data), `"t":1000`)
	assert.Contains(t, string(data), `"cipher_text":"abcd"`)
	assert.NotContains(t, string(data), `"signature"`)
	assert.NotContains(t, string(data), `"n"`)

	parsed, err := timelock.ParseRecord(data)
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.X.BigInt().Cmp(big.NewInt(7)))
	assert.Equal(t, record.T, parsed.T)
	assert.Equal(t, record.CipherText, parsed.CipherText)
	assert.Equal(t, record.Proof, parsed.Proof)

	id, err := record.Id()
	require.NoError(t, err)
	again, err := parsed.Id()
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestIntegerForms(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"x":7,"t":1}`, "7"},
		{`{"x":"7","t":1}`, "7"},
		{`{"x":"0x1f","t":1}`, "31"},
		{`{"x":-12,"t":1}`, "-12"},
		{
			`{"x":123456789012345678901234567890,"t":1}`,
			"123456789012345678901234567890",
		},
	}

	for _, tt := range tests {
		request, err := timelock.ParseEncryptRequest([]byte(tt.input))
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, request.X.String(), tt.input)
	}

	_, err := timelock.ParseEncryptRequest([]byte(`{"x":"seven","t":1}`))
	assert.Error(t, err)

	_, err = timelock.ParseEncryptRequest([]byte(`{"t":1}`))
	assert.True(t, errors.Is(err, timelock.ErrInvalidRecord))
}

func TestIterations(t *testing.T) {
	request, err := timelock.ParseEncryptRequest([]byte(`{"x":1,"t":1e3}`))
	require.NoError(t, err)
	assert.Equal(t, timelock.Iterations(1000), request.T)

	for _, input := range []string{
		`{"x":1,"t":-1}`,
		`{"x":1,"t":1.5}`,
		`{"x":1,"t":"10"}`,
		`{"x":1,"t":18446744073709551616}`,
	} {
		_, err := timelock.ParseEncryptRequest([]byte(input))
		assert.True(t, errors.Is(err, vdf.ErrInvalidIterations), input)
	}
}

func TestHexBytes(t *testing.T) {
	var h timelock.HexBytes
	require.NoError(t, h.UnmarshalText([]byte("0xdeadbeef")))
	assert.Equal(t, timelock.HexBytes{0xde, 0xad, 0xbe, 0xef}, h)

	text, err := h.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", string(text))

	assert.Error(t, h.UnmarshalText([]byte("xyz")))
}
