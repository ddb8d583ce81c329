package timelock

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/vdf"
)

// Record is a sealed time-lock message. Anyone holding it can recover the
// plaintext after t sequential squarings; the proof lets a solver's output be
// checked quickly.
type Record struct {
	Construction  string     `json:"construction"`
	Version       string     `json:"version,omitempty"`
	X             *Integer   `json:"x"`
	T             Iterations `json:"t"`
	Bits          uint32     `json:"bits"`
	N             HexBytes   `json:"n,omitempty"`
	MessageLength int        `json:"message_length"`
	Nonce         HexBytes   `json:"nonce"`
	CipherText    HexBytes   `json:"cipher_text"`
	Tag           HexBytes   `json:"tag"`
	Proof         HexBytes   `json:"proof"`
	SealerKey     HexBytes   `json:"sealer_key,omitempty"`
	Signature     HexBytes   `json:"signature,omitempty"`
}

// EncryptRequest is the input of Encrypt. Construction and Bits fall back to
// the configured defaults when empty.
type EncryptRequest struct {
	Construction string     `json:"construction,omitempty"`
	X            *Integer   `json:"x"`
	T            Iterations `json:"t"`
	Bits         uint32     `json:"bits,omitempty"`
	OriginalText string     `json:"original_text"`
}

func ParseRecord(data []byte) (*Record, error) {
	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, errors.Wrap(err, "parse record")
	}

	if record.X == nil {
		return nil, errors.Wrap(ErrInvalidRecord, "parse record: missing x")
	}

	if record.MessageLength < 0 {
		return nil, errors.Wrap(ErrInvalidRecord, "parse record: message length")
	}

	return record, nil
}

func ParseEncryptRequest(data []byte) (*EncryptRequest, error) {
	request := &EncryptRequest{}
	if err := json.Unmarshal(data, request); err != nil {
		return nil, errors.Wrap(err, "parse encrypt request")
	}

	if request.X == nil {
		return nil, errors.Wrap(ErrInvalidRecord, "parse encrypt request: missing x")
	}

	return request, nil
}

// Id is the base58 sha3-256 digest of the record's JSON encoding.
func (r *Record) Id() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", errors.Wrap(err, "record id")
	}

	digest := sha3.Sum256(data)
	return base58.Encode(digest[:]), nil
}

// SigningBytes is the JSON encoding of the record without its signature.
func (r *Record) SigningBytes() ([]byte, error) {
	unsigned := *r
	unsigned.Signature = nil

	data, err := json.Marshal(&unsigned)
	return data, errors.Wrap(err, "signing bytes")
}

// Modulus returns the recorded RSA modulus, or nil.
func (r *Record) Modulus() *big.Int {
	if len(r.N) == 0 {
		return nil
	}

	return new(big.Int).SetBytes(r.N)
}

// HexBytes is a byte string encoded as hex in JSON. A 0x prefix is accepted
// when decoding.
type HexBytes []byte

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h)), nil
}

func (h *HexBytes) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimPrefix(string(text), "0x"), "0X")
	value, err := hex.DecodeString(s)
	if err != nil {
		return errors.Wrap(err, "decode hex")
	}

	*h = value
	return nil
}

// Integer is an arbitrary precision integer encoded as a JSON number. It also
// decodes from a string holding a decimal or 0x-prefixed hex integer.
type Integer struct {
	big.Int
}

func NewInteger(x *big.Int) *Integer {
	i := &Integer{}
	i.Set(x)
	return i
}

func (i *Integer) BigInt() *big.Int {
	return new(big.Int).Set(&i.Int)
}

func (i *Integer) MarshalJSON() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Integer) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if text == "null" {
		return nil
	}

	if strings.HasPrefix(text, `"`) {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return errors.Wrap(err, "decode integer")
		}

		text = strings.TrimSpace(unquoted)
	}

	if _, ok := i.SetString(text, 0); !ok {
		return errors.Errorf("decode integer: %q is not an integer", text)
	}

	return nil
}

// Iterations is the delay parameter t. It decodes from a JSON number and
// rejects negative or fractional values.
type Iterations uint64

func (t *Iterations) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if v, err := strconv.ParseUint(text, 10, 64); err == nil {
		*t = Iterations(v)
		return nil
	}

	f, _, err := big.ParseFloat(text, 10, 256, big.ToNearestEven)
	if err != nil {
		return errors.Wrapf(vdf.ErrInvalidIterations, "t %s", text)
	}

	if f.Sign() < 0 || !f.IsInt() {
		return errors.Wrapf(vdf.ErrInvalidIterations, "t %s", text)
	}

	v, accuracy := f.Uint64()
	if accuracy != big.Exact {
		return errors.Wrapf(vdf.ErrInvalidIterations, "t %s", text)
	}

	*t = Iterations(v)
	return nil
}

// Solution is a VDF output as exchanged between solvers, hex encoded.
type Solution struct {
	Y     HexBytes `json:"y"`
	Proof HexBytes `json:"proof"`
}

func NewSolution(out *vdf.Output) *Solution {
	return &Solution{Y: out.Y, Proof: out.Proof}
}

func (s *Solution) Output() *vdf.Output {
	return &vdf.Output{Y: s.Y, Proof: s.Proof}
}
