package keys

import (
	"crypto"
	"encoding/hex"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
)

type KeyType int

const (
	KeyTypeEd448 KeyType = iota
)

// KeyManager holds the signing keys sealers use to bind themselves to the
// records they produce.
type KeyManager interface {
	GetRawKey(id string) (*Key, error)
	GetSigningKey(id string) (crypto.Signer, error)
	PutRawKey(key *Key) error
	CreateSigningKey(id string, keyType KeyType) (crypto.Signer, error)
	DeleteKey(id string) error
	ListKeys() ([]*Key, error)
}

var UnsupportedKeyTypeErr = errors.New("unsupported key type")
var KeyNotFoundErr = errors.New("key not found")

type ByteString []byte

func (b ByteString) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(b)), nil
}

func (b *ByteString) UnmarshalText(text []byte) error {
	value, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}

	*b = value
	return nil
}

type Key struct {
	Id         string     `yaml:"id"`
	Type       KeyType    `yaml:"type"`
	PrivateKey ByteString `yaml:"privateKey"`
	PublicKey  ByteString `yaml:"publicKey"`
}

// NewKeyManager builds the key manager selected by the key config.
func NewKeyManager(
	keyConfig *config.KeyConfig,
	logger *zap.Logger,
) (KeyManager, error) {
	switch keyConfig.KeyStore {
	case config.KeyManagerTypeInMemory:
		return NewInMemoryKeyManager(), nil
	case config.KeyManagerTypeFile:
		return NewFileKeyManager(keyConfig, logger)
	}

	return nil, errors.Errorf("unknown keystore type (%d)", int(keyConfig.KeyStore))
}
