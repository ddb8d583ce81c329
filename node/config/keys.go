package config

import (
	"github.com/pkg/errors"
)

type KeyManagerType int

const (
	KeyManagerTypeInMemory KeyManagerType = iota
	KeyManagerTypeFile
)

func (k KeyManagerType) MarshalText() ([]byte, error) {
	switch k {
	case KeyManagerTypeInMemory:
		return []byte("mem"), nil
	case KeyManagerTypeFile:
		return []byte("file"), nil
	default:
		return nil, errors.Errorf("unknown keystore type (%d)", int(k))
	}
}

func (k *KeyManagerType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "mem":
		*k = KeyManagerTypeInMemory
	case "file":
		*k = KeyManagerTypeFile
	default:
		return errors.Errorf("unknown keystore type %q", b)
	}
	return nil
}

type KeyConfig struct {
	KeyStore     KeyManagerType      `yaml:"keyManagerType"`
	KeyStoreFile *KeyStoreFileConfig `yaml:"keyManagerFile"`
}

type KeyStoreFileConfig struct {
	Path            string `yaml:"path"`
	CreateIfMissing bool   `yaml:"createIfMissing"`
	// EncryptionKey is the hex AES-256 key sealing private keys at rest.
	EncryptionKey string `yaml:"encryptionKey"`
}
