package keys_test

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/keys"
)

func fileKeyConfig(t *testing.T) *config.KeyConfig {
	encryptionKey := make([]byte, 32)
	_, err := rand.Read(encryptionKey)
	require.NoError(t, err)

	return &config.KeyConfig{
		KeyStore: config.KeyManagerTypeFile,
		KeyStoreFile: &config.KeyStoreFileConfig{
			Path:            filepath.Join(t.TempDir(), "keys.yml"),
			CreateIfMissing: true,
			EncryptionKey:   hex.EncodeToString(encryptionKey),
		},
	}
}

func managers(t *testing.T) map[string]keys.KeyManager {
	file, err := keys.NewFileKeyManager(fileKeyConfig(t), zap.NewNop())
	require.NoError(t, err)

	return map[string]keys.KeyManager{
		"inmem": keys.NewInMemoryKeyManager(),
		"file":  file,
	}
}

func TestKeyManager(t *testing.T) {
	for name, km := range managers(t) {
		t.Run(name, func(t *testing.T) {
			signer, err := km.CreateSigningKey("b", keys.KeyTypeEd448)
			require.NoError(t, err)
			_, err = km.CreateSigningKey("a", keys.KeyTypeEd448)
			require.NoError(t, err)

			_, err = km.CreateSigningKey("c", keys.KeyType(7))
			assert.True(t, errors.Is(err, keys.UnsupportedKeyTypeErr))

			message := []byte("sealed record")
			signature, err := signer.Sign(rand.Reader, message, crypto.Hash(0))
			require.NoError(t, err)

			raw, err := km.GetRawKey("b")
			require.NoError(t, err)
			assert.True(t, ed448.Verify(ed448.PublicKey(raw.PublicKey), message, signature, ""))

			loaded, err := km.GetSigningKey("b")
			require.NoError(t, err)
			assert.Equal(t, signer.Public(), loaded.Public())

			list, err := km.ListKeys()
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "a", list[0].Id)
			assert.Equal(t, "b", list[1].Id)

			require.NoError(t, km.DeleteKey("a"))
			_, err = km.GetRawKey("a")
			assert.True(t, errors.Is(err, keys.KeyNotFoundErr))
			assert.True(t, errors.Is(km.DeleteKey("a"), keys.KeyNotFoundErr))
		})
	}
}

func TestFileKeyManagerPersists(t *testing.T) {
	cfg := fileKeyConfig(t)
	km, err := keys.NewFileKeyManager(cfg, zap.NewNop())
	require.NoError(t, err)

	signer, err := km.CreateSigningKey("sealer", keys.KeyTypeEd448)
	require.NoError(t, err)

	reopened, err := keys.NewFileKeyManager(cfg, zap.NewNop())
	require.NoError(t, err)
	loaded, err := reopened.GetSigningKey("sealer")
	require.NoError(t, err)
	assert.Equal(t, signer.Public(), loaded.Public())

	cfg.KeyStoreFile.EncryptionKey = hex.EncodeToString(make([]byte, 32))
	wrongKey, err := keys.NewFileKeyManager(cfg, zap.NewNop())
	require.NoError(t, err)
	_, err = wrongKey.GetSigningKey("sealer")
	assert.Error(t, err)
}

func TestNewKeyManager(t *testing.T) {
	km, err := keys.NewKeyManager(
		&config.KeyConfig{KeyStore: config.KeyManagerTypeInMemory},
		zap.NewNop(),
	)
	require.NoError(t, err)
	assert.IsType(t, &keys.InMemoryKeyManager{}, km)

	_, err = keys.NewKeyManager(
		&config.KeyConfig{KeyStore: config.KeyManagerTypeFile},
		zap.NewNop(),
	)
	assert.Error(t, err)
}
