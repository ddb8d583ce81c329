package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/vdf"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, config.KeyManagerTypeFile, cfg.Key.KeyStore)
	assert.Len(t, cfg.Key.KeyStoreFile.EncryptionKey, 64)
	assert.Equal(t, filepath.Join(dir, "store"), cfg.DB.Path)
	assert.Equal(t, vdf.DefaultConstruction, cfg.VDF.Construction)
	assert.Equal(t, uint32(vdf.DefaultDiscriminantBits), cfg.VDF.DiscriminantBits)
	require.NoError(t, cfg.VDF.Validate())

	keys, err := os.ReadFile(filepath.Join(dir, "keys.yml"))
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(keys))

	cfg.VDF.DiscriminantBits = 1024
	cfg.LogFile = "timelock.log"
	require.NoError(t, config.SaveConfig(dir, cfg))

	again, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), again.VDF.DiscriminantBits)
	assert.Equal(t, "timelock.log", again.LogFile)
	assert.Equal(t, cfg.Key.KeyStoreFile.EncryptionKey, again.Key.KeyStoreFile.EncryptionKey)
}

func TestLoadConfigNotDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

func TestKeyManagerTypeText(t *testing.T) {
	out, err := yaml.Marshal(&config.KeyConfig{KeyStore: config.KeyManagerTypeInMemory})
	require.NoError(t, err)
	assert.Contains(t, string(out), "keyManagerType: mem")

	var parsed config.KeyConfig
	require.NoError(t, yaml.Unmarshal([]byte("keyManagerType: file\n"), &parsed))
	assert.Equal(t, config.KeyManagerTypeFile, parsed.KeyStore)

	assert.Error(t, yaml.Unmarshal([]byte("keyManagerType: pkcs11\n"), &parsed))
}

func TestVDFConfigValidate(t *testing.T) {
	c := config.DefaultVDFConfig()
	c.Construction = "sloth"
	assert.True(t, errors.Is(c.Validate(), vdf.ErrUnknownConstruction))

	c = config.DefaultVDFConfig()
	c.DiscriminantBits = 16
	assert.True(t, errors.Is(c.Validate(), vdf.ErrInvalidParams))
}
