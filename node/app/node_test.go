package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/timelock"
)

func TestNewNode(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	cfg.VDF.DiscriminantBits = 128
	cfg.LogFile = filepath.Join(dir, "node.log")

	node, cleanup, err := NewNode(cfg)
	require.NoError(t, err)
	defer cleanup()

	node.Start(context.Background())

	ctx := context.Background()
	x := &timelock.Integer{}
	x.SetInt64(3)
	record, err := node.Service().Encrypt(ctx, &timelock.EncryptRequest{
		X:            x,
		T:            50,
		OriginalText: "wired",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.Signature)

	plaintext, err := node.Service().Decrypt(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, "wired", string(plaintext))

	ids, _, err := node.Service().Records()
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestNewKVDB(t *testing.T) {
	db, cleanup, err := newKVDB(&config.DBConfig{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Set([]byte("k"), []byte("v")))
	cleanup()

	db, cleanup, err = newKVDB(&config.DBConfig{Path: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Set([]byte("k"), []byte("v")))
	cleanup()
}

func TestNodeKeyManager(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	node, cleanup, err := NewNode(cfg)
	require.NoError(t, err)
	defer cleanup()

	list, err := node.KeyManager().ListKeys()
	require.NoError(t, err)
	assert.Empty(t, list)
}
