package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/timelock"
)

func testConfigDir(t *testing.T) string {
	dir := t.TempDir()
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	cfg.VDF.DiscriminantBits = 128
	cfg.VDF.RSAModulusBits = 256
	cfg.DB.InMemory = false
	require.NoError(t, config.SaveConfig(dir, cfg))

	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", dir}, args...))
	solutionInput = ""
	solveBits = 0
	solveModulus = ""
	constructionName = ""

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEncryptDecryptCommands(t *testing.T) {
	dir := testConfigDir(t)

	out, err := run(t, dir, "encrypt", `{"x": 7, "t": 1000, "original_text": "hello"}`)
	require.NoError(t, err)

	record, err := timelock.ParseRecord([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 5, record.MessageLength)

	out, err = run(t, dir, "decrypt", out)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	out, err = run(t, dir, "records", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	id := strings.Split(out, "\t")[0]
	_, err = run(t, dir, "records", "get", id)
	require.NoError(t, err)

	_, err = run(t, dir, "records", "delete", id)
	require.NoError(t, err)
	_, err = run(t, dir, "records", "get", id)
	assert.Error(t, err)
}

func TestSolveAndDecryptWithSolution(t *testing.T) {
	dir := testConfigDir(t)

	sealed, err := run(t, dir, "encrypt", `{"x": "0x2a", "t": 300, "original_text": "later"}`)
	require.NoError(t, err)

	solution, err := run(t, testConfigDir(t), "solve", "42", "300")
	require.NoError(t, err)

	parsed := &timelock.Solution{}
	require.NoError(t, json.Unmarshal([]byte(solution), parsed))
	assert.NotEmpty(t, parsed.Proof)

	out, err := run(t, testConfigDir(t), "decrypt", sealed, "--solution", solution)
	require.NoError(t, err)
	assert.Equal(t, "later\n", out)

	out, err = run(t, testConfigDir(t), "verify", sealed)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestKeysCommands(t *testing.T) {
	dir := testConfigDir(t)

	out, err := run(t, dir, "keys", "create", "other")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "other\t"))

	out, err = run(t, dir, "keys", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "other\t")
}

func TestUnknownConstruction(t *testing.T) {
	_, err := run(t, testConfigDir(t), "--construction", "nope", "config", "show")
	assert.Error(t, err)

	out, err := run(t, testConfigDir(t), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "construction: wesolowski")
}
