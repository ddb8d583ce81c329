package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDiskSpace(t *testing.T) {
	space, err := GetDiskSpace(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, space, uint64(0))

	_, err = GetDiskSpace("/does/not/exist")
	assert.Error(t, err)
}
