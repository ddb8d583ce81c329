package config

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMinimumVersion(t *testing.T) {
	minVersion := GetMinimumVersion()

	assert.Equal(t, 3, len(minVersion), "Expected version to have exactly 3 bytes; got %v", len(minVersion))

	version := GetVersion()

	assert.GreaterOrEqual(t, version[0], minVersion[0])

	if minVersion[0] == version[0] {
		assert.GreaterOrEqual(t, version[1], minVersion[1])

		if minVersion[1] == version[1] {
			assert.GreaterOrEqual(t, version[2], minVersion[2])
		}
	}
}

func TestGetVersionString(t *testing.T) {
	version := GetVersionString()

	versionRegexp := regexp.MustCompile("[0-9]+\\.[0-9]+\\.[0-9]+")

	assert.Regexp(t, versionRegexp, version)
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "1.4.12", FormatVersion([]byte{1, 4, 12}))
	assert.Equal(t, "1.4.12-p2", FormatVersion([]byte{1, 4, 12, 2}))
}

func TestIsCompatible(t *testing.T) {
	assert.True(t, IsCompatible(GetVersion()))
	assert.True(t, IsCompatible([]byte{1, 0, 7}))
	assert.False(t, IsCompatible([]byte{0, 9, 0}))
	assert.False(t, IsCompatible([]byte{2, 0, 0}))
	assert.False(t, IsCompatible([]byte{1}))
}

func TestParseVersion(t *testing.T) {
	version, err := ParseVersion("1.4.12")
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 4, 12}, version)

	version, err = ParseVersion("1.4.12-p2")
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 4, 12, 2}, version)

	_, err = ParseVersion("1.4")
	assert.Error(t, err)

	_, err = ParseVersion("1.4.12x")
	assert.Error(t, err)

	_, err = ParseVersion("1.4.300")
	assert.Error(t, err)
}
