package config

import (
	"fmt"

	"github.com/pkg/errors"
)

func GetMinimumVersion() []byte {
	return []byte{0x01, 0x00, 0x00}
}

func GetVersion() []byte {
	return []byte{0x01, 0x00, 0x00}
}

func GetVersionString() string {
	return FormatVersion(GetVersion())
}

// FormatVersion renders a three byte version, or four bytes with a patch
// number.
func FormatVersion(version []byte) string {
	if len(version) == 3 {
		return fmt.Sprintf(
			"%d.%d.%d",
			version[0], version[1], version[2],
		)
	} else {
		return fmt.Sprintf(
			"%d.%d.%d-p%d",
			version[0], version[1], version[2], version[3],
		)
	}
}

// IsCompatible reports whether a record written by the given version can be
// read by this build.
func IsCompatible(version []byte) bool {
	if len(version) < 3 {
		return false
	}

	minimum := GetMinimumVersion()
	current := GetVersion()
	for i := 0; i < 3; i++ {
		if version[i] != minimum[i] {
			if version[i] < minimum[i] {
				return false
			}

			break
		}
	}

	return version[0] == current[0]
}

// ParseVersion reads a version rendered by FormatVersion.
func ParseVersion(version string) ([]byte, error) {
	var major, minor, patch, p byte
	if n, err := fmt.Sscanf(
		version,
		"%d.%d.%d-p%d",
		&major, &minor, &patch, &p,
	); err == nil && n == 4 {
		return []byte{major, minor, patch, p}, nil
	}

	if _, err := fmt.Sscanf(
		version,
		"%d.%d.%d",
		&major, &minor, &patch,
	); err != nil {
		return nil, errors.Wrapf(err, "parse version %q", version)
	}

	if FormatVersion([]byte{major, minor, patch}) != version {
		return nil, errors.Errorf("parse version %q", version)
	}

	return []byte{major, minor, patch}, nil
}
