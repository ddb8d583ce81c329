//go:build windows
// +build windows

package utils

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// GetDiskSpace returns the bytes available to the caller on the volume
// holding dir.
func GetDiskSpace(dir string) (uint64, error) {
	var freeBytesAvailable uint64
	var totalNumberOfBytes uint64
	var totalNumberOfFreeBytes uint64

	path, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, errors.Wrap(err, "get disk space")
	}

	if err := windows.GetDiskFreeSpaceEx(
		path,
		&freeBytesAvailable,
		&totalNumberOfBytes,
		&totalNumberOfFreeBytes,
	); err != nil {
		return 0, errors.Wrap(err, "get disk space")
	}

	return freeBytesAvailable, nil
}
