//go:build !windows
// +build !windows

package utils

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// GetDiskSpace returns the bytes available to unprivileged users on the
// filesystem holding dir.
func GetDiskSpace(dir string) (uint64, error) {
	var stat unix.Statfs_t

	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, errors.Wrap(err, "get disk space")
	}

	return stat.Bavail * uint64(stat.Bsize), nil
}
