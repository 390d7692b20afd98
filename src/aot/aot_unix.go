//go:build !windows

package aot

import (
	"golang.org/x/sys/unix"
)

// executable verifies that the current user may execute the file at path.
func executable(path string) error {
	return unix.Access(path, unix.X_OK)
}
