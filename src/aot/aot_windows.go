//go:build windows

package aot

import (
	"os"
)

// executable verifies that the file at path exists and is a regular file.
// Windows has no execute permission bit worth probing.
func executable(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return os.ErrInvalid
	}
	return nil
}
