package syncer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Validation failure reasons. These skip the affected mapping only; the run
// continues.
var (
	ErrSourceMissing          = errors.New("source does not exist")
	ErrSourceNotReadable      = errors.New("source is not readable")
	ErrDestinationNotWritable = errors.New("destination parent is not writable")
)

// ValidatePaths performs the read-only preconditions for one transfer:
// src must exist and be readable, and the nearest existing ancestor of
// dst's parent must be writable.
func ValidatePaths(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if err := unix.Access(src, unix.R_OK); err != nil {
		return fmt.Errorf("%w: %s", ErrSourceNotReadable, src)
	}
	parent := nearestExisting(filepath.Dir(dst))
	if err := unix.Access(parent, unix.W_OK); err != nil {
		return fmt.Errorf("%w: %s", ErrDestinationNotWritable, parent)
	}
	return nil
}

// nearestExisting walks up from path to the first ancestor that exists.
func nearestExisting(path string) string {
	for {
		if _, err := os.Lstat(path); err == nil {
			return path
		}
		up := filepath.Dir(path)
		if up == path {
			return path
		}
		path = up
	}
}
