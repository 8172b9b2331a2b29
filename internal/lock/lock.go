// Package lock provides the advisory exclusive lock that serializes writers
// of one destination file.
//
// The lock covers a fixed byte range at the start of the file and belongs to
// the open file, not to the process: two handles opened on the same path
// contend with each other even inside one process. Contention is not an
// error; TryLock reports it as (false, nil).
package lock

import (
	"fmt"
	"os"
)

const (
	rangeStart = 0
	rangeLen   = 1
)

// TryLock attempts a non-blocking exclusive lock on f.
func TryLock(f *os.File) (bool, error) {
	ok, err := tryLock(f)
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", f.Name(), err)
	}
	return ok, nil
}

// Lock blocks until the exclusive lock on f is acquired.
func Lock(f *os.File) error {
	if err := lock(f); err != nil {
		return fmt.Errorf("lock %s: %w", f.Name(), err)
	}
	return nil
}

// Unlock releases a lock taken by TryLock or Lock.
func Unlock(f *os.File) error {
	if err := unlock(f); err != nil {
		return fmt.Errorf("unlock %s: %w", f.Name(), err)
	}
	return nil
}
