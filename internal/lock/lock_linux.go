//go:build linux

package lock

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Open file description locks: per-handle like flock(2), byte ranges like
// POSIX record locks.

func flockT(typ int16) unix.Flock_t {
	return unix.Flock_t{
		Type:   typ,
		Whence: io.SeekStart,
		Start:  rangeStart,
		Len:    rangeLen,
	}
}

func tryLock(f *os.File) (bool, error) {
	lk := flockT(unix.F_WRLCK)
	err := unix.FcntlFlock(f.Fd(), unix.F_OFD_SETLK, &lk)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EACCES):
		return false, nil
	default:
		return false, err
	}
}

func lock(f *os.File) error {
	lk := flockT(unix.F_WRLCK)
	for {
		err := unix.FcntlFlock(f.Fd(), unix.F_OFD_SETLKW, &lk)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}

func unlock(f *os.File) error {
	lk := flockT(unix.F_UNLCK)
	return unix.FcntlFlock(f.Fd(), unix.F_OFD_SETLK, &lk)
}
