//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd && !windows

package lock

import (
	"errors"
	"os"
)

func tryLock(*os.File) (bool, error) { return false, errors.ErrUnsupported }

func lock(*os.File) error { return errors.ErrUnsupported }

func unlock(*os.File) error { return errors.ErrUnsupported }
