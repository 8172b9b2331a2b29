// Package outfile writes materialized output to its content-addressed path.
//
// Whoever wins the lock on the destination writes it; everyone else waits
// for the winner to finish and then treats the file as ready. Since the
// path is derived from the content, every concurrent writer of one path
// carries the same bytes, so skipping the write loses nothing.
package outfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"fortio.org/safecast"

	"expander/internal/lock"
)

// Mode selects how the lock holder replaces the file contents.
type Mode uint8

const (
	// ModeDefault resolves to ModeAtomic, or ModeInPlace on Windows where an
	// open file cannot be renamed over.
	ModeDefault Mode = iota
	// ModeAtomic writes a sibling temp file and renames it over the path.
	ModeAtomic
	// ModeInPlace truncates and rewrites the locked file itself.
	ModeInPlace
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeAtomic:
		return "atomic"
	case ModeInPlace:
		return "inplace"
	default:
		return "unknown"
	}
}

// ParseMode converts a string to Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ModeDefault, nil
	case "atomic":
		return ModeAtomic, nil
	case "inplace", "in-place":
		return ModeInPlace, nil
	default:
		return ModeDefault, fmt.Errorf("invalid write mode: %q (expected: atomic|inplace)", s)
	}
}

func (m Mode) resolve() Mode {
	if m != ModeDefault {
		return m
	}
	if runtime.GOOS == "windows" {
		return ModeInPlace
	}
	return ModeAtomic
}

// Outcome describes what a Write call did.
type Outcome struct {
	Written bool  // this call held the lock and wrote the file
	Waited  bool  // another writer held the lock; this call waited for it
	Size    int64 // bytes written (0 when Waited)
}

// Write materializes header followed by body at path.
func Write(path string, header, body []byte, mode Mode) (Outcome, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Outcome{}, fmt.Errorf("failed to create output dir: %w", err)
	}
	// #nosec G304 -- path is derived from the content digest
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return Outcome{}, err
	}
	defer f.Close()

	acquired, err := lock.TryLock(f)
	if err != nil {
		return Outcome{}, err
	}
	if !acquired {
		// Кто-то уже пишет те же байты: ждём, пока отпустит.
		if err := lock.Lock(f); err != nil {
			return Outcome{}, err
		}
		if err := lock.Unlock(f); err != nil {
			return Outcome{}, err
		}
		return Outcome{Waited: true}, nil
	}

	var size int64
	var writeErr error
	switch mode.resolve() {
	case ModeInPlace:
		size, writeErr = writeInPlace(f, header, body)
	default:
		size, writeErr = writeAtomic(path, header, body)
	}
	// Released before anything else touches the path.
	unlockErr := lock.Unlock(f)
	if writeErr != nil {
		return Outcome{}, writeErr
	}
	if unlockErr != nil {
		return Outcome{}, unlockErr
	}
	return Outcome{Written: true, Size: size}, nil
}

func writeInPlace(f *os.File, header, body []byte) (int64, error) {
	if err := f.Truncate(0); err != nil {
		return 0, fmt.Errorf("truncate %s: %w", f.Name(), err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek %s: %w", f.Name(), err)
	}
	if err := writeAll(f, header, body); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := checkSize(f.Name(), info.Size(), header, body); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func writeAtomic(path string, header, body []byte) (int64, error) {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := writeAll(tmp, header, body); err != nil {
		return 0, err
	}
	info, err := tmp.Stat()
	if err != nil {
		return 0, err
	}
	if err := checkSize(tmpName, info.Size(), header, body); err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	// CreateTemp создаёт 0600; итоговый файл должен читаться как обычный.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, err
	}
	committed = true
	return info.Size(), nil
}

func writeAll(f *os.File, header, body []byte) error {
	if len(header) > 0 {
		if _, err := f.Write(header); err != nil {
			return fmt.Errorf("write %s: %w", f.Name(), err)
		}
	}
	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("write %s: %w", f.Name(), err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", f.Name(), err)
	}
	return nil
}

func checkSize(name string, got int64, header, body []byte) error {
	want, err := safecast.Conv[int64](len(header) + len(body))
	if err != nil {
		return fmt.Errorf("%s: output too large: %w", name, err)
	}
	if got != want {
		return fmt.Errorf("%s: short write: %d of %d bytes", name, got, want)
	}
	return nil
}
