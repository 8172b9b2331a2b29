// Package digest fingerprints materialized output and derives the
// content-addressed file name it is stored under.
package digest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/text/unicode/norm"
)

// Digest - 256-битный keyed BLAKE3 от байтов, которые попадут в файл.
type Digest [32]byte

// SuffixBytes is how much of the digest ends up in a file name.
// 6 bytes = 12 hex chars = 48 bits.
const SuffixBytes = 6

// outputDomainKey is the BLAKE3 key for output fingerprints: the ASCII
// domain name zero-padded to 32 bytes. Changing it renames every file.
var outputDomainKey = [32]byte{
	'e', 'x', 'p', 'a', 'n', 'd', 'e', 'r', '.', 'o', 'u', 't', 'p', 'u', 't',
}

// ErrInvalidName reports a base name that cannot be used as a file name.
var ErrInvalidName = errors.New("invalid base name")

// Sum hashes the given parts in order as one continuous byte stream.
func Sum(parts ...[]byte) Digest {
	// NewKeyed only fails on a key of the wrong length.
	h, err := blake3.NewKeyed(outputDomainKey[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Suffix returns the leading SuffixBytes of d as lowercase hex.
func Suffix(d Digest) string {
	return hex.EncodeToString(d[:SuffixBytes])
}

// Name builds "<base>-<suffix>.<ext>". An empty ext yields no dot.
func Name(base string, d Digest, ext string) string {
	name := base + "-" + Suffix(d)
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// CleanBase normalizes a logical base name to NFC and rejects names that
// would escape the output directory or are not usable as a file name.
func CleanBase(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	switch {
	case name == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\"):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.IndexByte(name, 0) >= 0:
		return "", fmt.Errorf("%w: %q contains NUL", ErrInvalidName, name)
	}
	return name, nil
}

// Format returns the full hex encoding of d.
func Format(d Digest) string {
	return hex.EncodeToString(d[:])
}

// Parse decodes a 64-character hex digest.
func Parse(s string) (Digest, error) {
	var d Digest
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(d) {
		return d, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(d))
	}
	copy(d[:], decoded)
	return d, nil
}
