package compression

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned when a codec is requested for a Kind
// that does not describe a concrete compression format.
var ErrUnsupported = errors.New("unsupported compression kind")

// Kind identifies the compression format of a file.
//
// AutoDetect and Unknown are request/response sentinels and None means
// the content was verified to be uncompressed. Every other Kind is a
// compressing format with exactly one canonical suffix.
type Kind int

const (
	AutoDetect Kind = iota
	Unknown
	None
	Gzip
	Bzip2
	Xz
	Zstd
	Lzma
)

var suffixes = map[Kind]string{
	Gzip:  ".gz",
	Bzip2: ".bz2",
	Xz:    ".xz",
	Zstd:  ".zst",
	Lzma:  ".lzma",
}

var names = map[Kind]string{
	AutoDetect: "auto",
	Unknown:    "unknown",
	None:       "none",
	Gzip:       "gz",
	Bzip2:      "bz2",
	Xz:         "xz",
	Zstd:       "zstd",
	Lzma:       "lzma",
}

var aliases = map[string]Kind{
	"none":  None,
	"gz":    Gzip,
	"gzip":  Gzip,
	"bz2":   Bzip2,
	"bzip2": Bzip2,
	"xz":    Xz,
	"zst":   Zstd,
	"zstd":  Zstd,
	"lzma":  Lzma,
}

// Suffix returns the canonical filename suffix (including the leading
// dot) for a compressing Kind. The second return value is false for
// the sentinels, None and any out-of-range value.
func (k Kind) Suffix() (string, bool) {
	s, ok := suffixes[k]
	return s, ok
}

// Compressed reports whether k is a data-bearing compression format.
func (k Kind) Compressed() bool {
	_, ok := suffixes[k]
	return ok
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Parse converts a user-facing compression name (e.g. "gz", "xz")
// into a Kind.
func Parse(s string) (Kind, error) {
	k, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Unknown, fmt.Errorf("unknown compression type %q", s)
	}
	return k, nil
}
