package compression

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-logr/logr"
)

// sniffLen is how much of a file is read to look for magic bytes.
const sniffLen = 3072

var mimeKinds = []struct {
	mime string
	kind Kind
}{
	{"application/gzip", Gzip},
	{"application/x-bzip2", Bzip2},
	{"application/x-xz", Xz},
	{"application/zstd", Zstd},
}

// lzma "alone" streams have no magic, only a 13 byte header:
// properties, little-endian dictionary size and uncompressed size.
// The range coder's first output byte is always zero.
const (
	lzmaHeaderLen = 13
	// lzmaMaxProps is (pb_max+1) * (lp_max+1) * (lc_max+1).
	lzmaMaxProps = 9 * 5 * 5
	// lzmaMaxSize bounds the uncompressed size of a stream that records
	// one, anything larger is treated as a random prefix.
	lzmaMaxSize = 1 << 48
)

var defaultSuffixes = map[string]Kind{
	".gz":     Gzip,
	".gzip":   Gzip,
	".gunzip": Gzip,
	".tgz":    Gzip,
	".bz2":    Bzip2,
	".bzip2":  Bzip2,
	".tbz2":   Bzip2,
	".xz":     Xz,
	".txz":    Xz,
	".zst":    Zstd,
	".zstd":   Zstd,
	".lzma":   Lzma,
	".tlz":    Lzma,
}

// Detector identifies the compression format of files. Magic bytes
// are authoritative; the suffix table is only consulted when the
// content does not match any known signature or cannot be read.
type Detector struct {
	suffixes map[string]Kind
}

type Option func(d *Detector)

// WithSuffix teaches the Detector an additional filename suffix. The
// suffix is matched case-insensitively against the final extension
// of a path.
func WithSuffix(suffix string, kind Kind) Option {
	return func(d *Detector) {
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		d.suffixes[strings.ToLower(suffix)] = kind
	}
}

func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		suffixes: make(map[string]Kind, len(defaultSuffixes)),
	}
	for k, v := range defaultSuffixes {
		d.suffixes[k] = v
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDetector = NewDetector()

// Detect identifies the compression format of the file at path using
// the default suffix table.
func Detect(ctx context.Context, path string) (Kind, error) {
	return defaultDetector.Detect(ctx, path)
}

// DetectSuffix classifies a filename by its extension alone using the
// default suffix table.
func DetectSuffix(path string) Kind {
	return defaultDetector.DetectSuffix(path)
}

// Detect reads the start of the file and matches it against known
// signatures, falling back to the suffix table. A file that does not
// exist is classified by name only.
func (d *Detector) Detect(ctx context.Context, path string) (Kind, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			kind := d.DetectSuffix(path)
			log.V(4).Info("file does not exist, using suffix", "kind", kind)
			return kind, nil
		}
		return Unknown, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	prefix := make([]byte, sniffLen)
	n, err := io.ReadFull(f, prefix)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Unknown, fmt.Errorf("reading file: %w", err)
	}

	if kind := DetectBytes(prefix[:n]); kind != None {
		log.V(4).Info("detected compression from content", "kind", kind)
		return kind, nil
	}
	kind := d.DetectSuffix(path)
	log.V(4).Info("no magic bytes matched, using suffix", "kind", kind)
	return kind, nil
}

// DetectSuffix returns the Kind registered for the final extension of
// path, or None.
func (d *Detector) DetectSuffix(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if kind, ok := d.suffixes[ext]; ok {
		return kind
	}
	return None
}

// DetectBytes matches a content prefix against known compression
// signatures. Anything unrecognised, including an empty prefix, is
// None.
func DetectBytes(prefix []byte) Kind {
	if len(prefix) == 0 {
		return None
	}
	for mtype := mimetype.Detect(prefix); mtype != nil; mtype = mtype.Parent() {
		for _, m := range mimeKinds {
			if mtype.Is(m.mime) {
				return m.kind
			}
		}
	}
	if isLzmaHeader(prefix) {
		return Lzma
	}
	return None
}

// isLzmaHeader validates the fields of an lzma "alone" header the way
// xz-utils does before it accepts a stream without a known suffix.
func isLzmaHeader(b []byte) bool {
	if len(b) <= lzmaHeaderLen {
		return false
	}
	if b[0] >= lzmaMaxProps {
		return false
	}
	// dictionary sizes are 2^n or 2^n + 2^(n-1), or "unknown"
	dict := binary.LittleEndian.Uint32(b[1:5])
	if dict != math.MaxUint32 {
		if dict < 4096 {
			return false
		}
		d := dict - 1
		d |= d >> 2
		d |= d >> 3
		d |= d >> 4
		d |= d >> 8
		d |= d >> 16
		if d+1 != dict {
			return false
		}
	}
	size := binary.LittleEndian.Uint64(b[5:lzmaHeaderLen])
	if size != math.MaxUint64 && size >= lzmaMaxSize {
		return false
	}
	return b[lzmaHeaderLen] == 0
}
