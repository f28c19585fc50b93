package checksum

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/djcass44/go-repomd/pkg/compression"
	"github.com/go-logr/logr"
)

// ErrFormat indicates that a compressed stream could not be decoded.
var ErrFormat = errors.New("corrupt compressed stream")

// bufferSize bounds how much of a file is held in memory at once.
const bufferSize = 128 * 1024

// Stat is the digest and length of a stream.
type Stat struct {
	Type   Type
	Digest string
	Size   int64
}

type options struct {
	detector *compression.Detector
}

type Option func(o *options)

// WithDetector sets the Detector used when Decompressed is asked to
// detect the compression itself.
func WithDetector(d *compression.Detector) Option {
	return func(o *options) {
		if d != nil {
			o.detector = d
		}
	}
}

// Reader consumes r and returns its digest and length.
func Reader(r io.Reader, t Type) (*Stat, error) {
	h, err := t.New()
	if err != nil {
		return nil, err
	}
	n, err := io.CopyBuffer(h, r, make([]byte, bufferSize))
	if err != nil {
		return nil, err
	}
	return &Stat{
		Type:   t,
		Digest: hex.EncodeToString(h.Sum(nil)),
		Size:   n,
	}, nil
}

// File returns the digest and length of the file at path as it is
// stored on disk.
func File(ctx context.Context, path string, t Type) (*Stat, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path, "type", t)

	if _, err := t.New(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := Reader(f, t)
	if err != nil {
		log.Error(err, "failed to read file")
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	log.V(3).Info("computed checksum", "digest", stat.Digest, "size", stat.Size)
	return stat, nil
}

// Decompressed returns the digest and length of the decompressed
// content of the file at path. If kind is AutoDetect the format is
// detected first. A nil Stat is returned when the file is not
// compressed.
//
// Failures to read the file are returned as-is while failures to
// decode it wrap ErrFormat.
func Decompressed(ctx context.Context, path string, t Type, kind compression.Kind, opts ...Option) (*Stat, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path, "type", t)

	if _, err := t.New(); err != nil {
		return nil, err
	}
	if kind == compression.AutoDetect {
		o := options{detector: compression.NewDetector()}
		for _, opt := range opts {
			opt(&o)
		}
		var err error
		kind, err = o.detector.Detect(ctx, path)
		if err != nil {
			return nil, err
		}
	}
	if kind == compression.None {
		log.V(4).Info("skipping open checksum of uncompressed file")
		return nil, nil
	}
	if !kind.Compressed() {
		return nil, fmt.Errorf("%w: %s", compression.ErrUnsupported, kind)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src := &trackingReader{r: f}
	r, err := compression.NewReader(src, kind)
	if err != nil {
		return nil, classify(path, src, err)
	}
	defer r.Close()

	stat, err := Reader(r, t)
	if err != nil {
		log.Error(err, "failed to decompress file", "kind", kind)
		return nil, classify(path, src, err)
	}
	log.V(3).Info("computed open checksum", "digest", stat.Digest, "size", stat.Size, "kind", kind)
	return stat, nil
}

// classify separates errors raised by the file itself from errors
// raised by the decoder.
func classify(path string, src *trackingReader, err error) error {
	if src.err != nil && !errors.Is(src.err, io.EOF) {
		return fmt.Errorf("reading %s: %w", path, src.err)
	}
	return fmt.Errorf("decompressing %s: %w: %w", path, ErrFormat, err)
}

// trackingReader remembers the last error returned by the underlying
// reader.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
