package compression

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// NewReader wraps r so that reads return the decompressed content of
// the given Kind. None passes the stream through untouched. Closing
// the returned reader does not close r.
func NewReader(r io.Reader, kind Kind) (io.ReadCloser, error) {
	switch kind {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		gzipReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		return gzipReader, nil
	case Bzip2:
		bzip2Reader, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, fmt.Errorf("creating bzip2 reader: %w", err)
		}
		return bzip2Reader, nil
	case Xz:
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		return io.NopCloser(xzReader), nil
	case Zstd:
		zstdReader, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		return zstdReader.IOReadCloser(), nil
	case Lzma:
		lzmaReader, err := lzma.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating lzma reader: %w", err)
		}
		return io.NopCloser(lzmaReader), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

// NewWriter wraps w so that everything written to it is compressed
// with the given Kind. The returned writer must be closed to flush
// the stream; closing it does not close w.
func NewWriter(w io.Writer, kind Kind) (io.WriteCloser, error) {
	switch kind {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Bzip2:
		bzip2Writer, err := bzip2.NewWriter(w, &bzip2.WriterConfig{
			Level: bzip2.BestCompression,
		})
		if err != nil {
			return nil, fmt.Errorf("creating bzip2 writer: %w", err)
		}
		return bzip2Writer, nil
	case Xz:
		xzWriter, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("creating xz writer: %w", err)
		}
		return xzWriter, nil
	case Zstd:
		zstdWriter, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		return zstdWriter, nil
	case Lzma:
		lzmaWriter, err := lzma.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("creating lzma writer: %w", err)
		}
		return lzmaWriter, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
