package repomd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/djcass44/go-repomd/pkg/checksum"
	"github.com/djcass44/go-repomd/pkg/compression"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

// ErrNotFilled is returned by operations that need the checksum of a
// Record before Fill has computed it.
var ErrNotFilled = errors.New("record has not been filled")

// Checksum is a digest as it appears in repomd.xml.
type Checksum struct {
	Type  string
	Value string
}

// Record describes a single metadata file referenced by repomd.xml.
//
// Optional values are pointers so that "not measured" can be told
// apart from zero. LocationReal is never written to repomd.xml.
type Record struct {
	Type string

	LocationReal string
	LocationHref string
	LocationBase string

	Checksum     *Checksum
	OpenChecksum *Checksum

	Timestamp       *int64
	Size            *int64
	OpenSize        *int64
	DatabaseVersion *int64
}

// NewRecord creates a Record of the given type backed by the file at
// path.
func NewRecord(typ, path string) *Record {
	return &Record{
		Type:         typ,
		LocationReal: path,
	}
}

func (r *Record) SetTimestamp(ts int64) {
	r.Timestamp = &ts
}

func (r *Record) SetDatabaseVersion(v int64) {
	r.DatabaseVersion = &v
}

type fillOptions struct {
	detector *compression.Detector
}

type FillOption func(o *fillOptions)

// WithDetector sets the Detector used to decide whether the file
// backing a record is compressed.
func WithDetector(d *compression.Detector) FillOption {
	return func(o *fillOptions) {
		if d != nil {
			o.detector = d
		}
	}
}

func newFillOptions(opts []FillOption) fillOptions {
	o := fillOptions{detector: compression.NewDetector()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Fill reads the file backing the record and populates its checksums,
// sizes, timestamp and href. The open checksum and size are only set
// when the file is compressed. A timestamp or href set by the caller
// is kept. The record is left untouched if any step fails.
//
// Compression is detected with the default suffix table unless
// WithDetector is given.
func (r *Record) Fill(ctx context.Context, t checksum.Type, opts ...FillOption) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("type", r.Type, "path", r.LocationReal)
	log.V(1).Info("filling record")

	if r.LocationReal == "" {
		return fmt.Errorf("record %q has no file", r.Type)
	}
	fi, err := os.Stat(r.LocationReal)
	if err != nil {
		return err
	}
	kind, err := newFillOptions(opts).detector.Detect(ctx, r.LocationReal)
	if err != nil {
		return err
	}
	raw, err := checksum.File(ctx, r.LocationReal, t)
	if err != nil {
		return err
	}
	var open *checksum.Stat
	if kind.Compressed() {
		open, err = checksum.Decompressed(ctx, r.LocationReal, t, kind)
		if err != nil {
			return err
		}
	}

	r.Checksum = &Checksum{Type: raw.Type.String(), Value: raw.Digest}
	r.Size = &raw.Size
	r.OpenChecksum = nil
	r.OpenSize = nil
	if open != nil {
		r.OpenChecksum = &Checksum{Type: open.Type.String(), Value: open.Digest}
		r.OpenSize = &open.Size
	}
	if r.Timestamp == nil {
		r.SetTimestamp(fi.ModTime().Unix())
	}
	if r.LocationHref == "" {
		r.LocationHref = path.Join("repodata", filepath.Base(r.LocationReal))
	}
	log.V(2).Info("filled record", "compression", kind, "checksum", raw.Digest, "size", raw.Size)
	return nil
}

// RenameFile renames the backing file to "<checksum>-<name>" and
// updates the record's locations to match. A checksum prefix left by
// an earlier rename is replaced rather than stacked. Renaming never
// overwrites an existing file.
func (r *Record) RenameFile(ctx context.Context) error {
	if r.Checksum == nil || r.Checksum.Value == "" {
		return fmt.Errorf("renaming %q: %w", r.Type, ErrNotFilled)
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("type", r.Type, "path", r.LocationReal)

	dir, base := filepath.Split(r.LocationReal)
	name := r.Checksum.Value + "-" + trimChecksumPrefix(base, len(r.Checksum.Value))
	dst := filepath.Join(dir, name)

	if dst != filepath.Clean(r.LocationReal) {
		log.V(1).Info("renaming file", "dst", dst)
		if err := renameNoReplace(r.LocationReal, dst); err != nil {
			return err
		}
	}

	r.LocationReal = dst
	if r.LocationHref == "" {
		r.LocationHref = path.Join("repodata", name)
	} else {
		r.LocationHref = path.Join(path.Dir(r.LocationHref), name)
	}
	return nil
}

// CompressAndFill compresses the record's file next to itself using
// the suffix of kind and returns a new, filled Record describing the
// compressed copy. The receiver is not modified.
func (r *Record) CompressAndFill(ctx context.Context, kind compression.Kind, t checksum.Type, opts ...FillOption) (*Record, error) {
	suffix, ok := kind.Suffix()
	if !ok {
		return nil, fmt.Errorf("%w: %s", compression.ErrUnsupported, kind)
	}
	dst := r.LocationReal + suffix
	if err := compression.CompressFile(ctx, r.LocationReal, dst, kind); err != nil {
		return nil, err
	}

	out := NewRecord(r.Type, dst)
	out.LocationBase = r.LocationBase
	if r.LocationHref != "" {
		out.LocationHref = r.LocationHref + suffix
	}
	if r.Timestamp != nil {
		out.SetTimestamp(*r.Timestamp)
	}
	if r.DatabaseVersion != nil {
		out.SetDatabaseVersion(*r.DatabaseVersion)
	}
	if err := out.Fill(ctx, t, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// FillAll fills each record concurrently using at most workers
// goroutines (unbounded when workers < 1). The first failure cancels
// the records that have not started yet.
func FillAll(ctx context.Context, records []*Record, t checksum.Type, workers int, opts ...FillOption) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := rec.Fill(ctx, t, opts...); err != nil {
				return fmt.Errorf("filling %s: %w", rec.Type, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// renameNoReplace moves src to dst, failing with fs.ErrExist if dst
// already exists. A hard link claims dst atomically; filesystems
// without hard links get a check followed by a plain rename.
func renameNoReplace(src, dst string) error {
	err := os.Link(src, dst)
	switch {
	case err == nil:
		return os.Remove(src)
	case errors.Is(err, fs.ErrExist), errors.Is(err, fs.ErrNotExist):
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		return &fs.PathError{Op: "rename", Path: dst, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}

// trimChecksumPrefix removes a leading "<hex>-" of exactly n hex
// digits from name.
func trimChecksumPrefix(name string, n int) string {
	if len(name) <= n+1 || name[n] != '-' {
		return name
	}
	for _, c := range name[:n] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return name
		}
	}
	return name[n+1:]
}
