package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/djcass44/go-repomd/internal/envutil"
	v1 "github.com/djcass44/go-repomd/pkg/api/v1"
	"github.com/djcass44/go-repomd/pkg/checksum"
	"github.com/djcass44/go-repomd/pkg/compression"
	"github.com/djcass44/go-repomd/pkg/repomd"
	"github.com/go-logr/logr"
)

const DefaultChecksum = checksum.SHA256

// Build indexes the records described by spec and writes
// OutputDir/repodata/repomd.xml. Uncompressed records are compressed
// into the repodata directory first when a compression is requested.
func Build(ctx context.Context, spec v1.BuildSpec) (*repomd.Repomd, error) {
	if err := envutil.ExpandAll(&spec.OutputDir, &spec.BaseURL, &spec.Revision); err != nil {
		return nil, err
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("outputDir", spec.OutputDir)

	sumType := DefaultChecksum
	if spec.Checksum != "" {
		var err error
		if sumType, err = checksum.Parse(spec.Checksum); err != nil {
			return nil, err
		}
	}
	defaultKind, err := parseCompression(spec.Compression)
	if err != nil {
		return nil, err
	}

	detector, err := newDetector(spec.Suffixes)
	if err != nil {
		return nil, err
	}

	repodata := filepath.Join(spec.OutputDir, "repodata")
	if err := os.MkdirAll(repodata, 0755); err != nil {
		return nil, fmt.Errorf("creating repodata directory: %w", err)
	}

	records := make([]*repomd.Record, 0, len(spec.Records))
	for _, r := range spec.Records {
		rec, err := prepare(ctx, detector, repodata, r, defaultKind)
		if err != nil {
			return nil, fmt.Errorf("preparing %s: %w", r.Type, err)
		}
		rec.LocationBase = spec.BaseURL
		records = append(records, rec)
	}

	log.Info("generating checksums", "records", len(records), "checksum", sumType, "workers", spec.Workers)
	if err := repomd.FillAll(ctx, records, sumType, spec.Workers, repomd.WithDetector(detector)); err != nil {
		return nil, err
	}

	md := repomd.New()
	if spec.Revision != "" {
		md.SetRevision(spec.Revision)
	}
	if spec.RepoID != nil {
		md.SetRepoID(spec.RepoID.ID, spec.RepoID.Type)
	}
	for _, tag := range spec.Tags.Content {
		md.AddContentTag(tag)
	}
	for _, tag := range spec.Tags.Repo {
		md.AddRepoTag(tag)
	}
	for _, tag := range spec.Tags.Distro {
		if tag.CPEID != "" {
			md.AddDistroTagWithCPEID(tag.CPEID, tag.Name)
		} else {
			md.AddDistroTag(tag.Name)
		}
	}
	for _, rec := range records {
		if spec.UniqueMDFilenames {
			if err := rec.RenameFile(ctx); err != nil {
				return nil, fmt.Errorf("renaming %s: %w", rec.Type, err)
			}
		}
		md.SetRecord(rec)
	}

	log.Info("writing repomd")
	if err := md.WriteFile(ctx, filepath.Join(repodata, "repomd.xml")); err != nil {
		return nil, err
	}
	return md, nil
}

func prepare(ctx context.Context, detector *compression.Detector, repodata string, r v1.Record, defaultKind compression.Kind) (*repomd.Record, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("type", r.Type)

	path := r.Path
	if err := envutil.ExpandAll(&path); err != nil {
		return nil, err
	}
	kind := defaultKind
	if r.Compression != "" {
		var err error
		if kind, err = parseCompression(r.Compression); err != nil {
			return nil, err
		}
	}

	if kind.Compressed() {
		detected, err := detector.Detect(ctx, path)
		if err != nil {
			return nil, err
		}
		if detected == compression.None {
			suffix, _ := kind.Suffix()
			dst := filepath.Join(repodata, filepath.Base(path)+suffix)
			if err := compression.CompressFile(ctx, path, dst, kind); err != nil {
				return nil, err
			}
			path = dst
		} else {
			log.V(1).Info("file is already compressed", "path", path, "kind", detected)
		}
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		if want, _ := filepath.Abs(repodata); abs != want {
			log.Info("warning: file is outside of the repodata directory", "path", path)
		}
	}

	rec := repomd.NewRecord(r.Type, path)
	if r.DatabaseVersion != nil {
		rec.SetDatabaseVersion(*r.DatabaseVersion)
	}
	return rec, nil
}

func newDetector(suffixes map[string]string) (*compression.Detector, error) {
	opts := make([]compression.Option, 0, len(suffixes))
	for suffix, name := range suffixes {
		kind, err := parseCompression(name)
		if err != nil {
			return nil, fmt.Errorf("suffix %s: %w", suffix, err)
		}
		opts = append(opts, compression.WithSuffix(suffix, kind))
	}
	return compression.NewDetector(opts...), nil
}

func parseCompression(s string) (compression.Kind, error) {
	if s == "" {
		return compression.None, nil
	}
	return compression.Parse(s)
}

// ParseRecord parses a "type=path" argument.
func ParseRecord(s string) (v1.Record, error) {
	typ, path, ok := strings.Cut(s, "=")
	if !ok || typ == "" || path == "" {
		return v1.Record{}, fmt.Errorf("expected type=path but got %q", s)
	}
	return v1.Record{Type: typ, Path: path}, nil
}

// ParseDistroTag parses a "cpeid,tag" or "tag" argument.
func ParseDistroTag(s string) v1.DistroTag {
	cpeid, tag, ok := strings.Cut(s, ",")
	if !ok {
		return v1.DistroTag{Name: s}
	}
	return v1.DistroTag{CPEID: cpeid, Name: tag}
}
