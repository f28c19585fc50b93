package compression

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// CompressFile compresses src into dst using the given Kind. The
// output is written to a temporary file alongside dst and renamed into
// place once complete, so dst is never left half-written.
func CompressFile(ctx context.Context, src, dst string, kind Kind) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("src", src, "dst", dst, "kind", kind)
	log.V(1).Info("compressing file")

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	tmp := filepath.Join(filepath.Dir(dst), fmt.Sprintf(".%s.tmp", uuid.NewString()))
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	// removal fails harmlessly once the file has been renamed
	defer os.Remove(tmp)

	if err := compressTo(out, in, kind); err != nil {
		_ = out.Close()
		log.Error(err, "failed to compress file")
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("moving compressed file into place: %w", err)
	}
	log.V(2).Info("compressed file")
	return nil
}

func compressTo(w io.Writer, r io.Reader, kind Kind) error {
	cw, err := NewWriter(w, kind)
	if err != nil {
		return err
	}
	if _, err := io.Copy(cw, r); err != nil {
		_ = cw.Close()
		return fmt.Errorf("writing compressed stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("finishing compressed stream: %w", err)
	}
	return nil
}
