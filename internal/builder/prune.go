package builder

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/djcass44/go-repomd/pkg/repomd"
	"github.com/go-logr/logr"
)

// Prune removes files from the repodata directory that are not
// referenced by the repomd.xml it contains. repomd.xml itself and
// subdirectories are never touched. The removed paths are returned.
func Prune(ctx context.Context, repodata string, dryRun bool) ([]string, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("repodata", repodata, "dryRun", dryRun)

	md, err := repomd.Open(ctx, filepath.Join(repodata, "repomd.xml"))
	if err != nil {
		return nil, err
	}
	keep := map[string]struct{}{"repomd.xml": {}}
	for _, rec := range md.Records() {
		keep[path.Base(rec.LocationHref)] = struct{}{}
	}

	entries, err := os.ReadDir(repodata)
	if err != nil {
		return nil, fmt.Errorf("reading repodata directory: %w", err)
	}
	var removed []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := keep[e.Name()]; ok {
			continue
		}
		p := filepath.Join(repodata, e.Name())
		log.V(1).Info("removing unreferenced file", "path", p)
		if !dryRun {
			if err := os.Remove(p); err != nil {
				return removed, fmt.Errorf("removing unreferenced file: %w", err)
			}
		}
		removed = append(removed, p)
	}
	log.Info("pruned repodata", "removed", len(removed))
	return removed, nil
}
