package repodata

import (
	"fmt"
	"path/filepath"

	"github.com/djcass44/go-repomd/internal/builder"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [DIR]",
	Short: "Removes metadata files that repomd.xml no longer references",
	Args:  cobra.MaximumNArgs(1),
	RunE:  clean,
}

const (
	flagDryRun = "dry-run"
)

func init() {
	cleanCmd.Flags().Bool(flagDryRun, false, "only print the files that would be removed")
}

func clean(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool(flagDryRun)

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	removed, err := builder.Prune(cmd.Context(), filepath.Join(filepath.Clean(dir), "repodata"), dryRun)
	if err != nil {
		return err
	}
	for _, p := range removed {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
