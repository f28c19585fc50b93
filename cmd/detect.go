package cmd

import (
	"fmt"

	"github.com/djcass44/go-repomd/pkg/compression"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect FILE...",
	Short: "print the compression of files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  detect,
}

func detect(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		kind, err := compression.Detect(cmd.Context(), path)
		if err != nil {
			return err
		}
		suffix, _ := kind.Suffix()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", path, kind, suffix)
	}
	return nil
}
