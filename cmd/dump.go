package cmd

import (
	"github.com/djcass44/go-repomd/pkg/repomd"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "re-emit a repomd.xml in canonical form",
	Args:  cobra.ExactArgs(1),
	RunE:  dump,
}

func dump(cmd *cobra.Command, args []string) error {
	md, err := repomd.Open(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return md.Write(cmd.OutOrStdout())
}
