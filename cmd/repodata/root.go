package repodata

import "github.com/spf13/cobra"

var Command = &cobra.Command{
	Use:   "repodata",
	Short: "repodata directory utilities",
}

func init() {
	Command.AddCommand(cleanCmd)
}
