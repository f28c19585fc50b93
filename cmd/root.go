package cmd

import (
	"os"

	"github.com/djcass44/go-repomd/cmd/repodata"
	"github.com/djcass44/go-utils/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var command = &cobra.Command{
	Use:   "repomd",
	Short: "generate and inspect repomd.xml indexes",
	Long: `repomd writes the repodata/repomd.xml index of a yum/dnf repository.

Metadata files (primary, filelists, other, updateinfo, ...) are checksummed
both as stored and after decompression, optionally compressed and renamed
to "<checksum>-<name>", and recorded in a byte-stable repomd.xml.`,
	Example: `  repomd build -o ./repo --compress-type xz --unique-md-filenames \
    primary=primary.xml filelists=filelists.xml other=other.xml
  repomd detect repodata/*.xz
  repomd dump repodata/repomd.xml
  repomd repodata clean ./repo`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel, _ := cmd.Flags().GetInt(flagLogLevel)

		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.Level(logLevel * -1))

		_, ctx := logging.NewZap(cmd.Context(), zc)
		cmd.SetContext(ctx)
	},
}

const flagLogLevel = "v"

func init() {
	command.PersistentFlags().Int(flagLogLevel, 0, "log verbosity (0 to 4). Higher is more")
	command.AddCommand(buildCmd, detectCmd, compressCmd, dumpCmd, repodata.Command)
}

func Execute(version string) {
	command.Version = version
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
