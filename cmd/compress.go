package cmd

import (
	"fmt"

	"github.com/djcass44/go-repomd/pkg/checksum"
	"github.com/djcass44/go-repomd/pkg/compression"
	"github.com/djcass44/go-repomd/pkg/repomd"
	"github.com/spf13/cobra"
)

var compressCmd = &cobra.Command{
	Use:   "compress FILE",
	Short: "compress a metadata file and print its checksums",
	Args:  cobra.ExactArgs(1),
	RunE:  compress,
}

const flagType = "type"

func init() {
	compressCmd.Flags().StringP(flagType, "t", "gz", "compression type (gz, bz2, xz, zstd, lzma)")
	compressCmd.Flags().String(flagChecksum, checksum.SHA256.String(), "checksum type")
}

func compress(cmd *cobra.Command, args []string) error {
	typeName, _ := cmd.Flags().GetString(flagType)
	sumName, _ := cmd.Flags().GetString(flagChecksum)

	kind, err := compression.Parse(typeName)
	if err != nil {
		return err
	}
	sumType, err := checksum.Parse(sumName)
	if err != nil {
		return err
	}

	rec, err := repomd.NewRecord("", args[0]).CompressAndFill(cmd.Context(), kind, sumType)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "path: %s\n", rec.LocationReal)
	_, _ = fmt.Fprintf(out, "checksum: %s %s\n", rec.Checksum.Type, rec.Checksum.Value)
	_, _ = fmt.Fprintf(out, "size: %d\n", *rec.Size)
	if rec.OpenChecksum != nil {
		_, _ = fmt.Fprintf(out, "open-checksum: %s %s\n", rec.OpenChecksum.Type, rec.OpenChecksum.Value)
		_, _ = fmt.Fprintf(out, "open-size: %d\n", *rec.OpenSize)
	}
	return nil
}
