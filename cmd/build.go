package cmd

import (
	"fmt"
	"os"

	"github.com/djcass44/go-repomd/internal/builder"
	v1 "github.com/djcass44/go-repomd/pkg/api/v1"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/yaml"
)

var buildCmd = &cobra.Command{
	Use:   "build [type=path...]",
	Short: "generate repodata/repomd.xml from metadata files",
	RunE:  build,
}

const (
	flagConfig            = "config"
	flagOutputDir         = "outputdir"
	flagCompressType      = "compress-type"
	flagUniqueMDFilenames = "unique-md-filenames"
	flagRevision          = "revision"
	flagRepoID            = "repoid"
	flagRepoIDType        = "repoid-type"
	flagDistro            = "distro"
	flagContent           = "content"
	flagRepo              = "repo"
	flagBaseURL           = "baseurl"
	flagChecksum          = "checksum"
	flagWorkers           = "workers"
	flagSuffix            = "suffix"
)

func init() {
	buildCmd.Flags().StringP(flagConfig, "c", "", "path to a build configuration file")
	buildCmd.Flags().StringP(flagOutputDir, "o", "", "directory that contains (or will contain) repodata/")
	buildCmd.Flags().String(flagCompressType, "", "compress uncompressed metadata files (gz, bz2, xz, zstd, lzma)")
	buildCmd.Flags().Bool(flagUniqueMDFilenames, false, "prefix metadata filenames with their checksum")
	buildCmd.Flags().String(flagRevision, "", "user-specified revision (defaults to the current time)")
	buildCmd.Flags().String(flagRepoID, "", "repository identifier")
	buildCmd.Flags().String(flagRepoIDType, "", "checksum type of the repository identifier")
	buildCmd.Flags().StringArray(flagDistro, nil, "distro tag as 'cpeid,tag' or 'tag'")
	buildCmd.Flags().StringArray(flagContent, nil, "content tag")
	buildCmd.Flags().StringArray(flagRepo, nil, "repo tag")
	buildCmd.Flags().String(flagBaseURL, "", "base URL written as xml:base on every location")
	buildCmd.Flags().String(flagChecksum, "", "checksum type (md5, sha1, sha224, sha256, sha384, sha512)")
	buildCmd.Flags().Int(flagWorkers, 0, "number of files checksummed in parallel (0 means unlimited)")
	buildCmd.Flags().StringToString(flagSuffix, nil, "extra filename suffix to compression mapping (e.g. .foo1=gz)")

	_ = buildCmd.MarkFlagFilename(flagConfig, ".yaml", ".yml", ".json")
	_ = buildCmd.MarkFlagDirname(flagOutputDir)
	buildCmd.MarkFlagsRequiredTogether(flagRepoID, flagRepoIDType)
}

func build(cmd *cobra.Command, args []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	configPath, _ := cmd.Flags().GetString(flagConfig)

	var spec v1.BuildSpec
	if configPath != "" {
		cfg, err := readConfig(configPath)
		if err != nil {
			return err
		}
		log.V(1).Info("read build configuration", "path", configPath, "name", cfg.Name)
		spec = cfg.Spec
	}

	// flags override the configuration file
	flags := cmd.Flags()
	if flags.Changed(flagOutputDir) {
		spec.OutputDir, _ = flags.GetString(flagOutputDir)
	}
	if flags.Changed(flagCompressType) {
		spec.Compression, _ = flags.GetString(flagCompressType)
	}
	if flags.Changed(flagUniqueMDFilenames) {
		spec.UniqueMDFilenames, _ = flags.GetBool(flagUniqueMDFilenames)
	}
	if flags.Changed(flagRevision) {
		spec.Revision, _ = flags.GetString(flagRevision)
	}
	if flags.Changed(flagRepoID) {
		id, _ := flags.GetString(flagRepoID)
		typ, _ := flags.GetString(flagRepoIDType)
		spec.RepoID = &v1.RepoID{ID: id, Type: typ}
	}
	if flags.Changed(flagBaseURL) {
		spec.BaseURL, _ = flags.GetString(flagBaseURL)
	}
	if flags.Changed(flagChecksum) {
		spec.Checksum, _ = flags.GetString(flagChecksum)
	}
	if flags.Changed(flagWorkers) {
		spec.Workers, _ = flags.GetInt(flagWorkers)
	}
	suffixes, _ := flags.GetStringToString(flagSuffix)
	if len(suffixes) > 0 && spec.Suffixes == nil {
		spec.Suffixes = map[string]string{}
	}
	for k, v := range suffixes {
		spec.Suffixes[k] = v
	}
	content, _ := flags.GetStringArray(flagContent)
	spec.Tags.Content = append(spec.Tags.Content, content...)
	repos, _ := flags.GetStringArray(flagRepo)
	spec.Tags.Repo = append(spec.Tags.Repo, repos...)
	distros, _ := flags.GetStringArray(flagDistro)
	for _, d := range distros {
		spec.Tags.Distro = append(spec.Tags.Distro, builder.ParseDistroTag(d))
	}
	for _, arg := range args {
		rec, err := builder.ParseRecord(arg)
		if err != nil {
			return err
		}
		spec.Records = append(spec.Records, rec)
	}

	if spec.OutputDir == "" {
		spec.OutputDir = "."
	}
	if len(spec.Records) == 0 {
		return fmt.Errorf("no metadata files given")
	}

	md, err := builder.Build(cmd.Context(), spec)
	if err != nil {
		return err
	}
	for _, rec := range md.Records() {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.Type, rec.LocationHref)
	}
	return nil
}

func readConfig(s string) (v1.Build, error) {
	f, err := os.Open(s)
	if err != nil {
		return v1.Build{}, err
	}
	defer f.Close()

	var config v1.Build
	if err := yaml.NewYAMLOrJSONDecoder(f, 4).Decode(&config); err != nil {
		return v1.Build{}, fmt.Errorf("decoding %s: %w", s, err)
	}
	return config, nil
}
