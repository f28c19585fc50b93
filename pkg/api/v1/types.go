package v1

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

type BuildSpec struct {
	// OutputDir is the repository root. repomd.xml and any
	// compressed metadata are written to OutputDir/repodata.
	OutputDir string  `json:"outputDir,omitempty"`
	Revision  string  `json:"revision,omitempty"`
	RepoID    *RepoID `json:"repoid,omitempty"`
	// Checksum is the digest algorithm (e.g. sha256).
	Checksum string `json:"checksum,omitempty"`
	// Compression is applied to every uncompressed record that does
	// not set its own.
	Compression string `json:"compression,omitempty"`
	// Suffixes maps extra filename suffixes to a compression name for
	// files whose content has no recognisable signature.
	Suffixes          map[string]string `json:"suffixes,omitempty"`
	UniqueMDFilenames bool              `json:"uniqueMdFilenames,omitempty"`
	BaseURL           string            `json:"baseurl,omitempty"`
	Workers           int               `json:"workers,omitempty"`
	Tags              Tags              `json:"tags,omitempty"`
	Records           []Record          `json:"records,omitempty"`
}

type RepoID struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type Tags struct {
	Content []string    `json:"content,omitempty"`
	Repo    []string    `json:"repo,omitempty"`
	Distro  []DistroTag `json:"distro,omitempty"`
}

type DistroTag struct {
	CPEID string `json:"cpeid,omitempty"`
	Name  string `json:"name"`
}

type Record struct {
	Type            string `json:"type"`
	Path            string `json:"path"`
	Compression     string `json:"compression,omitempty"`
	DatabaseVersion *int64 `json:"databaseVersion,omitempty"`
}

type Build struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec BuildSpec `json:"spec"`
}
