package repomd

import (
	"slices"
	"strings"
	"time"
)

const (
	NamespaceRepo = "http://linux.duke.edu/metadata/repo"
	NamespaceRPM  = "http://linux.duke.edu/metadata/rpm"
)

// DistroTag is a distribution tag with an optional CPE identifier.
type DistroTag struct {
	CPEID *string
	Tag   string
}

type RepoID struct {
	ID   string
	Type string
}

// Repomd is the top-level index of a repository. It is not safe for
// concurrent mutation.
type Repomd struct {
	revision *string
	repoID   *RepoID

	distroTags  []DistroTag
	repoTags    []string
	contentTags []string

	records map[string]*Record
	// order holds record types in the order they were first set
	order []string

	now func() time.Time
}

func New() *Repomd {
	return &Repomd{
		records: map[string]*Record{},
		now:     time.Now,
	}
}

// SetRevision sets the revision. Surrounding whitespace is not
// significant and is dropped.
func (m *Repomd) SetRevision(rev string) {
	rev = strings.TrimSpace(rev)
	m.revision = &rev
}

// Revision returns the explicitly set revision. When none has been set
// the dumped document uses the time of the dump instead.
func (m *Repomd) Revision() (string, bool) {
	if m.revision == nil {
		return "", false
	}
	return *m.revision, true
}

func (m *Repomd) SetRepoID(id, typ string) {
	m.repoID = &RepoID{ID: strings.TrimSpace(id), Type: strings.TrimSpace(typ)}
}

func (m *Repomd) ClearRepoID() {
	m.repoID = nil
}

func (m *Repomd) RepoID() (RepoID, bool) {
	if m.repoID == nil {
		return RepoID{}, false
	}
	return *m.repoID, true
}

func (m *Repomd) AddDistroTag(tag string) {
	m.distroTags = append(m.distroTags, DistroTag{Tag: tag})
}

func (m *Repomd) AddDistroTagWithCPEID(cpeid, tag string) {
	m.distroTags = append(m.distroTags, DistroTag{CPEID: &cpeid, Tag: tag})
}

func (m *Repomd) AddRepoTag(tag string) {
	m.repoTags = append(m.repoTags, tag)
}

func (m *Repomd) AddContentTag(tag string) {
	m.contentTags = append(m.contentTags, tag)
}

func (m *Repomd) DistroTags() []DistroTag {
	return slices.Clone(m.distroTags)
}

func (m *Repomd) RepoTags() []string {
	return slices.Clone(m.repoTags)
}

func (m *Repomd) ContentTags() []string {
	return slices.Clone(m.contentTags)
}

// SetRecord adds rec to the index, keyed by its type. A record of the
// same type is replaced but keeps its original position. The Repomd
// keeps a reference to rec, so later changes to it are reflected in
// the output.
func (m *Repomd) SetRecord(rec *Record) {
	if rec == nil {
		return
	}
	if _, ok := m.records[rec.Type]; !ok {
		m.order = append(m.order, rec.Type)
	}
	m.records[rec.Type] = rec
}

func (m *Repomd) Record(typ string) (*Record, bool) {
	rec, ok := m.records[typ]
	return rec, ok
}

// RemoveRecord removes the record of the given type and reports
// whether there was one.
func (m *Repomd) RemoveRecord(typ string) bool {
	if _, ok := m.records[typ]; !ok {
		return false
	}
	delete(m.records, typ)
	m.order = slices.DeleteFunc(m.order, func(s string) bool {
		return s == typ
	})
	return true
}

// Records returns the records in the order their types were first
// set.
func (m *Repomd) Records() []*Record {
	out := make([]*Record, 0, len(m.order))
	for _, typ := range m.order {
		out = append(out, m.records[typ])
	}
	return out
}
