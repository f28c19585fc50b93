package repomd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/djcass44/go-repomd/pkg/checksum"
	"github.com/djcass44/go-repomd/pkg/compression"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepomd_XMLDump(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	md := New()

	// revision defaults to the current unix time
	xml := md.XMLDump()
	assert.Regexp(t, regexp.MustCompile(`<revision>[0-9]+</revision>`), xml)
	assert.NotContains(t, xml, "<repoid")
	assert.NotContains(t, xml, "<tags")
	assert.NotContains(t, xml, "<data")

	_, ok := md.Revision()
	assert.False(t, ok)
	md.SetRevision("foobar")
	rev, ok := md.Revision()
	assert.True(t, ok)
	assert.EqualValues(t, "foobar", rev)

	_, ok = md.RepoID()
	assert.False(t, ok)
	md.SetRepoID("fooid", "sha256")
	id, ok := md.RepoID()
	assert.True(t, ok)
	assert.EqualValues(t, RepoID{ID: "fooid", Type: "sha256"}, id)

	assert.Empty(t, md.DistroTags())
	md.AddDistroTag("tag1")
	md.AddDistroTagWithCPEID("cpeid1", "tag2")
	md.AddDistroTagWithCPEID("cpeid2", "tag3")
	cpeid1, cpeid2 := "cpeid1", "cpeid2"
	assert.EqualValues(t, []DistroTag{
		{Tag: "tag1"},
		{CPEID: &cpeid1, Tag: "tag2"},
		{CPEID: &cpeid2, Tag: "tag3"},
	}, md.DistroTags())

	assert.Empty(t, md.RepoTags())
	md.AddRepoTag("repotag")
	assert.EqualValues(t, []string{"repotag"}, md.RepoTags())

	assert.Empty(t, md.ContentTags())
	md.AddContentTag("contenttag")
	assert.EqualValues(t, []string{"contenttag"}, md.ContentTags())

	assert.Empty(t, md.Records())

	assert.EqualValues(t, `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo" xmlns:rpm="http://linux.duke.edu/metadata/rpm">
  <revision>foobar</revision>
  <repoid type="sha256">fooid</repoid>
  <tags>
    <content>contenttag</content>
    <repo>repotag</repo>
    <distro>tag1</distro>
    <distro cpeid="cpeid1">tag2</distro>
    <distro cpeid="cpeid2">tag3</distro>
  </tags>
</repomd>
`, md.XMLDump())

	path, raw := writeFixture(t, t.TempDir(), "primary.xml.gz", compression.Gzip)
	rec := NewRecord("primary", path)
	require.NoError(t, rec.Fill(ctx, checksum.SHA256))
	rec.SetTimestamp(1)
	rec.LocationBase = "http://foo/"
	md.SetRecord(rec)
	assert.Len(t, md.Records(), 1)

	md.ClearRepoID()

	assert.EqualValues(t, fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo" xmlns:rpm="http://linux.duke.edu/metadata/rpm">
  <revision>foobar</revision>
  <tags>
    <content>contenttag</content>
    <repo>repotag</repo>
    <distro>tag1</distro>
    <distro cpeid="cpeid1">tag2</distro>
    <distro cpeid="cpeid2">tag3</distro>
  </tags>
  <data type="primary">
    <checksum type="sha256">%s</checksum>
    <open-checksum type="sha256">%s</open-checksum>
    <location href="repodata/primary.xml.gz" xml:base="http://foo/"/>
    <timestamp>1</timestamp>
    <size>%d</size>
    <open-size>%d</open-size>
  </data>
</repomd>
`, sha256Hex(raw), sha256Hex([]byte(primaryXML)), len(raw), len(primaryXML)), md.XMLDump())
}

func TestRepomd_XMLDump_idempotent(t *testing.T) {
	md := New()
	md.now = func() time.Time {
		return time.Unix(1334667230, 0)
	}
	md.AddRepoTag("repotag")

	first := md.XMLDump()
	assert.Contains(t, first, "<revision>1334667230</revision>")
	assert.EqualValues(t, first, md.XMLDump())

	// the default revision is never stored
	_, ok := md.Revision()
	assert.False(t, ok)
}

func TestRepomd_XMLDump_optionalFields(t *testing.T) {
	md := New()
	md.SetRevision("1")

	rec := &Record{
		Type:         "group",
		LocationHref: "repodata/comps.xml",
		Checksum:     &Checksum{Type: "sha256", Value: "abc"},
	}
	rec.SetDatabaseVersion(10)
	md.SetRecord(rec)

	xml := md.XMLDump()
	assert.Contains(t, xml, `    <location href="repodata/comps.xml"/>
    <database_version>10</database_version>
  </data>`)
	assert.NotContains(t, xml, "open-checksum")
	assert.NotContains(t, xml, "open-size")
	assert.NotContains(t, xml, "<timestamp>")
	assert.NotContains(t, xml, "<size>")
	assert.NotContains(t, xml, "xml:base")
}

func TestRepomd_XMLDump_escaping(t *testing.T) {
	md := New()
	md.SetRevision("1 & <2>")
	md.AddDistroTagWithCPEID(`cpe:/o:"fedora"`, "Fedora & friends")

	xml := md.XMLDump()
	assert.Contains(t, xml, "<revision>1 &amp; &lt;2&gt;</revision>")
	assert.Contains(t, xml, `<distro cpeid="cpe:/o:&#34;fedora&#34;">Fedora &amp; friends</distro>`)

	out, err := Parse(strings.NewReader(xml))
	require.NoError(t, err)
	rev, _ := out.Revision()
	assert.EqualValues(t, "1 & <2>", rev)
	assert.EqualValues(t, md.DistroTags(), out.DistroTags())
}

func TestRepomd_XMLDump_invalidCharacters(t *testing.T) {
	md := New()
	md.SetRevision("1")
	md.AddContentTag("a\x01b")
	md.AddRepoTag("tab\tand\nnewline")
	md.AddDistroTagWithCPEID("cpe\x1f", "ok")

	out, err := Parse(strings.NewReader(md.XMLDump()))
	require.NoError(t, err)
	assert.EqualValues(t, []string{"a\uFFFDb"}, out.ContentTags())
	assert.EqualValues(t, []string{"tab\tand\nnewline"}, out.RepoTags())
	require.Len(t, out.DistroTags(), 1)
	assert.EqualValues(t, "cpe\uFFFD", *out.DistroTags()[0].CPEID)

	// the sanitised document is stable
	assert.EqualValues(t, out.XMLDump(), md.XMLDump())
}

func TestRepomd_XMLDump_withoutLocation(t *testing.T) {
	in := `<repomd><revision>1</revision><data type="x"><size>1</size></data></repomd>`
	md, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	rec, ok := md.Record("x")
	require.True(t, ok)
	assert.Empty(t, rec.LocationHref)

	xml := md.XMLDump()
	assert.NotContains(t, xml, "<location")
	assert.Contains(t, xml, "<data type=\"x\">\n    <size>1</size>\n  </data>")

	again, err := Parse(strings.NewReader(xml))
	require.NoError(t, err)
	assert.EqualValues(t, xml, again.XMLDump())
}

func TestRepomd_whitespace(t *testing.T) {
	md := New()
	md.SetRevision(" 1 ")
	md.SetRepoID(" fooid\n", "sha256 ")

	rev, _ := md.Revision()
	assert.EqualValues(t, "1", rev)
	id, _ := md.RepoID()
	assert.EqualValues(t, RepoID{ID: "fooid", Type: "sha256"}, id)

	out, err := Parse(strings.NewReader(md.XMLDump()))
	require.NoError(t, err)
	rev, _ = out.Revision()
	assert.EqualValues(t, "1", rev)
	parsedID, _ := out.RepoID()
	assert.EqualValues(t, id, parsedID)
	assert.EqualValues(t, md.XMLDump(), out.XMLDump())
}

func TestRepomd_WriteFile_failure(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))
	dir := t.TempDir()

	// the destination is a directory that cannot be replaced
	dst := filepath.Join(dir, "repomd.xml")
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "occupied"), 0755))

	md := New()
	md.SetRevision("1")
	assert.Error(t, md.WriteFile(ctx, dst))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, "repomd.xml", entries[0].Name())
	assert.True(t, entries[0].IsDir())

	assert.Error(t, md.WriteFile(ctx, filepath.Join(dir, "missing", "repomd.xml")))
}

func TestRepomd_SetRecord(t *testing.T) {
	md := New()
	md.SetRecord(&Record{Type: "primary", LocationHref: "a"})
	md.SetRecord(&Record{Type: "filelists"})
	md.SetRecord(&Record{Type: "other"})
	md.SetRecord(&Record{Type: "primary", LocationHref: "b"})
	md.SetRecord(nil)

	var types []string
	for _, rec := range md.Records() {
		types = append(types, rec.Type)
	}
	assert.EqualValues(t, []string{"primary", "filelists", "other"}, types)

	rec, ok := md.Record("primary")
	assert.True(t, ok)
	assert.EqualValues(t, "b", rec.LocationHref)

	assert.True(t, md.RemoveRecord("filelists"))
	assert.False(t, md.RemoveRecord("filelists"))
	_, ok = md.Record("filelists")
	assert.False(t, ok)

	md.SetRecord(&Record{Type: "filelists"})
	types = nil
	for _, rec := range md.Records() {
		types = append(types, rec.Type)
	}
	assert.EqualValues(t, []string{"primary", "other", "filelists"}, types)
}

func TestParse(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	md, err := Open(ctx, "./testdata/repomd.xml")
	require.NoError(t, err)

	rev, ok := md.Revision()
	assert.True(t, ok)
	assert.EqualValues(t, "1334667230", rev)
	assert.Empty(t, md.RepoTags())
	assert.Empty(t, md.DistroTags())
	assert.Empty(t, md.ContentTags())
	assert.Len(t, md.Records(), 3)

	primary, ok := md.Record("primary")
	require.True(t, ok)
	assert.EqualValues(t, "6c662d665c24de9a0f62c17d8fa50622307739d7376f0d19097ca96c6d7f5e3e", primary.Checksum.Value)
	assert.EqualValues(t, "sha256", primary.OpenChecksum.Type)
	assert.EqualValues(t, 782, *primary.Size)
	assert.EqualValues(t, 2085, *primary.OpenSize)
	assert.EqualValues(t, 1334667230, *primary.Timestamp)
	assert.Nil(t, primary.DatabaseVersion)
	assert.Empty(t, primary.LocationReal)

	// a parsed document dumps back to itself
	f, err := os.ReadFile("./testdata/repomd.xml")
	require.NoError(t, err)
	assert.EqualValues(t, string(f), md.XMLDump())
}

func TestParse_tolerant(t *testing.T) {
	md, err := Parse(strings.NewReader(`<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <revision> 42 </revision>
  <unknown>ignored</unknown>
  <data type="primary_db">
    <location href="repodata/primary.sqlite.bz2"/>
    <header-checksum type="sha256">ignored</header-checksum>
    <database_version>10</database_version>
  </data>
</repomd>`))
	require.NoError(t, err)

	rev, _ := md.Revision()
	assert.EqualValues(t, "42", rev)
	_, ok := md.RepoID()
	assert.False(t, ok)

	rec, ok := md.Record("primary_db")
	require.True(t, ok)
	assert.Nil(t, rec.Checksum)
	assert.Nil(t, rec.Timestamp)
	assert.Nil(t, rec.Size)
	assert.EqualValues(t, 10, *rec.DatabaseVersion)
}

func TestParse_malformed(t *testing.T) {
	var cases = []struct {
		name string
		in   string
		msg  string
	}{
		{
			"not xml",
			"this is not xml",
			"",
		},
		{
			"wrong root",
			`<metadata packages="0"></metadata>`,
			"repomd",
		},
		{
			"data without type",
			`<repomd><data><location href="x"/></data></repomd>`,
			"data element 1",
		},
		{
			"bad size",
			`<repomd><data type="primary"><size>big</size></data></repomd>`,
			"<size>",
		},
		{
			"repoid without type",
			`<repomd><repoid>foo</repoid></repomd>`,
			"repoid",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrMalformed)
			if tt.msg != "" {
				assert.ErrorContains(t, err, tt.msg)
			}
		})
	}
}

func TestRepomd_roundTrip(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))
	dir := t.TempDir()

	md := New()
	md.SetRevision("1700000000")
	md.SetRepoID("fooid", "sha256")
	md.AddContentTag("binary-x86_64")
	md.AddContentTag("binary-x86_64")
	md.AddRepoTag("updates")
	md.AddDistroTag("tag1")
	md.AddDistroTagWithCPEID("cpe:/o:fedoraproject:fedora:40", "Fedora 40")

	for _, kind := range []compression.Kind{compression.Gzip, compression.None} {
		suffix, _ := kind.Suffix()
		path, _ := writeFixture(t, dir, "primary-"+kind.String()+".xml"+suffix, kind)
		rec := NewRecord("primary-"+kind.String(), path)
		require.NoError(t, rec.Fill(ctx, checksum.SHA256))
		require.NoError(t, rec.RenameFile(ctx))
		md.SetRecord(rec)
	}

	out := filepath.Join(dir, "repomd.xml")
	require.NoError(t, md.WriteFile(ctx, out))

	parsed, err := Open(ctx, out)
	require.NoError(t, err)

	rev, _ := parsed.Revision()
	assert.EqualValues(t, "1700000000", rev)
	id, _ := parsed.RepoID()
	assert.EqualValues(t, RepoID{ID: "fooid", Type: "sha256"}, id)
	assert.EqualValues(t, md.ContentTags(), parsed.ContentTags())
	assert.EqualValues(t, md.RepoTags(), parsed.RepoTags())
	assert.EqualValues(t, md.DistroTags(), parsed.DistroTags())

	require.Len(t, parsed.Records(), len(md.Records()))
	for i, rec := range md.Records() {
		// the real location is not persisted
		want := *rec
		want.LocationReal = ""
		assert.EqualValues(t, &want, parsed.Records()[i])
	}

	assert.EqualValues(t, md.XMLDump(), parsed.XMLDump())
}
