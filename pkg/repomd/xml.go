package repomd

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

const indent = "  "

// element is a node of the document. Attributes and children are
// written in exactly the order they were added.
type element struct {
	name     string
	attrs    [][2]string
	text     string
	children []*element
}

func newElement(name string) *element {
	return &element{name: name}
}

func (e *element) attr(key, value string) *element {
	e.attrs = append(e.attrs, [2]string{key, value})
	return e
}

func (e *element) child(name, text string) *element {
	c := &element{name: name, text: text}
	e.children = append(e.children, c)
	return c
}

func (e *element) write(b *bytes.Buffer, depth int) {
	pad := strings.Repeat(indent, depth)
	b.WriteString(pad)
	b.WriteByte('<')
	b.WriteString(e.name)
	for _, a := range e.attrs {
		b.WriteByte(' ')
		b.WriteString(a[0])
		b.WriteString(`="`)
		escape(b, a[1])
		b.WriteByte('"')
	}
	switch {
	case len(e.children) > 0:
		b.WriteString(">\n")
		for _, c := range e.children {
			c.write(b, depth+1)
		}
		b.WriteString(pad)
	case e.text != "":
		b.WriteByte('>')
		escape(b, e.text)
	default:
		b.WriteString("/>\n")
		return
	}
	b.WriteString("</")
	b.WriteString(e.name)
	b.WriteString(">\n")
}

// escape writes s as XML character data. Runes that XML 1.0 does not
// allow are replaced with U+FFFD so the document stays well-formed.
func escape(b *bytes.Buffer, s string) {
	_ = xml.EscapeText(b, []byte(s))
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// document assembles the element tree. The revision falls back to the
// current Unix time, captured once per call.
func (m *Repomd) document() *element {
	root := newElement("repomd").
		attr("xmlns", NamespaceRepo).
		attr("xmlns:rpm", NamespaceRPM)

	if rev, ok := m.Revision(); ok {
		root.child("revision", rev)
	} else {
		root.child("revision", formatInt(m.now().Unix()))
	}

	if m.repoID != nil {
		root.child("repoid", m.repoID.ID).attr("type", m.repoID.Type)
	}

	if len(m.contentTags)+len(m.repoTags)+len(m.distroTags) > 0 {
		block := root.child("tags", "")
		for _, tag := range m.contentTags {
			block.child("content", tag)
		}
		for _, tag := range m.repoTags {
			block.child("repo", tag)
		}
		for _, tag := range m.distroTags {
			distro := block.child("distro", tag.Tag)
			if tag.CPEID != nil {
				distro.attr("cpeid", *tag.CPEID)
			}
		}
	}

	for _, rec := range m.Records() {
		root.children = append(root.children, rec.element())
	}
	return root
}

func (r *Record) element() *element {
	data := newElement("data").attr("type", r.Type)
	if r.Checksum != nil {
		data.child("checksum", r.Checksum.Value).attr("type", r.Checksum.Type)
	}
	if r.OpenChecksum != nil {
		data.child("open-checksum", r.OpenChecksum.Value).attr("type", r.OpenChecksum.Type)
	}
	if r.LocationHref != "" || r.LocationBase != "" {
		location := data.child("location", "").attr("href", r.LocationHref)
		if r.LocationBase != "" {
			location.attr("xml:base", r.LocationBase)
		}
	}
	if r.Timestamp != nil {
		data.child("timestamp", formatInt(*r.Timestamp))
	}
	if r.Size != nil {
		data.child("size", formatInt(*r.Size))
	}
	if r.OpenSize != nil {
		data.child("open-size", formatInt(*r.OpenSize))
	}
	if r.DatabaseVersion != nil {
		data.child("database_version", formatInt(*r.DatabaseVersion))
	}
	return data
}

// XMLDump renders the canonical repomd.xml document. The output is
// identical for identical state, except that a revision which was
// never set is taken from the clock at the time of the call.
func (m *Repomd) XMLDump() string {
	b := &bytes.Buffer{}
	b.WriteString(xml.Header)
	m.document().write(b, 0)
	return b.String()
}

// Write renders the document to w.
func (m *Repomd) Write(w io.Writer) error {
	_, err := io.WriteString(w, m.XMLDump())
	return err
}

// WriteFile writes the document to path. The content is written to a
// temporary file in the same directory first so that readers never
// observe a partial document.
func (m *Repomd) WriteFile(ctx context.Context, path string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp", uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("creating repomd: %w", err)
	}
	// no-op once the rename has succeeded
	defer os.Remove(tmp)

	if err := m.Write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing repomd: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing repomd: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("moving repomd into place: %w", err)
	}
	log.V(1).Info("wrote repomd", "records", len(m.order))
	return nil
}
