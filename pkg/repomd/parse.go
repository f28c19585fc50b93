package repomd

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
)

// ErrMalformed indicates a repomd.xml document that cannot be read
// back into a Repomd.
var ErrMalformed = errors.New("malformed repomd")

type repoData struct {
	XMLName  xml.Name   `xml:"repomd"`
	Revision *string    `xml:"revision"`
	RepoID   *repoID    `xml:"repoid"`
	Tags     *tags      `xml:"tags"`
	Data     []dataElem `xml:"data"`
}

type repoID struct {
	Type  *string `xml:"type,attr"`
	Value string  `xml:",chardata"`
}

type tags struct {
	Content []string `xml:"content"`
	Repo    []string `xml:"repo"`
	Distro  []distro `xml:"distro"`
}

type distro struct {
	CPEID *string `xml:"cpeid,attr"`
	Value string  `xml:",chardata"`
}

type dataElem struct {
	Type            string        `xml:"type,attr"`
	Checksum        *checksumElem `xml:"checksum"`
	OpenChecksum    *checksumElem `xml:"open-checksum"`
	Location        *location     `xml:"location"`
	Timestamp       *string       `xml:"timestamp"`
	Size            *string       `xml:"size"`
	OpenSize        *string       `xml:"open-size"`
	DatabaseVersion *string       `xml:"database_version"`
}

type checksumElem struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type location struct {
	Href string `xml:"href,attr"`
	Base string `xml:"base,attr"`
}

// Open reads the repomd.xml document at path.
func Open(ctx context.Context, path string) (*Repomd, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	md, err := Parse(f)
	if err != nil {
		log.Error(err, "failed to parse repomd")
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	log.V(1).Info("parsed repomd", "records", len(md.order))
	return md, nil
}

// Parse reads a repomd.xml document. Elements that are not part of
// the index are ignored and missing optional elements are left unset.
func Parse(r io.Reader) (*Repomd, error) {
	var doc repoData
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	md := New()
	if doc.Revision != nil {
		md.SetRevision(*doc.Revision)
	}
	if doc.RepoID != nil {
		if doc.RepoID.Type == nil {
			return nil, fmt.Errorf("%w: repoid: missing type attribute", ErrMalformed)
		}
		md.SetRepoID(doc.RepoID.Value, *doc.RepoID.Type)
	}
	if doc.Tags != nil {
		for _, tag := range doc.Tags.Content {
			md.AddContentTag(tag)
		}
		for _, tag := range doc.Tags.Repo {
			md.AddRepoTag(tag)
		}
		for _, tag := range doc.Tags.Distro {
			if tag.CPEID != nil {
				md.AddDistroTagWithCPEID(*tag.CPEID, tag.Value)
			} else {
				md.AddDistroTag(tag.Value)
			}
		}
	}
	for i, data := range doc.Data {
		rec, err := data.record()
		if err != nil {
			return nil, fmt.Errorf("%w: data element %d: %w", ErrMalformed, i+1, err)
		}
		md.SetRecord(rec)
	}
	return md, nil
}

func (d *dataElem) record() (*Record, error) {
	if d.Type == "" {
		return nil, errors.New("missing type attribute")
	}
	rec := &Record{Type: d.Type}
	if d.Checksum != nil {
		rec.Checksum = &Checksum{Type: d.Checksum.Type, Value: strings.TrimSpace(d.Checksum.Value)}
	}
	if d.OpenChecksum != nil {
		rec.OpenChecksum = &Checksum{Type: d.OpenChecksum.Type, Value: strings.TrimSpace(d.OpenChecksum.Value)}
	}
	if d.Location != nil {
		rec.LocationHref = d.Location.Href
		rec.LocationBase = d.Location.Base
	}

	var err error
	if rec.Timestamp, err = parseInt(d.Type, "timestamp", d.Timestamp); err != nil {
		return nil, err
	}
	if rec.Size, err = parseInt(d.Type, "size", d.Size); err != nil {
		return nil, err
	}
	if rec.OpenSize, err = parseInt(d.Type, "open-size", d.OpenSize); err != nil {
		return nil, err
	}
	if rec.DatabaseVersion, err = parseInt(d.Type, "database_version", d.DatabaseVersion); err != nil {
		return nil, err
	}
	return rec, nil
}

func parseInt(typ, name string, s *string) (*int64, error) {
	if s == nil {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(*s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: <%s>: %w", typ, name, err)
	}
	return &v, nil
}
