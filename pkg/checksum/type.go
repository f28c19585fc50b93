package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// ErrUnknownType is returned when a digest is requested for a Type
// outside of the supported set.
var ErrUnknownType = errors.New("unknown checksum type")

// Type is a digest algorithm that can be recorded in repository
// metadata.
type Type int

const (
	Unknown Type = iota
	MD5
	SHA1
	SHA224
	SHA256
	SHA384
	SHA512
)

var typeNames = map[Type]string{
	MD5:    "md5",
	SHA1:   "sha1",
	SHA224: "sha224",
	SHA256: "sha256",
	SHA384: "sha384",
	SHA512: "sha512",
}

var constructors = map[Type]func() hash.Hash{
	MD5:    md5.New,
	SHA1:   sha1.New,
	SHA224: sha256.New224,
	SHA256: sha256.New,
	SHA384: sha512.New384,
	SHA512: sha512.New,
}

// String returns the name of the algorithm as it appears in the type
// attribute of a checksum element.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// New returns a fresh hash for the algorithm.
func (t Type) New() (hash.Hash, error) {
	fn, ok := constructors[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return fn(), nil
}

// Parse converts an algorithm name into a Type. "sha" is accepted as
// the historical name for SHA-1.
func Parse(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "sha" {
		return SHA1, nil
	}
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownType, s)
}
