package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// HashAlgorithm names the digest used for chunk and whole-file hashes.
type HashAlgorithm string

const (
	HashSHA256   HashAlgorithm = "sha256"
	HashXXHash64 HashAlgorithm = "xxhash64"
)

// New returns a fresh hasher for the algorithm. The empty algorithm means SHA-256.
func (a HashAlgorithm) New() (hash.Hash, error) {
	switch a.normalized() {
	case HashSHA256:
		return sha256.New(), nil
	case HashXXHash64:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", string(a))
	}
}

// Size returns the digest length in bytes, or 0 for an unknown algorithm.
func (a HashAlgorithm) Size() int {
	switch a.normalized() {
	case HashSHA256:
		return sha256.Size
	case HashXXHash64:
		return 8
	default:
		return 0
	}
}

func (a HashAlgorithm) String() string {
	return string(a.normalized())
}

func (a HashAlgorithm) normalized() HashAlgorithm {
	if a == "" {
		return HashSHA256
	}
	return HashAlgorithm(strings.ToLower(string(a)))
}

// Digest is a raw hash value. In YAML it is written as a hex string.
type Digest []byte

// ParseDigest decodes a hex digest, tolerating surrounding whitespace and upper case.
func ParseDigest(s string) (Digest, error) {
	b, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return nil, fmt.Errorf("invalid hex digest %q: %w", s, err)
	}
	return Digest(b), nil
}

func (d Digest) String() string {
	return hex.EncodeToString(d)
}

func (d *Digest) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Digest) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
