package resource

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoURLs            = errors.New("resource requires at least one URL")
	ErrChunkSizeMismatch = errors.New("chunk sizes do not add up to resource size")
)

// Chunk is one entry of a chunk manifest.
type Chunk struct {
	Size int64  `yaml:"size"`
	Hash Digest `yaml:"hash"`
}

// Descriptor describes a remote resource: how big it is, where it can be
// fetched from and how its content is verified. It is not modified after
// construction.
type Descriptor struct {
	Size int64
	// URLs are mirrors in priority order, most preferred first.
	URLs []string
	// Chunks is the optional chunk manifest. When present it covers Size exactly.
	Chunks []Chunk
	// Hash is the optional digest of the whole file.
	Hash          Digest
	HashAlgorithm HashAlgorithm
}

// HasChunks reports whether incremental chunk verification is available.
func (d *Descriptor) HasChunks() bool {
	return len(d.Chunks) > 0
}

// Validate checks the descriptor invariants.
func (d *Descriptor) Validate() error {
	if d.Size < 0 {
		return fmt.Errorf("invalid resource size %d", d.Size)
	}

	if len(d.URLs) == 0 {
		return ErrNoURLs
	}
	for i, u := range d.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("url[%d] is empty", i)
		}
	}

	digestSize := d.HashAlgorithm.Size()
	if digestSize == 0 {
		return fmt.Errorf("unsupported hash algorithm %q", string(d.HashAlgorithm))
	}

	if len(d.Hash) > 0 && len(d.Hash) != digestSize {
		return fmt.Errorf("resource hash has %d bytes, %s needs %d", len(d.Hash), d.HashAlgorithm, digestSize)
	}

	if !d.HasChunks() {
		return nil
	}

	var total int64
	for i, c := range d.Chunks {
		if c.Size <= 0 {
			return fmt.Errorf("chunk %d has invalid size %d", i, c.Size)
		}
		if len(c.Hash) != digestSize {
			return fmt.Errorf("chunk %d hash has %d bytes, %s needs %d", i, len(c.Hash), d.HashAlgorithm, digestSize)
		}
		total += c.Size
	}

	if total != d.Size {
		return fmt.Errorf("%w: chunks total %d, resource size %d", ErrChunkSizeMismatch, total, d.Size)
	}

	return nil
}

// UniformChunks builds a manifest where every chunk is chunkSize bytes long
// except the last one, which holds whatever remains of size.
func UniformChunks(size, chunkSize int64, hashes []Digest) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	count := size / chunkSize
	if size%chunkSize != 0 {
		count++
	}

	if int64(len(hashes)) != count {
		return nil, fmt.Errorf("%d chunk hashes given, %d needed for %d bytes in %d byte chunks",
			len(hashes), count, size, chunkSize)
	}

	chunks := make([]Chunk, 0, count)
	for i, h := range hashes {
		offset := int64(i) * chunkSize
		chunks = append(chunks, Chunk{
			Size: min(chunkSize, size-offset),
			Hash: h,
		})
	}

	return chunks, nil
}
