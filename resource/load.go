package resource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// descriptorFile is the YAML form of a Descriptor. Chunks may be listed
// explicitly or given as a uniform chunk size plus one hash per chunk.
type descriptorFile struct {
	Size          int64         `yaml:"size"`
	HashAlgorithm HashAlgorithm `yaml:"hash_algorithm"`
	Hash          Digest        `yaml:"hash"`
	URLs          []string      `yaml:"urls"`
	Chunks        []Chunk       `yaml:"chunks"`
	ChunkSize     int64         `yaml:"chunk_size"`
	ChunkHashes   []Digest      `yaml:"chunk_hashes"`
}

// LoadFile reads and validates a descriptor from a YAML file.
func LoadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor file: %w", err)
	}

	d, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", path, err)
	}

	return d, nil
}

// Decode parses and validates a YAML descriptor.
func Decode(r io.Reader) (*Descriptor, error) {
	var df descriptorFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&df); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty descriptor")
		}
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}

	d := &Descriptor{
		Size:          df.Size,
		URLs:          df.URLs,
		Chunks:        df.Chunks,
		HashAlgorithm: df.HashAlgorithm,
	}
	if len(df.Hash) > 0 {
		d.Hash = df.Hash
	}

	if df.ChunkSize > 0 || len(df.ChunkHashes) > 0 {
		if len(df.Chunks) > 0 {
			return nil, errors.New("chunks and chunk_size/chunk_hashes are mutually exclusive")
		}
		chunks, err := UniformChunks(df.Size, df.ChunkSize, df.ChunkHashes)
		if err != nil {
			return nil, err
		}
		d.Chunks = chunks
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}
