// Package chunkfile implements a sequential file writer that verifies a chunk
// manifest as data arrives. It tracks how many bytes are written and how many
// of those are proven correct, and rolls back to the last good chunk boundary
// when a chunk does not match its expected hash.
package chunkfile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gkatanacio/mirror-downloader/resource"
)

var (
	ErrCorruptData  = errors.New("chunk hash mismatch")
	ErrSizeExceeded = errors.New("write beyond resource size")
	ErrClosed       = errors.New("chunk file is closed")
)

// Options configures Open.
type Options struct {
	// Workers bounds the goroutines hashing existing chunks when a file is reopened.
	// Default: 4
	Workers int
}

// File is the destination of one download. It is not safe for concurrent use.
type File struct {
	f      *os.File
	path   string
	size   int64
	chunks []resource.Chunk
	alg    resource.HashAlgorithm

	verified int64
	written  int64
	next     int // first chunk not yet verified

	closed bool
}

// Open opens or creates the file at path. When chunks are given, the chunks
// already present on disk are re-verified and the file keeps the longest valid
// prefix. Without chunks any existing content is discarded.
func Open(ctx context.Context, path string, size int64, chunks []resource.Chunk, alg resource.HashAlgorithm, opts Options) (*File, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	if len(chunks) > 0 {
		var total int64
		for _, c := range chunks {
			total += c.Size
		}
		if total != size {
			return nil, fmt.Errorf("%w: chunks total %d, resource size %d", resource.ErrChunkSizeMismatch, total, size)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open destination file: %w", err)
	}

	cf := &File{
		f:      f,
		path:   path,
		size:   size,
		chunks: chunks,
		alg:    alg,
	}

	if err := cf.restore(ctx, opts.Workers); err != nil {
		f.Close()
		return nil, err
	}

	return cf, nil
}

// restore establishes the verified length from what is already on disk.
func (cf *File) restore(ctx context.Context, workers int) error {
	info, err := cf.f.Stat()
	if err != nil {
		return err
	}

	var verified int64
	if len(cf.chunks) > 0 && info.Size() > 0 {
		verified, err = Scan(ctx, cf.f, min(info.Size(), cf.size), cf.chunks, cf.alg, workers)
		if err != nil {
			return fmt.Errorf("scan existing file: %w", err)
		}
	}

	if err := cf.truncate(verified); err != nil {
		return err
	}

	cf.verified = verified
	cf.next = cf.chunkAt(verified)

	return nil
}

// Write appends p at the written length and verifies every chunk it completes.
// On a hash mismatch the file is cut back to the verified length and the
// returned error wraps ErrCorruptData.
func (cf *File) Write(p []byte) (int, error) {
	if cf.closed {
		return 0, ErrClosed
	}

	overflow := false
	if rem := cf.size - cf.written; int64(len(p)) > rem {
		p = p[:rem]
		overflow = true
	}

	n, err := cf.f.WriteAt(p, cf.written)
	cf.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", cf.path, err)
	}

	if err := cf.verify(); err != nil {
		return n, err
	}

	if overflow {
		return n, fmt.Errorf("%w: resource is %d bytes", ErrSizeExceeded, cf.size)
	}

	return n, nil
}

func (cf *File) verify() error {
	if len(cf.chunks) == 0 {
		cf.verified = cf.written
		return nil
	}

	for cf.next < len(cf.chunks) {
		chunk := cf.chunks[cf.next]
		end := cf.verified + chunk.Size
		if cf.written < end {
			return nil
		}

		ok, err := verifyChunk(cf.f, cf.verified, chunk, cf.alg)
		if err != nil {
			return fmt.Errorf("verify chunk %d: %w", cf.next, err)
		}

		if !ok {
			offset := cf.verified
			if err := cf.truncate(cf.verified); err != nil {
				return err
			}
			return fmt.Errorf("%w: chunk %d at offset %d", ErrCorruptData, cf.next, offset)
		}

		cf.verified = end
		cf.next++
	}

	return nil
}

// DiscardUnverified drops bytes written after the last verified chunk so the
// next write continues at the verified length.
func (cf *File) DiscardUnverified() error {
	if cf.closed {
		return ErrClosed
	}
	if cf.written == cf.verified {
		return nil
	}
	return cf.truncate(cf.verified)
}

// Reset empties the file.
func (cf *File) Reset() error {
	if cf.closed {
		return ErrClosed
	}
	if err := cf.truncate(0); err != nil {
		return err
	}
	cf.verified = 0
	cf.next = 0
	return nil
}

func (cf *File) truncate(n int64) error {
	if err := cf.f.Truncate(n); err != nil {
		return fmt.Errorf("failed to truncate %s to %d: %w", cf.path, n, err)
	}
	cf.written = n
	return nil
}

// chunkAt returns the index of the chunk starting at offset, or len(chunks)
// when offset is the end of the resource.
func (cf *File) chunkAt(offset int64) int {
	var end int64
	for i, c := range cf.chunks {
		if end >= offset {
			return i
		}
		end += c.Size
	}
	return len(cf.chunks)
}

// Sync flushes written data to stable storage.
func (cf *File) Sync() error {
	if cf.closed {
		return ErrClosed
	}
	return cf.f.Sync()
}

// Close flushes and releases the file handle. Calling it again is a no-op.
func (cf *File) Close() error {
	if cf.closed {
		return nil
	}
	cf.closed = true

	syncErr := cf.f.Sync()
	return errors.Join(syncErr, cf.f.Close())
}

func (cf *File) Path() string { return cf.path }

func (cf *File) Size() int64 { return cf.size }

// VerifiedLength is the prefix of the file proven correct.
func (cf *File) VerifiedLength() int64 { return cf.verified }

// WrittenLength is the number of bytes physically in the file.
func (cf *File) WrittenLength() int64 { return cf.written }

// RemainingLength is what still has to be downloaded and verified.
func (cf *File) RemainingLength() int64 { return cf.size - cf.verified }
