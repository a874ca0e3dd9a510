package chunkfile

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/gkatanacio/mirror-downloader/resource"
)

// Scan hashes the chunks that lie completely inside the first length bytes of
// r and returns the length of the longest prefix of matching chunks. Chunks are
// hashed concurrently by up to workers goroutines.
func Scan(ctx context.Context, r io.ReaderAt, length int64, chunks []resource.Chunk, alg resource.HashAlgorithm, workers int) (int64, error) {
	if workers <= 0 {
		workers = 1
	}

	var offsets []int64
	var end int64
	for _, c := range chunks {
		if end+c.Size > length {
			break
		}
		offsets = append(offsets, end)
		end += c.Size
	}

	matches := make([]bool, len(offsets))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, offset := range offsets {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ok, err := verifyChunk(r, offset, chunks[i], alg)
			if err != nil {
				return fmt.Errorf("verify chunk %d: %w", i, err)
			}
			matches[i] = ok
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return 0, err
	}

	var verified int64
	for i, ok := range matches {
		if !ok {
			break
		}
		verified += chunks[i].Size
	}

	return verified, nil
}

// verifyChunk hashes the bytes of one chunk as they are stored in r.
func verifyChunk(r io.ReaderAt, offset int64, chunk resource.Chunk, alg resource.HashAlgorithm) (bool, error) {
	h, err := alg.New()
	if err != nil {
		return false, err
	}

	n, err := io.Copy(h, io.NewSectionReader(r, offset, chunk.Size))
	if err != nil {
		return false, err
	}
	if n != chunk.Size {
		return false, nil
	}

	return bytes.Equal(h.Sum(nil), chunk.Hash), nil
}
