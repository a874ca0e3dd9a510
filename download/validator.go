package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gkatanacio/mirror-downloader/chunkfile"
	"github.com/gkatanacio/mirror-downloader/resource"
)

// Validator checks a finished file against its resource descriptor.
type Validator struct {
	workers int
}

func NewValidator(workers int) *Validator {
	if workers <= 0 {
		workers = defaultVerifyWorkers
	}
	return &Validator{workers: workers}
}

// Validate compares the file size with the descriptor, then the whole-file
// digest when one is known, otherwise every chunk of the manifest. Mismatches
// wrap ErrValidationFailed.
func (v *Validator) Validate(ctx context.Context, path string, d *resource.Descriptor) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if info.Size() != d.Size {
		return fmt.Errorf("%w: %s is %d bytes, expected %d", ErrValidationFailed, path, info.Size(), d.Size)
	}

	if len(d.Hash) > 0 {
		h, err := d.HashAlgorithm.New()
		if err != nil {
			return err
		}

		if _, err := io.Copy(h, f); err != nil {
			return fmt.Errorf("failed to read file for hashing: %w", err)
		}

		if sum := h.Sum(nil); !bytes.Equal(sum, d.Hash) {
			return fmt.Errorf("%w: %s hash mismatch: expected %s, got %s",
				ErrValidationFailed, d.HashAlgorithm, d.Hash, resource.Digest(sum))
		}

		return nil
	}

	if d.HasChunks() {
		verified, err := chunkfile.Scan(ctx, f, d.Size, d.Chunks, d.HashAlgorithm, v.workers)
		if err != nil {
			return err
		}
		if verified != d.Size {
			return fmt.Errorf("%w: chunks verified up to byte %d of %d", ErrValidationFailed, verified, d.Size)
		}
	}

	return nil
}
