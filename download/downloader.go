package download

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/segmentio/ksuid"

	"github.com/gkatanacio/mirror-downloader/chunkfile"
	"github.com/gkatanacio/mirror-downloader/resource"
	"github.com/gkatanacio/mirror-downloader/transport"
)

// downloader holds what both variants share: the destination, the mirror
// policy and the attempt loop. chunked selects whether the manifest is checked
// while writing or only by the validator at the end.
type downloader struct {
	name      string
	id        string
	destPath  string
	resource  *resource.Descriptor
	transport transport.Transport
	opts      Options
	validator *Validator
	chunked   bool

	called bool
	file   *chunkfile.File
	buf    []byte
}

func newDownloader(name, destPath string, d *resource.Descriptor, t transport.Transport, opts Options, chunked bool) (*downloader, error) {
	if strings.TrimSpace(destPath) == "" {
		return nil, errors.New("destination path is required")
	}
	if err := checkParentDir(destPath); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errors.New("resource descriptor is required")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("transport is required")
	}
	if chunked && !d.HasChunks() {
		return nil, fmt.Errorf("%s requires a chunk manifest", name)
	}

	opts = opts.withDefaults()

	return &downloader{
		name:      name,
		id:        ksuid.New().String(),
		destPath:  destPath,
		resource:  d,
		transport: t,
		opts:      opts,
		validator: NewValidator(opts.VerifyWorkers),
		chunked:   chunked,
	}, nil
}

func (dl *downloader) download(ctx context.Context) (err error) {
	if dl.called {
		return fmt.Errorf("%w: %s.Download", ErrMisuse, dl.name)
	}
	dl.called = true

	var chunks []resource.Chunk
	if dl.chunked {
		chunks = dl.resource.Chunks
	}

	file, err := chunkfile.Open(ctx, dl.destPath, dl.resource.Size, chunks, dl.resource.HashAlgorithm,
		chunkfile.Options{Workers: dl.opts.VerifyWorkers})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	dl.file = file
	dl.buf = make([]byte, dl.opts.BufferSize)

	log := dl.opts.Logger
	log.Info("[%s] downloading %s to %s from %d mirror(s), %s already verified",
		dl.id, humanize.Bytes(uint64(dl.resource.Size)), dl.destPath, len(dl.resource.URLs),
		humanize.Bytes(uint64(file.VerifiedLength())))

	if file.RemainingLength() == 0 {
		dl.report()
		err := dl.finish(ctx)
		if err == nil {
			log.Info("[%s] %s is already complete", dl.id, dl.destPath)
			return nil
		}
		if !errors.Is(err, ErrValidationFailed) {
			return err
		}
		log.Warn("[%s] existing file rejected, starting over: %v", dl.id, err)
		if err := file.Reset(); err != nil {
			return err
		}
	}

	policy := newMirrorPolicy(dl.resource.URLs, dl.opts, dl.id)
	if err := policy.run(ctx, dl.attempt); err != nil {
		log.Error("[%s] download of %s failed: %v", dl.id, dl.destPath, err)
		return err
	}

	log.Info("[%s] download complete: %s", dl.id, dl.destPath)

	return nil
}

// attempt resumes the transfer from url at the current verified offset.
func (dl *downloader) attempt(ctx context.Context, url string) (bool, error) {
	if err := dl.file.DiscardUnverified(); err != nil {
		return false, err
	}

	if dl.file.RemainingLength() == 0 {
		return dl.complete(ctx, url)
	}

	offset := dl.file.WrittenLength()

	f := NewFetcher(dl.transport)
	if dl.chunked || offset > 0 {
		f.SetRange(offset, dl.resource.Size-1)
	}

	dl.opts.Logger.Info("[%s] requesting %s from %s", dl.id, f.Range(), url)

	body, err := f.Open(ctx, url)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := alignStream(url, f, body, offset); err != nil {
		return false, err
	}

	if err := copyToFile(ctx, url, body, dl.file, dl.buf, dl.report); err != nil {
		return false, err
	}

	if remaining := dl.file.RemainingLength(); remaining > 0 {
		dl.opts.Logger.Debug("[%s] %s ended with %s remaining", dl.id, url, humanize.Bytes(uint64(remaining)))
		return false, nil
	}

	return dl.complete(ctx, url)
}

// complete runs the integrity gate on a file holding every byte. A rejected
// file is emptied and the mirror that produced it is reported.
func (dl *downloader) complete(ctx context.Context, url string) (bool, error) {
	err := dl.finish(ctx)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, ErrValidationFailed) {
		return false, err
	}

	if rerr := dl.file.Reset(); rerr != nil {
		return false, rerr
	}
	dl.report()

	return false, &AttemptError{Kind: KindValidationFailed, URL: url, Err: err}
}

func (dl *downloader) finish(ctx context.Context) error {
	if err := dl.file.Sync(); err != nil {
		return err
	}

	gate := *dl.resource
	if dl.chunked {
		// chunks were verified as they were written
		gate.Chunks = nil
	}

	return dl.validator.Validate(ctx, dl.destPath, &gate)
}

func (dl *downloader) report() {
	if dl.opts.Progress == nil {
		return
	}

	downloaded := dl.file.WrittenLength()
	if dl.chunked {
		downloaded = dl.file.VerifiedLength()
	}

	dl.opts.Progress(downloaded, dl.resource.Size)
}
