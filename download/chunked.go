package download

import (
	"context"

	"github.com/gkatanacio/mirror-downloader/resource"
	"github.com/gkatanacio/mirror-downloader/transport"
)

// ChunkedDownloader downloads a resource that has a chunk manifest. Every
// chunk is verified as soon as it is written, so an interrupted download
// resumes from the last good chunk and a corrupt mirror costs at most one
// chunk of work.
type ChunkedDownloader struct {
	dl *downloader
}

var _ Downloader = (*ChunkedDownloader)(nil)

// NewChunkedDownloader returns a downloader for d writing to destPath. The
// directory of destPath must exist and d must carry a chunk manifest.
func NewChunkedDownloader(destPath string, d *resource.Descriptor, t transport.Transport, opts Options) (*ChunkedDownloader, error) {
	dl, err := newDownloader("ChunkedDownloader", destPath, d, t, opts, true)
	if err != nil {
		return nil, err
	}
	return &ChunkedDownloader{dl: dl}, nil
}

// Download fetches the remaining chunks, trying the mirrors in priority order.
// It returns nil once every chunk is verified and the whole-file digest, if
// any, matches.
func (c *ChunkedDownloader) Download(ctx context.Context) error {
	return c.dl.download(ctx)
}

// ID identifies this download in log lines.
func (c *ChunkedDownloader) ID() string {
	return c.dl.id
}
