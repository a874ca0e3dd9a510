package download

import (
	"context"

	"github.com/gkatanacio/mirror-downloader/resource"
	"github.com/gkatanacio/mirror-downloader/transport"
)

// PlainDownloader downloads a resource without checking data while it is
// written. The file is validated once complete, against the whole-file digest
// or the chunk manifest when the descriptor has one. Existing content at
// destPath is discarded.
type PlainDownloader struct {
	dl *downloader
}

var _ Downloader = (*PlainDownloader)(nil)

func NewPlainDownloader(destPath string, d *resource.Descriptor, t transport.Transport, opts Options) (*PlainDownloader, error) {
	dl, err := newDownloader("PlainDownloader", destPath, d, t, opts, false)
	if err != nil {
		return nil, err
	}
	return &PlainDownloader{dl: dl}, nil
}

func (p *PlainDownloader) Download(ctx context.Context) error {
	return p.dl.download(ctx)
}

// ID identifies this download in log lines.
func (p *PlainDownloader) ID() string {
	return p.dl.id
}
