package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gkatanacio/mirror-downloader/chunkfile"
	"github.com/gkatanacio/mirror-downloader/transport"
)

// reversed returns a reversed copy of urls.
func reversed(urls []string) []string {
	// just to avoid parameter mutation
	out := make([]string, len(urls))
	for i, u := range urls {
		out[len(urls)-1-i] = u
	}
	return out
}

// removeAt removes the element at index i, keeping the order of the rest.
func removeAt(urls []string, i int) []string {
	return append(urls[:i], urls[i+1:]...)
}

// checkParentDir returns an error unless the directory that will hold path exists.
func checkParentDir(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("destination directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination directory %s is not a directory", dir)
	}
	return nil
}

// alignStream makes sure the body starts at offset. A server that ignored the
// Range header and answered 200 sends the whole resource, so the bytes before
// offset are skipped. A 206 whose Content-Range starts elsewhere is rejected.
func alignStream(url string, f *Fetcher, body io.Reader, offset int64) error {
	switch f.StatusCode() {
	case http.StatusOK:
		if offset == 0 {
			return nil
		}
		if _, err := io.CopyN(io.Discard, body, offset); err != nil {
			return readError(url, fmt.Errorf("skip %d bytes of full response: %w", offset, err))
		}
	case http.StatusPartialContent:
		cr := f.Header().Get("Content-Range")
		if cr == "" {
			return nil
		}
		parsed, err := transport.ParseContentRange(cr)
		if err != nil {
			return &AttemptError{Kind: KindUnexpectedServerResponse, URL: url, StatusCode: f.StatusCode(), Err: err}
		}
		if parsed.Start != offset {
			return &AttemptError{
				Kind:       KindUnexpectedServerResponse,
				URL:        url,
				StatusCode: f.StatusCode(),
				Err:        fmt.Errorf("content range starts at %d, requested %d", parsed.Start, offset),
			}
		}
	}
	return nil
}

// copyToFile streams body into dest with fixed-size reads, checking ctx before
// every read and calling progress after every write. Reading stops once dest
// holds the whole resource; anything the server sends past that is ignored.
func copyToFile(ctx context.Context, url string, body io.Reader, dest *chunkfile.File, buf []byte, progress func()) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		room := dest.Size() - dest.WrittenLength()
		if room <= 0 {
			return nil
		}

		p := buf
		if int64(len(p)) > room {
			p = p[:room]
		}

		n, rerr := body.Read(p)
		if n > 0 {
			if _, err := dest.Write(p[:n]); err != nil {
				if errors.Is(err, chunkfile.ErrCorruptData) || errors.Is(err, chunkfile.ErrSizeExceeded) {
					return &AttemptError{Kind: KindCorruptData, URL: url, Err: err}
				}
				return err
			}
			progress()
		}

		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			return readError(url, rerr)
		}
	}
}

// readError classifies a failure while reading a response body.
func readError(url string, err error) error {
	kind := KindNetwork
	if transport.IsTimeout(err) {
		kind = KindTimeout
	}
	return &AttemptError{Kind: kind, URL: url, Err: err}
}
