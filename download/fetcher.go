package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gkatanacio/mirror-downloader/resource"
	"github.com/gkatanacio/mirror-downloader/transport"
)

// Fetcher performs exactly one ranged GET and exposes the response body once
// the status has been accepted.
type Fetcher struct {
	transport transport.Transport
	rng       resource.ByteRange

	opened bool
	resp   *transport.Response
	closed bool
}

func NewFetcher(t transport.Transport) *Fetcher {
	return &Fetcher{
		transport: t,
		rng:       resource.WholeRange(),
	}
}

// SetRange restricts the request to the inclusive byte range [start, end].
// Use resource.Unbounded as end to read to the end of the resource.
func (f *Fetcher) SetRange(start, end int64) {
	f.rng = resource.ByteRange{Start: start, End: end}
}

func (f *Fetcher) Range() resource.ByteRange {
	return f.rng
}

// Open issues the request. It may only be called once; later calls return
// ErrMisuse. Failures are returned as *AttemptError except for cancellation
// and invalid arguments.
func (f *Fetcher) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	if f.opened {
		return nil, fmt.Errorf("%w: Fetcher.Open", ErrMisuse)
	}
	f.opened = true

	if strings.TrimSpace(url) == "" {
		return nil, errors.New("url is required")
	}
	if err := f.rng.Validate(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := f.transport.Get(ctx, url, f.rng)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		kind := KindNetwork
		if transport.IsTimeout(err) {
			kind = KindTimeout
		}
		return nil, &AttemptError{Kind: kind, URL: url, Err: err}
	}
	f.resp = resp

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return &fetcherBody{f: f}, nil
	case http.StatusNotFound:
		f.Close()
		return nil, &AttemptError{Kind: KindResourceNotFound, URL: url, StatusCode: resp.StatusCode}
	default:
		f.Close()
		return nil, &AttemptError{Kind: KindUnexpectedServerResponse, URL: url, StatusCode: resp.StatusCode}
	}
}

// StatusCode is the status of the accepted response, or 0 before Open succeeds.
func (f *Fetcher) StatusCode() int {
	if f.resp == nil {
		return 0
	}
	return f.resp.StatusCode
}

// Header is the header of the response, or nil before Open.
func (f *Fetcher) Header() http.Header {
	if f.resp == nil {
		return nil
	}
	return f.resp.Header
}

// Close releases the response. The body is closed at most once.
func (f *Fetcher) Close() error {
	if f.resp == nil || f.closed {
		return nil
	}
	f.closed = true
	if f.resp.Body == nil {
		return nil
	}
	return f.resp.Body.Close()
}

// fetcherBody routes Close through the Fetcher so the body is released once.
type fetcherBody struct {
	f *Fetcher
}

func (b *fetcherBody) Read(p []byte) (int, error) {
	if b.f.closed {
		return 0, errors.New("read from closed response")
	}
	if b.f.resp.Body == nil {
		return 0, io.EOF
	}
	return b.f.resp.Body.Read(p)
}

func (b *fetcherBody) Close() error {
	return b.f.Close()
}
