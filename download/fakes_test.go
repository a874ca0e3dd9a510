package download_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gkatanacio/mirror-downloader/resource"
	"github.com/gkatanacio/mirror-downloader/transport"
)

type request struct {
	URL   string
	Range resource.ByteRange
}

type handlerFunc func(url string, r resource.ByteRange) (*transport.Response, error)

// fakeTransport records every request and answers through a per-URL handler.
// Unknown URLs get a 404.
type fakeTransport struct {
	mu       sync.Mutex
	requests []request
	handlers map[string]handlerFunc
}

func newFakeTransport(handlers map[string]handlerFunc) *fakeTransport {
	return &fakeTransport{handlers: handlers}
}

func (f *fakeTransport) Get(_ context.Context, url string, r resource.ByteRange) (*transport.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, request{URL: url, Range: r})
	h, ok := f.handlers[url]
	f.mu.Unlock()

	if !ok {
		return status(http.StatusNotFound), nil
	}
	return h(url, r)
}

func (f *fakeTransport) Requests() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

func (f *fakeTransport) Count(url string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.URL == url {
			n++
		}
	}
	return n
}

// closeCounter counts Close calls on a response body.
type closeCounter struct {
	io.Reader
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func status(code int) *transport.Response {
	return &transport.Response{
		StatusCode: code,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}
}

// serveRanges answers like a range-capable HTTP server: 200 with the whole
// payload for an unranged request, 206 with the requested slice otherwise.
func serveRanges(payload []byte) handlerFunc {
	return func(_ string, r resource.ByteRange) (*transport.Response, error) {
		if r.IsWhole() {
			return &transport.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{},
				Body:       io.NopCloser(bytes.NewReader(payload)),
			}, nil
		}

		end := r.End
		if end == resource.Unbounded || end >= int64(len(payload)) {
			end = int64(len(payload)) - 1
		}

		h := http.Header{}
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.Start, end, len(payload)))

		return &transport.Response{
			StatusCode: http.StatusPartialContent,
			Header:     h,
			Body:       io.NopCloser(bytes.NewReader(payload[r.Start : end+1])),
		}, nil
	}
}

// ignoreRanges always answers 200 with the whole payload.
func ignoreRanges(payload []byte) handlerFunc {
	return func(string, resource.ByteRange) (*transport.Response, error) {
		return &transport.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(bytes.NewReader(payload)),
		}, nil
	}
}

// serveLimited behaves like serveRanges but ends every body after n bytes.
func serveLimited(payload []byte, n int64) handlerFunc {
	serve := serveRanges(payload)
	return func(url string, r resource.ByteRange) (*transport.Response, error) {
		resp, err := serve(url, r)
		if err != nil {
			return nil, err
		}
		resp.Body = io.NopCloser(io.LimitReader(resp.Body, n))
		return resp, nil
	}
}

func respondWith(code int) handlerFunc {
	return func(string, resource.ByteRange) (*transport.Response, error) {
		return status(code), nil
	}
}

func failWith(timeout bool) handlerFunc {
	return func(url string, _ resource.ByteRange) (*transport.Response, error) {
		if timeout {
			return nil, transport.NewError(url, context.DeadlineExceeded, true)
		}
		return nil, transport.NewError(url, errors.New("connection refused"), false)
	}
}

func payloadOf(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

func sha(b []byte) resource.Digest {
	sum := sha256.Sum256(b)
	return sum[:]
}

func chunksOf(payload []byte, chunkSize int) []resource.Chunk {
	var chunks []resource.Chunk
	for off := 0; off < len(payload); off += chunkSize {
		end := min(off+chunkSize, len(payload))
		chunks = append(chunks, resource.Chunk{Size: int64(end - off), Hash: sha(payload[off:end])})
	}
	return chunks
}

func corrupted(payload []byte, at int) []byte {
	bad := append([]byte(nil), payload...)
	bad[at] ^= 0xff
	return bad
}

// failAfter ends the body with err after n bytes.
type failAfter struct {
	r   io.Reader
	err error
}

func (f *failAfter) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

// serveThenFail behaves like serveRanges but breaks every body after n bytes.
func serveThenFail(payload []byte, n int64, err error) handlerFunc {
	serve := serveRanges(payload)
	return func(url string, r resource.ByteRange) (*transport.Response, error) {
		resp, serr := serve(url, r)
		if serr != nil {
			return nil, serr
		}
		resp.Body = io.NopCloser(&failAfter{r: io.LimitReader(resp.Body, n), err: err})
		return resp, nil
	}
}
