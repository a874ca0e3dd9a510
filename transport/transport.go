// Package transport issues single HTTP GET requests with an optional byte
// range. It reports whatever status the server answered with and only turns
// connection-level failures (DNS, refused, reset, TLS, deadline) into errors.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gkatanacio/mirror-downloader/resource"
)

// Transport is the capability the downloaders need from the network.
type Transport interface {
	Get(ctx context.Context, url string, r resource.ByteRange) (*Response, error)
}

// Response is an answered request. The caller must close Body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Error is a request that never got an HTTP answer.
type Error struct {
	URL     string
	Err     error
	timeout bool
}

// NewError builds a transport error. Fake transports in tests use it to
// simulate connection failures.
func NewError(url string, err error, timeout bool) *Error {
	return &Error{URL: url, Err: err, timeout: timeout}
}

func (e *Error) Error() string {
	if e.timeout {
		return fmt.Sprintf("timeout <%s>: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("connection error <%s>: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request failed because a deadline passed.
func (e *Error) Timeout() bool {
	return e.timeout
}

// Options configures HTTPTransport.
type Options struct {
	// Timeout bounds connecting, the TLS handshake, the wait for response
	// headers and every single read of the body. A body that keeps delivering
	// bytes is never cut off, however long the transfer takes.
	// Default: 30s
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxIdleConnsPerHost sets the maximum idle connections per mirror host.
	// Default: 4
	MaxIdleConnsPerHost int

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:             30 * time.Second,
		UserAgent:           "mirror-downloader/1.0",
		MaxIdleConnsPerHost: 4,
	}
}

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	client *http.Client
	opts   Options
}

func NewHTTPTransport(opts Options) *HTTPTransport {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = defaults.MaxIdleConnsPerHost
	}

	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: 30 * time.Second,
	}

	rt := http.DefaultTransport.(*http.Transport).Clone()
	rt.DialContext = dialer.DialContext
	rt.TLSHandshakeTimeout = opts.Timeout
	rt.ResponseHeaderTimeout = opts.Timeout
	rt.MaxIdleConnsPerHost = opts.MaxIdleConnsPerHost
	rt.DisableCompression = true // ranges address raw bytes
	if opts.InsecureSkipVerify {
		rt.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &HTTPTransport{
		// no Client.Timeout: it would also bound the body transfer
		client: &http.Client{Transport: rt},
		opts:   opts,
	}
}

// Get issues one GET request. Non-2xx answers are returned as responses, not errors.
func (t *HTTPTransport) Get(ctx context.Context, url string, r resource.ByteRange) (*Response, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("create request: %w", err)
	}

	if !r.IsWhole() {
		req.Header.Set("Range", r.Header())
	}
	if t.opts.UserAgent != "" {
		req.Header.Set("User-Agent", t.opts.UserAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		cancel(nil)
		return nil, NewError(url, err, IsTimeout(err))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       newIdleBody(ctx, cancel, url, resp.Body, t.opts.Timeout),
	}, nil
}

// ErrReadTimeout is the cause of a body read that received nothing for the
// whole timeout.
var ErrReadTimeout = errors.New("no data received before the read timeout")

// idleBody fails a Read that stalls longer than timeout by cancelling the
// request context. The clock only runs while a Read is in progress.
type idleBody struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	url     string
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
}

func newIdleBody(ctx context.Context, cancel context.CancelCauseFunc, url string, body io.ReadCloser, timeout time.Duration) *idleBody {
	b := &idleBody{
		ctx:     ctx,
		cancel:  cancel,
		url:     url,
		body:    body,
		timeout: timeout,
	}
	b.timer = time.AfterFunc(timeout, func() { cancel(ErrReadTimeout) })
	b.timer.Stop()
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	b.timer.Reset(b.timeout)
	n, err := b.body.Read(p)
	b.timer.Stop()

	if err != nil && err != io.EOF && errors.Is(context.Cause(b.ctx), ErrReadTimeout) {
		return n, NewError(b.url, ErrReadTimeout, true)
	}
	return n, err
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	err := b.body.Close()
	b.cancel(nil)
	return err
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// ContentRange is a parsed Content-Range header. Total is -1 when the
// server did not state the resource length.
type ContentRange struct {
	Start int64
	End   int64
	Total int64
}

// ParseContentRange reads a "bytes start-end/total" header value, where total
// may be "*".
func ParseContentRange(header string) (ContentRange, error) {
	invalid := func(reason string) (ContentRange, error) {
		return ContentRange{}, fmt.Errorf("invalid Content-Range %q: %s", header, reason)
	}

	unit, rest, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || unit != "bytes" {
		return invalid("expected bytes unit")
	}

	span, length, ok := strings.Cut(rest, "/")
	if !ok {
		return invalid("missing length")
	}

	first, last, ok := strings.Cut(span, "-")
	if !ok {
		return invalid("missing range")
	}

	var cr ContentRange
	var err error
	if cr.Start, err = strconv.ParseInt(first, 10, 64); err != nil || cr.Start < 0 {
		return invalid("bad first byte")
	}
	if cr.End, err = strconv.ParseInt(last, 10, 64); err != nil || cr.End < cr.Start {
		return invalid("bad last byte")
	}

	cr.Total = -1
	if length != "*" {
		if cr.Total, err = strconv.ParseInt(length, 10, 64); err != nil || cr.Total <= cr.End {
			return invalid("bad length")
		}
	}

	return cr, nil
}
