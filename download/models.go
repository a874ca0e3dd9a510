package download

import (
	"context"
	"time"
)

const (
	defaultRetryBudget   = 100
	defaultRetryDelay    = 10 * time.Second
	defaultBufferSize    = 32 * 1024
	defaultVerifyWorkers = 4
)

// Downloader fetches one resource to one destination. Download may only be
// called once per value.
type Downloader interface {
	Download(ctx context.Context) error
}

// ProgressFunc receives the number of downloaded bytes and the resource size
// after every buffer written to the destination.
type ProgressFunc func(downloaded, total int64)

// Logger is the logging surface the downloaders need.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Options represents the configuration for the downloaders.
type Options struct {
	// RetryBudget is the number of mirror attempts shared by all mirrors and rounds.
	RetryBudget int
	// RetryDelay is the pause after a full pass over the mirrors fails.
	// Zero means the default; a negative value disables the pause.
	RetryDelay time.Duration
	// BufferSize is the size of each read from the response body.
	BufferSize int
	// VerifyWorkers bounds parallel chunk hashing when resuming or validating.
	VerifyWorkers int

	Progress ProgressFunc
	Logger   Logger
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		RetryBudget:   defaultRetryBudget,
		RetryDelay:    defaultRetryDelay,
		BufferSize:    defaultBufferSize,
		VerifyWorkers: defaultVerifyWorkers,
	}
}

func (o Options) withDefaults() Options {
	if o.RetryBudget <= 0 {
		o.RetryBudget = defaultRetryBudget
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = defaultRetryDelay
	} else if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	if o.VerifyWorkers <= 0 {
		o.VerifyWorkers = defaultVerifyWorkers
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
	return o
}
