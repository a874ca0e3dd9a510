package download

import (
	"errors"
	"fmt"

	"github.com/gkatanacio/mirror-downloader/chunkfile"
)

var (
	ErrMisuse                   = errors.New("single-use operation called more than once")
	ErrResourceNotFound         = errors.New("resource not found")
	ErrUnexpectedServerResponse = errors.New("unexpected server response")
	ErrNetwork                  = errors.New("network error")
	ErrTimeout                  = errors.New("timeout")
	ErrCorruptData              = chunkfile.ErrCorruptData
	ErrValidationFailed         = errors.New("downloaded resource failed validation")
	ErrTooManyRetries           = errors.New("too many retries, aborting")
	ErrNoRemainingMirrors       = errors.New("cannot download resource from any mirror")
)

// Kind classifies a failed attempt against one mirror.
type Kind int

const (
	KindOther Kind = iota
	KindResourceNotFound
	KindUnexpectedServerResponse
	KindNetwork
	KindTimeout
	KindCorruptData
	KindValidationFailed
)

func (k Kind) String() string {
	switch k {
	case KindResourceNotFound:
		return "resource not found"
	case KindUnexpectedServerResponse:
		return "unexpected server response"
	case KindNetwork:
		return "network error"
	case KindTimeout:
		return "timeout"
	case KindCorruptData:
		return "corrupt data"
	case KindValidationFailed:
		return "validation failed"
	default:
		return "other"
	}
}

// DropsMirror reports whether a failure of this kind removes the mirror for
// the rest of the download. Every other kind is considered transient.
func (k Kind) DropsMirror() bool {
	return k == KindResourceNotFound || k == KindValidationFailed
}

func (k Kind) sentinel() error {
	switch k {
	case KindResourceNotFound:
		return ErrResourceNotFound
	case KindUnexpectedServerResponse:
		return ErrUnexpectedServerResponse
	case KindNetwork:
		return ErrNetwork
	case KindTimeout:
		return ErrTimeout
	case KindCorruptData:
		return ErrCorruptData
	case KindValidationFailed:
		return ErrValidationFailed
	default:
		return nil
	}
}

// AttemptError is a failed attempt against one mirror. It matches both the
// sentinel of its Kind and its cause with errors.Is.
type AttemptError struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *AttemptError) Error() string {
	msg := fmt.Sprintf("%s <%s>", e.Kind, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AttemptError) Unwrap() []error {
	var errs []error
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the classification of err, or KindOther when err did not
// come from a mirror attempt.
func KindOf(err error) Kind {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindOther
}

// ResourceError is the terminal failure of a download. Err is either
// ErrTooManyRetries or ErrNoRemainingMirrors.
type ResourceError struct {
	Err      error
	Attempts int
	Last     error
}

func (e *ResourceError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%v (%d attempts)", e.Err, e.Attempts)
	}
	return fmt.Sprintf("%v (%d attempts, last: %v)", e.Err, e.Attempts, e.Last)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
