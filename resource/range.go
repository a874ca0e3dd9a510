package resource

import (
	"errors"
	"fmt"
)

// Unbounded is the ByteRange end sentinel meaning "to the end of the resource".
const Unbounded int64 = -1

var ErrInvalidRange = errors.New("invalid byte range")

// ByteRange is an inclusive [Start, End] window of a resource.
type ByteRange struct {
	Start int64
	End   int64
}

// WholeRange requests the entire resource.
func WholeRange() ByteRange {
	return ByteRange{Start: 0, End: Unbounded}
}

// IsWhole reports whether the range covers the entire resource, in which case
// no Range header needs to be sent.
func (r ByteRange) IsWhole() bool {
	return r.Start == 0 && r.End == Unbounded
}

func (r ByteRange) Validate() error {
	if r.Start < 0 {
		return fmt.Errorf("%w: negative start %d", ErrInvalidRange, r.Start)
	}
	if r.End != Unbounded && r.End < r.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, r.End, r.Start)
	}
	return nil
}

// Header renders the value of an HTTP Range header.
func (r ByteRange) Header() string {
	if r.End == Unbounded {
		return fmt.Sprintf("bytes=%d-", r.Start)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

func (r ByteRange) String() string {
	if r.End == Unbounded {
		return fmt.Sprintf("[%d, end]", r.Start)
	}
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}
