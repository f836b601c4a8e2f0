package reorg

import (
	"errors"
	"fmt"
)

// Kind sentinels. Every typed error below matches exactly one of these
// with errors.Is, so callers can classify without reaching for the
// concrete type.
var (
	ErrDiscovery    = errors.New("slice discovery failed")
	ErrCorruptSlice = errors.New("corrupt slice")
	ErrOutOfOrder   = errors.New("slice out of order")
	ErrWrite        = errors.New("container write failed")
)

// DiscoveryError reports that the source directory cannot yield a usable
// slice set: unreadable directory, no recognizable slice files, or two
// files claiming the same ordinal. Discovery failures are always fatal.
type DiscoveryError struct {
	Dir    string // source directory that was scanned
	Reason string // what made the scan unusable
	Err    error  // underlying cause, if any
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery in %s: %s: %v", e.Dir, e.Reason, e.Err)
	}
	return fmt.Sprintf("discovery in %s: %s", e.Dir, e.Reason)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *DiscoveryError) Is(target error) bool { return target == ErrDiscovery }

// CorruptSliceError reports that one slice file could not be decoded into
// part payloads. The driver's corruption policy decides whether the run
// aborts or records the slice and continues.
type CorruptSliceError struct {
	Path    string // slice file that failed to decode
	Ordinal int    // its position in the build order
	Err     error  // underlying decode failure
}

func (e *CorruptSliceError) Error() string {
	return fmt.Sprintf("slice %d (%s): %v", e.Ordinal, e.Path, e.Err)
}

func (e *CorruptSliceError) Unwrap() error { return e.Err }

func (e *CorruptSliceError) Is(target error) bool { return target == ErrCorruptSlice }

// OutOfOrderError reports an ordinal regression: a part observed an
// ordinal at or below the highest it already holds. Appending it would
// misorder the part's container, so the run always aborts.
type OutOfOrderError struct {
	Part    string // part whose order was violated
	Ordinal int    // offending ordinal
	Last    int    // highest ordinal already observed for the part
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("part %q: ordinal %d arrived after %d", e.Part, e.Ordinal, e.Last)
}

func (e *OutOfOrderError) Is(target error) bool { return target == ErrOutOfOrder }

// WriteError reports that the hierarchy writer could not land a payload
// or finalize a part. The destination container is suspect, so the run
// always aborts.
type WriteError struct {
	Part    string // destination part, empty for finalize-wide failures
	Ordinal int    // slice ordinal being written, -1 during finalize
	Err     error  // underlying writer failure
}

func (e *WriteError) Error() string {
	switch {
	case e.Ordinal < 0 && e.Part == "":
		return fmt.Sprintf("finalize: %v", e.Err)
	case e.Ordinal < 0:
		return fmt.Sprintf("finalize part %q: %v", e.Part, e.Err)
	default:
		return fmt.Sprintf("write part %q slice %d: %v", e.Part, e.Ordinal, e.Err)
	}
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWrite }
