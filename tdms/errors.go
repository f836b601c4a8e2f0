package tdms

import "errors"

// Errors
var (
	ErrNotTDMS            = errors.New("not a TDMS file: lead-in tag not found")
	ErrUnsupportedVersion = errors.New("unsupported TDMS format version")
	ErrInvalidSegment     = errors.New("invalid TDMS segment")
	ErrUnsupported        = errors.New("unsupported TDMS feature")
)
