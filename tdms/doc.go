// Package tdms provides a pure Go reader for NI TDMS 2.0 files.
//
// A TDMS file is a sequence of segments. Each segment starts with a
// 28-byte lead-in ("TDSm" tag, table-of-contents flags, format version,
// and the two offsets that delimit metadata and raw data), followed by
// optional object metadata and optional raw channel data. Objects form a
// three-level hierarchy: the file, named groups, and named channels
// within groups; any level can carry typed properties.
//
// Segments are incremental: a segment only describes what changed since
// the previous one, and raw data for unchanged channels is decoded using
// the carried-over metadata. Channel data accumulates across segments in
// write order.
//
// # Reading
//
// [Open] decodes a whole file eagerly:
//
//	f, err := tdms.Open("Slice00122.tdms")
//	if err != nil { ... }
//	for _, g := range f.Groups {
//		for _, c := range g.Channels {
//			data := c.Data() // typed slice, e.g. []float64
//		}
//	}
//
// Eager decoding keeps the API small and suits files that are consumed
// in full; memory is bounded by one file's channel data.
//
// # Supported subset
//
// The reader handles the layout the measurement hardware writes:
// contiguous (non-interleaved) raw data with one-dimensional arrays of
// the scalar types in [DataType], including length-prefixed strings and
// 128-bit timestamps, in either byte order. DAQmx raw data and
// interleaved segments are rejected with [ErrUnsupported].
//
// # Errors
//
//   - [ErrNotTDMS]: the file does not start with a TDMS lead-in
//   - [ErrUnsupportedVersion]: a segment is not TDMS format 2.0
//   - [ErrInvalidSegment]: a segment contradicts itself or is truncated
//   - [ErrUnsupported]: the file uses a feature outside the subset above
package tdms
