// Package h5part persists part-major measurement hierarchies as HDF5
// containers, one file per physical part, using the pure-Go writer in
// [github.com/robert-malhotra/go-hdf5/hdf5].
//
// # Container layout
//
// A part named P materializes as <dest>/P.h5 (the name is sanitized for
// the filesystem, see [PartFileName]):
//
//	/Slices/<ordinal>/<channel>  one dataset per measurement channel,
//	                             samples passed through unmodified
//	/Index                       int64 column: observed slice ordinals,
//	                             ascending
//	/LayerThickness              int64 column, row-aligned with Index
//
// Containers are created (truncated) on the part's first write of a run,
// so re-running a conversion against a populated destination converges
// to the same final state.
//
// # Metadata placement
//
// The HDF5 writer dependency attaches attributes at dataset creation
// only, so all container metadata rides on the Index dataset: scalar
// Version, TDMS_GroupName, Vertices (total
// X-Axis samples across the part's slices), optional BuildLabel and
// RunID, and the four row-aligned string arrays LayerStartTime,
// LayerEndTime, PartStartTime and PartEndTime. Timestamps render as UTC
// microsecond strings such as "2020-01-20T22:59:29.514806+0000".
//
// # Payload mapping
//
// Most sample slices are stored as-is. Two decoded types have no native
// HDF5 representation here and are mapped: bool samples widen to uint8
// and timestamp samples become int64 microseconds since the Unix epoch.
// String channels fail with a WriteError; the dependency cannot encode
// variable-length string datasets.
//
// # Concurrency
//
// [Writer.WritePart] may be called concurrently for distinct parts; each
// part owns its own container file. Calls for the same part must be
// serialized by the caller, which the reorg driver guarantees.
package h5part
