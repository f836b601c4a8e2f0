// Package reorg restructures slice-major build measurements into
// part-major containers.
//
// A metal printer records each build layer ("slice") into its own capture
// file holding one measurement group per part on the build plate. Analysis
// wants the transpose: one container per part, holding that part's
// measurements for every layer in build order. This package owns that
// transposition and nothing else; it never parses capture files or writes
// containers itself.
//
// # Pipeline
//
// A run walks four phases:
//
//   - Discovery: [Locate] scans the source directory, derives each slice's
//     build ordinal from its file name, and returns the slices in ascending
//     ordinal order along with the inputs it rejected.
//   - Processing: the [Driver] reads each slice through a [SliceReader],
//     records every (part, ordinal) observation in a [Registry], and hands
//     each part's payload to a [HierarchyWriter].
//   - Finalizing: once all slices are consumed the Driver asks the writer
//     to finalize every observed part (cross-slice indexes, totals).
//   - Done or Failed, captured in the run [Summary].
//
// Phase order is enforced by the Driver; see [Phase].
//
// # Collaborators
//
// The engine consumes its collaborators through two interfaces:
//
//   - [SliceReader] decodes one slice file into per-part payloads.
//   - [HierarchyWriter] lands one part's payload for one ordinal, and
//     finalizes parts when the build is complete.
//
// Payload channel data is opaque to the engine: it flows from reader to
// writer untouched.
//
// # Error taxonomy
//
// Failures carry their slice and part context and classify into four kinds:
//
//   - [DiscoveryError]: the source directory cannot yield a usable slice
//     set. Always fatal.
//   - [CorruptSliceError]: one slice file cannot be decoded. Fatal by
//     default; [SkipCorrupt] records the slice and moves on.
//   - [OutOfOrderError]: a part observed an ordinal at or below one it
//     already holds. Always fatal, the output would be misordered.
//   - [WriteError]: the writer could not land or finalize a payload.
//     Always fatal, the container is suspect.
//
// All four match their kind sentinel with [errors.Is] and expose context
// through [errors.As].
package reorg
