package reorg

import "context"

// SliceReader decodes one slice capture file into per-part payloads.
//
// Implementations return payloads in a deterministic order for a given
// file and should wrap decode failures in a [CorruptSliceError]. The
// driver classifies any other failure of a slice the same way, so the
// corruption policy covers unreadable files too; only the context's own
// cancellation escapes the policy and always aborts the run.
type SliceReader interface {
	ReadSlice(ctx context.Context, s Slice) ([]Payload, error)
}

// HierarchyWriter lands part payloads in their part-major destination.
//
// WritePart appends one part's payload for one ordinal. The driver
// guarantees ordinals for a given part arrive strictly ascending, but
// calls for distinct parts may be concurrent; implementations must
// tolerate that.
//
// Finalize runs once, after every slice has been consumed, with the
// complete set of observed parts in ID order. Implementations derive
// their cross-slice artifacts (indexes, totals) here. The records are
// the driver's bookkeeping; treat them as read-only.
//
// Close releases the destination. It runs exactly once, after Finalize
// on success or as cleanup on failure, and must be safe in both cases.
type HierarchyWriter interface {
	WritePart(ctx context.Context, ordinal int, p Payload) error
	Finalize(ctx context.Context, parts []PartRecord) error
	Close() error
}
