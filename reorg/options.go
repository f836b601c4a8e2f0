package reorg

import "go.uber.org/zap"

// CorruptPolicy decides what an undecodable slice does to the run.
type CorruptPolicy int

const (
	// AbortOnCorrupt fails the run on the first undecodable slice.
	// This is the default: silent holes in part histories are worse
	// than a failed run.
	AbortOnCorrupt CorruptPolicy = iota

	// SkipCorrupt records the slice in the run summary and moves on.
	// Parts simply lack that ordinal; no placeholder is written.
	SkipCorrupt
)

func (p CorruptPolicy) String() string {
	switch p {
	case AbortOnCorrupt:
		return "abort"
	case SkipCorrupt:
		return "skip"
	default:
		return "unknown"
	}
}

// Option configures a [Driver].
type Option func(*driverOptions)

type driverOptions struct {
	logger   *zap.Logger
	policy   CorruptPolicy
	workers  int
	prefetch bool
	label    string
	runID    string
}

func defaultDriverOptions() *driverOptions {
	return &driverOptions{
		logger:   zap.NewNop(),
		policy:   AbortOnCorrupt,
		workers:  1,
		prefetch: true,
	}
}

// WithLogger sets the run logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *driverOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCorruptPolicy sets how the run reacts to undecodable slices.
func WithCorruptPolicy(p CorruptPolicy) Option {
	return func(o *driverOptions) {
		o.policy = p
	}
}

// WithWorkers sets how many parts of one slice are written concurrently.
// The default of 1 writes parts sequentially; values below 1 are ignored.
// Whatever the worker count, slices themselves are always consumed one
// at a time, in build order.
func WithWorkers(n int) Option {
	return func(o *driverOptions) {
		if n >= 1 {
			o.workers = n
		}
	}
}

// WithPrefetch controls whether the next slice is decoded while the
// current one is written. On by default; disable it to bound memory to
// a single decoded slice.
func WithPrefetch(enabled bool) Option {
	return func(o *driverOptions) {
		o.prefetch = enabled
	}
}

// WithLabel attaches a human-readable build label to the run summary.
func WithLabel(label string) Option {
	return func(o *driverOptions) {
		o.label = label
	}
}

// WithRunID pins the run identifier instead of generating one. Useful
// when the caller has already minted an identifier for bookkeeping.
func WithRunID(id string) Option {
	return func(o *driverOptions) {
		if id != "" {
			o.runID = id
		}
	}
}
