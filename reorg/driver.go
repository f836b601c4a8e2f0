package reorg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Driver orchestrates one run end to end: discovery, per-slice
// processing, and finalization. It owns the [Registry] and calls the
// reader and writer; it never touches file formats itself.
//
// A Driver runs once. Construct a fresh one (and a fresh writer) for
// every run; nothing carries over between runs.
type Driver struct {
	reader SliceReader
	writer HierarchyWriter
	opts   *driverOptions

	registry *Registry

	mu    sync.Mutex
	phase Phase
}

// NewDriver wires a reader and writer into a run driver. The driver
// takes ownership of the writer: Run closes it.
func NewDriver(reader SliceReader, writer HierarchyWriter, opts ...Option) *Driver {
	o := defaultDriverOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Driver{
		reader:   reader,
		writer:   writer,
		opts:     o,
		registry: NewRegistry(),
		phase:    PhaseIdle,
	}
}

// Phase returns the driver's current lifecycle phase.
func (d *Driver) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

func (d *Driver) transition(to Phase) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !allowedPhase(d.phase, to) {
		panic(fmt.Sprintf("reorg: phase transition %s -> %s not allowed", d.phase, to))
	}
	d.phase = to
}

// Run reorganizes every slice under sourceDir into the writer's
// part-major destination. It returns the run summary together with the
// first fatal error, if any; the summary is always non-nil and reflects
// progress up to the failure.
//
// Cancelling ctx aborts the run cooperatively: the slice being processed
// completes, no further slice is started, and the run ends Failed.
func (d *Driver) Run(ctx context.Context, sourceDir string) (*Summary, error) {
	if p := d.Phase(); p != PhaseIdle {
		return nil, fmt.Errorf("reorg: driver already ran (phase %s)", p)
	}

	runID := d.opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	start := time.Now()
	sum := &Summary{
		RunID:   runID,
		Label:   d.opts.label,
		Source:  sourceDir,
		Started: start.UTC(),
	}
	log := d.opts.logger.With(zap.String("run_id", runID))

	// The writer is closed exactly once, on whichever path ends the run.
	closed := false
	closeWriter := func() error {
		if closed {
			return nil
		}
		closed = true
		return d.writer.Close()
	}

	fail := func(err error) (*Summary, error) {
		d.transition(PhaseFailed)
		if cerr := closeWriter(); cerr != nil {
			log.Warn("closing writer after failure", zap.Error(cerr))
		}
		d.finishSummary(sum, start)
		sum.Error = err.Error()
		log.Error("run failed", zap.Error(err))
		return sum, err
	}

	d.transition(PhaseScanning)
	log.Info("scanning source directory", zap.String("dir", sourceDir))
	scan, err := Locate(sourceDir)
	if err != nil {
		return fail(err)
	}
	sum.SlicesLocated = len(scan.Slices)
	sum.Rejected = scan.Rejected
	for _, rej := range scan.Rejected {
		log.Warn("input rejected", zap.String("path", rej.Path), zap.String("reason", rej.Reason))
	}
	log.Info("scan complete",
		zap.Int("slices", len(scan.Slices)),
		zap.Int("rejected", len(scan.Rejected)))

	d.transition(PhaseProcessing)
	if err := d.processAll(ctx, scan.Slices, sum, log); err != nil {
		return fail(err)
	}

	d.transition(PhaseFinalizing)
	parts := d.registry.Parts()
	log.Info("finalizing parts", zap.Int("parts", len(parts)))
	if err := d.writer.Finalize(ctx, parts); err != nil {
		return fail(ensureWriteErr("", -1, err))
	}
	if err := closeWriter(); err != nil {
		return fail(&WriteError{Ordinal: -1, Err: err})
	}

	d.transition(PhaseDone)
	d.finishSummary(sum, start)
	log.Info("run complete",
		zap.Int("slices", sum.SlicesProcessed),
		zap.Int("parts", len(sum.Parts)),
		zap.Duration("elapsed", sum.Elapsed))
	return sum, nil
}

// sliceResult carries one decoded slice from the reader to the
// processing loop.
type sliceResult struct {
	slice    Slice
	payloads []Payload
	err      error
}

func (d *Driver) processAll(ctx context.Context, slices []Slice, sum *Summary, log *zap.Logger) error {
	handle := func(res sliceResult) error {
		// Abort takes effect at slice granularity: a decoded slice is
		// dropped rather than written once the run is cancelled.
		if err := ctx.Err(); err != nil {
			return err
		}
		if res.err != nil {
			cerr := ensureCorrupt(res.slice, res.err)
			if d.opts.policy == SkipCorrupt {
				sum.Skipped = append(sum.Skipped, SkippedSlice{
					Ordinal: cerr.Ordinal,
					Path:    cerr.Path,
					Reason:  cerr.Err.Error(),
				})
				log.Warn("skipping corrupt slice",
					zap.Int("ordinal", cerr.Ordinal),
					zap.String("path", cerr.Path),
					zap.Error(cerr.Err))
				return nil
			}
			return cerr
		}
		if err := d.processSlice(ctx, res.slice, res.payloads); err != nil {
			return err
		}
		sum.SlicesProcessed++
		log.Debug("slice processed",
			zap.Int("ordinal", res.slice.Ordinal),
			zap.Int("parts", len(res.payloads)))
		return nil
	}

	if !d.opts.prefetch {
		for _, s := range slices {
			if err := ctx.Err(); err != nil {
				return err
			}
			payloads, err := d.reader.ReadSlice(ctx, s)
			if err := handle(sliceResult{slice: s, payloads: payloads, err: err}); err != nil {
				return err
			}
		}
		return ctx.Err()
	}

	// Single-slot prefetch: the unbuffered channel keeps exactly one
	// decoded slice in flight ahead of the writer.
	pctx, cancel := context.WithCancel(ctx)
	results := make(chan sliceResult)
	go func() {
		defer close(results)
		for _, s := range slices {
			payloads, err := d.reader.ReadSlice(pctx, s)
			select {
			case results <- sliceResult{slice: s, payloads: payloads, err: err}:
			case <-pctx.Done():
				return
			}
		}
	}()
	defer func() {
		cancel()
		for range results {
		}
	}()

	for res := range results {
		if err := handle(res); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// processSlice lands every part payload of one slice. With more than
// one worker, distinct parts are observed and written concurrently; the
// slice is not done until all of its parts are.
func (d *Driver) processSlice(ctx context.Context, s Slice, payloads []Payload) error {
	if d.opts.workers <= 1 {
		for _, p := range payloads {
			if err := d.processPart(ctx, s, p); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.workers)
	for _, p := range payloads {
		g.Go(func() error {
			return d.processPart(gctx, s, p)
		})
	}
	return g.Wait()
}

func (d *Driver) processPart(ctx context.Context, s Slice, p Payload) error {
	if err := d.registry.Observe(p.Part, s.Ordinal); err != nil {
		return err
	}
	if err := d.writer.WritePart(ctx, s.Ordinal, p); err != nil {
		return ensureWriteErr(p.Part, s.Ordinal, err)
	}
	return nil
}

func (d *Driver) finishSummary(sum *Summary, start time.Time) {
	sum.Phase = d.Phase()
	sum.Elapsed = time.Since(start)
	sum.Warnings = append(sum.Warnings, d.registry.Warnings()...)
	for _, rec := range d.registry.Parts() {
		sum.Parts = append(sum.Parts, PartSummary{
			ID:      rec.ID,
			Slices:  len(rec.Ordinals),
			First:   rec.First(),
			Last:    rec.Last(),
			Missing: rec.Missing(),
		})
	}
}

// ensureCorrupt classifies a reader failure, preserving an existing
// [CorruptSliceError] wrapper when the reader already supplied one.
func ensureCorrupt(s Slice, err error) *CorruptSliceError {
	var ce *CorruptSliceError
	if errors.As(err, &ce) {
		return ce
	}
	return &CorruptSliceError{Path: s.Path, Ordinal: s.Ordinal, Err: err}
}

// ensureWriteErr classifies a writer failure, preserving an existing
// [WriteError] wrapper.
func ensureWriteErr(part string, ordinal int, err error) error {
	var we *WriteError
	if errors.As(err, &we) {
		return err
	}
	return &WriteError{Part: part, Ordinal: ordinal, Err: err}
}
