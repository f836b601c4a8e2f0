package reorg

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PartRecord is the registry's bookkeeping for one part: its exact
// identifier and every ordinal observed for it, in observation order
// (which [Registry.Observe] forces to be ascending).
type PartRecord struct {
	ID       string
	Ordinals []int
}

// First returns the lowest observed ordinal. Parts rarely span the whole
// build; a part that enters the build late has a high First.
func (r PartRecord) First() int {
	if len(r.Ordinals) == 0 {
		return 0
	}
	return r.Ordinals[0]
}

// Last returns the highest observed ordinal.
func (r PartRecord) Last() int {
	if len(r.Ordinals) == 0 {
		return 0
	}
	return r.Ordinals[len(r.Ordinals)-1]
}

// Missing counts the gaps inside the part's observed span. A part absent
// from some interior slices (or with slices skipped under [SkipCorrupt])
// has Missing > 0; that is informational, not an error.
func (r PartRecord) Missing() int {
	if len(r.Ordinals) == 0 {
		return 0
	}
	span := r.Last() - r.First() + 1
	return span - len(r.Ordinals)
}

// Registry accumulates which parts exist and which ordinals each part
// observed, across one run. Part identifiers are compared exactly:
// "Part_1" and "part_1" are distinct parts, though the registry notes
// such near-misses in its warnings. A Registry is safe for concurrent
// observation of distinct parts.
type Registry struct {
	mu       sync.Mutex
	parts    map[string]*PartRecord
	norm     map[string]string
	warnings []string
}

// NewRegistry returns an empty registry for a single run.
func NewRegistry() *Registry {
	return &Registry{
		parts: make(map[string]*PartRecord),
		norm:  make(map[string]string),
	}
}

// Observe records that part appeared in the slice with the given
// ordinal. An unknown part is registered on first sight. An ordinal at
// or below the part's highest observed ordinal is rejected with an
// [OutOfOrderError] and leaves the registry unchanged.
func (g *Registry) Observe(part string, ordinal int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.parts[part]
	if !ok {
		key := normalizeID(part)
		if prior, clash := g.norm[key]; clash && prior != part {
			g.warnings = append(g.warnings,
				fmt.Sprintf("part %q resembles already-seen %q; keeping them distinct", part, prior))
		} else if !clash {
			g.norm[key] = part
		}
		rec = &PartRecord{ID: part}
		g.parts[part] = rec
	}

	if n := len(rec.Ordinals); n > 0 && ordinal <= rec.Ordinals[n-1] {
		return &OutOfOrderError{Part: part, Ordinal: ordinal, Last: rec.Ordinals[n-1]}
	}
	rec.Ordinals = append(rec.Ordinals, ordinal)
	return nil
}

// Parts returns a snapshot of every observed part, sorted by ID. The
// records are copies; mutating them does not touch the registry.
func (g *Registry) Parts() []PartRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.parts))
	for id := range g.parts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]PartRecord, 0, len(ids))
	for _, id := range ids {
		rec := g.parts[id]
		out = append(out, PartRecord{
			ID:       rec.ID,
			Ordinals: append([]int(nil), rec.Ordinals...),
		})
	}
	return out
}

// Len returns the number of distinct parts observed so far.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.parts)
}

// Warnings returns identity near-miss notes accumulated so far, in
// detection order.
func (g *Registry) Warnings() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.warnings...)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
