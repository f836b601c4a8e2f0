package reorg

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// Summary is the account of one run: what was found, what was
// processed, what was skipped or rejected, and how every part ended up.
// A summary is produced for failed runs too, reflecting progress up to
// the failure.
type Summary struct {
	RunID           string         `json:"run_id"`
	Label           string         `json:"label,omitempty"`
	Source          string         `json:"source"`
	Phase           Phase          `json:"phase"`
	Started         time.Time      `json:"started"`
	Elapsed         time.Duration  `json:"elapsed_ns"`
	SlicesLocated   int            `json:"slices_located"`
	SlicesProcessed int            `json:"slices_processed"`
	Rejected        []Rejected     `json:"rejected,omitempty"`
	Skipped         []SkippedSlice `json:"skipped,omitempty"`
	Parts           []PartSummary  `json:"parts"`
	Warnings        []string       `json:"warnings,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// SkippedSlice is a slice dropped under [SkipCorrupt].
type SkippedSlice struct {
	Ordinal int    `json:"ordinal"`
	Path    string `json:"path"`
	Reason  string `json:"reason"`
}

// PartSummary is the per-part roll-up in a run summary.
type PartSummary struct {
	ID      string `json:"id"`
	Slices  int    `json:"slices"`
	First   int    `json:"first"`
	Last    int    `json:"last"`
	Missing int    `json:"missing,omitempty"`
}

// Render writes a human-readable account of the run.
func (s *Summary) Render(w io.Writer) {
	label := ""
	if s.Label != "" {
		label = fmt.Sprintf(" (%s)", s.Label)
	}
	fmt.Fprintf(w, "run %s%s: %s in %s\n", s.RunID, label, s.Phase, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  source: %s\n", s.Source)
	fmt.Fprintf(w, "  slices: %d located, %d processed", s.SlicesLocated, s.SlicesProcessed)
	if n := len(s.Skipped); n > 0 {
		fmt.Fprintf(w, ", %d skipped", n)
	}
	if n := len(s.Rejected); n > 0 {
		fmt.Fprintf(w, ", %d inputs rejected", n)
	}
	fmt.Fprintln(w)

	if len(s.Parts) > 0 {
		fmt.Fprintf(w, "  parts: %d\n", len(s.Parts))
		tw := tabwriter.NewWriter(w, 4, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "    part\tslices\tfirst\tlast\tmissing")
		for _, p := range s.Parts {
			fmt.Fprintf(tw, "    %s\t%d\t%d\t%d\t%d\n", p.ID, p.Slices, p.First, p.Last, p.Missing)
		}
		tw.Flush()
	}

	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	for _, sk := range s.Skipped {
		fmt.Fprintf(w, "  skipped slice %d (%s): %s\n", sk.Ordinal, sk.Path, sk.Reason)
	}
	if s.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", s.Error)
	}
}
