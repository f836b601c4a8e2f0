package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/BlueQuartzSoftware/TDMSData-CDME/internal/catalog"
)

var runsFlags struct {
	limit int
	run   string
}

var runsCmd = &cobra.Command{
	Use:   "runs <output-dir>",
	Short: "List conversion runs recorded in a destination catalog",
	Long: `Every convert run records its outcome in a SQLite catalog inside the
output directory (unless --no-catalog was given). runs lists that
history, newest first. With --run it shows a single run in detail:
the parts it produced and any slices it skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "Most recent runs to show (0 shows all)")
	runsCmd.Flags().StringVar(&runsFlags.run, "run", "", "Show one run in detail by its ID")
}

func runRuns(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if _, err := os.Stat(filepath.Join(dir, catalog.FileName)); err != nil {
		return fmt.Errorf("no catalog recorded under %s", dir)
	}

	cat, err := catalog.Open(dir)
	if err != nil {
		return err
	}
	defer cat.Close()

	if runsFlags.run != "" {
		return renderRun(cmd.Context(), cmd.OutOrStdout(), cat, runsFlags.run)
	}
	return renderRuns(cmd.Context(), cmd.OutOrStdout(), cat, runsFlags.limit)
}

func renderRuns(ctx context.Context, w io.Writer, cat *catalog.Catalog, limit int) error {
	runs, err := cat.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tLABEL\tPHASE\tSLICES\tPARTS\tELAPSED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			r.Started.Format(time.RFC3339), r.ID, r.Label, r.Phase,
			r.SlicesProcessed, r.SlicesLocated, r.Parts,
			r.Elapsed.Round(time.Millisecond), r.Error)
	}
	return tw.Flush()
}

func renderRun(ctx context.Context, w io.Writer, cat *catalog.Catalog, runID string) error {
	parts, err := cat.PartsOf(ctx, runID)
	if err != nil {
		return err
	}
	skips, err := cat.SliceErrorsOf(ctx, runID)
	if err != nil {
		return err
	}
	if len(parts) == 0 && len(skips) == 0 {
		return fmt.Errorf("run %s not found in catalog (or recorded nothing)", runID)
	}

	if len(parts) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PART\tSLICES\tFIRST\tLAST\tMISSING")
		for _, p := range parts {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", p.Part, p.Slices, p.First, p.Last, p.Missing)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(skips) > 0 {
		fmt.Fprintln(w, "skipped slices:")
		for _, s := range skips {
			fmt.Fprintf(w, "  %d  %s: %s\n", s.Ordinal, s.Path, s.Error)
		}
	}
	return nil
}
