package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BlueQuartzSoftware/TDMSData-CDME/h5part"
	"github.com/BlueQuartzSoftware/TDMSData-CDME/internal/catalog"
	"github.com/BlueQuartzSoftware/TDMSData-CDME/internal/ingest"
	"github.com/BlueQuartzSoftware/TDMSData-CDME/internal/jobfile"
	"github.com/BlueQuartzSoftware/TDMSData-CDME/reorg"
)

var convertFlags struct {
	config      string
	label       string
	groups      []string
	skipCorrupt bool
	workers     int
	noPrefetch  bool
	noCatalog   bool
	summaryJSON string
}

var convertCmd = &cobra.Command{
	Use:   "convert [input-dir] [output-dir]",
	Short: "Convert a build's slice files into per-part containers",
	Long: `Scans input-dir for Slice<N>.tdms files, reads them in ascending layer
order, and writes one <part>.h5 container per TDMS group found, each
holding that part's channel data for every layer it appears on.

Directories may come from the arguments or from a YAML job file
(--config); arguments and explicitly set flags win over file values.

Example:
  tdms2h5 convert ./build_47 ./out --label B47 --skip-corrupt --workers 4`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd)
}

func addConvertFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&convertFlags.config, "config", "c", "", "YAML job file supplying defaults for this run")
	f.StringVarP(&convertFlags.label, "label", "l", "", "Build label stamped into containers and the catalog")
	f.StringSliceVarP(&convertFlags.groups, "groups", "g", nil, "Convert only these TDMS groups (default: all)")
	f.BoolVar(&convertFlags.skipCorrupt, "skip-corrupt", false, "Skip undecodable slices instead of aborting the run")
	f.IntVar(&convertFlags.workers, "workers", 1, "Parts written concurrently within a slice")
	f.BoolVar(&convertFlags.noPrefetch, "no-prefetch", false, "Disable read-ahead of the next slice")
	f.BoolVar(&convertFlags.noCatalog, "no-catalog", false, "Do not record the run in the destination catalog")
	f.StringVar(&convertFlags.summaryJSON, "summary-json", "", "Also write the run summary as JSON to this path")
}

func runConvert(cmd *cobra.Command, args []string) error {
	job, err := convertJob(cmd, args)
	if err != nil {
		return err
	}

	runID := uuid.NewString()

	writer, err := h5part.NewWriter(job.Destination,
		h5part.WithLogger(logger),
		h5part.WithBuildLabel(job.Label),
		h5part.WithRunID(runID),
	)
	if err != nil {
		return err
	}

	reader := ingest.New(
		ingest.WithGroups(job.Groups),
		ingest.WithLogger(logger),
	)

	policy := reorg.AbortOnCorrupt
	if job.SkipCorrupt {
		policy = reorg.SkipCorrupt
	}
	driver := reorg.NewDriver(reader, writer,
		reorg.WithLogger(logger),
		reorg.WithLabel(job.Label),
		reorg.WithRunID(runID),
		reorg.WithCorruptPolicy(policy),
		reorg.WithWorkers(job.Workers),
		reorg.WithPrefetch(job.Prefetch),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, runErr := driver.Run(ctx, job.Source)
	if sum == nil {
		return runErr
	}
	sum.Render(cmd.OutOrStdout())

	if convertFlags.summaryJSON != "" {
		if err := writeSummaryJSON(convertFlags.summaryJSON, sum); err != nil {
			if runErr == nil {
				runErr = err
			} else {
				logger.Warn("failed to write summary JSON", zap.Error(err))
			}
		}
	}

	if job.Catalog {
		if err := recordRun(cmd, job.Destination, sum); err != nil {
			if runErr == nil {
				runErr = err
			} else {
				logger.Warn("failed to record run in catalog", zap.Error(err))
			}
		}
	}

	return runErr
}

// convertJob merges the three configuration sources in precedence
// order: job file, then positional arguments, then explicitly set
// flags. Flags left at their defaults do not override file values.
func convertJob(cmd *cobra.Command, args []string) (jobfile.Job, error) {
	job := jobfile.Default()
	if convertFlags.config != "" {
		loaded, err := jobfile.Load(convertFlags.config)
		if err != nil {
			return jobfile.Job{}, err
		}
		job = loaded
	}

	if len(args) > 0 {
		job.Source = args[0]
	}
	if len(args) > 1 {
		job.Destination = args[1]
	}

	flags := cmd.Flags()
	if flags.Changed("label") {
		job.Label = convertFlags.label
	}
	if flags.Changed("groups") {
		job.Groups = convertFlags.groups
	}
	if flags.Changed("skip-corrupt") {
		job.SkipCorrupt = convertFlags.skipCorrupt
	}
	if flags.Changed("workers") {
		job.Workers = convertFlags.workers
	}
	if flags.Changed("no-prefetch") {
		job.Prefetch = !convertFlags.noPrefetch
	}
	if flags.Changed("no-catalog") {
		job.Catalog = !convertFlags.noCatalog
	}

	if job.Source == "" || job.Destination == "" {
		return jobfile.Job{}, errors.New("an input and an output directory are required (arguments or job file)")
	}
	if err := job.Validate(); err != nil {
		return jobfile.Job{}, err
	}
	return job, nil
}

func writeSummaryJSON(path string, sum *reorg.Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

func recordRun(cmd *cobra.Command, dir string, sum *reorg.Summary) error {
	cat, err := catalog.Open(dir)
	if err != nil {
		return err
	}
	defer cat.Close()
	return cat.Record(cmd.Context(), sum)
}
