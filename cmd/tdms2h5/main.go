// Command tdms2h5 restructures slice-major TDMS captures from a metal
// 3D printer into part-major HDF5 containers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tdms2h5",
	Short: "Reorganize slice-major TDMS captures into part-major HDF5 containers",
	Long: `The printer writes one TDMS file per build layer, each holding every
part's measurements for that layer. Analysis wants the opposite
arrangement: one HDF5 container per part, holding that part's
measurements across all layers.

tdms2h5 convert performs the reorganization. inspect prints the
hierarchy of a produced container, and runs lists the conversion
history recorded in a destination directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
