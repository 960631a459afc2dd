package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/anrid/france-mortality/pkg/config"
	"github.com/anrid/france-mortality/pkg/logger"
	"github.com/anrid/france-mortality/pkg/pipeline"
	"github.com/spf13/cobra"
)

var (
	catalogFile string
	dataDir     string
	resultsDir  string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "mortality",
	Short: "Covid-19 first wave excess mortality in France",
	Long: `Compares French mortality rates by age during the Covid-19 first wave
with the 2016/2017 flu season, using INSEE death registers and age pyramids.

Examples:
  mortality all
  mortality download
  mortality import
  mortality compute --dump`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree; an interrupt cancels the run.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "dataset catalog YAML (default is the built-in catalog)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "directory for raw downloads and the staging database")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results", "", "directory for the output charts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// setup loads configuration, applies flags and opens the pipeline.
func setup() (*pipeline.Pipeline, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if resultsDir != "" {
		cfg.ResultsDir = resultsDir
	}
	if catalogFile != "" {
		cfg.CatalogPath = catalogFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log := logger.New(cfg)

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}

	p, err := pipeline.New(cfg, catalog, log)
	if err != nil {
		return nil, nil, err
	}
	return p, log, nil
}
