package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/recipe-rag/services/ingestion"
	"go.uber.org/zap"
)

// NewIngestCmd creates the batch ingestion command.
func NewIngestCmd() *cobra.Command {
	var (
		synthetic int
		errorLog  string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the recipe corpus into the vector store",
		Long: `Load the base recipes plus N synthetic recipes as a single batch.

The batch is all or nothing. On failure the error and its stack trace
are written to the error log and ragctl exits with status 1.

Examples:
  ragctl ingest
  ragctl ingest --synthetic 5000 --error-log /tmp/ingest.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("synthetic") {
				synthetic = cfg.Ingest.SyntheticCount
			}
			if !cmd.Flags().Changed("error-log") {
				errorLog = cfg.Ingest.ErrorLogPath
			}
			if synthetic < 0 {
				return fmt.Errorf("--synthetic must not be negative, got %d", synthetic)
			}

			logger := loggerFrom(cmd)
			err = runIngest(cmd, synthetic)
			if err == nil {
				return nil
			}
			if werr := ingestion.WriteErrorLog(errorLog, err); werr != nil {
				logger.Error("failed to write error log", zap.String("path", errorLog), zap.Error(werr))
				return err
			}
			return fmt.Errorf("%w (details in %s)", err, errorLog)
		},
	}

	cmd.Flags().IntVar(&synthetic, "synthetic", 1000, "Number of synthetic recipes to add, overrides INGEST_SYNTHETIC_COUNT")
	cmd.Flags().StringVar(&errorLog, "error-log", "ingest_error.log", "Where to write the failure report, overrides INGEST_ERROR_LOG")
	return cmd
}

func runIngest(cmd *cobra.Command, synthetic int) error {
	deps, err := openDependencies(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	corpus := ingestion.DefaultCorpus(synthetic)
	report, err := deps.Ingester.Ingest(cmd.Context(), corpus)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ingested %d documents in batch %s (%s)\n", report.Documents, report.BatchID, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Embedding model: %s\n", report.Model)
	if report.Reindexed && report.Index != nil {
		fmt.Fprintf(out, "Rebuilt %s with %d lists\n", report.Index.Name, report.Index.Lists)
	}
	return nil
}
