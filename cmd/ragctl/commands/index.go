package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewReindexCmd creates the forced index rebuild command.
func NewReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the approximate nearest-neighbor index",
		Long: `Drop and recreate the IVFFlat index with a list count sized to the
current table, then refresh planner statistics.

The sqlite backend searches exactly and has no index to rebuild.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDependencies(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(context.Background()) }()

			state, rebuilt, err := deps.Ingester.MaintainIndex(cmd.Context(), true)
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if !rebuilt || state == nil {
				fmt.Fprintf(out, "Backend %s has no approximate index, nothing to rebuild\n", deps.Store.Backend())
				return nil
			}
			fmt.Fprintf(out, "Rebuilt %s: %d lists over %d rows (%s)\n",
				state.Name, state.Lists, state.RowCount, state.Metric)
			return nil
		},
	}
}

// NewStatsCmd creates the collection summary command.
func NewStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the stored collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDependencies(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(context.Background()) }()

			stats, err := deps.Retriever.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				body, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Fprintf(out, "%s\n", body)
				return nil
			}

			fmt.Fprintf(out, "Backend:          %s\n", stats.Backend)
			fmt.Fprintf(out, "Documents:        %d\n", stats.Documents)
			fmt.Fprintf(out, "Embedding model:  %s\n", stats.EmbeddingModel)
			if stats.StaleDocuments > 0 {
				fmt.Fprintf(out, "Stale documents:  %d (embedded with another model; re-embedding needs a fresh collection)\n", stats.StaleDocuments)
			}
			if stats.Index != nil {
				fmt.Fprintf(out, "Index:            %s, %d lists, built at %d rows on %s\n",
					stats.Index.Name, stats.Index.Lists, stats.Index.RowCount, stats.Index.BuiltAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print stats as JSON")
	return cmd
}
