package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/upb/recipe-rag/services/retrieval"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		topK   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the recipes closest to a query",
		Long: `Embed the query and print its nearest recipes, closest first.

Examples:
  ragctl search "feijoada"
  ragctl search --top-k 10 "prato leve com peixe"
  ragctl search --json "sopa"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDependencies(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(context.Background()) }()

			results, err := deps.Retriever.Retrieve(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				body, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Fprintf(out, "%s\n", body)
				return nil
			}

			if len(results) == 0 {
				fmt.Fprintln(out, "No recipes stored yet. Run `ragctl ingest` first.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tDISTANCE\tRECIPE\n")
			for _, r := range results {
				fmt.Fprintf(w, "%d\t%.4f\t%s\n", r.ID, r.Distance, truncate(r.Content, 80))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", retrieval.DefaultTopK,
		fmt.Sprintf("Number of results (1-%d)", retrieval.MaxTopK))
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
