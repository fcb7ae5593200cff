package cmd

import (
	"encoding/json"

	"citibike/internal/services"

	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load the historical months, seed most_used_routes, then merge the last month",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			ingest, err := a.ingest(ctx)
			if err != nil {
				return err
			}
			agg, err := a.aggregate()
			if err != nil {
				return err
			}

			p := services.PipelineService{
				Ingest:       ingest,
				Aggregate:    agg,
				Routes:       a.routes(),
				FirstMonth:   a.env.FirstMonth,
				LastMonth:    a.env.LastMonth,
				HistoryTable: a.env.HistoryTable,
				StagingTable: a.env.StagingTable,
				RequestID:    a.requestID,
			}
			res, err := p.Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
