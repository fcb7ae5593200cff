package cmd

import (
	"github.com/spf13/cobra"
)

func newAggregateCommand() *cobra.Command {
	var (
		table      string
		insertOnly bool
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Fold a raw trip table into most_used_routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if table == "" {
				table = a.env.StagingTable
			}
			if _, err := a.routes().EnsureTable(ctx); err != nil {
				return err
			}
			agg, err := a.aggregate()
			if err != nil {
				return err
			}
			res, err := agg.RunBatch(ctx, table, insertOnly)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "raw trip table to aggregate (default STAGING_TABLE)")
	cmd.Flags().BoolVar(&insertOnly, "insert-only", false, "skip reconciliation and insert every pair (first load only)")
	return cmd
}
