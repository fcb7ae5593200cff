package cmd

import (
	"github.com/spf13/cobra"
)

func newLoadCommand() *cobra.Command {
	var (
		month      int
		table      string
		appendRows bool
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Replace a raw trip table with one month of trips",
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
			ingest, err := a.ingest(ctx)
			if err != nil {
				return err
			}
			load := ingest.ReplaceMonth
			if appendRows {
				load = ingest.LoadMonth
			}
			res, err := load(ctx, month, table)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "month number substituted into KEY_FORMAT")
	cmd.Flags().StringVar(&table, "table", "", "target raw trip table (default STAGING_TABLE)")
	cmd.Flags().BoolVar(&appendRows, "append", false, "keep the rows already in the table instead of replacing them")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}
