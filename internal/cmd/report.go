package cmd

import (
	"fmt"
	"os"

	"citibike/internal/services"

	"github.com/spf13/cobra"
)

func newReportCommand() *cobra.Command {
	var (
		limit   int
		station string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the most used routes as a PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			svc := services.ReportService{Routes: a.routes(), RequestID: a.requestID}
			pdf, name, err := svc.TopRoutesPDF(ctx, limit, station)
			if err != nil {
				return err
			}
			if out == "" {
				out = name
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of routes")
	cmd.Flags().StringVar(&station, "station", "", "only routes starting or ending at this station")
	cmd.Flags().StringVar(&out, "out", "", "output file (default generated name)")
	return cmd
}
