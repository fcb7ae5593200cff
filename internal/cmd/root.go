// Package cmd wires the citibike commands.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configFile string

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "citibike",
		Short:         "Load Citi Bike trip data and maintain the most used routes table",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml); environment variables override it")

	root.AddCommand(
		newRunCommand(),
		newLoadCommand(),
		newAggregateCommand(),
		newServeCommand(),
		newReportCommand(),
	)
	return root
}

// Execute runs the root command, cancelling on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}
