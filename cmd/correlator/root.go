package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "correlator",
		Short: "Correlate meeting notices with meeting artifacts",
		Long: `correlator resolves a 1:1 assignment between meeting notices and the
artifacts generated from those meetings, scoring temporal proximity,
participant overlap and title similarity.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (or MEETING_CORRELATOR_CONFIG)")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(runCmd(&configPath))
	return root
}
