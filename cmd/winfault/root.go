package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/winfault/internal/logging"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	root := &cobra.Command{
		Use:           "winfault",
		Short:         "Windows crash triage",
		Long:          "winfault extracts crash facts from dump files, decodes event logs,\nand correlates the events surrounding a crash into a timeline.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logging.Init(jsonOutput, level)
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit the session as JSON on stdout")

	root.AddCommand(newAnalyzeCmd(&jsonOutput))
	root.AddCommand(newEventsCmd(&jsonOutput))
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the winfault version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("winfault %s\n", version)
		},
	}
}
