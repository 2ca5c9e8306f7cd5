// Package cmd provides the CLI commands for litmatch.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/litmatch/litmatch/pkg/version"
)

var (
	configPath string
	debugMode  bool
)

// NewRootCmd creates the root command for the litmatch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "litmatch",
		Short: "Match draft sentences against a literature corpus",
		Long: `litmatch finds the references a sentence should cite.

It retrieves candidates from three independent signals (embedding
similarity, keyword overlap, citation-graph proximity), fuses them into
one ranked list, optionally refines the top candidates with a
cross-encoder, and returns a diverse top-k selection.

Import a corpus first, then search:

  litmatch build corpus.json
  litmatch search "warming accelerates soil carbon loss"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("litmatch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./litmatch.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
