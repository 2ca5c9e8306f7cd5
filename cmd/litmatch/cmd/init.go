package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/litmatch/litmatch/configs"
	"github.com/litmatch/litmatch/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated litmatch.yaml to the current directory",
		Long: `Write an annotated configuration template to ./litmatch.yaml.

Every key in the template is optional; omitted keys keep their built-in
defaults. Edit the file, then run 'litmatch build'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing litmatch.yaml")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	path := config.DefaultConfigFile
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
