package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/image-analyzer/internal/conf"
)

// Command creates the command that prints the effective settings.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long:  "Print the settings after file, environment and default merging. Secrets are masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := conf.DumpYAML(settings)
			if err != nil {
				return err
			}
			if used := conf.ConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "# loaded from %s\n", used)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	return cmd
}
