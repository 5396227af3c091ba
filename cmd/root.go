package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/image-analyzer/cmd/analyze"
	"github.com/tphakala/image-analyzer/cmd/config"
	"github.com/tphakala/image-analyzer/cmd/labels"
	"github.com/tphakala/image-analyzer/cmd/mockapi"
	"github.com/tphakala/image-analyzer/cmd/serve"
	"github.com/tphakala/image-analyzer/internal/buildinfo"
	"github.com/tphakala/image-analyzer/internal/conf"
)

// RootCommand creates and returns the root command. settings is filled from
// the configuration file before any subcommand runs.
func RootCommand(settings *conf.Settings, build buildinfo.BuildInfo) *cobra.Command {
	var (
		configFile string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "image-analyzer",
		Short:         "Image classification service",
		Version:       build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search ./, ~/.config/image-analyzer, /etc/image-analyzer)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	rootCmd.AddCommand(
		serve.Command(settings, build),
		analyze.Command(settings),
		labels.Command(settings),
		mockapi.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			conf.SetConfigFile(configFile)
		}
		loaded, err := conf.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		*settings = *loaded

		if debug {
			settings.Debug = true
			settings.Logging.DefaultLevel = "debug"
			if settings.Logging.Console != nil {
				settings.Logging.Console.Level = "debug"
			}
		}
		return nil
	}

	return rootCmd
}
