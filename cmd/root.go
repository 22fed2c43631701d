package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safetrack/safetrack/cmd/inspection"
	"github.com/safetrack/safetrack/cmd/migrate"
	"github.com/safetrack/safetrack/cmd/notify"
	"github.com/safetrack/safetrack/cmd/roles"
	"github.com/safetrack/safetrack/cmd/serve"
	"github.com/safetrack/safetrack/internal/buildinfo"
	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var (
		configFile string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:          "safetrack",
		Short:        "SafeTrack inspection service",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	versionCmd := versionCommand(build)
	subcommands := []*cobra.Command{
		serve.Command(settings, build),
		migrate.Command(settings),
		inspection.Command(settings),
		roles.Command(settings),
		notify.Command(settings),
		versionCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for the version command
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(configFile, debug, settings)
	}

	return rootCmd
}

// initialize loads the configuration and installs the global logger.
func initialize(configFile string, debug bool, settings *conf.Settings) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}

	if debug {
		loaded.Debug = true
		loaded.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if loaded.Logging.Console != nil {
			loaded.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}
	*settings = *loaded

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

func versionCommand(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "safetrack %s (built %s)\n", build.GetVersion(), build.GetBuildDate())
		},
	}
}
