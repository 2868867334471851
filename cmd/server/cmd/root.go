package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/Togather-Foundation/eventdesk/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
)

// newRootCommand builds the command tree. Running the root without a
// subcommand starts the server.
func newRootCommand() *cobra.Command {
	serveCmd := newServeCommand()

	rootCmd := &cobra.Command{
		Use:   "eventdesk",
		Short: "Eventdesk API server - event listings and member verification",
		Long: `Eventdesk serves the event listing and user management API.

The server supports:
- Public event listings with upcoming/past filters
- Admin event management (create, update, delete)
- Member registration, login and profile updates
- Admin review of member verification requests`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadSources()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (optional, env vars take precedence)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: json)")

	// The root shares serve's flags so a bare invocation accepts --host/--port.
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newHealthcheckCommand())
	return rootCmd
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}

// loadSources fills the environment from the dotenv file and the optional
// YAML config file. Variables already in the environment are never replaced.
func loadSources() error {
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
	}
	if configPath != "" {
		if err := config.ApplyFile(configPath); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig reads the configuration and applies the global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}
