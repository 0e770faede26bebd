package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/formai/pkg/config"
	"github.com/entrhq/formai/pkg/logging"
	"github.com/entrhq/formai/pkg/server"
)

// NewRootCmd creates the root command for formai.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formai",
		Short: "Automated contact form submission service",
		Long: `formai opens a contact form in a headless browser, lets an LLM fill it in
with the configured sender details and your message, submits it, and
reports the classified outcome.

Configuration comes from the environment, an optional .env file and an
optional YAML file (--config or FORMAI_CONFIG). GOOGLE_API_KEY is required.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "YAML settings file (overrides FORMAI_CONFIG)")
	cmd.PersistentFlags().String("env-file", config.DefaultDotEnvPath, `.env file to load ("-" disables)`)

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSubmitCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewEnvCmd())
	cmd.AddCommand(NewHistoryCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSettings resolves the settings snapshot using the persistent flags.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	return config.NewResolver(config.Options{
		DotEnvPath: envFile,
		ConfigFile: configFile,
	}).Settings()
}

// openLogger points logging at dir and opens the command logger. A log file
// that cannot be opened is reported on stderr and logging falls back to it.
func openLogger(cmd *cobra.Command, dir string) (*logging.Logger, error) {
	if err := logging.SetDirectory(dir); err != nil {
		return nil, err
	}
	log, err := logging.NewLogger("formai")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	return log, nil
}
