package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration without credentials",
		Long: `Config resolves the settings the same way serve does and prints the
public view as YAML. It fails when the configuration is invalid, so it can
be used as a preflight check.`,
		Args: cobra.NoArgs,
		RunE: runConfigCmd,
	}
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(settings.Public()); err != nil {
		return err
	}
	return enc.Close()
}
