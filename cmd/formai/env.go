package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/entrhq/formai/pkg/config"
)

// NewEnvCmd creates the env command.
func NewEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Check the environment variables formai reads",
		Long: `Env reports whether the variables formai expects are set. Values whose
names contain KEY, SECRET, PASSWORD or TOKEN are masked to their last four
characters.

Use --all to dump the whole environment with the same masking.`,
		RunE: runEnvCmd,
	}

	cmd.Flags().Bool("all", false, "Print every environment variable (masked)")

	return cmd
}

func runEnvCmd(cmd *cobra.Command, _ []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if all {
		for _, line := range config.MaskedEnv(os.Environ()) {
			fmt.Fprintf(out, "  %-30s = %s\n", line.Name, line.Value)
		}
		fmt.Fprintln(out)
	}

	for _, name := range printVariableChecks(out, config.CheckRequired(os.LookupEnv)) {
		if name == config.EnvAPIKey {
			return fmt.Errorf("%s is not set", config.EnvAPIKey)
		}
	}
	return nil
}

// printVariableChecks prints one line per variable and returns the names
// that are not set.
func printVariableChecks(w io.Writer, checks []config.VariableCheck) []string {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	var missing []string
	for _, c := range checks {
		if c.Set {
			fmt.Fprintf(w, "  %s %s: %s\n", ok("✓"), c.Name, c.Value)
			continue
		}
		fmt.Fprintf(w, "  %s %s: NOT SET\n", bad("✗"), c.Name)
		missing = append(missing, c.Name)
	}
	return missing
}
