package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/entrhq/formai/pkg/types"
)

// NewSubmitCmd creates the submit command.
func NewSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <url> <message>",
		Short: "Submit one contact form without starting the server",
		Long: `Submit runs a single submission in-process and prints the outcome.

Examples:
  # Use the configured sender details
  formai submit https://example.com/contact "ご提案の件でご連絡しました"

  # Override the sender and use the complex model
  formai submit https://example.com/contact "Hello" --complex --company "Acme" --email info@acme.test

  # Print the outcome as JSON
  formai submit https://example.com/contact "Hello" --json`,
		Args: cobra.ExactArgs(2),
		RunE: runSubmitCmd,
	}

	cmd.Flags().Bool("complex", false, "Use the complex model")
	cmd.Flags().String("company", "", "Company name override")
	cmd.Flags().String("person", "", "Contact person override")
	cmd.Flags().String("email", "", "Email override")
	cmd.Flags().String("phone", "", "Phone override")
	cmd.Flags().Bool("json", false, "Print the outcome as JSON")

	return cmd
}

func runSubmitCmd(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	req := types.SubmissionRequest{URL: args[0], Message: args[1]}
	if req.UseComplexModel, err = cmd.Flags().GetBool("complex"); err != nil {
		return err
	}
	for flag, dst := range map[string]**string{
		"company": &req.CompanyName,
		"person":  &req.ContactPerson,
		"email":   &req.Email,
		"phone":   &req.Phone,
	} {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		v, err := cmd.Flags().GetString(flag)
		if err != nil {
			return err
		}
		*dst = &v
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	log, err := openLogger(cmd, settings.LogDir)
	if err != nil {
		return err
	}
	defer log.Close()

	a, err := newApp(settings, log)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.service.Submit(cmd.Context(), &req)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printOutcome(cmd.OutOrStdout(), out)
	if out.Status != types.StatusSuccess {
		return fmt.Errorf("submission %s", out.Status)
	}
	return nil
}

func printOutcome(w io.Writer, out *types.SubmissionOutcome) {
	status := color.New(color.FgGreen, color.Bold)
	if out.Status != types.StatusSuccess {
		status = color.New(color.FgRed, color.Bold)
	}
	status.Fprintf(w, "%s", out.Status)
	fmt.Fprintf(w, "  %s\n", out.URL)
	fmt.Fprintf(w, "  %s\n", out.Message)
	fmt.Fprintf(w, "  %s\n", out.Details)
	if out.TokensUsed != nil && out.CostEstimate != nil {
		fmt.Fprintf(w, "  tokens: %d  cost: $%.6f\n", *out.TokensUsed, *out.CostEstimate)
	}
	if out.CaptchaDetected {
		color.New(color.FgYellow).Fprintln(w, "  CAPTCHA detected on the page")
	}
	fmt.Fprintf(w, "  request: %s\n", out.RequestID)
}
