package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/formai/pkg/config"
	"github.com/entrhq/formai/pkg/server"
)

// shutdownTimeout bounds how long in-flight submissions may finish after a
// shutdown signal.
const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP submission API",
		Long: `Serve starts the HTTP API:

  GET  /                  service information
  GET  /health            health check
  POST /api/submit        submit one form
  POST /api/batch-submit  submit several forms in order
  GET  /api/config        configuration without credentials
  GET  /api/history       recent submissions (HISTORY_ENABLED=true)

The listen address comes from API_HOST and PORT (or API_PORT).`,
		RunE: runServeCmd,
	}

	cmd.Flags().Bool("preload", false, "Launch the browser at startup instead of on the first submission")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	preload, err := cmd.Flags().GetBool("preload")
	if err != nil {
		return err
	}

	log, err := openLogger(cmd, settings.LogDir)
	if err != nil {
		return err
	}
	defer log.Close()

	printBanner(cmd.OutOrStdout(), settings)

	a, err := newApp(settings, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warnf("cleanup failed: %v", err)
		}
	}()

	if preload {
		if err := a.browser.Initialize(); err != nil {
			return fmt.Errorf("failed to launch browser: %w", err)
		}
	}

	srv := server.NewServer(settings, a.service, a.historyReader(), log.With("http"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Infof("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// printBanner reports the startup configuration check. Secrets are masked.
func printBanner(w io.Writer, settings *config.Settings) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, "Starting Form AI server")

	missing := printVariableChecks(w, config.CheckRequired(os.LookupEnv))

	fmt.Fprintf(w, "  Listen:   %s\n", settings.Addr())
	fmt.Fprintf(w, "  Models:   %s / %s\n", settings.DefaultModel, settings.ComplexModel)
	fmt.Fprintf(w, "  Headless: %t  Timeout: %s\n", settings.Headless, settings.Timeout())
	if len(missing) > 0 {
		color.New(color.FgYellow).Fprintln(w, "Some variables are not set in the environment; file or default values are in use.")
	}
}
