package main

import (
	"errors"
	"fmt"

	"github.com/entrhq/formai/pkg/agent"
	"github.com/entrhq/formai/pkg/browser"
	"github.com/entrhq/formai/pkg/config"
	"github.com/entrhq/formai/pkg/cost"
	"github.com/entrhq/formai/pkg/history"
	"github.com/entrhq/formai/pkg/llm/openai"
	"github.com/entrhq/formai/pkg/logging"
	"github.com/entrhq/formai/pkg/security/target"
	"github.com/entrhq/formai/pkg/server"
	"github.com/entrhq/formai/pkg/submission"
)

// app holds the long-lived collaborators built from one Settings snapshot.
type app struct {
	settings *config.Settings
	browser  *browser.Manager
	history  *history.Store
	service  *submission.Service
	log      *logging.Logger
}

// newApp wires browser, LLM provider, agent, estimators, guard and history
// into a submission service. The browser is launched lazily on first use.
func newApp(settings *config.Settings, log *logging.Logger) (*app, error) {
	a := &app{settings: settings, log: log}

	provider, err := openai.NewProvider(settings.APIKey,
		openai.WithModel(settings.DefaultModel),
		openai.WithBaseURL(settings.LLMBaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	guard, err := target.NewGuard(settings.AllowedHosts, settings.DeniedHosts)
	if err != nil {
		return nil, fmt.Errorf("failed to compile host patterns: %w", err)
	}

	a.browser = browser.NewManager(browser.Options{Headless: settings.Headless}, log.With("browser"))

	runner := agent.NewFormAgent(a.browser, provider,
		agent.WithMaxSteps(settings.MaxSteps),
		agent.WithLogger(log.With("agent")),
	)

	opts := []submission.Option{
		submission.WithTokenEstimator(tokenEstimator(settings, log)),
		submission.WithGuard(guard),
		submission.WithLogger(log.With("submission")),
	}

	if settings.HistoryEnabled {
		store, err := history.Open(settings.HistoryDir, history.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		a.history = store
		opts = append(opts, submission.WithHistory(store))
		log.Infof("recording submissions to %s", store.Path())
	}

	a.service = submission.NewService(settings, runner, opts...)
	return a, nil
}

func tokenEstimator(settings *config.Settings, log *logging.Logger) cost.TokenEstimator {
	if settings.TokenEstimator != config.TokenEstimatorTiktoken {
		return cost.FixedTokens{}
	}
	est, err := cost.NewTiktokenTokens()
	if err != nil {
		log.Warnf("tiktoken unavailable, reporting %d tokens per run: %v", cost.DefaultTokens, err)
	}
	return est
}

// historyReader returns the store, or an untyped nil when history is
// disabled so that the endpoint reports it as disabled.
func (a *app) historyReader() server.HistoryReader {
	if a.history == nil {
		return nil
	}
	return a.history
}

// Close shuts the browser down and closes the history store.
func (a *app) Close() error {
	var errs []error
	if n := a.browser.OpenPages(); n > 0 {
		a.log.Warnf("closing browser with %d page(s) still open", n)
	}
	if err := a.browser.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("browser shutdown: %w", err))
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("history close: %w", err))
		}
	}
	return errors.Join(errs...)
}
