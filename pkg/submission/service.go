// Package submission turns a SubmissionRequest into a classified
// SubmissionOutcome by driving the automation agent.
//
// A Service is built once with its collaborators and is safe for concurrent
// use; it never mutates the Settings it was given.
//
//	svc := submission.NewService(settings, formAgent,
//		submission.WithTokenEstimator(cost.FixedTokens{}),
//		submission.WithHistory(store),
//	)
//	out, err := svc.Submit(ctx, &req)
package submission

import (
	"context"

	"github.com/google/uuid"

	"github.com/entrhq/formai/pkg/agent"
	"github.com/entrhq/formai/pkg/config"
	"github.com/entrhq/formai/pkg/cost"
	"github.com/entrhq/formai/pkg/logging"
	"github.com/entrhq/formai/pkg/outcome"
	"github.com/entrhq/formai/pkg/security/target"
	"github.com/entrhq/formai/pkg/types"
)

// Message prefixes and fixed texts of the outcome message field.
const (
	submittedPrefix  = "Submitted message: "
	messagePreview   = 50
	timedOutMessage  = "Request timed out"
	errorMessageHead = "Error: "
)

// Recorder stores classified outcomes. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, outcome *types.SubmissionOutcome, model string) (int64, error)
}

// Service runs form submissions.
type Service struct {
	settings *config.Settings
	runner   agent.Runner
	tokens   cost.TokenEstimator
	costs    cost.Estimator
	guard    *target.Guard
	history  Recorder
	log      *logging.Logger
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithTokenEstimator sets how token usage is measured. The default reports a
// fixed 1000 tokens per run.
func WithTokenEstimator(e cost.TokenEstimator) Option {
	return func(s *Service) {
		if e != nil {
			s.tokens = e
		}
	}
}

// WithCostEstimator sets the cost rounding mode.
func WithCostEstimator(e cost.Estimator) Option {
	return func(s *Service) {
		s.costs = e
	}
}

// WithGuard restricts which hosts may be automated.
func WithGuard(g *target.Guard) Option {
	return func(s *Service) {
		s.guard = g
	}
}

// WithHistory records every outcome. Recording errors are logged and do not
// affect the outcome.
func WithHistory(r Recorder) Option {
	return func(s *Service) {
		s.history = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRequestIDs replaces the request id generator.
func WithRequestIDs(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService creates a Service over an immutable settings snapshot and an
// automation runner.
func NewService(settings *config.Settings, runner agent.Runner, opts ...Option) *Service {
	s := &Service{
		settings: settings,
		runner:   runner,
		tokens:   cost.FixedTokens{},
		log:      logging.Discard(),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the snapshot the service was built with.
func (s *Service) Settings() *config.Settings {
	return s.settings
}

// Submit fills in and submits one contact form. A malformed or disallowed
// request returns a *types.ValidationError and the agent is not invoked;
// every automation failure is reported through the outcome's status
// instead of the error.
func (s *Service) Submit(ctx context.Context, req *types.SubmissionRequest) (*types.SubmissionOutcome, error) {
	if req == nil {
		return nil, &types.ValidationError{Field: "request", Reason: "is required"}
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	model := SelectModel(req.UseComplexModel, s.settings)
	task := agent.Task{
		URL:    req.URL,
		Prompt: BuildPrompt(req.Message, ResolveSender(req, s.settings), req.URL),
		Model:  model,
	}

	s.log.Infof("Submitting form to: %s (model %s)", req.URL, model)

	runCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout())
	res, runErr := s.runner.RunTask(runCtx, task)
	cancel()

	out := s.buildOutcome(req, model, res, runErr)
	s.log.Infof("Form submission result: %s (request %s)", out.Status, out.RequestID)
	if runErr != nil {
		s.log.Debugf("automation error for %s: %v", req.URL, runErr)
	}

	s.record(ctx, out, model)
	return out, nil
}

// SubmitBatch submits reqs one after another and returns one outcome per
// request, in order. A request that fails validation yields an error
// outcome and the batch continues.
func (s *Service) SubmitBatch(ctx context.Context, reqs []types.SubmissionRequest) []*types.SubmissionOutcome {
	s.log.Infof("Batch submitting %d forms", len(reqs))

	results := make([]*types.SubmissionOutcome, 0, len(reqs))
	for i := range reqs {
		out, err := s.Submit(ctx, &reqs[i])
		if err != nil {
			out = s.rejected(&reqs[i], err)
		}
		results = append(results, out)
	}

	s.log.Infof("Batch submission completed: %d results", len(results))
	return results
}

func (s *Service) check(req *types.SubmissionRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	u, err := req.ParsedURL()
	if err != nil {
		return err
	}
	if err := s.guard.Check(u); err != nil {
		return &types.ValidationError{Field: "url", Reason: err.Error()}
	}
	return nil
}

func (s *Service) buildOutcome(req *types.SubmissionRequest, model string, res *agent.Result, runErr error) *types.SubmissionOutcome {
	var raw string
	var captcha bool
	if res != nil {
		raw = res.Text
		captcha = res.CaptchaDetected
	}
	cls := outcome.ClassifyRun(raw, captcha, runErr)

	out := &types.SubmissionOutcome{
		RequestID:       s.newID(),
		Status:          cls.Status,
		URL:             req.URL,
		Details:         cls.Detail,
		CaptchaDetected: cls.CaptchaDetected,
	}

	switch cls.Status {
	case types.StatusSuccess:
		tokens := s.tokens.EstimateTokens(res)
		estimate := s.costs.Estimate(tokens, model)
		out.Message = submittedPrefix + preview(req.Message) + "..."
		out.TokensUsed = &tokens
		out.CostEstimate = &estimate
	case types.StatusTimeout:
		out.Message = timedOutMessage
	default:
		out.Message = errorMessageHead + runErr.Error()
	}
	return out
}

// rejected converts a validation failure into an error outcome for batches.
func (s *Service) rejected(req *types.SubmissionRequest, err error) *types.SubmissionOutcome {
	cls := outcome.Classify("", err)
	return &types.SubmissionOutcome{
		RequestID: s.newID(),
		Status:    types.StatusError,
		URL:       req.URL,
		Message:   errorMessageHead + err.Error(),
		Details:   cls.Detail,
	}
}

func (s *Service) record(ctx context.Context, out *types.SubmissionOutcome, model string) {
	if s.history == nil {
		return
	}
	// The caller's context may already be done after a timeout.
	if _, err := s.history.Record(context.WithoutCancel(ctx), out, model); err != nil {
		s.log.Warnf("failed to record submission %s: %v", out.RequestID, err)
	}
}

// preview returns the first messagePreview runes of message.
func preview(message string) string {
	runes := []rune(message)
	if len(runes) > messagePreview {
		runes = runes[:messagePreview]
	}
	return string(runes)
}
