// Package agent fills in and submits web forms by letting an LLM drive a
// browser page one action at a time.
//
//	a := agent.NewFormAgent(manager, provider, agent.WithMaxSteps(15))
//	res, err := a.RunTask(ctx, agent.Task{URL: url, Prompt: prompt, Model: model})
package agent

import (
	"context"
	"errors"

	"github.com/entrhq/formai/pkg/types"
)

// ErrMaxSteps is returned when the LLM has not finished the task within the
// step budget.
var ErrMaxSteps = errors.New("agent did not finish within the step limit")

// Task is one form-filling job.
type Task struct {
	// URL is the page holding the form.
	URL string

	// Prompt is the natural-language instruction, including the data to enter.
	Prompt string

	// Model overrides the provider's model for this task when set.
	Model string
}

// Result is what an automation run produced.
type Result struct {
	// Text is the agent's final summary followed by the visible text of the
	// page it ended on.
	Text string

	CaptchaDetected bool

	// Steps is the number of LLM round trips taken.
	Steps int

	// Transcript holds every message sent to or received from the LLM, in
	// order, for token accounting.
	Transcript []*types.Message

	Events []*types.AgentEvent
}

// Runner executes automation tasks.
type Runner interface {
	// RunTask runs task to completion. On failure the returned Result, when
	// non-nil, describes the partial run.
	RunTask(ctx context.Context, task Task) (*Result, error)
}
