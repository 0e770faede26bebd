package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/formai/pkg/browser"
	"github.com/entrhq/formai/pkg/llm"
	"github.com/entrhq/formai/pkg/logging"
	"github.com/entrhq/formai/pkg/types"
)

// DefaultMaxSteps bounds the LLM round trips of one task.
const DefaultMaxSteps = 15

// historyWindow is how many earlier action/feedback pairs are replayed to
// the LLM each step.
const historyWindow = 8

// FormAgent is the Runner backed by a browser and an LLM.
type FormAgent struct {
	launcher browser.Launcher
	provider llm.Provider
	maxSteps int
	maxHTML  int
	log      *logging.Logger
	onEvent  func(*types.AgentEvent)
}

var _ Runner = (*FormAgent)(nil)

// Option configures a FormAgent.
type Option func(*FormAgent)

// WithMaxSteps sets the step budget.
func WithMaxSteps(n int) Option {
	return func(a *FormAgent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithMaxHTMLLength bounds the cleaned HTML sent per step.
func WithMaxHTMLLength(n int) Option {
	return func(a *FormAgent) {
		if n > 0 {
			a.maxHTML = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *FormAgent) {
		if l != nil {
			a.log = l
		}
	}
}

// WithEventHandler registers a callback invoked for every event, in order,
// on the RunTask goroutine.
func WithEventHandler(fn func(*types.AgentEvent)) Option {
	return func(a *FormAgent) {
		a.onEvent = fn
	}
}

// NewFormAgent creates an agent that opens pages with launcher and asks
// provider for actions.
func NewFormAgent(launcher browser.Launcher, provider llm.Provider, opts ...Option) *FormAgent {
	a := &FormAgent{
		launcher: launcher,
		provider: provider,
		maxSteps: DefaultMaxSteps,
		maxHTML:  browser.DefaultMaxHTMLLength,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run holds the state of one RunTask call.
type run struct {
	agent    *FormAgent
	page     browser.Page
	provider llm.Provider
	task     Task
	result   *Result
	history  []*types.Message
}

// RunTask implements Runner.
func (a *FormAgent) RunTask(ctx context.Context, task Task) (*Result, error) {
	page, err := a.launcher.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			a.log.Warnf("failed to close page: %v", cerr)
		}
	}()

	r := &run{
		agent:    a,
		page:     page,
		provider: llm.ForModel(a.provider, task.Model),
		task:     task,
		result:   &Result{},
	}
	return r.result, r.execute(ctx)
}

func (r *run) emit(eventType types.AgentEventType, step int, action, content string) {
	ev := types.NewAgentEvent(eventType, step, action, content)
	r.result.Events = append(r.result.Events, ev)
	if r.agent.onEvent != nil {
		r.agent.onEvent(ev)
	}
}

func (r *run) checkCaptcha(ctx context.Context, step int) {
	if r.result.CaptchaDetected {
		return
	}
	if browser.PageHasCaptcha(ctx, r.page) {
		r.result.CaptchaDetected = true
		r.emit(types.EventTypeCaptcha, step, "", r.page.URL())
		r.agent.log.Warnf("captcha detected on %s", r.page.URL())
	}
}

func (r *run) execute(ctx context.Context) error {
	log := r.agent.log

	r.emit(types.EventTypeNavigate, 0, "", r.task.URL)
	if err := r.page.Navigate(ctx, r.task.URL); err != nil {
		return err
	}
	r.checkCaptcha(ctx, 0)

	for step := 1; step <= r.agent.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.result.Steps = step

		obs, err := r.observe(ctx, step)
		if err != nil {
			return err
		}
		r.emit(types.EventTypeObserve, step, "", r.page.URL())

		reply, err := r.complete(ctx, obs)
		if err != nil {
			return err
		}

		action, err := ParseAction(reply.Content)
		if err != nil {
			log.Debugf("step %d: invalid reply: %v", step, err)
			r.emit(types.EventTypeInvalidReply, step, "", err.Error())
			r.remember(reply, invalidReplyFeedback(err))
			continue
		}

		if action.Type == ActionDone {
			text, terr := r.page.Text(ctx)
			if terr != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warnf("failed to read final page text: %v", terr)
			}
			r.result.Text = finalText(action.Summary, text)
			r.emit(types.EventTypeDone, step, string(ActionDone), action.Summary)
			log.Infof("task finished after %d steps", step)
			return nil
		}

		execErr := r.perform(ctx, action)
		if execErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.emit(types.EventTypeActionError, step, string(action.Type), execErr.Error())
			log.Debugf("step %d: %s failed: %v", step, action, execErr)
		} else {
			r.emit(types.EventTypeAction, step, string(action.Type), action.String())
		}
		r.remember(reply, actionFeedback(action, execErr))
		r.checkCaptcha(ctx, step)
	}

	return fmt.Errorf("%w (%d)", ErrMaxSteps, r.agent.maxSteps)
}

func (r *run) observe(ctx context.Context, step int) (string, error) {
	raw, err := r.page.HTML(ctx)
	if err != nil {
		return "", err
	}
	cleaned, err := browser.Clean(raw, r.agent.maxHTML)
	if err != nil {
		return "", err
	}
	return observation(step, r.page.URL(), cleaned), nil
}

// complete sends system prompt, task, recent history and the current
// observation, and records the exchange in the transcript.
func (r *run) complete(ctx context.Context, obs string) (*types.Message, error) {
	messages := make([]*types.Message, 0, len(r.history)+3)
	messages = append(messages,
		types.NewSystemMessage(systemPrompt),
		types.NewUserMessage(r.task.Prompt),
	)
	messages = append(messages, r.history...)
	messages = append(messages, types.NewUserMessage(obs))

	reply, err := r.provider.Complete(ctx, messages)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("llm completion failed: %w", err)
	}

	r.result.Transcript = append(r.result.Transcript, messages...)
	r.result.Transcript = append(r.result.Transcript, reply)
	return reply, nil
}

// remember appends one assistant reply and its feedback, keeping the most
// recent historyWindow pairs.
func (r *run) remember(reply *types.Message, feedback string) {
	r.history = append(r.history, types.NewAssistantMessage(reply.Content), types.NewUserMessage(feedback))
	if excess := len(r.history) - 2*historyWindow; excess > 0 {
		r.history = r.history[excess:]
	}
}

func (r *run) perform(ctx context.Context, a *Action) error {
	switch a.Type {
	case ActionFill:
		return r.page.Fill(ctx, a.Selector, a.Value)
	case ActionClick:
		return r.page.Click(ctx, a.Selector)
	case ActionSelect:
		return r.page.Select(ctx, a.Selector, a.Value)
	case ActionWait:
		return r.page.WaitFor(ctx, a.Selector)
	}
	return fmt.Errorf("unsupported action %q", a.Type)
}
