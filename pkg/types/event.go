package types

import "time"

// AgentEventType defines the type of event emitted by the automation agent.
type AgentEventType string

const (
	EventTypeNavigate     AgentEventType = "navigate"      // EventTypeNavigate indicates the agent opened the target page.
	EventTypeObserve      AgentEventType = "observe"       // EventTypeObserve indicates a page snapshot was sent to the LLM.
	EventTypeAction       AgentEventType = "action"        // EventTypeAction indicates a browser action was executed.
	EventTypeActionError  AgentEventType = "action_error"  // EventTypeActionError indicates a browser action failed.
	EventTypeInvalidReply AgentEventType = "invalid_reply" // EventTypeInvalidReply indicates the LLM reply held no usable action.
	EventTypeCaptcha      AgentEventType = "captcha"       // EventTypeCaptcha indicates a CAPTCHA widget was found on the page.
	EventTypeDone         AgentEventType = "done"          // EventTypeDone indicates the LLM declared the task finished.
)

// AgentEvent records one step of an automation run.
type AgentEvent struct {
	Time time.Time

	// Type indicates the kind of event.
	Type AgentEventType

	// Step is the 1-based loop iteration that produced the event.
	Step int

	// Action is the browser action name (fill, click, ...) for action events.
	Action string

	// Content holds free text: the URL, the action summary, or the error.
	Content string
}

// NewAgentEvent creates an event stamped with the current time.
func NewAgentEvent(eventType AgentEventType, step int, action, content string) *AgentEvent {
	return &AgentEvent{
		Time:    time.Now(),
		Type:    eventType,
		Step:    step,
		Action:  action,
		Content: content,
	}
}
