package types

import (
	"fmt"
	"net/url"
	"strings"
)

// SubmissionStatus is the closed set of outcomes for a form submission.
type SubmissionStatus string

const (
	StatusSuccess         SubmissionStatus = "success"          // StatusSuccess indicates the agent finished the task.
	StatusFailed          SubmissionStatus = "failed"           // StatusFailed is reserved; the classifier does not emit it.
	StatusCaptchaDetected SubmissionStatus = "captcha_detected" // StatusCaptchaDetected is reserved; see SubmissionOutcome.CaptchaDetected.
	StatusTimeout         SubmissionStatus = "timeout"          // StatusTimeout indicates the automation call exceeded its deadline.
	StatusError           SubmissionStatus = "error"            // StatusError indicates the automation call failed.
)

// Valid reports whether s is one of the known statuses.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCaptchaDetected, StatusTimeout, StatusError:
		return true
	}
	return false
}

// SubmissionRequest asks the service to fill in and submit one contact form.
// Sender overrides apply to this request only; nil or empty means "use the
// configured default".
type SubmissionRequest struct {
	URL             string  `json:"url"`
	Message         string  `json:"message"`
	UseComplexModel bool    `json:"use_complex_model"`
	CompanyName     *string `json:"company_name,omitempty"`
	ContactPerson   *string `json:"contact_person,omitempty"`
	Email           *string `json:"email,omitempty"`
	Phone           *string `json:"phone,omitempty"`
}

// Validate checks that the URL is an absolute http(s) URL and the message
// is not blank.
func (r *SubmissionRequest) Validate() error {
	if _, err := r.ParsedURL(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Message) == "" {
		return &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	return nil
}

// ParsedURL parses and validates the target URL.
func (r *SubmissionRequest) ParsedURL() (*url.URL, error) {
	raw := strings.TrimSpace(r.URL)
	if raw == "" {
		return nil, &ValidationError{Field: "url", Reason: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &ValidationError{Field: "url", Reason: fmt.Sprintf("is not a valid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ValidationError{Field: "url", Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return nil, &ValidationError{Field: "url", Reason: "host is required"}
	}
	return u, nil
}

// SubmissionOutcome is the classified result of one submission.
type SubmissionOutcome struct {
	RequestID       string           `json:"request_id,omitempty"`
	Status          SubmissionStatus `json:"status"`
	URL             string           `json:"url"`
	Message         string           `json:"message"`
	Details         string           `json:"details,omitempty"`
	TokensUsed      *int             `json:"tokens_used"`
	CostEstimate    *float64         `json:"cost_estimate"`
	ScreenshotPath  *string          `json:"screenshot_path"`
	CaptchaDetected bool             `json:"captcha_detected"`
}

// ValidationError reports a malformed submission request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StringOr returns *s when it is non-empty, otherwise fallback.
func StringOr(s *string, fallback string) string {
	if s != nil && strings.TrimSpace(*s) != "" {
		return *s
	}
	return fallback
}
