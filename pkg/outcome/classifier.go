// Package outcome maps the raw result of an automation run to a submission
// status and a human-readable detail line.
package outcome

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"

	"github.com/entrhq/formai/pkg/types"
)

// Detail lines attached to classified outcomes.
const (
	DetailSubmitted = "フォーム送信が完了しました"
	DetailTimeout   = "ページの読み込みがタイムアウトしました"
	detailFinished  = "タスク実行完了: "
	detailError     = "エラーが発生しました: "
)

// successIndicators are matched, in order, against the normalized result text.
var successIndicators = []string{
	"thank you",
	"ありがとう",
	"送信完了",
	"受付",
	"received",
	"success",
	"完了",
	"sent",
	"submitted",
	"complete",
}

// Result is the classification of one automation run.
type Result struct {
	Status types.SubmissionStatus
	Detail string

	// Indicator is the success indicator that matched, if any.
	Indicator string

	// CaptchaDetected is copied from the run; it does not change Status.
	CaptchaDetected bool
}

// TimeoutError reports that an automation run exceeded its deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
	}
	return e.Op + " timed out"
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout implements the net.Error style timeout check.
func (e *TimeoutError) Timeout() bool { return true }

// IsTimeout reports whether err represents a deadline being exceeded.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

// Classify maps raw result text and the run error to a Result.
// A timeout takes precedence over any other error. Without an error the run
// is always reported as success; the detail tells whether a completion
// phrase was recognized.
func Classify(raw string, runErr error) Result {
	if runErr != nil {
		if IsTimeout(runErr) {
			return Result{Status: types.StatusTimeout, Detail: DetailTimeout}
		}
		return Result{Status: types.StatusError, Detail: detailError + runErr.Error()}
	}

	if indicator, ok := matchIndicator(raw); ok {
		return Result{Status: types.StatusSuccess, Detail: DetailSubmitted, Indicator: indicator}
	}
	return Result{Status: types.StatusSuccess, Detail: detailFinished + raw}
}

// ClassifyRun is Classify plus the run's CAPTCHA flag.
func ClassifyRun(raw string, captcha bool, runErr error) Result {
	r := Classify(raw, runErr)
	r.CaptchaDetected = captcha
	return r
}

var lower = cases.Lower(language.Und)

// normalize lower-cases text and folds full-width latin so that "ＳＥＮＴ"
// matches "sent".
func normalize(s string) string {
	return lower.String(width.Fold.String(s))
}

func matchIndicator(raw string) (string, bool) {
	text := normalize(raw)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, indicator := range successIndicators {
		if strings.Contains(text, indicator) {
			return indicator, true
		}
	}
	return "", false
}
