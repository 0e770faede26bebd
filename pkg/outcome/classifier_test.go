package outcome

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/formai/pkg/types"
)

type netTimeout struct{}

func (netTimeout) Error() string   { return "i/o timeout" }
func (netTimeout) Timeout() bool   { return true }
func (netTimeout) Temporary() bool { return false }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		err       error
		status    types.SubmissionStatus
		detail    string
		indicator string
	}{
		{
			name:      "english thank you",
			raw:       "Thank you for contacting us!",
			status:    types.StatusSuccess,
			detail:    DetailSubmitted,
			indicator: "thank you",
		},
		{
			name:      "japanese completion",
			raw:       "お問い合わせを送信完了しました",
			status:    types.StatusSuccess,
			detail:    DetailSubmitted,
			indicator: "送信完了",
		},
		{
			name:      "first indicator in list order wins",
			raw:       "The form was submitted successfully",
			status:    types.StatusSuccess,
			detail:    DetailSubmitted,
			indicator: "success",
		},
		{
			name:      "full-width latin is folded",
			raw:       "ＭＥＳＳＡＧＥ ＳＥＮＴ",
			status:    types.StatusSuccess,
			detail:    DetailSubmitted,
			indicator: "sent",
		},
		{
			name:   "no indicator is still success",
			raw:    "Clicked the button",
			status: types.StatusSuccess,
			detail: "タスク実行完了: Clicked the button",
		},
		{
			name:   "empty text",
			raw:    "",
			status: types.StatusSuccess,
			detail: "タスク実行完了: ",
		},
		{
			name:   "context deadline",
			raw:    "thank you",
			err:    fmt.Errorf("run task: %w", context.DeadlineExceeded),
			status: types.StatusTimeout,
			detail: DetailTimeout,
		},
		{
			name:   "typed timeout",
			err:    &TimeoutError{Op: "navigate"},
			status: types.StatusTimeout,
			detail: DetailTimeout,
		},
		{
			name:   "net style timeout",
			err:    netTimeout{},
			status: types.StatusTimeout,
			detail: DetailTimeout,
		},
		{
			name:   "generic error",
			raw:    "thank you",
			err:    errors.New("browser crashed"),
			status: types.StatusError,
			detail: "エラーが発生しました: browser crashed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.raw, tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.detail, got.Detail)
			assert.Equal(t, tt.indicator, got.Indicator)
			assert.False(t, got.CaptchaDetected)
		})
	}
}

func TestClassify_NeverEmitsReservedStatuses(t *testing.T) {
	inputs := []string{"captcha", "failed", "recaptcha required", "エラー"}
	for _, raw := range inputs {
		got := Classify(raw, nil)
		assert.Equal(t, types.StatusSuccess, got.Status, raw)
	}
}

func TestClassifyRun_CarriesCaptchaFlag(t *testing.T) {
	got := ClassifyRun("page has a captcha", true, nil)
	assert.Equal(t, types.StatusSuccess, got.Status)
	assert.True(t, got.CaptchaDetected)

	got = ClassifyRun("", true, context.DeadlineExceeded)
	assert.Equal(t, types.StatusTimeout, got.Status)
	assert.True(t, got.CaptchaDetected)
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, IsTimeout(nil))
	assert.False(t, IsTimeout(errors.New("boom")))
	assert.False(t, IsTimeout(context.Canceled))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", &TimeoutError{Op: "x", Err: errors.New("slow")})))
}

func TestTimeoutError_Message(t *testing.T) {
	assert.Equal(t, "navigate timed out", (&TimeoutError{Op: "navigate"}).Error())
	assert.Equal(t, "navigate timed out: slow", (&TimeoutError{Op: "navigate", Err: errors.New("slow")}).Error())
}
