package submission

import (
	"fmt"

	"github.com/entrhq/formai/pkg/config"
	"github.com/entrhq/formai/pkg/types"
)

// Sender is the identity typed into the form.
type Sender struct {
	CompanyName   string
	ContactPerson string
	Email         string
	Phone         string
}

// ResolveSender applies the request's non-empty overrides on top of the
// configured defaults. settings is not modified.
func ResolveSender(req *types.SubmissionRequest, settings *config.Settings) Sender {
	return Sender{
		CompanyName:   types.StringOr(req.CompanyName, settings.CompanyName),
		ContactPerson: types.StringOr(req.ContactPerson, settings.ContactPerson),
		Email:         types.StringOr(req.Email, settings.Email),
		Phone:         types.StringOr(req.Phone, settings.Phone),
	}
}

// SelectModel returns the complex model when asked for, else the default.
func SelectModel(useComplex bool, settings *config.Settings) string {
	if useComplex {
		return settings.ComplexModel
	}
	return settings.DefaultModel
}

const taskTemplate = `
お問い合わせフォームに以下の情報を入力して送信してください:

【会社名/組織名】%s
【担当者名/お名前】%s
【メールアドレス】%s
【電話番号】%s
【お問い合わせ内容/メッセージ】
%s

フォームのフィールドに適切な情報を入力し、送信ボタンをクリックしてください。
フィールド名は日本語または英語の可能性があります（例：「会社名」「Company」「名前」「Name」など）。
必須フィールドをすべて入力し、最後に送信ボタン（「送信」「Submit」「Send」など）をクリックしてください。
`

// BuildPrompt renders the task given to the automation agent.
func BuildPrompt(message string, sender Sender, url string) string {
	body := fmt.Sprintf(taskTemplate,
		sender.CompanyName,
		sender.ContactPerson,
		sender.Email,
		sender.Phone,
		message,
	)
	return body + "\n\nURL: " + url
}
