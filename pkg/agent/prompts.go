package agent

import (
	"fmt"
	"strings"

	"github.com/entrhq/formai/pkg/browser"
)

const systemPrompt = `You operate a web browser to fill in and submit a contact form on behalf of the user.

Each turn you receive the current page: its URL, a list of form fields with CSS selectors, and cleaned HTML.
Reply with exactly one action in this XML format and nothing else:

<action type="fill"><selector>CSS selector</selector><value><![CDATA[text to type]]></value></action>
<action type="select"><selector>CSS selector of a select element</selector><value>option value or label</value></action>
<action type="click"><selector>CSS selector</selector></action>
<action type="wait"><selector>CSS selector to wait for</selector></action>
<action type="done"><summary>what happened, quoting any confirmation message shown</summary></action>

Rules:
- Use selectors from the field list when possible. Prefer #id, then [name="..."].
- Fill every required field. Field labels may be Japanese or English.
- Leave fields you have no data for empty unless they are required; then choose a reasonable value.
- Check required consent checkboxes by clicking them.
- After submitting, if a confirmation step appears (確認画面), click its submit button as well.
- Reply with done once the page confirms the submission, or when the task cannot be completed; explain why in the summary.
- Never attempt to solve a CAPTCHA. If one blocks submission, reply with done and say so.`

const (
	maxPageTextRunes = 2000
	maxFeedbackRunes = 300
)

// observation renders the current page state for the LLM.
func observation(step int, url string, cleaned *browser.CleanedHTML) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step %d\nURL: %s\n", step, url)
	if cleaned.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", cleaned.Title)
	}

	b.WriteString("\nForm fields:\n")
	if len(cleaned.Fields) == 0 {
		b.WriteString("(none found)\n")
	}
	for _, f := range cleaned.Fields {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	b.WriteString("\nPage HTML:\n")
	b.WriteString(cleaned.HTML)
	if cleaned.Truncated {
		b.WriteString("\n[HTML truncated]")
	}
	return b.String()
}

func actionFeedback(a *Action, err error) string {
	if err != nil {
		return fmt.Sprintf("Action %s failed: %s", a, truncateRunes(err.Error(), maxFeedbackRunes))
	}
	return fmt.Sprintf("Action %s succeeded.", a)
}

func invalidReplyFeedback(err error) string {
	return fmt.Sprintf("Your reply could not be used: %s. Reply with exactly one <action> element.",
		truncateRunes(err.Error(), maxFeedbackRunes))
}

// finalText joins the done summary with the visible page text.
func finalText(summary, pageText string) string {
	pageText = truncateRunes(strings.Join(strings.Fields(pageText), " "), maxPageTextRunes)
	switch {
	case summary == "":
		return pageText
	case pageText == "":
		return summary
	}
	return summary + "\n" + pageText
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
