package history

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/nao1215/markdown"

	"github.com/entrhq/formai/pkg/types"
)

const reportTimeFormat = "2006-01-02 15:04:05"

// maxURLWidth bounds the URL column of both report formats.
const maxURLWidth = 60

var reportHeader = []string{"Time", "Status", "URL", "Model", "Tokens", "Cost (USD)", "CAPTCHA"}

func reportRow(e Entry) []string {
	tokens := "-"
	if e.Outcome.TokensUsed != nil {
		tokens = strconv.Itoa(*e.Outcome.TokensUsed)
	}
	cost := "-"
	if e.Outcome.CostEstimate != nil {
		cost = strconv.FormatFloat(*e.Outcome.CostEstimate, 'f', 6, 64)
	}
	captcha := "no"
	if e.Outcome.CaptchaDetected {
		captcha = "yes"
	}
	return []string{
		e.CreatedAt.Format(reportTimeFormat),
		string(e.Outcome.Status),
		truncateString(e.Outcome.URL, maxURLWidth),
		e.Model,
		tokens,
		cost,
		captcha,
	}
}

// WriteMarkdown renders entries as a Markdown report.
func WriteMarkdown(w io.Writer, entries []Entry) error {
	md := markdown.NewMarkdown(w)
	md.H1("Submission History")
	md.PlainText("")

	if len(entries) == 0 {
		md.PlainText("No submissions recorded.")
		return md.Build()
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := reportRow(e)
		row[1] = statusBadge(e.Outcome.Status)
		row[2] = "`" + row[2] + "`"
		rows = append(rows, row)
	}
	md.Table(markdown.TableSet{
		Header: reportHeader,
		Rows:   rows,
	})
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   summaryRows(entries),
	})
	return md.Build()
}

// WriteText renders entries as an aligned plain-text table.
func WriteText(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No submissions recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(reportHeader, "\t"))
	for _, e := range entries {
		fmt.Fprintln(tw, strings.Join(reportRow(e), "\t"))
	}
	return tw.Flush()
}

func statusBadge(s types.SubmissionStatus) string {
	switch s {
	case types.StatusSuccess:
		return "✅ success"
	case types.StatusTimeout:
		return "⏱️ timeout"
	case types.StatusError:
		return "❌ error"
	}
	return string(s)
}

func summaryRows(entries []Entry) [][]string {
	order := []types.SubmissionStatus{types.StatusSuccess, types.StatusTimeout, types.StatusError}
	counts := make(map[types.SubmissionStatus]int)
	for _, e := range entries {
		counts[e.Outcome.Status]++
	}
	rows := make([][]string, 0, len(order)+1)
	for _, s := range order {
		rows = append(rows, []string{string(s), strconv.Itoa(counts[s])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(entries)) + "**"})
	return rows
}

// truncateString shortens s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
