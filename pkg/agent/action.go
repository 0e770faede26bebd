package agent

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// ActionType names a browser action the LLM may request.
type ActionType string

const (
	ActionFill   ActionType = "fill"
	ActionClick  ActionType = "click"
	ActionSelect ActionType = "select"
	ActionWait   ActionType = "wait"
	ActionDone   ActionType = "done"
)

const maxActionSize = 64 * 1024

var actionRegex = regexp.MustCompile(`(?s)<action\b.*?</action>`)

// ampersandEntityRegex matches ampersands that already start an entity.
var ampersandEntityRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)

// Action is one step requested by the LLM:
//
//	<action type="fill">
//	  <selector>#email</selector>
//	  <value><![CDATA[info@example.com]]></value>
//	</action>
type Action struct {
	XMLName  xml.Name   `xml:"action"`
	Type     ActionType `xml:"type,attr"`
	Selector string     `xml:"selector"`
	Value    string     `xml:"value"`
	Summary  string     `xml:"summary"`
}

// Validate checks that the action carries the fields its type needs.
func (a *Action) Validate() error {
	switch a.Type {
	case ActionFill, ActionSelect:
		if a.Selector == "" {
			return fmt.Errorf("%s requires a selector", a.Type)
		}
	case ActionClick, ActionWait:
		if a.Selector == "" {
			return fmt.Errorf("%s requires a selector", a.Type)
		}
		if a.Value != "" {
			return fmt.Errorf("%s does not take a value", a.Type)
		}
	case ActionDone:
	case "":
		return fmt.Errorf("action type is required")
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// String renders the action for logs and feedback messages.
func (a *Action) String() string {
	switch a.Type {
	case ActionFill, ActionSelect:
		return fmt.Sprintf("%s %s = %q", a.Type, a.Selector, a.Value)
	case ActionDone:
		return "done"
	}
	return fmt.Sprintf("%s %s", a.Type, a.Selector)
}

// ParseAction extracts the first <action> element from an LLM reply.
func ParseAction(text string) (*Action, error) {
	if len(text) > maxActionSize {
		return nil, fmt.Errorf("reply exceeds maximum size of %d bytes", maxActionSize)
	}
	raw := actionRegex.FindString(text)
	if raw == "" {
		return nil, fmt.Errorf("no <action> element found in reply")
	}

	var a Action
	if err := unmarshalXMLWithFallback([]byte(raw), &a); err != nil {
		snippet := raw
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		return nil, fmt.Errorf("failed to parse action XML: %w\nXML snippet: %s", err, snippet)
	}

	a.Type = ActionType(strings.ToLower(strings.TrimSpace(string(a.Type))))
	a.Selector = strings.TrimSpace(a.Selector)
	a.Summary = strings.TrimSpace(a.Summary)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// unmarshalXMLWithFallback retries with bare ampersands escaped, which LLMs
// frequently emit inside values.
func unmarshalXMLWithFallback(data []byte, v interface{}) error {
	if err := xml.Unmarshal(data, v); err == nil {
		return nil
	}
	return xml.Unmarshal(escapeUnescapedAmpersands(data), v)
}

func escapeUnescapedAmpersands(data []byte) []byte {
	text := string(data)
	entities := make(map[int]bool)
	for _, m := range ampersandEntityRegex.FindAllStringIndex(text, -1) {
		entities[m[0]] = true
	}

	var b strings.Builder
	b.Grow(len(text) + 16)
	for i := 0; i < len(text); i++ {
		if text[i] == '&' && !entities[i] {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(text[i])
	}
	return []byte(b.String())
}
