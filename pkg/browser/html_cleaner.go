package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxHTMLLength bounds the cleaned HTML sent to the LLM.
const DefaultMaxHTMLLength = 20000

// CleanedHTML is a page reduced to the markup that matters for filling in
// a form.
type CleanedHTML struct {
	HTML      string
	Title     string
	Fields    []Field
	Truncated bool
}

// Field is one fillable control found on the page.
type Field struct {
	Tag         string
	Type        string
	Name        string
	ID          string
	Label       string
	Placeholder string
	Required    bool
	Options     []string
}

// Selector returns a CSS selector that targets the field.
func (f Field) Selector() string {
	switch {
	case f.ID != "":
		return "#" + cssIdent(f.ID)
	case f.Name != "":
		return fmt.Sprintf(`%s[name="%s"]`, f.Tag, f.Name)
	}
	return ""
}

// String renders the field on one line for the observation prompt.
func (f Field) String() string {
	var b strings.Builder
	b.WriteString(f.Tag)
	if f.Type != "" {
		fmt.Fprintf(&b, "[%s]", f.Type)
	}
	if sel := f.Selector(); sel != "" {
		fmt.Fprintf(&b, " selector=%s", sel)
	}
	if f.Label != "" {
		fmt.Fprintf(&b, " label=%q", f.Label)
	}
	if f.Placeholder != "" {
		fmt.Fprintf(&b, " placeholder=%q", f.Placeholder)
	}
	if f.Required {
		b.WriteString(" required")
	}
	if len(f.Options) > 0 {
		fmt.Fprintf(&b, " options=%q", f.Options)
	}
	return b.String()
}

// Clean parses rawHTML, drops scripts, styles and other noise, and keeps
// the structure and attributes used to locate form controls. Output longer
// than maxLength is cut and marked as truncated.
func Clean(rawHTML string, maxLength int) (*CleanedHTML, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxHTMLLength
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	c := &cleaner{maxLength: maxLength}
	c.walk(doc, 0)

	return &CleanedHTML{
		HTML:      strings.TrimSpace(c.out.String()),
		Title:     findTitle(doc),
		Fields:    collectFields(doc),
		Truncated: c.truncated,
	}, nil
}

type cleaner struct {
	out       strings.Builder
	length    int
	maxLength int
	truncated bool
}

func (c *cleaner) walk(n *html.Node, depth int) {
	if c.truncated {
		return
	}
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		c.text(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if skippedElements[tag] || isHiddenInput(n) {
			return
		}
		c.element(n, tag, depth)
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth)
	}
}

func (c *cleaner) text(data string) {
	text := strings.Join(strings.Fields(data), " ")
	if text == "" {
		return
	}
	if c.length+len(text) > c.maxLength {
		text = truncateUTF8(text, c.maxLength-c.length) + "..."
		c.truncated = true
	}
	c.out.WriteString(text)
	c.length += len(text)
}

func (c *cleaner) element(n *html.Node, tag string, depth int) {
	block := blockElements[tag]
	if block && depth > 0 {
		c.out.WriteString("\n" + strings.Repeat("  ", depth))
	}

	c.out.WriteString("<" + tag)
	for _, attr := range n.Attr {
		if keepAttribute(tag, strings.ToLower(attr.Key)) {
			fmt.Fprintf(&c.out, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
		}
	}
	c.out.WriteString(">")
	c.length += len(tag) + 2

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth+1)
	}

	if voidElements[tag] {
		return
	}
	if block {
		c.out.WriteString("\n" + strings.Repeat("  ", depth))
	}
	c.out.WriteString("</" + tag + ">")
	c.length += len(tag) + 3
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
	"canvas":   true,
	"template": true,
	"link":     true,
	"meta":     true,
	"head":     true,
}

var blockElements = map[string]bool{
	"div": true, "p": true, "section": true, "article": true, "header": true,
	"footer": true, "nav": true, "main": true, "aside": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "ul": true,
	"ol": true, "li": true, "table": true, "tr": true, "td": true, "th": true,
	"form": true, "fieldset": true, "dl": true, "dt": true, "dd": true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var globalAttributes = map[string]bool{
	"id":               true,
	"class":            true,
	"role":             true,
	"title":            true,
	"aria-label":       true,
	"aria-required":    true,
	"aria-describedby": true,
}

func keepAttribute(tag, attr string) bool {
	if globalAttributes[attr] {
		return true
	}
	if strings.HasPrefix(attr, "data-") {
		return false
	}
	switch tag {
	case "input":
		switch attr {
		case "name", "type", "placeholder", "value", "required", "checked", "maxlength":
			return true
		}
	case "textarea":
		return attr == "name" || attr == "placeholder" || attr == "required"
	case "select":
		return attr == "name" || attr == "required" || attr == "multiple"
	case "option":
		return attr == "value" || attr == "selected"
	case "button":
		return attr == "type" || attr == "name" || attr == "value"
	case "label":
		return attr == "for"
	case "form":
		return attr == "action" || attr == "method" || attr == "name"
	case "a":
		return attr == "href"
	case "img":
		return attr == "alt"
	}
	return false
}

func isHiddenInput(n *html.Node) bool {
	return strings.EqualFold(n.Data, "input") && strings.EqualFold(attr(n, "type"), "hidden")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

// textContent returns the collapsed text below n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		if n.Type == html.ElementNode && skippedElements[strings.ToLower(n.Data)] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = textContent(n)
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// collectFields lists visible form controls with their labels. A label is
// taken from <label for=id>, an enclosing <label>, or aria-label.
func collectFields(doc *html.Node) []Field {
	labels := make(map[string]string)
	var controls []*html.Node
	enclosing := make(map[*html.Node]string)

	var walk func(n *html.Node, label string)
	walk = func(n *html.Node, label string) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "label":
				text := textContent(n)
				if id := attr(n, "for"); id != "" {
					labels[id] = text
				}
				label = text
			case "input", "textarea", "select":
				if !isHiddenInput(n) && !isButtonInput(n) {
					controls = append(controls, n)
					if label != "" {
						enclosing[n] = label
					}
				}
			case "script", "style", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, label)
		}
	}
	walk(doc, "")

	fields := make([]Field, 0, len(controls))
	for _, n := range controls {
		f := Field{
			Tag:         strings.ToLower(n.Data),
			Type:        strings.ToLower(attr(n, "type")),
			Name:        attr(n, "name"),
			ID:          attr(n, "id"),
			Placeholder: attr(n, "placeholder"),
			Required:    hasAttr(n, "required") || strings.EqualFold(attr(n, "aria-required"), "true"),
		}
		switch {
		case f.ID != "" && labels[f.ID] != "":
			f.Label = labels[f.ID]
		case enclosing[n] != "":
			f.Label = enclosing[n]
		default:
			f.Label = attr(n, "aria-label")
		}
		if f.Tag == "select" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && strings.EqualFold(c.Data, "option") {
					f.Options = append(f.Options, textContent(c))
				}
			}
		}
		fields = append(fields, f)
	}
	return fields
}

func isButtonInput(n *html.Node) bool {
	if !strings.EqualFold(n.Data, "input") {
		return false
	}
	switch strings.ToLower(attr(n, "type")) {
	case "submit", "button", "reset", "image":
		return true
	}
	return false
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// cssIdent escapes characters that cannot appear bare in a CSS id selector.
func cssIdent(id string) string {
	var b strings.Builder
	for i, r := range id {
		switch {
		case r == '-' || r == '_' || r >= 0x80,
			r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, `\3%c `, r)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
