package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactPage = `<html>
<head>
  <title>お問い合わせ | Example</title>
  <meta name="description" content="contact">
  <script>window.track = function() {}</script>
  <style>.form { color: red; }</style>
</head>
<body>
  <nav><a href="/">Home</a></nav>
  <form action="/contact" method="post" data-tracking="x">
    <input type="hidden" name="csrf" value="secret-token">
    <label for="company">会社名</label>
    <input type="text" id="company" name="company" required>
    <label>お名前 <input type="text" name="your-name" placeholder="山田太郎"></label>
    <input type="email" name="email" aria-label="Email" aria-required="true">
    <select name="topic">
      <option value="">選択してください</option>
      <option value="sales">営業</option>
    </select>
    <textarea id="msg" name="message"></textarea>
    <input type="submit" value="送信">
    <button type="submit" class="btn">Send</button>
  </form>
  <!-- comment -->
  <iframe src="https://www.google.com/recaptcha/api2/anchor"></iframe>
</body>
</html>`

func TestClean_KeepsFormStructure(t *testing.T) {
	cleaned, err := Clean(contactPage, 0)
	require.NoError(t, err)

	assert.Equal(t, "お問い合わせ | Example", cleaned.Title)
	assert.False(t, cleaned.Truncated)

	for _, want := range []string{
		`<form action="/contact" method="post">`,
		`<label for="company">`,
		`id="company"`,
		`name="company"`,
		`required=""`,
		`placeholder="山田太郎"`,
		`<option value="sales">`,
		`<textarea id="msg" name="message">`,
		`<button type="submit" class="btn">`,
		"会社名",
	} {
		assert.Contains(t, cleaned.HTML, want)
	}

	for _, unwanted := range []string{
		"<script", "window.track", "<style", "color: red",
		"csrf", "secret-token", "comment", "<iframe", "data-tracking", "<meta",
	} {
		assert.NotContains(t, cleaned.HTML, unwanted)
	}
}

func TestClean_CollectsFields(t *testing.T) {
	cleaned, err := Clean(contactPage, 0)
	require.NoError(t, err)
	require.Len(t, cleaned.Fields, 5)

	company := cleaned.Fields[0]
	assert.Equal(t, "input", company.Tag)
	assert.Equal(t, "会社名", company.Label)
	assert.True(t, company.Required)
	assert.Equal(t, "#company", company.Selector())

	name := cleaned.Fields[1]
	assert.Equal(t, "お名前", name.Label)
	assert.Equal(t, `input[name="your-name"]`, name.Selector())

	email := cleaned.Fields[2]
	assert.Equal(t, "Email", email.Label)
	assert.True(t, email.Required)

	topic := cleaned.Fields[3]
	assert.Equal(t, "select", topic.Tag)
	assert.Equal(t, []string{"選択してください", "営業"}, topic.Options)

	msg := cleaned.Fields[4]
	assert.Equal(t, "textarea", msg.Tag)
	assert.Equal(t, "#msg", msg.Selector())
	assert.Contains(t, msg.String(), "textarea selector=#msg")
}

func TestClean_Truncates(t *testing.T) {
	long := "<html><body><p>" + strings.Repeat("あ", 100) + "</p></body></html>"
	cleaned, err := Clean(long, 50)
	require.NoError(t, err)

	assert.True(t, cleaned.Truncated)
	assert.Contains(t, cleaned.HTML, "あ...")
	assert.Less(t, len(cleaned.HTML), 100)
}

func TestField_SelectorEscapesIDs(t *testing.T) {
	assert.Equal(t, `#a\.b`, Field{Tag: "input", ID: "a.b"}.Selector())
	assert.Equal(t, `#\31 st`, Field{Tag: "input", ID: "1st"}.Selector())
	assert.Equal(t, "", Field{Tag: "input"}.Selector())
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "", truncateUTF8("あいう", 0))
	assert.Equal(t, "あ", truncateUTF8("あいう", 4))
	assert.Equal(t, "abc", truncateUTF8("abc", 10))
}
