// ABOUTME: Renders a chat's user-visible history as Markdown and HTML
// ABOUTME: Uses goldmark with GFM extensions for the HTML output

package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/coven-chorus/internal/chat"
	"github.com/2389/coven-chorus/internal/message"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Author returns the heading used for msg.
func Author(msg message.Message) string {
	if msg.Name != "" {
		return msg.Name
	}
	switch msg.Role {
	case message.RoleUser:
		return "You"
	case message.RoleAssistant:
		return "Assistant"
	default:
		return "System"
	}
}

// Markdown renders the chat as a Markdown document.
func Markdown(c *chat.Chat) (string, error) {
	user, err := c.SoleUser()
	if err != nil {
		return "", err
	}
	msgs, err := c.Context(user.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Topic)
	fmt.Fprintf(&b, "_%s_\n\n", c.CreatedAt.Format(time.RFC3339))
	for _, msg := range msgs {
		if msg.Role == message.RoleSystem {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", Author(msg), strings.TrimSpace(msg.Content))
	}
	return b.String(), nil
}

// HTML renders the chat as an HTML fragment.
func HTML(c *chat.Chat) ([]byte, error) {
	src, err := Markdown(c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// WriteHTMLPage writes a standalone HTML document for the chat.
func WriteHTMLPage(w io.Writer, c *chat.Chat) error {
	body, err := HTML(c)
	if err != nil {
		return err
	}
	return pageTmpl.Execute(w, struct {
		Title string
		Body  template.HTML
	}{
		Title: c.Topic,
		// goldmark output with raw HTML disabled
		Body: template.HTML(body),
	})
}
