package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cuemby/meshrelay/pkg/types"
)

// Renderer turns messages into notification text
type Renderer struct {
	templates *TemplateSet
}

// NewRenderer creates a renderer for the given template set
func NewRenderer(templates *TemplateSet) *Renderer {
	return &Renderer{templates: templates}
}

// Templates returns the template set
func (r *Renderer) Templates() *TemplateSet {
	return r.templates
}

// Render returns the notification text for msg. It always returns a
// non-empty string; template failures produce the error template instead.
func (r *Renderer) Render(msg *types.Message) string {
	text, _ := r.Execute(msg)
	return text
}

// Execute renders msg like Render and also reports the template error that
// caused a fallback, if any. The returned text is usable either way.
func (r *Renderer) Execute(msg *types.Message) (string, error) {
	tmpl := r.templates.Lookup(string(msg.Type))

	text, err := tmpl.Execute(NewContext(msg))
	if err != nil {
		return ErrorText(msg), err
	}
	if text == "" {
		return ErrorText(msg), &Error{Template: tmpl.Name(), Err: fmt.Errorf("rendered empty text")}
	}
	return text, nil
}

// ErrorText renders the fixed error template: the type tag and an indented
// JSON dump of the whole message, both escaped for code entities
func ErrorText(msg *types.Message) string {
	return fmt.Sprintf("⚠️ *Template error*\n*Type:* `%s`\n```\n%s\n```",
		EscapeCode(string(msg.Type)), EscapeCode(indentedJSON(msg)))
}

func indentedJSON(msg *types.Message) string {
	data, err := msg.MarshalJSON()
	if err != nil {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
