package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultTemplate is the mandatory template key used when no type-specific
// template exists
const DefaultTemplate = "default"

// Error reports a template that could not be rendered
type Error struct {
	Template string
	Offset   int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template %q at offset %d: %v", e.Template, e.Offset, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	errUnbalancedOpen  = errors.New("unbalanced '{'")
	errUnbalancedClose = errors.New("single '}' encountered")
	errEmptyField      = errors.New("empty placeholder name")
	errNestedField     = errors.New("nested '{' in placeholder")
)

// segment is either literal text or a placeholder name
type segment struct {
	literal string
	field   string
	isField bool
}

// Template is a compiled message template.
// A template that fails to compile is kept with its error, which is
// reported when it is executed.
type Template struct {
	name     string
	source   string
	segments []segment
	fields   []string
	err      error
}

// Compile parses src into literal and placeholder segments.
//
// Placeholders are written {name}. {{ and }} produce literal braces.
// A format suffix such as {name:>10} or {name!r} is accepted and ignored.
func Compile(name, src string) *Template {
	t := &Template{name: name, source: src}
	t.segments, t.err = parse(name, src)

	seen := make(map[string]bool)
	for _, seg := range t.segments {
		if seg.isField && !seen[seg.field] {
			seen[seg.field] = true
			t.fields = append(t.fields, seg.field)
		}
	}
	return t
}

func parse(name, src string) ([]segment, error) {
	var (
		segments []segment
		lit      strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			segments = append(segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, &Error{Template: name, Offset: i, Err: errUnbalancedOpen}
			}
			body := src[i+1 : i+1+end]
			if strings.IndexByte(body, '{') >= 0 {
				return nil, &Error{Template: name, Offset: i, Err: errNestedField}
			}
			field := body
			if j := strings.IndexAny(body, ":!"); j >= 0 {
				field = body[:j]
			}
			if field == "" {
				return nil, &Error{Template: name, Offset: i, Err: errEmptyField}
			}
			flush()
			segments = append(segments, segment{field: field, isField: true})
			i += end + 1
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, &Error{Template: name, Offset: i, Err: errUnbalancedClose}
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return segments, nil
}

// Name returns the template key
func (t *Template) Name() string {
	return t.name
}

// Source returns the uncompiled template text
func (t *Template) Source() string {
	return t.source
}

// Fields returns the placeholder names referenced by the template, in order
// of first use
func (t *Template) Fields() []string {
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}

// Err returns the compile error, if any
func (t *Template) Err() error {
	return t.err
}

// Execute substitutes ctx into the template. Names missing from ctx are
// rendered as MissingValue.
func (t *Template) Execute(ctx *Context) (string, error) {
	if t.err != nil {
		return "", t.err
	}

	var b strings.Builder
	b.Grow(len(t.source))
	for _, seg := range t.segments {
		if !seg.isField {
			b.WriteString(seg.literal)
			continue
		}
		if v, ok := ctx.Get(seg.field); ok {
			b.WriteString(v)
		} else {
			b.WriteString(MissingValue)
		}
	}
	return b.String(), nil
}

// TemplateSet maps message type tags to compiled templates
type TemplateSet struct {
	templates map[string]*Template
}

// NewTemplateSet compiles every template in src. The "default" entry must be
// present and non-empty.
func NewTemplateSet(src map[string]string) (*TemplateSet, error) {
	if strings.TrimSpace(src[DefaultTemplate]) == "" {
		return nil, fmt.Errorf("template %q is required and must not be empty", DefaultTemplate)
	}

	set := &TemplateSet{templates: make(map[string]*Template, len(src))}
	for name, text := range src {
		set.templates[name] = Compile(name, text)
	}
	return set, nil
}

// Lookup returns the template for a type tag, falling back to "default"
func (s *TemplateSet) Lookup(msgType string) *Template {
	if t, ok := s.templates[msgType]; ok {
		return t
	}
	return s.templates[DefaultTemplate]
}

// Names returns the template keys in sorted order
func (s *TemplateSet) Names() []string {
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Errors returns the compile errors of all templates, keyed by name
func (s *TemplateSet) Errors() map[string]error {
	errs := make(map[string]error)
	for name, t := range s.templates {
		if t.err != nil {
			errs[name] = t.err
		}
	}
	return errs
}
