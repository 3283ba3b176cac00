package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"

	"github.com/lexandro/promptattach/optimize"
	"github.com/lexandro/promptattach/view"
)

// Output is a rendered template whose attachment-content substitutions are
// wrapped in reference markers, together with the metadata the optimizer
// needs to decide what to relocate.
type Output struct {
	Text       string
	References []optimize.Reference
}

// Engine renders prompt templates against an attachment namespace.
type Engine struct {
	Logger *slog.Logger
	// Funcs are extra template functions. They cannot shadow the built-in
	// helpers.
	Funcs template.FuncMap
}

// Render parses and executes text. namespace maps aliases to views; vars are
// extra template variables whose names must not collide with aliases.
func (e *Engine) Render(name, text string, namespace map[string]view.View, vars map[string]any) (Output, error) {
	data := make(map[string]any, len(namespace)+len(vars))
	aliases := make(map[string]bool, len(namespace))
	for k, v := range vars {
		data[k] = v
	}
	for alias, v := range namespace {
		if _, clash := vars[alias]; clash {
			return Output{}, fmt.Errorf("template variable %q collides with an attachment alias", alias)
		}
		data[alias] = v
		aliases[alias] = true
	}

	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(e.Funcs).
		Funcs(helpers()).
		Parse(text)
	if err != nil {
		return Output{}, fmt.Errorf("parsing template %s: %w", name, err)
	}

	rw := &rewriter{aliases: aliases}
	rw.rewrite(tmpl)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Output{}, fmt.Errorf("rendering template %s: %w", name, err)
	}

	if e.Logger != nil {
		e.Logger.Debug("template rendered", "template", name, "references", len(rw.refs), "bytes", buf.Len())
	}
	return Output{Text: buf.String(), References: rw.refs}, nil
}

func helpers() template.FuncMap {
	return template.FuncMap{
		refFunc: attachRef,
		"single": func(v view.View) (any, error) {
			return v.Single()
		},
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"indent": func(spaces int, s string) string {
			pad := strings.Repeat(" ", spaces)
			lines := strings.Split(s, "\n")
			for i, line := range lines {
				if line != "" {
					lines[i] = pad + line
				}
			}
			return strings.Join(lines, "\n")
		},
		"fence": func(lang string, s string) string {
			fence := "```"
			for strings.Contains(s, fence) {
				fence += "`"
			}
			return fence + lang + "\n" + strings.TrimRight(s, "\n") + "\n" + fence
		},
	}
}

// attachRef wraps a rendered content value in the markers for id. A list of
// contents from a collection is joined with blank lines.
func attachRef(id string, v any) string {
	var text string
	switch v := v.(type) {
	case string:
		text = v
	case []string:
		text = strings.Join(v, "\n\n")
	default:
		text = fmt.Sprint(v)
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return text
	}
	return optimize.Wrap(n, text)
}
