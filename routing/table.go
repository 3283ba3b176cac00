package routing

import (
	"fmt"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/language"
	"github.com/lexandro/promptattach/materialize"
	"github.com/lexandro/promptattach/view"
)

// ConfigError is an attachment set that is well-formed but cannot be routed.
// It is reported before anything is rendered or uploaded.
type ConfigError struct {
	Alias  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("attachment %q: %s", e.Alias, e.Reason)
}

// Entry binds one alias to its view and resolved targets.
type Entry struct {
	Spec      attach.Spec // Targets has Auto replaced by the resolved target
	View      view.View
	Requested attach.Targets // targets as given on the command line, before Auto resolution
}

// Upload is one file to hand to an external tool.
type Upload struct {
	Target attach.Target
	Alias  string
	Record *materialize.Record
}

// Table is the routing result: the template namespace plus the per-tool
// upload lists.
type Table struct {
	// Namespace is the alias -> view binding consumed by the template engine.
	Namespace map[string]view.View
	// Bindings has one entry per attachment, in CLI order.
	Bindings []Entry
	// Entries has one entry per attachment targeting an external tool.
	Entries []Entry
	uploads map[attach.Target][]Upload
}

// Build routes parsed specs and their materialized views. Every spec must have
// a non-empty view.
func Build(specs []attach.Spec, views map[string]view.View) (*Table, error) {
	return BuildResolved(specs, views, nil)
}

// BuildResolved is Build with the auto targets already decided by the caller,
// keyed by alias. Auto aliases missing from resolved fall back to ResolveAuto.
func BuildResolved(specs []attach.Spec, views map[string]view.View, resolved map[string]attach.Targets) (*Table, error) {
	t := &Table{
		Namespace: make(map[string]view.View, len(specs)),
		uploads:   make(map[attach.Target][]Upload),
	}
	seen := make(map[attach.Target]map[string]bool)

	for _, spec := range specs {
		v, ok := views[spec.Alias]
		if !ok || len(v) == 0 {
			return nil, &ConfigError{Alias: spec.Alias, Reason: "no files were materialized"}
		}
		requested := spec.Targets
		if spec.Targets.Has(attach.Auto) {
			if targets, ok := resolved[spec.Alias]; ok {
				spec.Targets = targets
			} else {
				spec.Targets = ResolveAuto(v)
			}
		}
		if spec.Targets.Has(attach.Vision) {
			if err := checkVision(spec.Alias, v); err != nil {
				return nil, err
			}
		}

		entry := Entry{Spec: spec, View: v, Requested: requested}
		t.Namespace[spec.Alias] = v
		t.Bindings = append(t.Bindings, entry)
		if !spec.Targets.Uploads() {
			continue
		}
		t.Entries = append(t.Entries, entry)

		for _, target := range spec.Targets.List() {
			if target == attach.Template {
				continue
			}
			if seen[target] == nil {
				seen[target] = make(map[string]bool)
			}
			for _, rec := range v {
				// The same bytes reached through two aliases are uploaded once.
				if seen[target][rec.Hash] {
					continue
				}
				seen[target][rec.Hash] = true
				t.uploads[target] = append(t.uploads[target], Upload{Target: target, Alias: spec.Alias, Record: rec})
			}
		}
	}
	return t, nil
}

// ResolveAuto picks a target from what the files turned out to be: text goes
// to the template, images to the vision tool, anything else to code execution.
func ResolveAuto(v view.View) attach.Targets {
	allText, allImages := true, true
	for _, rec := range v {
		if !rec.IsText() {
			allText = false
		}
		if rec.IsText() || !language.IsImage(rec.Name) {
			allImages = false
		}
	}
	switch {
	case allText:
		return attach.Template
	case allImages:
		return attach.Vision
	default:
		return attach.Execution
	}
}

func checkVision(alias string, v view.View) error {
	for _, rec := range v {
		if rec.IsText() {
			return &ConfigError{Alias: alias, Reason: fmt.Sprintf("user-data target requires binary files, but %s decoded as text", rec.Path)}
		}
	}
	return nil
}

// Uploads returns the de-duplicated files for target in attachment order.
func (t *Table) Uploads(target attach.Target) []Upload {
	return t.uploads[target]
}

// Entry returns the binding for alias.
func (t *Table) Entry(alias string) (Entry, bool) {
	for _, e := range t.Bindings {
		if e.Spec.Alias == alias {
			return e, true
		}
	}
	return Entry{}, false
}
