package attach

import (
	"sort"
	"strings"
)

// Target is a destination category for an attachment. Targets combine as a bitset.
type Target uint8

const (
	Template Target = 1 << iota
	Execution
	Search
	Vision
	// Auto defers the choice until the files have been read.
	Auto
)

// Targets is a set of Target values.
type Targets = Target

// targetNames maps CLI tokens to targets. Lookups are case-insensitive.
var targetNames = map[string]Target{
	"prompt":           Template,
	"template":         Template,
	"ci":               Execution,
	"code-interpreter": Execution,
	"fs":               Search,
	"file-search":      Search,
	"ud":               Vision,
	"user-data":        Vision,
	"auto":             Auto,
}

var canonicalNames = []struct {
	target Target
	name   string
}{
	{Template, "prompt"},
	{Execution, "code-interpreter"},
	{Search, "file-search"},
	{Vision, "user-data"},
	{Auto, "auto"},
}

// LookupTarget resolves a single target token.
func LookupTarget(token string) (Target, bool) {
	t, ok := targetNames[strings.ToLower(strings.TrimSpace(token))]
	return t, ok
}

// Has reports whether all bits of other are present in t.
func (t Target) Has(other Target) bool { return other != 0 && t&other == other }

// Uploads reports whether any external-tool target is set.
func (t Target) Uploads() bool { return t&(Execution|Search|Vision) != 0 }

// TemplateOnly reports whether the attachment is only inlined into the template.
func (t Target) TemplateOnly() bool { return t == Template }

// List returns the individual targets in canonical order.
func (t Target) List() []Target {
	var out []Target
	for _, c := range canonicalNames {
		if t&c.target != 0 {
			out = append(out, c.target)
		}
	}
	return out
}

// Names returns the canonical names of the targets in t.
func (t Target) Names() []string {
	var out []string
	for _, c := range canonicalNames {
		if t&c.target != 0 {
			out = append(out, c.name)
		}
	}
	return out
}

func (t Target) String() string {
	if t == 0 {
		return "none"
	}
	return strings.Join(t.Names(), ",")
}

// SourceKind tells how an attachment's path is interpreted.
type SourceKind int

const (
	File SourceKind = iota
	Directory
	Collection
)

func (k SourceKind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "dir"
	case Collection:
		return "collect"
	default:
		return "unknown"
	}
}

// Spec is one parsed attachment: the CLI intent before any file is touched.
type Spec struct {
	Alias   string
	Targets Targets
	Kind    SourceKind
	// Path is the file or directory for File/Directory kinds, and the list file
	// for Collection kind.
	Path      string
	Recursive bool
	// Pattern optionally restricts directory collection to matching relative paths.
	Pattern string
}

// Aliases returns the aliases of specs in sorted order.
func Aliases(specs []Spec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Alias)
	}
	sort.Strings(out)
	return out
}
