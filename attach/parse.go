package attach

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseError reports a malformed attachment token or an invalid attachment set.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return "invalid attachment: " + e.Reason
	}
	return fmt.Sprintf("invalid attachment %q: %s", e.Token, e.Reason)
}

// Token is a raw CLI attachment value tagged with the flag it came from.
type Token struct {
	Kind  SourceKind
	Value string
}

// Parse parses "[targets:]alias path" for the given source kind.
func Parse(kind SourceKind, token string) (Spec, error) {
	trimmed := strings.TrimSpace(token)
	split := strings.IndexFunc(trimmed, unicode.IsSpace)
	if split < 0 {
		return Spec{}, &ParseError{Token: token, Reason: "expected \"[targets:]alias path\""}
	}
	head := trimmed[:split]
	path := strings.TrimSpace(trimmed[split:])

	targets := Template
	alias := head
	if i := strings.IndexByte(head, ':'); i >= 0 {
		prefix := head[:i]
		alias = head[i+1:]
		parsed, err := parseTargets(prefix)
		if err != nil {
			return Spec{}, &ParseError{Token: token, Reason: err.Error()}
		}
		targets = parsed
	}

	if !aliasPattern.MatchString(alias) {
		return Spec{}, &ParseError{Token: token, Reason: fmt.Sprintf("alias %q is not a valid identifier", alias)}
	}

	if kind == Collection {
		path = strings.TrimPrefix(path, "@")
	}
	if path == "" {
		return Spec{}, &ParseError{Token: token, Reason: "missing path"}
	}

	return Spec{
		Alias:     alias,
		Targets:   targets,
		Kind:      kind,
		Path:      path,
		Recursive: kind == Directory,
	}, nil
}

func parseTargets(prefix string) (Targets, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("empty target list before ':'")
	}
	var targets Targets
	for _, part := range strings.Split(prefix, ",") {
		t, ok := LookupTarget(part)
		if !ok {
			return 0, fmt.Errorf("unknown target %q", strings.TrimSpace(part))
		}
		targets |= t
	}
	if targets.Has(Auto) && targets != Auto {
		return 0, fmt.Errorf("target auto cannot be combined with other targets")
	}
	return targets, nil
}

// ParseAll parses every token and rejects alias collisions across the set.
func ParseAll(tokens []Token) ([]Spec, error) {
	specs := make([]Spec, 0, len(tokens))
	seen := make(map[string]string, len(tokens))
	for _, tok := range tokens {
		spec, err := Parse(tok.Kind, tok.Value)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[spec.Alias]; dup {
			return nil, &ParseError{
				Token:  tok.Value,
				Reason: fmt.Sprintf("alias %q already bound by %q", spec.Alias, prev),
			}
		}
		seen[spec.Alias] = tok.Value
		specs = append(specs, spec)
	}
	return specs, nil
}

// ValidateVariables rejects template variable names that collide with an
// attachment alias or that are not identifiers.
func ValidateVariables(specs []Spec, names []string) error {
	aliases := make(map[string]bool, len(specs))
	for _, s := range specs {
		aliases[s.Alias] = true
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !aliasPattern.MatchString(name) {
			return &ParseError{Reason: fmt.Sprintf("variable name %q is not a valid identifier", name)}
		}
		if aliases[name] {
			return &ParseError{Reason: fmt.Sprintf("variable %q collides with an attachment alias", name)}
		}
		if seen[name] {
			return &ParseError{Reason: fmt.Sprintf("variable %q defined more than once", name)}
		}
		seen[name] = true
	}
	return nil
}
