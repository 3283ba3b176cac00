package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/lexandro/promptattach/diag"
)

// Mode selects how the policy reacts to paths outside the allow-lists.
type Mode int

const (
	// Permissive allows every path.
	Permissive Mode = iota
	// Warn allows every path but reports those outside the allow-lists.
	Warn
	// Strict allows only paths inside an allowed directory or equal to an allowed file.
	Strict
)

func (m Mode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case Warn:
		return "warn"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// ParseMode converts a case-insensitive mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "permissive", "":
		return Permissive, nil
	case "warn", "warning":
		return Warn, nil
	case "strict":
		return Strict, nil
	}
	return Permissive, fmt.Errorf("unknown security mode %q (want permissive, warn or strict)", s)
}

// Decision is the outcome of authorizing one path.
type Decision struct {
	Allowed   bool
	Canonical string // absolute path with ".." and symlinks resolved
	Reason    string // set when denied, or when allowed outside the allow-lists in warn mode
}

// DeniedError is returned by Check for paths rejected in strict mode.
type DeniedError struct {
	Path      string
	Canonical string
	Reason    string
}

func (e *DeniedError) Error() string {
	if e.Canonical != "" && e.Canonical != e.Path {
		return fmt.Sprintf("access denied: %s (resolves to %s): %s", e.Path, e.Canonical, e.Reason)
	}
	return fmt.Sprintf("access denied: %s: %s", e.Path, e.Reason)
}

// Options configures a Policy.
type Options struct {
	Mode         Mode
	AllowedDirs  []string
	AllowedFiles []string
	Sink         *diag.Sink
}

// Policy is the per-run path security policy. It is built once before any file
// access and is immutable afterwards, so it is safe for concurrent use.
type Policy struct {
	mode         Mode
	allowedDirs  []string
	allowedFiles map[string]struct{}
	sink         *diag.Sink
}

// NewPolicy canonicalizes the allow-lists and returns an immutable policy.
func NewPolicy(options Options) (*Policy, error) {
	p := &Policy{
		mode:         options.Mode,
		allowedFiles: make(map[string]struct{}, len(options.AllowedFiles)),
		sink:         options.Sink,
	}

	seen := make(map[string]bool)
	for _, dir := range options.AllowedDirs {
		canonical, err := Canonicalize(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving allowed directory %s: %w", dir, err)
		}
		key := foldCase(canonical)
		if seen[key] {
			continue
		}
		seen[key] = true
		p.allowedDirs = append(p.allowedDirs, canonical)
	}
	sort.Strings(p.allowedDirs)

	for _, file := range options.AllowedFiles {
		canonical, err := Canonicalize(file)
		if err != nil {
			return nil, fmt.Errorf("resolving allowed file %s: %w", file, err)
		}
		p.allowedFiles[foldCase(canonical)] = struct{}{}
	}
	return p, nil
}

// Mode returns the enforcement mode.
func (p *Policy) Mode() Mode { return p.mode }

// Authorize canonicalizes path and decides whether it may be read.
func (p *Policy) Authorize(path string) Decision {
	canonical, err := Canonicalize(path)
	if err != nil {
		// An unresolvable path can never be proven inside the allow-list.
		if p.mode == Strict {
			d := Decision{Canonical: path, Reason: fmt.Sprintf("cannot resolve path: %v", err)}
			p.sink.Emit(diag.Event{Kind: diag.KindPathDenied, Path: path, Reason: d.Reason})
			return d
		}
		return Decision{Allowed: true, Canonical: path}
	}

	if p.mode == Permissive || p.isAllowed(canonical) {
		return Decision{Allowed: true, Canonical: canonical}
	}

	reason := "outside allowed directories and files"
	if p.mode == Warn {
		p.sink.Emit(diag.Event{Kind: diag.KindOutsideAllowed, Path: canonical, Reason: reason})
		return Decision{Allowed: true, Canonical: canonical, Reason: reason}
	}

	p.sink.Emit(diag.Event{Kind: diag.KindPathDenied, Path: canonical, Reason: reason})
	return Decision{Canonical: canonical, Reason: reason}
}

// Check is Authorize in error form. It returns the canonical path when allowed.
func (p *Policy) Check(path string) (string, error) {
	d := p.Authorize(path)
	if !d.Allowed {
		return d.Canonical, &DeniedError{Path: path, Canonical: d.Canonical, Reason: d.Reason}
	}
	return d.Canonical, nil
}

func (p *Policy) isAllowed(canonical string) bool {
	key := foldCase(canonical)
	if _, ok := p.allowedFiles[key]; ok {
		return true
	}
	for _, dir := range p.allowedDirs {
		if IsWithin(dir, canonical) {
			return true
		}
	}
	return false
}

// IsWithin reports whether path equals dir or lies beneath it. Both arguments
// must already be canonical.
func IsWithin(dir, path string) bool {
	d, q := foldCase(dir), foldCase(path)
	if q == d {
		return true
	}
	if !strings.HasSuffix(d, string(filepath.Separator)) {
		d += string(filepath.Separator)
	}
	return strings.HasPrefix(q, d)
}

// Canonicalize returns the absolute, cleaned form of path with symlinks
// resolved. For paths that do not exist yet, the nearest existing ancestor is
// resolved and the remaining components are re-joined.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	var tail []string
	current := abs
	for {
		parent := filepath.Dir(current)
		tail = append([]string{filepath.Base(current)}, tail...)
		if parent == current {
			return abs, nil
		}
		current = parent
		if _, statErr := os.Lstat(current); statErr != nil {
			continue
		}
		resolvedParent, err := filepath.EvalSymlinks(current)
		if err != nil {
			return "", err
		}
		return filepath.Join(append([]string{resolvedParent}, tail...)...), nil
	}
}

// foldCase folds case on filesystems that are case-insensitive by default.
func foldCase(path string) string {
	switch runtime.GOOS {
	case "windows", "darwin":
		return strings.ToLower(path)
	}
	return path
}
