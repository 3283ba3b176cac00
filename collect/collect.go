package collect

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lexandro/promptattach/diag"
	"github.com/lexandro/promptattach/ignore"
	"github.com/lexandro/promptattach/security"
)

// Candidate is a path found by collection, before it is read.
type Candidate struct {
	AbsolutePath string    // canonical path, used for reading
	RelativePath string    // forward-slash path relative to the attachment root
	SizeBytes    int64     // size at collection time
	ModTime      time.Time // modification time at collection time
	Ignored      bool
	Reason       string // why the candidate was ignored
}

// Options configures directory collection.
type Options struct {
	Recursive bool
	// Pattern restricts collection to files whose relative path or base name
	// matches this doublestar pattern.
	Pattern          string
	IgnoreFile       string
	CustomIgnores    []string
	NoDefaultIgnores bool
}

// Collector walks attachment sources. Every visited path is authorized by the
// policy before anything else happens to it.
type Collector struct {
	Policy *security.Policy
	Sink   *diag.Sink
}

// Eligible returns the candidates that were not ignored, preserving order.
func Eligible(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Ignored {
			out = append(out, c)
		}
	}
	return out
}

// File resolves a single-file attachment.
func (c *Collector) File(path string) (Candidate, error) {
	canonical, err := c.Policy.Check(path)
	if err != nil {
		return Candidate{AbsolutePath: canonical, RelativePath: filepath.ToSlash(filepath.Base(path)), Ignored: true, Reason: err.Error()}, nil
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return Candidate{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("%s is a directory, attach it with --dir", path)
	}
	return Candidate{
		AbsolutePath: canonical,
		RelativePath: filepath.ToSlash(filepath.Base(path)),
		SizeBytes:    info.Size(),
		ModTime:      info.ModTime(),
	}, nil
}

// Directory walks root depth-first in lexicographic order and returns every
// file it visited, ignored ones included. Only non-recursive mode stops at the
// direct children of root.
func (c *Collector) Directory(root string, options Options) ([]Candidate, error) {
	if options.Pattern != "" && !doublestar.ValidatePattern(options.Pattern) {
		return nil, fmt.Errorf("invalid pattern: %s", options.Pattern)
	}
	canonicalRoot, err := c.Policy.Check(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(canonicalRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	w := &walker{
		collector: c,
		options:   options,
		root:      canonicalRoot,
		matcher: ignore.NewMatcher(ignore.MatcherOptions{
			RootDir:        canonicalRoot,
			FileName:       options.IgnoreFile,
			CustomPatterns: options.CustomIgnores,
			NoDefaults:     options.NoDefaultIgnores,
		}),
		stack: map[string]bool{canonicalRoot: true},
	}
	w.walk(canonicalRoot)
	return w.out, nil
}

type walker struct {
	collector *Collector
	options   Options
	root      string
	matcher   *ignore.Matcher
	stack     map[string]bool // canonical directories on the current descent path
	out       []Candidate
}

func (w *walker) emit(kind diag.Kind, path, reason string) {
	w.collector.Sink.Emit(diag.Event{Kind: kind, Path: path, Reason: reason})
}

// walk visits logicalDir, a path spelled beneath root even when reached
// through a symlinked directory, so ignore rules and relative paths stay
// anchored at the attachment root.
func (w *walker) walk(logicalDir string) {
	entries, err := os.ReadDir(logicalDir)
	if err != nil {
		w.emit(diag.KindReadFailed, logicalDir, err.Error())
		return
	}

	for _, entry := range entries {
		logical := filepath.Join(logicalDir, entry.Name())
		rel := relativeTo(w.root, logical)

		decision := w.collector.Policy.Authorize(logical)

		isDir := entry.IsDir()
		var info fs.FileInfo
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err = os.Stat(logical)
			if err != nil {
				w.ignoreFile(logical, rel, diag.KindReadFailed, "broken symlink: "+err.Error())
				continue
			}
			isDir = info.IsDir()
		}

		if !decision.Allowed {
			if isDir {
				// Emitted by the policy already; nothing below it is reachable.
				continue
			}
			w.out = append(w.out, Candidate{AbsolutePath: decision.Canonical, RelativePath: rel, Ignored: true, Reason: decision.Reason})
			continue
		}

		if ignored, reason := w.matcher.Match(logical, isDir); ignored {
			if isDir {
				w.emit(diag.KindIgnored, logical, reason)
				continue
			}
			w.ignoreFile(logical, rel, diag.KindIgnored, reason)
			continue
		}

		if isDir {
			if !w.options.Recursive {
				continue
			}
			if w.stack[decision.Canonical] {
				w.emit(diag.KindSymlinkCycle, logical, "symlink cycle to "+decision.Canonical)
				continue
			}
			w.stack[decision.Canonical] = true
			w.walk(logical)
			delete(w.stack, decision.Canonical)
			continue
		}

		if info == nil {
			if !entry.Type().IsRegular() {
				continue
			}
			info, err = entry.Info()
			if err != nil {
				w.ignoreFile(logical, rel, diag.KindReadFailed, err.Error())
				continue
			}
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if w.options.Pattern != "" && !matchPattern(w.options.Pattern, rel) {
			w.ignoreFile(logical, rel, diag.KindIgnored, fmt.Sprintf("does not match pattern %q", w.options.Pattern))
			continue
		}

		w.out = append(w.out, Candidate{
			AbsolutePath: decision.Canonical,
			RelativePath: rel,
			SizeBytes:    info.Size(),
			ModTime:      info.ModTime(),
		})
	}
}

func (w *walker) ignoreFile(path, rel string, kind diag.Kind, reason string) {
	w.emit(kind, path, reason)
	w.out = append(w.out, Candidate{AbsolutePath: path, RelativePath: rel, Ignored: true, Reason: reason})
}

// matchPattern tries the relative path first, then the base name, so "*.go"
// selects Go files at any depth while "cmd/**/*.go" stays anchored.
func matchPattern(pattern, rel string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	if strings.Contains(pattern, "/") {
		return false
	}
	ok, _ := doublestar.Match(pattern, filepath.Base(filepath.FromSlash(rel)))
	return ok
}

func relativeTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
