package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/denormal/go-gitignore"
)

// DefaultFileName is the per-directory ignore file consulted when none is configured.
const DefaultFileName = ".gitignore"

// Matcher decides whether a path below RootDir is excluded from collection.
// It compiles the ignore file of every directory scope at most once and
// evaluates scopes from the nearest enclosing directory outward, so patterns
// in a child directory (including "!" negations) override its parents.
// Custom patterns and the built-in defaults are consulted after all files.
// Thread-safe: scopes are loaded under a write lock and read under a read lock.
type Matcher struct {
	mu       sync.RWMutex
	rootDir  string
	fileName string
	scopes   map[string]gitignore.GitIgnore // nil value: directory has no ignore file
	custom   gitignore.GitIgnore
	defaults gitignore.GitIgnore
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir string
	// FileName overrides the per-directory ignore file name (default .gitignore).
	FileName string
	// CustomPatterns are extra gitignore-syntax patterns anchored at RootDir.
	CustomPatterns []string
	// NoDefaults disables DefaultIgnorePatterns.
	NoDefaults bool
}

// NewMatcher creates a matcher rooted at options.RootDir.
func NewMatcher(options MatcherOptions) *Matcher {
	fileName := options.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}
	m := &Matcher{
		rootDir:  filepath.Clean(options.RootDir),
		fileName: fileName,
		scopes:   make(map[string]gitignore.GitIgnore),
	}
	if len(options.CustomPatterns) > 0 {
		m.custom = gitignore.New(strings.NewReader(strings.Join(options.CustomPatterns, "\n")), m.rootDir, nil)
	}
	if !options.NoDefaults {
		m.defaults = gitignore.New(strings.NewReader(strings.Join(DefaultIgnorePatterns, "\n")), m.rootDir, nil)
	}
	return m
}

// RootDir returns the directory the matcher is anchored at.
func (m *Matcher) RootDir() string { return m.rootDir }

// FileName returns the ignore file name consulted in each directory.
func (m *Matcher) FileName() string { return m.fileName }

// Match reports whether absolutePath is ignored and, if so, which rule did it.
// Paths outside RootDir are never ignored.
func (m *Matcher) Match(absolutePath string, isDir bool) (bool, string) {
	absolutePath = filepath.Clean(absolutePath)
	if absolutePath == m.rootDir {
		return false, ""
	}
	if !m.contains(absolutePath) {
		return false, ""
	}

	// Nearest enclosing scope first.
	for dir := filepath.Dir(absolutePath); ; dir = filepath.Dir(dir) {
		if scope := m.scope(dir); scope != nil {
			if match := scope.Relative(relativeTo(dir, absolutePath), isDir); match != nil {
				return match.Ignore(), fmt.Sprintf("pattern %q in %s", match.String(), filepath.Join(dir, m.fileName))
			}
		}
		if dir == m.rootDir || dir == filepath.Dir(dir) {
			break
		}
	}

	rel := relativeTo(m.rootDir, absolutePath)
	if m.custom != nil {
		if match := m.custom.Relative(rel, isDir); match != nil {
			return match.Ignore(), fmt.Sprintf("custom pattern %q", match.String())
		}
	}
	if m.defaults != nil {
		if match := m.defaults.Relative(rel, isDir); match != nil {
			return match.Ignore(), fmt.Sprintf("default pattern %q", match.String())
		}
	}
	return false, ""
}

// ShouldIgnore returns true if the given path should be excluded.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	isDir := false
	if info, err := os.Stat(absolutePath); err == nil {
		isDir = info.IsDir()
	}
	ignored, _ := m.Match(absolutePath, isDir)
	return ignored
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	ignored, _ := m.Match(absolutePath, true)
	return ignored
}

// IsIgnoreFile reports whether path names one of this matcher's ignore files.
func (m *Matcher) IsIgnoreFile(path string) bool {
	return filepath.Base(path) == m.fileName
}

func (m *Matcher) contains(path string) bool {
	root := m.rootDir
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}

// scope returns the compiled ignore file of dir, loading it on first use.
func (m *Matcher) scope(dir string) gitignore.GitIgnore {
	m.mu.RLock()
	gi, ok := m.scopes[dir]
	m.mu.RUnlock()
	if ok {
		return gi
	}

	gi = loadIgnoreFile(filepath.Join(dir, m.fileName), dir)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.scopes[dir]; ok {
		return existing
	}
	m.scopes[dir] = gi
	return gi
}

func relativeTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
