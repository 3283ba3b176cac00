package collect

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lexandro/promptattach/diag"
)

// List expands a collection list file. Each non-empty line not starting with
// '#' is a literal path or a doublestar glob, resolved against cwd. Results are
// de-duplicated by canonical path, keeping the first occurrence.
func (c *Collector) List(listFile string, cwd string) ([]Candidate, error) {
	canonicalList, err := c.Policy.Check(absFrom(cwd, listFile))
	if err != nil {
		return nil, err
	}
	lines, err := readListLines(canonicalList)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []Candidate
	for _, line := range lines {
		paths, err := expandLine(line, cwd)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", listFile, err)
		}
		for _, path := range paths {
			decision := c.Policy.Authorize(path)
			rel := relativeTo(cwd, path)
			if seen[decision.Canonical] {
				continue
			}
			seen[decision.Canonical] = true

			if !decision.Allowed {
				out = append(out, Candidate{AbsolutePath: decision.Canonical, RelativePath: rel, Ignored: true, Reason: decision.Reason})
				continue
			}
			info, err := os.Stat(decision.Canonical)
			if err != nil {
				c.Sink.Emit(diag.Event{Kind: diag.KindReadFailed, Path: path, Reason: err.Error()})
				out = append(out, Candidate{AbsolutePath: decision.Canonical, RelativePath: rel, Ignored: true, Reason: err.Error()})
				continue
			}
			if info.IsDir() {
				reason := "directories are not expanded in collection lists"
				c.Sink.Emit(diag.Event{Kind: diag.KindIgnored, Path: path, Reason: reason})
				continue
			}
			out = append(out, Candidate{
				AbsolutePath: decision.Canonical,
				RelativePath: rel,
				SizeBytes:    info.Size(),
				ModTime:      info.ModTime(),
			})
		}
	}
	return out, nil
}

func readListLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening collection list: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading collection list: %w", err)
	}
	return lines, nil
}

// expandLine returns absolute paths for one list entry, globs sorted lexically.
func expandLine(line, cwd string) ([]string, error) {
	pattern := absFrom(cwd, line)
	if !strings.ContainsAny(line, "*?[{") {
		return []string{pattern}, nil
	}
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", line)
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", line, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func absFrom(cwd, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(cwd, path)
}
