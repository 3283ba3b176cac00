package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/ignore"
	"github.com/lexandro/promptattach/resolve"
	"github.com/lexandro/promptattach/watcher"
)

// watchRoots lists what render --watch observes: the template, every file
// and directory attachment, and for list attachments the list file plus the
// files it resolved to.
func (a *app) watchRoots(templatePath string, res *resolve.Resolution) []watcher.Root {
	roots := []watcher.Root{{Path: templatePath}}
	for _, spec := range res.Specs {
		path := spec.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.cwd, path)
		}
		path = filepath.Clean(path)

		switch spec.Kind {
		case attach.File:
			roots = append(roots, watcher.Root{Path: path})
		case attach.Directory:
			roots = append(roots, watcher.Root{
				Path:      path,
				Dir:       true,
				Recursive: spec.Recursive,
				Ignore: ignore.NewMatcher(ignore.MatcherOptions{
					RootDir:        path,
					FileName:       a.resolver.IgnoreFile,
					CustomPatterns: a.resolver.Exclude,
					NoDefaults:     a.resolver.NoDefaultIgnores,
				}),
			})
		case attach.Collection:
			roots = append(roots, watcher.Root{Path: path})
			for _, rec := range res.Table.Namespace[spec.Alias] {
				roots = append(roots, watcher.Root{Path: rec.AbsPath})
			}
		}
	}
	return roots
}

// rootsKey identifies a root set independent of order.
func rootsKey(roots []watcher.Root) string {
	keys := make([]string, 0, len(roots))
	for _, r := range roots {
		keys = append(keys, fmt.Sprintf("%s|%t|%t", r.Path, r.Dir, r.Recursive))
	}
	sort.Strings(keys)
	return strings.Join(keys, "\n")
}

// watch re-renders on every debounced batch of changes until ctx is done.
// A failed render is reported and the previous watch set is kept.
func (a *app) watch(ctx context.Context, stderr io.Writer, templatePath string, res *resolve.Resolution, rerender func() (*resolve.Resolution, error)) error {
	roots := a.watchRoots(templatePath, res)
	w, err := watcher.NewWatcher(roots, watcher.DefaultInterval, a.logger)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	go w.Start()
	defer func() {
		if w != nil {
			w.Close()
		}
	}()

	fmt.Fprintf(stderr, "watching %d location(s); press Ctrl+C to stop\n", len(roots))
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-w.Events():
			a.logger.Info("change detected, re-rendering", "changes", len(batch), "path", batch[0].Path)
			fmt.Fprintf(stderr, "--- %s changed, re-rendering ---\n", batch[0].Path)

			next, err := rerender()
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				continue
			}

			nextRoots := a.watchRoots(templatePath, next)
			if rootsKey(nextRoots) == rootsKey(roots) {
				continue
			}
			w.Close()
			if w, err = watcher.NewWatcher(nextRoots, watcher.DefaultInterval, a.logger); err != nil {
				return fmt.Errorf("restarting watcher: %w", err)
			}
			go w.Start()
			roots = nextRoots
			a.logger.Debug("watch set changed", "locations", len(roots))
		}
	}
}
