package index

import (
	"fmt"
	"log/slog"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/routing"
)

// Indexes bundles the two indexes built from one routing table.
type Indexes struct {
	Files  *FileIndex
	Search *SearchIndex
}

// Close releases the search index.
func (ix *Indexes) Close() error { return ix.Search.Close() }

// BuildFiles indexes every bound file by alias and path.
func BuildFiles(table *routing.Table) *FileIndex {
	fi := NewFileIndex()
	for _, entry := range table.Bindings {
		for _, rec := range entry.View {
			fi.Add(NewDocument(entry.Spec.Alias, rec))
		}
	}
	return fi
}

// Build indexes every bound file into a FileIndex and the text of the
// file-search uploads into a SearchIndex. Files reached through several
// aliases appear once per alias in the file index but are searchable once.
func Build(table *routing.Table, logger *slog.Logger) (*Indexes, error) {
	search, err := NewSearchIndex()
	if err != nil {
		return nil, err
	}
	ix := &Indexes{Files: BuildFiles(table), Search: search}

	skipped := 0
	for _, upload := range table.Uploads(attach.Search) {
		if !upload.Record.IsText() {
			skipped++
			continue
		}
		if err := search.Add(NewDocument(upload.Alias, upload.Record), upload.Record.Content); err != nil {
			search.Close()
			return nil, fmt.Errorf("building search index: %w", err)
		}
	}

	if logger != nil {
		logger.Debug("indexes built",
			"files", ix.Files.Count(),
			"searchable", search.DocumentCount(),
			"skippedBinary", skipped,
		)
	}
	return ix, nil
}
