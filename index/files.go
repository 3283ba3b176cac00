package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// FileIndex keeps every resolved attachment file, sorted by key, for
// glob-based listing.
type FileIndex struct {
	mu         sync.RWMutex
	docs       map[string]*Document
	sortedKeys []string
}

// NewFileIndex creates an empty file index.
func NewFileIndex() *FileIndex {
	return &FileIndex{docs: make(map[string]*Document)}
}

// Add adds or replaces a document.
func (fi *FileIndex) Add(doc *Document) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	if _, exists := fi.docs[doc.Key]; !exists {
		idx := sort.SearchStrings(fi.sortedKeys, doc.Key)
		fi.sortedKeys = append(fi.sortedKeys, "")
		copy(fi.sortedKeys[idx+1:], fi.sortedKeys[idx:])
		fi.sortedKeys[idx] = doc.Key
	}
	fi.docs[doc.Key] = doc
}

// Remove drops a document by key.
func (fi *FileIndex) Remove(key string) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	if _, exists := fi.docs[key]; !exists {
		return
	}
	delete(fi.docs, key)
	idx := sort.SearchStrings(fi.sortedKeys, key)
	if idx < len(fi.sortedKeys) && fi.sortedKeys[idx] == key {
		fi.sortedKeys = append(fi.sortedKeys[:idx], fi.sortedKeys[idx+1:]...)
	}
}

// Get returns the document for key, or nil.
func (fi *FileIndex) Get(key string) *Document {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.docs[key]
}

// Count returns the number of documents.
func (fi *FileIndex) Count() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.docs)
}

// TotalSizeBytes sums document sizes.
func (fi *FileIndex) TotalSizeBytes() int64 {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	var total int64
	for _, doc := range fi.docs {
		total += doc.Size
	}
	return total
}

// LanguageCounts returns language -> document count.
func (fi *FileIndex) LanguageCounts() map[string]int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	counts := make(map[string]int)
	for _, doc := range fi.docs {
		counts[doc.Language]++
	}
	return counts
}

// Glob returns documents whose path matches a doublestar pattern, optionally
// restricted to one alias. Results are ordered by key.
func (fi *FileIndex) Glob(alias, pattern string, maxResults int) ([]*Document, error) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	if maxResults <= 0 {
		maxResults = 50
	}
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var results []*Document
	for _, key := range fi.sortedKeys {
		if len(results) >= maxResults {
			break
		}
		doc := fi.docs[key]
		if alias != "" && doc.Alias != alias {
			continue
		}
		if matched, err := doublestar.Match(pattern, doc.Path); err == nil && matched {
			results = append(results, doc)
		}
	}
	return results, nil
}

// All returns every document ordered by key.
func (fi *FileIndex) All() []*Document {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	out := make([]*Document, 0, len(fi.sortedKeys))
	for _, key := range fi.sortedKeys {
		out = append(out, fi.docs[key])
	}
	return out
}

// Clear removes all documents.
func (fi *FileIndex) Clear() {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.docs = make(map[string]*Document)
	fi.sortedKeys = nil
}
