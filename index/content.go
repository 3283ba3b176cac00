package index

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// SearchIndex is an in-memory Bleve index over the text of attachments bound
// to the file-search tool. It lets a user preview what that tool would find
// before anything is uploaded.
type SearchIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	// contents keeps the raw text for line-level result extraction.
	contents map[string]string // key: document key
	docs     map[string]*Document
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() (*SearchIndex, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &SearchIndex{
		index:    idx,
		contents: make(map[string]string),
		docs:     make(map[string]*Document),
	}, nil
}

// bleveDocument is the document structure stored in Bleve.
type bleveDocument struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Alias    string `json:"alias"`
	Language string `json:"language"`
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false // raw text lives in contents
	contentField.IncludeInAll = true
	docMapping.AddFieldMappingsAt("content", contentField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Store = true
	pathField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathField)

	for _, name := range []string{"alias", "language"} {
		keyword := bleve.NewKeywordFieldMapping()
		keyword.Store = true
		keyword.IncludeInAll = false
		docMapping.AddFieldMappingsAt(name, keyword)
	}

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Add indexes the text of doc. Documents without text are recorded but not
// searchable.
func (si *SearchIndex) Add(doc *Document, content string) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	si.docs[doc.Key] = doc
	si.contents[doc.Key] = content
	err := si.index.Index(doc.Key, bleveDocument{
		Content:  content,
		Path:     doc.Path,
		Alias:    doc.Alias,
		Language: doc.Language,
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", doc.Key, err)
	}
	return nil
}

// Remove drops a document.
func (si *SearchIndex) Remove(key string) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	delete(si.contents, key)
	delete(si.docs, key)
	if err := si.index.Delete(key); err != nil {
		return fmt.Errorf("removing %s from index: %w", key, err)
	}
	return nil
}

// Content returns the indexed text of a document.
func (si *SearchIndex) Content(key string) (string, bool) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	content, ok := si.contents[strings.ReplaceAll(key, "\\", "/")]
	return content, ok
}

// DocumentCount returns the number of indexed documents.
func (si *SearchIndex) DocumentCount() uint64 {
	si.mu.RLock()
	defer si.mu.RUnlock()
	count, _ := si.index.DocCount()
	return count
}

// Close releases the Bleve index.
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.index.Close()
}
