package index

import (
	"testing"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/materialize"
	"github.com/lexandro/promptattach/routing"
	"github.com/lexandro/promptattach/view"
)

func newTestSearchIndex(t *testing.T) *SearchIndex {
	t.Helper()
	si, err := NewSearchIndex()
	if err != nil {
		t.Fatalf("failed to create search index: %v", err)
	}
	t.Cleanup(func() { si.Close() })
	return si
}

func addText(t *testing.T, si *SearchIndex, alias, path, content string) {
	t.Helper()
	if err := si.Add(newTestDoc(alias, path, "Go", int64(len(content))), content); err != nil {
		t.Fatalf("failed to index %s: %v", path, err)
	}
}

func Test_SearchIndex_IndexAndSearch(t *testing.T) {
	si := newTestSearchIndex(t)
	addText(t, si, "src", "main.go", `package main

import "fmt"

func main() {
	fmt.Println("hello world")
}`)

	results, totalMatches, err := si.Search(SearchOptions{Query: "hello", MaxResults: 10})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) == 0 || totalMatches == 0 {
		t.Fatal("expected at least one match")
	}
	if results[0].Document.Key != "src:main.go" {
		t.Errorf("expected src:main.go, got %s", results[0].Document.Key)
	}
	if results[0].Matches[0].LineNumber != 6 {
		t.Errorf("expected line 6, got %d", results[0].Matches[0].LineNumber)
	}
}

func Test_SearchIndex_PhraseSearch(t *testing.T) {
	si := newTestSearchIndex(t)
	addText(t, si, "src", "app.go", `func handle(w http.ResponseWriter) {
	w.Write([]byte("hello world"))
}`)

	results, _, err := si.Search(SearchOptions{Query: `"hello world"`, MaxResults: 10})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected phrase match")
	}
}

func Test_SearchIndex_ContextLines(t *testing.T) {
	si := newTestSearchIndex(t)
	addText(t, si, "src", "example.go", "line1\nline2\nline3 target\nline4\nline5")

	results, _, err := si.Search(SearchOptions{Query: "target", MaxResults: 10, ContextLines: 1})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	match := results[0].Matches[0]
	if match.LineNumber != 3 {
		t.Errorf("expected line 3, got %d", match.LineNumber)
	}
	if len(match.ContextBefore) != 1 || match.ContextBefore[0] != "line2" {
		t.Errorf("unexpected context before: %v", match.ContextBefore)
	}
	if len(match.ContextAfter) != 1 || match.ContextAfter[0] != "line4" {
		t.Errorf("unexpected context after: %v", match.ContextAfter)
	}
}

func Test_SearchIndex_FileGlob(t *testing.T) {
	si := newTestSearchIndex(t)
	addText(t, si, "src", "main.go", "hello from Go")
	addText(t, si, "src", "web/app.ts", "hello from TypeScript")

	results, _, err := si.Search(SearchOptions{Query: "hello", FileGlob: "**/*.go", MaxResults: 10})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 || results[0].Document.Path != "main.go" {
		t.Errorf("expected only main.go, got %d results", len(results))
	}
}

func Test_SearchIndex_AliasFilter(t *testing.T) {
	si := newTestSearchIndex(t)
	addText(t, si, "docs", "a.md", "hello docs")
	addText(t, si, "notes", "a.md", "hello notes")

	results, _, err := si.Search(SearchOptions{Query: "hello", Alias: "notes"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 || results[0].Document.Alias != "notes" {
		t.Fatalf("expected one result from notes, got %d", len(results))
	}
}

func Test_SearchIndex_InvalidGlob(t *testing.T) {
	si := newTestSearchIndex(t)
	if _, _, err := si.Search(SearchOptions{Query: "x", FileGlob: "[bad"}); err == nil {
		t.Error("expected error for invalid glob")
	}
}

func Test_SearchIndex_RemoveAndContent(t *testing.T) {
	si := newTestSearchIndex(t)
	addText(t, si, "tmp", "temp.go", "temporary content")

	content, ok := si.Content("tmp:temp.go")
	if !ok || content != "temporary content" {
		t.Errorf("unexpected content %q (found=%v)", content, ok)
	}
	if err := si.Remove("tmp:temp.go"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if si.DocumentCount() != 0 {
		t.Errorf("expected 0 docs after removal, got %d", si.DocumentCount())
	}
	if _, ok := si.Content("tmp:temp.go"); ok {
		t.Error("expected content to be gone")
	}
}

func Test_Build_IndexesSearchUploadsOnly(t *testing.T) {
	text := &materialize.Record{Name: "a.md", Path: "a.md", Content: "needle in text", Kind: materialize.Text, Hash: "1", Language: "Markdown"}
	bin := &materialize.Record{Name: "b.pdf", Path: "b.pdf", Binary: []byte{0}, Kind: materialize.Binary, Hash: "2"}
	inline := &materialize.Record{Name: "c.md", Path: "c.md", Content: "needle inline", Kind: materialize.Text, Hash: "3"}

	docs, _ := view.New([]*materialize.Record{text, bin})
	prompt, _ := view.New([]*materialize.Record{inline})
	specs := []attach.Spec{
		{Alias: "docs", Targets: attach.Search, Kind: attach.Directory, Path: "docs"},
		{Alias: "prompt", Targets: attach.Template, Kind: attach.File, Path: "c.md"},
	}
	table, err := routing.Build(specs, map[string]view.View{"docs": docs, "prompt": prompt})
	if err != nil {
		t.Fatalf("routing: %v", err)
	}

	ix, err := Build(table, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer ix.Close()

	if ix.Files.Count() != 3 {
		t.Errorf("expected 3 files, got %d", ix.Files.Count())
	}
	if ix.Search.DocumentCount() != 1 {
		t.Errorf("expected 1 searchable document, got %d", ix.Search.DocumentCount())
	}
	results, _, err := ix.Search.Search(SearchOptions{Query: "needle"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Document.Key != "docs:a.md" {
		t.Errorf("only file-search text should be searchable, got %d results", len(results))
	}
}
