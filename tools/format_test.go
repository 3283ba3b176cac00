package tools

import (
	"strings"
	"testing"

	"github.com/lexandro/promptattach/index"
	"github.com/lexandro/promptattach/materialize"
)

func Test_FormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{500, "500 B"},
		{2048, "2.0 KiB"},
		{3 * 1024 * 1024, "3.0 MiB"},
		{-1, "0 B"},
	}
	for _, tt := range tests {
		if got := formatFileSize(tt.bytes); got != tt.want {
			t.Errorf("formatFileSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func Test_FormatSearchResults_NoMatches(t *testing.T) {
	got := FormatSearchResults(nil, 0)
	if got != "No matches found." {
		t.Errorf("expected 'No matches found.', got '%s'", got)
	}
}

func Test_FormatSearchResults_WithMatches(t *testing.T) {
	results := []index.SearchResult{
		{
			Document: &index.Document{Key: "src:main.go", Path: "main.go"},
			Matches: []index.LineMatch{
				{
					LineNumber:    5,
					LineText:      `fmt.Println("hello")`,
					ContextBefore: []string{"func main() {"},
					ContextAfter:  []string{"}"},
				},
			},
		},
	}

	got := FormatSearchResults(results, 1)
	for _, want := range []string{"1 matches in 1 files", "── src:main.go ──", "5: fmt.Println", "  func main() {"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}

func Test_FormatFileResults(t *testing.T) {
	docs := []*index.Document{
		{Key: "src:main.go", Language: "Go", Size: 2048, Kind: materialize.Text},
		{Key: "img:a.png", Size: 10, Kind: materialize.Binary},
	}

	got := FormatFileResults(docs, false)
	if !strings.Contains(got, "Found 2 files") {
		t.Errorf("expected count header, got:\n%s", got)
	}
	if !strings.Contains(got, "src:main.go  (Go, 2.0 KiB, text)") {
		t.Errorf("expected metadata line, got:\n%s", got)
	}
	if !strings.Contains(got, "img:a.png  (unknown, 10 B, binary)") {
		t.Errorf("expected unknown language, got:\n%s", got)
	}

	if got := FormatFileResults(docs, true); !strings.Contains(got, "src:main.go\nimg:a.png\n") {
		t.Errorf("expected name-only listing, got:\n%s", got)
	}
	if got := FormatFileResults(nil, false); got != "No files matched." {
		t.Errorf("expected 'No files matched.', got %q", got)
	}
}

func Test_FormatFileContent(t *testing.T) {
	got := FormatFileContent("doc:a.txt", "one\ntwo")
	want := "── doc:a.txt (2 lines) ──\n1│ one\n2│ two\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
