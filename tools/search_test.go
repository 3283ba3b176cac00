package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/lexandro/promptattach/attach"
)

func Test_SearchHandler_EmptyQuery(t *testing.T) {
	h := &SearchHandler{Logger: discardLogger()}

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for empty query")
	}
	if !strings.Contains(resultText(t, result), "query parameter is required") {
		t.Errorf("expected error message about empty query, got: %s", resultText(t, result))
	}
}

func Test_SearchHandler_SearchesFileSearchAttachmentsOnly(t *testing.T) {
	resolveFn, _ := newTestResolve(t,
		map[string]string{
			"docs/guide.md": "# Guide\n\nhello from the guide\n",
			"docs/faq.md":   "# FAQ\n\nnothing here\n",
			"inline.md":     "hello from the prompt\n",
		},
		attach.Token{Kind: attach.Directory, Value: "fs:docs docs"},
		attach.Token{Kind: attach.File, Value: "intro inline.md"},
	)
	h := &SearchHandler{Resolve: resolveFn, Logger: discardLogger()}

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "docs:guide.md") {
		t.Errorf("expected docs:guide.md in results, got:\n%s", text)
	}
	if strings.Contains(text, "inline.md") {
		t.Errorf("template-only attachment must not be searchable, got:\n%s", text)
	}
}

func Test_SearchHandler_NoResults(t *testing.T) {
	resolveFn, _ := newTestResolve(t,
		map[string]string{"a.md": "alpha"},
		attach.Token{Kind: attach.File, Value: "fs:doc a.md"},
	)
	h := &SearchHandler{Resolve: resolveFn, Logger: discardLogger()}

	result, _, _ := h.Handle(context.Background(), nil, SearchArgs{Query: "nonexistent"})
	if result.IsError {
		t.Fatal("expected success (no error), got error result")
	}
	if !strings.Contains(resultText(t, result), "No matches found") {
		t.Errorf("expected 'No matches found', got:\n%s", resultText(t, result))
	}
}
