package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/promptattach/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the attach_search tool.
type SearchArgs struct {
	Query        string `json:"query" jsonschema:"Search query. Plain text for word match, quoted for exact phrase, /regex/ for regular expression"`
	Alias        string `json:"alias,omitempty" jsonschema:"Restrict the search to one attachment alias"`
	FileGlob     string `json:"fileGlob,omitempty" jsonschema:"Optional glob pattern over paths inside the attachment (e.g. **/*.md)"`
	MaxResults   int    `json:"maxResults,omitempty" jsonschema:"Maximum number of file results to return (default 50)"`
	ContextLines int    `json:"contextLines,omitempty" jsonschema:"Number of context lines before and after each match (default 2)"`
}

// SearchHandler previews what the file-search tool would find in the
// attachments routed to it.
type SearchHandler struct {
	Resolve ResolveFunc
	Logger  *slog.Logger
}

// Handle processes an attach_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("attach_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	contextLines := args.ContextLines
	if contextLines == 0 {
		contextLines = 2
	}

	res, err := h.Resolve(ctx)
	if err != nil {
		h.Logger.Error("attach_search failed", "error", err)
		return errorResult("Resolve error: %v", err), nil, nil
	}
	ix, err := index.Build(res.Table, h.Logger)
	if err != nil {
		h.Logger.Error("attach_search failed", "error", err)
		return errorResult("Index error: %v", err), nil, nil
	}
	defer ix.Close()

	results, totalMatches, err := ix.Search.Search(index.SearchOptions{
		Query:        args.Query,
		Alias:        args.Alias,
		FileGlob:     args.FileGlob,
		MaxResults:   args.MaxResults,
		ContextLines: contextLines,
	})
	if err != nil {
		h.Logger.Error("attach_search failed", "query", args.Query, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("attach_search",
		"query", args.Query,
		"alias", args.Alias,
		"fileGlob", args.FileGlob,
		"files", len(results),
		"matches", totalMatches,
		"elapsed", time.Since(start),
	)
	return textResult(FormatSearchResults(results, totalMatches)), nil, nil
}
