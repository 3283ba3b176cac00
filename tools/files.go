package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/promptattach/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FilesArgs defines the input parameters for the attach_files tool.
type FilesArgs struct {
	Pattern    string `json:"pattern,omitempty" jsonschema:"Glob pattern over paths inside the attachments (e.g. **/*.go). Empty lists every file"`
	Alias      string `json:"alias,omitempty" jsonschema:"Restrict the listing to one attachment alias"`
	NameOnly   bool   `json:"nameOnly,omitempty" jsonschema:"If true return only alias:path keys without metadata"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// FilesHandler lists the files every attachment resolved to.
type FilesHandler struct {
	Resolve ResolveFunc
	Logger  *slog.Logger
}

// Handle processes an attach_files request.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	res, err := h.Resolve(ctx)
	if err != nil {
		h.Logger.Error("attach_files failed", "error", err)
		return errorResult("Resolve error: %v", err), nil, nil
	}

	docs, err := index.BuildFiles(res.Table).Glob(args.Alias, args.Pattern, args.MaxResults)
	if err != nil {
		h.Logger.Error("attach_files failed", "pattern", args.Pattern, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("attach_files",
		"pattern", args.Pattern,
		"alias", args.Alias,
		"results", len(docs),
		"elapsed", time.Since(start),
	)
	return textResult(FormatFileResults(docs, args.NameOnly)), nil, nil
}
