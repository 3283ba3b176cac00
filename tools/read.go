package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/promptattach/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReadArgs defines the input parameters for the attach_read tool.
type ReadArgs struct {
	Alias string `json:"alias" jsonschema:"Attachment alias"`
	Path  string `json:"path,omitempty" jsonschema:"Path inside the attachment. May be omitted when the attachment holds a single file"`
}

// ReadHandler shows a materialized file exactly as the template sees it.
type ReadHandler struct {
	Resolve ResolveFunc
	Logger  *slog.Logger
}

// Handle processes an attach_read request.
func (h *ReadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Alias == "" {
		h.Logger.Warn("attach_read called with empty alias")
		return errorResult("Error: alias parameter is required"), nil, nil
	}

	res, err := h.Resolve(ctx)
	if err != nil {
		h.Logger.Error("attach_read failed", "error", err)
		return errorResult("Resolve error: %v", err), nil, nil
	}

	v, ok := res.Table.Namespace[args.Alias]
	if !ok {
		return errorResult("Unknown attachment: %s", args.Alias), nil, nil
	}

	rec := v.First()
	if args.Path != "" {
		rec = nil
		for _, r := range v {
			if r.Path == args.Path {
				rec = r
				break
			}
		}
	} else if v.IsCollection() {
		return errorResult("Attachment %s holds %d files; path is required", args.Alias, v.Len()), nil, nil
	}
	if rec == nil {
		h.Logger.Info("attach_read file not found", "alias", args.Alias, "path", args.Path)
		return errorResult("File not found in attachment %s: %s", args.Alias, args.Path), nil, nil
	}

	key := index.DocumentKey(args.Alias, rec.Path)
	h.Logger.Info("attach_read", "key", key, "kind", rec.Kind.String(), "elapsed", time.Since(start))

	if !rec.IsText() {
		return textResult(FormatFileResults([]*index.Document{index.NewDocument(args.Alias, rec)}, false)), nil, nil
	}
	return textResult(FormatFileContent(key, rec.Content)), nil, nil
}
