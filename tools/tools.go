package tools

import (
	"context"
	"fmt"

	"github.com/lexandro/promptattach/resolve"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ResolveFunc resolves the attachments the server was started with.
// It is provided by main.go so that every call sees the files as they
// currently are on disk.
type ResolveFunc func(ctx context.Context) (*resolve.Resolution, error)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
