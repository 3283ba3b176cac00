package server

import (
	"github.com/lexandro/promptattach/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handlers bundles the tool handlers served over MCP.
type Handlers struct {
	Plan   *tools.PlanHandler
	Render *tools.RenderHandler
	Search *tools.SearchHandler
	Files  *tools.FilesHandler
	Read   *tools.ReadHandler
	Status *tools.StatusHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(version string, h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "promptattach",
			Version: version,
		},
		&mcp.ServerOptions{
			Instructions: `This server previews prompts built from file attachments. The attachments are fixed when the server starts; every call re-reads them from disk.

- Use attach_plan to see which files go to the template and which are uploaded to each tool
- Use attach_render to render a prompt template against the attachments
- Use attach_search to preview what the file-search tool would find
- Use attach_files and attach_read to inspect individual resolved files`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "attach_plan",
		Description: `Show the execution plan: every attachment with its targets, file count, size and availability (inline, upload-only, inline+upload, metadata-only), plus per-tool upload counts. Nothing is uploaded.`,
	}, h.Plan.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "attach_render",
		Description: `Render a Go text/template against the attachments. Each alias is a file view:
  - {{ .src.Content }} - the file's text, or a list of texts for a directory
  - {{ range .src }}{{ .Path }}{{ end }} - iterate the files of a directory
  - {{ (single .src).Content }} - fail unless the attachment is exactly one file
Large attachment blocks are moved to an appendix unless noOptimize is set.`,
	}, h.Render.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "attach_search",
		Description: `Full-text search over the attachments routed to the file-search tool.

Query formats:
  - Plain text: word-level matching (e.g., "handleRequest")
  - "quoted text": exact phrase matching
  - /regex/: regular expression matching`,
	}, h.Search.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "attach_files",
		Description: `List resolved attachment files by glob pattern over their paths (e.g. "**/*.go"), optionally for one alias.`,
	}, h.Files.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "attach_read",
		Description: `Read one resolved attachment file exactly as the template sees it, with numbered lines. Binary and oversized files show metadata only.`,
	}, h.Read.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "attach_status",
		Description: "Show attachment status: file count, size, upload counts per tool, languages, memory usage and uptime.",
	}, h.Status.Handle)

	return mcpServer
}
