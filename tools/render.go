package tools

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lexandro/promptattach/optimize"
	"github.com/lexandro/promptattach/render"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RenderArgs defines the input parameters for the attach_render tool.
type RenderArgs struct {
	Template     string            `json:"template,omitempty" jsonschema:"Inline template text. Attachments are available by alias, e.g. {{ .src.Content }}"`
	TemplateFile string            `json:"templateFile,omitempty" jsonschema:"Path of a template file, relative to the server working directory"`
	Vars         map[string]string `json:"vars,omitempty" jsonschema:"Extra template variables"`
	NoOptimize   bool              `json:"noOptimize,omitempty" jsonschema:"If true keep every attachment inline"`
}

// RenderHandler holds the dependencies for the render tool.
type RenderHandler struct {
	Resolve   ResolveFunc
	Engine    *render.Engine
	Optimizer optimize.Options
	Cwd       string
	Logger    *slog.Logger
}

// Handle processes an attach_render request.
func (h *RenderHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args RenderArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if (args.Template == "") == (args.TemplateFile == "") {
		h.Logger.Warn("attach_render called without exactly one template source")
		return errorResult("Error: exactly one of template or templateFile is required"), nil, nil
	}

	name, text := "inline", args.Template
	if args.TemplateFile != "" {
		path := args.TemplateFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(h.Cwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			h.Logger.Error("attach_render failed to read template", "templateFile", args.TemplateFile, "error", err)
			return errorResult("Template error: %v", err), nil, nil
		}
		name, text = filepath.Base(path), string(data)
	}

	res, err := h.Resolve(ctx)
	if err != nil {
		h.Logger.Error("attach_render failed", "error", err)
		return errorResult("Resolve error: %v", err), nil, nil
	}

	vars := make(map[string]any, len(args.Vars))
	for k, v := range args.Vars {
		vars[k] = v
	}
	options := h.Optimizer
	if args.NoOptimize {
		options.Enabled = false
	}

	result, err := h.Engine.Prompt(name, text, res.Table.Namespace, vars, options)
	if err != nil {
		h.Logger.Error("attach_render failed", "template", name, "error", err)
		return errorResult("Render error: %v", err), nil, nil
	}

	h.Logger.Info("attach_render",
		"template", name,
		"references", len(result.Blocks),
		"relocated", result.Relocated(),
		"bytes", len(result.Text),
		"elapsed", time.Since(start),
	)
	return textResult(result.Text), nil, nil
}
