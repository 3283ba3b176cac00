package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/promptattach/routing"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// PlanArgs defines the input parameters for the attach_plan tool.
type PlanArgs struct {
	JSON bool `json:"json,omitempty" jsonschema:"If true return the plan as JSON instead of text"`
}

// PlanHandler holds the dependencies for the plan tool.
type PlanHandler struct {
	Resolve ResolveFunc
	Logger  *slog.Logger
}

// Handle processes an attach_plan request.
func (h *PlanHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args PlanArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	res, err := h.Resolve(ctx)
	if err != nil {
		h.Logger.Error("attach_plan failed", "error", err)
		return errorResult("Resolve error: %v", err), nil, nil
	}

	report := res.Table.Plan()
	h.Logger.Info("attach_plan",
		"attachments", len(report.Items),
		"totalBytes", report.TotalBytes,
		"elapsed", time.Since(start),
	)

	if args.JSON {
		data, err := report.JSON()
		if err != nil {
			return errorResult("Encoding error: %v", err), nil, nil
		}
		return textResult(string(data)), nil, nil
	}
	return textResult(routing.FormatPlan(report)), nil, nil
}
