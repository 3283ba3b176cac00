package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the attach_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Resolve   ResolveFunc
	StartTime time.Time
	Cwd       string
	Logger    *slog.Logger
}

// Handle processes an attach_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	res, err := h.Resolve(ctx)
	if err != nil {
		h.Logger.Error("attach_status failed", "error", err)
		return errorResult("Resolve error: %v", err), nil, nil
	}

	files := index.BuildFiles(res.Table)
	totalSize := files.TotalSizeBytes()
	langCounts := files.LanguageCounts()
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("attach_status",
		"attachments", len(res.Specs),
		"files", files.Count(),
		"totalSize", totalSize,
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	var builder strings.Builder
	builder.WriteString("=== promptattach Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Working directory: %s\n", h.Cwd))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Attachments: %d\n", len(res.Specs)))
	builder.WriteString(fmt.Sprintf("Resolved files: %d\n", files.Count()))
	builder.WriteString(fmt.Sprintf("Total size: %s\n", formatFileSize(totalSize)))
	builder.WriteString(fmt.Sprintf("Resolved in: %s\n", res.Elapsed.Round(time.Millisecond)))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	builder.WriteString("\nUploads:\n")
	for _, target := range []attach.Target{attach.Execution, attach.Search, attach.Vision} {
		builder.WriteString(fmt.Sprintf("  %-20s %d files\n", target.String(), len(res.Table.Uploads(target))))
	}

	if len(langCounts) > 0 {
		builder.WriteString("\nLanguages:\n")

		type langEntry struct {
			lang  string
			count int
		}
		entries := make([]langEntry, 0, len(langCounts))
		for lang, count := range langCounts {
			if lang == "" {
				lang = "(unknown)"
			}
			entries = append(entries, langEntry{lang, count})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].count != entries[j].count {
				return entries[i].count > entries[j].count
			}
			return entries[i].lang < entries[j].lang
		})

		for _, entry := range entries {
			builder.WriteString(fmt.Sprintf("  %-20s %d files\n", entry.lang, entry.count))
		}
	}

	return textResult(builder.String()), nil, nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
