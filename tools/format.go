package tools

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lexandro/promptattach/index"
)

// FormatSearchResults formats search results grouped by file, with line
// numbers and optional context.
func FormatSearchResults(results []index.SearchResult, totalMatches int) string {
	if len(results) == 0 {
		return "No matches found."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d matches in %d files:\n\n", totalMatches, len(results)))

	for i, result := range results {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(fmt.Sprintf("── %s ──\n", result.Document.Key))

		for _, match := range result.Matches {
			for _, ctxLine := range match.ContextBefore {
				builder.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
			builder.WriteString(fmt.Sprintf("  %d: %s\n", match.LineNumber, match.LineText))
			for _, ctxLine := range match.ContextAfter {
				builder.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
		}
	}

	return builder.String()
}

// FormatFileResults formats a file listing.
func FormatFileResults(docs []*index.Document, nameOnly bool) string {
	if len(docs) == 0 {
		return "No files matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(docs)))

	for _, doc := range docs {
		if nameOnly {
			builder.WriteString(doc.Key)
			builder.WriteString("\n")
			continue
		}
		lang := doc.Language
		if lang == "" {
			lang = "unknown"
		}
		builder.WriteString(fmt.Sprintf("  %s  (%s, %s, %s)\n",
			doc.Key,
			lang,
			formatFileSize(doc.Size),
			doc.Kind,
		))
	}

	return builder.String()
}

// FormatFileContent formats text with a header and numbered lines.
func FormatFileContent(key string, content string) string {
	lines := strings.Split(content, "\n")
	lineCount := len(lines)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s (%d lines) ──\n", key, lineCount))

	width := len(fmt.Sprintf("%d", lineCount))
	for i, line := range lines {
		builder.WriteString(fmt.Sprintf("%*d│ %s\n", width, i+1, line))
	}

	return builder.String()
}

func formatFileSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
