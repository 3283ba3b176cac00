package routing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/materialize"
)

// Availability tells where an attachment's content ends up.
const (
	AvailInline       = "inline"
	AvailUploadOnly   = "upload-only"
	AvailInlineUpload = "inline+upload"
	AvailMetadataOnly = "metadata-only"
)

// PlanItem describes one attachment in the execution plan.
type PlanItem struct {
	Alias        string   `json:"alias"`
	Source       string   `json:"source"`
	Path         string   `json:"path"`
	Targets      []string `json:"targets"`
	Requested    []string `json:"requested,omitempty"`
	Files        int      `json:"files"`
	Bytes        int64    `json:"bytes"`
	Text         int      `json:"text"`
	Binary       int      `json:"binary"`
	Oversized    int      `json:"oversized"`
	Availability string   `json:"availability"`
}

// Report is the dry-run plan: what would be inlined and what would be
// uploaded, without contacting any API.
type Report struct {
	Items      []PlanItem     `json:"attachments"`
	Uploads    map[string]int `json:"uploads"`
	TotalBytes int64          `json:"totalBytes"`
}

// Plan builds the execution-plan report.
func (t *Table) Plan() Report {
	report := Report{Uploads: make(map[string]int)}
	for _, e := range t.Bindings {
		item := PlanItem{
			Alias:   e.Spec.Alias,
			Source:  e.Spec.Kind.String(),
			Path:    e.Spec.Path,
			Targets: e.Spec.Targets.Names(),
			Files:   len(e.View),
			Bytes:   e.View.TotalSize(),
		}
		if e.Requested != e.Spec.Targets {
			item.Requested = e.Requested.Names()
		}
		for _, rec := range e.View {
			switch rec.Kind {
			case materialize.Text:
				item.Text++
			case materialize.Binary:
				item.Binary++
			case materialize.Oversized:
				item.Oversized++
			}
		}
		item.Availability = availability(e.Spec.Targets, item.Text > 0)
		report.TotalBytes += item.Bytes
		report.Items = append(report.Items, item)
	}
	for target, uploads := range t.uploads {
		report.Uploads[target.String()] = len(uploads)
	}
	return report
}

func availability(targets attach.Targets, hasText bool) string {
	inline := targets.Has(attach.Template) && hasText
	switch {
	case inline && targets.Uploads():
		return AvailInlineUpload
	case inline:
		return AvailInline
	case targets.Uploads():
		return AvailUploadOnly
	default:
		return AvailMetadataOnly
	}
}

// FormatPlan renders a report as aligned text.
func FormatPlan(r Report) string {
	if len(r.Items) == 0 {
		return "No attachments.\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d attachment(s), %s total\n\n", len(r.Items), humanize.IBytes(uint64(r.TotalBytes)))
	for _, item := range r.Items {
		targets := strings.Join(item.Targets, ",")
		if item.Requested != nil {
			targets += " (from " + strings.Join(item.Requested, ",") + ")"
		}
		fmt.Fprintf(&sb, "%s  [%s %s]\n", item.Alias, item.Source, item.Path)
		fmt.Fprintf(&sb, "  targets:  %s\n", targets)
		fmt.Fprintf(&sb, "  files:    %d (%s)", item.Files, humanize.IBytes(uint64(item.Bytes)))
		var kinds []string
		if item.Binary > 0 {
			kinds = append(kinds, fmt.Sprintf("%d binary", item.Binary))
		}
		if item.Oversized > 0 {
			kinds = append(kinds, fmt.Sprintf("%d oversized", item.Oversized))
		}
		if len(kinds) > 0 {
			fmt.Fprintf(&sb, ", %s", strings.Join(kinds, ", "))
		}
		fmt.Fprintf(&sb, "\n  content:  %s\n", item.Availability)
	}
	if len(r.Uploads) > 0 {
		sb.WriteString("\nuploads:\n")
		for _, target := range attach.Targets(attach.Execution | attach.Search | attach.Vision).List() {
			if n, ok := r.Uploads[target.String()]; ok {
				fmt.Fprintf(&sb, "  %-16s %d file(s)\n", target.String(), n)
			}
		}
	}
	return sb.String()
}

// JSON renders a report as indented JSON.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
