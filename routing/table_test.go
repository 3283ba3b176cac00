package routing

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/materialize"
	"github.com/lexandro/promptattach/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textRecord(path, content string) *materialize.Record {
	return &materialize.Record{
		Name: filepath.Base(path), Path: path, AbsPath: "/abs/" + path,
		Content: content, Size: int64(len(content)), Kind: materialize.Text,
		Encoding: "utf-8", Hash: "sha-" + content,
	}
}

func binaryRecord(path string, data []byte) *materialize.Record {
	return &materialize.Record{
		Name: filepath.Base(path), Path: path, AbsPath: "/abs/" + path,
		Binary: data, Size: int64(len(data)), Kind: materialize.Binary,
		Encoding: "binary", Hash: "sha-" + path,
	}
}

func mustView(t *testing.T, records ...*materialize.Record) view.View {
	t.Helper()
	v, err := view.New(records)
	require.NoError(t, err)
	return v
}

func mustParse(t *testing.T, kind attach.SourceKind, token string) attach.Spec {
	t.Helper()
	s, err := attach.Parse(kind, token)
	require.NoError(t, err)
	return s
}

func Test_Build_SharedMultiTarget(t *testing.T) {
	data := strings.Repeat(`{"k":1}`, 80)[:500]
	shared := mustView(t, textRecord("data.json", data))
	specs := []attach.Spec{mustParse(t, attach.File, "ci,fs:shared data.json")}

	table, err := Build(specs, map[string]view.View{"shared": shared})
	require.NoError(t, err)

	require.Len(t, table.Entries, 1)
	entry := table.Entries[0]
	assert.Equal(t, "shared", entry.Spec.Alias)
	assert.Equal(t, attach.Execution|attach.Search, entry.Spec.Targets)
	assert.Len(t, entry.View, 1)

	exec := table.Uploads(attach.Execution)
	search := table.Uploads(attach.Search)
	require.Len(t, exec, 1)
	require.Len(t, search, 1)
	assert.Same(t, exec[0].Record, search[0].Record, "both tools share one record")

	assert.Equal(t, data, table.Namespace["shared"].Content())
}

func Test_Build_TemplateOnlyHasNoEntry(t *testing.T) {
	specs := []attach.Spec{mustParse(t, attach.File, "doc readme.md")}
	table, err := Build(specs, map[string]view.View{"doc": mustView(t, textRecord("readme.md", "# hi"))})
	require.NoError(t, err)
	assert.Empty(t, table.Entries)
	assert.Len(t, table.Bindings, 1)
	assert.Contains(t, table.Namespace, "doc")
}

func Test_Build_DedupesSameBytesAcrossAliases(t *testing.T) {
	rec := textRecord("a.csv", "x,y")
	copyRec := textRecord("copy/a.csv", "x,y")
	specs := []attach.Spec{
		mustParse(t, attach.File, "ci:one a.csv"),
		mustParse(t, attach.Directory, "ci:two copy"),
	}
	table, err := Build(specs, map[string]view.View{"one": mustView(t, rec), "two": mustView(t, copyRec)})
	require.NoError(t, err)

	uploads := table.Uploads(attach.Execution)
	require.Len(t, uploads, 1)
	assert.Equal(t, "one", uploads[0].Alias)
	assert.Len(t, table.Entries, 2)
}

func Test_Build_MissingViewIsConfigError(t *testing.T) {
	specs := []attach.Spec{mustParse(t, attach.Directory, "source ./empty_dir")}
	_, err := Build(specs, map[string]view.View{})
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "source", ce.Alias)
}

func Test_Build_VisionRejectsText(t *testing.T) {
	specs := []attach.Spec{mustParse(t, attach.Directory, "ud:shots ./shots")}
	v := mustView(t, binaryRecord("a.png", []byte{0x89, 0}), textRecord("notes.txt", "oops"))

	_, err := Build(specs, map[string]view.View{"shots": v})
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Reason, "notes.txt")
}

func Test_ResolveAuto(t *testing.T) {
	assert.Equal(t, attach.Template, ResolveAuto(mustView(t, textRecord("a.md", "x"))))
	assert.Equal(t, attach.Vision, ResolveAuto(mustView(t, binaryRecord("a.png", []byte{0}), binaryRecord("b.jpg", []byte{0}))))
	assert.Equal(t, attach.Execution, ResolveAuto(mustView(t, binaryRecord("a.png", []byte{0}), binaryRecord("data.parquet", []byte{0}))))
	assert.Equal(t, attach.Execution, ResolveAuto(mustView(t, textRecord("a.md", "x"), binaryRecord("b.png", []byte{0}))))
}

func Test_Build_AutoResolution(t *testing.T) {
	specs := []attach.Spec{mustParse(t, attach.Directory, "auto:imgs ./imgs")}
	table, err := Build(specs, map[string]view.View{"imgs": mustView(t, binaryRecord("a.png", []byte{1}))})
	require.NoError(t, err)

	entry, ok := table.Entry("imgs")
	require.True(t, ok)
	assert.Equal(t, attach.Vision, entry.Spec.Targets)
	assert.Equal(t, attach.Auto, entry.Requested)
	assert.Len(t, table.Uploads(attach.Vision), 1)
}

func Test_BuildResolved_KeepsDecidedAutoTarget(t *testing.T) {
	specs := []attach.Spec{mustParse(t, attach.File, "auto:notes notes.md")}
	demoted := &materialize.Record{Name: "notes.md", Path: "notes.md", Size: 4096, Kind: materialize.Oversized, Hash: "sha-notes"}
	views := map[string]view.View{"notes": mustView(t, demoted)}

	table, err := BuildResolved(specs, views, map[string]attach.Targets{"notes": attach.Template})
	require.NoError(t, err)

	entry, ok := table.Entry("notes")
	require.True(t, ok)
	assert.Equal(t, attach.Template, entry.Spec.Targets)
	assert.Empty(t, table.Entries)
	assert.Empty(t, table.Uploads(attach.Execution))
}

func Test_Plan(t *testing.T) {
	specs := []attach.Spec{
		mustParse(t, attach.File, "doc readme.md"),
		mustParse(t, attach.File, "prompt,ci:data data.csv"),
		mustParse(t, attach.Directory, "fs:docs ./docs"),
	}
	big := &materialize.Record{Name: "big.md", Path: "big.md", Size: 2048, Kind: materialize.Oversized, Hash: "h"}
	views := map[string]view.View{
		"doc":  mustView(t, textRecord("readme.md", "hello")),
		"data": mustView(t, textRecord("data.csv", "a,b")),
		"docs": mustView(t, textRecord("docs/a.md", "A"), big),
	}
	table, err := Build(specs, views)
	require.NoError(t, err)

	report := table.Plan()
	require.Len(t, report.Items, 3)
	assert.Equal(t, AvailInline, report.Items[0].Availability)
	assert.Equal(t, AvailInlineUpload, report.Items[1].Availability)
	assert.Equal(t, AvailUploadOnly, report.Items[2].Availability)
	assert.Equal(t, 1, report.Items[2].Oversized)
	assert.EqualValues(t, 5+3+1+2048, report.TotalBytes)
	assert.Equal(t, 1, report.Uploads["code-interpreter"])
	assert.Equal(t, 2, report.Uploads["file-search"])

	text := FormatPlan(report)
	assert.Contains(t, text, "3 attachment(s)")
	assert.Contains(t, text, "docs  [dir ./docs]")
	assert.Contains(t, text, "1 oversized")
	assert.Contains(t, text, "file-search")

	raw, err := report.JSON()
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, report.TotalBytes, decoded.TotalBytes)
}

func Test_Manifest(t *testing.T) {
	specs := []attach.Spec{mustParse(t, attach.File, "ci,fs:shared data.json")}
	table, err := Build(specs, map[string]view.View{"shared": mustView(t, textRecord("data.json", "{}"))})
	require.NoError(t, err)

	m := table.Manifest()
	require.Len(t, m.Uploads["code-interpreter"], 1)
	require.Len(t, m.Uploads["file-search"], 1)
	assert.Equal(t, "sha-{}", m.Uploads["file-search"][0].Hash)
	assert.NotContains(t, m.Uploads, "user-data")

	out := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, m.WriteFile(out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"absPath": "/abs/data.json"`)
}
