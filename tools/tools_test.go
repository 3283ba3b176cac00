package tools

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/diag"
	"github.com/lexandro/promptattach/materialize"
	"github.com/lexandro/promptattach/resolve"
	"github.com/lexandro/promptattach/security"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestResolve writes files under a temp dir and returns a ResolveFunc for
// the given attachment tokens, anchored at that dir.
func newTestResolve(t *testing.T, files map[string]string, tokens ...attach.Token) (ResolveFunc, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	sink := diag.NewSink(nil)
	policy, err := security.NewPolicy(security.Options{Sink: sink})
	if err != nil {
		t.Fatalf("failed to create policy: %v", err)
	}
	specs, err := attach.ParseAll(tokens)
	if err != nil {
		t.Fatalf("failed to parse attachments: %v", err)
	}
	r := &resolve.Resolver{
		Policy:  policy,
		Sink:    sink,
		Cwd:     dir,
		Limits:  materialize.DefaultLimits(),
		Workers: 2,
	}
	return func(ctx context.Context) (*resolve.Resolution, error) {
		return r.Resolve(ctx, specs)
	}, dir
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	return result.Content[0].(*mcp.TextContent).Text
}
