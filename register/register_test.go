package register

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/lexandro/promptattach/attach"
)

func Test_ServerName(t *testing.T) {
	tests := []struct {
		name       string
		binaryPath string
		want       string
	}{
		{"strip -mcp suffix", "promptattach-mcp", "promptattach"},
		{"strip .exe and -mcp", "promptattach-mcp.exe", "promptattach"},
		{"no -mcp suffix passthrough", "promptattach", "promptattach"},
		{"only .exe suffix", "promptattach.exe", "promptattach"},
		{"full path stripped to base", "/usr/local/bin/promptattach-mcp", "promptattach"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ServerName(tt.binaryPath); got != tt.want {
				t.Errorf("ServerName(%q) = %q, want %q", tt.binaryPath, got, tt.want)
			}
		})
	}
}

func Test_ParseScope(t *testing.T) {
	if s, err := ParseScope("project"); err != nil || s != ScopeProject {
		t.Errorf("ParseScope(project) = %q, %v", s, err)
	}
	if _, err := ParseScope("global"); err == nil {
		t.Error("expected error for unknown scope")
	}
}

func Test_ServeArgs(t *testing.T) {
	cwd := filepath.Join(string(filepath.Separator), "work")
	specs := []attach.Spec{
		{Alias: "notes", Targets: attach.Template, Kind: attach.File, Path: "notes.md"},
		{Alias: "src", Targets: attach.Template | attach.Execution, Kind: attach.Directory, Path: "src"},
		{Alias: "set", Targets: attach.Search, Kind: attach.Collection, Path: filepath.Join(cwd, "files.list")},
	}

	got := ServeArgs(specs, cwd, "--pattern", "**/*.go")
	want := []string{
		"serve",
		"--file", "notes " + filepath.Join(cwd, "notes.md"),
		"--dir", "prompt,code-interpreter:src " + filepath.Join(cwd, "src"),
		"--collect", "file-search:set @" + filepath.Join(cwd, "files.list"),
		"--pattern", "**/*.go",
	}
	if !slices.Equal(got, want) {
		t.Errorf("ServeArgs() =\n%q\nwant\n%q", got, want)
	}

	// The rebuilt values parse back to the same specs.
	for i := 1; i < 7; i += 2 {
		kind := map[string]attach.SourceKind{"--file": attach.File, "--dir": attach.Directory, "--collect": attach.Collection}[got[i]]
		spec, err := attach.Parse(kind, got[i+1])
		if err != nil {
			t.Fatalf("parsing %q: %v", got[i+1], err)
		}
		if spec.Alias != specs[i/2].Alias || spec.Targets != specs[i/2].Targets {
			t.Errorf("round trip of %q gave %+v", got[i+1], spec)
		}
	}
}

func Test_Write_CreatesNewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".mcp.json")

	entry := Entry{Command: "/usr/bin/promptattach", Args: []string{"serve", "--file", "a /tmp/a"}}
	if err := Write(configPath, "promptattach", entry); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	servers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		t.Fatal("mcpServers not found or not an object")
	}
	serverEntry, ok := servers["promptattach"].(map[string]any)
	if !ok {
		t.Fatal("promptattach entry not found or not an object")
	}
	if serverEntry["command"] != "/usr/bin/promptattach" {
		t.Errorf("command = %v, want /usr/bin/promptattach", serverEntry["command"])
	}
}

func Test_Write_UpdatesExistingEntry(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".mcp.json")
	initial := map[string]any{
		"mcpServers": map[string]any{
			"other-server": map[string]any{"command": "/usr/bin/other"},
			"promptattach": map[string]any{"command": "/old/path"},
		},
		"theme": "dark",
	}
	initialData, _ := json.MarshalIndent(initial, "", "  ")
	if err := os.WriteFile(configPath, initialData, 0644); err != nil {
		t.Fatal(err)
	}

	if err := Write(configPath, "promptattach", Entry{Command: "/new/path"}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, _ := os.ReadFile(configPath)
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		t.Fatal(err)
	}
	servers := config["mcpServers"].(map[string]any)
	if servers["other-server"].(map[string]any)["command"] != "/usr/bin/other" {
		t.Error("other-server changed unexpectedly")
	}
	if servers["promptattach"].(map[string]any)["command"] != "/new/path" {
		t.Error("promptattach entry not updated")
	}
	if config["theme"] != "dark" {
		t.Error("unrelated keys must be preserved")
	}
}

func Test_Write_InvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".mcp.json")
	if err := os.WriteFile(configPath, []byte("not valid json{{{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Write(configPath, "promptattach", Entry{Command: "x"}); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func Test_NewEntry(t *testing.T) {
	binaryPath := "/usr/local/bin/promptattach"
	serverArgs := []string{"serve", "--file", "a /tmp/a"}

	entry := NewEntry(binaryPath, serverArgs)

	if runtime.GOOS == "windows" {
		if entry.Command != "cmd" || len(entry.Args) < 2 || entry.Args[0] != "/C" || entry.Args[1] != binaryPath {
			t.Errorf("entry = %+v, want cmd /C %s ...", entry, binaryPath)
		}
		return
	}
	if entry.Command != binaryPath {
		t.Errorf("command = %q, want %q", entry.Command, binaryPath)
	}
	if !slices.Equal(entry.Args, serverArgs) {
		t.Errorf("args = %v, want %v", entry.Args, serverArgs)
	}
}

func Test_ConfigPath(t *testing.T) {
	got, err := ConfigPath(ScopeProject, "")
	if err != nil {
		t.Fatalf("ConfigPath() error: %v", err)
	}
	absDir, _ := filepath.Abs(".")
	if want := filepath.Join(absDir, ".mcp.json"); got != want {
		t.Errorf("ConfigPath(project) = %q, want %q", got, want)
	}

	got, err = ConfigPath(ScopeUser, "")
	if err != nil {
		t.Fatalf("ConfigPath() error: %v", err)
	}
	homeDir, _ := os.UserHomeDir()
	if want := filepath.Join(homeDir, ".claude.json"); got != want {
		t.Errorf("ConfigPath(user) = %q, want %q", got, want)
	}
}
