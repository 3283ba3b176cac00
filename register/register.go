package register

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lexandro/promptattach/attach"
)

// Scope selects which MCP client config file is written.
type Scope string

const (
	// ScopeProject writes <directory>/.mcp.json.
	ScopeProject Scope = "project"
	// ScopeUser writes ~/.claude.json.
	ScopeUser Scope = "user"
)

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeProject, ScopeUser:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q (must be \"project\" or \"user\")", s)
}

// Entry is the launch command of one MCP server.
type Entry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ServerName derives a server name from a binary path by stripping .exe and
// -mcp suffixes.
func ServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, "-mcp")
	return name
}

// ServeArgs rebuilds the serve command line for specs. Paths are made
// absolute against cwd because the client may start the server elsewhere.
func ServeArgs(specs []attach.Spec, cwd string, extra ...string) []string {
	args := []string{"serve"}
	for _, spec := range specs {
		path := spec.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}

		var flag string
		switch spec.Kind {
		case attach.Directory:
			flag = "--dir"
		case attach.Collection:
			flag = "--collect"
			path = "@" + path
		default:
			flag = "--file"
		}

		head := spec.Alias
		if spec.Targets != attach.Template {
			head = strings.Join(spec.Targets.Names(), ",") + ":" + spec.Alias
		}
		args = append(args, flag, head+" "+path)
	}
	return append(args, extra...)
}

// BinaryPath returns the resolved path of the running executable.
func BinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("getting executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", exe, err)
	}
	return resolved, nil
}

// ConfigPath returns the client config file for scope.
func ConfigPath(scope Scope, directory string) (string, error) {
	if scope == ScopeProject {
		if directory == "" {
			directory = "."
		}
		absDir, err := filepath.Abs(directory)
		if err != nil {
			return "", fmt.Errorf("resolving directory %s: %w", directory, err)
		}
		return filepath.Join(absDir, ".mcp.json"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude.json"), nil
}

// NewEntry builds the launch command. On Windows the binary runs through cmd.
func NewEntry(binaryPath string, serverArgs []string) Entry {
	if runtime.GOOS == "windows" {
		args := []string{"/C", binaryPath}
		args = append(args, serverArgs...)
		return Entry{Command: "cmd", Args: args}
	}
	return Entry{Command: binaryPath, Args: serverArgs}
}

// Write adds or replaces serverName in the config file, keeping every other
// key. The file is replaced atomically.
func Write(configPath string, serverName string, entry Entry) error {
	config := map[string]any{
		"mcpServers": map[string]any{},
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := json.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("parsing existing config %s: %w", configPath, err)
		}
	}

	servers, ok := config["mcpServers"]
	if !ok {
		servers = map[string]any{}
		config["mcpServers"] = servers
	}
	serversMap, ok := servers.(map[string]any)
	if !ok {
		return fmt.Errorf("mcpServers in %s is not an object", configPath)
	}
	serversMap[serverName] = entry

	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	output = append(output, '\n')

	configDir := filepath.Dir(configPath)
	tmpFile, err := os.CreateTemp(configDir, ".mcp-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", configDir, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(output); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, configPath, err)
	}
	return nil
}
