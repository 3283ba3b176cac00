package main

import (
	"fmt"
	"path/filepath"

	"github.com/lexandro/promptattach/register"
	"github.com/spf13/cobra"
)

func newRegisterCommand(opts *options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "register project|user [DIRECTORY] [-- SERVER-FLAGS]",
		Short: "Add the MCP server with the current attachments to a client config",
		Long: `Writes an mcpServers entry that launches "promptattach serve" with the
attachments given on this command line, using absolute paths.

  project: <DIRECTORY>/.mcp.json (default: .)
  user:    ~/.claude.json

Arguments after "--" are passed to the server unchanged.`,
		Args: func(cmd *cobra.Command, args []string) error {
			n := len(args)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				n = dash
			}
			if n < 1 || n > 2 {
				return usagef("register takes a scope and an optional directory, got %d argument(s)", n)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := register.ParseScope(args[0])
			if err != nil {
				return usagef("%v", err)
			}
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := a.requireAttachments(); err != nil {
				return err
			}

			var directory string
			var passthrough []string
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				passthrough = args[dash:]
				args = args[:dash]
			}
			if len(args) == 2 {
				if scope != register.ScopeProject {
					return usagef("a directory is only accepted for the project scope")
				}
				directory = args[1]
			}

			binaryPath, err := register.BinaryPath()
			if err != nil {
				return err
			}
			if name == "" {
				name = register.ServerName(binaryPath)
			}
			configPath, err := register.ConfigPath(scope, directory)
			if err != nil {
				return err
			}

			entry := register.NewEntry(binaryPath, register.ServeArgs(a.specs, a.cwd, opts.forwarded(passthrough)...))
			if err := register.Write(configPath, name, entry); err != nil {
				return err
			}
			a.logger.Info("server registered", "name", name, "config", configPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\n", name, configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "server name (default: derived from the binary name)")
	return cmd
}

// forwarded lists the flags the registered server needs besides the
// attachments themselves.
func (o *options) forwarded(passthrough []string) []string {
	var out []string
	if o.configPath != "" {
		out = append(out, "--config", absOrSelf(o.configPath))
	}
	if o.pattern != "" {
		out = append(out, "--pattern", o.pattern)
	}
	if o.noRecurse {
		out = append(out, "--no-recurse")
	}
	if o.securityMode != "" {
		out = append(out, "--security-mode", o.securityMode)
	}
	for _, dir := range o.allowDirs {
		out = append(out, "--allow-dir", absOrSelf(dir))
	}
	for _, file := range o.allowFiles {
		out = append(out, "--allow-file", absOrSelf(file))
	}
	for _, pattern := range o.exclude {
		out = append(out, "--exclude", pattern)
	}
	return append(out, passthrough...)
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
