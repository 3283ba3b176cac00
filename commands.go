package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/index"
	"github.com/lexandro/promptattach/optimize"
	"github.com/lexandro/promptattach/resolve"
	"github.com/lexandro/promptattach/routing"
	"github.com/lexandro/promptattach/server"
	"github.com/lexandro/promptattach/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// promptTemplate is a prompt template read from disk.
type promptTemplate struct {
	name string
	path string
	text string
}

func readTemplate(path string) (promptTemplate, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return promptTemplate{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return promptTemplate{}, fmt.Errorf("reading template: %w", err)
	}
	return promptTemplate{name: filepath.Base(abs), path: abs, text: string(data)}, nil
}

// parseVars merges --var key=value and --json-var key=json into one map.
// Names must be identifiers and must not collide with an alias.
func parseVars(specs []attach.Spec, plain, jsonVars []string) (map[string]any, error) {
	vars := make(map[string]any, len(plain)+len(jsonVars))
	var names []string
	for _, kv := range plain {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, usagef("--var %q: expected key=value", kv)
		}
		vars[key] = value
		names = append(names, key)
	}
	for _, kv := range jsonVars {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, usagef("--json-var %q: expected key=json", kv)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, usagef("--json-var %s: %v", key, err)
		}
		vars[key] = value
		names = append(names, key)
	}
	if err := attach.ValidateVariables(specs, names); err != nil {
		return nil, err
	}
	return vars, nil
}

func newRenderCommand(opts *options) *cobra.Command {
	var (
		plainVars []string
		jsonVars  []string
		manifest  string
		watch     bool
	)
	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render the prompt template with the attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			vars, err := parseVars(a.specs, plainVars, jsonVars)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			tmpl, err := readTemplate(args[0])
			if err != nil {
				return err
			}
			res, err := a.renderOnce(ctx, cmd.OutOrStdout(), tmpl, vars, manifest)
			if err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return a.watch(ctx, cmd.ErrOrStderr(), tmpl.path, res, func() (*resolve.Resolution, error) {
				next, err := readTemplate(tmpl.path)
				if err != nil {
					return nil, err
				}
				return a.renderOnce(ctx, cmd.OutOrStdout(), next, vars, manifest)
			})
		},
	}
	cmd.Flags().StringArrayVar(&plainVars, "var", nil, "template variable key=value (repeatable)")
	cmd.Flags().StringArrayVar(&jsonVars, "json-var", nil, "template variable key=json (repeatable)")
	cmd.Flags().StringVar(&manifest, "manifest", "", "write the upload manifest (JSON) to this file")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render when the template or an attachment changes")
	return cmd
}

// renderOnce resolves, renders and prints one prompt.
func (a *app) renderOnce(ctx context.Context, w io.Writer, tmpl promptTemplate, vars map[string]any, manifest string) (*resolve.Resolution, error) {
	res, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	result, err := a.engine.Prompt(tmpl.name, tmpl.text, res.Table.Namespace, vars, a.optimizer)
	if err != nil {
		return nil, err
	}
	if manifest != "" {
		if err := res.Table.Manifest().WriteFile(manifest); err != nil {
			return nil, err
		}
	}
	fmt.Fprint(w, result.Text)
	if !strings.HasSuffix(result.Text, "\n") {
		fmt.Fprintln(w)
	}
	a.logger.Info("prompt rendered",
		"template", tmpl.name,
		"characters", len([]rune(result.Text)),
		"relocated", result.Relocated(),
	)
	return res, nil
}

// planOutput is the JSON form of the plan command.
type planOutput struct {
	Plan   routing.Report `json:"plan"`
	Prompt *promptSummary `json:"prompt,omitempty"`
}

// promptSummary describes what the optimizer did to a rendered template.
type promptSummary struct {
	Template   string   `json:"template"`
	Characters int      `json:"characters"`
	References int      `json:"references"`
	Relocated  []string `json:"relocated"`
	LoopBound  int      `json:"loopBound"`
}

func summarize(name string, result optimize.Result) *promptSummary {
	s := &promptSummary{Template: name, Characters: len([]rune(result.Text)), Relocated: []string{}}
	seen := make(map[int]bool)
	for _, b := range result.Blocks {
		if seen[b.Ref.ID] {
			continue
		}
		seen[b.Ref.ID] = true
		s.References++
		if b.Ref.UsedInLoop {
			s.LoopBound++
		}
	}
	for _, entry := range result.Appendix {
		s.Relocated = append(s.Relocated, entry.Label)
	}
	return s
}

func newPlanCommand(opts *options) *cobra.Command {
	var (
		asJSON    bool
		plainVars []string
		jsonVars  []string
	)
	cmd := &cobra.Command{
		Use:   "plan [TEMPLATE]",
		Short: "Show where every attachment goes without rendering or uploading",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := a.requireAttachments(); err != nil {
				return err
			}
			res, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}

			out := planOutput{Plan: res.Table.Plan()}
			if len(args) == 1 {
				vars, err := parseVars(a.specs, plainVars, jsonVars)
				if err != nil {
					return err
				}
				tmpl, err := readTemplate(args[0])
				if err != nil {
					return err
				}
				result, err := a.engine.Prompt(tmpl.name, tmpl.text, res.Table.Namespace, vars, a.optimizer)
				if err != nil {
					return err
				}
				out.Prompt = summarize(tmpl.name, result)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprint(w, routing.FormatPlan(out.Plan))
			if p := out.Prompt; p != nil {
				fmt.Fprintf(w, "\ntemplate %s: %d characters, %d references (%d in loops)\n",
					p.Template, p.Characters, p.References, p.LoopBound)
				if len(p.Relocated) > 0 {
					fmt.Fprintf(w, "  appendix: %s\n", strings.Join(p.Relocated, ", "))
				}
			}
			a.reportDiagnostics(cmd.ErrOrStderr())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	cmd.Flags().StringArrayVar(&plainVars, "var", nil, "template variable key=value (repeatable)")
	cmd.Flags().StringArrayVar(&jsonVars, "json-var", nil, "template variable key=json (repeatable)")
	return cmd
}

func newSearchCommand(opts *options) *cobra.Command {
	search := index.SearchOptions{}
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the attachments routed to the file-search tool",
		Long: `Builds an in-memory index over the text of file-search attachments and runs
QUERY against it: plain words, "a quoted phrase" or /a regexp/.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := a.requireAttachments(); err != nil {
				return err
			}
			res, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			ix, err := index.Build(res.Table, a.logger)
			if err != nil {
				return err
			}
			defer ix.Close()

			if ix.Search.DocumentCount() == 0 {
				a.logger.Warn("no text attachments are routed to file-search")
			}
			search.Query = args[0]
			results, total, err := ix.Search.Search(search)
			if err != nil {
				return usagef("%v", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), tools.FormatSearchResults(results, total))
			return nil
		},
	}
	cmd.Flags().StringVar(&search.Alias, "alias", "", "only search this attachment")
	cmd.Flags().StringVar(&search.FileGlob, "glob", "", "only search paths matching this glob")
	cmd.Flags().IntVar(&search.ContextLines, "context", 2, "context lines around each match")
	cmd.Flags().IntVar(&search.MaxResults, "max-results", 50, "maximum number of files")
	return cmd
}

func newFilesCommand(opts *options) *cobra.Command {
	var (
		alias      string
		nameOnly   bool
		maxResults int
	)
	cmd := &cobra.Command{
		Use:   "files [PATTERN]",
		Short: "List the files every attachment resolved to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := a.requireAttachments(); err != nil {
				return err
			}
			res, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			docs, err := index.BuildFiles(res.Table).Glob(alias, pattern, maxResults)
			if err != nil {
				return usagef("%v", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), tools.FormatFileResults(docs, nameOnly))
			a.reportDiagnostics(cmd.ErrOrStderr())
			return nil
		},
	}
	cmd.Flags().StringVar(&alias, "alias", "", "only list this attachment")
	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "print alias:path keys only")
	cmd.Flags().IntVar(&maxResults, "max-results", 1000, "maximum number of files")
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve plan, render and search as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := a.requireAttachments(); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			// Fail fast on attachments that cannot resolve at all.
			if _, err := a.resolve(ctx); err != nil {
				return err
			}

			startTime := time.Now()
			resolveFn := tools.ResolveFunc(a.resolve)
			mcpServer := server.Setup(version, server.Handlers{
				Plan: &tools.PlanHandler{Resolve: resolveFn, Logger: a.logger},
				Render: &tools.RenderHandler{
					Resolve:   resolveFn,
					Engine:    a.engine,
					Optimizer: a.optimizer,
					Cwd:       a.cwd,
					Logger:    a.logger,
				},
				Search: &tools.SearchHandler{Resolve: resolveFn, Logger: a.logger},
				Files:  &tools.FilesHandler{Resolve: resolveFn, Logger: a.logger},
				Read:   &tools.ReadHandler{Resolve: resolveFn, Logger: a.logger},
				Status: &tools.StatusHandler{Resolve: resolveFn, StartTime: startTime, Cwd: a.cwd, Logger: a.logger},
			})

			a.logger.Info("MCP server starting on stdio", "attachments", attach.Aliases(a.specs))
			if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				a.logger.Error("MCP server error", "error", err)
				return err
			}
			return nil
		},
	}
}
