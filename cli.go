package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/config"
	"github.com/lexandro/promptattach/diag"
	"github.com/lexandro/promptattach/optimize"
	"github.com/lexandro/promptattach/render"
	"github.com/lexandro/promptattach/resolve"
	"github.com/lexandro/promptattach/security"
	"github.com/spf13/cobra"
)

// attachmentFlags take a "[targets:]alias path" value.
var attachmentFlags = []string{"--file", "-f", "--dir", "-d", "--collect", "-c"}

// tokenFlag appends attachment values to a shared list so that --file, --dir
// and --collect keep their relative command-line order.
type tokenFlag struct {
	kind   attach.SourceKind
	tokens *[]attach.Token
}

func (f *tokenFlag) String() string { return "" }
func (f *tokenFlag) Type() string   { return "attachment" }
func (f *tokenFlag) Set(value string) error {
	*f.tokens = append(*f.tokens, attach.Token{Kind: f.kind, Value: value})
	return nil
}

// options holds the persistent flags shared by every command.
type options struct {
	tokens    []attach.Token
	pattern   string
	noRecurse bool

	configPath string
	logLevel   string
	logFile    string

	securityMode     string
	allowDirs        []string
	allowFiles       []string
	exclude          []string
	ignoreFile       string
	noDefaultIgnores bool

	maxFileSize     int64
	maxTotalSize    int64
	workers         int
	noOptimize      bool
	inlineThreshold int
	inlineFloor     int
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "promptattach",
		Short: "Attach files and directories to a prompt template",
		Long: `promptattach resolves file, directory and list attachments, renders them
into a text/template prompt and routes them to external tools.

Attachments are given as "[targets:]alias path", for example:
  promptattach render prompt.tmpl -f notes notes.md -d ci,fs:src ./src

Targets: prompt (default), code-interpreter (ci), file-search (fs),
user-data (ud), auto.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.VarP(&tokenFlag{kind: attach.File, tokens: &opts.tokens}, "file", "f", "attach a file: [targets:]alias path (repeatable)")
	flags.VarP(&tokenFlag{kind: attach.Directory, tokens: &opts.tokens}, "dir", "d", "attach a directory: [targets:]alias path (repeatable)")
	flags.VarP(&tokenFlag{kind: attach.Collection, tokens: &opts.tokens}, "collect", "c", "attach the files named in a list file: [targets:]alias @list (repeatable)")
	flags.StringVar(&opts.pattern, "pattern", "", "only collect directory files matching this glob (e.g. **/*.go)")
	flags.BoolVar(&opts.noRecurse, "no-recurse", false, "do not descend into subdirectories of --dir attachments")

	flags.StringVar(&opts.configPath, "config", "", "config file (default: "+config.DefaultFileName+" in the working directory)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	flags.StringVar(&opts.logFile, "log-file", "", "log file path (default: stderr)")

	flags.StringVar(&opts.securityMode, "security-mode", "", "path policy: permissive|warn|strict")
	flags.StringArrayVar(&opts.allowDirs, "allow-dir", nil, "allowed directory (repeatable)")
	flags.StringArrayVar(&opts.allowFiles, "allow-file", nil, "allowed file (repeatable)")
	flags.StringArrayVar(&opts.exclude, "exclude", nil, "extra ignore pattern for directory attachments (repeatable)")
	flags.StringVar(&opts.ignoreFile, "ignore-file", "", "per-directory ignore file name (default .gitignore)")
	flags.BoolVar(&opts.noDefaultIgnores, "no-default-ignores", false, "do not skip VCS metadata and editor files")

	flags.Int64Var(&opts.maxFileSize, "max-file-size", 0, "per-file limit in bytes for prompt-only attachments (default 65536, negative: unlimited)")
	flags.Int64Var(&opts.maxTotalSize, "max-total-size", 0, "total limit in bytes for prompt-only attachments (default 1048576, negative: unlimited)")
	flags.IntVar(&opts.workers, "workers", 0, "concurrent file reads")
	flags.BoolVar(&opts.noOptimize, "no-optimize", false, "keep every attachment inline")
	flags.IntVar(&opts.inlineThreshold, "inline-threshold", 0, "relocate attachment blocks longer than this many characters")
	flags.IntVar(&opts.inlineFloor, "always-inline-floor", 0, "never relocate blocks shorter than this many characters")

	root.AddCommand(
		newRenderCommand(opts),
		newPlanCommand(opts),
		newSearchCommand(opts),
		newFilesCommand(opts),
		newServeCommand(opts),
		newRegisterCommand(opts),
	)
	return root
}

// app is the wiring shared by the commands once flags and config are merged.
type app struct {
	logger    *slog.Logger
	cfg       config.Config
	cwd       string
	specs     []attach.Spec
	sink      *diag.Sink
	resolver  *resolve.Resolver
	engine    *render.Engine
	optimizer optimize.Options
}

// setup loads the config file, applies explicit flags on top, parses the
// attachments and builds the path policy. Nothing is read from the
// attachments yet.
func (o *options) setup(cmd *cobra.Command) (*app, error) {
	logger := setupLogger(o.logLevel, o.logFile, cmd.ErrOrStderr())

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	configPath, required := o.configPath, true
	if configPath == "" {
		configPath, required = filepath.Join(cwd, config.DefaultFileName), false
	}
	cfg, err := config.Load(configPath, required)
	if err != nil {
		return nil, err
	}
	if err := o.override(cmd, &cfg); err != nil {
		return nil, err
	}

	specs, err := attach.ParseAll(o.tokens)
	if err != nil {
		return nil, err
	}
	for i := range specs {
		if specs[i].Kind != attach.Directory {
			continue
		}
		specs[i].Pattern = o.pattern
		specs[i].Recursive = !o.noRecurse
	}

	mode, err := security.ParseMode(cfg.Security.Mode)
	if err != nil {
		return nil, err
	}
	allowDirs := append([]string(nil), cfg.Security.AllowDirs...)
	if cfg.AllowCwd() {
		allowDirs = append(allowDirs, cwd)
	}
	sink := diag.NewSink(logger)
	policy, err := security.NewPolicy(security.Options{
		Mode:         mode,
		AllowedDirs:  allowDirs,
		AllowedFiles: cfg.Security.AllowFiles,
		Sink:         sink,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"config", configPath,
		"securityMode", mode.String(),
		"attachments", len(specs),
		"maxFileSize", cfg.Limits.MaxFileSize,
		"maxTotalSize", cfg.Limits.MaxTotalSize,
	)

	return &app{
		logger: logger,
		cfg:    cfg,
		cwd:    cwd,
		specs:  specs,
		sink:   sink,
		resolver: &resolve.Resolver{
			Policy:           policy,
			Sink:             sink,
			Logger:           logger,
			Cwd:              cwd,
			IgnoreFile:       cfg.Collect.IgnoreFile,
			Exclude:          cfg.Collect.Exclude,
			NoDefaultIgnores: !cfg.DefaultIgnores(),
			Limits:           cfg.MaterializeLimits(),
			Workers:          cfg.Limits.Workers,
		},
		engine:    &render.Engine{Logger: logger},
		optimizer: cfg.OptimizerOptions(),
	}, nil
}

// override applies the flags the user set explicitly on top of cfg.
func (o *options) override(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("security-mode") {
		cfg.Security.Mode = o.securityMode
	}
	cfg.Security.AllowDirs = append(cfg.Security.AllowDirs, o.allowDirs...)
	cfg.Security.AllowFiles = append(cfg.Security.AllowFiles, o.allowFiles...)
	cfg.Collect.Exclude = append(cfg.Collect.Exclude, o.exclude...)
	if changed("ignore-file") {
		cfg.Collect.IgnoreFile = o.ignoreFile
	}
	if o.noDefaultIgnores {
		off := false
		cfg.Collect.DefaultIgnores = &off
	}
	if changed("max-file-size") {
		cfg.Limits.MaxFileSize = o.maxFileSize
	}
	if changed("max-total-size") {
		cfg.Limits.MaxTotalSize = o.maxTotalSize
	}
	if changed("workers") {
		cfg.Limits.Workers = o.workers
	}
	if o.noOptimize {
		off := false
		cfg.Optimizer.Enabled = &off
	}
	if changed("inline-threshold") {
		cfg.Optimizer.InlineThreshold = o.inlineThreshold
	}
	if changed("always-inline-floor") {
		cfg.Optimizer.AlwaysInlineFloor = o.inlineFloor
	}
	if err := cfg.Validate(); err != nil {
		return usagef("%v", err)
	}
	return nil
}

// resolve reads every attachment and builds the routing table.
func (a *app) resolve(ctx context.Context) (*resolve.Resolution, error) {
	return a.resolver.Resolve(ctx, a.specs)
}

// requireAttachments rejects commands run without any attachment flag.
func (a *app) requireAttachments() error {
	if len(a.specs) == 0 {
		return usagef("no attachments given; use --file, --dir or --collect")
	}
	return nil
}

// reportDiagnostics prints non-routine diagnostics to w.
func (a *app) reportDiagnostics(w io.Writer) {
	for _, event := range a.sink.Events() {
		if event.Kind == diag.KindIgnored {
			continue
		}
		if event.Reason != "" {
			fmt.Fprintf(w, "warning: %s: %s (%s)\n", event.Kind, event.Path, event.Reason)
		} else {
			fmt.Fprintf(w, "warning: %s: %s\n", event.Kind, event.Path)
		}
	}
}
