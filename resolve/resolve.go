package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lexandro/promptattach/attach"
	"github.com/lexandro/promptattach/collect"
	"github.com/lexandro/promptattach/diag"
	"github.com/lexandro/promptattach/materialize"
	"github.com/lexandro/promptattach/routing"
	"github.com/lexandro/promptattach/security"
	"github.com/lexandro/promptattach/view"
)

// EmptyAttachmentError means an attachment resolved to no usable file. It is
// fatal and always reported before rendering.
type EmptyAttachmentError struct {
	Alias   string
	Ignored int   // candidates excluded by ignore rules or the path policy
	Failed  int   // candidates that could not be read
	Err     error // collection failure, if that is why nothing was found
}

func (e *EmptyAttachmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attachment %q resolved to no files: %v", e.Alias, e.Err)
	}
	return fmt.Sprintf("attachment %q resolved to no files (%d ignored, %d unreadable)", e.Alias, e.Ignored, e.Failed)
}

func (e *EmptyAttachmentError) Unwrap() error { return e.Err }

// Resolver turns parsed attachment specs into a routing table. One Resolver
// may be reused; every Resolve call gets its own size budget and read cache.
type Resolver struct {
	Policy *security.Policy
	Sink   *diag.Sink
	Logger *slog.Logger

	// Cwd anchors relative attachment paths and collection list globs.
	Cwd              string
	IgnoreFile       string
	Exclude          []string
	NoDefaultIgnores bool
	Limits           materialize.Limits
	Workers          int
}

// Resolution is the outcome of one Resolve call.
type Resolution struct {
	Specs   []attach.Spec
	Table   *routing.Table
	Records int
	Elapsed time.Duration
}

// Resolve collects, materializes and routes every spec. All reads happen in a
// single materialization pass so the cumulative budget is charged in CLI
// order followed by collection order.
func (r *Resolver) Resolve(ctx context.Context, specs []attach.Spec) (*Resolution, error) {
	start := time.Now()
	collector := &collect.Collector{Policy: r.Policy, Sink: r.Sink}

	var jobs []materialize.Job
	ignored := make(map[string]int)
	for _, spec := range specs {
		candidates, err := r.collect(collector, spec)
		if err != nil {
			return nil, &EmptyAttachmentError{Alias: spec.Alias, Err: err}
		}
		eligible := collect.Eligible(candidates)
		ignored[spec.Alias] = len(candidates) - len(eligible)
		if len(eligible) == 0 {
			return nil, &EmptyAttachmentError{Alias: spec.Alias, Ignored: ignored[spec.Alias]}
		}
		for i, c := range eligible {
			jobs = append(jobs, materialize.Job{
				Alias:     spec.Alias,
				Seq:       i,
				Candidate: c,
				Exempt:    !spec.Targets.TemplateOnly(),
			})
		}
		r.log().Debug("attachment collected", "alias", spec.Alias, "kind", spec.Kind.String(),
			"files", len(eligible), "ignored", ignored[spec.Alias])
	}

	m := &materialize.Materializer{
		Policy:  r.Policy,
		Limits:  r.Limits,
		Budget:  materialize.NewBudget(r.Limits.MaxTotalSize),
		Sink:    r.Sink,
		Workers: r.Workers,
	}
	results := m.Materialize(ctx, jobs)

	autoTargets := r.resolveAuto(specs, results)
	if len(autoTargets) > 0 {
		m.Enforce(results)
	}

	records := make(map[string][]*materialize.Record, len(specs))
	failed := make(map[string]int)
	for _, res := range results {
		if res.Err != nil {
			failed[res.Job.Alias]++
			continue
		}
		records[res.Job.Alias] = append(records[res.Job.Alias], res.Record)
	}

	views := make(map[string]view.View, len(specs))
	total := 0
	for _, spec := range specs {
		v, err := view.New(records[spec.Alias])
		if err != nil {
			return nil, &EmptyAttachmentError{Alias: spec.Alias, Ignored: ignored[spec.Alias], Failed: failed[spec.Alias]}
		}
		views[spec.Alias] = v
		total += len(v)
	}

	table, err := routing.BuildResolved(specs, views, autoTargets)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	r.log().Info("attachments resolved", "attachments", len(specs), "files", total,
		"inlineBytes", m.Budget.Used(), "duration", elapsed)
	return &Resolution{Specs: specs, Table: table, Records: total, Elapsed: elapsed}, nil
}

// resolveAuto decides the targets of auto attachments from their fully read
// records. Auto attachments are read without limits because their target is
// unknown until then. Those that resolve to the template lose the exemption
// so the limits can be applied to them; the returned map holds only those.
func (r *Resolver) resolveAuto(specs []attach.Spec, results []materialize.Result) map[string]attach.Targets {
	auto := make(map[string]bool)
	for _, spec := range specs {
		if spec.Targets.Has(attach.Auto) {
			auto[spec.Alias] = true
		}
	}
	if len(auto) == 0 {
		return nil
	}

	records := make(map[string][]*materialize.Record)
	for _, res := range results {
		if auto[res.Job.Alias] && res.Err == nil {
			records[res.Job.Alias] = append(records[res.Job.Alias], res.Record)
		}
	}
	resolved := make(map[string]attach.Targets)
	for alias, recs := range records {
		v, err := view.New(recs)
		if err != nil {
			continue
		}
		if targets := routing.ResolveAuto(v); targets.TemplateOnly() {
			resolved[alias] = targets
		}
	}
	for i := range results {
		if _, ok := resolved[results[i].Job.Alias]; ok {
			results[i].Job.Exempt = false
		}
	}
	if len(resolved) > 0 {
		r.log().Debug("auto attachments resolved to the template", "aliases", len(resolved))
	}
	return resolved
}

func (r *Resolver) collect(collector *collect.Collector, spec attach.Spec) ([]collect.Candidate, error) {
	switch spec.Kind {
	case attach.File:
		c, err := collector.File(r.abs(spec.Path))
		if err != nil {
			return nil, err
		}
		return []collect.Candidate{c}, nil
	case attach.Directory:
		return collector.Directory(r.abs(spec.Path), collect.Options{
			Recursive:        spec.Recursive,
			Pattern:          spec.Pattern,
			IgnoreFile:       r.IgnoreFile,
			CustomIgnores:    r.Exclude,
			NoDefaultIgnores: r.NoDefaultIgnores,
		})
	case attach.Collection:
		return collector.List(spec.Path, r.cwd())
	}
	return nil, fmt.Errorf("unsupported source kind %s", spec.Kind)
}

func (r *Resolver) cwd() string {
	if r.Cwd != "" {
		return r.Cwd
	}
	return "."
}

func (r *Resolver) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.cwd(), path)
}

func (r *Resolver) log() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
