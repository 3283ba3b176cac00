package materialize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/lexandro/promptattach/collect"
	"github.com/lexandro/promptattach/diag"
	"github.com/lexandro/promptattach/language"
	"github.com/lexandro/promptattach/security"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the size of the read pool when none is configured.
const DefaultWorkers = 8

// Job asks for one candidate to be materialized on behalf of an attachment.
type Job struct {
	Alias     string
	Seq       int
	Candidate collect.Candidate
	// Exempt lifts the size limits for attachments that are uploaded to a tool
	// rather than inlined.
	Exempt bool
}

// Result is the outcome of one Job. Exactly one of Record and Err is set.
type Result struct {
	Job    Job
	Record *Record
	Err    error
}

// Materializer reads candidates into Records with a bounded worker pool.
type Materializer struct {
	Policy   *security.Policy
	Limits   Limits
	Budget   *Budget
	Registry *Registry
	Sink     *diag.Sink
	Workers  int
}

// Materialize reads every job and returns results in job order, regardless of
// completion order. Size-limit decisions are taken in job order before any
// read starts, so the outcome does not depend on scheduling.
func (m *Materializer) Materialize(ctx context.Context, jobs []Job) []Result {
	if m.Budget == nil {
		m.Budget = NewBudget(m.Limits.MaxTotalSize)
	}
	if m.Registry == nil {
		m.Registry = NewRegistry()
	}
	workers := m.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	plans := m.planLimits(jobs)

	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = m.materializeOne(ctx, job, plans[i])
			return nil
		})
	}
	g.Wait()
	return results
}

// Enforce applies the size limits again after some jobs lost their
// exemption, which happens when an auto target turns out to be the template.
// Every job is charged in order against a fresh budget, and records that no
// longer fit are demoted to Oversized. Their hash is kept.
func (m *Materializer) Enforce(results []Result) {
	m.Budget = NewBudget(m.Limits.MaxTotalSize)
	jobs := make([]Job, len(results))
	for i, res := range results {
		jobs[i] = res.Job
	}
	for i, plan := range m.planLimits(jobs) {
		rec := results[i].Record
		if plan.oversized == "" || rec == nil || rec.Kind == Oversized {
			continue
		}
		demoted := *rec
		demoted.Content, demoted.Binary, demoted.Kind = "", nil, Oversized
		results[i].Record = &demoted
		m.Sink.Emit(diag.Event{Kind: diag.KindOversized, Path: rec.AbsPath, Alias: jobs[i].Alias, Reason: plan.oversized})
	}
}

// limitPlan records why a job will not be loaded in full.
type limitPlan struct {
	oversized string // non-empty when a limit applies
	skipRead  bool   // budget exhausted: do not touch the file at all
}

// planLimits marks the template-only jobs that must not be loaded: files above
// the per-file limit (hashed but not kept), and every file once the cumulative
// budget runs out (not read at all). A path shared by several attachments is
// charged once.
func (m *Materializer) planLimits(jobs []Job) []limitPlan {
	plans := make([]limitPlan, len(jobs))
	charged := make(map[string]limitPlan)
	for i, job := range jobs {
		if job.Exempt {
			continue
		}
		c := job.Candidate
		if prev, ok := charged[c.AbsolutePath]; ok {
			plans[i] = prev
			continue
		}
		switch {
		case m.Limits.MaxFileSize > 0 && c.SizeBytes > m.Limits.MaxFileSize:
			plans[i].oversized = fmt.Sprintf("%d bytes exceeds per-file limit of %d", c.SizeBytes, m.Limits.MaxFileSize)
		case !m.Budget.Reserve(c.SizeBytes):
			plans[i].oversized = fmt.Sprintf("cumulative size exceeds total limit of %d", m.Limits.MaxTotalSize)
			plans[i].skipRead = true
		}
		charged[c.AbsolutePath] = plans[i]
	}
	return plans
}

func (m *Materializer) materializeOne(ctx context.Context, job Job, plan limitPlan) Result {
	c := job.Candidate
	fail := func(op string, err error) Result {
		m.Sink.Emit(diag.Event{Kind: diag.KindReadFailed, Path: c.AbsolutePath, Alias: job.Alias, Reason: err.Error()})
		return Result{Job: job, Err: &Error{Path: c.AbsolutePath, Op: op, Err: err}}
	}

	if err := ctx.Err(); err != nil {
		return fail("cancelled", err)
	}
	// The file may have been swapped for a symlink since collection.
	if _, err := m.Policy.Check(c.AbsolutePath); err != nil {
		return Result{Job: job, Err: &Error{Path: c.AbsolutePath, Op: "authorize", Err: err}}
	}

	var (
		p   *payload
		err error
	)
	switch {
	case plan.skipRead:
		p = &payload{size: c.SizeBytes, kind: Oversized}
		m.Sink.Emit(diag.Event{Kind: diag.KindOversized, Path: c.AbsolutePath, Alias: job.Alias, Reason: plan.oversized})
	case plan.oversized != "":
		p, err = m.Registry.load(c.AbsolutePath+"#oversized", func() (*payload, error) {
			return hashOnly(c.AbsolutePath)
		})
		if err == nil {
			m.Sink.Emit(diag.Event{Kind: diag.KindOversized, Path: c.AbsolutePath, Alias: job.Alias, Reason: plan.oversized})
		}
	default:
		p, err = m.Registry.load(c.AbsolutePath+"#full", func() (*payload, error) {
			return readPayload(c.AbsolutePath)
		})
		if err == nil && p.kind == Binary && !job.Exempt {
			m.Sink.Emit(diag.Event{Kind: diag.KindDecodeFailed, Path: c.AbsolutePath, Alias: job.Alias, Reason: "not valid text, content unavailable to the template"})
		}
	}
	if err != nil {
		return fail("read", err)
	}

	name := path.Base(c.RelativePath)
	return Result{Job: job, Record: &Record{
		Seq:      job.Seq,
		Name:     name,
		Path:     c.RelativePath,
		AbsPath:  c.AbsolutePath,
		Content:  p.content,
		Binary:   p.binary,
		Size:     p.size,
		ModTime:  c.ModTime,
		Encoding: p.encoding,
		Hash:     p.hash,
		Kind:     p.kind,
		Language: language.DetectLanguage(name),
	}}
}

func readPayload(absPath string) (*payload, error) {
	data, err := readFileWithRetry(absPath)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	p := &payload{size: int64(len(data)), hash: hex.EncodeToString(sum[:])}
	if text, enc, ok := language.Decode(data); ok {
		p.kind, p.content, p.encoding = Text, text, enc
	} else {
		p.kind, p.binary, p.encoding = Binary, data, enc
	}
	return p, nil
}

// hashOnly streams the file through SHA-256 without retaining its bytes.
func hashOnly(absPath string) (*payload, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, err
	}
	return &payload{size: n, hash: hex.EncodeToString(h.Sum(nil)), kind: Oversized}, nil
}

// readFileWithRetry attempts to read a file, retrying once after a short delay
// if the file is locked (common on Windows when editors are saving).
func readFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		time.Sleep(50 * time.Millisecond)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
