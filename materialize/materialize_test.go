package materialize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lexandro/promptattach/collect"
	"github.com/lexandro/promptattach/diag"
	"github.com/lexandro/promptattach/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir  string
	sink *diag.Sink
	m    *Materializer
}

func newFixture(t *testing.T, limits Limits) *fixture {
	t.Helper()
	sink := diag.NewSink(nil)
	policy, err := security.NewPolicy(security.Options{Sink: sink})
	require.NoError(t, err)
	return &fixture{
		dir:  t.TempDir(),
		sink: sink,
		m:    &Materializer{Policy: policy, Limits: limits, Sink: sink, Workers: 4},
	}
}

func (f *fixture) write(t *testing.T, name string, data []byte) collect.Candidate {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	canonical, err := security.Canonicalize(path)
	require.NoError(t, err)
	return collect.Candidate{AbsolutePath: canonical, RelativePath: name, SizeBytes: info.Size(), ModTime: info.ModTime()}
}

func jobsFor(alias string, exempt bool, cands ...collect.Candidate) []Job {
	jobs := make([]Job, len(cands))
	for i, c := range cands {
		jobs[i] = Job{Alias: alias, Seq: i, Candidate: c, Exempt: exempt}
	}
	return jobs
}

func Test_Materialize_TextRecord(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	c := f.write(t, "hello.txt", []byte("hello world"))

	results := f.m.Materialize(context.Background(), jobsFor("doc", false, c))
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	rec := results[0].Record
	assert.Equal(t, Text, rec.Kind)
	assert.Equal(t, "hello world", rec.Content)
	assert.Nil(t, rec.Binary)
	assert.Equal(t, "hello.txt", rec.Name)
	assert.Equal(t, "utf-8", rec.Encoding)
	assert.EqualValues(t, 11, rec.Size)
	assert.Len(t, rec.Hash, 64)
	assert.Equal(t, "Text", rec.Language)
}

func Test_Materialize_BinaryRecord(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	c := f.write(t, "img.png", []byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0x02})

	results := f.m.Materialize(context.Background(), jobsFor("img", false, c))
	rec := results[0].Record
	require.NotNil(t, rec)
	assert.Equal(t, Binary, rec.Kind)
	assert.Empty(t, rec.Content)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0x02}, rec.Binary)
	assert.Equal(t, 1, f.sink.Count(diag.KindDecodeFailed))
}

func Test_Materialize_PerFileLimit(t *testing.T) {
	f := newFixture(t, Limits{MaxFileSize: 10, MaxTotalSize: 1000})
	big := f.write(t, "big.txt", []byte(strings.Repeat("x", 20)))

	rec := f.m.Materialize(context.Background(), jobsFor("doc", false, big))[0].Record
	require.NotNil(t, rec)
	assert.Equal(t, Oversized, rec.Kind)
	assert.Empty(t, rec.Content)
	assert.Nil(t, rec.Binary)
	assert.EqualValues(t, 20, rec.Size)
	assert.NotEmpty(t, rec.Hash, "oversized files are still hashed")
	assert.Equal(t, 1, f.sink.Count(diag.KindOversized))
}

func Test_Materialize_ExemptIgnoresLimits(t *testing.T) {
	f := newFixture(t, Limits{MaxFileSize: 10, MaxTotalSize: 10})
	big := f.write(t, "big.csv", []byte(strings.Repeat("a,b\n", 20)))

	rec := f.m.Materialize(context.Background(), jobsFor("data", true, big))[0].Record
	require.NotNil(t, rec)
	assert.Equal(t, Text, rec.Kind)
	assert.Len(t, rec.Content, 80)
	assert.Zero(t, f.m.Budget.Used(), "exempt attachments do not consume the budget")
}

func Test_Materialize_TotalLimitShortCircuits(t *testing.T) {
	f := newFixture(t, Limits{MaxFileSize: 100, MaxTotalSize: 25})
	a := f.write(t, "a.txt", []byte(strings.Repeat("a", 10)))
	b := f.write(t, "b.txt", []byte(strings.Repeat("b", 10)))
	c := f.write(t, "c.txt", []byte(strings.Repeat("c", 10)))
	d := f.write(t, "d.txt", []byte("d"))

	results := f.m.Materialize(context.Background(), jobsFor("docs", false, a, b, c, d))
	require.Len(t, results, 4)
	assert.Equal(t, Text, results[0].Record.Kind)
	assert.Equal(t, Text, results[1].Record.Kind)
	assert.Equal(t, Oversized, results[2].Record.Kind)
	assert.Equal(t, Oversized, results[3].Record.Kind, "budget stays exhausted even for small files")
	assert.Empty(t, results[3].Record.Hash, "files past the budget are not read")
	assert.True(t, f.m.Budget.Exhausted())
}

func Test_Materialize_PreservesOrder(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	var cands []collect.Candidate
	for _, name := range []string{"e.txt", "a.txt", "d.txt", "b.txt", "c.txt", "f.txt", "g.txt", "h.txt", "i.txt"} {
		cands = append(cands, f.write(t, name, []byte(name)))
	}
	f.m.Workers = 3

	results := f.m.Materialize(context.Background(), jobsFor("docs", false, cands...))
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, cands[i].RelativePath, r.Record.Path)
		assert.Equal(t, i, r.Record.Seq)
	}
}

func Test_Materialize_VanishedFile(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	ok := f.write(t, "ok.txt", []byte("ok"))
	gone := f.write(t, "gone.txt", []byte("bye"))
	require.NoError(t, os.Remove(gone.AbsolutePath))

	results := f.m.Materialize(context.Background(), jobsFor("docs", false, ok, gone))
	require.NoError(t, results[0].Err)
	var merr *Error
	require.True(t, errors.As(results[1].Err, &merr))
	assert.True(t, errors.Is(results[1].Err, os.ErrNotExist))
	assert.Equal(t, 1, f.sink.Count(diag.KindReadFailed))
}

func Test_Materialize_HashStableAcrossRuns(t *testing.T) {
	f := newFixture(t, Limits{MaxFileSize: 4, MaxTotalSize: 100})
	small := f.write(t, "small.txt", []byte("abc"))
	big := f.write(t, "big.txt", []byte("abcdefgh"))

	first := f.m.Materialize(context.Background(), jobsFor("x", false, small, big))
	f.m.Budget, f.m.Registry = nil, nil
	second := f.m.Materialize(context.Background(), jobsFor("x", false, small, big))

	for i := range first {
		assert.Equal(t, first[i].Record.Hash, second[i].Record.Hash)
	}
}

func Test_Materialize_SharedPathReadOnce(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	c := f.write(t, "shared.json", []byte(`{"k":"v"}`))
	f.m.Registry = NewRegistry()

	jobs := append(jobsFor("one", false, c), jobsFor("two", false, c)...)
	results := f.m.Materialize(context.Background(), jobs)
	require.Len(t, results, 2)
	assert.Equal(t, "one", results[0].Job.Alias)
	assert.Equal(t, results[0].Record.Hash, results[1].Record.Hash)
	assert.Equal(t, 1, f.m.Registry.Len())
	assert.EqualValues(t, 9, f.m.Budget.Used(), "shared path is charged once")
}

func Test_Budget_ConcurrentReserve(t *testing.T) {
	b := NewBudget(100)
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Reserve(10) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, granted)
	assert.EqualValues(t, 100, b.Used())
	assert.True(t, b.Exhausted())
}

func Test_Budget_Unlimited(t *testing.T) {
	b := NewBudget(0)
	assert.True(t, b.Reserve(1<<40))
	assert.False(t, b.Exhausted())
}

func Test_Materialize_EnforceDemotesJobsThatLostExemption(t *testing.T) {
	f := newFixture(t, Limits{MaxFileSize: 15, MaxTotalSize: 15})
	big := f.write(t, "big.txt", []byte(strings.Repeat("b", 20)))
	a := f.write(t, "a.txt", []byte(strings.Repeat("a", 10)))
	c := f.write(t, "c.txt", []byte(strings.Repeat("c", 10)))

	jobs := append(jobsFor("auto", true, big, a), jobsFor("docs", false, c)...)
	results := f.m.Materialize(context.Background(), jobs)
	require.Equal(t, Text, results[0].Record.Kind)
	require.Equal(t, Text, results[2].Record.Kind)

	for i := range results[:2] {
		results[i].Job.Exempt = false
	}
	f.m.Enforce(results)

	assert.Equal(t, Oversized, results[0].Record.Kind, "above the per-file limit")
	assert.Empty(t, results[0].Record.Content)
	assert.Len(t, results[0].Record.Hash, 64, "demoted records keep their hash")
	assert.Equal(t, Text, results[1].Record.Kind)
	assert.Equal(t, Oversized, results[2].Record.Kind, "charged after a.txt, over the total")
	assert.EqualValues(t, 10, f.m.Budget.Used())
	assert.Equal(t, 2, f.sink.Count(diag.KindOversized))
}
