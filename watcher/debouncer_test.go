package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 50 * time.Millisecond

func nextBatch(t *testing.T, d *Debouncer) []DebouncedEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(10 * testInterval):
		require.FailNow(t, "no batch from debouncer")
		return nil
	}
}

func batchPaths(batch []DebouncedEvent) []string {
	paths := make([]string, len(batch))
	for i, e := range batch {
		paths[i] = e.Path
	}
	return paths
}

func Test_Debouncer_TemplateSave(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("/work/prompt.tmpl", OpWrite)

	batch := nextBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, DebouncedEvent{Path: "/work/prompt.tmpl", Op: OpWrite}, batch[0])
}

// Editors often write a temp file and rename it over the original; the
// attachment should surface once with the last operation seen.
func Test_Debouncer_CollapsesRepeatedPath(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("/work/docs/a.md", OpRemove)
	d.Add("/work/docs/a.md", OpCreate)
	d.Add("/work/docs/a.md", OpWrite)

	batch := nextBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpWrite, batch[0].Op)
}

func Test_Debouncer_BatchSortedByPath(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("/work/src/z.go", OpCreate)
	d.Add("/work/files.list", OpWrite)
	d.Add("/work/src/a.go", OpRemove)

	batch := nextBatch(t, d)
	assert.Equal(t, []string{"/work/files.list", "/work/src/a.go", "/work/src/z.go"}, batchPaths(batch))
}

func Test_Debouncer_QuietPeriodRestarts(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("/work/prompt.tmpl", OpWrite)
	time.Sleep(testInterval / 2)
	d.Add("/work/data.json", OpWrite)

	batch := nextBatch(t, d)
	assert.ElementsMatch(t, []string{"/work/prompt.tmpl", "/work/data.json"}, batchPaths(batch))
}

func Test_Debouncer_StopDropsPending(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add("/work/prompt.tmpl", OpWrite)
	d.Stop()

	select {
	case batch := <-d.Output():
		t.Fatalf("expected no batch after Stop, got %v", batch)
	case <-time.After(3 * testInterval):
	}
}

func Test_EventOp_String(t *testing.T) {
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", EventOp(99).String())
}
