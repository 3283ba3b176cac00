package diag

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Sink_NilIsSafe(t *testing.T) {
	var s *Sink
	s.Emit(Event{Kind: KindPathDenied, Path: "/x"})
	assert.Nil(t, s.Events())
	assert.Equal(t, 0, s.Count(KindPathDenied))
}

func Test_Sink_ConcurrentEmit(t *testing.T) {
	s := NewSink(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Emit(Event{Kind: KindOversized, Path: "/big"})
		}()
	}
	wg.Wait()
	require.Len(t, s.Events(), 50)
	assert.Equal(t, 50, s.Count(KindOversized))
}

func Test_Sink_MirrorsToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s := NewSink(logger)

	s.Emit(Event{Kind: KindIgnored, Path: "/skip.log"})
	s.Emit(Event{Kind: KindPathDenied, Path: "/etc/passwd", Alias: "secrets", Reason: "outside allowed"})

	out := buf.String()
	assert.NotContains(t, out, "skip.log", "ignored events are logged at debug")
	assert.Contains(t, out, "/etc/passwd")
	assert.Contains(t, out, "alias=secrets")
}
