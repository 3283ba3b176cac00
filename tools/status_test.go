package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lexandro/promptattach/attach"
)

func Test_StatusHandler_BasicOutput(t *testing.T) {
	resolveFn, dir := newTestResolve(t,
		map[string]string{
			"src/main.go": "package main",
			"src/util.go": "package main",
			"data.csv":    "a,b\n1,2\n",
		},
		attach.Token{Kind: attach.Directory, Value: "src src"},
		attach.Token{Kind: attach.File, Value: "ci:data data.csv"},
	)
	h := &StatusHandler{
		Resolve:   resolveFn,
		StartTime: time.Now().Add(-5 * time.Minute),
		Cwd:       dir,
		Logger:    discardLogger(),
	}

	result, _, err := h.Handle(context.Background(), nil, StatusArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got: %s", resultText(t, result))
	}

	text := resultText(t, result)
	checks := []string{
		"promptattach Status",
		dir,
		"Attachments: 2",
		"Resolved files: 3",
		"code-interpreter",
		"Go",
		"Uptime: 5m",
	}
	for _, check := range checks {
		if !strings.Contains(text, check) {
			t.Errorf("expected output to contain %q, got:\n%s", check, text)
		}
	}
}

func Test_FormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
