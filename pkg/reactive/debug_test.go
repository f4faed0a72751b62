package reactive

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetDebugLog_TracesEffectRunsAndTriggers(t *testing.T) {
	var buf bytes.Buffer
	SetDebugLog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetDebugLog(nil)

	state := NewState(1)
	NewEffect(func() { _ = state.Get() }, EffectOptions{})
	state.Set(2)

	out := buf.String()
	if !strings.Contains(out, "effect run") {
		t.Errorf("expected an 'effect run' trace line, got:\n%s", out)
	}
	if !strings.Contains(out, "dep trigger") {
		t.Errorf("expected a 'dep trigger' trace line, got:\n%s", out)
	}
}

func TestSetDebugLog_NilDisablesTracing(t *testing.T) {
	SetDebugLog(nil)
	if traceLog() != nil {
		t.Fatal("expected traceLog to be nil after SetDebugLog(nil)")
	}
	state := NewState(1)
	NewEffect(func() { _ = state.Get() }, EffectOptions{})
	state.Set(2)
}
