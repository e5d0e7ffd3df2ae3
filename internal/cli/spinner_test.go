package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerBasic(t *testing.T) {
	s := newSpinner("Querying resource graph...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if s.Cancelled() {
		t.Error("a stopped spinner should not report cancellation")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Testing with context...")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerWithContext(ctx, "Testing with timeout...")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Testing idempotent stop...")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinner("never started")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a spinner that was never started")
	}
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	prev := statusOut
	statusOut = &buf
	t.Cleanup(func() { statusOut = prev })

	s := newSpinner("Querying resource graph...")
	s.Start()
	time.Sleep(250 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Querying resource graph...") {
		t.Errorf("output %q should contain the message", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("output %q should end by clearing the line", out)
	}
}
