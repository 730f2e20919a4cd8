package progress

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBarSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewBarSink(&buf)
	s.Start("Memuat dokumen", 4)
	s.Increment(2)
	s.Increment(2)
	s.Done()

	out := buf.String()
	if !strings.Contains(out, "Memuat dokumen") {
		t.Errorf("output missing description: %q", out)
	}
	if !strings.Contains(out, "4/4") {
		t.Errorf("output missing final count: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Done should end the line")
	}
}

func TestBarSink_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	s := NewBarSink(&buf)
	s.Start("kosong", 0)
	s.Increment(1)
	s.Done()
	// No bar should be drawn for an unknown/zero total.
	if strings.Contains(buf.String(), "[") {
		t.Errorf("unexpected bar for zero total: %q", buf.String())
	}
}

func TestLogSink(t *testing.T) {
	s := NewLogSink(zap.NewNop())
	s.Start("embedding", 100)
	for i := 0; i < 100; i++ {
		s.Increment(1)
	}
	s.Done()
	if s.current != 100 {
		t.Errorf("current = %d, want 100", s.current)
	}
}

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	s.Start("x", 1)
	s.Increment(1)
	s.Done()
}
