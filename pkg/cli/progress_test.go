package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestSimpleProgressBasic(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(100)
	progress.Update(50)
	progress.Finish()

	output := buf.String()
	if !strings.Contains(output, "(50/100 entries)") {
		t.Errorf("expected midpoint render, got %q", output)
	}
	if !strings.Contains(output, "(100/100 entries)") {
		t.Errorf("expected finished render, got %q", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Finish() should terminate the line")
	}
}

func TestSimpleProgressZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf).(*SimpleProgress)

	progress.Start(0)
	progress.Update(0)
	progress.Finish()

	// Nothing to render for an unknown total, only the final newline.
	if got := buf.String(); got != "\n" {
		t.Errorf("expected bare newline for zero total, got %q", got)
	}
}

func TestSimpleProgressError(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(100)
	progress.Error(fmt.Errorf("disk full"))

	output := buf.String()
	if !strings.Contains(output, "error: disk full") {
		t.Errorf("expected error line, got %q", output)
	}
}

func TestSimpleProgressConcurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(1000)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(start int) {
			for j := 0; j < 100; j++ {
				progress.Update(int64(start*100 + j))
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	progress.Finish()

	if buf.Len() == 0 {
		t.Error("expected some progress output")
	}
}

func TestNewProgressReporterNilWriter(t *testing.T) {
	// Defaults to stderr, must not panic.
	progress := NewProgressReporter(nil)
	if progress == nil {
		t.Fatal("NewProgressReporter(nil) should not return nil")
	}

	progress.Start(10)
	progress.Update(5)
	progress.Finish()
}
