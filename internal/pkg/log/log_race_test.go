package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLoggerRaceCondition(t *testing.T) {
	// ensure logger is stopped before starting
	Stop()

	if err := Start(); err != nil {
		t.Fatalf("Failed to start logger: %v", err)
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(4)
		go func() { defer wg.Done(); Debug("message") }()
		go func() { defer wg.Done(); Info("message") }()
		go func() { defer wg.Done(); Warn("message") }()
		go func() { defer wg.Done(); Error("message") }()
	}

	stopped := make(chan struct{})
	go func() {
		Stop()
		close(stopped)
	}()

	wg.Wait()

	<-stopped

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if multiLogger != nil {
		t.Error("Logger should be nil after Stop()")
	}
}

func TestLoggerNilSafety(t *testing.T) {
	Stop()

	Debug("Should not panic when logger is nil")
	Info("Should not panic when logger is nil")

	fl := NewFieldedLogger(&Fields{"component": "test"})
	fl.Warn("Should not panic when logger is nil")

	if err := Start(); err != nil {
		t.Fatalf("Failed to start logger: %v", err)
	}
	if err := Start(); err != ErrLoggerAlreadyInitialized {
		t.Fatalf("expected ErrLoggerAlreadyInitialized, got %v", err)
	}

	Stop()
}

func TestFieldedLoggerWritesSortedFields(t *testing.T) {
	Stop()

	var buf bytes.Buffer
	SetStdout(&buf)
	t.Cleanup(func() { SetStdout(nil) })

	cfg := &logConfig{StdoutEnabled: true, StdoutLevel: 0, StderrLevel: 8, StderrEnabled: true, NoColor: true}
	loggerMu.Lock()
	multiLogger = cfg.makeMultiLogger()
	loggerMu.Unlock()
	t.Cleanup(Stop)

	logger := NewFieldedLogger(&Fields{"component": "queue", "action": "dispatch"})
	logger.With("index", 3).Info("item dispatched")

	out := buf.String()
	if !strings.Contains(out, "item dispatched") {
		t.Fatalf("missing message in %q", out)
	}
	if strings.Index(out, "action=dispatch") > strings.Index(out, "component=queue") {
		t.Errorf("fields are not sorted: %q", out)
	}
	if !strings.Contains(out, "index=3") {
		t.Errorf("missing extra field in %q", out)
	}
}

func TestRotatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	rf := newRotatedFile(&logfileConfig{Dir: dir, Prefix: "test", Rotate: true, RotatePeriod: time.Hour})
	if _, err := rf.Write([]byte("hello\n")); err != nil {
		t.Fatal(err)
	}
	rf.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "test-") {
		t.Fatalf("unexpected log files: %v", entries)
	}

	if _, err := rf.Write([]byte("after close")); err != os.ErrClosed {
		t.Errorf("expected os.ErrClosed, got %v", err)
	}
}

func TestRotatedFileRotatesAndPrunes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	clock := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	rf := &rotatedFile{
		config: &logfileConfig{Dir: dir, Prefix: "test", Rotate: true, RotatePeriod: time.Hour, Keep: 2},
		now:    func() time.Time { return clock },
	}
	rf.mu.Lock()
	rf.open()
	rf.mu.Unlock()
	defer rf.Close()

	for i := 0; i < 3; i++ {
		clock = clock.Add(time.Hour)
		if _, err := rf.Write([]byte("line\n")); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 log files, got %d", len(entries))
	}
	if entries[1].Name() != "test-2024.03.05T13-00-00.log" {
		t.Errorf("unexpected newest file %s", entries[1].Name())
	}
}
