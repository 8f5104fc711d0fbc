package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultLogDir(t *testing.T) {
	dir := DefaultLogDir()
	if !strings.Contains(dir, ".lexsearch") || filepath.Base(dir) != "logs" {
		t.Errorf("DefaultLogDir should be .lexsearch/logs, got: %s", dir)
	}
}

func TestDefaultLogPath(t *testing.T) {
	if base := filepath.Base(DefaultLogPath()); base != "lexsearch.log" {
		t.Errorf("DefaultLogPath should end with lexsearch.log, got: %s", base)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got: %s", cfg.Level)
	}
	if cfg.MaxSizeMB != 10 || cfg.MaxFiles != 5 {
		t.Errorf("expected 10MB x 5 files, got: %dMB x %d", cfg.MaxSizeMB, cfg.MaxFiles)
	}
	if cfg.WriteToStderr {
		t.Error("file logging should not write to stderr by default")
	}
}

func TestSetup(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")

	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: logPath})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Debug("index_invalidated", slog.String("engine", "headword"), slog.Int("epoch", 2))
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	for _, want := range []string{`"msg":"index_invalidated"`, `"engine":"headword"`, `"epoch":2`} {
		if !strings.Contains(content, want) {
			t.Errorf("log should contain %s, got: %s", want, content)
		}
	}
}

func TestSetup_LevelFilters(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")

	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: logPath})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	cleanup()

	data, _ := os.ReadFile(logPath)
	if strings.Contains(string(data), "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("warn record should be written")
	}
}

func TestSetupDefault_InstallsLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logPath := filepath.Join(t.TempDir(), "default.log")
	logger, cleanup, err := SetupDefault(Config{Level: "info", FilePath: logPath})
	if err != nil {
		t.Fatalf("SetupDefault failed: %v", err)
	}
	defer cleanup()

	if slog.Default().Handler() != logger.Handler() {
		t.Error("SetupDefault should install the logger as default")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := LevelFromString(tc.input); got != tc.want {
				t.Errorf("LevelFromString(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestFindLogFile_ExplicitPath(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "explicit.log")
	if err := os.WriteFile(logPath, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindLogFile(logPath)
	if err != nil {
		t.Fatalf("FindLogFile failed: %v", err)
	}
	if got != logPath {
		t.Errorf("expected %s, got %s", logPath, got)
	}
}

func TestFindLogFile_ExplicitMissing(t *testing.T) {
	if _, err := FindLogFile(filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Error("expected error for missing explicit file")
	}
}

// ============================================================================
// Viewer Tests
// ============================================================================

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "view.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestViewer_ParseLine_ValidJSON(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &strings.Builder{})

	entry := v.parseLine(`{"time":"2026-01-15T10:30:00Z","level":"INFO","msg":"snapshot_captured","engine":"gloss","objects":3}`)

	if !entry.IsValid {
		t.Fatal("entry should be valid")
	}
	if entry.Level != "INFO" || entry.Msg != "snapshot_captured" || entry.Engine != "gloss" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Attrs["objects"] != float64(3) {
		t.Errorf("expected objects=3, got %v", entry.Attrs["objects"])
	}
	if _, ok := entry.Attrs["engine"]; ok {
		t.Error("engine should not be repeated in attrs")
	}
}

func TestViewer_ParseLine_InvalidJSON(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &strings.Builder{})

	entry := v.parseLine("not json")

	if entry.IsValid {
		t.Error("entry should not be valid")
	}
	if got := v.FormatEntry(entry); got != "not json" {
		t.Errorf("invalid lines should format raw, got %q", got)
	}
}

func TestViewer_Tail_Filters(t *testing.T) {
	path := writeLog(t,
		`{"time":"2026-01-15T10:30:00Z","level":"DEBUG","msg":"a","engine":"headword"}`,
		`{"time":"2026-01-15T10:30:01Z","level":"WARN","msg":"b","engine":"headword"}`,
		`{"time":"2026-01-15T10:30:02Z","level":"ERROR","msg":"c","engine":"gloss"}`,
		`{"time":"2026-01-15T10:30:03Z","level":"INFO","msg":"d"}`,
	)

	tests := []struct {
		name string
		cfg  ViewerConfig
		n    int
		want []string
	}{
		{"all", ViewerConfig{}, 10, []string{"a", "b", "c", "d"}},
		{"last two", ViewerConfig{}, 2, []string{"c", "d"}},
		{"level", ViewerConfig{Level: "warn"}, 10, []string{"b", "c"}},
		{"engine", ViewerConfig{Engine: "headword"}, 10, []string{"a", "b"}},
		{"pattern", ViewerConfig{Pattern: regexp.MustCompile(`gloss`)}, 10, []string{"c"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.NoColor = true
			entries, err := NewViewer(tc.cfg, &strings.Builder{}).Tail(path, tc.n)
			if err != nil {
				t.Fatalf("Tail failed: %v", err)
			}
			var got []string
			for _, e := range entries {
				got = append(got, e.Msg)
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestViewer_Tail_NonexistentFile(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &strings.Builder{})
	if _, err := v.Tail(filepath.Join(t.TempDir(), "missing.log"), 10); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &strings.Builder{})
	entry := v.parseLine(`{"time":"2026-01-15T10:30:00.5Z","level":"WARN","msg":"index_clear_failed","engine":"headword","error":"boom","b":1}`)

	got := v.FormatEntry(entry)

	want := "10:30:00.500 WARN  [headword] index_clear_failed b=1 error=boom"
	if got != want {
		t.Errorf("FormatEntry = %q, want %q", got, want)
	}
}

func TestViewer_Print(t *testing.T) {
	var buf strings.Builder
	v := NewViewer(ViewerConfig{NoColor: true}, &buf)

	v.Print([]LogEntry{{Raw: "one"}, {Raw: "two"}})

	if buf.String() != "one\ntwo\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestViewer_Follow(t *testing.T) {
	path := writeLog(t, `{"level":"INFO","msg":"old"}`)
	v := NewViewer(ViewerConfig{NoColor: true}, &strings.Builder{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// Give Follow time to seek to the end before appending.
	time.Sleep(2 * followInterval)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fmt.Fprintln(f, `{"level":"INFO","msg":"new"}`)
	_ = f.Close()

	select {
	case e := <-entries:
		if e.Msg != "new" {
			t.Errorf("expected only appended entries, got %q", e.Msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for followed entry")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow returned %v", err)
	}
}

// ============================================================================
// Writer Tests
// ============================================================================

func TestRotatingWriter_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rotate.log")

	// 0 MB rotates before every write.
	w, err := NewRotatingWriter(logPath, 0, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	data := []byte(strings.Repeat("x", 2048))
	for i := 0; i < 2; i++ {
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Error("main log file should exist")
	}
	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Error("rotated file .1 should exist")
	}
}

func TestRotatingWriter_MaxFilesLimit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "maxfiles.log")

	w, err := NewRotatingWriter(logPath, 0, 2)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	for i := 0; i < 6; i++ {
		_, _ = fmt.Fprintf(w, "line %d\n", i)
	}

	if _, err := os.Stat(logPath + ".2"); err != nil {
		t.Error("rotated file .2 should exist")
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("rotated file .3 should not exist beyond maxFiles")
	}
	data, _ := os.ReadFile(logPath)
	if string(data) != "line 5\n" {
		t.Errorf("current file should hold the last line, got %q", data)
	}
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "append.log")
	if err := os.WriteFile(logPath, []byte("before\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewRotatingWriter(logPath, 1, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	_, _ = w.Write([]byte("after\n"))
	_ = w.Close()

	data, _ := os.ReadFile(logPath)
	if string(data) != "before\nafter\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), 1, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("write after close should fail")
	}
	if err := w.Sync(); err != nil {
		t.Errorf("Sync after close should be a no-op, got %v", err)
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "concurrent.log")
	w, err := NewRotatingWriter(logPath, 10, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	w.SetImmediateSync(false)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = fmt.Fprintf(w, "goroutine %d line %d\n", id, j)
			}
		}(i)
	}
	wg.Wait()
	_ = w.Close()

	data, _ := os.ReadFile(logPath)
	if lines := strings.Count(string(data), "\n"); lines != 500 {
		t.Errorf("expected 500 lines, got %d", lines)
	}
}
