package tailer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"CwndScope/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test log: %v", err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open test log for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("Failed to append to test log: %v", err)
	}
}

func tempLog(t *testing.T, content string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "tailer_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "cwnd_log.csv")
	writeFile(t, path, content)
	return path
}

const testHeader = "timestamp,pid,saddr,sport,daddr,dport,cwnd\n"

func TestLoadAll(t *testing.T) {
	content := testHeader +
		"2025-01-02T10:00:02Z,100,10.0.0.1,4000,10.0.0.2,80,12\n" +
		"2025-01-02T10:00:01Z,100,10.0.0.1,4000,10.0.0.2,80,10\n" +
		"2025-01-02T10:00:03Z,200,10.0.0.3,5000,10.0.0.4,443,7\n"
	path := tempLog(t, content)

	tl := New(path, 0)
	records, err := tl.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].Cwnd != 10 || records[1].Cwnd != 12 || records[2].Cwnd != 7 {
		t.Errorf("Records are not sorted by timestamp: %+v", records)
	}
	if records[0].Connection != "10.0.0.1:4000 -> 10.0.0.2:80" {
		t.Errorf("Unexpected connection key: %q", records[0].Connection)
	}
	if tl.Offset() != int64(len(content)) {
		t.Errorf("Expected offset %d, got %d", len(content), tl.Offset())
	}
}

func TestLoadAllMissingColumns(t *testing.T) {
	path := tempLog(t, "timestamp,pid,saddr,sport\n")

	tl := New(path, 0)
	_, err := tl.LoadAll()
	if err == nil {
		t.Fatalf("Expected a schema error for a truncated header")
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError, got %T: %v", err, err)
	}
	if len(schemaErr.Missing) != 3 {
		t.Errorf("Expected 3 missing columns, got %v", schemaErr.Missing)
	}
}

func TestLoadAllSkipsMalformedRows(t *testing.T) {
	content := testHeader +
		"2025-01-02T10:00:01Z,100,10.0.0.1,4000,10.0.0.2,80,10\n" +
		"not,a,valid,row\n" +
		"2025-01-02T10:00:02Z,100,10.0.0.1,4000,10.0.0.2,80,bad\n" +
		"2025-01-02T10:00:03Z,100,10.0.0.1,4000,10.0.0.2,80,11\n"
	path := tempLog(t, content)

	tl := New(path, 0)
	records, err := tl.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 well-formed records, got %d", len(records))
	}
	if tl.Skipped() != 2 {
		t.Errorf("Expected 2 skipped rows, got %d", tl.Skipped())
	}
}

func TestLoadAllMissingFile(t *testing.T) {
	tl := New("/nonexistent/cwnd_log.csv", 0)
	if _, err := tl.LoadAll(); err == nil {
		t.Fatalf("Expected an error for a missing file")
	}
}

func TestPollNoGrowth(t *testing.T) {
	path := tempLog(t, testHeader+"2025-01-02T10:00:01Z,100,10.0.0.1,4000,10.0.0.2,80,10\n")

	tl := New(path, 0)
	if _, err := tl.LoadAll(); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	before := tl.Offset()
	grew, err := tl.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if grew {
		t.Errorf("Poll reported growth on an unchanged file")
	}
	if tl.Offset() != before {
		t.Errorf("Offset moved from %d to %d without growth", before, tl.Offset())
	}
}

func TestPollMissingFile(t *testing.T) {
	tl := New("/nonexistent/cwnd_log.csv", 0)
	grew, err := tl.Poll()
	if err != nil {
		t.Fatalf("Poll on a missing file should be a no-op, got error: %v", err)
	}
	if grew {
		t.Errorf("Poll on a missing file reported growth")
	}
}

func TestPollReadsAppendedRows(t *testing.T) {
	path := tempLog(t, testHeader+"2025-01-02T10:00:01Z,100,10.0.0.1,4000,10.0.0.2,80,10\n")

	tl := New(path, 0)
	if _, err := tl.LoadAll(); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	before := tl.Offset()

	appended := "2025-01-02T10:00:02Z,100,10.0.0.1,4000,10.0.0.2,80,12\n" +
		"2025-01-02T10:00:03Z,100,10.0.0.1,4000,10.0.0.2,80,14\n"
	appendFile(t, path, appended)

	grew, err := tl.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !grew {
		t.Fatalf("Poll did not report growth after append")
	}
	if got := tl.Offset(); got != before+int64(len(appended)) {
		t.Errorf("Expected offset %d, got %d", before+int64(len(appended)), got)
	}

	window := tl.Records()
	if len(window) != 3 {
		t.Fatalf("Expected 3 buffered records, got %d", len(window))
	}
	if window[2].Cwnd != 14 {
		t.Errorf("Expected newest record cwnd 14, got %d", window[2].Cwnd)
	}
}

func TestPollLeavesPartialLine(t *testing.T) {
	path := tempLog(t, testHeader+"2025-01-02T10:00:01Z,100,10.0.0.1,4000,10.0.0.2,80,10\n")

	tl := New(path, 0)
	if _, err := tl.LoadAll(); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	before := tl.Offset()

	// A row still being written: no trailing newline yet.
	appendFile(t, path, "2025-01-02T10:00:02Z,100,10.0.0.1,4000,10.0.0.2,80,1")

	grew, err := tl.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if grew {
		t.Errorf("Poll consumed a partial line")
	}
	if tl.Offset() != before {
		t.Errorf("Offset advanced past a partial line: %d -> %d", before, tl.Offset())
	}

	// The producer finishes the line.
	appendFile(t, path, "2\n")
	grew, err = tl.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !grew {
		t.Fatalf("Poll did not pick up the completed line")
	}
	window := tl.Records()
	if window[len(window)-1].Cwnd != 12 {
		t.Errorf("Expected completed row with cwnd 12, got %d", window[len(window)-1].Cwnd)
	}
}

func TestPollDetectsRotation(t *testing.T) {
	content := testHeader +
		"2025-01-02T10:00:01Z,100,10.0.0.1,4000,10.0.0.2,80,10\n" +
		"2025-01-02T10:00:02Z,100,10.0.0.1,4000,10.0.0.2,80,12\n"
	path := tempLog(t, content)

	tl := New(path, 0)
	if _, err := tl.LoadAll(); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	// Replace the file with a shorter one, as log rotation would.
	rotated := testHeader + "2025-01-02T11:00:00Z,300,10.0.0.9,6000,10.0.0.2,80,4\n"
	writeFile(t, path, rotated)

	grew, err := tl.Poll()
	if err != nil {
		t.Fatalf("Poll failed after rotation: %v", err)
	}
	if !grew {
		t.Fatalf("Poll did not report data from the rotated file")
	}
	if got := tl.Offset(); got != int64(len(rotated)) {
		t.Errorf("Expected offset %d after reload, got %d", len(rotated), got)
	}

	window := tl.Records()
	if len(window) != 1 || window[0].PID != 300 {
		t.Errorf("Window was not rebuilt from the rotated file: %+v", window)
	}
}

func TestWindowEviction(t *testing.T) {
	content := testHeader
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		content += model.FormatRow(model.Record{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			PID:       100,
			SAddr:     "10.0.0.1",
			SPort:     4000,
			DAddr:     "10.0.0.2",
			DPort:     80,
			Cwnd:      i,
		}) + "\n"
	}
	path := tempLog(t, content)

	tl := New(path, 3)
	if _, err := tl.LoadAll(); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	window := tl.Records()
	if len(window) != 3 {
		t.Fatalf("Expected window capped at 3, got %d", len(window))
	}
	if window[0].Cwnd != 2 || window[2].Cwnd != 4 {
		t.Errorf("Expected the oldest records evicted first, got %+v", window)
	}

	appendFile(t, path, model.FormatRow(model.Record{
		Timestamp: base.Add(10 * time.Second),
		PID:       100, SAddr: "10.0.0.1", SPort: 4000, DAddr: "10.0.0.2", DPort: 80, Cwnd: 99,
	})+"\n")

	if _, err := tl.Poll(); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	window = tl.Records()
	if len(window) != 3 {
		t.Fatalf("Expected window to stay capped at 3, got %d", len(window))
	}
	if window[2].Cwnd != 99 || window[0].Cwnd != 3 {
		t.Errorf("Eviction order wrong after poll: %+v", window)
	}
}
