// Package tailer implements incremental reading of a growing CWND log
// file. The tailer tracks a byte offset covering the fully parsed prefix
// of the file and keeps a bounded window of the most recent records.
package tailer

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"CwndScope/internal/model"
)

// DefaultWindowCap bounds the in-memory record window when no explicit
// capacity is configured.
const DefaultWindowCap = 1000

// SchemaError reports a log file whose header is missing required columns.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("log header is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Tailer reads a CWND log incrementally. The offset only increases,
// except when rotation is detected and the tail state is rebuilt from
// scratch. The tailer never mutates the underlying file.
type Tailer struct {
	path string
	cap  int

	mu      sync.Mutex
	offset  int64
	window  []model.Record
	skipped int
}

// New creates a tailer for the given log file. A non-positive windowCap
// falls back to DefaultWindowCap.
func New(path string, windowCap int) *Tailer {
	if windowCap <= 0 {
		windowCap = DefaultWindowCap
	}
	return &Tailer{path: path, cap: windowCap}
}

// LoadAll reads the entire log from the start, validates the header,
// and returns all well-formed records stable-sorted by timestamp.
// Malformed rows are skipped with a diagnostic; the skip count is
// available via Skipped. The bounded window is seeded with the most
// recent records and the offset is set to the parsed prefix length.
func (t *Tailer) LoadAll() ([]model.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.offset = 0
	t.window = nil
	t.skipped = 0
	return t.loadLocked()
}

// loadLocked performs a from-scratch load. Caller holds t.mu.
func (t *Tailer) loadLocked() ([]model.Record, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	consumed := completePrefix(data)
	if consumed == 0 {
		return nil, fmt.Errorf("log file '%s' has no complete header line", t.path)
	}

	lines := splitLines(data[:consumed])
	if err := validateHeader(lines[0]); err != nil {
		return nil, err
	}

	records := t.parseRows(lines[1:])
	model.SortByTimestamp(records)

	t.window = clampWindow(append([]model.Record(nil), records...), t.cap)
	t.offset = int64(consumed)
	return records, nil
}

// Poll checks the file for growth since the last read. It returns false
// without error when the file is unchanged or missing. When the file has
// grown, the new byte range is read headerless, parsed, merged into the
// window, and the offset advanced past the last complete line. A file
// that shrank below the offset is treated as a rotation: the tail state
// is reset and the file reloaded from the start.
func (t *Tailer) Poll() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := os.Stat(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat log file: %w", err)
	}

	size := st.Size()
	switch {
	case size == t.offset:
		return false, nil
	case size < t.offset:
		log.Printf("Log file '%s' shrank from %d to %d bytes, assuming rotation and reloading.", t.path, t.offset, size)
		t.offset = 0
		t.window = nil
		records, err := t.loadLocked()
		if err != nil {
			return false, err
		}
		return len(records) > 0, nil
	}

	chunk, err := t.readRange(t.offset, size)
	if err != nil {
		return false, err
	}

	consumed := completePrefix(chunk)
	if consumed == 0 {
		// Only a partial line so far; leave the offset where it is and
		// pick the bytes up on a later poll.
		return false, nil
	}

	lines := splitLines(chunk[:consumed])
	if t.offset == 0 {
		// Fresh file after rotation: the first line is the header.
		if err := validateHeader(lines[0]); err != nil {
			return false, err
		}
		lines = lines[1:]
	}

	records := t.parseRows(lines)
	t.window = clampWindow(append(t.window, records...), t.cap)
	t.offset += int64(consumed)
	return len(records) > 0, nil
}

// readRange reads the byte range [from, to) with a scoped open/seek/
// read/close cycle. The handle is never held across polls.
func (t *Tailer) readRange(from, to int64) ([]byte, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(from, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek log file: %w", err)
	}

	buf := make([]byte, to-from)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return buf[:n], nil
}

// parseRows parses data lines, skipping malformed rows with a warning.
func (t *Tailer) parseRows(lines []string) []model.Record {
	records := make([]model.Record, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		record, err := model.ParseRow(strings.Split(line, ","))
		if err != nil {
			t.skipped++
			log.Printf("Skipping malformed log row %q: %v", line, err)
			continue
		}
		records = append(records, record)
	}
	return records
}

// Records returns a copy of the buffered window, oldest first.
func (t *Tailer) Records() []model.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.Record(nil), t.window...)
}

// Offset returns the byte length of the fully parsed file prefix.
func (t *Tailer) Offset() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.offset
}

// Skipped returns the number of malformed rows skipped since the last
// full load.
func (t *Tailer) Skipped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipped
}

// Path returns the log file the tailer reads.
func (t *Tailer) Path() string {
	return t.path
}

// completePrefix returns the length of the prefix ending at the last
// newline, so a line still being written is never consumed.
func completePrefix(data []byte) int {
	idx := bytes.LastIndexByte(data, '\n')
	if idx < 0 {
		return 0
	}
	return idx + 1
}

// splitLines splits newline-terminated data into lines, dropping the
// trailing empty element and tolerating CRLF endings.
func splitLines(data []byte) []string {
	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// validateHeader checks that every required column is present in the
// header line.
func validateHeader(header string) error {
	present := make(map[string]bool)
	for _, col := range strings.Split(header, ",") {
		present[strings.TrimSpace(col)] = true
	}

	var missing []string
	for _, col := range model.Columns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// clampWindow re-sorts the window by timestamp and evicts the oldest
// records beyond the capacity. Incremental batches may arrive slightly
// out of order when the producer buffers, so the sort keeps the global
// ascending-timestamp invariant.
func clampWindow(window []model.Record, capacity int) []model.Record {
	model.SortByTimestamp(window)
	if len(window) > capacity {
		window = append([]model.Record(nil), window[len(window)-capacity:]...)
	}
	return window
}
