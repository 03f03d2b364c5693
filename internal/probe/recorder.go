package probe

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"CwndScope/internal/model"
)

// Recorder appends CWND records to a log file, writing the header only
// when the file is freshly created. Existing bytes are never rewritten,
// which keeps the append-only producer contract the tailer relies on.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// NewRecorder opens (or creates) the log file for appending. A new file
// gets the CSV header as its first line.
func NewRecorder(path string) (*Recorder, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	r := &Recorder{file: file, w: bufio.NewWriter(file)}
	if st.Size() == 0 {
		if _, err := r.w.WriteString(model.Header + "\n"); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write log header: %w", err)
		}
		if err := r.w.Flush(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to flush log header: %w", err)
		}
	}
	return r, nil
}

// Write appends a batch of records, one line each, and flushes so the
// tailer sees only complete lines. Implements model.Writer.
func (r *Recorder) Write(records []model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range records {
		if _, err := r.w.WriteString(model.FormatRow(record) + "\n"); err != nil {
			return fmt.Errorf("failed to append record: %w", err)
		}
	}
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.w.Flush(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to flush log file: %w", err)
	}
	return r.file.Close()
}
