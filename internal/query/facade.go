// Package query orchestrates the tailer, filter pipeline, and statistics
// engine behind a single facade for one-shot and live-refresh use.
package query

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"CwndScope/internal/filter"
	"CwndScope/internal/model"
	"CwndScope/internal/stats"
	"CwndScope/internal/tailer"
)

// FilterSpec declares the filters to apply to a query, in a form
// friendly to JSON requests and command-line flags. Zero values leave a
// filter inactive. Regular expressions are compiled on application.
type FilterSpec struct {
	PIDs           []int      `json:"pids,omitempty"`
	SAddr          string     `json:"saddr,omitempty"`
	DAddr          string     `json:"daddr,omitempty"`
	SPorts         []int      `json:"sports,omitempty"`
	DPorts         []int      `json:"dports,omitempty"`
	Connection     string     `json:"connection,omitempty"`
	MinCwnd        *int       `json:"min_cwnd,omitempty"`
	MaxCwnd        *int       `json:"max_cwnd,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	TopConnections int        `json:"top_connections,omitempty"`
	TopPIDs        int        `json:"top_pids,omitempty"`
	Recent         string     `json:"recent,omitempty"`
}

// Apply narrows the pipeline with every active filter of the spec. The
// application order is fixed; top-K filters run after the narrowing
// filters so they rank within the already-filtered result.
func (s FilterSpec) Apply(p filter.Pipeline) (filter.Pipeline, error) {
	if len(s.PIDs) > 0 {
		p = p.ByPIDs(s.PIDs...)
	}

	var saddr, daddr *regexp.Regexp
	var err error
	if s.SAddr != "" {
		if saddr, err = regexp.Compile(s.SAddr); err != nil {
			return p, fmt.Errorf("invalid saddr pattern: %w", err)
		}
	}
	if s.DAddr != "" {
		if daddr, err = regexp.Compile(s.DAddr); err != nil {
			return p, fmt.Errorf("invalid daddr pattern: %w", err)
		}
	}
	if saddr != nil || daddr != nil {
		p = p.ByAddress(saddr, daddr)
	}

	if len(s.SPorts) > 0 || len(s.DPorts) > 0 {
		p = p.ByPorts(s.SPorts, s.DPorts)
	}
	if s.Connection != "" {
		pattern, err := regexp.Compile(s.Connection)
		if err != nil {
			return p, fmt.Errorf("invalid connection pattern: %w", err)
		}
		p = p.ByConnection(pattern)
	}
	if s.MinCwnd != nil || s.MaxCwnd != nil {
		p = p.ByCwndRange(s.MinCwnd, s.MaxCwnd)
	}
	if s.StartTime != nil || s.EndTime != nil {
		p = p.ByTimeRange(s.StartTime, s.EndTime)
	}
	if s.TopConnections > 0 {
		p = p.TopConnections(s.TopConnections)
	}
	if s.TopPIDs > 0 {
		p = p.TopPIDs(s.TopPIDs)
	}
	if s.Recent != "" {
		d, err := time.ParseDuration(s.Recent)
		if err != nil {
			return p, fmt.Errorf("invalid recent duration: %w", err)
		}
		p = p.Recent(d)
	}
	return p, nil
}

// Result is one query outcome: the statistics summary plus filter
// provenance and load diagnostics.
type Result struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Stats       stats.Summary  `json:"stats"`
	Filter      filter.Summary `json:"filter"`
	SkippedRows int            `json:"skipped_rows"`
}

// Facade runs queries over one log file. Refresh is serialized: at most
// one poll/recompute is in flight at a time, an overlapping tick is
// skipped rather than interleaved.
type Facade struct {
	tailer *tailer.Tailer
	engine *stats.Engine

	mu         sync.Mutex
	refreshing atomic.Bool
}

// New creates a facade over the given tailer and statistics engine.
func New(t *tailer.Tailer, e *stats.Engine) *Facade {
	return &Facade{tailer: t, engine: e}
}

// Snapshot loads the whole log, applies the requested filters, and
// computes one summary.
func (f *Facade) Snapshot(spec FilterSpec) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.tailer.LoadAll()
	if err != nil {
		return nil, err
	}
	return f.summarize(records, spec)
}

// Refresh polls for new data. When the log grew it recomputes over the
// buffered window and returns an updated result with updated=true; when
// nothing changed, or another refresh is already in flight, it returns
// updated=false without recomputing.
func (f *Facade) Refresh(spec FilterSpec) (*Result, bool, error) {
	if !f.refreshing.CompareAndSwap(false, true) {
		return nil, false, nil
	}
	defer f.refreshing.Store(false)

	f.mu.Lock()
	defer f.mu.Unlock()

	grew, err := f.tailer.Poll()
	if err != nil {
		return nil, false, err
	}
	if !grew {
		return nil, false, nil
	}

	result, err := f.summarize(f.tailer.Records(), spec)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// Watch drives Refresh on a ticker until the context is cancelled,
// invoking the handler for every updated result.
func (f *Facade) Watch(ctx context.Context, interval time.Duration, spec FilterSpec, handler func(*Result)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			result, updated, err := f.Refresh(spec)
			if err != nil {
				return err
			}
			if updated {
				handler(result)
			}
		}
	}
}

// summarize applies the spec and computes statistics over the outcome.
func (f *Facade) summarize(records []model.Record, spec FilterSpec) (*Result, error) {
	pipeline, err := spec.Apply(filter.New(records))
	if err != nil {
		return nil, err
	}

	return &Result{
		GeneratedAt: time.Now().UTC(),
		Stats:       f.engine.Compute(pipeline.Records()),
		Filter:      pipeline.Summary(),
		SkippedRows: f.tailer.Skipped(),
	}, nil
}
