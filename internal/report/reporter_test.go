package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"CwndScope/internal/filter"
	"CwndScope/internal/query"
	"CwndScope/internal/stats"
)

func sampleResult() *query.Result {
	return &query.Result{
		GeneratedAt: time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC),
		Stats: stats.Summary{
			General: stats.General{
				TotalRecords:      15,
				UniqueConnections: 2,
				UniquePIDs:        2,
				Start:             time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
				End:               time.Date(2025, 1, 2, 10, 5, 0, 0, time.UTC),
				DurationSeconds:   300,
			},
			Distribution: stats.Distribution{Mean: 12.5, Median: 12, Std: 3.1, Min: 5, Max: 20},
		},
		Filter: filter.Summary{
			OriginalCount:    20,
			FilteredCount:    15,
			ReductionPercent: 25,
			ActiveFilters:    []filter.Applied{{Name: "pid", Value: "[100]"}},
		},
	}
}

func TestRenderText(t *testing.T) {
	out, err := Render(sampleResult(), FormatText)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for _, want := range []string{
		"TCP CWND ANALYSIS REPORT",
		"Total Records: 15",
		"Mean CWND: 12.50 segments",
		"Duration: 5.0 minutes",
		"pid = [100]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text report is missing %q", want)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	out, err := Render(sampleResult(), FormatJSON)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var decoded query.Result
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("JSON report does not decode: %v", err)
	}
	if decoded.Stats.General.TotalRecords != 15 {
		t.Errorf("Round-tripped total records = %d, want 15", decoded.Stats.General.TotalRecords)
	}
}

func TestRenderHTML(t *testing.T) {
	out, err := Render(sampleResult(), FormatHTML)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "<h1>TCP CWND Analysis Report</h1>") {
		t.Errorf("HTML report is missing the title")
	}
	if !strings.Contains(out, "Active Filters") {
		t.Errorf("HTML report is missing the filter section")
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := Render(sampleResult(), Format("yaml")); err == nil {
		t.Fatalf("Expected an error for an unknown format")
	}
}

func TestSave(t *testing.T) {
	dir, err := os.MkdirTemp("", "report_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "report.txt")
	if err := Save(sampleResult(), FormatText, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved report: %v", err)
	}
	if !strings.Contains(string(data), "TCP CWND ANALYSIS REPORT") {
		t.Errorf("Saved report has unexpected content")
	}
}
