// Package report renders query results as text, JSON, or HTML. It is a
// thin presentation layer: everything it prints comes from the
// statistics summary and the filter provenance.
package report

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"CwndScope/internal/query"
)

// Format selects the report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// Render formats a query result.
func Render(result *query.Result, format Format) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode report to json: %w", err)
		}
		return string(data), nil
	case FormatHTML:
		return renderHTML(result), nil
	case FormatText, "":
		return renderText(result), nil
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

// Save renders a report and writes it to a file.
func Save(result *query.Result, format Format, path string) error {
	content, err := Render(result, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func renderText(result *query.Result) string {
	s := result.Stats
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "TCP CWND ANALYSIS REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Generated: %s\n\n", result.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(&b, "GENERAL STATISTICS:")
	fmt.Fprintln(&b, strings.Repeat("-", 20))
	fmt.Fprintf(&b, "Total Records: %d\n", s.General.TotalRecords)
	fmt.Fprintf(&b, "Unique Connections: %d\n", s.General.UniqueConnections)
	fmt.Fprintf(&b, "Unique PIDs: %d\n", s.General.UniquePIDs)
	if s.General.TotalRecords > 0 {
		fmt.Fprintf(&b, "Time Range: %s to %s\n",
			s.General.Start.Format(time.RFC3339), s.General.End.Format(time.RFC3339))
		fmt.Fprintf(&b, "Duration: %.1f minutes\n", s.General.DurationSeconds/60)
	}
	if result.SkippedRows > 0 {
		fmt.Fprintf(&b, "Skipped Rows: %d\n", result.SkippedRows)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "CWND ANALYSIS:")
	fmt.Fprintln(&b, strings.Repeat("-", 15))
	fmt.Fprintf(&b, "Mean CWND: %.2f segments\n", s.Distribution.Mean)
	fmt.Fprintf(&b, "Median CWND: %.2f segments\n", s.Distribution.Median)
	fmt.Fprintf(&b, "Standard Deviation: %.2f\n", s.Distribution.Std)
	fmt.Fprintf(&b, "Range: %d - %d segments\n", s.Distribution.Min, s.Distribution.Max)
	fmt.Fprintf(&b, "95th Percentile: %.2f segments\n\n", s.Distribution.Percentiles.P95)

	fmt.Fprintln(&b, "CONNECTION ANALYSIS:")
	fmt.Fprintln(&b, strings.Repeat("-", 20))
	if len(s.Connections.Top) > 0 {
		top := s.Connections.Top[0]
		fmt.Fprintf(&b, "Most Active Connection: %s (%d records, %.1f%% of total)\n",
			top.Connection, top.Records, top.SharePercent)
	}
	fmt.Fprintf(&b, "Highest Avg CWND: %.2f segments (%s)\n",
		s.Connections.HighestMeanCwnd.Value, s.Connections.HighestMeanCwnd.Key)
	fmt.Fprintf(&b, "Highest Max CWND: %.0f segments (%s)\n\n",
		s.Connections.HighestMaxCwnd.Value, s.Connections.HighestMaxCwnd.Key)

	fmt.Fprintln(&b, "PERFORMANCE METRICS:")
	fmt.Fprintln(&b, strings.Repeat("-", 20))
	fmt.Fprintf(&b, "CWND Increases: %d\n", s.Dynamics.Increases)
	fmt.Fprintf(&b, "CWND Decreases: %d\n", s.Dynamics.Decreases)
	fmt.Fprintf(&b, "Largest CWND Increase: %d segments\n", s.Dynamics.LargestIncrease)
	fmt.Fprintf(&b, "Largest CWND Decrease: %d segments\n", s.Dynamics.LargestDecrease)
	fmt.Fprintf(&b, "Avg Connection Duration: %.1f seconds\n", s.Efficiency.AvgDurationSeconds)
	fmt.Fprintf(&b, "Avg Records per Connection: %.1f\n\n", s.Efficiency.AvgRecordsPerConnection)

	if len(result.Filter.ActiveFilters) > 0 {
		fmt.Fprintln(&b, "ACTIVE FILTERS:")
		fmt.Fprintln(&b, strings.Repeat("-", 15))
		for _, applied := range result.Filter.ActiveFilters {
			fmt.Fprintf(&b, "%s = %s\n", applied.Name, applied.Value)
		}
		fmt.Fprintf(&b, "Reduction: %.2f%% (%d of %d records kept)\n\n",
			result.Filter.ReductionPercent, result.Filter.FilteredCount, result.Filter.OriginalCount)
	}

	fmt.Fprintln(&b, rule)
	return b.String()
}

func renderHTML(result *query.Result) string {
	s := result.Stats
	var b strings.Builder

	fmt.Fprintln(&b, "<!DOCTYPE html>")
	fmt.Fprintln(&b, "<html>")
	fmt.Fprintln(&b, "<head>")
	fmt.Fprintln(&b, "<title>TCP CWND Analysis Report</title>")
	fmt.Fprintln(&b, "<style>")
	fmt.Fprintln(&b, "body { font-family: Arial, sans-serif; margin: 20px; }")
	fmt.Fprintln(&b, ".header { background-color: #f0f8ff; padding: 20px; border-radius: 8px; }")
	fmt.Fprintln(&b, ".section { margin: 20px 0; padding: 15px; border: 1px solid #ddd; border-radius: 8px; }")
	fmt.Fprintln(&b, ".value { font-weight: bold; color: #2c5aa0; }")
	fmt.Fprintln(&b, "</style>")
	fmt.Fprintln(&b, "</head>")
	fmt.Fprintln(&b, "<body>")

	fmt.Fprintln(&b, `<div class="header">`)
	fmt.Fprintln(&b, "<h1>TCP CWND Analysis Report</h1>")
	fmt.Fprintf(&b, "<p>Generated: %s</p>\n", result.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b, "</div>")

	fmt.Fprintln(&b, `<div class="section">`)
	fmt.Fprintln(&b, "<h2>General Statistics</h2>")
	fmt.Fprintf(&b, `<div>Total Records: <span class="value">%d</span></div>`+"\n", s.General.TotalRecords)
	fmt.Fprintf(&b, `<div>Unique Connections: <span class="value">%d</span></div>`+"\n", s.General.UniqueConnections)
	fmt.Fprintf(&b, `<div>Unique PIDs: <span class="value">%d</span></div>`+"\n", s.General.UniquePIDs)
	fmt.Fprintf(&b, `<div>Duration: <span class="value">%.1f minutes</span></div>`+"\n", s.General.DurationSeconds/60)
	fmt.Fprintln(&b, "</div>")

	fmt.Fprintln(&b, `<div class="section">`)
	fmt.Fprintln(&b, "<h2>CWND Analysis</h2>")
	fmt.Fprintf(&b, `<div>Mean CWND: <span class="value">%.2f segments</span></div>`+"\n", s.Distribution.Mean)
	fmt.Fprintf(&b, `<div>Median CWND: <span class="value">%.2f segments</span></div>`+"\n", s.Distribution.Median)
	fmt.Fprintf(&b, `<div>Range: <span class="value">%d - %d segments</span></div>`+"\n", s.Distribution.Min, s.Distribution.Max)
	fmt.Fprintf(&b, `<div>95th Percentile: <span class="value">%.2f segments</span></div>`+"\n", s.Distribution.Percentiles.P95)
	fmt.Fprintln(&b, "</div>")

	fmt.Fprintln(&b, `<div class="section">`)
	fmt.Fprintln(&b, "<h2>Performance Metrics</h2>")
	fmt.Fprintf(&b, `<div>CWND Increases: <span class="value">%d</span></div>`+"\n", s.Dynamics.Increases)
	fmt.Fprintf(&b, `<div>CWND Decreases: <span class="value">%d</span></div>`+"\n", s.Dynamics.Decreases)
	fmt.Fprintf(&b, `<div>Avg Connection Duration: <span class="value">%.1f seconds</span></div>`+"\n", s.Efficiency.AvgDurationSeconds)
	fmt.Fprintln(&b, "</div>")

	if len(result.Filter.ActiveFilters) > 0 {
		fmt.Fprintln(&b, `<div class="section">`)
		fmt.Fprintln(&b, "<h2>Active Filters</h2>")
		for _, applied := range result.Filter.ActiveFilters {
			fmt.Fprintf(&b, `<div>%s = <span class="value">%s</span></div>`+"\n",
				html.EscapeString(applied.Name), html.EscapeString(applied.Value))
		}
		fmt.Fprintln(&b, "</div>")
	}

	fmt.Fprintln(&b, "</body>")
	fmt.Fprintln(&b, "</html>")
	return b.String()
}
