package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Columns is the fixed column order of the CWND log format. The header row
// appears once, when the file is freshly created.
var Columns = []string{"timestamp", "pid", "saddr", "sport", "daddr", "dport", "cwnd"}

// Header is the literal header line of a CWND log file.
var Header = strings.Join(Columns, ",")

// timestampLayouts are the accepted textual timestamp forms, tried in
// order. The probe writes ISO-8601; older captures carry no zone suffix
// and are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses one timestamp field of a log row.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseRow converts one CSV data row into a Record, deriving the
// connection key. The fields must follow the order of Columns.
func ParseRow(fields []string) (Record, error) {
	if len(fields) != len(Columns) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(Columns), len(fields))
	}

	ts, err := ParseTimestamp(fields[0])
	if err != nil {
		return Record{}, err
	}
	pid, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, fmt.Errorf("invalid pid %q: %w", fields[1], err)
	}
	if pid < 0 {
		return Record{}, fmt.Errorf("negative pid %d", pid)
	}
	sport, err := strconv.Atoi(fields[3])
	if err != nil {
		return Record{}, fmt.Errorf("invalid sport %q: %w", fields[3], err)
	}
	dport, err := strconv.Atoi(fields[5])
	if err != nil {
		return Record{}, fmt.Errorf("invalid dport %q: %w", fields[5], err)
	}
	cwnd, err := strconv.Atoi(fields[6])
	if err != nil {
		return Record{}, fmt.Errorf("invalid cwnd %q: %w", fields[6], err)
	}
	if cwnd < 0 {
		return Record{}, fmt.Errorf("negative cwnd %d", cwnd)
	}

	r := Record{
		Timestamp: ts,
		PID:       pid,
		SAddr:     fields[2],
		SPort:     sport,
		DAddr:     fields[4],
		DPort:     dport,
		Cwnd:      cwnd,
	}
	r.Connection = r.Key()
	return r, nil
}

// FormatRow renders a record as one CSV data line, without a trailing
// newline. The derived connection key is not written.
func FormatRow(r Record) string {
	return fmt.Sprintf("%s,%d,%s,%d,%s,%d,%d",
		r.Timestamp.Format(time.RFC3339Nano),
		r.PID, r.SAddr, r.SPort, r.DAddr, r.DPort, r.Cwnd)
}
