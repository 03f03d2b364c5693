package model

import (
	"fmt"
	"sort"
	"time"
)

// Record is a single CWND observation emitted by the kernel probe.
// A Record is immutable once read; transformations build new slices and
// never modify a Record in place.
type Record struct {
	Timestamp time.Time
	PID       int
	SAddr     string
	SPort     int
	DAddr     string
	DPort     int
	Cwnd      int

	// Connection is derived from the address/port tuple on load. It is
	// never persisted in the log.
	Connection string
}

// ConnectionKey builds the derived connection identifier for a 4-tuple.
// It is a pure function: identical tuples always yield identical keys.
func ConnectionKey(saddr string, sport int, daddr string, dport int) string {
	return fmt.Sprintf("%s:%d -> %s:%d", saddr, sport, daddr, dport)
}

// Key returns the connection key for the record's own tuple.
func (r Record) Key() string {
	return ConnectionKey(r.SAddr, r.SPort, r.DAddr, r.DPort)
}

// SortByTimestamp stable-sorts records ascending by timestamp in place.
// Ties keep their existing order, so file order is preserved across
// rapid samples with equal timestamps.
func SortByTimestamp(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}
