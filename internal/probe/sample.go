// Package probe carries CWND samples from the kernel-side collector to
// the recorder over NATS, and appends them to the session log. The
// tracepoint probe itself is an external collaborator; this package is
// the transport and persistence side of its contract.
package probe

import (
	"time"

	"CwndScope/internal/model"
)

// Sample is the wire form of one CWND observation, JSON-encoded on the
// NATS subject.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	PID       int       `json:"pid"`
	SAddr     string    `json:"saddr"`
	SPort     int       `json:"sport"`
	DAddr     string    `json:"daddr"`
	DPort     int       `json:"dport"`
	Cwnd      int       `json:"cwnd"`
}

// FromRecord converts an internal record to its wire form.
func FromRecord(r model.Record) Sample {
	return Sample{
		Timestamp: r.Timestamp,
		PID:       r.PID,
		SAddr:     r.SAddr,
		SPort:     r.SPort,
		DAddr:     r.DAddr,
		DPort:     r.DPort,
		Cwnd:      r.Cwnd,
	}
}

// Record converts the wire form to an internal record, deriving the
// connection key.
func (s Sample) Record() model.Record {
	r := model.Record{
		Timestamp: s.Timestamp,
		PID:       s.PID,
		SAddr:     s.SAddr,
		SPort:     s.SPort,
		DAddr:     s.DAddr,
		DPort:     s.DPort,
		Cwnd:      s.Cwnd,
	}
	r.Connection = r.Key()
	return r
}
