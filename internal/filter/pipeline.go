// Package filter provides a composable, immutable filter pipeline over
// CWND records. Every filter call returns a new Pipeline value; the
// receiver and the underlying source records are never mutated, so one
// base collection can be narrowed multiple ways concurrently.
package filter

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"CwndScope/internal/model"
)

// Applied names one active filter and its parameter, in application order.
type Applied struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Summary describes the effect of the active filters on the source set.
type Summary struct {
	OriginalCount       int       `json:"original_count"`
	FilteredCount       int       `json:"filtered_count"`
	ReductionPercent    float64   `json:"reduction_percent"`
	ActiveFilters       []Applied `json:"active_filters"`
	DistinctConnections int       `json:"distinct_connections"`
	DistinctPIDs        int       `json:"distinct_pids"`
}

// Pipeline narrows an ordered record collection through successive
// filters. The zero value is an empty pipeline.
type Pipeline struct {
	source []model.Record
	result []model.Record
	active []Applied
}

// New creates a pipeline over the given source records. The result set
// starts equal to the source.
func New(source []model.Record) Pipeline {
	src := append([]model.Record(nil), source...)
	return Pipeline{source: src, result: src}
}

// narrow returns a new pipeline whose result keeps only records matching
// the predicate, with the filter recorded in application order.
func (p Pipeline) narrow(name, value string, keep func(model.Record) bool) Pipeline {
	result := make([]model.Record, 0, len(p.result))
	for _, r := range p.result {
		if keep(r) {
			result = append(result, r)
		}
	}

	active := make([]Applied, 0, len(p.active)+1)
	active = append(active, p.active...)
	active = append(active, Applied{Name: name, Value: value})

	return Pipeline{source: p.source, result: result, active: active}
}

// ByPIDs keeps records whose PID is in the given set.
func (p Pipeline) ByPIDs(pids ...int) Pipeline {
	set := make(map[int]bool, len(pids))
	for _, pid := range pids {
		set[pid] = true
	}
	return p.narrow("pid", fmt.Sprintf("%v", pids), func(r model.Record) bool {
		return set[r.PID]
	})
}

// ByAddress keeps records whose source and/or destination address
// matches the given pattern. A nil pattern leaves that side unfiltered.
func (p Pipeline) ByAddress(saddr, daddr *regexp.Regexp) Pipeline {
	if saddr != nil {
		p = p.narrow("saddr", saddr.String(), func(r model.Record) bool {
			return saddr.MatchString(r.SAddr)
		})
	}
	if daddr != nil {
		p = p.narrow("daddr", daddr.String(), func(r model.Record) bool {
			return daddr.MatchString(r.DAddr)
		})
	}
	return p
}

// ByPorts keeps records whose source and/or destination port is in the
// corresponding set. An empty set leaves that side unfiltered.
func (p Pipeline) ByPorts(sports, dports []int) Pipeline {
	if len(sports) > 0 {
		set := make(map[int]bool, len(sports))
		for _, port := range sports {
			set[port] = true
		}
		p = p.narrow("sport", fmt.Sprintf("%v", sports), func(r model.Record) bool {
			return set[r.SPort]
		})
	}
	if len(dports) > 0 {
		set := make(map[int]bool, len(dports))
		for _, port := range dports {
			set[port] = true
		}
		p = p.narrow("dport", fmt.Sprintf("%v", dports), func(r model.Record) bool {
			return set[r.DPort]
		})
	}
	return p
}

// ByConnection keeps records whose derived connection key matches the
// given pattern.
func (p Pipeline) ByConnection(pattern *regexp.Regexp) Pipeline {
	return p.narrow("connection", pattern.String(), func(r model.Record) bool {
		return pattern.MatchString(r.Connection)
	})
}

// ByCwndRange keeps records whose cwnd lies within the inclusive range.
// Either bound may be nil.
func (p Pipeline) ByCwndRange(min, max *int) Pipeline {
	if min != nil {
		v := *min
		p = p.narrow("min_cwnd", fmt.Sprintf("%d", v), func(r model.Record) bool {
			return r.Cwnd >= v
		})
	}
	if max != nil {
		v := *max
		p = p.narrow("max_cwnd", fmt.Sprintf("%d", v), func(r model.Record) bool {
			return r.Cwnd <= v
		})
	}
	return p
}

// ByTimeRange keeps records whose timestamp lies within the inclusive
// range. Either bound may be nil.
func (p Pipeline) ByTimeRange(start, end *time.Time) Pipeline {
	if start != nil {
		v := *start
		p = p.narrow("start_time", v.Format(time.RFC3339Nano), func(r model.Record) bool {
			return !r.Timestamp.Before(v)
		})
	}
	if end != nil {
		v := *end
		p = p.narrow("end_time", v.Format(time.RFC3339Nano), func(r model.Record) bool {
			return !r.Timestamp.After(v)
		})
	}
	return p
}

// TopConnections keeps only records belonging to the K most frequent
// connections in the current result. Frequency ties keep the connection
// seen first.
func (p Pipeline) TopConnections(k int) Pipeline {
	keep := topKeys(p.result, k, func(r model.Record) string { return r.Connection })
	return p.narrow("top_connections", fmt.Sprintf("%d", k), func(r model.Record) bool {
		return keep[r.Connection]
	})
}

// TopPIDs keeps only records belonging to the K most frequent PIDs in
// the current result. Frequency ties keep the PID seen first.
func (p Pipeline) TopPIDs(k int) Pipeline {
	keep := topKeys(p.result, k, func(r model.Record) string { return fmt.Sprintf("%d", r.PID) })
	return p.narrow("top_pids", fmt.Sprintf("%d", k), func(r model.Record) bool {
		return keep[fmt.Sprintf("%d", r.PID)]
	})
}

// Recent keeps records with timestamp >= max(timestamp in result) - d.
// A pipeline with an empty result is returned unchanged.
func (p Pipeline) Recent(d time.Duration) Pipeline {
	if len(p.result) == 0 {
		return p
	}
	latest := p.result[0].Timestamp
	for _, r := range p.result[1:] {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	cutoff := latest.Add(-d)
	return p.narrow("recent", d.String(), func(r model.Record) bool {
		return !r.Timestamp.Before(cutoff)
	})
}

// Reset discards the active filters and restores the result to the
// source set.
func (p Pipeline) Reset() Pipeline {
	return Pipeline{source: p.source, result: p.source}
}

// Records returns a copy of the current result set.
func (p Pipeline) Records() []model.Record {
	return append([]model.Record(nil), p.result...)
}

// Source returns a copy of the unfiltered source set.
func (p Pipeline) Source() []model.Record {
	return append([]model.Record(nil), p.source...)
}

// Active returns the filters applied so far, in application order.
func (p Pipeline) Active() []Applied {
	return append([]Applied(nil), p.active...)
}

// Summary reports counts and provenance for the current result.
func (p Pipeline) Summary() Summary {
	s := Summary{
		OriginalCount: len(p.source),
		FilteredCount: len(p.result),
		ActiveFilters: append([]Applied(nil), p.active...),
	}
	if s.ActiveFilters == nil {
		s.ActiveFilters = []Applied{}
	}
	if s.OriginalCount > 0 {
		s.ReductionPercent = (1 - float64(s.FilteredCount)/float64(s.OriginalCount)) * 100
	}

	connections := make(map[string]bool)
	pids := make(map[int]bool)
	for _, r := range p.result {
		connections[r.Connection] = true
		pids[r.PID] = true
	}
	s.DistinctConnections = len(connections)
	s.DistinctPIDs = len(pids)
	return s
}

// topKeys returns the K most frequent keys in the records, ties broken
// by first-seen order.
func topKeys(records []model.Record, k int, keyOf func(model.Record) string) map[string]bool {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string
	for i, r := range records {
		key := keyOf(r)
		if _, ok := counts[key]; !ok {
			firstSeen[key] = i
			order = append(order, key)
		}
		counts[key]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	if k < 0 {
		k = 0
	}
	if k > len(order) {
		k = len(order)
	}

	keep := make(map[string]bool, k)
	for _, key := range order[:k] {
		keep[key] = true
	}
	return keep
}
