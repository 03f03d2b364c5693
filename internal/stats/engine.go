// Package stats computes distributional, per-entity, temporal, and
// dynamics summaries over CWND records. Every aggregate degrades to a
// zero-valued default on empty input; nothing here returns an error.
package stats

import (
	"sort"
	"time"

	"CwndScope/internal/model"
)

// DefaultBucketWidth is the temporal bucket width when none is
// configured.
const DefaultBucketWidth = time.Minute

// DefaultTopN bounds the per-entity activity rankings.
const DefaultTopN = 10

// Engine computes summaries with a fixed bucket width and ranking depth.
type Engine struct {
	bucketWidth time.Duration
	topN        int
}

// New creates an engine. Non-positive arguments fall back to defaults.
func New(bucketWidth time.Duration, topN int) *Engine {
	if bucketWidth <= 0 {
		bucketWidth = DefaultBucketWidth
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Engine{bucketWidth: bucketWidth, topN: topN}
}

// Compute derives the full summary for the given records. The input is
// not modified; ordering requirements are enforced on an internal copy.
func (e *Engine) Compute(records []model.Record) Summary {
	sorted := append([]model.Record(nil), records...)
	model.SortByTimestamp(sorted)

	return Summary{
		General:      e.general(sorted),
		Distribution: e.distribution(sorted),
		Connections:  e.connections(sorted),
		Processes:    e.processes(sorted),
		Temporal:     e.temporal(sorted),
		Dynamics:     e.dynamics(sorted),
		Efficiency:   e.efficiency(sorted),
	}
}

func (e *Engine) general(records []model.Record) General {
	g := General{TotalRecords: len(records)}
	if len(records) == 0 {
		return g
	}

	connections := make(map[string]bool)
	pids := make(map[int]bool)
	for _, r := range records {
		connections[r.Connection] = true
		pids[r.PID] = true
	}
	g.UniqueConnections = len(connections)
	g.UniquePIDs = len(pids)
	g.Start = records[0].Timestamp
	g.End = records[len(records)-1].Timestamp
	g.DurationSeconds = g.End.Sub(g.Start).Seconds()
	return g
}

func (e *Engine) distribution(records []model.Record) Distribution {
	if len(records) == 0 {
		return Distribution{}
	}

	values := make([]float64, len(records))
	minCwnd, maxCwnd := records[0].Cwnd, records[0].Cwnd
	for i, r := range records {
		values[i] = float64(r.Cwnd)
		if r.Cwnd < minCwnd {
			minCwnd = r.Cwnd
		}
		if r.Cwnd > maxCwnd {
			maxCwnd = r.Cwnd
		}
	}
	sort.Float64s(values)

	return Distribution{
		Mean:   mean(values),
		Median: percentile(values, 50),
		Std:    sampleStd(values),
		Min:    minCwnd,
		Max:    maxCwnd,
		Percentiles: Percentiles{
			P25: percentile(values, 25),
			P75: percentile(values, 75),
			P90: percentile(values, 90),
			P95: percentile(values, 95),
		},
	}
}

func (e *Engine) connections(records []model.Record) Connections {
	c := Connections{Top: []ConnectionActivity{}}
	if len(records) == 0 {
		return c
	}

	groups := groupByConnection(records)
	total := len(records)

	for _, key := range rankKeys(records, e.topN) {
		group := groups[key]
		values := cwndValues(group)
		sort.Float64s(values)
		c.Top = append(c.Top, ConnectionActivity{
			Connection:   key,
			Records:      len(group),
			SharePercent: float64(len(group)) / float64(total) * 100,
			MeanCwnd:     mean(values),
			MaxCwnd:      int(values[len(values)-1]),
			MinCwnd:      int(values[0]),
			StdCwnd:      sampleStd(values),
		})
	}

	// Extremes are taken over every connection, ties broken by ascending
	// lexical key.
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := cwndValues(groups[key])
		sort.Float64s(values)
		m := mean(values)
		if c.HighestMeanCwnd.Key == "" || m > c.HighestMeanCwnd.Value {
			c.HighestMeanCwnd = KeyStat{Key: key, Value: m}
		}
		if maxV := values[len(values)-1]; c.HighestMaxCwnd.Key == "" || maxV > c.HighestMaxCwnd.Value {
			c.HighestMaxCwnd = KeyStat{Key: key, Value: maxV}
		}
		if s := sampleStd(values); c.HighestStdCwnd.Key == "" || s > c.HighestStdCwnd.Value {
			c.HighestStdCwnd = KeyStat{Key: key, Value: s}
		}
	}
	return c
}

func (e *Engine) processes(records []model.Record) Processes {
	p := Processes{Top: []ProcessActivity{}}
	if len(records) == 0 {
		return p
	}

	groups := make(map[int][]model.Record)
	var order []int
	for _, r := range records {
		if _, ok := groups[r.PID]; !ok {
			order = append(order, r.PID)
		}
		groups[r.PID] = append(groups[r.PID], r)
	}

	ranked := append([]int(nil), order...)
	firstSeen := make(map[int]int, len(order))
	for i, pid := range order {
		firstSeen[pid] = i
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if len(groups[ranked[i]]) != len(groups[ranked[j]]) {
			return len(groups[ranked[i]]) > len(groups[ranked[j]])
		}
		return firstSeen[ranked[i]] < firstSeen[ranked[j]]
	})
	if len(ranked) > e.topN {
		ranked = ranked[:e.topN]
	}

	total := len(records)
	for _, pid := range ranked {
		group := groups[pid]
		values := cwndValues(group)
		sort.Float64s(values)
		p.Top = append(p.Top, ProcessActivity{
			PID:          pid,
			Records:      len(group),
			SharePercent: float64(len(group)) / float64(total) * 100,
			MeanCwnd:     mean(values),
			MaxCwnd:      int(values[len(values)-1]),
		})
	}

	// Extremes over every PID, ties broken by ascending PID.
	pids := make([]int, 0, len(groups))
	for pid := range groups {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	first := true
	for _, pid := range pids {
		values := cwndValues(groups[pid])
		m := mean(values)
		if first || m > p.HighestMeanCwnd.Value {
			p.HighestMeanCwnd = PIDStat{PID: pid, Value: m}
		}
		if first || float64(len(groups[pid])) > p.MostRecords.Value {
			p.MostRecords = PIDStat{PID: pid, Value: float64(len(groups[pid]))}
		}
		first = false
	}
	return p
}

func (e *Engine) temporal(records []model.Record) Temporal {
	t := Temporal{
		BucketWidthSeconds: e.bucketWidth.Seconds(),
		Buckets:            []Bucket{},
	}
	if len(records) == 0 {
		return t
	}

	// Hour-of-day histogram, UTC.
	for _, r := range records {
		t.ByHour[r.Timestamp.UTC().Hour()]++
	}
	for hour, count := range t.ByHour {
		if count > t.ByHour[t.MostActiveHour] {
			t.MostActiveHour = hour
		}
	}

	type acc struct {
		count int
		sum   float64
	}
	buckets := make(map[time.Time]*acc)
	var starts []time.Time
	for _, r := range records {
		start := r.Timestamp.UTC().Truncate(e.bucketWidth)
		a, ok := buckets[start]
		if !ok {
			a = &acc{}
			buckets[start] = a
			starts = append(starts, start)
		}
		a.count++
		a.sum += float64(r.Cwnd)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	totalRecords := 0
	for _, start := range starts {
		a := buckets[start]
		b := Bucket{Start: start, Records: a.count, MeanCwnd: a.sum / float64(a.count)}
		t.Buckets = append(t.Buckets, b)
		totalRecords += a.count
		if b.Records > t.PeakBucket.Records {
			t.PeakBucket = b
		}
	}
	t.MeanRecordsPerBucket = float64(totalRecords) / float64(len(starts))
	return t
}

func (e *Engine) dynamics(records []model.Record) Dynamics {
	d := Dynamics{}
	groups := groupByConnection(records)

	var diffs []int
	for _, group := range groups {
		// Connections with fewer than two samples contribute no
		// differences.
		for i := 1; i < len(group); i++ {
			diffs = append(diffs, group[i].Cwnd-group[i-1].Cwnd)
		}
	}
	if len(diffs) == 0 {
		return d
	}

	sum := 0
	d.LargestIncrease = diffs[0]
	d.LargestDecrease = diffs[0]
	for _, diff := range diffs {
		sum += diff
		if diff > 0 {
			d.Increases++
		}
		if diff < 0 {
			d.Decreases++
		}
		if diff > d.LargestIncrease {
			d.LargestIncrease = diff
		}
		if diff < d.LargestDecrease {
			d.LargestDecrease = diff
		}
	}
	d.MeanChange = float64(sum) / float64(len(diffs))
	return d
}

func (e *Engine) efficiency(records []model.Record) Efficiency {
	eff := Efficiency{}
	if len(records) == 0 {
		return eff
	}

	groups := groupByConnection(records)
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var durationSum, recordSum float64
	for _, key := range keys {
		group := groups[key]
		durationSum += group[len(group)-1].Timestamp.Sub(group[0].Timestamp).Seconds()
		recordSum += float64(len(group))

		m := mean(cwndValues(group))
		if eff.HighestMeanCwnd.Key == "" || m > eff.HighestMeanCwnd.Value {
			eff.HighestMeanCwnd = KeyStat{Key: key, Value: m}
		}
	}
	eff.AvgDurationSeconds = durationSum / float64(len(keys))
	eff.AvgRecordsPerConnection = recordSum / float64(len(keys))
	return eff
}

// groupByConnection splits records by connection key, preserving the
// input (timestamp) order within each group.
func groupByConnection(records []model.Record) map[string][]model.Record {
	groups := make(map[string][]model.Record)
	for _, r := range records {
		groups[r.Connection] = append(groups[r.Connection], r)
	}
	return groups
}

// rankKeys returns up to topN connection keys ordered by record count
// descending, ties broken by first-seen order.
func rankKeys(records []model.Record, topN int) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string
	for i, r := range records {
		if _, ok := counts[r.Connection]; !ok {
			firstSeen[r.Connection] = i
			order = append(order, r.Connection)
		}
		counts[r.Connection]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}
	return order
}

func cwndValues(records []model.Record) []float64 {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = float64(r.Cwnd)
	}
	return values
}
