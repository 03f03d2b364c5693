package stats

import (
	"math"
	"testing"
	"time"

	"CwndScope/internal/model"
)

func makeRecord(ts time.Time, pid int, saddr string, sport int, daddr string, dport, cwnd int) model.Record {
	r := model.Record{
		Timestamp: ts,
		PID:       pid,
		SAddr:     saddr,
		SPort:     sport,
		DAddr:     daddr,
		DPort:     dport,
		Cwnd:      cwnd,
	}
	r.Connection = r.Key()
	return r
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeEmptyInput(t *testing.T) {
	engine := New(0, 0)
	s := engine.Compute(nil)

	if s.General.TotalRecords != 0 || s.General.DurationSeconds != 0 {
		t.Errorf("General stats not zeroed: %+v", s.General)
	}
	if s.Distribution.Mean != 0 || s.Distribution.Std != 0 || s.Distribution.Max != 0 {
		t.Errorf("Distribution not zeroed: %+v", s.Distribution)
	}
	if len(s.Connections.Top) != 0 || s.Connections.HighestMeanCwnd.Key != "" {
		t.Errorf("Connections not zeroed: %+v", s.Connections)
	}
	if len(s.Processes.Top) != 0 {
		t.Errorf("Processes not zeroed: %+v", s.Processes)
	}
	if len(s.Temporal.Buckets) != 0 || s.Temporal.MeanRecordsPerBucket != 0 {
		t.Errorf("Temporal not zeroed: %+v", s.Temporal)
	}
	if s.Dynamics.Increases != 0 || s.Dynamics.LargestDecrease != 0 {
		t.Errorf("Dynamics not zeroed: %+v", s.Dynamics)
	}
	if s.Efficiency.AvgRecordsPerConnection != 0 {
		t.Errorf("Efficiency not zeroed: %+v", s.Efficiency)
	}
}

func TestGeneral(t *testing.T) {
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	records := []model.Record{
		makeRecord(base, 100, "10.0.0.1", 4000, "10.0.0.2", 80, 10),
		makeRecord(base.Add(90*time.Second), 200, "10.0.0.3", 5000, "10.0.0.4", 443, 7),
	}

	s := New(0, 0).Compute(records)
	if s.General.TotalRecords != 2 {
		t.Errorf("Expected 2 records, got %d", s.General.TotalRecords)
	}
	if s.General.UniqueConnections != 2 || s.General.UniquePIDs != 2 {
		t.Errorf("Unexpected distinct counts: %+v", s.General)
	}
	if !almost(s.General.DurationSeconds, 90) {
		t.Errorf("Expected 90s span, got %f", s.General.DurationSeconds)
	}
}

func TestPercentileWorkedExample(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(values, 25); !almost(got, 3.25) {
		t.Errorf("Expected p25 = 3.25, got %f", got)
	}
	if got := percentile(values, 95); !almost(got, 9.55) {
		t.Errorf("Expected p95 = 9.55, got %f", got)
	}
	if got := percentile(values, 50); !almost(got, 5.5) {
		t.Errorf("Expected median 5.5, got %f", got)
	}
}

func TestDistribution(t *testing.T) {
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	var records []model.Record
	for i := 1; i <= 10; i++ {
		records = append(records, makeRecord(base.Add(time.Duration(i)*time.Second), 100, "10.0.0.1", 4000, "10.0.0.2", 80, i))
	}

	s := New(0, 0).Compute(records)
	d := s.Distribution
	if !almost(d.Mean, 5.5) {
		t.Errorf("Expected mean 5.5, got %f", d.Mean)
	}
	if d.Min != 1 || d.Max != 10 {
		t.Errorf("Expected range [1, 10], got [%d, %d]", d.Min, d.Max)
	}
	if !almost(d.Percentiles.P25, 3.25) || !almost(d.Percentiles.P95, 9.55) {
		t.Errorf("Unexpected percentiles: %+v", d.Percentiles)
	}
	// Sample std of 1..10 is sqrt(110/12) ~= 3.0276.
	if math.Abs(d.Std-3.0276503540974917) > 1e-9 {
		t.Errorf("Expected sample std ~3.0277, got %f", d.Std)
	}
}

func TestDynamicsWorkedExample(t *testing.T) {
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	records := []model.Record{
		makeRecord(base, 100, "10.0.0.1", 4000, "10.0.0.2", 80, 5),
		makeRecord(base.Add(time.Second), 100, "10.0.0.1", 4000, "10.0.0.2", 80, 9),
		makeRecord(base.Add(2*time.Second), 100, "10.0.0.1", 4000, "10.0.0.2", 80, 2),
	}

	d := New(0, 0).Compute(records).Dynamics
	if !almost(d.MeanChange, -1.5) {
		t.Errorf("Expected mean change -1.5, got %f", d.MeanChange)
	}
	if d.Increases != 1 || d.Decreases != 1 {
		t.Errorf("Expected 1 increase and 1 decrease, got %d/%d", d.Increases, d.Decreases)
	}
	if d.LargestIncrease != 4 {
		t.Errorf("Expected largest increase 4, got %d", d.LargestIncrease)
	}
	if d.LargestDecrease != -7 {
		t.Errorf("Expected largest decrease -7, got %d", d.LargestDecrease)
	}
}

func TestDynamicsSingleSampleConnections(t *testing.T) {
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	records := []model.Record{
		makeRecord(base, 100, "10.0.0.1", 4000, "10.0.0.2", 80, 5),
		makeRecord(base.Add(time.Second), 200, "10.0.0.3", 5000, "10.0.0.4", 443, 9),
	}

	d := New(0, 0).Compute(records).Dynamics
	if d.MeanChange != 0 || d.Increases != 0 || d.Decreases != 0 {
		t.Errorf("Single-sample connections should contribute no differences: %+v", d)
	}
}

func TestConnectionsRankingAndExtremes(t *testing.T) {
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	var records []model.Record
	// Connection A: 3 records, cwnd 10/10/10.
	for i := 0; i < 3; i++ {
		records = append(records, makeRecord(base.Add(time.Duration(i)*time.Second), 1, "10.0.0.1", 1000, "10.0.0.2", 80, 10))
	}
	// Connection B: 1 record, cwnd 50.
	records = append(records, makeRecord(base, 2, "10.0.0.3", 2000, "10.0.0.4", 80, 50))

	c := New(0, 0).Compute(records).Connections
	if len(c.Top) != 2 {
		t.Fatalf("Expected 2 ranked connections, got %d", len(c.Top))
	}
	if c.Top[0].Records != 3 {
		t.Errorf("Expected the busiest connection first, got %+v", c.Top[0])
	}
	if !almost(c.Top[0].SharePercent, 75) {
		t.Errorf("Expected 75%% share, got %f", c.Top[0].SharePercent)
	}
	if c.HighestMeanCwnd.Value != 50 {
		t.Errorf("Expected highest mean 50, got %+v", c.HighestMeanCwnd)
	}
	if c.HighestMaxCwnd.Value != 50 {
		t.Errorf("Expected highest max 50, got %+v", c.HighestMaxCwnd)
	}
}

func TestProcesses(t *testing.T) {
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	records := []model.Record{
		makeRecord(base, 100, "10.0.0.1", 4000, "10.0.0.2", 80, 10),
		makeRecord(base.Add(time.Second), 100, "10.0.0.1", 4000, "10.0.0.2", 80, 20),
		makeRecord(base.Add(2*time.Second), 200, "10.0.0.3", 5000, "10.0.0.4", 443, 40),
	}

	p := New(0, 0).Compute(records).Processes
	if p.MostRecords.PID != 100 || p.MostRecords.Value != 2 {
		t.Errorf("Expected pid 100 with 2 records, got %+v", p.MostRecords)
	}
	if p.HighestMeanCwnd.PID != 200 || !almost(p.HighestMeanCwnd.Value, 40) {
		t.Errorf("Expected pid 200 with mean 40, got %+v", p.HighestMeanCwnd)
	}
}

func TestTemporalBuckets(t *testing.T) {
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	records := []model.Record{
		makeRecord(base, 100, "10.0.0.1", 4000, "10.0.0.2", 80, 10),
		makeRecord(base.Add(10*time.Second), 100, "10.0.0.1", 4000, "10.0.0.2", 80, 20),
		makeRecord(base.Add(70*time.Second), 100, "10.0.0.1", 4000, "10.0.0.2", 80, 30),
	}

	tm := New(time.Minute, 10).Compute(records).Temporal
	if len(tm.Buckets) != 2 {
		t.Fatalf("Expected 2 one-minute buckets, got %d", len(tm.Buckets))
	}
	if tm.Buckets[0].Records != 2 || !almost(tm.Buckets[0].MeanCwnd, 15) {
		t.Errorf("Unexpected first bucket: %+v", tm.Buckets[0])
	}
	if tm.PeakBucket.Records != 2 {
		t.Errorf("Expected peak bucket with 2 records, got %+v", tm.PeakBucket)
	}
	if !almost(tm.MeanRecordsPerBucket, 1.5) {
		t.Errorf("Expected 1.5 mean records per bucket, got %f", tm.MeanRecordsPerBucket)
	}
	if tm.ByHour[10] != 3 {
		t.Errorf("Expected 3 records in hour 10, got %d", tm.ByHour[10])
	}
	if tm.MostActiveHour != 10 {
		t.Errorf("Expected hour 10 most active, got %d", tm.MostActiveHour)
	}
}

func TestEfficiency(t *testing.T) {
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	records := []model.Record{
		// Connection A spans 10s with 2 records.
		makeRecord(base, 100, "10.0.0.1", 4000, "10.0.0.2", 80, 10),
		makeRecord(base.Add(10*time.Second), 100, "10.0.0.1", 4000, "10.0.0.2", 80, 20),
		// Connection B is a single instant.
		makeRecord(base, 200, "10.0.0.3", 5000, "10.0.0.4", 443, 40),
	}

	eff := New(0, 0).Compute(records).Efficiency
	if !almost(eff.AvgDurationSeconds, 5) {
		t.Errorf("Expected avg duration 5s, got %f", eff.AvgDurationSeconds)
	}
	if !almost(eff.AvgRecordsPerConnection, 1.5) {
		t.Errorf("Expected avg 1.5 records per connection, got %f", eff.AvgRecordsPerConnection)
	}
	if eff.HighestMeanCwnd.Value != 40 {
		t.Errorf("Expected highest mean cwnd 40, got %+v", eff.HighestMeanCwnd)
	}
}

func TestSampleStdSmallInputs(t *testing.T) {
	if got := sampleStd(nil); got != 0 {
		t.Errorf("Expected std 0 for empty input, got %f", got)
	}
	if got := sampleStd([]float64{5}); got != 0 {
		t.Errorf("Expected std 0 for a single value, got %f", got)
	}
}
