package stats

import "time"

// Summary is the nested, read-only result of one statistics pass. It is
// plain data, suitable for serialization to any text or structured
// format.
type Summary struct {
	General      General      `json:"general"`
	Distribution Distribution `json:"cwnd_distribution"`
	Connections  Connections  `json:"connection_analysis"`
	Processes    Processes    `json:"pid_analysis"`
	Temporal     Temporal     `json:"temporal_analysis"`
	Dynamics     Dynamics     `json:"cwnd_dynamics"`
	Efficiency   Efficiency   `json:"connection_efficiency"`
}

// General covers whole-set counts and the observed time span.
type General struct {
	TotalRecords      int       `json:"total_records"`
	UniqueConnections int       `json:"unique_connections"`
	UniquePIDs        int       `json:"unique_pids"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// Percentiles holds interpolated order statistics of the cwnd values.
type Percentiles struct {
	P25 float64 `json:"p25"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
}

// Distribution describes the cwnd value distribution. Std is the sample
// standard deviation (Bessel's correction).
type Distribution struct {
	Mean        float64     `json:"mean"`
	Median      float64     `json:"median"`
	Std         float64     `json:"std"`
	Min         int         `json:"min"`
	Max         int         `json:"max"`
	Percentiles Percentiles `json:"percentiles"`
}

// KeyStat pairs a connection key with one aggregate value.
type KeyStat struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// PIDStat pairs a process id with one aggregate value.
type PIDStat struct {
	PID   int     `json:"pid"`
	Value float64 `json:"value"`
}

// ConnectionActivity is one row of the per-connection ranking.
type ConnectionActivity struct {
	Connection   string  `json:"connection"`
	Records      int     `json:"records"`
	SharePercent float64 `json:"share_percent"`
	MeanCwnd     float64 `json:"mean_cwnd"`
	MaxCwnd      int     `json:"max_cwnd"`
	MinCwnd      int     `json:"min_cwnd"`
	StdCwnd      float64 `json:"std_cwnd"`
}

// Connections covers per-connection aggregates and extremes.
type Connections struct {
	Top             []ConnectionActivity `json:"top"`
	HighestMeanCwnd KeyStat              `json:"highest_mean_cwnd"`
	HighestMaxCwnd  KeyStat              `json:"highest_max_cwnd"`
	HighestStdCwnd  KeyStat              `json:"highest_std_cwnd"`
}

// ProcessActivity is one row of the per-process ranking.
type ProcessActivity struct {
	PID          int     `json:"pid"`
	Records      int     `json:"records"`
	SharePercent float64 `json:"share_percent"`
	MeanCwnd     float64 `json:"mean_cwnd"`
	MaxCwnd      int     `json:"max_cwnd"`
}

// Processes covers per-process aggregates and extremes.
type Processes struct {
	Top             []ProcessActivity `json:"top"`
	HighestMeanCwnd PIDStat           `json:"highest_mean_cwnd"`
	MostRecords     PIDStat           `json:"most_records"`
}

// Bucket is one fixed-width time bucket.
type Bucket struct {
	Start    time.Time `json:"start"`
	Records  int       `json:"records"`
	MeanCwnd float64   `json:"mean_cwnd"`
}

// Temporal covers the hour-of-day histogram (UTC) and fixed-width
// bucketing.
type Temporal struct {
	ByHour               [24]int  `json:"by_hour"`
	MostActiveHour       int      `json:"most_active_hour"`
	BucketWidthSeconds   float64  `json:"bucket_width_seconds"`
	Buckets              []Bucket `json:"buckets"`
	PeakBucket           Bucket   `json:"peak_bucket"`
	MeanRecordsPerBucket float64  `json:"mean_records_per_bucket"`
}

// Dynamics summarizes per-connection successive cwnd differences.
// LargestDecrease is expressed as a negative number.
type Dynamics struct {
	MeanChange      float64 `json:"mean_change"`
	Increases       int     `json:"increases"`
	Decreases       int     `json:"decreases"`
	LargestIncrease int     `json:"largest_increase"`
	LargestDecrease int     `json:"largest_decrease"`
}

// Efficiency covers per-connection duration and volume averages.
type Efficiency struct {
	AvgDurationSeconds      float64 `json:"avg_duration_seconds"`
	AvgRecordsPerConnection float64 `json:"avg_records_per_connection"`
	HighestMeanCwnd         KeyStat `json:"highest_mean_cwnd"`
}
