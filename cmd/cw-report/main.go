package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"CwndScope/internal/config"
	"CwndScope/internal/query"
	"CwndScope/internal/report"
	"CwndScope/internal/session"
	"CwndScope/internal/stats"
	"CwndScope/internal/tailer"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	file := flag.String("file", "", "Log file to analyze (default: latest session)")
	format := flag.String("format", "text", "Report format: text, json, or html")
	output := flag.String("o", "", "Write the report to a file instead of stdout")

	pids := flag.String("pid", "", "Comma-separated list of PIDs to keep")
	saddr := flag.String("saddr", "", "Source address regex")
	daddr := flag.String("daddr", "", "Destination address regex")
	sports := flag.String("sport", "", "Comma-separated list of source ports")
	dports := flag.String("dport", "", "Comma-separated list of destination ports")
	connection := flag.String("connection", "", "Connection key regex")
	minCwnd := flag.Int("min-cwnd", -1, "Minimum CWND (inclusive)")
	maxCwnd := flag.Int("max-cwnd", -1, "Maximum CWND (inclusive)")
	start := flag.String("start", "", "Start time (RFC3339)")
	end := flag.String("end", "", "End time (RFC3339)")
	topConns := flag.Int("top-connections", 0, "Keep only records of the K most active connections")
	topPIDs := flag.Int("top-pids", 0, "Keep only records of the K most active PIDs")
	recent := flag.String("recent", "", "Keep only records within a duration of the newest (e.g. 5m)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	spec, err := buildFilterSpec(*pids, *saddr, *daddr, *sports, *dports,
		*connection, *minCwnd, *maxCwnd, *start, *end, *topConns, *topPIDs, *recent)
	if err != nil {
		log.Fatalf("Invalid filter: %v", err)
	}

	mgr := session.NewManager(cfg.Log.RootDir)
	logPath, err := mgr.Select(*file)
	if err != nil {
		log.Fatalf("Failed to select log file: %v", err)
	}
	log.Printf("Analyzing %s", logPath)

	bucketWidth, err := time.ParseDuration(cfg.Stats.BucketWidth)
	if err != nil {
		log.Fatalf("Invalid stats bucket_width: %v", err)
	}

	facade := query.New(
		tailer.New(logPath, cfg.Tailer.WindowCap),
		stats.New(bucketWidth, cfg.Stats.TopN),
	)
	result, err := facade.Snapshot(spec)
	if err != nil {
		log.Fatalf("Failed to analyze log: %v", err)
	}

	if *output != "" {
		if err := report.Save(result, report.Format(*format), *output); err != nil {
			log.Fatalf("Failed to save report: %v", err)
		}
		log.Printf("Report saved to %s", *output)
		return
	}

	content, err := report.Render(result, report.Format(*format))
	if err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	fmt.Print(content)
}

func buildFilterSpec(pids, saddr, daddr, sports, dports, connection string,
	minCwnd, maxCwnd int, start, end string, topConns, topPIDs int, recent string) (query.FilterSpec, error) {

	var spec query.FilterSpec
	var err error

	if spec.PIDs, err = parseIntList(pids); err != nil {
		return spec, fmt.Errorf("invalid -pid: %w", err)
	}
	if spec.SPorts, err = parseIntList(sports); err != nil {
		return spec, fmt.Errorf("invalid -sport: %w", err)
	}
	if spec.DPorts, err = parseIntList(dports); err != nil {
		return spec, fmt.Errorf("invalid -dport: %w", err)
	}

	spec.SAddr = saddr
	spec.DAddr = daddr
	spec.Connection = connection
	if minCwnd >= 0 {
		v := minCwnd
		spec.MinCwnd = &v
	}
	if maxCwnd >= 0 {
		v := maxCwnd
		spec.MaxCwnd = &v
	}
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return spec, fmt.Errorf("invalid -start: %w", err)
		}
		spec.StartTime = &t
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return spec, fmt.Errorf("invalid -end: %w", err)
		}
		spec.EndTime = &t
	}
	spec.TopConnections = topConns
	spec.TopPIDs = topPIDs
	spec.Recent = recent
	return spec, nil
}

func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
