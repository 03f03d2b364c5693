package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CwndScope/internal/config"
	"CwndScope/internal/query"
	"CwndScope/internal/session"
	"CwndScope/internal/stats"
	"CwndScope/internal/tailer"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	file := flag.String("file", "", "Log file to follow (default: latest session)")
	interval := flag.Duration("interval", 0, "Refresh interval (default from config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	refresh := *interval
	if refresh <= 0 {
		refresh, err = time.ParseDuration(cfg.Monitor.RefreshInterval)
		if err != nil {
			log.Fatalf("Invalid monitor refresh_interval: %v", err)
		}
	}
	bucketWidth, err := time.ParseDuration(cfg.Stats.BucketWidth)
	if err != nil {
		log.Fatalf("Invalid stats bucket_width: %v", err)
	}

	mgr := session.NewManager(cfg.Log.RootDir)
	logPath, err := mgr.Select(*file)
	if err != nil {
		log.Fatalf("Failed to select log file: %v", err)
	}
	log.Printf("Following %s every %s. Press Ctrl+C to stop.", logPath, refresh)

	facade := query.New(
		tailer.New(logPath, cfg.Tailer.WindowCap),
		stats.New(bucketWidth, cfg.Stats.TopN),
	)

	var spec query.FilterSpec
	result, err := facade.Snapshot(spec)
	if err != nil {
		log.Fatalf("Failed to load log: %v", err)
	}
	printSummary(result)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = facade.Watch(ctx, refresh, spec, printSummary)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Monitor stopped: %v", err)
	}
	log.Println("Monitor stopped.")
}

func printSummary(result *query.Result) {
	s := result.Stats
	line := fmt.Sprintf("[%s] records=%d conns=%d pids=%d cwnd mean=%.2f p95=%.2f range=%d-%d",
		result.GeneratedAt.Format("15:04:05"),
		s.General.TotalRecords,
		s.General.UniqueConnections,
		s.General.UniquePIDs,
		s.Distribution.Mean,
		s.Distribution.Percentiles.P95,
		s.Distribution.Min,
		s.Distribution.Max,
	)
	if len(s.Connections.Top) > 0 {
		top := s.Connections.Top[0]
		line += fmt.Sprintf(" top=%s (%.1f%%)", top.Connection, top.SharePercent)
	}
	fmt.Println(line)
}
