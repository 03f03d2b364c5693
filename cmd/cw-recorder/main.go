package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"CwndScope/internal/archive"
	"CwndScope/internal/config"
	"CwndScope/internal/model"
	"CwndScope/internal/probe"
	"CwndScope/internal/session"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	log.Println("Starting cw-recorder...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// Housekeeping before opening a new session.
	mgr := session.NewManager(cfg.Log.RootDir)
	if n, err := mgr.CleanEmpty(); err != nil {
		log.Printf("Failed to clean empty sessions: %v", err)
	} else if n > 0 {
		log.Printf("Removed %d empty session directories", n)
	}
	if n, err := mgr.CleanOld(cfg.Log.KeepSessions); err != nil {
		log.Printf("Failed to clean old sessions: %v", err)
	} else if n > 0 {
		log.Printf("Removed %d old session logs", n)
	}

	logPath, err := mgr.NewLogPath()
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	log.Printf("Recording to %s", logPath)

	recorder, err := probe.NewRecorder(logPath)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}

	// Optional ClickHouse archival runs on its own goroutine so a slow
	// insert never blocks the CSV log.
	var archiveCh chan model.Record
	var wg sync.WaitGroup
	if cfg.Archive.Enabled {
		writer, err := archive.NewClickHouseWriter(cfg.Archive.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create archive writer: %v", err)
		}
		flushInterval, err := time.ParseDuration(cfg.Archive.FlushInterval)
		if err != nil {
			log.Fatalf("Invalid archive flush_interval: %v", err)
		}

		archiveCh = make(chan model.Record, cfg.Archive.BatchSize)
		wg.Add(1)
		go func() {
			defer wg.Done()
			runArchiver(writer, archiveCh, cfg.Archive.BatchSize, flushInterval)
		}()
	}

	subscriber, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	err = subscriber.Start(func(r model.Record) {
		if err := recorder.Write([]model.Record{r}); err != nil {
			log.Printf("Failed to record sample: %v", err)
		}
		if archiveCh != nil {
			select {
			case archiveCh <- r:
			default:
				log.Println("Archive buffer full, dropping sample")
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping recorder...")
	subscriber.Close()
	if archiveCh != nil {
		close(archiveCh)
		wg.Wait()
	}
	if err := recorder.Close(); err != nil {
		log.Printf("Failed to close log file: %v", err)
	}
	log.Println("Shutdown complete.")
}

// runArchiver batches samples and flushes them on size or interval.
// Closing the channel flushes the remainder and closes the writer.
func runArchiver(w model.Writer, ch <-chan model.Record, batchSize int, interval time.Duration) {
	defer w.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batch := make([]model.Record, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.Write(batch); err != nil {
			log.Printf("Failed to archive batch: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case r, ok := <-ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, r)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
