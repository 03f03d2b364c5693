package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"CwndScope/internal/config"
	"CwndScope/internal/model"
	"CwndScope/internal/probe"
)

// flow carries the synthetic congestion state of one connection.
type flow struct {
	record   model.Record
	cwnd     int
	ssthresh int
}

func main() {
	outputFile := flag.String("o", "", "Output CSV file path (empty: publish to NATS)")
	sampleCount := flag.Int("c", 1000, "Number of samples to generate")
	flowCount := flag.Int("f", 5, "Number of concurrent flows")
	step := flag.Duration("step", 100*time.Millisecond, "Time between consecutive samples")
	natsURL := flag.String("nats", "", "NATS server URL (default from config)")
	flag.Parse()

	rand.Seed(time.Now().UnixNano())

	flows := make([]*flow, *flowCount)
	for i := range flows {
		r := model.Record{
			PID:   1000 + rand.Intn(100),
			SAddr: fmt.Sprintf("10.0.0.%d", i+1),
			SPort: 40000 + rand.Intn(20000),
			DAddr: fmt.Sprintf("192.168.1.%d", rand.Intn(250)+1),
			DPort: []int{80, 443, 8080, 5201}[rand.Intn(4)],
		}
		r.Connection = r.Key()
		flows[i] = &flow{record: r, cwnd: 10, ssthresh: 64}
	}

	var write func([]model.Record) error
	if *outputFile != "" {
		recorder, err := probe.NewRecorder(*outputFile)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer recorder.Close()
		write = recorder.Write
		log.Printf("Generating %d samples into %s...", *sampleCount, *outputFile)
	} else {
		probeCfg := config.Default().Probe
		if *natsURL != "" {
			probeCfg.NATSURL = *natsURL
		}
		publisher, err := probe.NewPublisher(probeCfg)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		write = func(records []model.Record) error {
			for _, r := range records {
				if err := publisher.Publish(r); err != nil {
					return err
				}
			}
			return nil
		}
		log.Printf("Publishing %d samples to '%s'...", *sampleCount, probeCfg.Subject)
	}

	now := time.Now().UTC()
	for i := 0; i < *sampleCount; i++ {
		f := flows[rand.Intn(len(flows))]
		f.advance()

		r := f.record
		r.Timestamp = now.Add(time.Duration(i) * *step)
		r.Cwnd = f.cwnd
		if err := write([]model.Record{r}); err != nil {
			log.Fatalf("Failed to emit sample: %v", err)
		}
	}

	log.Printf("Successfully generated %d samples.", *sampleCount)
}

// advance moves the flow one ACK forward: slow start below ssthresh,
// congestion avoidance above it, with a 3% chance of a loss event that
// halves the window.
func (f *flow) advance() {
	if rand.Intn(100) < 3 {
		f.ssthresh = f.cwnd / 2
		f.cwnd = f.cwnd / 2
		if f.cwnd < 1 {
			f.cwnd = 1
		}
		return
	}
	if f.cwnd < f.ssthresh {
		f.cwnd *= 2
		if f.cwnd > f.ssthresh {
			f.cwnd = f.ssthresh
		}
	} else {
		f.cwnd++
	}
}
