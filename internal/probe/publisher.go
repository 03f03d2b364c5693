package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"CwndScope/internal/config"
	"CwndScope/internal/model"
)

// Publisher publishes CWND samples to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes a record as JSON and publishes it to the
// configured subject.
func (p *Publisher) Publish(r model.Record) error {
	data, err := json.Marshal(FromRecord(r))
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
