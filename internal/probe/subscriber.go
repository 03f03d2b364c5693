package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"CwndScope/internal/config"
	"CwndScope/internal/model"
)

// SampleHandler processes one received CWND record.
type SampleHandler func(r model.Record)

// Subscriber receives CWND samples from a NATS subject.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the configured subject and invokes the handler
// for every well-formed sample. Malformed messages are logged and
// dropped.
func (s *Subscriber) Start(handler SampleHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var sample Sample
		if err := json.Unmarshal(msg.Data, &sample); err != nil {
			log.Printf("Dropping malformed sample message: %v", err)
			return
		}
		handler(sample.Record())
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for samples...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
