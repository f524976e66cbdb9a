package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Publisher is the subset of *nats.Conn used to forward events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Forwarder relays events to a message broker as JSON, one subject per
// event type.
type Forwarder struct {
	publisher Publisher
	prefix    string
}

// NewForwarder returns a forwarder publishing under prefix. A nil publisher
// yields nil, which Handle treats as disabled.
func NewForwarder(publisher Publisher, prefix string) *Forwarder {
	if publisher == nil {
		return nil
	}
	return &Forwarder{publisher: publisher, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject an event type is published on.
func (f *Forwarder) Subject(eventType EventType) string {
	if f.prefix == "" {
		return string(eventType)
	}
	return f.prefix + "." + string(eventType)
}

// Handle is an EventHandler that publishes the event.
func (f *Forwarder) Handle(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Type, err)
	}
	if err := f.publisher.Publish(f.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish event %s: %w", event.Type, err)
	}
	return nil
}
