package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safe2go/support-import/internal/domain"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketImported, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketImported, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventImportCompleted, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventTicketImported, "imp-1", Actor{Name: "Ana"}, nil))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNewEventStamps(t *testing.T) {
	a := NewEvent(EventImportCompleted, "imp-1", Actor{Name: "Ana"}, ImportCompletedPayload{Found: 2})
	b := NewEvent(EventImportCompleted, "imp-1", Actor{Name: "Ana"}, nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}

func TestForwarderPublishesJSON(t *testing.T) {
	pub := &recordingPublisher{}
	f := NewForwarder(pub, "safe2go.tickets.")
	event := NewEvent(EventTicketImported, "imp-1", Actor{Name: "Ana", Role: domain.OperatorRoleAdmin}, TicketImportedPayload{
		ExternalID: "SGSS-1",
		Title:      "Erro ao emitir apólice",
		Status:     domain.TicketStatusPending,
		Source:     domain.TicketSourceOCR,
	})
	event.TicketID = "b5c0"

	require.NoError(t, f.Handle(context.Background(), event))
	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "safe2go.tickets.ticket_imported", pub.subjects[0])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, "ticket_imported", decoded["type"])
	assert.Equal(t, "b5c0", decoded["ticket_id"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "SGSS-1", payload["external_id"])
}

func TestForwarderErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}
	f := NewForwarder(pub, "safe2go")
	err := f.Handle(context.Background(), NewEvent(EventImportCompleted, "imp", Actor{}, nil))
	assert.ErrorContains(t, err, "connection closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewForwarder(&recordingPublisher{}, "x").Handle(ctx, Event{}), context.Canceled)
}

func TestForwarderDisabled(t *testing.T) {
	f := NewForwarder(nil, "safe2go")
	assert.Nil(t, f)
	assert.NoError(t, f.Handle(context.Background(), Event{}))
	assert.Equal(t, "ticket_imported", (&Forwarder{}).Subject(EventTicketImported))
}
