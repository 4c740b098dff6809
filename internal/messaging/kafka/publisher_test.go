package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pioneer-isp/helpdesk/internal/events"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisherForwardsDispatchedEvents(t *testing.T) {
	writer := &recordingWriter{}
	publisher := newPublisher(writer, zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()
	publisher.Register(dispatcher)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := dispatcher.Publish(context.Background(), events.Event{
		Type:      events.EventTicketStatusChanged,
		TicketKey: "TCK-1704067200-ABCD",
		Actor:     "alice",
		Timestamp: ts,
		Payload:   events.FieldChangedPayload{Field: "status", From: "Open", To: "Resolved"},
	})
	require.NoError(t, err)
	require.Len(t, writer.msgs, 1)

	msg := writer.msgs[0]
	assert.Equal(t, "TCK-1704067200-ABCD", string(msg.Key))
	assert.Equal(t, ts, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "ticket_status_changed", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "alice", decoded["actor"])
	assert.Equal(t, "Resolved", decoded["payload"].(map[string]any)["to"])

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestPublisherSurfacesWriteErrors(t *testing.T) {
	boom := errors.New("broker down")
	publisher := newPublisher(&recordingWriter{err: boom}, zap.NewNop())
	err := publisher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated})
	assert.ErrorIs(t, err, boom)
}
