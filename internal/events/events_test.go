package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func TestEventSubjectAndPayload(t *testing.T) {
	reqID := uuid.MustParse("00000000-0000-0000-0000-000000000777")
	e := Event{
		Type:        RescheduleProposed,
		BookingID:   uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		TrainerID:   "t1",
		ClientID:    "c1",
		RequestID:   &reqID,
		ScheduledAt: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		OccurredAt:  time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.Equal(t, "trainerbook.reschedule.proposed", e.Subject())

	b, err := json.Marshal(e)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, "reschedule.proposed", m["event_type"])
	require.Equal(t, reqID.String(), m["request_id"])
	require.NotContains(t, m, "status")
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := p.Publish(context.Background(), Event{Type: BookingCreated, TrainerID: "t1"})
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"subject":"trainerbook.booking.created"`)
	require.Contains(t, buf.String(), `"component":"events.log"`)
}

func TestNatsPublisherIntegration(t *testing.T) {
	url := strings.TrimSpace(os.Getenv("TRAINERBOOK_TEST_NATS_URL"))
	if url == "" {
		t.Skip("TRAINERBOOK_TEST_NATS_URL not set")
	}

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(sub.Close)

	msgs := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(SubjectPrefix+">", msgs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Unsubscribe() })
	require.NoError(t, sub.Flush())

	p, err := NewNatsPublisher(url, nil)
	require.NoError(t, err)
	t.Cleanup(p.Close)

	id := uuid.New()
	require.NoError(t, p.Publish(context.Background(), Event{Type: BookingAccepted, BookingID: id}))

	select {
	case m := <-msgs:
		require.Equal(t, "trainerbook.booking.accepted", m.Subject)
		var got Event
		require.NoError(t, json.Unmarshal(m.Data, &got))
		require.Equal(t, id, got.BookingID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
