package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Beacon/internal/domain/notification"
)

func TestNotifyEventWireShape(t *testing.T) {
	ev := NotifyEvent{
		ID:     "ev-1",
		Source: "heartbeat",
		Payloads: []notification.Payload{
			{Title: "Heartbeat", Body: "beat", Priority: notification.PriorityNormal},
		},
		At: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(&ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	// Consumers key off "notifications"; the field name is part of the
	// topic contract.
	require.Contains(t, decoded, "notifications")
	require.Equal(t, "heartbeat", decoded["source"])
}

func TestJSONHandlerDecodes(t *testing.T) {
	var got *NotifyEvent
	h := JSONHandler(func(_ context.Context, key []byte, ev *NotifyEvent) error {
		require.Equal(t, "ev-1", string(key))
		got = ev
		return nil
	})

	value := []byte(`{"id":"ev-1","source":"api","notifications":[{"title":"t","body":"b"}]}`)
	require.NoError(t, h(context.Background(), []byte("ev-1"), value))
	require.NotNil(t, got)
	require.Len(t, got.Payloads, 1)
	require.Equal(t, "t", got.Payloads[0].Title)
}

func TestJSONHandlerRejectsMalformed(t *testing.T) {
	h := JSONHandler(func(_ context.Context, _ []byte, _ *NotifyEvent) error {
		return errors.New("handler must not run")
	})
	require.Error(t, h(context.Background(), nil, []byte(`{broken`)))
}
