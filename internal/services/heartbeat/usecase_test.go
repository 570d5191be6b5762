package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/domain/notification"
)

type fakeEvents struct {
	mu       sync.Mutex
	payloads [][]notification.Payload
	sources  []string
	failures int
}

func (f *fakeEvents) PublishNotify(_ context.Context, source string, payloads []notification.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.sources = append(f.sources, source)
	f.payloads = append(f.payloads, payloads)
	return nil
}

func TestBeatPublishesHeartbeat(t *testing.T) {
	events := &fakeEvents{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc := NewUC(events, func() time.Time { return now }, zap.NewNop())

	require.NoError(t, uc.Beat(context.Background()))
	require.Equal(t, []string{"heartbeat"}, events.sources)
	require.Len(t, events.payloads, 1)
	require.Len(t, events.payloads[0], 1)
	require.Equal(t, "Heartbeat", events.payloads[0][0].Title)
	require.Equal(t, now, events.payloads[0][0].Timestamp)
}

func TestBeatRetriesTransientPublishFailure(t *testing.T) {
	events := &fakeEvents{failures: 2}
	uc := NewUC(events, nil, zap.NewNop())

	require.NoError(t, uc.Beat(context.Background()))
	require.Len(t, events.payloads, 1)
}
