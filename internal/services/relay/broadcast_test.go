package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/domain/notification"
	"github.com/NordCoder/Beacon/internal/domain/subscription"
	"github.com/NordCoder/Beacon/internal/repository/memory"
)

// fakeSender scripts one Outcome per endpoint; unscripted endpoints
// deliver.
type fakeSender struct {
	mu       sync.Mutex
	outcomes map[string]notification.Outcome
	calls    int
	inflight int
	peak     int
	delay    time.Duration
}

func (f *fakeSender) Send(_ context.Context, sub *subscription.Subscription, _ []byte) notification.Outcome {
	f.mu.Lock()
	f.calls++
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	out, ok := f.outcomes[sub.Endpoint]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()

	if !ok {
		return notification.Outcome{Delivered: true}
	}
	return out
}

func seedRepo(t *testing.T, n int) (*memory.SubscriptionRepo, []*subscription.Subscription) {
	t.Helper()
	repo := memory.NewSubscriptionRepo(nil)
	for i := 0; i < n; i++ {
		_, err := repo.Upsert(context.Background(), &subscription.Subscription{
			Endpoint: fmt.Sprintf("https://push.example/%d", i),
		})
		require.NoError(t, err)
	}
	return repo, repo.Snapshot(context.Background())
}

func TestBroadcastEmptyRegistry(t *testing.T) {
	repo, _ := seedRepo(t, 0)
	sender := &fakeSender{}
	bc := NewBroadcaster(zap.NewNop(), sender, repo, BroadcastConfig{})

	rep := bc.Broadcast(context.Background(), notification.Payload{}, nil)
	require.Equal(t, Report{}, rep)
	require.Equal(t, 0, sender.calls)
}

func TestBroadcastAccounting(t *testing.T) {
	repo, targets := seedRepo(t, 5)
	sender := &fakeSender{outcomes: map[string]notification.Outcome{
		"https://push.example/1": {Err: errors.New("boom")},
		"https://push.example/3": {Gone: true, Err: errors.New("410")},
	}}
	bc := NewBroadcaster(zap.NewNop(), sender, repo, BroadcastConfig{PruneGone: true})

	rep := bc.Broadcast(context.Background(), notification.Payload{Title: "t"}, targets)
	require.Equal(t, 5, rep.Total)
	require.Equal(t, 3, rep.Sent)
	require.Equal(t, 2, rep.Failed)
	require.Equal(t, 1, rep.Pruned)
	require.Equal(t, []string{"https://push.example/3"}, rep.Gone)
	require.Equal(t, 5, sender.calls)

	// Only the gone endpoint is pruned; the plain failure stays.
	require.Equal(t, 4, repo.Count(context.Background()))
	_, err := repo.Remove(context.Background(), "https://push.example/3")
	require.ErrorIs(t, err, subscription.ErrNotFound)
}

func TestBroadcastPruneDisabledKeepsGone(t *testing.T) {
	repo, targets := seedRepo(t, 3)
	sender := &fakeSender{outcomes: map[string]notification.Outcome{
		"https://push.example/0": {Gone: true},
	}}
	bc := NewBroadcaster(zap.NewNop(), sender, repo, BroadcastConfig{PruneGone: false})

	rep := bc.Broadcast(context.Background(), notification.Payload{}, targets)
	require.Equal(t, 0, rep.Pruned)
	require.Equal(t, []string{"https://push.example/0"}, rep.Gone)
	require.Equal(t, 3, repo.Count(context.Background()))
}

func TestBroadcastHonorsMaxInFlight(t *testing.T) {
	repo, targets := seedRepo(t, 20)
	sender := &fakeSender{delay: 10 * time.Millisecond}
	bc := NewBroadcaster(zap.NewNop(), sender, repo, BroadcastConfig{MaxInFlight: 4})

	rep := bc.Broadcast(context.Background(), notification.Payload{}, targets)
	require.Equal(t, 20, rep.Sent)
	require.LessOrEqual(t, sender.peak, 4)
}

func TestBroadcastEachTargetOnce(t *testing.T) {
	repo, targets := seedRepo(t, 8)
	sender := &fakeSender{}
	bc := NewBroadcaster(zap.NewNop(), sender, repo, BroadcastConfig{})

	bc.Broadcast(context.Background(), notification.Payload{}, targets)
	require.Equal(t, len(targets), sender.calls)
}
