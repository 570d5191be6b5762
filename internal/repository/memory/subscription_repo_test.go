package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestUpsertIsIdempotentOnEndpoint(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	repo := NewSubscriptionRepo(func() time.Time { return now })

	total, err := repo.Upsert(ctx, &subscription.Subscription{
		Endpoint: "https://push.example/a",
		Keys:     subscription.Keys{P256dh: "k1", Auth: "a1"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	// Re-registering the same endpoint replaces keys, keeps CreatedAt.
	now = t0.Add(time.Hour)
	total, err = repo.Upsert(ctx, &subscription.Subscription{
		Endpoint: "https://push.example/a",
		Keys:     subscription.Keys{P256dh: "k2", Auth: "a2"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	snap := repo.Snapshot(ctx)
	require.Len(t, snap, 1)
	require.Equal(t, "k2", snap[0].Keys.P256dh)
	require.Equal(t, t0, snap[0].CreatedAt)
	require.Equal(t, t0.Add(time.Hour), snap[0].UpdatedAt)
}

func TestUpsertRejectsEmptyEndpoint(t *testing.T) {
	repo := NewSubscriptionRepo(nil)
	_, err := repo.Upsert(context.Background(), &subscription.Subscription{})
	require.ErrorIs(t, err, subscription.ErrInvalid)
	_, err = repo.Upsert(context.Background(), nil)
	require.ErrorIs(t, err, subscription.ErrInvalid)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepo(nil)

	_, err := repo.Remove(ctx, "https://push.example/missing")
	require.ErrorIs(t, err, subscription.ErrNotFound)

	_, err = repo.Upsert(ctx, &subscription.Subscription{Endpoint: "https://push.example/a"})
	require.NoError(t, err)

	total, err := repo.Remove(ctx, "https://push.example/a")
	require.NoError(t, err)
	require.Equal(t, 0, total)
}

func TestSnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepo(nil)
	_, err := repo.Upsert(ctx, &subscription.Subscription{
		Endpoint: "https://push.example/a",
		Keys:     subscription.Keys{P256dh: "k1"},
	})
	require.NoError(t, err)

	snap := repo.Snapshot(ctx)
	snap[0].Keys.P256dh = "mutated"

	require.Equal(t, "k1", repo.Snapshot(ctx)[0].Keys.P256dh)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	repo := NewSubscriptionRepo(func() time.Time { return now })

	st := repo.Stats(ctx)
	require.Equal(t, 0, st.Total)
	require.Nil(t, st.Oldest)
	require.Nil(t, st.Newest)

	_, err := repo.Upsert(ctx, &subscription.Subscription{Endpoint: "https://push.example/a"})
	require.NoError(t, err)
	now = t0.Add(2 * time.Hour)
	_, err = repo.Upsert(ctx, &subscription.Subscription{Endpoint: "https://push.example/b"})
	require.NoError(t, err)

	st = repo.Stats(ctx)
	require.Equal(t, 2, st.Total)
	require.Equal(t, t0, *st.Oldest)
	require.Equal(t, t0.Add(2*time.Hour), *st.Newest)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepo(nil)
	for i := 0; i < 3; i++ {
		_, err := repo.Upsert(ctx, &subscription.Subscription{
			Endpoint: fmt.Sprintf("https://push.example/%d", i),
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, repo.Clear(ctx))
	require.Equal(t, 0, repo.Count(ctx))
	require.Equal(t, 0, repo.Clear(ctx))
}

func TestConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepo(fixedClock(time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.Upsert(ctx, &subscription.Subscription{
				Endpoint: fmt.Sprintf("https://push.example/%d", i%10),
			})
			repo.Snapshot(ctx)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 10, repo.Count(ctx))
}
