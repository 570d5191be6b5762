package memory

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

var _ subscription.Repo = (*SubscriptionRepo)(nil)

// SubscriptionRepo is the registry's memory-resident implementation.
// State does not survive a restart; a single RWMutex guards the map
// against concurrent subscribe/unsubscribe/broadcast requests.
type SubscriptionRepo struct {
	mu   sync.RWMutex
	subs map[string]*subscription.Subscription
	clk  func() time.Time
}

func NewSubscriptionRepo(clk func() time.Time) *SubscriptionRepo {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &SubscriptionRepo{
		subs: make(map[string]*subscription.Subscription),
		clk:  clk,
	}
}

func (r *SubscriptionRepo) Upsert(_ context.Context, sub *subscription.Subscription) (int, error) {
	if sub == nil || sub.Endpoint == "" {
		return 0, subscription.ErrInvalid
	}
	now := r.clk()

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.subs[sub.Endpoint]; ok {
		cur.Keys = sub.Keys
		cur.UpdatedAt = now
		return len(r.subs), nil
	}
	cp := sub.Clone()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.subs[cp.Endpoint] = cp
	return len(r.subs), nil
}

func (r *SubscriptionRepo) Remove(_ context.Context, endpoint string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[endpoint]; !ok {
		return len(r.subs), subscription.ErrNotFound
	}
	delete(r.subs, endpoint)
	return len(r.subs), nil
}

func (r *SubscriptionRepo) Snapshot(_ context.Context) []*subscription.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*subscription.Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s.Clone())
	}
	return out
}

func (r *SubscriptionRepo) Stats(_ context.Context) subscription.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := subscription.Stats{Total: len(r.subs)}
	for _, s := range r.subs {
		if st.Oldest == nil || s.CreatedAt.Before(*st.Oldest) {
			t := s.CreatedAt
			st.Oldest = &t
		}
		if st.Newest == nil || s.CreatedAt.After(*st.Newest) {
			t := s.CreatedAt
			st.Newest = &t
		}
	}
	return st
}

func (r *SubscriptionRepo) Count(_ context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *SubscriptionRepo) Clear(_ context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.subs)
	r.subs = make(map[string]*subscription.Subscription)
	return n
}
