package subscription

import "context"

type Repo interface {
	// Upsert inserts sub or, when the endpoint is already registered,
	// replaces its keys and bumps UpdatedAt. Returns the total count
	// after the call.
	Upsert(ctx context.Context, sub *Subscription) (int, error)
	// Remove deletes the entry for endpoint. ErrNotFound when absent.
	Remove(ctx context.Context, endpoint string) (int, error)
	// Snapshot returns copies of all current entries. Entries added
	// after the snapshot is taken are not part of it.
	Snapshot(ctx context.Context) []*Subscription
	Stats(ctx context.Context) Stats
	Count(ctx context.Context) int
	// Clear removes everything and returns the prior count.
	Clear(ctx context.Context) int
}
