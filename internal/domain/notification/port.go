package notification

import (
	"context"
	"time"

	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

// Outcome is the result of one delivery attempt. Gone is the
// transport's canonical "subscription no longer valid" signal and marks
// the target as a pruning candidate.
type Outcome struct {
	Delivered bool
	Gone      bool
	Err       error
}

type Sender interface {
	Send(ctx context.Context, sub *subscription.Subscription, payload []byte) Outcome
}

type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
