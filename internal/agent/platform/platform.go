// Package platform declares the host capabilities the background agent
// is wired against: the display surface, open foreground contexts, and
// the agent registration itself. The agent never owns these; it only
// reacts to the events the host delivers.
package platform

import "context"

// Message is the structured envelope posted between the agent and its
// foreground contexts. Unknown types are ignored by both sides.
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Message types the agent understands or emits.
const (
	MsgSkipWaiting      = "SKIP_WAITING"
	MsgClaimClients     = "CLAIM_CLIENTS"
	MsgGetVersion       = "GET_VERSION"
	MsgClearCache       = "CLEAR_CACHE"
	MsgTestNotification = "TEST_NOTIFICATION"

	MsgVersion             = "VERSION"
	MsgCacheCleared        = "CACHE_CLEARED"
	MsgAgentActivated      = "AGENT_ACTIVATED"
	MsgNotificationClicked = "NOTIFICATION_CLICKED"
	MsgNotificationClosed  = "NOTIFICATION_CLOSED"
	MsgPushResubscribed    = "PUSH_RESUBSCRIBED"
)

// ForegroundContext is one open, user-visible instance of the client
// application.
type ForegroundContext interface {
	URL() string
	Focus(ctx context.Context) error
	// Post is fire-and-forget; the context may be gone already.
	Post(msg Message)
}

type Contexts interface {
	MatchAll(ctx context.Context) []ForegroundContext
	OpenWindow(ctx context.Context, url string) error
}

// Registration is the host-side handle on the agent's lifecycle.
type Registration interface {
	// SkipWaiting asks the host to activate this agent version without
	// waiting for old contexts to close.
	SkipWaiting(ctx context.Context) error
	// Claim takes control of all open contexts without a reload.
	Claim(ctx context.Context) error
}
