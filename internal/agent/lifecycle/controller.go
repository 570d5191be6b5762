// Package lifecycle tracks a displayed notification from push arrival
// through click, dismissal or close, and keeps the foreground contexts
// informed along the way.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/agent/platform"
	"github.com/NordCoder/Beacon/internal/agent/task"
	"github.com/NordCoder/Beacon/internal/domain/notification"
	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

const (
	defaultIcon  = "/icons/icon-192.png"
	defaultBadge = "/icons/icon-96.png"

	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionView    = "view"
	ActionDismiss = "dismiss"
)

type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Notification is the display descriptor handed to the platform. Once
// shown, the agent no longer owns the record; it only reacts to events
// about it.
type Notification struct {
	Title              string
	Body               string
	Icon               string
	Badge              string
	Tag                string
	Data               map[string]any
	Actions            []Action
	RequireInteraction bool
	Silent             bool
}

type Display interface {
	Show(ctx context.Context, n *Notification) error
	Close(ctx context.Context, tag string)
}

// Resubscriber renews the push subscription after the platform
// invalidates the old one.
type Resubscriber interface {
	Resubscribe(ctx context.Context, vapidPublicKey string) (*subscription.Subscription, error)
}

// RelayClient forwards a renewed subscription to the relay server.
type RelayClient interface {
	Subscribe(ctx context.Context, sub *subscription.Subscription) error
}

// CacheClearer handles the CLEAR_CACHE message.
type CacheClearer interface {
	ClearAll(ctx context.Context) error
}

type Controller struct {
	log      *zap.Logger
	display  Display
	contexts platform.Contexts
	reg      platform.Registration
	resub    Resubscriber
	relay    RelayClient
	cache    CacheClearer

	version  string
	vapidKey string
	clk      notification.Clock
}

func NewController(
	log *zap.Logger,
	display Display,
	contexts platform.Contexts,
	reg platform.Registration,
	resub Resubscriber,
	relay RelayClient,
	cache CacheClearer,
	version, vapidKey string,
	clk notification.Clock,
) *Controller {
	if clk == nil {
		clk = notification.SystemClock{}
	}
	return &Controller{
		log:      log.With(zap.String("component", "agent.lifecycle")),
		display:  display,
		contexts: contexts,
		reg:      reg,
		resub:    resub,
		relay:    relay,
		cache:    cache,
		version:  version,
		vapidKey: vapidKey,
		clk:      clk,
	}
}

// HandlePush builds the display descriptor from the raw push payload
// and shows it inside the event scope. A malformed payload falls back
// to the safe defaults; the event still completes.
func (c *Controller) HandlePush(ctx context.Context, scope *task.Scope, raw []byte) {
	n := c.buildDescriptor(raw)
	scope.Go(func() error {
		if err := c.display.Show(ctx, n); err != nil {
			c.log.Error("show notification", zap.String("tag", n.Tag), zap.Error(err))
			return err
		}
		c.log.Debug("notification displayed", zap.String("tag", n.Tag))
		return nil
	})
}

func (c *Controller) buildDescriptor(raw []byte) *Notification {
	n := &Notification{
		Title: notification.DefaultTitle,
		Body:  notification.DefaultBody,
		Icon:  defaultIcon,
		Badge: defaultBadge,
		Tag:   "default",
		Data:  map[string]any{},
	}
	if len(raw) == 0 {
		return n
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		c.log.Warn("push payload parse failed, using defaults", zap.Error(err))
		return n
	}

	if v := str(data, "title"); v != "" {
		n.Title = v
	}
	if v := str(data, "body"); v != "" {
		n.Body = v
	} else if v := str(data, "message"); v != "" {
		// Legacy producers used "message".
		n.Body = v
	}
	if v := str(data, "icon"); v != "" {
		n.Icon = v
	}
	if v := str(data, "tag"); v != "" {
		n.Tag = v
	} else {
		n.Tag = "notification-" + uuid.NewString()
	}
	n.Data = data
	n.RequireInteraction = str(data, "priority") == string(notification.PriorityHigh)
	n.Silent = str(data, "priority") == string(notification.PriorityLow)
	n.Actions = actionsFor(notification.Status(str(data, "status")))
	return n
}

func actionsFor(status notification.Status) []Action {
	switch status {
	case notification.StatusPending, notification.StatusNew:
		return []Action{
			{Action: ActionApprove, Title: "Approve", Icon: defaultBadge},
			{Action: ActionReject, Title: "Reject", Icon: defaultBadge},
			{Action: ActionView, Title: "View", Icon: defaultBadge},
		}
	default:
		return []Action{
			{Action: ActionView, Title: "View", Icon: defaultBadge},
		}
	}
}

// HandleClick closes the notification and routes the user: an open
// context already showing the target is focused and told about the
// click, otherwise a new one is opened.
func (c *Controller) HandleClick(ctx context.Context, scope *task.Scope, n *Notification, action string) {
	c.display.Close(ctx, n.Tag)

	if action == ActionDismiss {
		return
	}

	target := targetURL(n.Data)
	scope.Go(func() error {
		for _, fc := range c.contexts.MatchAll(ctx) {
			if !samePath(fc.URL(), target) {
				continue
			}
			if err := fc.Focus(ctx); err != nil {
				c.log.Warn("focus context", zap.Error(err))
				continue
			}
			fc.Post(platform.Message{
				Type: platform.MsgNotificationClicked,
				Data: map[string]any{"data": n.Data, "url": target, "action": action},
			})
			return nil
		}
		return c.contexts.OpenWindow(ctx, target)
	})
}

// HandleClose fans the dismissal out to every open context. Fire and
// forget; nobody acknowledges.
func (c *Controller) HandleClose(ctx context.Context, n *Notification) {
	for _, fc := range c.contexts.MatchAll(ctx) {
		fc.Post(platform.Message{
			Type: platform.MsgNotificationClosed,
			Data: map[string]any{"tag": n.Tag, "data": n.Data},
		})
	}
}

// HandleSubscriptionChange renews the push subscription and tells the
// relay. Any failing step is logged and abandoned; the next
// invalidation signal retries naturally.
func (c *Controller) HandleSubscriptionChange(ctx context.Context, scope *task.Scope) {
	scope.Go(func() error {
		sub, err := c.resub.Resubscribe(ctx, c.vapidKey)
		if err != nil {
			c.log.Warn("resubscribe failed", zap.Error(err))
			return nil
		}
		if err := c.relay.Subscribe(ctx, sub); err != nil {
			c.log.Warn("forward subscription to relay failed", zap.Error(err))
			return nil
		}
		for _, fc := range c.contexts.MatchAll(ctx) {
			fc.Post(platform.Message{Type: platform.MsgPushResubscribed})
		}
		c.log.Info("push subscription renewed")
		return nil
	})
}

// HandleMessage dispatches the foreground-context protocol. Unknown
// types are logged and ignored.
func (c *Controller) HandleMessage(ctx context.Context, msg platform.Message, reply func(platform.Message)) {
	switch msg.Type {
	case platform.MsgSkipWaiting:
		if err := c.reg.SkipWaiting(ctx); err != nil {
			c.log.Warn("skip waiting", zap.Error(err))
		}
	case platform.MsgClaimClients:
		if err := c.reg.Claim(ctx); err != nil {
			c.log.Warn("claim clients", zap.Error(err))
		}
	case platform.MsgGetVersion:
		if reply != nil {
			reply(platform.Message{
				Type: platform.MsgVersion,
				Data: map[string]any{
					"version":   c.version,
					"timestamp": c.clk.Now().UTC().Format(time.RFC3339),
				},
			})
		}
	case platform.MsgClearCache:
		err := c.cache.ClearAll(ctx)
		if reply != nil {
			reply(platform.Message{
				Type: platform.MsgCacheCleared,
				Data: map[string]any{"success": err == nil},
			})
		}
	case platform.MsgTestNotification:
		raw, _ := json.Marshal(msg.Data)
		scope := task.NewScope()
		c.HandlePush(ctx, scope, raw)
		if err := scope.Wait(ctx); err != nil {
			c.log.Warn("test notification", zap.Error(err))
		}
	default:
		c.log.Info("unknown message type", zap.String("type", msg.Type))
	}
}

func targetURL(data map[string]any) string {
	if data == nil {
		return "/"
	}
	if id := str(data, "notificationId"); id != "" {
		return fmt.Sprintf("/?notification=%s", id)
	}
	if id := str(data, "jobOrderId"); id != "" {
		return fmt.Sprintf("/?joborder=%s", id)
	}
	if u := str(data, "url"); u != "" {
		return u
	}
	return "/"
}

// samePath compares ignoring the query: a context at /?notification=1
// is still "the app at /".
func samePath(contextURL, target string) bool {
	base := target
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	cur := contextURL
	if i := strings.Index(cur, "?"); i >= 0 {
		cur = cur[:i]
	}
	return strings.HasSuffix(cur, base) || cur == base
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
