package kafka

import (
	"context"
	"time"

	"github.com/google/uuid"

	domkafka "github.com/NordCoder/Beacon/internal/domain/kafka"
	"github.com/NordCoder/Beacon/internal/domain/notification"
)

// NotifyEvent is the wire envelope carried on the notify topic. One
// event may ask the relay to broadcast several payloads in order.
type NotifyEvent struct {
	ID       string                 `json:"id"`
	Source   string                 `json:"source"`
	Payloads []notification.Payload `json:"notifications"`
	At       time.Time              `json:"at"`
}

type NotifyEventsKafka struct {
	p *Producer
}

func NewNotifyEventsKafka(p *Producer) *NotifyEventsKafka { return &NotifyEventsKafka{p: p} }

var _ domkafka.NotifyEvents = (*NotifyEventsKafka)(nil)

func (e *NotifyEventsKafka) PublishNotify(ctx context.Context, source string, payloads []notification.Payload) error {
	ev := NotifyEvent{
		ID:       uuid.NewString(),
		Source:   source,
		Payloads: payloads,
		At:       time.Now().UTC(),
	}
	return e.p.PublishJSON(ctx, []byte(ev.ID), &ev)
}
