package kafka

import (
	"context"

	"github.com/NordCoder/Beacon/internal/domain/notification"
)

type NotifyEvents interface {
	PublishNotify(ctx context.Context, source string, payloads []notification.Payload) error
}
