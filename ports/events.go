package ports

import (
	"context"

	"github.com/layer-3/siwx/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogin(ctx context.Context, principal core.Principal, address string) error
	PublishLogout(ctx context.Context, principal core.Principal, tokenID string) error
}
