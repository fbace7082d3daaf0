package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/siwx/core"
	"github.com/layer-3/siwx/ports"
)

const (
	LoginTopic  = "siwx.login"
	LogoutTopic = "siwx.logout"
)

// LoginEvent is published after a wallet key is bound to a principal
type LoginEvent struct {
	Principal string `json:"principal"`
	Address   string `json:"address"`
}

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Principal string `json:"principal"`
	TokenID   string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, principal core.Principal, address string) error {
	return p.publish(ctx, LoginTopic, watermill.NewUUID(), LoginEvent{
		Principal: principal.String(),
		Address:   address,
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, principal core.Principal, tokenID string) error {
	return p.publish(ctx, LogoutTopic, tokenID, LogoutEvent{
		Principal: principal.String(),
		TokenID:   tokenID,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
