// Package events publishes user lifecycle notifications to an external
// broker. Publishing is best-effort: failures are logged and never affect
// the request that triggered them. There are no consumers or background
// workers in this server.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/accountd/apiserver/types"
)

// Event types emitted by the user service.
const (
	TypeUserCreated     = "user.created"
	TypeUserUpdated     = "user.updated"
	TypeUserDeactivated = "user.deactivated"
)

// UserEvent is the payload published for every lifecycle change.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Backend sends raw payloads to a named topic or queue.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher emits typed user events over a backend. A nil Publisher is valid
// and publishes nothing.
type Publisher struct {
	backend Backend
	topic   string
}

// NewPublisher constructs a Publisher emitting to the named topic.
func NewPublisher(backend Backend, topic string) *Publisher {
	return &Publisher{backend: backend, topic: topic}
}

// UserCreated publishes a user.created event.
func (p *Publisher) UserCreated(ctx context.Context, user types.User) {
	p.publish(ctx, TypeUserCreated, user)
}

// UserUpdated publishes a user.updated event.
func (p *Publisher) UserUpdated(ctx context.Context, user types.User) {
	p.publish(ctx, TypeUserUpdated, user)
}

// UserDeactivated publishes a user.deactivated event.
func (p *Publisher) UserDeactivated(ctx context.Context, user types.User) {
	p.publish(ctx, TypeUserDeactivated, user)
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}

func (p *Publisher) publish(ctx context.Context, eventType string, user types.User) {
	if p == nil || p.backend == nil {
		return
	}

	event := UserEvent{
		Type:       eventType,
		UserID:     user.ID.String(),
		Email:      user.Email,
		Role:       user.Role,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: marshal %s: %v", eventType, err)
		return
	}

	attrs := map[string]string{"type": eventType}
	if _, err := p.backend.Publish(ctx, p.topic, data, attrs); err != nil {
		log.Printf("events: publish %s: %v", eventType, err)
	}
}
