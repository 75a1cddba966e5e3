package streaming

import (
	"context"

	"sitetrust/internal/domain/models"
)

// EventBusPublisher implements services.EventPublisher using the EventBus
type EventBusPublisher struct {
	eventBus *EventBus
}

// NewEventBusPublisher creates a new publisher adapter
func NewEventBusPublisher(eventBus *EventBus) *EventBusPublisher {
	return &EventBusPublisher{eventBus: eventBus}
}

// PublishVerification announces a completed verification
func (p *EventBusPublisher) PublishVerification(ctx context.Context, result *models.WebsiteVerificationResult) error {
	return p.eventBus.Publish(ctx, NewVerificationEvent(result))
}
