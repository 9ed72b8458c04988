package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"crm-insight/internal/models"
	"crm-insight/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher publishes the domain events of the insight service
type Publisher interface {
	PublishDatasetLoaded(ctx context.Context, event *models.DatasetLoadedEvent) error
	PublishVisitListExported(ctx context.Context, event *models.VisitListExportedEvent) error
	PublishSourceUpdated(ctx context.Context, event *models.SourceUpdatedEvent) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func sourceKey(sourceID string) string {
	return fmt.Sprintf("source-%s", sourceID)
}

// PublishDatasetLoaded publishes DatasetLoaded event
func (ep *EventPublisher) PublishDatasetLoaded(ctx context.Context, event *models.DatasetLoadedEvent) error {
	return ep.producer.PublishEvent(ctx, sourceKey(event.SourceID), event)
}

// PublishVisitListExported publishes VisitListExported event
func (ep *EventPublisher) PublishVisitListExported(ctx context.Context, event *models.VisitListExportedEvent) error {
	return ep.producer.PublishEvent(ctx, sourceKey(event.SourceID), event)
}

// PublishSourceUpdated publishes SourceUpdated event
func (ep *EventPublisher) PublishSourceUpdated(ctx context.Context, event *models.SourceUpdatedEvent) error {
	return ep.producer.PublishEvent(ctx, sourceKey(event.SourceID), event)
}

// NoopPublisher drops every event; used when Kafka is disabled
type NoopPublisher struct{}

func (NoopPublisher) PublishDatasetLoaded(context.Context, *models.DatasetLoadedEvent) error {
	return nil
}

func (NoopPublisher) PublishVisitListExported(context.Context, *models.VisitListExportedEvent) error {
	return nil
}

func (NoopPublisher) PublishSourceUpdated(context.Context, *models.SourceUpdatedEvent) error {
	return nil
}

// EventHandler handles incoming events
type EventHandler struct {
	onSourceUpdated func(context.Context, *models.SourceUpdatedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnSourceUpdated registers a handler for SourceUpdated events
func (eh *EventHandler) OnSourceUpdated(handler func(context.Context, *models.SourceUpdatedEvent) error) {
	eh.onSourceUpdated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSourceUpdated:
		if eh.onSourceUpdated != nil {
			var event models.SourceUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SourceUpdated event: %w", err)
			}
			return eh.onSourceUpdated(ctx, &event)
		}

	case models.EventTypeDatasetLoaded, models.EventTypeVisitListExported:
		// published by this service; nothing to do

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
