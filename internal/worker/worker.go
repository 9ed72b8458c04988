package worker

import (
	"context"

	"crm-insight/internal/broker"
	"crm-insight/internal/models"
	"crm-insight/internal/util"

	"go.uber.org/zap"
)

// Invalidator drops cached data for a source
type Invalidator interface {
	Invalidate(ctx context.Context, sourceID string) error
}

// RefreshWorker invalidates cached datasets when their source changes
type RefreshWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	invalidator  Invalidator
	logger       *zap.Logger
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(consumer *broker.Consumer, invalidator Invalidator) *RefreshWorker {
	w := &RefreshWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		invalidator:  invalidator,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnSourceUpdated(w.HandleSourceUpdated)
	return w
}

// HandleSourceUpdated drops the cached dataset named by the event
func (w *RefreshWorker) HandleSourceUpdated(ctx context.Context, event *models.SourceUpdatedEvent) error {
	w.logger.Info("Source updated, invalidating cache",
		zap.String("source_id", event.SourceID),
		zap.String("event_id", event.EventID))
	return w.invalidator.Invalidate(ctx, event.SourceID)
}

// Start starts the worker
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting refresh worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RefreshWorker) Stop() error {
	w.logger.Info("Stopping refresh worker")
	return w.consumer.Close()
}
