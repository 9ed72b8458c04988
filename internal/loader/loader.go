package loader

import (
	"context"
	"errors"
	"time"

	"crm-insight/internal/cache"
	"crm-insight/internal/models"
	"crm-insight/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Load outcomes reported in metrics
const (
	outcomeSuccess     = "success"
	outcomeSchemaError = "schema_error"
	outcomeLoadError   = "load_error"
)

// EventPublisher announces successful loads
type EventPublisher interface {
	PublishDatasetLoaded(ctx context.Context, event *models.DatasetLoadedEvent) error
}

// Loader fetches datasets through a cache. Concurrent loads of the same id
// share a single fetch.
type Loader struct {
	source    Source
	cache     cache.Cache
	publisher EventPublisher
	group     singleflight.Group
	logger    *zap.Logger
}

// NewLoader creates a loader; a nil cache falls back to an in-process one and
// a nil publisher disables events
func NewLoader(source Source, c cache.Cache, publisher EventPublisher) *Loader {
	if c == nil {
		c = cache.NewMemoryCache(0)
	}
	return &Loader{
		source:    source,
		cache:     c,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Load returns the dataset for id, fetching it on a cache miss
func (l *Loader) Load(ctx context.Context, id string) (*models.Dataset, error) {
	ctx, span := util.StartSpan(ctx, "Loader.Load")
	defer span.End()

	ds, ok, err := l.cache.Get(ctx, id)
	if err != nil {
		l.logger.Warn("Cache read failed, fetching from source", zap.String("source_id", id), zap.Error(err))
	}
	if ok {
		util.CacheHitsTotal.Inc()
		return ds, nil
	}
	util.CacheMissesTotal.Inc()

	// shared by every waiter; bounded by the source timeout, not the caller
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := l.group.Do(id, func() (interface{}, error) {
		return l.fetch(fetchCtx, id)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug("Shared in-flight load", zap.String("source_id", id))
	}
	return v.(*models.Dataset), nil
}

func (l *Loader) fetch(ctx context.Context, id string) (*models.Dataset, error) {
	kind := l.source.Kind()
	start := time.Now()

	ds, err := l.source.Fetch(ctx, id)
	util.DatasetLoadLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		err = asLoadError(id, err)
		outcome := outcomeLoadError
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			outcome = outcomeSchemaError
		}
		util.DatasetLoadsTotal.WithLabelValues(kind, outcome).Inc()
		l.logger.Error("Failed to load dataset",
			zap.String("source_kind", kind),
			zap.String("source_id", id),
			zap.Error(err))
		return nil, err
	}
	util.DatasetLoadsTotal.WithLabelValues(kind, outcomeSuccess).Inc()

	if err := l.cache.Set(ctx, id, ds); err != nil {
		l.logger.Warn("Failed to cache dataset", zap.String("source_id", id), zap.Error(err))
	}

	l.logger.Info("Dataset loaded",
		zap.String("source_kind", kind),
		zap.String("source_id", id),
		zap.Int("orders", len(ds.Orders)),
		zap.Int("deliveries", len(ds.Deliveries)),
		zap.Int("customers", len(ds.Customers)))

	if l.publisher != nil {
		event := &models.DatasetLoadedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeDatasetLoaded,
				Timestamp: time.Now(),
			},
			SourceID:   id,
			Orders:     len(ds.Orders),
			Deliveries: len(ds.Deliveries),
			Customers:  len(ds.Customers),
		}
		if err := l.publisher.PublishDatasetLoaded(ctx, event); err != nil {
			l.logger.Error("Failed to publish DatasetLoaded event", zap.Error(err))
		}
	}

	return ds, nil
}

// Invalidate drops the cached dataset for id
func (l *Loader) Invalidate(ctx context.Context, id string) error {
	if err := l.cache.Invalidate(ctx, id); err != nil {
		return err
	}
	l.logger.Info("Dataset cache invalidated", zap.String("source_id", id))
	return nil
}
