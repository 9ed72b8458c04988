package app

import (
	"fmt"
	"io"

	"crm-insight/config"
	"crm-insight/internal/analytics"
	"crm-insight/internal/broker"
	"crm-insight/internal/cache"
	"crm-insight/internal/loader"
	"crm-insight/internal/service"
	"crm-insight/internal/util"

	"go.uber.org/zap"
)

// App holds the wired components shared by the server and the CLI
type App struct {
	Config    *config.Config
	Loader    *loader.Loader
	Service   *service.InsightService
	Publisher broker.Publisher
	Producer  *broker.Producer

	closers []io.Closer
	logger  *zap.Logger
}

// New wires source, cache, publisher and service from cfg
func New(cfg *config.Config) (*App, error) {
	thresholds := analytics.Thresholds{
		RecencyDays:   cfg.Business.RecencyThresholdDays,
		Effectiveness: cfg.Business.EffectivenessThreshold,
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configured thresholds: %w", err)
	}

	a := &App{
		Config: cfg,
		logger: util.GetLogger(),
	}

	source, err := a.newSource()
	if err != nil {
		a.Close()
		return nil, err
	}

	c, err := a.newCache()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Publisher = broker.NoopPublisher{}
	if cfg.Kafka.Enabled {
		a.Producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, a.Producer)
		a.Publisher = broker.NewEventPublisher(a.Producer)
		a.logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	a.Loader = loader.NewLoader(source, c, a.Publisher)
	a.Service = service.NewInsightService(a.Loader, a.Publisher, service.Options{
		SourceID:   cfg.Source.ID,
		Thresholds: thresholds,
		TopN:       cfg.Business.TopN,
		VendorTopN: cfg.Business.VendorTopN,
	})
	return a, nil
}

func (a *App) sheetNames() loader.SheetNames {
	return loader.SheetNames{
		Orders:     a.Config.Source.OrdersSheet,
		Deliveries: a.Config.Source.DeliveriesSheet,
		Customers:  a.Config.Source.CustomersSheet,
	}
}

func (a *App) newSource() (loader.Source, error) {
	switch a.Config.Source.Kind {
	case loader.KindSheet:
		return loader.NewSheetSource(a.Config.Source.FetchTimeout, a.sheetNames()), nil
	case loader.KindFile:
		return loader.NewFileSource(a.sheetNames()), nil
	case loader.KindPostgres:
		source, err := loader.NewPostgresSource(a.Config.Database.URL, a.sheetNames())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, source)
		a.logger.Info("Database connected")
		return source, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", a.Config.Source.Kind)
	}
}

func (a *App) newCache() (cache.Cache, error) {
	switch a.Config.Cache.Backend {
	case cache.BackendMemory:
		return cache.NewMemoryCache(a.Config.Cache.TTL), nil
	case cache.BackendRedis:
		rc, err := cache.NewRedisCache(a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB, a.Config.Cache.TTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc)
		a.logger.Info("Redis connected", zap.String("addr", a.Config.Redis.Addr))
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.Config.Cache.Backend)
	}
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
