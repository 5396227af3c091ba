package analysis

import (
	"context"
	"fmt"

	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/datastore"
	"github.com/tphakala/image-analyzer/internal/labels"
	"github.com/tphakala/image-analyzer/internal/logger"
	"github.com/tphakala/image-analyzer/internal/mqtt"
	"github.com/tphakala/image-analyzer/internal/observability"
)

// Runtime is the fully wired analysis stack shared by the server and the
// one-shot CLI.
type Runtime struct {
	Store      *datastore.Store
	Metrics    *observability.Metrics
	Registry   *labels.Registry
	Dispatcher *Dispatcher
	Service    *Service

	publisher *mqtt.Publisher
	log       logger.Logger
}

// NewRuntime opens the datastore and wires providers, the label registry,
// metrics and, when enabled, the MQTT publisher. A broker that cannot be
// reached is logged and publishing is skipped.
func NewRuntime(ctx context.Context, settings *conf.Settings, log logger.Logger) (*Runtime, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	store, err := datastore.Open(ctx, &settings.Datastore, log.Module("datastore"))
	if err != nil {
		return nil, err
	}

	registry := labels.NewRegistry(labels.NewRepositoryStore(store.Labels),
		labels.WithMetrics(m.Classifier),
		labels.WithLogger(log.Module("labels")))
	dispatcher := NewDispatcher(settings, registry, m.Classifier, log)

	rt := &Runtime{
		Store:      store,
		Metrics:    m,
		Registry:   registry,
		Dispatcher: dispatcher,
		log:        log,
	}

	opts := []Option{
		WithPersistMetrics(m.Classifier),
		WithLogger(log.Module("analysis")),
	}
	if settings.MQTT.Enabled {
		if pub := rt.connectPublisher(ctx, settings); pub != nil {
			opts = append(opts, WithPublisher(pub))
		}
	}

	rt.Service = NewService(classifier.NewRecorder(dispatcher.Dispatcher), registry, store.Logs, opts...)
	return rt, nil
}

func (rt *Runtime) connectPublisher(ctx context.Context, settings *conf.Settings) *mqtt.Publisher {
	log := rt.log.Module("mqtt")

	cfg := mqtt.DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	cfg.Retain = settings.MQTT.Retain
	if settings.MQTT.ClientID != "" {
		cfg.ClientID = settings.MQTT.ClientID
	}
	if settings.MQTT.Topic != "" {
		cfg.Topic = settings.MQTT.Topic
	}

	client, err := mqtt.NewClient(cfg, mqtt.WithMetrics(rt.Metrics.MQTT), mqtt.WithLogger(log))
	if err != nil {
		log.Error("invalid MQTT configuration, publishing disabled", logger.Error(err))
		return nil
	}
	if err := client.Connect(ctx); err != nil {
		log.Warn("MQTT broker unreachable, publishing disabled",
			logger.String("broker", cfg.Broker),
			logger.Error(err))
		return nil
	}
	rt.publisher = mqtt.NewPublisher(client, cfg.Topic, log)
	log.Info("publishing analysis records",
		logger.String("broker", cfg.Broker),
		logger.String("topic", cfg.Topic))
	return rt.publisher
}

// Close releases the publisher, idle provider connections and the database.
func (rt *Runtime) Close() error {
	if rt.publisher != nil {
		rt.publisher.Close()
	}
	rt.Dispatcher.Close()
	return rt.Store.Close()
}
