package analysis

import (
	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/httpclient"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// Availability reads the current backend signals from configuration.
func Availability() classifier.Availability {
	s := conf.Signals()
	return classifier.Availability{
		VisionCredentials: s.VisionCredentials,
		MockEndpoint:      s.MockAPIURL,
	}
}

// Dispatcher is a classifier.Dispatcher with the resources its providers hold.
type Dispatcher struct {
	*classifier.Dispatcher
	client *httpclient.Client
}

// Close releases idle connections of the remote mock provider.
func (d *Dispatcher) Close() {
	d.client.Close()
}

// NewDispatcher registers all three providers configured from settings.
// metrics may be nil.
func NewDispatcher(settings *conf.Settings, resolver classifier.Resolver, metrics classifier.DispatchMetrics, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}

	vision := classifier.NewVisionProvider(classifier.VisionConfig{
		Endpoint:  settings.Vision.Endpoint,
		Timeout:   settings.Vision.Timeout,
		RateLimit: settings.Vision.RateLimit,
		Burst:     settings.Vision.Burst,
	}, log.Module("vision"))

	client := httpclient.New(&httpclient.Config{DefaultTimeout: settings.MockAPI.Timeout})
	mock := classifier.NewMockAPIProvider(client, settings.MockAPI.Timeout, log.Module("mockapi"))

	local := classifier.NewLocalProvider(classifier.LocalConfig{
		SuccessRate: settings.Local.SuccessRate,
		MinLatency:  settings.Local.MinLatency,
		MaxLatency:  settings.Local.MaxLatency,
		ClassCount:  settings.Local.ClassCount,
	})

	opts := []classifier.DispatcherOption{
		classifier.WithProvider(vision),
		classifier.WithProvider(mock),
		classifier.WithProvider(local),
		classifier.WithSignals(Availability),
		classifier.WithDispatchLogger(log.Module("dispatcher")),
	}
	if metrics != nil {
		opts = append(opts, classifier.WithDispatchMetrics(metrics))
	}
	return &Dispatcher{
		Dispatcher: classifier.NewDispatcher(resolver, opts...),
		client:     client,
	}
}
