package analysis

import (
	"context"

	"github.com/tphakala/birdnet-census/internal/census"
	"github.com/tphakala/birdnet-census/internal/conf"
	"github.com/tphakala/birdnet-census/internal/datastore"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/mqtt"
	"github.com/tphakala/birdnet-census/internal/observability"
	"github.com/tphakala/birdnet-census/internal/observability/metrics"
)

// Sink receives finished census results.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, res *census.Result, source string) error
}

// StoreSink saves results to a run store.
type StoreSink struct {
	Store datastore.Interface
}

// Name implements Sink.
func (s *StoreSink) Name() string { return "sqlite" }

// Deliver implements Sink.
func (s *StoreSink) Deliver(ctx context.Context, res *census.Result, source string) error {
	return s.Store.SaveRun(ctx, datastore.NewCensusRun(res, source))
}

// PublishSink publishes results over MQTT.
type PublishSink struct {
	Publisher *mqtt.Publisher
}

// Name implements Sink.
func (s *PublishSink) Name() string { return "mqtt" }

// Deliver implements Sink.
func (s *PublishSink) Deliver(ctx context.Context, res *census.Result, source string) error {
	return s.Publisher.PublishResult(ctx, res, source)
}

// OpenSinks creates the sinks enabled in settings. The returned closer
// releases every opened sink and is never nil.
func OpenSinks(settings *conf.Settings, m *observability.Metrics) (sinks []Sink, closer func(), err error) {
	var closers []func()
	closer = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if settings.Output.SQLite.Enabled {
		var dm *datastore.Metrics
		if m != nil {
			dm = m.Datastore
		}
		store := datastore.NewSQLiteStore(settings.Output.SQLite.Path, settings.Debug, dm, nil)
		store.MinFreeSpace = uint64(settings.Output.SQLite.MinFreeSpace) << 20
		if err := store.Open(); err != nil {
			closer()
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				GetLogger().Warn("closing run store failed", logger.Error(err))
			}
		})
		sinks = append(sinks, &StoreSink{Store: store})
	}

	if settings.Output.MQTT.Enabled {
		cfg := mqtt.DefaultConfig()
		cfg.Broker = settings.Output.MQTT.Broker
		cfg.Topic = settings.Output.MQTT.Topic
		cfg.Username = settings.Output.MQTT.Username
		cfg.Password = settings.Output.MQTT.Password
		cfg.Retain = settings.Output.MQTT.Retain
		cfg.RateLimit = settings.Output.MQTT.RateLimit
		cfg.RateBurst = settings.Output.MQTT.RateBurst

		var mm *metrics.MQTTMetrics
		if m != nil {
			mm = m.MQTT
		}
		client, err := mqtt.NewClient(cfg, mm)
		if err != nil {
			closer()
			return nil, func() {}, err
		}
		closers = append(closers, client.Disconnect)
		sinks = append(sinks, &PublishSink{Publisher: mqtt.NewPublisher(client, cfg, mm)})
	}

	return sinks, closer, nil
}
