package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/birdnet-census/internal/census"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/observability/metrics"
)

// Publisher sends census results to a broker: one summary message on the
// topic prefix and one message per species on prefix/<species>.
type Publisher struct {
	client  Client
	topic   string
	limiter *rate.Limiter // nil when unlimited
	metrics *metrics.MQTTMetrics
	log     logger.Logger
}

// NewPublisher creates a publisher writing below cfg.Topic. Species messages
// are paced by cfg.RateLimit and cfg.RateBurst. m may be nil.
func NewPublisher(c Client, cfg Config, m *metrics.MQTTMetrics) *Publisher {
	p := &Publisher{
		client:  c,
		topic:   strings.TrimRight(cfg.Topic, "/"),
		metrics: m,
		log:     GetLogger(),
	}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return p
}

// SpeciesTopic returns the topic a species estimate is published on.
func (p *Publisher) SpeciesTopic(species string) string {
	return p.topic + "/" + species
}

// PublishResult connects if needed and publishes the summary and every
// species estimate of res. It stops at the first failed publish.
func (p *Publisher) PublishResult(ctx context.Context, res *census.Result, source string) error {
	if res == nil {
		return errors.Newf("census result must not be nil").
			Component(componentName).
			Category(errors.CategoryInvalidInput).
			Build()
	}
	if p.topic == "" {
		return errors.Newf("mqtt topic must not be empty").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil {
			return err
		}
	}

	if err := p.publishJSON(ctx, metrics.MessageKindSummary, p.topic, NewSummaryDTO(res, source)); err != nil {
		return err
	}
	for _, species := range res.Species() {
		if err := p.throttle(ctx); err != nil {
			return err
		}
		if err := p.publishJSON(ctx, metrics.MessageKindSpecies, p.SpeciesTopic(species), NewEstimateDTO(res, species)); err != nil {
			return err
		}
	}

	p.log.Info("census result published",
		logger.String("run_id", res.RunID),
		logger.String("topic", p.topic),
		logger.Int("species", len(res.Estimates)))
	return nil
}

// throttle waits for the rate limiter. A cancelled ctx ends the wait with a
// cancellation error.
func (p *Publisher) throttle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return p.cancelled(err)
	}
	if p.limiter == nil {
		return nil
	}

	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.cancelled(ctxErr)
		}
		// The deadline is closer than the next free slot.
		p.recordError(metrics.StageThrottle, metrics.MessageKindSpecies)
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Context("stage", metrics.StageThrottle).
			Build()
	}
	if p.metrics != nil {
		p.metrics.ObserveThrottleWait(time.Since(start))
	}
	return nil
}

func (p *Publisher) cancelled(err error) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryCancellation).
		Build()
}

func (p *Publisher) publishJSON(ctx context.Context, kind, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		p.recordError(metrics.StageEncode, kind)
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	start := time.Now()
	if err := p.client.Publish(ctx, topic, payload); err != nil {
		p.recordError(metrics.StagePublish, kind)
		return err
	}
	if p.metrics != nil {
		p.metrics.RecordDelivered(kind, len(payload), time.Since(start))
	}
	return nil
}

func (p *Publisher) recordError(stage, kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(stage, kind)
	}
}
