package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-production-optimizer/internal/correlate"
	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
	"github.com/couchcryptid/weather-production-optimizer/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from a source topic.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Aligner attaches weather context to a production event, or nil when no
// observation exists within tolerance.
type Aligner interface {
	Align(ctx context.Context, event domain.ProductionEvent) *domain.WeatherContext
}

// Dispatcher evaluates an event against its weather context and the
// location's correlation snapshot, emitting an optimization record when
// warranted.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.ProductionEvent, weather *domain.WeatherContext, findings *correlate.Snapshot) (domain.Recommendation, *domain.OptimizationRecord)
}

// LiveWeatherStore holds the most recent observation per location.
type LiveWeatherStore interface {
	SetCurrent(ctx context.Context, obs domain.WeatherObservation) error
}

// WeatherHistory retains every observation for later range queries.
type WeatherHistory interface {
	SaveObservation(ctx context.Context, obs domain.WeatherObservation) error
}

// AlertPublisher delivers weather front alerts.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert domain.WeatherAlert) error
}

// EnrichedStore persists production events with their weather context.
type EnrichedStore interface {
	SaveEnrichedEvent(ctx context.Context, enriched domain.EnrichedEvent) error
}

// Config tunes the processing loops.
type Config struct {
	BatchSize          int
	WorkerLimit        int
	FrontThresholdInHg float64
}

// Processor consumes the production and weather topics and drives the
// align-correlate-recommend-dispatch flow. Weather and production run as
// independent loops; within a production batch, events for different
// locations process concurrently while each location stays sequential.
type Processor struct {
	production BatchExtractor
	weather    BatchExtractor
	aligner    Aligner
	window     *correlate.Store
	dispatcher Dispatcher
	live       LiveWeatherStore
	history    WeatherHistory
	alerts     AlertPublisher
	enriched   EnrichedStore

	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Processor with the given stages and observability. The live
// store, history, alert, and enriched-store dependencies may be nil; the
// corresponding side effects are skipped.
func New(
	production, weather BatchExtractor,
	aligner Aligner,
	window *correlate.Store,
	dispatcher Dispatcher,
	live LiveWeatherStore,
	history WeatherHistory,
	alerts AlertPublisher,
	enriched EnrichedStore,
	cfg Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Processor {
	return &Processor{
		production: production,
		weather:    weather,
		aligner:    aligner,
		window:     window,
		dispatcher: dispatcher,
		live:       live,
		history:    history,
		alerts:     alerts,
		enriched:   enriched,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the processor has fully handled at least
// one message.
func (p *Processor) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("processor has not handled any messages yet")
	}
	return nil
}

// Run executes both consume loops until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("processor started",
		"batch_size", p.cfg.BatchSize, "worker_limit", p.cfg.WorkerLimit)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.runLoop(ctx, p.weather, p.handleWeatherBatch) })
	g.Go(func() error { return p.runLoop(ctx, p.production, p.handleProductionBatch) })
	return g.Wait()
}

// runLoop repeatedly extracts and handles batches from one source with
// exponential backoff on extract failure: 200ms doubling to a 5s cap.
func (p *Processor) runLoop(ctx context.Context, source BatchExtractor, handle func(context.Context, []domain.RawEvent)) error {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("consume loop stopping", "reason", ctx.Err())
			return nil
		default:
		}

		start := time.Now()
		batch, err := source.ExtractBatch(ctx, p.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("extract batch failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		if len(batch) == 0 {
			continue
		}
		p.metrics.BatchSize.Observe(float64(len(batch)))
		handle(ctx, batch)
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	}
}

func (p *Processor) handleWeatherBatch(ctx context.Context, batch []domain.RawEvent) {
	for _, raw := range batch {
		p.handleWeatherEvent(ctx, raw)
		if ctx.Err() != nil {
			return
		}
	}
}

// handleWeatherEvent updates the live cache and historical store, feeds the
// front detector, and publishes an alert when the pressure trend crosses the
// front threshold. Storage failures are logged; the observation still enters
// the in-memory window so correlation keeps working through outages.
func (p *Processor) handleWeatherEvent(ctx context.Context, raw domain.RawEvent) {
	obs, err := domain.ParseWeatherObservation(raw)
	if err != nil {
		// Forecast and alert envelopes share the topic; they are skips,
		// not parse failures.
		if errors.Is(err, domain.ErrNotWeatherReading) {
			p.logger.Debug("skipping non-reading weather envelope",
				"reason", err, "topic", raw.Topic, "offset", raw.Offset)
			p.metrics.EnvelopesSkipped.Inc()
			p.commit(ctx, raw)
			return
		}
		p.logger.Warn("skipping unparseable weather message",
			"error", err, "topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
		p.metrics.ParseErrors.WithLabelValues("weather").Inc()
		p.commit(ctx, raw)
		return
	}

	if p.live != nil {
		if err := p.live.SetCurrent(ctx, obs); err != nil {
			p.logger.Error("live cache update failed", "error", err, "location_id", obs.LocationID)
			p.metrics.PublishFailures.WithLabelValues("redis").Inc()
		}
	}
	if p.history != nil {
		if err := p.history.SaveObservation(ctx, obs); err != nil {
			p.logger.Error("historical store write failed", "error", err, "location_id", obs.LocationID)
			p.metrics.PublishFailures.WithLabelValues("postgres").Inc()
		}
	}

	p.window.AddObservation(obs)
	p.maybePublishFrontAlert(ctx, obs)

	p.metrics.EventsProcessed.WithLabelValues("weather").Inc()
	p.commit(ctx, raw)
	p.ready.Store(true)
}

func (p *Processor) maybePublishFrontAlert(ctx context.Context, obs domain.WeatherObservation) {
	if p.alerts == nil {
		return
	}
	rate := p.window.PressureTrend(obs.LocationID)
	if absFloat(rate) <= p.cfg.FrontThresholdInHg {
		return
	}

	alert := newFrontAlert(obs, rate)
	if err := p.alerts.PublishAlert(ctx, alert); err != nil {
		p.logger.Error("weather alert publish failed", "error", err, "location_id", obs.LocationID)
		p.metrics.PublishFailures.WithLabelValues("kafka").Inc()
		return
	}
	p.metrics.WeatherAlerts.Inc()
}

func (p *Processor) handleProductionBatch(ctx context.Context, batch []domain.RawEvent) {
	byLocation := make(map[string][]domain.RawEvent)
	for _, raw := range batch {
		byLocation[locationOf(raw)] = append(byLocation[locationOf(raw)], raw)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.WorkerLimit)
	for _, events := range byLocation {
		events := events
		g.Go(func() error {
			for _, raw := range events {
				p.handleProductionEvent(ctx, raw)
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
			return nil
		})
	}
	// The only error is context cancellation; the loop notices it on the
	// next iteration.
	_ = g.Wait()
}

func (p *Processor) handleProductionEvent(ctx context.Context, raw domain.RawEvent) {
	event, err := domain.ParseProductionEvent(raw)
	if err != nil {
		p.logger.Warn("skipping unparseable production message",
			"error", err, "topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
		p.metrics.ParseErrors.WithLabelValues("production").Inc()
		p.commit(ctx, raw)
		return
	}

	weather := p.aligner.Align(ctx, event)
	if weather != nil {
		p.metrics.AlignmentOutcomes.WithLabelValues("matched").Inc()
		p.window.AddPair(domain.AlignedPair{Weather: weather.Observation, Production: event})
		p.recomputeIfDue(event.LocationID)
	} else {
		p.metrics.AlignmentOutcomes.WithLabelValues("none").Inc()
	}

	rec, record := p.dispatcher.Dispatch(ctx, event, weather, p.window.Snapshot(event.LocationID))
	p.metrics.Recommendations.WithLabelValues(rec.AlertLevel.String()).Inc()
	if record != nil {
		p.metrics.OptimizationsEmitted.WithLabelValues(string(record.Priority)).Inc()
	}

	if p.enriched != nil {
		enriched := domain.EnrichedEvent{Event: event, Weather: weather}
		if err := p.enriched.SaveEnrichedEvent(ctx, enriched); err != nil {
			p.logger.Error("enriched event write failed", "error", err, "event_id", event.EventID)
			p.metrics.PublishFailures.WithLabelValues("postgres").Inc()
		}
	}

	p.metrics.EventsProcessed.WithLabelValues("production").Inc()
	p.commit(ctx, raw)
	p.ready.Store(true)
}

func (p *Processor) recomputeIfDue(locationID string) {
	start := time.Now()
	if p.window.MaybeRecompute(locationID) {
		p.metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	}
	p.metrics.WindowPairs.WithLabelValues(locationID).Set(float64(p.window.PairCount(locationID)))
}

// commit acknowledges the message offset if a commit function is available.
func (p *Processor) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func newFrontAlert(obs domain.WeatherObservation, rate float64) domain.WeatherAlert {
	severity := domain.AlertMedium
	if absFloat(rate) >= 0.2 {
		severity = domain.AlertHigh
	}
	direction := "rising"
	if rate < 0 {
		direction = "falling"
	}
	return domain.WeatherAlert{
		ID:           "alert-" + obs.LocationID + "-" + obs.Timestamp.UTC().Format(time.RFC3339),
		LocationID:   obs.LocationID,
		Timestamp:    obs.Timestamp,
		AlertType:    "pressure_front",
		Severity:     severity,
		Message:      "Rapid " + direction + " pressure detected, approaching weather front likely",
		RateInHgHr:   rate,
		FallingFront: rate < 0,
	}
}

// locationOf peeks the location key without a full parse so batch grouping
// stays cheap. Kafka producers key messages by location; fall back to the
// whole batch sharing one group when the key is absent.
func locationOf(raw domain.RawEvent) string {
	return string(raw.Key)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
