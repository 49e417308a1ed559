package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-production-optimizer/internal/correlate"
	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
	"github.com/couchcryptid/weather-production-optimizer/internal/observability"
	"github.com/couchcryptid/weather-production-optimizer/internal/pipeline"
)

var baseTime = time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

// --- mocks ---

type mockExtractor struct {
	events []domain.RawEvent
	index  atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.events) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	end := i + batchSize
	if end > len(m.events) {
		end = len(m.events)
	}
	m.index.Store(int64(end))
	return m.events[i:end], nil
}

type mockAligner struct {
	context *domain.WeatherContext
}

func (m *mockAligner) Align(_ context.Context, _ domain.ProductionEvent) *domain.WeatherContext {
	return m.context
}

type mockDispatcher struct {
	mu        sync.Mutex
	events    []domain.ProductionEvent
	weather   []*domain.WeatherContext
	snapshots []*correlate.Snapshot
	record    *domain.OptimizationRecord
}

func (m *mockDispatcher) Dispatch(_ context.Context, event domain.ProductionEvent, weather *domain.WeatherContext, findings *correlate.Snapshot) (domain.Recommendation, *domain.OptimizationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.weather = append(m.weather, weather)
	m.snapshots = append(m.snapshots, findings)
	return domain.Recommendation{AlertLevel: domain.AlertLow, Confidence: 0.8}, m.record
}

type mockSink struct {
	mu         sync.Mutex
	current    []domain.WeatherObservation
	saved      []domain.WeatherObservation
	currentErr error
	saveErr    error
}

func (m *mockSink) SetCurrent(_ context.Context, obs domain.WeatherObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentErr != nil {
		return m.currentErr
	}
	m.current = append(m.current, obs)
	return nil
}

func (m *mockSink) SaveObservation(_ context.Context, obs domain.WeatherObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, obs)
	return nil
}

type mockAlerts struct {
	mu     sync.Mutex
	alerts []domain.WeatherAlert
}

func (m *mockAlerts) PublishAlert(_ context.Context, alert domain.WeatherAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

type mockEnriched struct {
	mu     sync.Mutex
	events []domain.EnrichedEvent
}

func (m *mockEnriched) SaveEnrichedEvent(_ context.Context, enriched domain.EnrichedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, enriched)
	return nil
}

type fixture struct {
	production *mockExtractor
	weather    *mockExtractor
	aligner    *mockAligner
	window     *correlate.Store
	dispatcher *mockDispatcher
	sink       *mockSink
	alerts     *mockAlerts
	enriched   *mockEnriched
	metrics    *observability.Metrics
	processor  *pipeline.Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(baseTime))
	t.Cleanup(func() { domain.SetClock(nil) })

	cfg := correlate.DefaultConfig()
	f := &fixture{
		production: &mockExtractor{},
		weather:    &mockExtractor{},
		aligner:    &mockAligner{},
		window:     correlate.NewStore(correlate.NewEngine(cfg), cfg, 0),
		dispatcher: &mockDispatcher{},
		sink:       &mockSink{},
		alerts:     &mockAlerts{},
		enriched:   &mockEnriched{},
		metrics:    observability.NewMetricsForTesting(),
	}
	f.processor = pipeline.New(
		f.production, f.weather, f.aligner, f.window, f.dispatcher,
		f.sink, f.sink, f.alerts, f.enriched,
		pipeline.Config{BatchSize: 10, WorkerLimit: 4, FrontThresholdInHg: 0.1},
		slog.Default(), f.metrics,
	)
	return f
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, f.processor.Run(ctx))
}

// --- tests ---

func TestProcessor_WeatherMessageUpdatesState(t *testing.T) {
	f := newFixture(t)
	f.weather.events = []domain.RawEvent{makeWeatherRaw(t, "seguin_tx", baseTime, 92.0, 29.92)}

	f.run(t)

	require.Len(t, f.sink.current, 1)
	require.Len(t, f.sink.saved, 1)
	assert.Equal(t, "seguin_tx", f.sink.current[0].LocationID)
	assert.InDelta(t, 92.0, f.sink.current[0].Temperature, 1e-9)
	assert.NoError(t, f.processor.CheckReadiness(context.Background()))
}

func TestProcessor_MalformedWeatherMessageIsSkippedAndCommitted(t *testing.T) {
	f := newFixture(t)
	committed := false
	f.weather.events = []domain.RawEvent{{
		Value:  []byte("not json"),
		Commit: func(context.Context) error { committed = true; return nil },
	}}

	f.run(t)

	assert.Empty(t, f.sink.current)
	assert.True(t, committed, "poison messages are committed so the group moves past them")
	assert.Error(t, f.processor.CheckReadiness(context.Background()))
}

func TestProcessor_ProductionEventFlowsThroughDispatch(t *testing.T) {
	f := newFixture(t)
	f.aligner.context = &domain.WeatherContext{
		Observation: domain.WeatherObservation{
			LocationID: "seguin_tx", Timestamp: baseTime.Add(-10 * time.Minute),
			Temperature: 92, Humidity: 78, Pressure: 29.8,
		},
		DataAgeMinutes: 10,
	}
	committed := false
	raw := makeProductionRaw(t, "seguin_tx", "press-7", baseTime)
	raw.Commit = func(context.Context) error { committed = true; return nil }
	f.production.events = []domain.RawEvent{raw}

	f.run(t)

	require.Len(t, f.dispatcher.events, 1)
	assert.Equal(t, "seguin_tx", f.dispatcher.events[0].LocationID)
	require.NotNil(t, f.dispatcher.weather[0])
	assert.InDelta(t, 78.0, f.dispatcher.weather[0].Observation.Humidity, 1e-9)

	assert.Equal(t, 1, f.window.PairCount("seguin_tx"))
	assert.NotNil(t, f.window.Snapshot("seguin_tx"), "recompute runs once a pair lands")

	require.Len(t, f.dispatcher.snapshots, 1)
	require.NotNil(t, f.dispatcher.snapshots[0], "dispatch sees the recomputed correlation state")
	assert.Equal(t, 1, f.dispatcher.snapshots[0].SampleSize)

	require.Len(t, f.enriched.events, 1)
	assert.NotNil(t, f.enriched.events[0].Weather)
	assert.True(t, committed)
}

func TestProcessor_ProductionEventWithoutWeather(t *testing.T) {
	f := newFixture(t)
	f.production.events = []domain.RawEvent{makeProductionRaw(t, "seguin_tx", "press-7", baseTime)}

	f.run(t)

	require.Len(t, f.dispatcher.events, 1)
	assert.Nil(t, f.dispatcher.weather[0])
	assert.Nil(t, f.dispatcher.snapshots[0], "no pairs means no correlation state to hand over")
	assert.Zero(t, f.window.PairCount("seguin_tx"))

	require.Len(t, f.enriched.events, 1)
	assert.Nil(t, f.enriched.events[0].Weather)
}

func TestProcessor_ForecastEnvelopeIsSkippedNotCounted(t *testing.T) {
	f := newFixture(t)
	committed := false
	payload := `{"type":"weather_forecast","data":{"timestamp":"2025-06-10T14:00:00Z","location_id":"seguin_tx"}}`
	f.weather.events = []domain.RawEvent{{
		Key:    []byte("seguin_tx"),
		Value:  []byte(payload),
		Commit: func(context.Context) error { committed = true; return nil },
	}}

	f.run(t)

	assert.Empty(t, f.sink.current)
	assert.True(t, committed, "skipped envelopes still advance the offset")
	assert.Zero(t, testutil.ToFloat64(f.metrics.ParseErrors.WithLabelValues("weather")),
		"a well-formed forecast envelope is not a parse failure")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EnvelopesSkipped))
}

func TestProcessor_PressureDropPublishesFrontAlert(t *testing.T) {
	f := newFixture(t)
	f.weather.events = []domain.RawEvent{
		makeWeatherRaw(t, "seguin_tx", baseTime, 80, 30.00),
		makeWeatherRaw(t, "seguin_tx", baseTime.Add(30*time.Minute), 78, 29.90),
	}

	f.run(t)

	require.Len(t, f.alerts.alerts, 1)
	alert := f.alerts.alerts[0]
	assert.Equal(t, "pressure_front", alert.AlertType)
	assert.Equal(t, "seguin_tx", alert.LocationID)
	assert.InDelta(t, -0.2, alert.RateInHgHr, 1e-9)
	assert.True(t, alert.FallingFront)
	assert.Equal(t, domain.AlertHigh, alert.Severity)
}

func TestProcessor_StablePressureProducesNoAlert(t *testing.T) {
	f := newFixture(t)
	f.weather.events = []domain.RawEvent{
		makeWeatherRaw(t, "seguin_tx", baseTime, 80, 29.95),
		makeWeatherRaw(t, "seguin_tx", baseTime.Add(30*time.Minute), 80, 29.96),
	}

	f.run(t)

	assert.Empty(t, f.alerts.alerts)
}

func TestProcessor_SinkFailureDoesNotBlockProcessing(t *testing.T) {
	f := newFixture(t)
	f.sink.currentErr = errors.New("redis down")
	f.sink.saveErr = errors.New("postgres down")
	committed := false
	raw := makeWeatherRaw(t, "seguin_tx", baseTime, 80, 29.92)
	raw.Commit = func(context.Context) error { committed = true; return nil }
	f.weather.events = []domain.RawEvent{raw}

	f.run(t)

	assert.True(t, committed)
	assert.NoError(t, f.processor.CheckReadiness(context.Background()))
}

func TestProcessor_ContextCancellation(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.processor.Run(ctx))
	assert.Empty(t, f.dispatcher.events)
}

func TestProcessor_MultipleLocationsInOneBatch(t *testing.T) {
	f := newFixture(t)
	var raws []domain.RawEvent
	for i := 0; i < 4; i++ {
		loc := fmt.Sprintf("site-%d", i%2)
		raws = append(raws, makeProductionRaw(t, loc, "press-1", baseTime.Add(time.Duration(i)*time.Second)))
	}
	f.production.events = raws

	f.run(t)

	assert.Len(t, f.dispatcher.events, 4)
	assert.Len(t, f.enriched.events, 4)
}

// --- helpers ---

func makeWeatherRaw(t *testing.T, locationID string, ts time.Time, temp, pressure float64) domain.RawEvent {
	t.Helper()
	humidity := 60.0
	payload := map[string]any{
		"type": "weather_reading",
		"data": map[string]any{
			"timestamp":   ts.Format(time.RFC3339),
			"location_id": locationID,
			"temperature": temp,
			"humidity":    humidity,
			"pressure":    pressure,
		},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.RawEvent{
		Key:       []byte(locationID),
		Value:     data,
		Topic:     "weather-data",
		Timestamp: ts,
	}
}

func makeProductionRaw(t *testing.T, locationID, machineID string, ts time.Time) domain.RawEvent {
	t.Helper()
	payload := map[string]any{
		"timestamp":   ts.Format(time.RFC3339),
		"location_id": locationID,
		"machine_id":  machineID,
		"status":      "Gain",
		"cycle":       7,
		"cycle_time":  82.5,
		"details":     map[string]float64{"efficiency": 0.95},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.RawEvent{
		Key:       []byte(locationID),
		Value:     data,
		Topic:     "production-events",
		Timestamp: ts,
	}
}
