// Package postgres persists weather readings, enriched production events,
// and emitted optimization records.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/weather-production-optimizer/internal/config"
	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

// Store is the historical side of the weather state plus the audit sink for
// optimizations and enriched events. Historical range queries sit behind a
// circuit breaker: when the database struggles, alignment degrades to
// absence instead of stalling the stream.
// It implements align.History and dispatch.Store.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
	breaker      *gobreaker.CircuitBreaker[[]domain.WeatherObservation]
	logger       *slog.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetMaxIdleConns(cfg.PostgresIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return New(db, cfg.PostgresQueryTimout, logger), nil
}

// New wraps an existing connection pool; used directly by tests.
func New(db *sql.DB, queryTimeout time.Duration, logger *slog.Logger) *Store {
	breaker := gobreaker.NewCircuitBreaker[[]domain.WeatherObservation](gobreaker.Settings{
		Name:    "weather-history",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Store{db: db, queryTimeout: queryTimeout, breaker: breaker, logger: logger}
}

// SaveObservation records a weather reading. Re-delivered readings are
// ignored; (location_id, ts) identifies an observation.
func (s *Store) SaveObservation(ctx context.Context, obs domain.WeatherObservation) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_readings
			(location_id, ts, temperature, humidity, pressure, wind_speed, precipitation, condition, quality_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (location_id, ts) DO NOTHING`,
		obs.LocationID, obs.Timestamp, obs.Temperature, obs.Humidity, obs.Pressure,
		obs.WindSpeed, obs.Precipitation, obs.Condition, obs.QualityScore,
	)
	if err != nil {
		return fmt.Errorf("insert weather reading: %w", err)
	}
	return nil
}

// Range returns the retained observations for a location within [from, to],
// oldest first. Calls pass through the circuit breaker; an open breaker
// returns an error immediately.
func (s *Store) Range(ctx context.Context, locationID string, from, to time.Time) ([]domain.WeatherObservation, error) {
	return s.breaker.Execute(func() ([]domain.WeatherObservation, error) {
		return s.queryRange(ctx, locationID, from, to)
	})
}

func (s *Store) queryRange(ctx context.Context, locationID string, from, to time.Time) ([]domain.WeatherObservation, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT location_id, ts, temperature, humidity, pressure, wind_speed, precipitation, condition, quality_score
		FROM weather_readings
		WHERE location_id = $1 AND ts BETWEEN $2 AND $3
		ORDER BY ts`,
		locationID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query weather readings: %w", err)
	}
	defer rows.Close()

	var observations []domain.WeatherObservation
	for rows.Next() {
		var obs domain.WeatherObservation
		if err := rows.Scan(
			&obs.LocationID, &obs.Timestamp, &obs.Temperature, &obs.Humidity, &obs.Pressure,
			&obs.WindSpeed, &obs.Precipitation, &obs.Condition, &obs.QualityScore,
		); err != nil {
			return nil, fmt.Errorf("scan weather reading: %w", err)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weather readings: %w", err)
	}
	return observations, nil
}

// SaveOptimization persists one emitted record. The uuid-based ID makes
// replays idempotent.
func (s *Store) SaveOptimization(ctx context.Context, record domain.OptimizationRecord) error {
	current, err := json.Marshal(record.CurrentParameters)
	if err != nil {
		return fmt.Errorf("marshal current parameters: %w", err)
	}
	optimized, err := json.Marshal(record.OptimizedParameters)
	if err != nil {
		return fmt.Errorf("marshal optimized parameters: %w", err)
	}
	improvement, err := json.Marshal(record.ExpectedImprovement)
	if err != nil {
		return fmt.Errorf("marshal expected improvement: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO production_optimizations
			(id, location_id, machine_id, ts, trigger_summary, current_parameters,
			 optimized_parameters, expected_improvement, confidence, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		record.ID, record.LocationID, record.MachineID, record.Timestamp, record.TriggerSummary,
		current, optimized, improvement, record.Confidence, string(record.Priority),
	)
	if err != nil {
		return fmt.Errorf("insert optimization record: %w", err)
	}
	return nil
}

// SaveEnrichedEvent persists a production event with its weather context.
// Event IDs are deterministic, so redelivery is a no-op.
func (s *Store) SaveEnrichedEvent(ctx context.Context, enriched domain.EnrichedEvent) error {
	payload, err := json.Marshal(enriched)
	if err != nil {
		return fmt.Errorf("marshal enriched event: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO enriched_events (event_id, location_id, ts, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`,
		enriched.Event.EventID, enriched.Event.LocationID, enriched.Event.Timestamp, payload,
	)
	if err != nil {
		return fmt.Errorf("insert enriched event: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}
