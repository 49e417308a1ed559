// Package redis holds the live weather state: the most recent observation
// per location and a short pressure history used for front detection.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/weather-production-optimizer/internal/config"
	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

const pressureHistoryDepth = 100

// Cache is the live weather store backed by Redis. A newer observation for a
// location fully replaces the previous one; entries expire after the
// configured TTL so a silent weather feed degrades to absence rather than
// serving stale context forever.
// It implements align.LiveCache.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(cfg *config.Config, logger *slog.Logger) *Cache {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Cache{client: client, ttl: cfg.WeatherTTL, logger: logger}
}

func currentKey(locationID string) string {
	return "weather:current:" + locationID
}

func pressureHistoryKey(locationID string) string {
	return "weather:pressure_history:" + locationID
}

// SetCurrent stores the observation as the location's live reading and
// appends its pressure to the history list.
func (c *Cache) SetCurrent(ctx context.Context, obs domain.WeatherObservation) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}
	if err := c.client.Set(ctx, currentKey(obs.LocationID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set current weather: %w", err)
	}
	return c.appendPressure(ctx, obs)
}

func (c *Cache) appendPressure(ctx context.Context, obs domain.WeatherObservation) error {
	point, err := json.Marshal(PressurePoint{
		Timestamp: obs.Timestamp,
		Pressure:  obs.Pressure,
	})
	if err != nil {
		return fmt.Errorf("marshal pressure point: %w", err)
	}

	key := pressureHistoryKey(obs.LocationID)
	pipe := c.client.Pipeline()
	pipe.LPush(ctx, key, point)
	pipe.LTrim(ctx, key, 0, pressureHistoryDepth-1)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append pressure history: %w", err)
	}
	return nil
}

// Latest returns the live observation for a location; ok is false when the
// key is absent or expired.
func (c *Cache) Latest(ctx context.Context, locationID string) (domain.WeatherObservation, bool, error) {
	data, err := c.client.Get(ctx, currentKey(locationID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.WeatherObservation{}, false, nil
	}
	if err != nil {
		return domain.WeatherObservation{}, false, fmt.Errorf("get current weather: %w", err)
	}

	var obs domain.WeatherObservation
	if err := json.Unmarshal(data, &obs); err != nil {
		return domain.WeatherObservation{}, false, fmt.Errorf("unmarshal observation: %w", err)
	}
	return obs, true, nil
}

// PressureHistory returns up to n pressure points, newest first.
func (c *Cache) PressureHistory(ctx context.Context, locationID string, n int) ([]PressurePoint, error) {
	if n <= 0 || n > pressureHistoryDepth {
		n = pressureHistoryDepth
	}
	raw, err := c.client.LRange(ctx, pressureHistoryKey(locationID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read pressure history: %w", err)
	}

	points := make([]PressurePoint, 0, len(raw))
	for _, item := range raw {
		var p PressurePoint
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			c.logger.Warn("skipping malformed pressure point", "error", err, "location_id", locationID)
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// PressurePoint is one entry of a location's pressure history.
type PressurePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Pressure  float64   `json:"pressure"`
}
