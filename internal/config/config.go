package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/couchcryptid/weather-production-optimizer/internal/recommend"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers            []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaProductionTopic    string   `envconfig:"KAFKA_PRODUCTION_TOPIC" default:"production-events"`
	KafkaWeatherTopic       string   `envconfig:"KAFKA_WEATHER_TOPIC" default:"weather-data"`
	KafkaOptimizationsTopic string   `envconfig:"KAFKA_OPTIMIZATIONS_TOPIC" default:"production-optimizations"`
	KafkaAlertsTopic        string   `envconfig:"KAFKA_ALERTS_TOPIC" default:"weather-alerts"`
	KafkaGroupID            string   `envconfig:"KAFKA_GROUP_ID" default:"weather-production-optimizer"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	BatchSize   int `envconfig:"BATCH_SIZE" default:"50"`
	WorkerLimit int `envconfig:"WORKER_LIMIT" default:"8"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	WeatherTTL    time.Duration `envconfig:"WEATHER_TTL" default:"30m"`

	PostgresDSN         string        `envconfig:"POSTGRES_DSN" default:""`
	PostgresMaxConns    int           `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	PostgresIdleConns   int           `envconfig:"POSTGRES_IDLE_CONNS" default:"5"`
	PostgresQueryTimout time.Duration `envconfig:"POSTGRES_QUERY_TIMEOUT" default:"3s"`

	// Alignment and correlation tuning.
	MaxWeatherAge      time.Duration `envconfig:"MAX_WEATHER_AGE" default:"30m"`
	RecomputeInterval  time.Duration `envconfig:"RECOMPUTE_INTERVAL" default:"1m"`
	WindowDuration     time.Duration `envconfig:"WINDOW_DURATION" default:"1h"`
	WindowMaxPairs     int           `envconfig:"WINDOW_MAX_PAIRS" default:"1000"`
	MinSamples         int           `envconfig:"MIN_SAMPLES" default:"10"`
	FrontThresholdInHg float64       `envconfig:"FRONT_THRESHOLD_INHG" default:"0.1"`

	// Dispatch gates and baselines.
	ConfidenceGate  float64 `envconfig:"CONFIDENCE_GATE" default:"0.7"`
	BaselineDryerF  float64 `envconfig:"BASELINE_DRYER_TEMP" default:"150"`
	BaselinePreMixS float64 `envconfig:"BASELINE_PRE_MIX_DELTA" default:"0"`

	// Rule coefficients and thresholds, overridable per field via RULE_*
	// variables. Populated separately in Load so unset variables keep the
	// pilot facility defaults.
	Rules recommend.Params `ignored:"true"`
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	cfg.Rules = recommend.DefaultParams()
	if err := envconfig.Process("rule", &cfg.Rules); err != nil {
		return nil, fmt.Errorf("process rule environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	for name, topic := range map[string]string{
		"KAFKA_PRODUCTION_TOPIC":    c.KafkaProductionTopic,
		"KAFKA_WEATHER_TOPIC":       c.KafkaWeatherTopic,
		"KAFKA_OPTIMIZATIONS_TOPIC": c.KafkaOptimizationsTopic,
		"KAFKA_ALERTS_TOPIC":        c.KafkaAlertsTopic,
	} {
		if topic == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if c.BatchSize <= 0 {
		return errors.New("BATCH_SIZE must be positive")
	}
	if c.WorkerLimit <= 0 {
		return errors.New("WORKER_LIMIT must be positive")
	}
	if c.MaxWeatherAge <= 0 {
		return errors.New("MAX_WEATHER_AGE must be positive")
	}
	if c.WindowMaxPairs <= 0 {
		return errors.New("WINDOW_MAX_PAIRS must be positive")
	}
	if c.MinSamples < 2 {
		return errors.New("MIN_SAMPLES must be at least 2")
	}
	if c.ConfidenceGate < 0 || c.ConfidenceGate > 1 {
		return errors.New("CONFIDENCE_GATE must be in [0,1]")
	}
	return nil
}
