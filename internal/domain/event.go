package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from a source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// WeatherObservation is a single ambient reading for one site. Observations
// are immutable; a newer reading for the same location supersedes this one in
// the live cache while all readings remain in the historical store.
type WeatherObservation struct {
	Timestamp     time.Time `json:"timestamp"`
	LocationID    string    `json:"location_id"`
	Temperature   float64   `json:"temperature"`   // °F
	Humidity      float64   `json:"humidity"`      // %
	Pressure      float64   `json:"pressure"`      // inHg
	WindSpeed     float64   `json:"wind_speed"`    // mph
	Precipitation float64   `json:"precipitation"` // inches
	Condition     string    `json:"condition"`
	QualityScore  float64   `json:"quality_score"` // [0,1]
}

// EventStatus classifies a production cycle outcome as reported by the
// production system.
type EventStatus string

const (
	StatusGain         EventStatus = "Gain"
	StatusLoss         EventStatus = "Loss"
	StatusNewSession   EventStatus = "NewSession"
	StatusQualityIssue EventStatus = "QualityIssue"
)

// ProductionEvent is a production cycle record from the plant floor. It is
// read-only to this service; weather context is attached alongside, never
// written into the event itself.
type ProductionEvent struct {
	EventID      string             `json:"event_id"`
	Timestamp    time.Time          `json:"timestamp"`
	LocationID   string             `json:"location_id"`
	MachineID    string             `json:"machine_id"`
	MachineClass string             `json:"machine_class"`
	CycleIndex   int                `json:"cycle_index"`
	PartID       string             `json:"part_id"`
	JobID        string             `json:"job_id"`
	OperatorID   string             `json:"operator_id"`
	Status       EventStatus        `json:"status"`
	CycleTime    float64            `json:"cycle_time"` // seconds
	Details      map[string]float64 `json:"details"`    // named parameters: pre_mix_time, target_rate, ...
	StopReasons  []string           `json:"stop_reasons"`

	RawPayload []byte `json:"-"`
}

// ProductionMetrics are the numeric outcomes correlated against weather
// factors. Efficiency, quality, and energy come from the event's detail
// parameters when the producer supplies them.
type ProductionMetrics struct {
	CycleTime    float64
	Efficiency   float64
	QualityScore float64
	EnergyUsage  float64
	StatusGain   float64 // 1 for Gain, 0 otherwise
}

// Metrics extracts the correlation targets from an event.
func (e ProductionEvent) Metrics() ProductionMetrics {
	m := ProductionMetrics{
		CycleTime:    e.CycleTime,
		Efficiency:   e.Details["efficiency"],
		QualityScore: e.Details["quality_score"],
		EnergyUsage:  e.Details["energy_usage"],
	}
	if e.Status == StatusGain {
		m.StatusGain = 1
	}
	return m
}

// WeatherContext is the observation matched to a production event, with the
// observation's age at match time. A context older than the configured
// tolerance is never constructed; callers see absence instead.
type WeatherContext struct {
	Observation    WeatherObservation `json:"observation"`
	DataAgeMinutes float64            `json:"data_age_minutes"`
}

// AlignedPair is a (weather, production) pair matched by location and time
// proximity. The unit of correlation analysis.
type AlignedPair struct {
	Weather    WeatherObservation
	Production ProductionEvent
}

// EnrichedEvent is a production event with its weather context attached,
// destined for the enriched-events store. Context is nil when no observation
// was available within tolerance.
type EnrichedEvent struct {
	Event   ProductionEvent `json:"event"`
	Weather *WeatherContext `json:"weather_context,omitempty"`
}
