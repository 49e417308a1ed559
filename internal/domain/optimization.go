package domain

import "time"

// Priority orders downstream handling of an optimization record.
type Priority string

const (
	PriorityImmediate Priority = "IMMEDIATE"
	PriorityHigh      Priority = "HIGH"
	PriorityMedium    Priority = "MEDIUM"
	PriorityLow       Priority = "LOW"
)

// OptimizationRecord is the structured output routed to downstream consumers
// when a recommendation clears the confidence gate and moves at least one
// parameter off its baseline.
type OptimizationRecord struct {
	ID                  string             `json:"id"`
	LocationID          string             `json:"location_id"`
	MachineID           string             `json:"machine_id"`
	Timestamp           time.Time          `json:"timestamp"`
	TriggerSummary      string             `json:"trigger_summary"` // e.g. "T:92.0°F H:78.0% P:29.80inHg"
	CurrentParameters   map[string]float64 `json:"current_parameters"`
	OptimizedParameters map[string]float64 `json:"optimized_parameters"`
	ExpectedImprovement map[string]float64 `json:"expected_improvement"` // metric -> fractional improvement
	// SupportingFindings carries the significant correlations from the
	// location's current window, strongest first, as statistical evidence
	// for the parameter moves.
	SupportingFindings []CorrelationFinding `json:"supporting_findings,omitempty"`
	Confidence         float64              `json:"confidence_score"`
	Priority           Priority             `json:"priority"`
}

// CorrelationFinding is the statistical summary for one (weather factor,
// production metric) pair over the current window. Findings are rebuilt as a
// set from the full window, never patched in place.
type CorrelationFinding struct {
	WeatherFactor      string     `json:"weather_factor"`
	ProductionMetric   string     `json:"production_metric"`
	Coefficient        float64    `json:"coefficient"` // Pearson r in [-1,1]
	PValue             float64    `json:"p_value"`
	Significance       string     `json:"significance"` // "significant" when p < 0.05
	SampleSize         int        `json:"sample_size"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
}

// Significant reports whether the finding passed the p < 0.05 test.
func (f CorrelationFinding) Significant() bool {
	return f.Significance == "significant"
}
