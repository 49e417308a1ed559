package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AlertLevel is a totally ordered escalation level. Rules may raise it and
// never lower it during a single evaluation.
type AlertLevel int

const (
	AlertLow AlertLevel = iota
	AlertMedium
	AlertHigh
	AlertCritical
)

var alertNames = [...]string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (a AlertLevel) String() string {
	if a < AlertLow || a > AlertCritical {
		return fmt.Sprintf("AlertLevel(%d)", int(a))
	}
	return alertNames[a]
}

// Raise returns the higher of the two levels.
func (a AlertLevel) Raise(to AlertLevel) AlertLevel {
	if to > a {
		return to
	}
	return a
}

func (a AlertLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *AlertLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range alertNames {
		if strings.EqualFold(s, name) {
			*a = AlertLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown alert level %q", s)
}

// HoldRelease is the binary production-continuation decision.
type HoldRelease string

const (
	Continue HoldRelease = "CONTINUE"
	Hold     HoldRelease = "HOLD"
)

// Recommendation is the output of one recommender evaluation. Created fresh
// per call and never mutated after return; callers wanting an updated
// recommendation evaluate again with fresh inputs.
type Recommendation struct {
	DryerTempF      float64     `json:"recommended_dryer_temp"` // °F, clamped to [100,200]
	PreMixTimeDelta float64     `json:"pre_mix_time_delta"`     // seconds, clamped to [-300,600]
	HoldRelease     HoldRelease `json:"hold_release_flag"`
	AlertLevel      AlertLevel  `json:"alert_level"`
	Confidence      float64     `json:"confidence_score"` // [0.1,1.0]
	Rationale       []string    `json:"rationale"`        // append-only during evaluation
	Timestamp       time.Time   `json:"timestamp"`
}

// RationaleText joins the accumulated rationale for display and for the
// brevity heuristic in confidence scoring.
func (r Recommendation) RationaleText() string {
	return strings.Join(r.Rationale, " ")
}
