package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/couchcryptid/weather-production-optimizer/internal/correlate"
	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
	"github.com/couchcryptid/weather-production-optimizer/internal/recommend"
)

// Publisher delivers optimization records to downstream consumers.
type Publisher interface {
	PublishOptimization(ctx context.Context, record domain.OptimizationRecord) error
}

// Store persists optimization records for audit and replay.
type Store interface {
	SaveOptimization(ctx context.Context, record domain.OptimizationRecord) error
}

// Config holds the dispatch gates and parameter baselines.
type Config struct {
	ConfidenceGate   float64 // minimum confidence to emit, default 0.7
	BaselineDryerF   float64 // dryer setpoint considered "no change"
	BaselinePreMixS  float64 // pre-mix delta considered "no change"
	HumidityDriverAt float64 // humidity above this attributes pre-mix changes to moisture
}

func DefaultConfig() Config {
	return Config{
		ConfidenceGate:   0.7,
		BaselineDryerF:   150,
		BaselinePreMixS:  0,
		HumidityDriverAt: 65,
	}
}

// Dispatcher evaluates production events against their weather context and
// emits optimization records when the recommendation clears the confidence
// gate and moves at least one parameter off its baseline. Publish and persist
// failures are logged and do not fail the dispatch.
type Dispatcher struct {
	recommender *recommend.Recommender
	publisher   Publisher
	store       Store
	cfg         Config
	logger      *slog.Logger
}

func New(r *recommend.Recommender, pub Publisher, store Store, cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{recommender: r, publisher: pub, store: store, cfg: cfg, logger: logger}
}

// Dispatch runs the recommender for one event and, when warranted, emits an
// optimization record backed by the location's current correlation snapshot.
// The recommendation is always returned; the record is nil when the event did
// not warrant one. A nil snapshot means no window has been computed yet.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.ProductionEvent, weather *domain.WeatherContext, findings *correlate.Snapshot) (domain.Recommendation, *domain.OptimizationRecord) {
	rec := d.recommender.Evaluate(buildInputs(event, weather))

	if rec.Confidence < d.cfg.ConfidenceGate {
		d.logger.Debug("recommendation below confidence gate",
			slog.String("event_id", event.EventID),
			slog.Float64("confidence", rec.Confidence),
		)
		return rec, nil
	}
	if !d.movesOffBaseline(rec) {
		return rec, nil
	}

	record := d.buildRecord(event, weather, findings, rec)
	d.emit(ctx, record)
	return rec, &record
}

func (d *Dispatcher) movesOffBaseline(rec domain.Recommendation) bool {
	const eps = 1e-9
	return math.Abs(rec.DryerTempF-d.cfg.BaselineDryerF) > eps ||
		math.Abs(rec.PreMixTimeDelta-d.cfg.BaselinePreMixS) > eps ||
		rec.HoldRelease == domain.Hold
}

func (d *Dispatcher) buildRecord(event domain.ProductionEvent, weather *domain.WeatherContext, findings *correlate.Snapshot, rec domain.Recommendation) domain.OptimizationRecord {
	return domain.OptimizationRecord{
		ID:             "opt-" + uuid.NewString(),
		LocationID:     event.LocationID,
		MachineID:      event.MachineID,
		Timestamp:      rec.Timestamp,
		TriggerSummary: triggerSummary(weather),
		CurrentParameters: map[string]float64{
			"dryer_temperature": d.cfg.BaselineDryerF,
			"pre_mix_time":      d.cfg.BaselinePreMixS,
		},
		OptimizedParameters: map[string]float64{
			"dryer_temperature": rec.DryerTempF,
			"pre_mix_time":      rec.PreMixTimeDelta,
		},
		ExpectedImprovement: d.expectedImprovement(weather, rec),
		SupportingFindings:  supportingFindings(findings),
		Confidence:          rec.Confidence,
		Priority:            assignPriority(rec),
	}
}

// supportingFindings extracts the significant correlations from the snapshot,
// strongest coefficient first. Ties break on factor then metric so the record
// is deterministic for a given window.
func supportingFindings(snap *correlate.Snapshot) []domain.CorrelationFinding {
	if snap == nil || len(snap.Findings) == 0 {
		return nil
	}
	var out []domain.CorrelationFinding
	for _, f := range snap.Findings {
		if f.Significant() {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Coefficient), math.Abs(out[j].Coefficient)
		if ai != aj {
			return ai > aj
		}
		if out[i].WeatherFactor != out[j].WeatherFactor {
			return out[i].WeatherFactor < out[j].WeatherFactor
		}
		return out[i].ProductionMetric < out[j].ProductionMetric
	})
	return out
}

// assignPriority maps alert level and confidence to handling priority.
func assignPriority(rec domain.Recommendation) domain.Priority {
	highRisk := rec.AlertLevel >= domain.AlertHigh
	switch {
	case highRisk && rec.Confidence > 0.8:
		return domain.PriorityImmediate
	case highRisk || rec.Confidence > 0.85:
		return domain.PriorityHigh
	case rec.Confidence > 0.75:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// expectedImprovement attributes the parameter moves to their weather drivers
// and estimates the resulting gains. Baseline figures come from the pilot
// facility's historical before/after comparisons; the ambient efficiency-loss
// curve and humidity pre-mix factor refine them when weather is known.
func (d *Dispatcher) expectedImprovement(weather *domain.WeatherContext, rec domain.Recommendation) map[string]float64 {
	imp := make(map[string]float64)

	dryerDelta := rec.DryerTempF - d.cfg.BaselineDryerF
	if dryerDelta != 0 {
		perDeg := math.Abs(dryerDelta)
		imp["energy_savings"] = perDeg * 0.02
		eff := perDeg * 0.015
		if weather != nil {
			// When ambient heat is the driver, the recoverable loss is
			// the piecewise curve, not the per-degree estimate.
			if loss := correlate.TemperatureEfficiencyImpact(weather.Observation.Temperature); loss > eff {
				eff = loss
			}
		}
		imp["efficiency"] = eff
	}
	if weather != nil && weather.Observation.Humidity > d.cfg.HumidityDriverAt &&
		rec.PreMixTimeDelta != d.cfg.BaselinePreMixS {
		factor := correlate.HumidityPreMixFactor(weather.Observation.Humidity, maxPreMixFactor)
		imp["quality_consistency"] = 0.20 * factor
		imp["defect_reduction"] = 0.15 * factor
	}
	if rec.HoldRelease == domain.Hold {
		imp["material_handling"] = 0.12
	}
	return imp
}

// maxPreMixFactor caps the humidity multiplier on pre-mix-driven gains.
const maxPreMixFactor = 1.5

// triggerSummary condenses the weather state that drove the change, e.g.
// "T:92.0°F H:78.0% P:29.80inHg".
func triggerSummary(weather *domain.WeatherContext) string {
	if weather == nil {
		return "no weather context"
	}
	obs := weather.Observation
	return fmt.Sprintf("T:%.1f°F H:%.1f%% P:%.2finHg", obs.Temperature, obs.Humidity, obs.Pressure)
}

func (d *Dispatcher) emit(ctx context.Context, record domain.OptimizationRecord) {
	if d.publisher != nil {
		if err := d.publisher.PublishOptimization(ctx, record); err != nil {
			d.logger.Error("failed to publish optimization",
				slog.String("id", record.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if d.store != nil {
		if err := d.store.SaveOptimization(ctx, record); err != nil {
			d.logger.Error("failed to persist optimization",
				slog.String("id", record.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	d.logger.Info("optimization dispatched",
		slog.String("id", record.ID),
		slog.String("location_id", record.LocationID),
		slog.String("priority", string(record.Priority)),
		slog.Float64("confidence", record.Confidence),
	)
}

// buildInputs maps an event and its weather context onto recommender inputs.
// Missing weather falls back to neutral conditions; the recommender then
// reacts only to production-side signals.
func buildInputs(event domain.ProductionEvent, weather *domain.WeatherContext) recommend.Inputs {
	in := recommend.NeutralInputs(event.LocationID)
	in.MachineClass = event.MachineClass

	metrics := event.Metrics()
	if metrics.Efficiency > 0 {
		in.CurrentEfficiency = metrics.Efficiency
	}
	if moisture, ok := event.Details["moisture_level"]; ok {
		in.MoistureLevel = &moisture
	}
	if speed, ok := event.Details["line_speed"]; ok {
		in.LineSpeed = speed
	}

	if weather != nil {
		obs := weather.Observation
		in.TemperatureAmbient = obs.Temperature
		in.HumidityRelative = obs.Humidity
		in.RainfallLast24h = obs.Precipitation
		in.SensorDataQuality = obs.QualityScore
	}
	return in
}
