package recommend

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

// Recommender evaluates weather and production inputs into operating
// parameter recommendations. Evaluation is pure and deterministic for a
// given Params; the same inputs always yield the same recommendation.
type Recommender struct {
	params Params
	rules  []rule
	logger *slog.Logger
}

func New(params Params, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{params: params, rules: orderedRules(), logger: logger}
}

// Evaluate runs the rule chain over the inputs. A panic anywhere in the
// chain is recovered into a safe fallback recommendation rather than
// propagated; production floors prefer a conservative default over a
// crashed optimizer.
func (r *Recommender) Evaluate(in Inputs) (rec domain.Recommendation) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("recommendation evaluation panicked, using fallback",
				slog.String("site_id", in.SiteID),
				slog.Any("panic", p),
			)
			rec = r.fallback(fmt.Sprintf("Error in rule evaluation: %v", p))
		}
	}()

	rec = r.baseline()
	d := deriveImpacts(in, r.params)
	for _, apply := range r.rules {
		rec = apply(rec, d, in, r.params)
	}
	rec = validate(rec, r.params)
	rec = scoreConfidence(rec, in, r.params)
	rec.Timestamp = domain.Now()

	r.logger.Debug("recommendation evaluated",
		slog.String("site_id", in.SiteID),
		slog.Float64("dryer_temp_f", rec.DryerTempF),
		slog.Float64("pre_mix_delta_s", rec.PreMixTimeDelta),
		slog.String("hold_release", string(rec.HoldRelease)),
		slog.String("alert_level", rec.AlertLevel.String()),
		slog.Float64("confidence", rec.Confidence),
	)
	return rec
}

func (r *Recommender) baseline() domain.Recommendation {
	return domain.Recommendation{
		DryerTempF:      r.params.DefaultDryerTempF,
		PreMixTimeDelta: 0,
		HoldRelease:     domain.Continue,
		AlertLevel:      domain.AlertLow,
	}
}

// fallback is the recommendation returned when evaluation fails: defaults,
// a MEDIUM alert so operators notice, and floor confidence.
func (r *Recommender) fallback(note string) domain.Recommendation {
	rec := r.baseline()
	rec.AlertLevel = domain.AlertMedium
	rec.Rationale = []string{"Using default parameters due to evaluation error.", note}
	rec = validate(rec, r.params)
	rec.Confidence = r.params.ConfidenceMin
	rec.Timestamp = domain.Now()
	return rec
}
