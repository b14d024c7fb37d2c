package scoring

import (
	"math"

	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Score Aggregator ───────────────────────────────────────────────────────

// Aggregate combines the five raw component scores into one total:
// round(Σ raw × weight), clamped to [0, 1000]. Callers are responsible for
// the cold-start short-circuit — Aggregate always applies the formula.
func Aggregate(raw map[domain.Component]float64, w Weights) int {
	var sum float64
	for _, c := range domain.Components() {
		sum += raw[c] * w.Of(c)
	}
	total := int(math.Round(sum))
	if total < 0 {
		return 0
	}
	if total > int(ScoreMax) {
		return int(ScoreMax)
	}
	return total
}

// BuildComponents expands raw component values into the per-component
// breakdown carried on every snapshot: raw value plus weighted contribution.
func BuildComponents(raw map[domain.Component]float64, w Weights) map[domain.Component]domain.ComponentScore {
	out := make(map[domain.Component]domain.ComponentScore, len(raw))
	for _, c := range domain.Components() {
		weight := w.Of(c)
		out[c] = domain.ComponentScore{
			Raw:          raw[c],
			Weight:       weight,
			Contribution: raw[c] * weight,
		}
	}
	return out
}

// ZeroComponents returns an all-zero breakdown carrying the weight table.
// Cold-start snapshots use it: the weighted formula is bypassed there, so
// no component may record a nonzero contribution.
func ZeroComponents(w Weights) map[domain.Component]domain.ComponentScore {
	out := make(map[domain.Component]domain.ComponentScore, 5)
	for _, c := range domain.Components() {
		out[c] = domain.ComponentScore{Raw: 0, Weight: w.Of(c), Contribution: 0}
	}
	return out
}
