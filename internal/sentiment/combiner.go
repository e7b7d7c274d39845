package sentiment

import (
	"math"

	"github.com/spec-kit/support-engine/internal/domain"
)

// Default strategy weights.
const (
	DefaultLexiconWeight     = 0.5
	DefaultPatternWeight     = 0.3
	DefaultStatisticalWeight = 0.2
)

// Neutral band: combined scores inside it are NEUTRAL no matter which side of
// the positive threshold they fall on.
const (
	neutralBandLow    = 0.3
	neutralBandHigh   = 0.7
	positiveThreshold = 0.5
)

// DefaultWeights returns the shipped per-strategy weights.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"lexicon":     DefaultLexiconWeight,
		"pattern":     DefaultPatternWeight,
		"statistical": DefaultStatisticalWeight,
	}
}

// Combiner folds per-strategy results into a single verdict.
type Combiner struct {
	weights map[string]float64
}

// NewCombiner builds a combiner. Strategies without a configured weight get
// weight 1.
func NewCombiner(weights map[string]float64) *Combiner {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &Combiner{weights: weights}
}

// Combine produces the verdict. The combined score is a confidence-weighted
// average of raw scores, falling back to a plain average when every strategy
// reported zero confidence. Verdict confidence is the weighted mean of
// strategy confidences, cut down by disagreement between the raw scores: a
// decisive-looking average from strategies that contradict each other must
// not read as a confident verdict.
func (c *Combiner) Combine(results map[string]Result) domain.SentimentVerdict {
	if len(results) == 0 {
		return NeutralVerdict()
	}

	raws := make(map[string]float64, len(results))
	var weightedSum, effectiveWeight float64
	var plainSum float64
	var confSum, confWeight float64

	for name, res := range results {
		raws[name] = res.Raw
		w := c.weightFor(name)
		weightedSum += res.Raw * w * res.Confidence
		effectiveWeight += w * res.Confidence
		plainSum += res.Raw
		confSum += res.Confidence * w
		confWeight += w
	}

	var score float64
	if effectiveWeight > 0 {
		score = weightedSum / effectiveWeight
	} else {
		score = plainSum / float64(len(results))
	}
	score = clamp01(score)

	confidence := 0.0
	if confWeight > 0 {
		confidence = confSum / confWeight
	}
	confidence *= 1 - stdDev(raws)

	return domain.SentimentVerdict{
		RawScores:     raws,
		CombinedScore: score,
		Label:         classify(score),
		Confidence:    clamp01(confidence),
	}
}

// NeutralVerdict is the degraded output when no strategy produced anything.
func NeutralVerdict() domain.SentimentVerdict {
	return domain.SentimentVerdict{
		RawScores:     map[string]float64{},
		CombinedScore: 0.5,
		Label:         domain.SentimentNeutral,
		Confidence:    0,
	}
}

func (c *Combiner) weightFor(name string) float64 {
	if w, ok := c.weights[name]; ok && w > 0 {
		return w
	}
	return 1
}

// classify checks the neutral band before the positive threshold.
func classify(score float64) domain.SentimentLabel {
	if score >= neutralBandLow && score <= neutralBandHigh {
		return domain.SentimentNeutral
	}
	if score >= positiveThreshold {
		return domain.SentimentPositive
	}
	return domain.SentimentNegative
}

func stdDev(scores map[string]float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	var variance float64
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(scores))
	return math.Sqrt(variance)
}
