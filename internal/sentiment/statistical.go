package sentiment

import "math"

// StatisticalStrategy averages per-word polarity and pulls the result toward
// neutral for short texts, on the grounds that a few words carry little
// distributional signal.
type StatisticalStrategy struct{}

func NewStatisticalStrategy() *StatisticalStrategy { return &StatisticalStrategy{} }

func (s *StatisticalStrategy) Name() string { return "statistical" }

func (s *StatisticalStrategy) Score(text, _ string) (Result, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return NeutralResult(), nil
	}

	var sum float64
	var polar int
	for _, tok := range tokens {
		score := wordSentiment(tok)
		if score != 0.5 {
			polar++
		}
		sum += score
	}
	average := sum / float64(len(tokens))

	lengthFactor := math.Min(float64(len(tokens))/30, 1.0)
	raw := 0.5 + (average-0.5)*lengthFactor

	if polar == 0 {
		return NeutralResult(), nil
	}

	coverage := float64(polar) / float64(len(tokens))
	return Result{
		Raw:        raw,
		Confidence: clamp01(lengthFactor * math.Min(1, coverage*4)),
		Evidence:   []string{evidenceNote("polar_words", polar), evidenceNote("length_factor", lengthFactor)},
	}, nil
}

func wordSentiment(word string) float64 {
	switch {
	case positiveWords.contains(word):
		return 0.75
	case negativeWords.contains(word):
		return 0.25
	case neutralWords.contains(word):
		return 0.5
	}
	return 0.5
}
