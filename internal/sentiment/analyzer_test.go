package sentiment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
)

type stubStrategy struct {
	name   string
	result Result
	err    error
	panics bool
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Score(_, _ string) (Result, error) {
	if s.panics {
		panic("strategy exploded")
	}
	return s.result, s.err
}

func newTestAnalyzer(strategies ...Strategy) *Analyzer {
	logger := zap.NewNop()
	return NewAnalyzer(strategies, NewCombiner(nil), NewRulesEngine(nil, logger), logger)
}

func TestAnalyzeEmptyTextIsNeutral(t *testing.T) {
	analyzer := NewDefaultAnalyzer(nil, zap.NewNop())

	for _, text := range []string{"", "   ", "\n\t"} {
		verdict := analyzer.Analyze(text, "")
		assert.Equal(t, domain.SentimentNeutral, verdict.Label)
		assert.InDelta(t, 0.5, verdict.CombinedScore, 1e-9)
		assert.Zero(t, verdict.Confidence)
	}
}

func TestAnalyzeAbsorbsStrategyFailure(t *testing.T) {
	tests := []struct {
		name  string
		flaky Strategy
	}{
		{"error", &stubStrategy{name: "flaky", err: errors.New("lexicon unavailable")}},
		{"panic", &stubStrategy{name: "flaky", panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := newTestAnalyzer(
				tt.flaky,
				&stubStrategy{name: "solid", result: Result{Raw: 0.9, Confidence: 1}},
			)

			verdict := analyzer.Analyze("some text", "")

			require.Len(t, verdict.RawScores, 2)
			assert.InDelta(t, 0.5, verdict.RawScores["flaky"], 1e-9)
			assert.InDelta(t, 0.9, verdict.RawScores["solid"], 1e-9)
			// The confident strategy carries the combined score.
			assert.InDelta(t, 0.9, verdict.CombinedScore, 1e-9)
			assert.Equal(t, domain.SentimentPositive, verdict.Label)
		})
	}
}

func TestAnalyzeClampsStrategyOutput(t *testing.T) {
	analyzer := newTestAnalyzer(
		&stubStrategy{name: "wild", result: Result{Raw: 3.2, Confidence: -1}},
	)

	verdict := analyzer.Analyze("some text", "")
	assert.InDelta(t, 1.0, verdict.RawScores["wild"], 1e-9)
	assert.LessOrEqual(t, verdict.CombinedScore, 1.0)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	analyzer := NewDefaultAnalyzer(nil, zap.NewNop())

	tests := []struct {
		name string
		text string
		want domain.SentimentLabel
	}{
		{"clearly negative", "this is terrible, everything is broken and the error keeps happening", domain.SentimentNegative},
		{"override forces negative", "wonderful, now i need a refund immediately", domain.SentimentNegative},
		{"plain factual text", "the meeting is scheduled for thursday", domain.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := analyzer.Analyze(tt.text, "")
			assert.Equal(t, tt.want, verdict.Label)
			assert.GreaterOrEqual(t, verdict.CombinedScore, 0.0)
			assert.LessOrEqual(t, verdict.CombinedScore, 1.0)
		})
	}
}
