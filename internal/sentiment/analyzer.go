package sentiment

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
)

// Analyzer runs every strategy, combines their results, and applies the
// override rules. Strategies run concurrently; one failing or panicking
// strategy degrades to a neutral contribution instead of failing the
// analysis.
type Analyzer struct {
	strategies []Strategy
	combiner   *Combiner
	rules      *RulesEngine
	logger     *zap.Logger
}

func NewAnalyzer(strategies []Strategy, combiner *Combiner, rules *RulesEngine, logger *zap.Logger) *Analyzer {
	return &Analyzer{strategies: strategies, combiner: combiner, rules: rules, logger: logger}
}

// NewDefaultAnalyzer wires the three shipped strategies, the given weights,
// and the default override rules.
func NewDefaultAnalyzer(weights map[string]float64, logger *zap.Logger) *Analyzer {
	return NewAnalyzer(
		[]Strategy{NewLexiconStrategy(), NewPatternStrategy(), NewStatisticalStrategy()},
		NewCombiner(weights),
		NewRulesEngine(DefaultRules(), logger),
		logger,
	)
}

// Analyze produces the verdict for one piece of text. Empty text yields the
// neutral verdict with zero confidence.
func (a *Analyzer) Analyze(text, context string) domain.SentimentVerdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NeutralVerdict()
	}

	results := make(map[string]Result, len(a.strategies))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, strategy := range a.strategies {
		wg.Add(1)
		go func(s Strategy) {
			defer wg.Done()
			res := a.scoreSafely(s, trimmed, context)
			mu.Lock()
			results[s.Name()] = res
			mu.Unlock()
		}(strategy)
	}
	wg.Wait()

	verdict := a.combiner.Combine(results)
	return a.rules.Apply(trimmed, context, verdict)
}

func (a *Analyzer) scoreSafely(s Strategy, text, context string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("sentiment strategy panicked, using neutral default",
				zap.String("strategy", s.Name()), zap.Any("panic", r))
			res = NeutralResult()
		}
	}()

	res, err := s.Score(text, context)
	if err != nil {
		a.logger.Warn("sentiment strategy failed, using neutral default",
			zap.String("strategy", s.Name()), zap.Error(err))
		return NeutralResult()
	}
	res.Raw = clamp01(res.Raw)
	res.Confidence = clamp01(res.Confidence)
	return res
}
