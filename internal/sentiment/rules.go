package sentiment

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
)

// Rule is an override applied after combination. When it matches it forces a
// label; it never touches the combined score or confidence.
type Rule interface {
	Name() string
	Evaluate(text, context string, verdict domain.SentimentVerdict) (domain.SentimentLabel, bool, error)
}

// RulesEngine runs rules in order; the first match wins. A rule that errors
// or panics counts as a non-match so analysis always completes.
type RulesEngine struct {
	rules  []Rule
	logger *zap.Logger
}

func NewRulesEngine(rules []Rule, logger *zap.Logger) *RulesEngine {
	return &RulesEngine{rules: rules, logger: logger}
}

// Apply returns the verdict with at most its label replaced.
func (e *RulesEngine) Apply(text, context string, verdict domain.SentimentVerdict) domain.SentimentVerdict {
	for _, rule := range e.rules {
		label, matched := e.evaluate(rule, text, context, verdict)
		if matched {
			verdict.Label = label
			return verdict
		}
	}
	return verdict
}

func (e *RulesEngine) evaluate(rule Rule, text, context string, verdict domain.SentimentVerdict) (label domain.SentimentLabel, matched bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("sentiment rule panicked, treating as non-match",
				zap.String("rule", rule.Name()), zap.Any("panic", r))
			matched = false
		}
	}()

	label, matched, err := rule.Evaluate(text, context, verdict)
	if err != nil {
		e.logger.Warn("sentiment rule failed, treating as non-match",
			zap.String("rule", rule.Name()), zap.Error(err))
		return "", false
	}
	return label, matched
}

// KeywordRule forces a label when any of its phrases appears in the text.
type KeywordRule struct {
	RuleName    string
	Phrases     []string
	ForcedLabel domain.SentimentLabel
}

func (r *KeywordRule) Name() string { return r.RuleName }

func (r *KeywordRule) Evaluate(text, _ string, _ domain.SentimentVerdict) (domain.SentimentLabel, bool, error) {
	lowered := strings.ToLower(text)
	for _, phrase := range r.Phrases {
		if containsPhrase(lowered, phrase) {
			return r.ForcedLabel, true, nil
		}
	}
	return "", false, nil
}

// NegationRule catches positive words cancelled by a directly preceding
// negation ("not happy"), which the word-counting strategies misread.
type NegationRule struct{}

func (r *NegationRule) Name() string { return "negated_positive" }

func (r *NegationRule) Evaluate(text, _ string, verdict domain.SentimentVerdict) (domain.SentimentLabel, bool, error) {
	if verdict.Label != domain.SentimentPositive {
		return "", false, nil
	}
	tokens := tokenize(text)
	for i := 1; i < len(tokens); i++ {
		if negationWords.contains(tokens[i-1]) && positiveWords.contains(tokens[i]) {
			return domain.SentimentNegative, true, nil
		}
	}
	return "", false, nil
}

// SarcasmRule demotes suspiciously enthusiastic verdicts that carry sarcasm
// markers to neutral rather than trusting the surface positivity.
type SarcasmRule struct {
	patterns []*regexp.Regexp
}

func NewSarcasmRule() *SarcasmRule {
	return &SarcasmRule{patterns: sarcasmPatterns}
}

func (r *SarcasmRule) Name() string { return "sarcasm" }

func (r *SarcasmRule) Evaluate(text, _ string, verdict domain.SentimentVerdict) (domain.SentimentLabel, bool, error) {
	if verdict.Label != domain.SentimentPositive {
		return "", false, nil
	}
	lowered := strings.ToLower(text)
	for _, p := range r.patterns {
		if p.MatchString(lowered) {
			return domain.SentimentNeutral, true, nil
		}
	}
	return "", false, nil
}

// ChannelRule reshapes the verdict for known intake channels: complaint-style
// channels read flat wording as negative, review channels sharpen decisive
// scores. The adjusted score lives only inside the rule; the match fires only
// when reclassifying it lands on a different label.
type ChannelRule struct{}

type channelAdjustment struct {
	boostNegative  float64
	reducePositive float64
	boostPositive  float64
	boostExtremes  float64
}

var channelAdjustments = map[string]channelAdjustment{
	"complaint":        {boostNegative: 1.2, reducePositive: 0.7},
	"support_request":  {boostNegative: 1.15, reducePositive: 0.8},
	"feedback":         {boostNegative: 1.1, boostPositive: 1.1},
	"product_review":   {boostExtremes: 1.2},
	"customer_service": {boostPositive: 1.15},
}

func (r *ChannelRule) Name() string { return "channel_adjustment" }

func (r *ChannelRule) Evaluate(_, context string, verdict domain.SentimentVerdict) (domain.SentimentLabel, bool, error) {
	adj, ok := channelAdjustments[strings.ToLower(strings.TrimSpace(context))]
	if !ok {
		return "", false, nil
	}

	score := verdict.CombinedScore
	adjusted := score
	if adj.boostNegative > 0 && score < 0.5 {
		adjusted = 0.5 - (0.5-score)*adj.boostNegative
	}
	if adj.reducePositive > 0 && score > 0.5 {
		adjusted = 0.5 + (score-0.5)*adj.reducePositive
	}
	if adj.boostPositive > 0 && score > 0.5 {
		adjusted = 0.5 + (score-0.5)*adj.boostPositive
	}
	if adj.boostExtremes > 0 && (score > 0.6 || score < 0.4) {
		adjusted = 0.5 + (score-0.5)*adj.boostExtremes
	}

	label := classify(adjusted)
	if label == verdict.Label {
		return "", false, nil
	}
	return label, true, nil
}

var negationWords = newWordSet(
	"not", "no", "never", "neither", "nobody", "nothing",
	"nowhere", "none", "cannot", "cant", "wont", "wouldnt",
	"shouldnt", "doesnt", "dont", "didnt", "hasnt", "havent",
	"isnt", "arent", "wasnt", "werent", "aint",
)

var sarcasmPatterns = []*regexp.Regexp{
	regexp.MustCompile(`yeah\s+right`),
	regexp.MustCompile(`oh\s+(great|wonderful|fantastic|brilliant)`),
	regexp.MustCompile(`sure\s+\w+\s+sure`),
	regexp.MustCompile(`thanks\s+for\s+nothing`),
}

// DefaultRules is the shipped override set, ordered by precedence.
func DefaultRules() []Rule {
	return []Rule{
		&KeywordRule{
			RuleName:    "profanity",
			Phrases:     []string{"damn", "hell no", "wtf", "bullshit", "crap", "screw this", "screw you"},
			ForcedLabel: domain.SentimentNegative,
		},
		&KeywordRule{
			RuleName:    "anger",
			Phrases:     []string{"angry", "furious", "enraged", "outraged"},
			ForcedLabel: domain.SentimentNegative,
		},
		&KeywordRule{
			RuleName:    "urgency",
			Phrases:     []string{"urgent", "asap", "immediately", "emergency"},
			ForcedLabel: domain.SentimentNegative,
		},
		&KeywordRule{
			RuleName:    "refund_demand",
			Phrases:     []string{"refund", "money back", "chargeback", "cancel my"},
			ForcedLabel: domain.SentimentNegative,
		},
		&NegationRule{},
		NewSarcasmRule(),
		&ChannelRule{},
	}
}

// containsPhrase does a word-boundary aware substring check so "class" does
// not trip an "ass" phrase.
func containsPhrase(text, phrase string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], phrase)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(phrase)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

func boundaryBefore(text string, i int) bool {
	return i == 0 || !isWordByte(text[i-1])
}

func boundaryAfter(text string, i int) bool {
	return i >= len(text) || !isWordByte(text[i])
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// EscalationSignals reports which escalation trigger groups fire for the
// text. Used by priority derivation, not by label overrides.
func EscalationSignals(text string) []string {
	lowered := strings.ToLower(text)
	var signals []string
	for _, group := range escalationKeywordGroups {
		for _, phrase := range group.phrases {
			if containsPhrase(lowered, phrase) {
				signals = append(signals, group.name)
				break
			}
		}
	}
	return signals
}

var escalationKeywordGroups = []struct {
	name    string
	phrases []string
}{
	{"angry", []string{"angry", "furious", "enraged", "outraged"}},
	{"urgent", []string{"urgent", "asap", "immediately", "emergency", "critical"}},
	{"complaint", []string{"complaint", "complain", "issue", "problem", "broken"}},
	{"refund", []string{"refund", "money back", "return", "cancel", "charge"}},
}
