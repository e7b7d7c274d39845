package sentiment

import "strings"

// Result carries one strategy's contribution to a verdict. Confidence is the
// strategy's own trust in its raw score; zero means it saw nothing usable.
type Result struct {
	Raw        float64
	Confidence float64
	Evidence   []string
}

// NeutralResult is what a strategy reports when it cannot score the text.
func NeutralResult() Result {
	return Result{Raw: 0.5, Confidence: 0}
}

// Strategy scores text in [0,1] where 0 is negative and 1 is positive.
// Implementations hold no mutable state and are safe for concurrent use.
type Strategy interface {
	Name() string
	Score(text, context string) (Result, error)
}

// tokenize lowercases and splits text, stripping punctuation from each token.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := normalizeToken(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func normalizeToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	set := make(wordSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func (s wordSet) contains(word string) bool {
	_, ok := s[word]
	return ok
}
