package sentiment

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	positiveEmoticons = regexp.MustCompile(`:\)|:-\)|:D|:-D|;\)|;-\)|\^_\^|\^\^|😊|😃|😄|😁|😆|😂|😍|👍|🎉`)
	negativeEmoticons = regexp.MustCompile(`:\(|:-\(|:'\(|:\[|>:\(|>:-\(|:@|:-@|😢|😭|😞|😠|😡|👎|💔|😤|🤬`)
)

// PatternStrategy scores text from surface signals: emoticons, punctuation
// density, and typographic emphasis. Signals blend into a neutral baseline.
type PatternStrategy struct{}

func NewPatternStrategy() *PatternStrategy { return &PatternStrategy{} }

func (s *PatternStrategy) Name() string { return "pattern" }

func (s *PatternStrategy) Score(text, _ string) (Result, error) {
	score := 0.5
	var fired int
	var evidence []string

	if emoticon, ok := checkEmoticons(text); ok {
		score = emoticon
		fired++
		evidence = append(evidence, evidenceNote("emoticon", emoticon))
	}
	if punct, ok := checkPunctuation(text); ok {
		score = (score + punct) / 2
		fired++
		evidence = append(evidence, evidenceNote("punctuation", punct))
	}
	if emphasis, ok := checkEmphasis(text); ok {
		score = (score + emphasis) / 2
		fired++
		evidence = append(evidence, evidenceNote("emphasis", emphasis))
	}

	if fired == 0 {
		return NeutralResult(), nil
	}
	return Result{
		Raw:        score,
		Confidence: float64(fired) / 3,
		Evidence:   evidence,
	}, nil
}

func checkEmoticons(text string) (float64, bool) {
	if positiveEmoticons.MatchString(text) {
		return 0.8, true
	}
	if negativeEmoticons.MatchString(text) {
		return 0.2, true
	}
	return 0, false
}

// checkPunctuation reads exclamation and question density. Stacked
// exclamations lean positive, stacked questions signal confusion.
func checkPunctuation(text string) (float64, bool) {
	exclamations := strings.Count(text, "!")
	questions := strings.Count(text, "?")

	switch {
	case exclamations > 2:
		return 0.7, true
	case questions > 2:
		return 0.4, true
	case exclamations == 1:
		return 0.6, true
	}
	return 0, false
}

// checkEmphasis reads shouting (mostly upper case, usually anger) and
// stretched characters ("sooooo", usually excitement).
func checkEmphasis(text string) (float64, bool) {
	var upper int
	for _, r := range text {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if ratio := float64(upper) / float64(len(text)+1); ratio > 0.5 {
		return 0.3, true
	}

	if hasStretchedRun(text, 4) {
		return 0.6, true
	}
	return 0, false
}

func hasStretchedRun(text string, minRun int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= minRun {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
