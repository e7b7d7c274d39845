package sentiment

import "fmt"

var positiveWords = newWordSet(
	"happy", "joy", "joyful", "glad", "delighted", "pleased",
	"excited", "thrilled", "ecstatic", "wonderful", "fantastic",
	"excellent", "amazing", "awesome", "great", "good", "nice",
	"beautiful", "lovely", "charming", "pleasant", "delightful",
	"satisfied", "content", "cheerful", "upbeat", "optimistic",
	"love", "adore", "appreciate", "grateful", "thankful", "blessed",
	"honored", "proud", "confident", "brave", "strong", "powerful",
	"perfect", "superb", "outstanding", "magnificent", "brilliant",
	"stellar", "tremendous", "remarkable", "impressive", "noteworthy",
	"creative", "innovative", "intelligent", "smart", "clever",
	"success", "win", "won", "achieved", "accomplished", "completed",
	"solved", "fixed", "improved", "enhanced", "upgraded", "better",
	"superior", "premium", "quality", "professional",
	"agree", "yes", "alright", "sure", "absolutely", "definitely",
	"certainly", "indeed", "true", "correct", "right",
	"recommend", "suggest", "advise", "best", "ideal", "suitable",
	"appropriate", "worthy", "deserving", "justified", "reasonable",
)

var negativeWords = newWordSet(
	"sad", "unhappy", "depressed", "miserable", "despair", "hopeless",
	"angry", "furious", "enraged", "outraged", "livid", "mad",
	"frustrated", "irritated", "annoyed", "bothered", "upset",
	"disappointed", "discouraged", "disheartened",
	"anxious", "worried", "nervous", "scared", "afraid", "terrified",
	"confused", "bewildered", "puzzled", "perplexed",
	"bad", "terrible", "awful", "horrible", "dreadful", "atrocious",
	"disgusting", "repulsive", "revolting", "nasty", "vile", "ugly",
	"mediocre", "poor", "subpar", "inferior", "weak", "useless",
	"worthless", "ineffective", "inefficient", "broken", "buggy",
	"problem", "issue", "defect", "fault", "error", "bug", "glitch",
	"crash", "fail", "failed", "failure", "mistake", "wrong",
	"damage", "damaged", "destroy", "destroyed", "harm", "hurt",
	"complain", "complaint", "gripe", "whine", "moan", "rant",
	"hate", "despise", "detest", "abhor", "loathe", "dislike",
	"avoid", "refuse", "reject", "dismiss", "ignore",
	"no", "not", "never", "neither", "none", "nothing",
	"nobody", "nowhere", "pointless",
	"disagree", "incorrect", "false", "misleading", "deceptive",
	"fraudulent", "dishonest", "unfair", "unjust", "unreasonable",
	"expensive", "overpriced", "costly", "waste", "scam", "fraud",
	"refund", "charge", "cancel", "return", "sue",
)

var neutralWords = newWordSet(
	"okay", "fine", "normal", "average", "regular",
	"common", "usual", "typical", "standard", "basic", "simple",
	"interesting", "notable", "significant", "important", "relevant",
)

// LexiconStrategy scores text by the balance of positive vs negative words.
type LexiconStrategy struct{}

func NewLexiconStrategy() *LexiconStrategy { return &LexiconStrategy{} }

func (s *LexiconStrategy) Name() string { return "lexicon" }

// Score returns positives/(positives+negatives). With no polar hits the text
// is neutral and confidence is zero; confidence otherwise grows with the
// number of polar hits.
func (s *LexiconStrategy) Score(text, _ string) (Result, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return NeutralResult(), nil
	}

	var positives, negatives int
	var evidence []string
	for _, tok := range tokens {
		switch {
		case positiveWords.contains(tok):
			positives++
			evidence = append(evidence, "+"+tok)
		case negativeWords.contains(tok):
			negatives++
			evidence = append(evidence, "-"+tok)
		}
	}

	total := positives + negatives
	if total == 0 {
		return NeutralResult(), nil
	}

	return Result{
		Raw:        float64(positives) / float64(total),
		Confidence: clamp01(float64(total) / 4),
		Evidence:   evidence,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func evidenceNote(kind string, value any) string {
	return fmt.Sprintf("%s=%v", kind, value)
}
