package domain

import "time"

// SentimentLabel classifies analyzed text.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
	SentimentNegative SentimentLabel = "NEGATIVE"
)

// SentimentVerdict is the immutable combined result for a piece of text.
// RawScores keeps each strategy's contribution for downstream analytics.
type SentimentVerdict struct {
	RawScores     map[string]float64
	CombinedScore float64
	Label         SentimentLabel
	Confidence    float64
}

// SentimentLog persists one analysis for audit and reporting.
type SentimentLog struct {
	ID             string
	ConversationID *string
	UserID         *string
	Text           string
	Context        string
	RawScores      map[string]float64
	CombinedScore  float64
	Label          SentimentLabel
	Confidence     float64
	CreatedAt      time.Time
}

// SentimentSummary aggregates logs over a reporting window.
type SentimentSummary struct {
	WindowHours   int
	TotalAnalyzed int
	PositiveCount int
	NeutralCount  int
	NegativeCount int
	AverageScore  float64
}
