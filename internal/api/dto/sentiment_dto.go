package dto

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// AnalyzeSentimentRequest payload.
type AnalyzeSentimentRequest struct {
	Text           string  `json:"text" validate:"required,max=10000"`
	Context        string  `json:"context" validate:"max=2000"`
	ConversationID *string `json:"conversation_id"`
}

// SentimentLogResponse is one recorded verdict.
type SentimentLogResponse struct {
	ID             string                `json:"id"`
	ConversationID *string               `json:"conversation_id,omitempty"`
	UserID         *string               `json:"user_id,omitempty"`
	Text           string                `json:"text"`
	Context        string                `json:"context,omitempty"`
	RawScores      map[string]float64    `json:"raw_scores"`
	CombinedScore  float64               `json:"combined_score"`
	Label          domain.SentimentLabel `json:"label"`
	Confidence     float64               `json:"confidence"`
	CreatedAt      time.Time             `json:"created_at"`
}

// SentimentSummaryResponse aggregates verdicts over a reporting window.
type SentimentSummaryResponse struct {
	WindowHours   int     `json:"window_hours"`
	TotalAnalyzed int     `json:"total_analyzed"`
	PositiveCount int     `json:"positive_count"`
	NeutralCount  int     `json:"neutral_count"`
	NegativeCount int     `json:"negative_count"`
	AverageScore  float64 `json:"average_score"`
}
