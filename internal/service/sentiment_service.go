package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/sentiment"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// highConfidenceThreshold marks verdicts trusted enough to raise priority on
// their own.
const highConfidenceThreshold = 0.6

// SentimentService runs the analyzer and keeps the audit log of verdicts.
type SentimentService struct {
	analyzer   *sentiment.Analyzer
	logs       repository.SentimentLogRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// SentimentDependencies bundles collaborators for the sentiment service.
type SentimentDependencies struct {
	Analyzer   *sentiment.Analyzer
	LogRepo    repository.SentimentLogRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// AnalyzeInput describes one analysis request.
type AnalyzeInput struct {
	Text           string
	Context        string
	ConversationID *string
	UserID         *string
}

// NewSentimentService constructs the service.
func NewSentimentService(deps SentimentDependencies) *SentimentService {
	return &SentimentService{
		analyzer:   deps.Analyzer,
		logs:       deps.LogRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Analyze scores the text, records the verdict, and returns the log entry.
func (s *SentimentService) Analyze(ctx context.Context, input AnalyzeInput) (*domain.SentimentLog, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("text is required", nil)
	}

	verdict := s.analyzer.Analyze(text, input.Context)

	log := &domain.SentimentLog{
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Text:           text,
		Context:        input.Context,
		RawScores:      verdict.RawScores,
		CombinedScore:  verdict.CombinedScore,
		Label:          verdict.Label,
		Confidence:     verdict.Confidence,
	}
	if s.logs != nil {
		if err := s.logs.Create(ctx, log); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventSentimentRecorded,
			Actor:     events.SystemActor(),
			Timestamp: time.Now(),
			Payload: events.SentimentRecordedPayload{
				Label:         verdict.Label,
				CombinedScore: verdict.CombinedScore,
				Confidence:    verdict.Confidence,
			},
		})
	}
	return log, nil
}

// Summary aggregates verdicts over the trailing window.
func (s *SentimentService) Summary(ctx context.Context, windowHours int) (*domain.SentimentSummary, error) {
	if windowHours <= 0 {
		windowHours = 24
	}
	since := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	summary, err := s.logs.Summarize(ctx, since)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summary.WindowHours = windowHours
	return summary, nil
}

// RecentForConversation lists the latest verdicts for one conversation.
func (s *SentimentService) RecentForConversation(ctx context.Context, conversationID string, limit int) ([]domain.SentimentLog, error) {
	logs, err := s.logs.ListByConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return logs, nil
}

// DerivePriority maps a verdict and its escalation signals onto a ticket
// priority. Explicit priorities from the caller always win over this.
func DerivePriority(verdict domain.SentimentVerdict, signals []string) domain.TicketPriority {
	switch verdict.Label {
	case domain.SentimentNegative:
		for _, signal := range signals {
			if signal == "urgent" {
				return domain.TicketPriorityCritical
			}
		}
		if verdict.Confidence >= highConfidenceThreshold {
			return domain.TicketPriorityHigh
		}
		return domain.TicketPriorityMedium
	case domain.SentimentPositive:
		return domain.TicketPriorityLow
	default:
		return domain.TicketPriorityMedium
	}
}
