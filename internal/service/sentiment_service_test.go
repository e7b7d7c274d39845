package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/sentiment"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

type fakeSentimentLogRepo struct {
	logs    []domain.SentimentLog
	since   time.Time
	summary *domain.SentimentSummary
}

func (r *fakeSentimentLogRepo) Create(_ context.Context, log *domain.SentimentLog) error {
	log.ID = "sl-1"
	log.CreatedAt = testNow
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeSentimentLogRepo) ListByConversation(_ context.Context, conversationID string, _ int) ([]domain.SentimentLog, error) {
	var out []domain.SentimentLog
	for _, log := range r.logs {
		if log.ConversationID != nil && *log.ConversationID == conversationID {
			out = append(out, log)
		}
	}
	return out, nil
}

func (r *fakeSentimentLogRepo) Summarize(_ context.Context, since time.Time) (*domain.SentimentSummary, error) {
	r.since = since
	if r.summary != nil {
		return r.summary, nil
	}
	return &domain.SentimentSummary{}, nil
}

func newSentimentHarness() (*SentimentService, *fakeSentimentLogRepo, *captureDispatcher) {
	logs := &fakeSentimentLogRepo{}
	dispatcher := &captureDispatcher{}
	svc := NewSentimentService(SentimentDependencies{
		Analyzer:   sentiment.NewDefaultAnalyzer(nil, zap.NewNop()),
		LogRepo:    logs,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc, logs, dispatcher
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	svc, logs, _ := newSentimentHarness()

	for _, text := range []string{"", "   "} {
		_, err := svc.Analyze(context.Background(), AnalyzeInput{Text: text})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	}
	assert.Empty(t, logs.logs)
}

func TestAnalyzePersistsAndPublishes(t *testing.T) {
	svc, logs, dispatcher := newSentimentHarness()
	conversationID := "conv-1"

	log, err := svc.Analyze(context.Background(), AnalyzeInput{
		Text:           "this is terrible, everything is broken and the error keeps happening",
		Context:        "Order 9913",
		ConversationID: &conversationID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentNegative, log.Label)
	assert.NotEmpty(t, log.RawScores)

	require.Len(t, logs.logs, 1)
	assert.Equal(t, log.Label, logs.logs[0].Label)
	require.NotNil(t, logs.logs[0].ConversationID)
	assert.Equal(t, "conv-1", *logs.logs[0].ConversationID)

	event := dispatcher.find(events.EventSentimentRecorded)
	require.NotNil(t, event)
	payload, ok := event.Payload.(events.SentimentRecordedPayload)
	require.True(t, ok)
	assert.Equal(t, log.Label, payload.Label)
	assert.InDelta(t, log.CombinedScore, payload.CombinedScore, 1e-9)
}

func TestAnalyzeNeutralText(t *testing.T) {
	svc, logs, _ := newSentimentHarness()

	log, err := svc.Analyze(context.Background(), AnalyzeInput{
		Text: "the meeting is scheduled for thursday",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentNeutral, log.Label)
	assert.Len(t, logs.logs, 1)
}

func TestSummaryDefaultsWindow(t *testing.T) {
	svc, logs, _ := newSentimentHarness()
	logs.summary = &domain.SentimentSummary{TotalAnalyzed: 7, NegativeCount: 3, AverageScore: 0.4}

	summary, err := svc.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 24, summary.WindowHours)
	assert.Equal(t, 7, summary.TotalAnalyzed)
	// The cutoff sits one day in the past, give or take scheduling slack.
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), logs.since, time.Minute)

	summary, err = svc.Summary(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.WindowHours)
	assert.WithinDuration(t, time.Now().Add(-6*time.Hour), logs.since, time.Minute)
}

func TestRecentForConversation(t *testing.T) {
	svc, logs, _ := newSentimentHarness()
	conversationID := "conv-2"
	logs.logs = []domain.SentimentLog{
		{ID: "sl-1", ConversationID: &conversationID, Label: domain.SentimentNegative},
		{ID: "sl-2", Label: domain.SentimentNeutral},
	}

	out, err := svc.RecentForConversation(context.Background(), "conv-2", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "sl-1", out[0].ID)
}

func TestDerivePriority(t *testing.T) {
	negative := func(confidence float64) domain.SentimentVerdict {
		return domain.SentimentVerdict{Label: domain.SentimentNegative, Confidence: confidence}
	}

	tests := []struct {
		name    string
		verdict domain.SentimentVerdict
		signals []string
		want    domain.TicketPriority
	}{
		{"negative with urgency signal", negative(0.4), []string{"urgent"}, domain.TicketPriorityCritical},
		{"negative high confidence", negative(0.7), nil, domain.TicketPriorityHigh},
		{"negative at threshold", negative(0.6), nil, domain.TicketPriorityHigh},
		{"negative low confidence", negative(0.3), nil, domain.TicketPriorityMedium},
		{"negative with non-urgent signal", negative(0.3), []string{"angry"}, domain.TicketPriorityMedium},
		{"positive", domain.SentimentVerdict{Label: domain.SentimentPositive, Confidence: 0.9}, nil, domain.TicketPriorityLow},
		{"neutral", domain.SentimentVerdict{Label: domain.SentimentNeutral, Confidence: 0.2}, nil, domain.TicketPriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DerivePriority(tt.verdict, tt.signals))
		})
	}
}
