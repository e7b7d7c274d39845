package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// SentimentLogRepository records analyses for audit and reporting.
type SentimentLogRepository interface {
	Create(ctx context.Context, log *domain.SentimentLog) error
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]domain.SentimentLog, error)
	Summarize(ctx context.Context, since time.Time) (*domain.SentimentSummary, error)
}

type sentimentLogRepository struct {
	pool *pgxpool.Pool
}

// NewSentimentLogRepository builds repository.
func NewSentimentLogRepository(pool *pgxpool.Pool) SentimentLogRepository {
	return &sentimentLogRepository{pool: pool}
}

func (r *sentimentLogRepository) Create(ctx context.Context, log *domain.SentimentLog) error {
	const query = `
        INSERT INTO sentiment_logs (conversation_id, user_id, text, context, raw_scores, combined_score, label, confidence)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		log.ConversationID,
		log.UserID,
		log.Text,
		log.Context,
		log.RawScores,
		log.CombinedScore,
		log.Label,
		log.Confidence,
	).Scan(&log.ID, &log.CreatedAt)
}

func (r *sentimentLogRepository) ListByConversation(ctx context.Context, conversationID string, limit int) ([]domain.SentimentLog, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, conversation_id, user_id, text, context, raw_scores, combined_score, label, confidence, created_at
        FROM sentiment_logs WHERE conversation_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SentimentLog
	for rows.Next() {
		var log domain.SentimentLog
		if err := rows.Scan(
			&log.ID,
			&log.ConversationID,
			&log.UserID,
			&log.Text,
			&log.Context,
			&log.RawScores,
			&log.CombinedScore,
			&log.Label,
			&log.Confidence,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}

// Summarize aggregates label counts and average score since the cutoff.
func (r *sentimentLogRepository) Summarize(ctx context.Context, since time.Time) (*domain.SentimentSummary, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE label=$1),
               COUNT(*) FILTER (WHERE label=$2),
               COUNT(*) FILTER (WHERE label=$3),
               COALESCE(AVG(combined_score), 0.5)
        FROM sentiment_logs WHERE created_at >= $4`
	var summary domain.SentimentSummary
	err := r.pool.QueryRow(ctx, query,
		domain.SentimentPositive,
		domain.SentimentNeutral,
		domain.SentimentNegative,
		since,
	).Scan(
		&summary.TotalAnalyzed,
		&summary.PositiveCount,
		&summary.NeutralCount,
		&summary.NegativeCount,
		&summary.AverageScore,
	)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
