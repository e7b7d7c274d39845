package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// TicketFilter captures agent search parameters.
type TicketFilter struct {
	RequesterID     *string
	DepartmentID    *string
	AssignedAgentID *string
	Statuses        []domain.TicketStatus
	Priorities      []domain.TicketPriority
	SlaBreached     *bool
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence. Save enforces optimistic
// concurrency on Ticket.Version: a stale writer gets ConcurrentModification.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Save(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error)
	FindSlaCandidates(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	FindRecentOpenByConversation(ctx context.Context, conversationID string, since time.Time) (*domain.Ticket, error)
	CountOpenByAgent(ctx context.Context, agentID string) (int, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, conversation_id, requester_user_id, department_id,
        assigned_agent_id, title, description, status, priority,
        sla_due_at, resolution_due_at, sla_breached, escalation_level, escalation_reason,
        routing_method, matched_rule_name, sentiment_score, sentiment_label, sentiment_confidence,
        first_response_at, resolved_at, closed_at, version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, conversation_id, requester_user_id, department_id,
            assigned_agent_id, title, description, status, priority,
            sla_due_at, resolution_due_at, sla_breached, escalation_level, escalation_reason,
            routing_method, matched_rule_name, sentiment_score, sentiment_label, sentiment_confidence,
            first_response_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
        RETURNING id, version`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.ConversationID,
		ticket.RequesterID,
		ticket.DepartmentID,
		ticket.AssignedAgentID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.SlaDueAt,
		ticket.ResolutionDueAt,
		ticket.SlaBreached,
		ticket.EscalationLevel,
		ticket.EscalationReason,
		ticket.RoutingMethod,
		ticket.MatchedRuleName,
		ticket.SentimentScore,
		ticket.SentimentLabel,
		ticket.SentimentConfidence,
		ticket.FirstResponseAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID, &ticket.Version)
}

// Save persists the ticket only if nobody else saved it since it was read.
// On success the in-memory version advances with the row.
func (r *ticketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET department_id=$1, assigned_agent_id=$2, status=$3, priority=$4,
            sla_due_at=$5, resolution_due_at=$6, sla_breached=$7, escalation_level=$8, escalation_reason=$9,
            routing_method=$10, matched_rule_name=$11,
            first_response_at=$12, resolved_at=$13, closed_at=$14, updated_at=$15,
            version=version+1
        WHERE id=$16 AND version=$17
        RETURNING version`
	err := r.pool.QueryRow(ctx, query,
		ticket.DepartmentID,
		ticket.AssignedAgentID,
		ticket.Status,
		ticket.Priority,
		ticket.SlaDueAt,
		ticket.ResolutionDueAt,
		ticket.SlaBreached,
		ticket.EscalationLevel,
		ticket.EscalationReason,
		ticket.RoutingMethod,
		ticket.MatchedRuleName,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version)
	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return err
	}

	// No row matched: either the ticket is gone or someone else bumped the
	// version first.
	var current int
	checkErr := r.pool.QueryRow(ctx, `SELECT version FROM tickets WHERE id=$1`, ticket.ID).Scan(&current)
	if checkErr == pgx.ErrNoRows {
		return pgx.ErrNoRows
	}
	if checkErr != nil {
		return checkErr
	}
	return apperrors.NewConcurrentModification("ticket")
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE external_key=$1`
	return r.fetchSingle(ctx, query, key)
}

// FindSlaCandidates returns tickets eligible for breach handling: still being
// worked, past their deadline, and not yet flagged.
func (r *ticketRepository) FindSlaCandidates(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE status IN ($1,$2) AND sla_due_at <= $3 AND sla_breached = FALSE
        ORDER BY sla_due_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusOpen, domain.TicketStatusInProgress, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// FindRecentOpenByConversation returns the newest non-terminal ticket for the
// conversation created at or after since, or nil when there is none.
func (r *ticketRepository) FindRecentOpenByConversation(ctx context.Context, conversationID string, since time.Time) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE conversation_id=$1 AND status NOT IN ($2,$3) AND created_at >= $4
        ORDER BY created_at DESC LIMIT 1`
	ticket, err := r.fetchSingle(ctx, query, conversationID, domain.TicketStatusResolved, domain.TicketStatusClosed, since)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return ticket, err
}

func (r *ticketRepository) CountOpenByAgent(ctx context.Context, agentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets
        WHERE assigned_agent_id=$1 AND status NOT IN ($2,$3)`
	var count int
	err := r.pool.QueryRow(ctx, query, agentID, domain.TicketStatusResolved, domain.TicketStatusClosed).Scan(&count)
	return count, err
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error) {
	filter := TicketFilter{
		RequesterID: &userID,
		Limit:       limit,
		Offset:      offset,
	}
	return r.ListWithFilter(ctx, filter)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_user_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SlaBreached != nil {
		args = append(args, *filter.SlaBreached)
		clauses = append(clauses, fmt.Sprintf("sla_breached=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func ticketFields(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.ExternalKey,
		&t.ConversationID,
		&t.RequesterID,
		&t.DepartmentID,
		&t.AssignedAgentID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.SlaDueAt,
		&t.ResolutionDueAt,
		&t.SlaBreached,
		&t.EscalationLevel,
		&t.EscalationReason,
		&t.RoutingMethod,
		&t.MatchedRuleName,
		&t.SentimentScore,
		&t.SentimentLabel,
		&t.SentimentConfidence,
		&t.FirstResponseAt,
		&t.ResolvedAt,
		&t.ClosedAt,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}
