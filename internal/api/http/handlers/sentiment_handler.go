package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// SentimentHandler exposes the analyzer and its reporting views.
type SentimentHandler struct {
	sentiments *service.SentimentService
}

// NewSentimentHandler constructs handler.
func NewSentimentHandler(sentimentService *service.SentimentService) *SentimentHandler {
	return &SentimentHandler{sentiments: sentimentService}
}

// Analyze POST /sentiment/analyze.
func (h *SentimentHandler) Analyze(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AnalyzeSentimentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.AnalyzeInput{
		Text:           req.Text,
		Context:        req.Context,
		ConversationID: req.ConversationID,
	}
	if principal.SubjectType == domain.SubjectTypeUser && principal.User != nil {
		input.UserID = &principal.User.ID
	}

	log, err := h.sentiments.Analyze(c.Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sentimentLogResponse(log)})
}

// Summary GET /agent/sentiment/summary.
func (h *SentimentHandler) Summary(c *fiber.Ctx) error {
	if _, err := agentPrincipal(c); err != nil {
		return err
	}
	windowHours := parseInt(c.Query("window_hours"), 24)
	summary, err := h.sentiments.Summary(c.Context(), windowHours)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SentimentSummaryResponse{
		WindowHours:   summary.WindowHours,
		TotalAnalyzed: summary.TotalAnalyzed,
		PositiveCount: summary.PositiveCount,
		NeutralCount:  summary.NeutralCount,
		NegativeCount: summary.NegativeCount,
		AverageScore:  summary.AverageScore,
	}})
}

// ConversationLogs GET /agent/sentiment/conversations/:id.
func (h *SentimentHandler) ConversationLogs(c *fiber.Ctx) error {
	if _, err := agentPrincipal(c); err != nil {
		return err
	}
	limit := parseInt(c.Query("limit"), 50)
	logs, err := h.sentiments.RecentForConversation(c.Context(), c.Params("id"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.SentimentLogResponse, 0, len(logs))
	for i := range logs {
		items = append(items, sentimentLogResponse(&logs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func sentimentLogResponse(log *domain.SentimentLog) dto.SentimentLogResponse {
	return dto.SentimentLogResponse{
		ID:             log.ID,
		ConversationID: log.ConversationID,
		UserID:         log.UserID,
		Text:           log.Text,
		Context:        log.Context,
		RawScores:      log.RawScores,
		CombinedScore:  log.CombinedScore,
		Label:          log.Label,
		Confidence:     log.Confidence,
		CreatedAt:      log.CreatedAt,
	}
}
