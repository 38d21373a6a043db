// Package gateway exposes the HTTP surface: the inbound webhook that feeds
// the interview engine, a health probe and a small read endpoint for
// submissions. The messaging gateway itself (delivery retries, signatures) is
// an external collaborator.
package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hireflow/interviewer/internal/interview"
)

// TurnEngine is the engine's entry point per inbound message.
type TurnEngine interface {
	HandleTurn(ctx context.Context, in interview.Inbound) ([]string, error)
}

// Handler wires the webhook routes.
type Handler struct {
	engine      TurnEngine
	sender      Sender
	submissions interview.SubmissionStore
	jobID       uint
	logger      *zap.Logger
}

func NewHandler(engine TurnEngine, sender Sender, submissions interview.SubmissionStore, jobID uint, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:      engine,
		sender:      sender,
		submissions: submissions,
		jobID:       jobID,
		logger:      logger,
	}
}

// Register attaches the routes to the router.
func (h *Handler) Register(router *gin.Engine) {
	router.POST("/webhook/messages", h.handleInbound)
	router.GET("/healthz", h.handleHealth)
	router.GET("/submissions/:candidate", h.handleSubmission)
}

type inboundPayload struct {
	From      string `json:"from"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

func (h *Handler) handleInbound(c *gin.Context) {
	var payload inboundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	replies, err := h.engine.HandleTurn(c.Request.Context(), interview.Inbound{
		Candidate:  payload.From,
		DeliveryID: payload.MessageID,
		Text:       payload.Text,
	})
	if errors.Is(err, interview.ErrMissingSender) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("turn failed",
			zap.String("candidate", payload.From),
			zap.String("message_id", payload.MessageID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "turn processing failed"})
		return
	}

	// The session is already durably saved; a send failure here is the
	// channel's retry problem, not a reason to fail the webhook.
	if h.sender != nil {
		for _, reply := range replies {
			if err := h.sender.Send(c.Request.Context(), payload.From, reply); err != nil {
				h.logger.Warn("outbound send failed",
					zap.String("candidate", payload.From),
					zap.Error(err),
				)
			}
		}
	}

	if replies == nil {
		replies = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleSubmission(c *gin.Context) {
	candidate := c.Param("candidate")

	submission, err := h.submissions.GetByCandidate(c.Request.Context(), candidate, h.jobID)
	if err != nil {
		h.logger.Error("load submission", zap.String("candidate", candidate), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if submission == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no submission for candidate"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submission_id": submission.ID,
		"session_id":    submission.SessionID,
		"job_id":        submission.JobID,
		"score":         submission.Score,
		"decision":      submission.Decision,
		"summary":       submission.Summary,
		"strengths":     submission.Strengths,
		"weaknesses":    submission.Weaknesses,
		"needs_review":  submission.NeedsReview,
		"ledger":        submission.Ledger,
		"created_at":    submission.CreatedAt,
	})
}
