package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/LucassCPS/private-legal-assistant/internal/assistant"
	"github.com/LucassCPS/private-legal-assistant/pkg/logger"
)

// Indexer is the subset of the indexing pipeline the API needs.
type Indexer interface {
	Populate(ctx context.Context) error
	Update(ctx context.Context) error
}

// StoreChecker reports whether the persisted store exists, for health checks.
type StoreChecker interface {
	Exists(ctx context.Context) (bool, error)
}

// Handler carries the dependencies of the HTTP endpoints.
type Handler struct {
	assistant *assistant.LegalAssistant
	indexer   Indexer
	store     StoreChecker
	log       *logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(a *assistant.LegalAssistant, indexer Indexer, store StoreChecker, log *logger.Logger) *Handler {
	return &Handler{
		assistant: a,
		indexer:   indexer,
		store:     store,
		log:       log,
	}
}

type queryRequest struct {
	Question string `json:"question" binding:"required"`
}

// Query processes one question through the full pipeline and returns the
// transparency bundle: final response, anonymized query, raw response and
// replacement map. Failures are reported in the body, not as 5xx, so the UI
// can distinguish the extraction-failure case from a normal answer.
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	requestID := uuid.New().String()
	c.Header("X-Request-ID", requestID)
	log := h.log.WithField("request_id", requestID)
	log.Info("Processing query")

	result := h.assistant.ProcessQuery(c.Request.Context(), req.Question)

	status := http.StatusOK
	if result.Failure == assistant.FailureExtraction {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// UpdateDatabase clears and repopulates the document store.
func (h *Handler) UpdateDatabase(c *gin.Context) {
	if err := h.indexer.Update(c.Request.Context()); err != nil {
		h.log.Errorf("Database update failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// Health reports service liveness and whether the store has been populated.
func (h *Handler) Health(c *gin.Context) {
	exists, err := h.store.Exists(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "populated": exists})
}
