package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"givebridge/backend/internal/identity/events"
	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/security"
	"givebridge/backend/internal/server/middleware"
)

// maxWebhookBody caps the size of a lifecycle event delivery.
const maxWebhookBody = 1 << 20

// WebhookHandler receives identity provider lifecycle deliveries.
type WebhookHandler struct {
	processor *events.Processor
	verifier  *security.WebhookVerifier
	logger    *zap.Logger
}

// NewWebhookHandler returns a WebhookHandler. A nil verifier accepts unsigned deliveries.
func NewWebhookHandler(processor *events.Processor, verifier *security.WebhookVerifier, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{processor: processor, verifier: verifier, logger: logger}
}

// RegisterRoutes mounts the webhook on rg (normally /api/auth).
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhook", h.receive)
}

// receive answers 2xx only once the event is applied, so the provider retries
// deliveries that failed on a transient directory error.
func (h *WebhookHandler) receive(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		middleware.AbortWithError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "unreadable body", err))
		return
	}
	deliveryID := c.GetHeader(security.HeaderWebhookID)
	if h.verifier != nil {
		if err := h.verifier.Verify(deliveryID, c.GetHeader(security.HeaderWebhookTimestamp), c.GetHeader(security.HeaderWebhookSignature), body); err != nil {
			h.logger.Warn("webhook: signature rejected", zap.String("delivery_id", deliveryID))
			middleware.AbortWithError(c, err)
			return
		}
	}
	ev, err := events.Decode(body)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	res, err := h.processor.ProcessDelivery(c.Request.Context(), deliveryID, ev)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "outcome": res.Outcome})
}
