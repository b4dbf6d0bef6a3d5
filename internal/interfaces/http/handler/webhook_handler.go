package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/http/phonepe"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

// ReconcilePublisher queues a reconcile command for the worker. The webhook
// endpoint acks the provider first and lets the worker apply the state
// change.
type ReconcilePublisher interface {
	Publish(ctx context.Context, cmd app.ReconcileCommand) error
}

type WebhookHandler struct {
	publisher ReconcilePublisher
	cfg       config.PhonePeConfig
	log       logger.Logger
}

func NewWebhookHandler(publisher ReconcilePublisher, cfg config.PhonePeConfig, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{publisher: publisher, cfg: cfg, log: log}
}

type callbackEnvelope struct {
	Response string `json:"response"`
}

type callbackPayload struct {
	Code string `json:"code"`
	Data struct {
		MerchantOrderID string `json:"merchantOrderId"`
	} `json:"data"`
}

// HandlePhonePe processes the provider's server-to-server callback. The
// signature gate runs before anything is trusted; a verified notification is
// queued and acked immediately.
func (h *WebhookHandler) HandlePhonePe(c *gin.Context) {
	var envelope callbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if envelope.Response == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing response payload"})
		return
	}

	xVerify := c.GetHeader("X-VERIFY")
	if !phonepe.VerifyCallback(envelope.Response, xVerify, h.cfg.SaltKey, h.cfg.SaltKeyIndex) {
		h.log.Warn("webhook signature verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Signature"})
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Decoding failed"})
		return
	}

	var payload callbackPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Decoding failed"})
		return
	}

	if payload.Data.MerchantOrderID == "" {
		h.log.Warn("callback received without merchantOrderId")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	cmd := app.ReconcileCommand{
		OrderID: payload.Data.MerchantOrderID,
		Code:    payload.Code,
		Raw:     json.RawMessage(decoded),
	}
	if err := h.publisher.Publish(c.Request.Context(), cmd); err != nil {
		// The provider retries on non-200; let it.
		h.log.Error("queue reconcile command failed",
			logger.String("order_id", cmd.OrderID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
