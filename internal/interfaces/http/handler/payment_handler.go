package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	app "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
	domain "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/order"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

type PaymentHandler struct {
	svc *app.Service
	log logger.Logger
}

func NewPaymentHandler(svc *app.Service, log logger.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, log: log}
}

type qrInitiateRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	AmountPaise int64  `json:"amount_paise" binding:"required,gt=0"`
	StoreID     string `json:"store_id"`
}

type qrInitiateResponse struct {
	OrderID       string     `json:"order_id"`
	TransactionID string     `json:"transaction_id"`
	QRString      string     `json:"qr_string,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Provider      string     `json:"provider"`
}

func (h *PaymentHandler) InitiateQR(c *gin.Context) {
	var req qrInitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.svc.InitiateQR(c.Request.Context(), req.OrderID, req.AmountPaise, req.StoreID)
	if err != nil {
		h.renderError(c, err, "qr init failed")
		return
	}

	txnID := order.ProviderTxnID
	if txnID == "" {
		txnID = order.OrderID
	}
	c.JSON(http.StatusOK, qrInitiateResponse{
		OrderID:       order.OrderID,
		TransactionID: txnID,
		QRString:      order.QRString,
		ExpiresAt:     order.QRExpiresAt,
		Provider:      "PhonePe",
	})
}

type edcInitiateRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	AmountPaise int64  `json:"amount_paise" binding:"required,gt=0"`
	StoreID     string `json:"store_id" binding:"required"`
}

func (h *PaymentHandler) InitiateEDC(c *gin.Context) {
	var req edcInitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.svc.InitiateEDC(c.Request.Context(), req.OrderID, req.AmountPaise, req.StoreID)
	if err != nil {
		h.renderError(c, err, "edc init failed")
		return
	}

	message := "Request sent to card terminal"
	if msg := rawField(order.ProviderResp, "ResponseMessage"); msg != "" {
		message = msg
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":       order.OrderID,
		"transaction_id": order.OrderID,
		"amount":         req.AmountPaise,
		"message":        message,
		"provider":       "Pine Labs EDC",
	})
}

type cashInitiateRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	AmountPaise int64  `json:"amount_paise" binding:"required,gt=0"`
	StoreID     string `json:"store_id"`
	PIN         string `json:"pin" binding:"required"`
}

func (h *PaymentHandler) InitiateCash(c *gin.Context) {
	var req cashInitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.svc.InitiateCash(c.Request.Context(), req.OrderID, req.StoreID, req.PIN)
	if err != nil {
		h.renderError(c, err, "cash init failed")
		return
	}

	c.JSON(http.StatusOK, statusResponse(order))
}

func (h *PaymentHandler) CheckQRStatus(c *gin.Context) {
	order, err := h.svc.CheckStatus(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		h.renderError(c, err, "status check failed")
		return
	}

	c.JSON(http.StatusOK, statusResponse(order))
}

// CheckEDCStatus returns the shared status fields enriched with what the
// terminal reported: payment mode, amount and the terminal reference.
func (h *PaymentHandler) CheckEDCStatus(c *gin.Context) {
	order, err := h.svc.CheckStatus(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		h.renderError(c, err, "status check failed")
		return
	}

	resp := statusResponse(order)
	resp["transaction_id"] = order.OrderID
	resp["payment_mode"] = rawField(order.ProviderResp, "PaymentMode")
	resp["payment_state"] = rawField(order.ProviderResp, "ResponseCode")
	resp["reference_number"] = order.ProviderRefID
	if amount, ok := rawAmount(order.ProviderResp); ok {
		resp["amount"] = amount
	}
	c.JSON(http.StatusOK, resp)
}

func statusResponse(order *domain.Order) gin.H {
	return gin.H{
		"order_id":       order.OrderID,
		"payment_status": order.PaymentStatus,
		"provider_code":  order.ProviderCode,
		"provider_raw":   order.ProviderResp,
		"kds_invoice_id": order.KdsInvoiceID,
		"kds_status":     order.KdsStatus,
		"kot_code":       order.TicketCode,
	}
}

func (h *PaymentHandler) renderError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, app.ErrInvalidPIN):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid PIN for cash payment"})
	case errors.Is(err, app.ErrGateway):
		h.log.Error(msg, logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment Gateway Error"})
	default:
		h.log.Error(msg, logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment processing failed"})
	}
}

// rawField pulls a scalar out of the stored provider response; numbers come
// back in their JSON text form.
func rawField(raw json.RawMessage, key string) string {
	if len(raw) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	value, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawAmount(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var fields struct {
		Amount json.Number `json:"Amount"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return 0, false
	}
	f, err := fields.Amount.Float64()
	if err != nil {
		return 0, false
	}
	return int64(f), true
}
