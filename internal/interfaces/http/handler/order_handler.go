package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/order"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
	domain "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/order"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

type OrderHandler struct {
	svc *app.Service
	log logger.Logger
}

func NewOrderHandler(svc *app.Service, log logger.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log}
}

type orderCreateResponse struct {
	OrderID       string           `json:"order_id"`
	AmountWithTax int64            `json:"total_amount_include_tax"`
	AmountWithout int64            `json:"total_amount_exclude_tax"`
	TicketCode    string           `json:"kot_code"`
	OrderType     domain.OrderType `json:"order_type"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var cmd app.CreateOrderCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidSKU),
			errors.Is(err, domain.ErrInvalidOrderType),
			errors.Is(err, domain.ErrNoItems),
			errors.Is(err, domain.ErrInvalidQuantity),
			errors.Is(err, domain.ErrMissingField):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, catalog.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog temporarily unavailable"})
		default:
			h.log.Error("create order failed", logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process order"})
		}
		return
	}

	c.JSON(http.StatusOK, orderCreateResponse{
		OrderID:       order.OrderID,
		AmountWithTax: order.TotalIncludeTax,
		AmountWithout: order.TotalExcludeTax,
		TicketCode:    order.TicketCode,
		OrderType:     order.Type,
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		h.log.Error("get order failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":                 order.OrderID,
		"channel":                  order.Channel,
		"order_type":               order.Type,
		"items":                    order.Items,
		"total_amount_include_tax": order.TotalIncludeTax,
		"total_amount_exclude_tax": order.TotalExcludeTax,
		"kot_code":                 order.TicketCode,
		"payment_method":           order.PaymentMethod,
		"payment_status":           order.PaymentStatus,
		"kds_status":               order.KdsStatus,
		"kds_invoice_id":           order.KdsInvoiceID,
		"created_at":               order.CreatedAt,
	})
}
