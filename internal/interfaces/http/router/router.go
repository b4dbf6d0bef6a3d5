package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/interfaces/http/handler"
)

func RegisterRoutes(
	r *gin.Engine,
	orderHandler *handler.OrderHandler,
	paymentHandler *handler.PaymentHandler,
	webhookHandler *handler.WebhookHandler,
	catalogHandler *handler.CatalogHandler,
) {
	api := r.Group("/api")
	{
		api.POST("/orders", orderHandler.CreateOrder)
		api.GET("/orders/:order_id", orderHandler.GetOrder)

		api.GET("/catalog", catalogHandler.GetCatalog)

		payments := api.Group("/payments")
		{
			payments.POST("/qr/init", paymentHandler.InitiateQR)
			payments.GET("/qr/status/:order_id", paymentHandler.CheckQRStatus)

			payments.POST("/edc/init", paymentHandler.InitiateEDC)
			payments.GET("/edc/status/:order_id", paymentHandler.CheckEDCStatus)

			payments.POST("/cash/init", paymentHandler.InitiateCash)

			payments.POST("/webhook/phonepe", webhookHandler.HandlePhonePe)
		}
	}
}
