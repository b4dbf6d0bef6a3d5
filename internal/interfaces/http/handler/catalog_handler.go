package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

type CatalogHandler struct {
	provider catalog.Provider
	log      logger.Logger
}

func NewCatalogHandler(provider catalog.Provider, log logger.Logger) *CatalogHandler {
	return &CatalogHandler{provider: provider, log: log}
}

func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	channel := c.DefaultQuery("channel", "kiosk")

	snapshot, err := h.provider.GetCatalog(c.Request.Context(), channel)
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog service temporarily unavailable"})
			return
		}
		h.log.Error("catalog fetch failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load catalog"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
