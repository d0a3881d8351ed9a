package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/transport/http/response"
)

type AnalyticsHandler struct {
	analyticsService *app.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *app.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) Overview(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	overview, err := h.analyticsService.Overview()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load analytics failed")
		return
	}

	response.OK(c, overview)
}
