package controllers

import (
	"github.com/gin-gonic/gin"

	"incidentwatch/models"
	"incidentwatch/services"
	"incidentwatch/utils"
)

type AnalyticsController struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsController(analyticsService *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analyticsService: analyticsService}
}

// GetAnalytics returns a rollup for the requested timeframe, defaulting to
// the last day.
func (ac *AnalyticsController) GetAnalytics(c *gin.Context) {
	timeframe := c.DefaultQuery("timeframe", models.TimeframeDay)

	analytics, err := ac.analyticsService.GenerateAnalytics(c.Request.Context(), timeframe)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Analytics generated", analytics)
}
