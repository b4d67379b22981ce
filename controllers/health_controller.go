package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"incidentwatch/models"
	"incidentwatch/store"
)

type HealthController struct {
	reports   *store.ReportStore
	reporters *store.ReporterStore
	snapshot  *store.SnapshotStore
	clock     clockwork.Clock
	startedAt time.Time
	version   string
}

func NewHealthController(reports *store.ReportStore, reporters *store.ReporterStore, snapshot *store.SnapshotStore, clock clockwork.Clock, version string) *HealthController {
	return &HealthController{
		reports:   reports,
		reporters: reporters,
		snapshot:  snapshot,
		clock:     clock,
		startedAt: clock.Now(),
		version:   version,
	}
}

// Health reports subsystem status. A failing snapshot backend degrades the
// response but the service stays up since the store is authoritative.
func (hc *HealthController) Health(c *gin.Context) {
	servicesStatus := map[string]string{
		"report_store": "up",
	}
	status := "healthy"
	httpStatus := http.StatusOK

	if hc.snapshot != nil {
		if err := hc.snapshot.Ping(c.Request.Context()); err != nil {
			servicesStatus["snapshot"] = "down"
			status = "degraded"
		} else {
			servicesStatus["snapshot"] = "up"
		}
	} else {
		servicesStatus["snapshot"] = "disabled"
	}

	c.JSON(httpStatus, models.HealthResponse{
		Status:    status,
		Timestamp: hc.clock.Now(),
		Services:  servicesStatus,
		Version:   hc.version,
		Uptime:    hc.clock.Now().Sub(hc.startedAt).Round(time.Second).String(),
	})
}
