package controllers

import (
	"github.com/gin-gonic/gin"

	"incidentwatch/middleware"
	"incidentwatch/models"
	"incidentwatch/services"
	"incidentwatch/utils"
)

type ReportController struct {
	reportService   *services.ReportService
	evidenceService *services.EvidenceService
}

func NewReportController(reportService *services.ReportService, evidenceService *services.EvidenceService) *ReportController {
	return &ReportController{
		reportService:   reportService,
		evidenceService: evidenceService,
	}
}

// SubmitReport creates an incident report for the authenticated reporter.
func (rc *ReportController) SubmitReport(c *gin.Context) {
	var req models.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid report: "+err.Error())
		return
	}

	reporterID := c.GetString(middleware.ContextReporterID)
	username := c.GetString(middleware.ContextUsername)

	report, err := rc.reportService.SubmitReport(c.Request.Context(), reporterID, username, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Report submitted", report)
}

// GetReport returns a single report by id.
func (rc *ReportController) GetReport(c *gin.Context) {
	report, err := rc.reportService.GetReport(c.Request.Context(), c.Param("reportId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Report retrieved", report)
}

// QueryReports lists reports matching the query string filters.
func (rc *ReportController) QueryReports(c *gin.Context) {
	var filter models.ReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.BadRequestResponse(c, "Invalid query: "+err.Error())
		return
	}
	if (filter.Latitude == nil) != (filter.Longitude == nil) {
		utils.BadRequestResponse(c, "latitude and longitude must be provided together")
		return
	}

	reports, err := rc.reportService.QueryReports(c.Request.Context(), filter)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Reports retrieved", reports, &models.MetaData{
		Count: len(reports),
		Limit: filter.Limit,
	})
}

// UploadEvidence attaches a media file to a report. Processing continues in
// the background after the request returns.
func (rc *ReportController) UploadEvidence(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "A multipart 'file' field is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.BadRequestResponse(c, "Could not read uploaded file")
		return
	}
	defer file.Close()

	evidence, err := rc.evidenceService.AttachEvidence(c.Request.Context(), c.Param("reportId"), file, fileHeader)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.AcceptedResponse(c, "Evidence accepted for processing", evidence)
}

// SubmitVerification records a community verification from the
// authenticated reporter.
func (rc *ReportController) SubmitVerification(c *gin.Context) {
	var req models.SubmitVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid verification: "+err.Error())
		return
	}

	reporterID := c.GetString(middleware.ContextReporterID)
	username := c.GetString(middleware.ContextUsername)

	report, err := rc.reportService.SubmitVerification(c.Request.Context(), c.Param("reportId"), reporterID, username, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Verification recorded", report)
}

// AddUpdate appends a follow-up update to a report.
func (rc *ReportController) AddUpdate(c *gin.Context) {
	var req models.AddUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid update: "+err.Error())
		return
	}

	reporterID := c.GetString(middleware.ContextReporterID)
	username := c.GetString(middleware.ContextUsername)

	report, err := rc.reportService.AddReportUpdate(c.Request.Context(), c.Param("reportId"), reporterID, username, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Update added", report)
}

// AttachOfficialResponse records an agency response on a report.
func (rc *ReportController) AttachOfficialResponse(c *gin.Context) {
	var req models.OfficialResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid response: "+err.Error())
		return
	}

	report, err := rc.reportService.AttachOfficialResponse(c.Request.Context(), c.Param("reportId"), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Official response recorded", report)
}

// ResolveReport marks a report resolved.
func (rc *ReportController) ResolveReport(c *gin.Context) {
	report, err := rc.reportService.ResolveReport(c.Request.Context(), c.Param("reportId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Report resolved", report)
}
