package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incidentwatch/events"
	"incidentwatch/middleware"
	"incidentwatch/models"
	"incidentwatch/services"
	"incidentwatch/store"
	"incidentwatch/utils"
)

type ctrlFixture struct {
	router *gin.Engine
	jwt    *utils.JWTService
	clock  *clockwork.FakeClock
}

func newCtrlFixture(t *testing.T) *ctrlFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	reports := store.NewReportStore()
	reporters := store.NewReporterStore()
	bus := events.NewBus()
	ids := utils.NewUUIDGenerator()

	reportService := services.NewReportService(reports, reporters,
		services.NewPriorityService(clock), services.NewConsensusService(), bus, clock, ids)
	evidenceService := services.NewEvidenceService(reports, bus, clock, ids, t.TempDir(), "http://localhost:8080")

	jwt := utils.NewJWTService("test-secret", time.Hour)
	auth := middleware.NewAuthMiddleware(jwt)
	ctrl := NewReportController(reportService, evidenceService)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.GET("/reports", ctrl.QueryReports)
	v1.GET("/reports/:reportId", ctrl.GetReport)
	authed := v1.Group("", auth.RequireAuth())
	authed.POST("/reports", ctrl.SubmitReport)
	authed.POST("/reports/:reportId/verifications", ctrl.SubmitVerification)
	authed.POST("/reports/:reportId/resolve", ctrl.ResolveReport)

	return &ctrlFixture{router: router, jwt: jwt, clock: clock}
}

func (f *ctrlFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *ctrlFixture) token(t *testing.T, reporterID, username string) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(reporterID, username)
	require.NoError(t, err)
	return token
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope: %s", rec.Body.String())
	return envelope.Data
}

func coord(v float64) *float64 { return &v }

func submitBody() models.SubmitReportRequest {
	return models.SubmitReportRequest{
		Latitude:  coord(19.0760),
		Longitude: coord(72.8777),
		Type:      "fire",
		Severity:  "high",
		Title:     "warehouse fire",
	}
}

func TestSubmitReportRequiresAuth(t *testing.T) {
	f := newCtrlFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/reports", "", submitBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitAndFetchReport(t *testing.T) {
	f := newCtrlFixture(t)
	token := f.token(t, "rep-1", "asha")

	rec := f.do(t, http.MethodPost, "/api/v1/reports", token, submitBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	data := decodeData(t, rec)
	reportID := data["id"].(string)
	assert.Equal(t, "pending", data["verificationStatus"])
	assert.Equal(t, "asha", data["reporterName"])

	rec = f.do(t, http.MethodGet, "/api/v1/reports/"+reportID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reportID, decodeData(t, rec)["id"])

	rec = f.do(t, http.MethodGet, "/api/v1/reports/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitReportValidation(t *testing.T) {
	f := newCtrlFixture(t)
	token := f.token(t, "rep-1", "asha")

	body := submitBody()
	body.Severity = "catastrophic"
	rec := f.do(t, http.MethodPost, "/api/v1/reports", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A zero coordinate is present, not missing: equator reports bind fine.
	body = submitBody()
	body.Latitude = coord(0)
	rec = f.do(t, http.MethodPost, "/api/v1/reports", token, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// An absent latitude is rejected at binding.
	body = submitBody()
	body.Latitude = nil
	rec = f.do(t, http.MethodPost, "/api/v1/reports", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerificationFlowOverHTTP(t *testing.T) {
	f := newCtrlFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/reports", f.token(t, "rep-1", "asha"), submitBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	reportID := decodeData(t, rec)["id"].(string)

	verifier := f.token(t, "ver-1", "vikram")
	verification := models.SubmitVerificationRequest{Status: "confirmed", Confidence: 85}

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reports/%s/verifications", reportID), verifier, verification)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same verifier again conflicts.
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reports/%s/verifications", reportID), verifier, verification)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResolveOverHTTP(t *testing.T) {
	f := newCtrlFixture(t)
	token := f.token(t, "rep-1", "asha")

	rec := f.do(t, http.MethodPost, "/api/v1/reports", token, submitBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	reportID := decodeData(t, rec)["id"].(string)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reports/%s/resolve", reportID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeData(t, rec)["isActive"])

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reports/%s/resolve", reportID), token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueryReportsOverHTTP(t *testing.T) {
	f := newCtrlFixture(t)
	token := f.token(t, "rep-1", "asha")

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reports", token, submitBody()).Code)

	body := submitBody()
	body.Type = "flood"
	body.Severity = "low"
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/reports", token, body).Code)

	rec := f.do(t, http.MethodGet, "/api/v1/reports?type=fire", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []map[string]interface{} `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "fire", envelope.Data[0]["type"])
	assert.Equal(t, 1, envelope.Meta.Count)
}
