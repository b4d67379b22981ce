package services

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incidentwatch/models"
	"incidentwatch/store"
	"incidentwatch/utils"
)

func TestGenerateAnalyticsUnknownTimeframe(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewAnalyticsService(store.NewReportStore(), store.NewReporterStore(), clock)

	_, err := svc.GenerateAnalytics(context.Background(), "fortnight")
	assert.True(t, utils.HasErrorCode(err, utils.ErrCodeValidation))
}

func TestGenerateAnalyticsRollup(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	reports := store.NewReportStore()
	reporters := store.NewReporterStore()
	svc := NewAnalyticsService(reports, reporters, clock)

	reporters.Insert(&models.ReporterProfile{ID: "rep-1", Username: "asha", Reputation: 300})

	base := models.ReportLocation{Latitude: 19.0760, Longitude: 72.8777}

	// Verified fire, reported two hours ago, first verification 30m later,
	// official response an hour in.
	reports.Insert(&models.IncidentReport{
		ID:         "r1",
		ReporterID: "rep-1",
		Timestamp:  now.Add(-2 * time.Hour),
		Location:   base,
		Type:       models.IncidentTypeFire,
		Severity:   models.SeverityHigh,
		Verifications: []models.CommunityVerification{
			{Timestamp: now.Add(-90 * time.Minute)},
			{Timestamp: now.Add(-time.Hour)},
		},
		VerificationStatus: models.StatusVerified,
		OfficialResponse:   &models.OfficialResponse{RespondedAt: now.Add(-time.Hour)},
		IsActive:           true,
	})

	// Second fire in the same grid cell.
	reports.Insert(&models.IncidentReport{
		ID:         "r2",
		ReporterID: "rep-1",
		Timestamp:  now.Add(-time.Hour),
		Location:   models.ReportLocation{Latitude: 19.0765, Longitude: 72.8771},
		Type:       models.IncidentTypeFire,
		Severity:   models.SeverityCritical,
		IsActive:   true,
	})

	// False flood elsewhere.
	reports.Insert(&models.IncidentReport{
		ID:                 "r3",
		ReporterID:         "rep-2",
		ReporterName:       "bilal",
		Timestamp:          now.Add(-3 * time.Hour),
		Location:           models.ReportLocation{Latitude: 18.52, Longitude: 73.85},
		Type:               models.IncidentTypeFlood,
		Severity:           models.SeverityLow,
		VerificationStatus: models.StatusFalse,
	})

	// Outside the day window, must be ignored.
	reports.Insert(&models.IncidentReport{
		ID:        "r4",
		Timestamp: now.Add(-30 * time.Hour),
		Location:  base,
		Type:      models.IncidentTypeEarthquake,
		Severity:  models.SeverityCritical,
	})

	analytics, err := svc.GenerateAnalytics(context.Background(), models.TimeframeDay)
	require.NoError(t, err)

	assert.Equal(t, 3, analytics.TotalReports)
	assert.Equal(t, 1, analytics.VerifiedReports)
	assert.Equal(t, 1, analytics.FalseReports)
	assert.InDelta(t, 30.0, analytics.AvgVerificationMinutes, 0.001)
	assert.InDelta(t, 1.0/3.0, analytics.ResponseRate, 0.001)
	assert.InDelta(t, 60.0, analytics.AvgResponseMinutes, 0.001)

	require.Len(t, analytics.TopIncidentTypes, 2)
	assert.Equal(t, models.IncidentTypeFire, analytics.TopIncidentTypes[0].Type)
	assert.Equal(t, 2, analytics.TopIncidentTypes[0].Count)

	require.Len(t, analytics.TopReporters, 2)
	assert.Equal(t, "rep-1", analytics.TopReporters[0].ReporterID)
	assert.Equal(t, 2, analytics.TopReporters[0].Count)
	assert.Equal(t, 300, analytics.TopReporters[0].Reputation)

	// Only the cell with two fires qualifies as a hotspot.
	require.Len(t, analytics.Hotspots, 1)
	assert.Equal(t, 2, analytics.Hotspots[0].Count)
	assert.InDelta(t, 3.5, analytics.Hotspots[0].AvgSeverity, 0.001) // high=3, critical=4
	assert.InDelta(t, 19.07625, analytics.Hotspots[0].Latitude, 0.0001)
}

func TestGenerateAnalyticsEmptyStore(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewAnalyticsService(store.NewReportStore(), store.NewReporterStore(), clock)

	analytics, err := svc.GenerateAnalytics(context.Background(), models.TimeframeHour)
	require.NoError(t, err)
	assert.Zero(t, analytics.TotalReports)
	assert.Zero(t, analytics.ResponseRate)
	assert.Empty(t, analytics.Hotspots)
}
