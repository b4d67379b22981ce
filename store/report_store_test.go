package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incidentwatch/models"
	"incidentwatch/utils"
)

func seedReports(s *ReportStore) {
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	s.Insert(&models.IncidentReport{
		ID:                 "fire-1",
		Timestamp:          base,
		Location:           models.ReportLocation{Latitude: 19.0760, Longitude: 72.8777},
		Type:               models.IncidentTypeFire,
		Severity:           models.SeverityHigh,
		VerificationStatus: models.StatusVerified,
		Priority:           90,
		IsActive:           true,
		Verifications:      make([]models.CommunityVerification, 3),
	})
	s.Insert(&models.IncidentReport{
		ID:                 "flood-1",
		Timestamp:          base.Add(time.Hour),
		Location:           models.ReportLocation{Latitude: 19.0810, Longitude: 72.8800},
		Type:               models.IncidentTypeFlood,
		Severity:           models.SeverityMedium,
		VerificationStatus: models.StatusPending,
		Priority:           70,
		IsActive:           true,
	})
	s.Insert(&models.IncidentReport{
		ID:                 "fire-2",
		Timestamp:          base.Add(2 * time.Hour),
		Location:           models.ReportLocation{Latitude: 18.5204, Longitude: 73.8567}, // ~120km away
		Type:               models.IncidentTypeFire,
		Severity:           models.SeverityLow,
		VerificationStatus: models.StatusFalse,
		Priority:           0,
		IsActive:           false,
		Verifications:      make([]models.CommunityVerification, 1),
	})
}

func TestQueryGeoFilter(t *testing.T) {
	s := NewReportStore()
	seedReports(s)

	lat, lon := 19.0760, 72.8777
	got := s.Query(models.ReportFilter{Latitude: &lat, Longitude: &lon, RadiusKm: 5})

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"fire-1", "flood-1"}, ids)
}

func TestQueryFilterComposition(t *testing.T) {
	s := NewReportStore()
	seedReports(s)

	got := s.Query(models.ReportFilter{
		Types:      []models.IncidentType{models.IncidentTypeFire},
		ActiveOnly: true,
	})
	require.Len(t, got, 1)
	assert.Equal(t, "fire-1", got[0].ID)

	got = s.Query(models.ReportFilter{
		Statuses: []models.VerificationStatus{models.StatusFalse, models.StatusPending},
	})
	require.Len(t, got, 2)

	since := time.Date(2026, 5, 10, 13, 30, 0, 0, time.UTC)
	got = s.Query(models.ReportFilter{Since: &since})
	require.Len(t, got, 1)
	assert.Equal(t, "fire-2", got[0].ID)
}

func TestQuerySortAndLimit(t *testing.T) {
	s := NewReportStore()
	seedReports(s)

	// Default: timestamp descending.
	got := s.Query(models.ReportFilter{})
	require.Len(t, got, 3)
	assert.Equal(t, "fire-2", got[0].ID)
	assert.Equal(t, "fire-1", got[2].ID)

	got = s.Query(models.ReportFilter{SortBy: models.SortByPriority})
	assert.Equal(t, "fire-1", got[0].ID)

	got = s.Query(models.ReportFilter{SortBy: models.SortByVerificationCount, SortOrder: "asc"})
	assert.Equal(t, "flood-1", got[0].ID)

	got = s.Query(models.ReportFilter{Limit: 2})
	assert.Len(t, got, 2)
}

func TestGetReturnsDeepCopy(t *testing.T) {
	s := NewReportStore()
	seedReports(s)

	first, ok := s.Get("fire-1")
	require.True(t, ok)
	first.Title = "tampered"
	first.Verifications[0].Confidence = 99

	second, ok := s.Get("fire-1")
	require.True(t, ok)
	assert.Empty(t, second.Title)
	assert.Zero(t, second.Verifications[0].Confidence)
}

func TestUpdateMutatesAtomically(t *testing.T) {
	s := NewReportStore()
	seedReports(s)

	updated, err := s.Update("flood-1", func(r *models.IncidentReport) error {
		r.Priority = 85
		r.VerificationStatus = models.StatusDisputed
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 85.0, updated.Priority)

	stored, _ := s.Get("flood-1")
	assert.Equal(t, models.StatusDisputed, stored.VerificationStatus)
}

func TestUpdateErrorLeavesRecordUntouched(t *testing.T) {
	s := NewReportStore()
	seedReports(s)

	_, err := s.Update("flood-1", func(r *models.IncidentReport) error {
		r.Priority = 5
		return utils.NewConflictError("nope")
	})
	require.Error(t, err)

	stored, _ := s.Get("flood-1")
	assert.Equal(t, 70.0, stored.Priority)
}

func TestUpdateMissingReport(t *testing.T) {
	s := NewReportStore()

	_, err := s.Update("ghost", func(r *models.IncidentReport) error { return nil })
	assert.True(t, utils.HasErrorCode(err, utils.ErrCodeReportNotFound))
}

func TestDeleteAndCount(t *testing.T) {
	s := NewReportStore()
	seedReports(s)

	assert.Equal(t, 3, s.Count())
	assert.True(t, s.Delete("fire-2"))
	assert.False(t, s.Delete("fire-2"))
	assert.Equal(t, 2, s.Count())
}

func TestReplaceAll(t *testing.T) {
	s := NewReportStore()
	seedReports(s)

	s.ReplaceAll([]*models.IncidentReport{{ID: "only"}})
	assert.Equal(t, 1, s.Count())
	_, ok := s.Get("fire-1")
	assert.False(t, ok)
}
