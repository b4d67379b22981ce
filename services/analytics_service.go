package services

import (
	"context"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"incidentwatch/models"
	"incidentwatch/store"
	"incidentwatch/utils"
)

const (
	topListSize    = 5
	hotspotMax     = 10
	hotspotMinSize = 2
)

// AnalyticsService computes reporting rollups over the in-memory store.
// Every call scans the current reports; nothing is cached.
type AnalyticsService struct {
	reports   *store.ReportStore
	reporters *store.ReporterStore
	clock     clockwork.Clock
}

func NewAnalyticsService(reports *store.ReportStore, reporters *store.ReporterStore, clock clockwork.Clock) *AnalyticsService {
	return &AnalyticsService{
		reports:   reports,
		reporters: reporters,
		clock:     clock,
	}
}

// GenerateAnalytics rolls up reports created within the timeframe window
// ending now.
func (as *AnalyticsService) GenerateAnalytics(ctx context.Context, timeframe string) (*models.ReportingAnalytics, error) {
	if as.reports == nil || as.reporters == nil {
		return nil, utils.NewNotReadyError("analytics service")
	}

	window, ok := models.TimeframeDuration(timeframe)
	if !ok {
		return nil, utils.NewValidationError("timeframe must be one of hour, day, week, month")
	}

	now := as.clock.Now()
	since := now.Add(-window)

	analytics := &models.ReportingAnalytics{
		Timeframe:   timeframe,
		GeneratedAt: now,
	}

	typeCounts := make(map[models.IncidentType]int)
	reporterCounts := make(map[string]*models.ReporterCount)

	cells := make(map[string]*hotspotCell)

	var (
		verificationMinutesSum float64
		verificationSamples    int
		responseMinutesSum     float64
		responded              int
	)

	for _, report := range as.reports.List() {
		if report.Timestamp.Before(since) || report.Timestamp.After(now) {
			continue
		}

		analytics.TotalReports++
		typeCounts[report.Type]++

		rc, ok := reporterCounts[report.ReporterID]
		if !ok {
			rc = &models.ReporterCount{ReporterID: report.ReporterID, Name: report.ReporterName}
			reporterCounts[report.ReporterID] = rc
		}
		rc.Count++

		switch report.VerificationStatus {
		case models.StatusVerified:
			analytics.VerifiedReports++
			if minutes, ok := minutesToVerification(report); ok {
				verificationMinutesSum += minutes
				verificationSamples++
			}
		case models.StatusFalse:
			analytics.FalseReports++
		}

		if report.OfficialResponse != nil {
			responded++
			responseMinutesSum += report.OfficialResponse.RespondedAt.Sub(report.Timestamp).Minutes()
		}

		key := utils.GridCellKey(report.Location.Latitude, report.Location.Longitude)
		c, ok := cells[key]
		if !ok {
			c = &hotspotCell{}
			cells[key] = c
		}
		c.count++
		c.severitySum += report.Severity.Rank()
		c.latitudeSum += report.Location.Latitude
		c.longitudeSum += report.Location.Longitude
	}

	if verificationSamples > 0 {
		analytics.AvgVerificationMinutes = verificationMinutesSum / float64(verificationSamples)
	}
	if analytics.TotalReports > 0 {
		analytics.ResponseRate = float64(responded) / float64(analytics.TotalReports)
	}
	if responded > 0 {
		analytics.AvgResponseMinutes = responseMinutesSum / float64(responded)
	}

	analytics.TopIncidentTypes = topIncidentTypes(typeCounts)
	analytics.TopReporters = as.topReporters(reporterCounts)
	analytics.Hotspots = hotspots(cells)

	return analytics, nil
}

// minutesToVerification measures submission to the earliest verification on
// a verified report.
func minutesToVerification(report *models.IncidentReport) (float64, bool) {
	var earliest time.Time
	for _, v := range report.Verifications {
		if earliest.IsZero() || v.Timestamp.Before(earliest) {
			earliest = v.Timestamp
		}
	}
	if earliest.IsZero() {
		return 0, false
	}
	minutes := earliest.Sub(report.Timestamp).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	return minutes, true
}

func topIncidentTypes(counts map[models.IncidentType]int) []models.IncidentCount {
	out := make([]models.IncidentCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, models.IncidentCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	if len(out) > topListSize {
		out = out[:topListSize]
	}
	return out
}

func (as *AnalyticsService) topReporters(counts map[string]*models.ReporterCount) []models.ReporterCount {
	out := make([]models.ReporterCount, 0, len(counts))
	for _, rc := range counts {
		if profile, ok := as.reporters.Get(rc.ReporterID); ok {
			rc.Reputation = profile.Reputation
		}
		out = append(out, *rc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ReporterID < out[j].ReporterID
	})
	if len(out) > topListSize {
		out = out[:topListSize]
	}
	return out
}

type hotspotCell struct {
	count        int
	severitySum  int
	latitudeSum  float64
	longitudeSum float64
}

// hotspots keeps grid cells holding at least two reports, centered on the
// mean coordinate of the cell's reports, densest first.
func hotspots(cells map[string]*hotspotCell) []models.Hotspot {
	out := make([]models.Hotspot, 0, len(cells))
	for _, c := range cells {
		if c.count < hotspotMinSize {
			continue
		}
		out = append(out, models.Hotspot{
			Latitude:    c.latitudeSum / float64(c.count),
			Longitude:   c.longitudeSum / float64(c.count),
			Count:       c.count,
			AvgSeverity: float64(c.severitySum) / float64(c.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Latitude != out[j].Latitude {
			return out[i].Latitude < out[j].Latitude
		}
		return out[i].Longitude < out[j].Longitude
	})
	if len(out) > hotspotMax {
		out = out[:hotspotMax]
	}
	return out
}
