package services

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"incidentwatch/models"
)

func TestCalculateInitialPriority(t *testing.T) {
	ps := NewPriorityService(clockwork.NewFakeClock())

	tests := []struct {
		name       string
		incident   models.IncidentType
		severity   models.Severity
		reputation int
		want       float64
	}{
		{"low other baseline", models.IncidentTypeOther, models.SeverityLow, 0, 30},
		{"medium flood", models.IncidentTypeFlood, models.SeverityMedium, 0, 100},
		{"high medical", models.IncidentTypeMedical, models.SeverityHigh, 0, 100},
		{"accident medium", models.IncidentTypeAccident, models.SeverityMedium, 0, 70},
		{"reputation bonus applies above cutoff", models.IncidentTypeAccident, models.SeverityMedium, 501, 80},
		{"no bonus at cutoff", models.IncidentTypeAccident, models.SeverityMedium, 500, 70},
		{"critical earthquake clamps to 100", models.IncidentTypeEarthquake, models.SeverityCritical, 1000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ps.CalculateInitialPriority(tt.incident, tt.severity, tt.reputation)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecalculatePriorityDecay(t *testing.T) {
	start := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	ps := NewPriorityService(clock)

	report := &models.IncidentReport{
		Type:               models.IncidentTypeAccident,
		Severity:           models.SeverityMedium,
		Timestamp:          start,
		VerificationStatus: models.StatusPending,
	}

	// Fresh report, no decay.
	assert.Equal(t, 70.0, ps.RecalculatePriority(report))

	// Half the decay window gone.
	clock.Advance(12 * time.Hour)
	assert.InDelta(t, 35.0, ps.RecalculatePriority(report), 0.001)

	// Decay bottoms out at the floor even after two full windows.
	clock.Advance(36 * time.Hour)
	assert.InDelta(t, 35.0, ps.RecalculatePriority(report), 0.001)
}

func TestRecalculatePriorityVerifiedAndEngagement(t *testing.T) {
	start := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	ps := NewPriorityService(clock)

	verifications := make([]models.CommunityVerification, 15)
	report := &models.IncidentReport{
		Type:               models.IncidentTypeAccident,
		Severity:           models.SeverityMedium,
		Timestamp:          start,
		VerificationStatus: models.StatusVerified,
		Verifications:      verifications,
	}

	// 70 base + 20 verified + engagement capped at 20, clamped to 100.
	assert.Equal(t, 100.0, ps.RecalculatePriority(report))

	report.Verifications = verifications[:3]
	// 70 + 20 + 6
	assert.Equal(t, 96.0, ps.RecalculatePriority(report))
}

func TestRecalculatePriorityFalseIsTerminal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ps := NewPriorityService(clock)

	report := &models.IncidentReport{
		Type:               models.IncidentTypeFire,
		Severity:           models.SeverityCritical,
		Timestamp:          clock.Now(),
		VerificationStatus: models.StatusFalse,
		Verifications:      make([]models.CommunityVerification, 5),
	}
	assert.Equal(t, 0.0, ps.RecalculatePriority(report))
}

func TestRecalculatePriorityFutureTimestamp(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ps := NewPriorityService(clock)

	report := &models.IncidentReport{
		Type:               models.IncidentTypeAccident,
		Severity:           models.SeverityMedium,
		Timestamp:          clock.Now().Add(2 * time.Hour),
		VerificationStatus: models.StatusPending,
	}
	// A clock-skewed future timestamp must not inflate the score.
	assert.Equal(t, 70.0, ps.RecalculatePriority(report))
}

func TestImpactRadiusMeters(t *testing.T) {
	assert.Equal(t, 20000.0, ImpactRadiusMeters(models.IncidentTypeEarthquake, models.SeverityCritical))
	assert.Equal(t, 50.0, ImpactRadiusMeters(models.IncidentTypeMedical, models.SeverityMedium))
	assert.Equal(t, 25.0, ImpactRadiusMeters(models.IncidentTypeMedical, models.SeverityLow))
	assert.Equal(t, 1000.0, ImpactRadiusMeters(models.IncidentTypeFire, models.SeverityHigh))
}
