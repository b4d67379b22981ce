package services

import (
	"math"

	"github.com/jonboulle/clockwork"

	"incidentwatch/models"
)

// PriorityService computes the 0-100 urgency score that drives triage
// ordering. Priority is a pure function of the report's current fields and
// the clock; only this engine writes it.
type PriorityService struct {
	clock clockwork.Clock
}

func NewPriorityService(clock clockwork.Clock) *PriorityService {
	return &PriorityService{clock: clock}
}

const (
	verifiedBonus       = 20.0
	engagementPerVerify = 2.0
	engagementCap       = 20.0
	reputationBonus     = 10.0
	reputationCutoff    = 500
	decayFloor          = 0.5
	decayWindowHours    = 24.0
	maxPriority         = 100.0
)

func severityWeight(severity models.Severity) float64 {
	switch severity {
	case models.SeverityLow:
		return 10
	case models.SeverityMedium:
		return 30
	case models.SeverityHigh:
		return 60
	case models.SeverityCritical:
		return 90
	default:
		return 10
	}
}

func typeWeight(incidentType models.IncidentType) float64 {
	switch incidentType {
	case models.IncidentTypeFire:
		return 80
	case models.IncidentTypeFlood:
		return 70
	case models.IncidentTypeEarthquake:
		return 85
	case models.IncidentTypeAccident:
		return 40
	case models.IncidentTypeHazard:
		return 50
	case models.IncidentTypeInfrastructure:
		return 30
	case models.IncidentTypeMedical:
		return 60
	case models.IncidentTypeSecurity:
		return 45
	case models.IncidentTypeWeather:
		return 35
	case models.IncidentTypeOther:
		return 20
	default:
		return 20
	}
}

// CalculateInitialPriority scores a report at submission time from its
// severity, incident type, and the reporter's reputation.
func (ps *PriorityService) CalculateInitialPriority(incidentType models.IncidentType, severity models.Severity, reporterReputation int) float64 {
	priority := severityWeight(severity) + typeWeight(incidentType)
	if reporterReputation > reputationCutoff {
		priority += reputationBonus
	}
	return math.Min(priority, maxPriority)
}

// RecalculatePriority rescores a report from its current fields: the
// initial formula, a verification-status adjustment, a community-engagement
// bonus, and time decay. A report whose consensus settled on `false` is
// terminal at priority 0 and never decays.
func (ps *PriorityService) RecalculatePriority(report *models.IncidentReport) float64 {
	if report.VerificationStatus == models.StatusFalse {
		return 0
	}

	priority := ps.CalculateInitialPriority(report.Type, report.Severity, report.ReporterReputation)

	if report.VerificationStatus == models.StatusVerified {
		priority += verifiedBonus
	}

	priority += math.Min(float64(len(report.Verifications))*engagementPerVerify, engagementCap)

	hoursOld := ps.clock.Now().Sub(report.Timestamp).Hours()
	if hoursOld < 0 {
		hoursOld = 0
	}
	decay := math.Max(decayFloor, 1-hoursOld/decayWindowHours)
	priority *= decay

	return clampPriority(priority)
}

func clampPriority(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > maxPriority {
		return maxPriority
	}
	return p
}

// ImpactRadiusMeters derives the impact-area radius at creation from
// incident type and severity. The value is never recomputed afterwards.
func ImpactRadiusMeters(incidentType models.IncidentType, severity models.Severity) float64 {
	return baseRadiusMeters(incidentType) * severityMultiplier(severity)
}

func baseRadiusMeters(incidentType models.IncidentType) float64 {
	switch incidentType {
	case models.IncidentTypeFire:
		return 500
	case models.IncidentTypeFlood:
		return 2000
	case models.IncidentTypeEarthquake:
		return 5000
	case models.IncidentTypeAccident:
		return 100
	case models.IncidentTypeHazard:
		return 200
	case models.IncidentTypeInfrastructure:
		return 1000
	case models.IncidentTypeMedical:
		return 50
	case models.IncidentTypeSecurity:
		return 200
	case models.IncidentTypeWeather:
		return 1000
	case models.IncidentTypeOther:
		return 100
	default:
		return 100
	}
}

func severityMultiplier(severity models.Severity) float64 {
	switch severity {
	case models.SeverityLow:
		return 0.5
	case models.SeverityMedium:
		return 1
	case models.SeverityHigh:
		return 2
	case models.SeverityCritical:
		return 4
	default:
		return 1
	}
}
