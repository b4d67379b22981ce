package models

import (
	"time"
)

// Core IncidentReport struct. Priority and VerificationStatus are derived
// fields written only by the priority and consensus engines; callers get
// copies from the store and can never mutate the stored record directly.
type IncidentReport struct {
	ID                 string                  `json:"id"`
	ReporterID         string                  `json:"reporterId"`
	ReporterName       string                  `json:"reporterName"`
	ReporterReputation int                     `json:"reporterReputation"` // snapshot at submission
	Timestamp          time.Time               `json:"timestamp"`
	Location           ReportLocation          `json:"location"`
	Type               IncidentType            `json:"type"`
	Severity           Severity                `json:"severity"`
	Title              string                  `json:"title"`
	Description        string                  `json:"description,omitempty"`
	Tags               []string                `json:"tags,omitempty"`
	Evidence           []MediaEvidence         `json:"evidence,omitempty"`
	Verifications      []CommunityVerification `json:"verifications,omitempty"`
	Updates            []IncidentUpdate        `json:"updates,omitempty"`
	VerificationStatus VerificationStatus      `json:"verificationStatus"`
	Priority           float64                 `json:"priority"` // 0-100
	IsActive           bool                    `json:"isActive"`
	ResolvedAt         *time.Time              `json:"resolvedAt,omitempty"`
	OfficialResponse   *OfficialResponse       `json:"officialResponse,omitempty"`
	Visibility         Visibility              `json:"visibility"`
	RelatedReports     []string                `json:"relatedReports,omitempty"`
	ImpactArea         ImpactArea              `json:"impactArea"`
	UpdatedAt          time.Time               `json:"updatedAt"`
}

type ReportLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"` // GPS accuracy in meters
}

// ImpactArea radius is derived at creation from incident type and severity
// and never mutated afterwards.
type ImpactArea struct {
	RadiusMeters       float64 `json:"radiusMeters"`
	AffectedPopulation *int    `json:"affectedPopulation,omitempty"`
}

type IncidentUpdate struct {
	ID            string                  `json:"id"`
	ReporterID    string                  `json:"reporterId"`
	ReporterName  string                  `json:"reporterName"`
	Content       string                  `json:"content"`
	Timestamp     time.Time               `json:"timestamp"`
	Verifications []CommunityVerification `json:"verifications,omitempty"`
}

type OfficialResponse struct {
	Agency      string    `json:"agency"`
	Message     string    `json:"message"`
	RespondedAt time.Time `json:"respondedAt"`
}

// Incident Type Constants
type IncidentType string

const (
	IncidentTypeFire           IncidentType = "fire"
	IncidentTypeFlood          IncidentType = "flood"
	IncidentTypeEarthquake     IncidentType = "earthquake"
	IncidentTypeAccident       IncidentType = "accident"
	IncidentTypeHazard         IncidentType = "hazard"
	IncidentTypeInfrastructure IncidentType = "infrastructure"
	IncidentTypeMedical        IncidentType = "medical"
	IncidentTypeSecurity       IncidentType = "security"
	IncidentTypeWeather        IncidentType = "weather"
	IncidentTypeOther          IncidentType = "other"
)

// Severity Constants
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Numeric weight used by hotspot analytics (low=1 .. critical=4).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Verification Status Constants
type VerificationStatus string

const (
	StatusPending       VerificationStatus = "pending"
	StatusVerified      VerificationStatus = "verified"
	StatusDisputed      VerificationStatus = "disputed"
	StatusFalse         VerificationStatus = "false"
	StatusNeedsMoreInfo VerificationStatus = "needs_more_info"
)

// Visibility Constants
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityCommunity Visibility = "community"
	VisibilityPrivate   Visibility = "private"
)

// =================== REQUEST/RESPONSE MODELS ===================

// Latitude/Longitude are pointers so that "required" distinguishes a
// missing field from a legitimate zero coordinate on the equator or
// prime meridian.
type SubmitReportRequest struct {
	Latitude    *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" binding:"required,min=-180,max=180"`
	Accuracy    float64  `json:"accuracy,omitempty"`
	Address     string   `json:"address,omitempty"`
	Type        string   `json:"type" binding:"required,oneof=fire flood earthquake accident hazard infrastructure medical security weather other"`
	Severity    string   `json:"severity" binding:"required,oneof=low medium high critical"`
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description,omitempty" binding:"max=5000"`
	Tags        []string `json:"tags,omitempty"`
	Visibility  string   `json:"visibility,omitempty" binding:"omitempty,oneof=public community private"`
}

type SubmitVerificationRequest struct {
	Status       string   `json:"status" binding:"required,oneof=confirmed disputed needs_clarification false_report"`
	Confidence   float64  `json:"confidence" binding:"min=0,max=100"`
	Comments     string   `json:"comments,omitempty" binding:"max=2000"`
	EvidenceText string   `json:"evidenceText,omitempty" binding:"max=2000"`
	Latitude     *float64 `json:"latitude,omitempty" binding:"omitempty,min=-90,max=90"`
	Longitude    *float64 `json:"longitude,omitempty" binding:"omitempty,min=-180,max=180"`
}

type AddUpdateRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

type OfficialResponseRequest struct {
	Agency  string `json:"agency" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=5000"`
}

// ReportFilter composes query constraints; zero-value fields impose none.
type ReportFilter struct {
	Latitude   *float64             `form:"latitude" json:"latitude,omitempty"`
	Longitude  *float64             `form:"longitude" json:"longitude,omitempty"`
	RadiusKm   float64              `form:"radiusKm" json:"radiusKm,omitempty"`
	Types      []IncidentType       `form:"type" json:"types,omitempty"`
	Severities []Severity           `form:"severity" json:"severities,omitempty"`
	Statuses   []VerificationStatus `form:"status" json:"statuses,omitempty"`
	Since      *time.Time           `form:"since" json:"since,omitempty" time_format:"2006-01-02T15:04:05Z07:00"`
	Until      *time.Time           `form:"until" json:"until,omitempty" time_format:"2006-01-02T15:04:05Z07:00"`
	ActiveOnly bool                 `form:"activeOnly" json:"activeOnly,omitempty"`
	Limit      int                  `form:"limit" json:"limit,omitempty"`
	SortBy     string               `form:"sortBy" json:"sortBy,omitempty"`       // timestamp, priority, verificationCount
	SortOrder  string               `form:"sortOrder" json:"sortOrder,omitempty"` // asc, desc
}

// Sort field constants for ReportFilter.SortBy
const (
	SortByTimestamp         = "timestamp"
	SortByPriority          = "priority"
	SortByVerificationCount = "verificationCount"
)
