package events

import "incidentwatch/models"

// Payloads carried by bus events. Reports are always copies taken from the
// store, so handlers can read them without racing the pipeline.

type ReportEvent struct {
	Report *models.IncidentReport `json:"report"`
}

type EvidenceEvent struct {
	ReportID   string               `json:"reportId"`
	EvidenceID string               `json:"evidenceId"`
	Evidence   models.MediaEvidence `json:"evidence"`
}

type VerificationEvent struct {
	ReportID     string                       `json:"reportId"`
	Verification models.CommunityVerification `json:"verification"`
	Status       models.VerificationStatus    `json:"status"`
}

type PriorityEvent struct {
	ReportID    string  `json:"reportId"`
	OldPriority float64 `json:"oldPriority"`
	NewPriority float64 `json:"newPriority"`
}

type NotificationEvent struct {
	Report *models.IncidentReport `json:"report"`
	Reason string                 `json:"reason"`
}
