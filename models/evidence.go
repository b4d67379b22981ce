package models

import "time"

// MediaEvidence is owned exclusively by one IncidentReport. The verification
// score is derived from metadata consistency checks and is never settable by
// callers.
type MediaEvidence struct {
	ID                string            `json:"id"`
	Type              MediaType         `json:"type"`
	URL               string            `json:"url"`
	ThumbnailURL      string            `json:"thumbnailUrl,omitempty"`
	FileName          string            `json:"fileName"`
	FileSize          int64             `json:"fileSize"`
	MimeType          string            `json:"mimeType"`
	UploadedAt        time.Time         `json:"uploadedAt"`
	Metadata          *EvidenceMetadata `json:"metadata,omitempty"`
	ProcessingStatus  ProcessingStatus  `json:"processingStatus"`
	ModerationStatus  ModerationStatus  `json:"moderationStatus"`
	VerificationScore float64           `json:"verificationScore"` // 0-100
}

type EvidenceMetadata struct {
	Width           int        `json:"width,omitempty"`
	Height          int        `json:"height,omitempty"`
	DurationSeconds float64    `json:"durationSeconds,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	CapturedAt      *time.Time `json:"capturedAt,omitempty"`
	Device          string     `json:"device,omitempty"`
}

type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

type ProcessingStatus string

const (
	ProcessingUploading  ProcessingStatus = "uploading"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingReady      ProcessingStatus = "ready"
	ProcessingFailed     ProcessingStatus = "failed"
)

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
	ModerationFlagged  ModerationStatus = "flagged"
)
