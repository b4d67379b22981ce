package models

import "time"

// CommunityVerification is a single community member's assessment of a
// report, weighted by the verifier's reputation at the time it was made.
type CommunityVerification struct {
	ID                 string              `json:"id"`
	VerifierID         string              `json:"verifierId"`
	VerifierName       string              `json:"verifierName"`
	VerifierReputation int                 `json:"verifierReputation"` // snapshot at verification time
	Timestamp          time.Time           `json:"timestamp"`
	Status             VerificationVerdict `json:"status"`
	Confidence         float64             `json:"confidence"` // 0-100
	EvidenceText       string              `json:"evidenceText,omitempty"`
	Location           *ReportLocation     `json:"location,omitempty"`
	Comments           string              `json:"comments,omitempty"`
	HelpfulCount       int                 `json:"helpfulCount"`
	FlagCount          int                 `json:"flagCount"`
}

type VerificationVerdict string

const (
	VerdictConfirmed          VerificationVerdict = "confirmed"
	VerdictDisputed           VerificationVerdict = "disputed"
	VerdictNeedsClarification VerificationVerdict = "needs_clarification"
	VerdictFalseReport        VerificationVerdict = "false_report"
)
