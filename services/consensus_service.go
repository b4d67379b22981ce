package services

import (
	"math"

	"incidentwatch/models"
)

// ConsensusService aggregates weighted community verifications into a
// single verification status. The decision is a pure function of the
// verification list, observed in insertion order, so recomputing over
// unchanged data always yields the same status.
type ConsensusService struct{}

func NewConsensusService() *ConsensusService {
	return &ConsensusService{}
}

const (
	// Minimum weighted evidence required before a verdict either way.
	consensusMinWeight = 2.0
	verifiedRatio      = 0.8
	falseRatio         = 0.2
	disputedBand       = 0.2
)

// verificationWeight is the contribution of one verification: confidence
// normalized to [0,1] scaled by the verifier's reputation share of the
// 0-1000 range. A confident verification from a maxed-out verifier counts
// close to 1.
func verificationWeight(v models.CommunityVerification) float64 {
	confidence := math.Max(0, math.Min(v.Confidence, 100)) / 100.0
	reputation := math.Max(0, math.Min(float64(v.VerifierReputation), models.ReputationMax)) / float64(models.ReputationMax)
	return confidence * reputation
}

// UpdateVerificationStatus recomputes and writes the report's verification
// status from its current verifications. Returns true when the status
// changed.
func (cs *ConsensusService) UpdateVerificationStatus(report *models.IncidentReport) bool {
	next := cs.Decide(report.Verifications)
	if next == report.VerificationStatus {
		return false
	}
	report.VerificationStatus = next
	return true
}

// Decide evaluates the decision policy over a verification list.
func (cs *ConsensusService) Decide(verifications []models.CommunityVerification) models.VerificationStatus {
	if len(verifications) == 0 {
		return models.StatusPending
	}

	var confirmedWeight, disputedWeight float64
	for _, v := range verifications {
		switch v.Status {
		case models.VerdictConfirmed:
			confirmedWeight += verificationWeight(v)
		case models.VerdictDisputed, models.VerdictFalseReport:
			disputedWeight += verificationWeight(v)
		}
	}

	total := confirmedWeight + disputedWeight
	if total == 0 {
		return models.StatusNeedsMoreInfo
	}

	ratio := confirmedWeight / total

	switch {
	case ratio >= verifiedRatio && confirmedWeight >= consensusMinWeight:
		return models.StatusVerified
	case ratio <= falseRatio && disputedWeight >= consensusMinWeight:
		return models.StatusFalse
	case math.Abs(ratio-0.5) < disputedBand:
		return models.StatusDisputed
	default:
		return models.StatusNeedsMoreInfo
	}
}
