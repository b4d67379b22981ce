package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"incidentwatch/models"
)

func confirmation(confidence float64, reputation int) models.CommunityVerification {
	return models.CommunityVerification{
		Status:             models.VerdictConfirmed,
		Confidence:         confidence,
		VerifierReputation: reputation,
	}
}

func dispute(confidence float64, reputation int) models.CommunityVerification {
	return models.CommunityVerification{
		Status:             models.VerdictDisputed,
		Confidence:         confidence,
		VerifierReputation: reputation,
	}
}

func TestDecideNoVerifications(t *testing.T) {
	cs := NewConsensusService()
	assert.Equal(t, models.StatusPending, cs.Decide(nil))
}

func TestDecideZeroWeight(t *testing.T) {
	cs := NewConsensusService()

	// Clarification requests carry no weight either way.
	status := cs.Decide([]models.CommunityVerification{
		{Status: models.VerdictNeedsClarification, Confidence: 90, VerifierReputation: 1000},
	})
	assert.Equal(t, models.StatusNeedsMoreInfo, status)

	// Zero-reputation verifiers contribute nothing.
	status = cs.Decide([]models.CommunityVerification{confirmation(100, 0)})
	assert.Equal(t, models.StatusNeedsMoreInfo, status)
}

func TestDecideVerifiedNeedsEnoughWeight(t *testing.T) {
	cs := NewConsensusService()

	// Each confirmation weighs 0.9. Unanimous agreement is not enough
	// until the accumulated weight clears the threshold.
	verifications := []models.CommunityVerification{confirmation(90, 1000)}
	assert.Equal(t, models.StatusNeedsMoreInfo, cs.Decide(verifications))

	verifications = append(verifications, confirmation(90, 1000))
	assert.Equal(t, models.StatusNeedsMoreInfo, cs.Decide(verifications))

	verifications = append(verifications, confirmation(90, 1000))
	assert.Equal(t, models.StatusVerified, cs.Decide(verifications))
}

func TestDecideFalse(t *testing.T) {
	cs := NewConsensusService()

	verifications := []models.CommunityVerification{
		dispute(100, 1000),
		dispute(100, 1000),
		{Status: models.VerdictFalseReport, Confidence: 100, VerifierReputation: 1000},
	}
	assert.Equal(t, models.StatusFalse, cs.Decide(verifications))

	// A credible confirmation pushes the ratio off the floor.
	verifications = append(verifications, confirmation(100, 1000))
	assert.NotEqual(t, models.StatusFalse, cs.Decide(verifications))
}

func TestDecideDisputed(t *testing.T) {
	cs := NewConsensusService()

	verifications := []models.CommunityVerification{
		confirmation(80, 1000),
		dispute(80, 1000),
	}
	assert.Equal(t, models.StatusDisputed, cs.Decide(verifications))
}

func TestDecideNeedsMoreInfoMixedLean(t *testing.T) {
	cs := NewConsensusService()

	// Ratio 0.75: too contested for verified, outside the disputed band.
	verifications := []models.CommunityVerification{
		confirmation(100, 1000),
		confirmation(100, 1000),
		confirmation(100, 1000),
		dispute(100, 1000),
	}
	assert.Equal(t, models.StatusNeedsMoreInfo, cs.Decide(verifications))
}

func TestUpdateVerificationStatusReportsChange(t *testing.T) {
	cs := NewConsensusService()

	report := &models.IncidentReport{VerificationStatus: models.StatusPending}
	assert.False(t, cs.UpdateVerificationStatus(report), "no verifications keeps pending")

	report.Verifications = []models.CommunityVerification{
		confirmation(90, 1000),
		confirmation(90, 1000),
		confirmation(90, 1000),
	}
	assert.True(t, cs.UpdateVerificationStatus(report))
	assert.Equal(t, models.StatusVerified, report.VerificationStatus)

	// Recomputing over unchanged data is a no-op.
	assert.False(t, cs.UpdateVerificationStatus(report))
}
