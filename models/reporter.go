package models

import "time"

// ReporterProfile represents a contributing user. Profiles are created
// lazily on first report or verification and never deleted.
type ReporterProfile struct {
	ID           string               `json:"id"`
	Username     string               `json:"username"`
	Email        string               `json:"email"`
	Phone        string               `json:"phone,omitempty"`
	PasswordHash string               `json:"-"`
	Reputation   int                  `json:"reputation"` // 0-1000
	Level        ReporterLevel        `json:"level"`
	Badges       []string             `json:"badges,omitempty"`
	History      ReportingHistory     `json:"history"`
	Location     *ReportLocation      `json:"location,omitempty"`
	Preferences  ReporterPreferences  `json:"preferences"`
	JoinedAt     time.Time            `json:"joinedAt"`
	LastActive   time.Time            `json:"lastActive"`
}

type ReportingHistory struct {
	TotalReports    int            `json:"totalReports"`
	VerifiedReports int            `json:"verifiedReports"`
	FalseReports    int            `json:"falseReports"`
	Accuracy        float64        `json:"accuracy"` // verified / total, 0 when no reports
	Specializations []IncidentType `json:"specializations,omitempty"`
}

type ReporterPreferences struct {
	NotifyOnVerification bool     `json:"notifyOnVerification"`
	NotifyNearbyReports  bool     `json:"notifyNearbyReports"`
	ShareLocation        bool     `json:"shareLocation"`
	PushTokens           []string `json:"pushTokens,omitempty"`
}

type ReporterLevel string

const (
	LevelNew       ReporterLevel = "new"
	LevelTrusted   ReporterLevel = "trusted"
	LevelExpert    ReporterLevel = "expert"
	LevelAuthority ReporterLevel = "authority"
)

// Reputation thresholds for level derivation.
const (
	ReputationTrusted   = 100
	ReputationExpert    = 500
	ReputationAuthority = 800
	ReputationMax       = 1000
)

// LevelForReputation derives the reporter level from a reputation score.
func LevelForReputation(reputation int) ReporterLevel {
	switch {
	case reputation >= ReputationAuthority:
		return LevelAuthority
	case reputation >= ReputationExpert:
		return LevelExpert
	case reputation >= ReputationTrusted:
		return LevelTrusted
	default:
		return LevelNew
	}
}

// =================== AUTH REQUEST MODELS ===================

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Reporter *ReporterProfile `json:"reporter"`
	Token    string           `json:"token"`
	TokenTyp string           `json:"tokenType"`
	ExpireIn int64            `json:"expiresIn"`
}
