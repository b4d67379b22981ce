package services

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"incidentwatch/models"
	"incidentwatch/store"
	"incidentwatch/utils"
)

// AuthService registers reporters and issues access tokens.
type AuthService struct {
	reporters *store.ReporterStore
	jwt       *utils.JWTService
	clock     clockwork.Clock
	ids       utils.IDGenerator
}

func NewAuthService(reporters *store.ReporterStore, jwt *utils.JWTService, clock clockwork.Clock, ids utils.IDGenerator) *AuthService {
	return &AuthService{
		reporters: reporters,
		jwt:       jwt,
		clock:     clock,
		ids:       ids,
	}
}

// Register creates a reporter profile with a hashed password and returns a
// signed token.
func (as *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if as.reporters == nil || as.jwt == nil {
		return nil, utils.NewNotReadyError("auth service")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, exists := as.reporters.GetByEmail(email); exists {
		return nil, utils.NewConflictError("email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInternal, "failed to hash password")
	}

	now := as.clock.Now()
	profile := &models.ReporterProfile{
		ID:           as.ids.NewID(),
		Username:     req.Username,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Level:        models.LevelNew,
		Preferences: models.ReporterPreferences{
			NotifyOnVerification: true,
		},
		JoinedAt:   now,
		LastActive: now,
	}
	as.reporters.Insert(profile)

	logrus.Infof("Reporter registered: %s (%s)", profile.Username, profile.ID)
	return as.issueToken(profile)
}

// Login verifies credentials and returns a signed token. Invalid email and
// invalid password are indistinguishable to the caller.
func (as *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if as.reporters == nil || as.jwt == nil {
		return nil, utils.NewNotReadyError("auth service")
	}

	profile, ok := as.reporters.GetByEmail(strings.TrimSpace(req.Email))
	if !ok {
		return nil, utils.NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, utils.NewUnauthorizedError("invalid credentials")
	}

	now := as.clock.Now()
	if updated, err := as.reporters.Update(profile.ID, func(p *models.ReporterProfile) error {
		p.LastActive = now
		return nil
	}); err == nil {
		profile = updated
	}

	return as.issueToken(profile)
}

// GetProfile returns the reporter behind an authenticated request.
func (as *AuthService) GetProfile(ctx context.Context, reporterID string) (*models.ReporterProfile, error) {
	if as.reporters == nil {
		return nil, utils.NewNotReadyError("auth service")
	}
	profile, ok := as.reporters.Get(reporterID)
	if !ok {
		return nil, utils.NewReporterNotFoundError(reporterID)
	}
	return profile, nil
}

func (as *AuthService) issueToken(profile *models.ReporterProfile) (*models.AuthResponse, error) {
	token, err := as.jwt.GenerateToken(profile.ID, profile.Username)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInternal, "failed to sign token")
	}
	return &models.AuthResponse{
		Reporter: profile,
		Token:    token,
		TokenTyp: "Bearer",
		ExpireIn: int64(as.jwt.TokenTTL().Seconds()),
	}, nil
}
