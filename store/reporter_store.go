package store

import (
	"strings"
	"sync"

	"incidentwatch/models"
	"incidentwatch/utils"
)

// ReporterStore is the authoritative keyed collection of reporter profiles.
// Profiles are created lazily and never deleted.
type ReporterStore struct {
	mu        sync.RWMutex
	reporters map[string]*models.ReporterProfile
}

func NewReporterStore() *ReporterStore {
	return &ReporterStore{
		reporters: make(map[string]*models.ReporterProfile),
	}
}

func (s *ReporterStore) Insert(profile *models.ReporterProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reporters[profile.ID] = cloneReporter(profile)
}

func (s *ReporterStore) Get(id string) (*models.ReporterProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.reporters[id]
	if !ok {
		return nil, false
	}
	return cloneReporter(profile), true
}

// GetByEmail finds a profile by email, case-insensitively.
func (s *ReporterStore) GetByEmail(email string) (*models.ReporterProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, profile := range s.reporters {
		if strings.EqualFold(profile.Email, email) {
			return cloneReporter(profile), true
		}
	}
	return nil, false
}

// Update applies mutate to the stored profile under the write lock.
func (s *ReporterStore) Update(id string, mutate func(*models.ReporterProfile) error) (*models.ReporterProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.reporters[id]
	if !ok {
		return nil, utils.NewReporterNotFoundError(id)
	}

	updated := cloneReporter(profile)
	if err := mutate(updated); err != nil {
		return nil, err
	}
	s.reporters[id] = updated

	return cloneReporter(updated), nil
}

// Ensure returns the existing profile or creates one via the factory under
// the write lock, so concurrent first actions by the same reporter create
// exactly one profile.
func (s *ReporterStore) Ensure(id string, create func() *models.ReporterProfile) *models.ReporterProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile, ok := s.reporters[id]; ok {
		return cloneReporter(profile)
	}
	profile := create()
	s.reporters[id] = cloneReporter(profile)
	return cloneReporter(profile)
}

func (s *ReporterStore) List() []*models.ReporterProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ReporterProfile, 0, len(s.reporters))
	for _, profile := range s.reporters {
		out = append(out, cloneReporter(profile))
	}
	return out
}

func (s *ReporterStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reporters)
}

// ReplaceAll swaps the entire collection; used when loading a snapshot.
func (s *ReporterStore) ReplaceAll(reporters []*models.ReporterProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reporters = make(map[string]*models.ReporterProfile, len(reporters))
	for _, profile := range reporters {
		s.reporters[profile.ID] = cloneReporter(profile)
	}
}

func cloneReporter(p *models.ReporterProfile) *models.ReporterProfile {
	out := *p
	out.Badges = append([]string(nil), p.Badges...)
	out.History.Specializations = append([]models.IncidentType(nil), p.History.Specializations...)
	out.Preferences.PushTokens = append([]string(nil), p.Preferences.PushTokens...)
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	return &out
}
