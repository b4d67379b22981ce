package store

import (
	"sort"
	"sync"

	"incidentwatch/models"
	"incidentwatch/utils"
)

// ReportStore is the single authoritative keyed collection of incident
// reports. All mutation goes through Insert/Update/Delete so a reader never
// observes a partially constructed record: Update applies the whole change
// under the write lock and readers always receive deep copies.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]*models.IncidentReport
}

func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]*models.IncidentReport),
	}
}

// Insert stores a new report.
func (s *ReportStore) Insert(report *models.IncidentReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = cloneReport(report)
}

// Get returns a deep copy of the report, or false if absent.
func (s *ReportStore) Get(id string) (*models.IncidentReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, false
	}
	return cloneReport(report), true
}

// Update applies mutate to the stored record under the write lock and
// returns a copy of the result. If mutate returns an error the record is
// left untouched.
func (s *ReportStore) Update(id string, mutate func(*models.IncidentReport) error) (*models.IncidentReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, utils.NewReportNotFoundError(id)
	}

	// Mutate a copy so a failed mutation cannot leave a half-written record.
	updated := cloneReport(report)
	if err := mutate(updated); err != nil {
		return nil, err
	}
	s.reports[id] = updated

	return cloneReport(updated), nil
}

// Delete removes a report; it reports whether the id existed.
func (s *ReportStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.reports[id]
	delete(s.reports, id)
	return ok
}

// List returns deep copies of every stored report, in no particular order.
func (s *ReportStore) List() []*models.IncidentReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.IncidentReport, 0, len(s.reports))
	for _, report := range s.reports {
		out = append(out, cloneReport(report))
	}
	return out
}

func (s *ReportStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Query returns reports matching every provided filter constraint; absent
// constraints impose none. Results are sorted and limited per the filter.
func (s *ReportStore) Query(filter models.ReportFilter) []*models.IncidentReport {
	s.mu.RLock()
	matched := make([]*models.IncidentReport, 0)
	for _, report := range s.reports {
		if matchesFilter(report, filter) {
			matched = append(matched, cloneReport(report))
		}
	}
	s.mu.RUnlock()

	sortReports(matched, filter.SortBy, filter.SortOrder)

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched
}

// ReplaceAll swaps the entire collection; used when loading a snapshot.
func (s *ReportStore) ReplaceAll(reports []*models.IncidentReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = make(map[string]*models.IncidentReport, len(reports))
	for _, report := range reports {
		s.reports[report.ID] = cloneReport(report)
	}
}

func matchesFilter(report *models.IncidentReport, filter models.ReportFilter) bool {
	if filter.ActiveOnly && !report.IsActive {
		return false
	}

	if filter.Latitude != nil && filter.Longitude != nil && filter.RadiusKm > 0 {
		if !utils.IsWithinRadius(report.Location.Latitude, report.Location.Longitude,
			*filter.Latitude, *filter.Longitude, filter.RadiusKm) {
			return false
		}
	}

	if len(filter.Types) > 0 && !containsType(filter.Types, report.Type) {
		return false
	}
	if len(filter.Severities) > 0 && !containsSeverity(filter.Severities, report.Severity) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, report.VerificationStatus) {
		return false
	}

	if filter.Since != nil && report.Timestamp.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && report.Timestamp.After(*filter.Until) {
		return false
	}

	return true
}

func sortReports(reports []*models.IncidentReport, sortBy, sortOrder string) {
	if sortBy == "" {
		sortBy = models.SortByTimestamp
	}
	descending := sortOrder != "asc"

	less := func(a, b *models.IncidentReport) bool {
		switch sortBy {
		case models.SortByPriority:
			return a.Priority < b.Priority
		case models.SortByVerificationCount:
			return len(a.Verifications) < len(b.Verifications)
		default:
			return a.Timestamp.Before(b.Timestamp)
		}
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if descending {
			return less(reports[j], reports[i])
		}
		return less(reports[i], reports[j])
	})
}

func containsType(set []models.IncidentType, v models.IncidentType) bool {
	for _, t := range set {
		if t == v {
			return true
		}
	}
	return false
}

func containsSeverity(set []models.Severity, v models.Severity) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsStatus(set []models.VerificationStatus, v models.VerificationStatus) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func cloneReport(r *models.IncidentReport) *models.IncidentReport {
	out := *r

	out.Tags = append([]string(nil), r.Tags...)
	out.RelatedReports = append([]string(nil), r.RelatedReports...)

	out.Evidence = make([]models.MediaEvidence, len(r.Evidence))
	for i, ev := range r.Evidence {
		out.Evidence[i] = cloneEvidence(ev)
	}

	out.Verifications = cloneVerifications(r.Verifications)

	out.Updates = make([]models.IncidentUpdate, len(r.Updates))
	for i, u := range r.Updates {
		cu := u
		cu.Verifications = cloneVerifications(u.Verifications)
		out.Updates[i] = cu
	}

	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		out.ResolvedAt = &t
	}
	if r.OfficialResponse != nil {
		resp := *r.OfficialResponse
		out.OfficialResponse = &resp
	}
	if r.ImpactArea.AffectedPopulation != nil {
		p := *r.ImpactArea.AffectedPopulation
		out.ImpactArea.AffectedPopulation = &p
	}

	return &out
}

func cloneEvidence(ev models.MediaEvidence) models.MediaEvidence {
	out := ev
	if ev.Metadata != nil {
		meta := *ev.Metadata
		if ev.Metadata.Latitude != nil {
			lat := *ev.Metadata.Latitude
			meta.Latitude = &lat
		}
		if ev.Metadata.Longitude != nil {
			lon := *ev.Metadata.Longitude
			meta.Longitude = &lon
		}
		if ev.Metadata.CapturedAt != nil {
			t := *ev.Metadata.CapturedAt
			meta.CapturedAt = &t
		}
		out.Metadata = &meta
	}
	return out
}

func cloneVerifications(vs []models.CommunityVerification) []models.CommunityVerification {
	if vs == nil {
		return nil
	}
	out := make([]models.CommunityVerification, len(vs))
	for i, v := range vs {
		cv := v
		if v.Location != nil {
			loc := *v.Location
			cv.Location = &loc
		}
		out[i] = cv
	}
	return out
}
