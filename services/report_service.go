package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"incidentwatch/events"
	"incidentwatch/metrics"
	"incidentwatch/models"
	"incidentwatch/store"
	"incidentwatch/utils"
)

const (
	relatedMaxDistanceKm = 1.0
	relatedMaxAge        = 4 * time.Hour
	purgeAge             = 7 * 24 * time.Hour

	// Minimum priority delta before a priority_updated event is broadcast,
	// to bound fan-out volume during periodic recalculation.
	priorityEmitThreshold = 5.0

	verifierReputationAward = 5
	reporterVerifiedAward   = 10
	reporterFalsePenalty    = 25
)

// ReportService owns the report lifecycle: submission, verification,
// updates, consensus and priority recomputation, and purging. It is the
// only writer of the derived VerificationStatus and Priority fields.
type ReportService struct {
	reports   *store.ReportStore
	reporters *store.ReporterStore
	priority  *PriorityService
	consensus *ConsensusService
	bus       *events.Bus
	clock     clockwork.Clock
	ids       utils.IDGenerator

	// Pending-verification queue drained by the pipeline worker.
	pendingMu  sync.Mutex
	pending    []string
	pendingSet map[string]struct{}
}

func NewReportService(
	reports *store.ReportStore,
	reporters *store.ReporterStore,
	priority *PriorityService,
	consensus *ConsensusService,
	bus *events.Bus,
	clock clockwork.Clock,
	ids utils.IDGenerator,
) *ReportService {
	return &ReportService{
		reports:    reports,
		reporters:  reporters,
		priority:   priority,
		consensus:  consensus,
		bus:        bus,
		clock:      clock,
		ids:        ids,
		pendingSet: make(map[string]struct{}),
	}
}

func (rs *ReportService) ready() error {
	if rs.reports == nil || rs.reporters == nil || rs.priority == nil || rs.consensus == nil || rs.bus == nil {
		return utils.NewNotReadyError("report service")
	}
	return nil
}

// SubmitReport creates a report, scores it, links related incidents,
// updates the reporter profile, queues it for verification processing, and
// broadcasts new_report.
func (rs *ReportService) SubmitReport(ctx context.Context, reporterID, reporterName string, req models.SubmitReportRequest) (*models.IncidentReport, error) {
	if err := rs.ready(); err != nil {
		return nil, err
	}
	if verrs := utils.ValidateStruct(req); len(verrs) > 0 {
		return nil, utils.NewValidationError(verrs[0].Message)
	}
	lat, lon := *req.Latitude, *req.Longitude
	if !utils.IsValidCoordinate(lat, lon) {
		return nil, utils.NewValidationError("invalid coordinates")
	}

	profile := rs.ensureReporter(reporterID, reporterName)

	now := rs.clock.Now()
	incidentType := models.IncidentType(req.Type)
	severity := models.Severity(req.Severity)

	visibility := models.Visibility(req.Visibility)
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	report := &models.IncidentReport{
		ID:                 rs.ids.NewID(),
		ReporterID:         profile.ID,
		ReporterName:       profile.Username,
		ReporterReputation: profile.Reputation,
		Timestamp:          now,
		Location: models.ReportLocation{
			Latitude:  lat,
			Longitude: lon,
			Address:   req.Address,
			Accuracy:  req.Accuracy,
		},
		Type:               incidentType,
		Severity:           severity,
		Title:              req.Title,
		Description:        req.Description,
		Tags:               req.Tags,
		VerificationStatus: models.StatusPending,
		IsActive:           true,
		Visibility:         visibility,
		ImpactArea: models.ImpactArea{
			RadiusMeters: ImpactRadiusMeters(incidentType, severity),
		},
		UpdatedAt: now,
	}
	report.Priority = rs.priority.CalculateInitialPriority(incidentType, severity, profile.Reputation)
	report.RelatedReports = rs.findRelatedReports(report)

	rs.reports.Insert(report)

	if _, err := rs.reporters.Update(profile.ID, func(p *models.ReporterProfile) error {
		p.History.TotalReports++
		p.History.Accuracy = historyAccuracy(p.History)
		p.LastActive = now
		return nil
	}); err != nil {
		logrus.Warnf("Failed to update reporter history for %s: %v", profile.ID, err)
	}

	rs.enqueue(report.ID)
	metrics.ReportsSubmitted.Inc()
	rs.bus.Publish(events.EventNewReport, events.ReportEvent{Report: report})

	logrus.Infof("Report submitted: %s (%s/%s) priority=%.0f related=%d",
		report.ID, report.Type, report.Severity, report.Priority, len(report.RelatedReports))
	return report, nil
}

// findRelatedReports returns ids of existing reports of the same incident
// type within 1 km and 4 hours. Linkage is one-directional: only the new
// report records the matches.
func (rs *ReportService) findRelatedReports(report *models.IncidentReport) []string {
	type match struct {
		id string
		ts time.Time
	}
	var matches []match

	for _, existing := range rs.reports.List() {
		if existing.ID == report.ID || existing.Type != report.Type {
			continue
		}
		age := report.Timestamp.Sub(existing.Timestamp)
		if age < 0 {
			age = -age
		}
		if age > relatedMaxAge {
			continue
		}
		if utils.CalculateDistanceKm(report.Location.Latitude, report.Location.Longitude,
			existing.Location.Latitude, existing.Location.Longitude) > relatedMaxDistanceKm {
			continue
		}
		matches = append(matches, match{id: existing.ID, ts: existing.Timestamp})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ts.Before(matches[j].ts) })

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.id)
	}
	return ids
}

// GetReport returns a copy of one report.
func (rs *ReportService) GetReport(ctx context.Context, reportID string) (*models.IncidentReport, error) {
	if err := rs.ready(); err != nil {
		return nil, err
	}
	report, ok := rs.reports.Get(reportID)
	if !ok {
		return nil, utils.NewReportNotFoundError(reportID)
	}
	return report, nil
}

// QueryReports returns reports matching the composed filter.
func (rs *ReportService) QueryReports(ctx context.Context, filter models.ReportFilter) ([]*models.IncidentReport, error) {
	if err := rs.ready(); err != nil {
		return nil, err
	}
	switch filter.SortBy {
	case "", models.SortByTimestamp, models.SortByPriority, models.SortByVerificationCount:
	default:
		return nil, utils.NewValidationError(fmt.Sprintf("unknown sort field %q", filter.SortBy))
	}
	return rs.reports.Query(filter), nil
}

// SubmitVerification appends a community verification, recomputes consensus
// and priority for the report, and rewards the verifier. One verification
// per verifier per report.
func (rs *ReportService) SubmitVerification(ctx context.Context, reportID, verifierID, verifierName string, req models.SubmitVerificationRequest) (*models.IncidentReport, error) {
	if err := rs.ready(); err != nil {
		return nil, err
	}
	if verrs := utils.ValidateStruct(req); len(verrs) > 0 {
		return nil, utils.NewValidationError(verrs[0].Message)
	}
	if req.Confidence < 0 || req.Confidence > 100 {
		return nil, utils.NewValidationError("confidence must be between 0 and 100")
	}

	profile := rs.ensureReporter(verifierID, verifierName)
	now := rs.clock.Now()

	verification := models.CommunityVerification{
		ID:                 rs.ids.NewID(),
		VerifierID:         profile.ID,
		VerifierName:       profile.Username,
		VerifierReputation: profile.Reputation,
		Timestamp:          now,
		Status:             models.VerificationVerdict(req.Status),
		Confidence:         req.Confidence,
		EvidenceText:       req.EvidenceText,
		Comments:           req.Comments,
	}
	if req.Latitude != nil && req.Longitude != nil {
		verification.Location = &models.ReportLocation{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		}
	}

	var oldStatus, newStatus models.VerificationStatus
	var oldPriority float64

	updated, err := rs.reports.Update(reportID, func(report *models.IncidentReport) error {
		for _, existing := range report.Verifications {
			if existing.VerifierID == profile.ID {
				return utils.NewDuplicateVerificationError(profile.ID)
			}
		}
		oldStatus = report.VerificationStatus
		oldPriority = report.Priority

		report.Verifications = append(report.Verifications, verification)
		rs.consensus.UpdateVerificationStatus(report)
		report.Priority = rs.priority.RecalculatePriority(report)
		report.UpdatedAt = now

		newStatus = report.VerificationStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.bumpReputation(profile.ID, verifierReputationAward)
	metrics.VerificationsRecorded.Inc()

	rs.bus.Publish(events.EventVerificationAdded, events.VerificationEvent{
		ReportID:     reportID,
		Verification: verification,
		Status:       updated.VerificationStatus,
	})
	if math.Abs(updated.Priority-oldPriority) > priorityEmitThreshold {
		rs.bus.Publish(events.EventPriorityUpdated, events.PriorityEvent{
			ReportID:    reportID,
			OldPriority: oldPriority,
			NewPriority: updated.Priority,
		})
	}
	if newStatus != oldStatus {
		rs.applyConsensusOutcome(updated, oldStatus, newStatus)
	}

	return updated, nil
}

// AddReportUpdate appends a follow-up update and recomputes priority.
func (rs *ReportService) AddReportUpdate(ctx context.Context, reportID, reporterID, reporterName string, req models.AddUpdateRequest) (*models.IncidentReport, error) {
	if err := rs.ready(); err != nil {
		return nil, err
	}

	profile := rs.ensureReporter(reporterID, reporterName)
	now := rs.clock.Now()

	update := models.IncidentUpdate{
		ID:           rs.ids.NewID(),
		ReporterID:   profile.ID,
		ReporterName: profile.Username,
		Content:      req.Content,
		Timestamp:    now,
	}

	updated, err := rs.reports.Update(reportID, func(report *models.IncidentReport) error {
		report.Updates = append(report.Updates, update)
		report.Priority = rs.priority.RecalculatePriority(report)
		report.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.bus.Publish(events.EventReportUpdated, events.ReportEvent{Report: updated})
	return updated, nil
}

// AttachOfficialResponse records an agency response on a report.
func (rs *ReportService) AttachOfficialResponse(ctx context.Context, reportID string, req models.OfficialResponseRequest) (*models.IncidentReport, error) {
	if err := rs.ready(); err != nil {
		return nil, err
	}
	now := rs.clock.Now()

	updated, err := rs.reports.Update(reportID, func(report *models.IncidentReport) error {
		report.OfficialResponse = &models.OfficialResponse{
			Agency:      req.Agency,
			Message:     req.Message,
			RespondedAt: now,
		}
		report.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.bus.Publish(events.EventReportUpdated, events.ReportEvent{Report: updated})
	return updated, nil
}

// ResolveReport marks a report resolved and inactive. Resolved reports stay
// queryable until the purge window expires.
func (rs *ReportService) ResolveReport(ctx context.Context, reportID string) (*models.IncidentReport, error) {
	if err := rs.ready(); err != nil {
		return nil, err
	}
	now := rs.clock.Now()

	updated, err := rs.reports.Update(reportID, func(report *models.IncidentReport) error {
		if report.ResolvedAt != nil {
			return utils.NewConflictError("report is already resolved")
		}
		report.ResolvedAt = &now
		report.IsActive = false
		report.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.bus.Publish(events.EventReportUpdated, events.ReportEvent{Report: updated})
	return updated, nil
}

// =================== PIPELINE OPERATIONS ===================

func (rs *ReportService) enqueue(reportID string) {
	rs.pendingMu.Lock()
	defer rs.pendingMu.Unlock()

	if _, queued := rs.pendingSet[reportID]; queued {
		return
	}
	rs.pendingSet[reportID] = struct{}{}
	rs.pending = append(rs.pending, reportID)
}

func (rs *ReportService) drainPending() []string {
	rs.pendingMu.Lock()
	defer rs.pendingMu.Unlock()

	drained := rs.pending
	rs.pending = nil
	rs.pendingSet = make(map[string]struct{})
	return drained
}

// ProcessPendingVerifications drains the queue and reprocesses consensus
// and priority for each touched report. Returns the number processed.
func (rs *ReportService) ProcessPendingVerifications(ctx context.Context) int {
	processed := 0
	for _, reportID := range rs.drainPending() {
		var oldStatus, newStatus models.VerificationStatus

		updated, err := rs.reports.Update(reportID, func(report *models.IncidentReport) error {
			oldStatus = report.VerificationStatus
			rs.consensus.UpdateVerificationStatus(report)
			report.Priority = rs.priority.RecalculatePriority(report)
			newStatus = report.VerificationStatus
			return nil
		})
		if err != nil {
			// Report may have been purged since it was queued.
			logrus.Debugf("Skipping queued report %s: %v", reportID, err)
			continue
		}
		if newStatus != oldStatus {
			rs.applyConsensusOutcome(updated, oldStatus, newStatus)
		}
		processed++
	}
	return processed
}

// RecalculateActivePriorities rescores every active report, broadcasting
// priority_updated only when the change exceeds the emit threshold.
// Returns the number of reports whose priority moved past the threshold.
func (rs *ReportService) RecalculateActivePriorities(ctx context.Context) int {
	changed := 0
	for _, report := range rs.reports.List() {
		if !report.IsActive {
			continue
		}

		var oldPriority float64
		updated, err := rs.reports.Update(report.ID, func(r *models.IncidentReport) error {
			oldPriority = r.Priority
			r.Priority = rs.priority.RecalculatePriority(r)
			return nil
		})
		if err != nil {
			continue
		}

		if math.Abs(updated.Priority-oldPriority) > priorityEmitThreshold {
			changed++
			rs.bus.Publish(events.EventPriorityUpdated, events.PriorityEvent{
				ReportID:    report.ID,
				OldPriority: oldPriority,
				NewPriority: updated.Priority,
			})
		}
	}
	return changed
}

// PurgeExpired removes reports that are both inactive and older than seven
// days. Returns the number purged.
func (rs *ReportService) PurgeExpired(ctx context.Context) int {
	now := rs.clock.Now()
	purged := 0
	for _, report := range rs.reports.List() {
		if report.IsActive || now.Sub(report.Timestamp) <= purgeAge {
			continue
		}
		if rs.reports.Delete(report.ID) {
			purged++
			metrics.ReportsPurged.Inc()
		}
	}
	if purged > 0 {
		logrus.Infof("Purged %d expired reports", purged)
	}
	return purged
}

// =================== REPORTER MAINTENANCE ===================

// ensureReporter returns the profile for an id, creating one lazily on a
// reporter's first report or verification.
func (rs *ReportService) ensureReporter(reporterID, reporterName string) *models.ReporterProfile {
	now := rs.clock.Now()
	return rs.reporters.Ensure(reporterID, func() *models.ReporterProfile {
		name := reporterName
		if name == "" {
			name = "reporter-" + shortID(reporterID)
		}
		return &models.ReporterProfile{
			ID:         reporterID,
			Username:   name,
			Level:      models.LevelNew,
			JoinedAt:   now,
			LastActive: now,
		}
	})
}

func (rs *ReportService) bumpReputation(reporterID string, delta int) {
	if _, err := rs.reporters.Update(reporterID, func(p *models.ReporterProfile) error {
		p.Reputation += delta
		if p.Reputation < 0 {
			p.Reputation = 0
		}
		if p.Reputation > models.ReputationMax {
			p.Reputation = models.ReputationMax
		}
		p.Level = models.LevelForReputation(p.Reputation)
		p.LastActive = rs.clock.Now()
		return nil
	}); err != nil {
		logrus.Warnf("Failed to adjust reputation for %s: %v", reporterID, err)
	}
}

// applyConsensusOutcome reacts to a verification-status transition: adjusts
// the reporter's standing and emits report_notification for verified
// critical incidents.
func (rs *ReportService) applyConsensusOutcome(report *models.IncidentReport, oldStatus, newStatus models.VerificationStatus) {
	switch newStatus {
	case models.StatusVerified:
		rs.bumpReputation(report.ReporterID, reporterVerifiedAward)
		rs.recordOutcome(report.ReporterID, report.Type, true)
	case models.StatusFalse:
		rs.bumpReputation(report.ReporterID, -reporterFalsePenalty)
		rs.recordOutcome(report.ReporterID, report.Type, false)
	}

	rs.bus.Publish(events.EventReportUpdated, events.ReportEvent{Report: report})

	if newStatus == models.StatusVerified && report.Severity == models.SeverityCritical {
		rs.bus.Publish(events.EventReportNotification, events.NotificationEvent{
			Report: report,
			Reason: "critical incident verified",
		})
	}
}

func (rs *ReportService) recordOutcome(reporterID string, incidentType models.IncidentType, verified bool) {
	if _, err := rs.reporters.Update(reporterID, func(p *models.ReporterProfile) error {
		if verified {
			p.History.VerifiedReports++
			p.History.Specializations = addSpecialization(p.History.Specializations, incidentType)
		} else {
			p.History.FalseReports++
		}
		p.History.Accuracy = historyAccuracy(p.History)
		return nil
	}); err != nil {
		logrus.Warnf("Failed to record outcome for %s: %v", reporterID, err)
	}
}

// addSpecialization records an incident type the reporter has had verified,
// once per type.
func addSpecialization(specs []models.IncidentType, incidentType models.IncidentType) []models.IncidentType {
	for _, existing := range specs {
		if existing == incidentType {
			return specs
		}
	}
	return append(specs, incidentType)
}

func historyAccuracy(h models.ReportingHistory) float64 {
	if h.TotalReports == 0 {
		return 0
	}
	return float64(h.VerifiedReports) / float64(h.TotalReports)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
