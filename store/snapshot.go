package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"incidentwatch/models"
	"incidentwatch/utils"
)

const (
	snapshotReportsKey   = "incidentwatch:snapshot:reports"
	snapshotReportersKey = "incidentwatch:snapshot:reporters"
)

// reportPair and reporterPair are the persisted layout: id-keyed
// association pairs with all dates as RFC-3339 strings (the encoding/json
// representation of time.Time). The reporter pair carries the credential
// hash separately because the profile never serializes it.
type reportPair struct {
	ID     string                 `json:"id"`
	Record *models.IncidentReport `json:"record"`
}

type reporterPair struct {
	ID           string                  `json:"id"`
	Record       *models.ReporterProfile `json:"record"`
	PasswordHash string                  `json:"passwordHash,omitempty"`
}

// SnapshotStore persists both in-memory stores to Redis so state survives a
// restart. The in-memory maps stay authoritative; this is a cache, not a
// database.
type SnapshotStore struct {
	redis     *redis.Client
	reports   *ReportStore
	reporters *ReporterStore
}

func NewSnapshotStore(rdb *redis.Client, reports *ReportStore, reporters *ReporterStore) *SnapshotStore {
	return &SnapshotStore{
		redis:     rdb,
		reports:   reports,
		reporters: reporters,
	}
}

// Save serializes both stores into Redis.
func (s *SnapshotStore) Save(ctx context.Context) error {
	if s.redis == nil {
		return utils.NewNotReadyError("snapshot store")
	}

	reports := s.reports.List()
	reportPairs := make([]reportPair, 0, len(reports))
	for _, report := range reports {
		reportPairs = append(reportPairs, reportPair{ID: report.ID, Record: report})
	}

	reporters := s.reporters.List()
	reporterPairs := make([]reporterPair, 0, len(reporters))
	for _, profile := range reporters {
		reporterPairs = append(reporterPairs, reporterPair{
			ID:           profile.ID,
			Record:       profile,
			PasswordHash: profile.PasswordHash,
		})
	}

	reportData, err := json.Marshal(reportPairs)
	if err != nil {
		return utils.NewStorageError("marshal reports snapshot", err)
	}
	reporterData, err := json.Marshal(reporterPairs)
	if err != nil {
		return utils.NewStorageError("marshal reporters snapshot", err)
	}

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, snapshotReportsKey, reportData, 0)
	pipe.Set(ctx, snapshotReportersKey, reporterData, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.NewStorageError("write snapshot", err)
	}

	logrus.Debugf("Snapshot saved: %d reports, %d reporters", len(reportPairs), len(reporterPairs))
	return nil
}

// Load restores both stores from Redis. A missing snapshot is not an error;
// the service simply starts empty.
func (s *SnapshotStore) Load(ctx context.Context) error {
	if s.redis == nil {
		return utils.NewNotReadyError("snapshot store")
	}

	reportData, err := s.redis.Get(ctx, snapshotReportsKey).Bytes()
	if err == redis.Nil {
		logrus.Info("No report snapshot found, starting empty")
		return nil
	}
	if err != nil {
		return utils.NewStorageError("read reports snapshot", err)
	}

	var reportPairs []reportPair
	if err := json.Unmarshal(reportData, &reportPairs); err != nil {
		return utils.NewStorageError("unmarshal reports snapshot", err)
	}

	reports := make([]*models.IncidentReport, 0, len(reportPairs))
	for _, pair := range reportPairs {
		if pair.Record == nil {
			continue
		}
		pair.Record.ID = pair.ID
		reports = append(reports, pair.Record)
	}
	s.reports.ReplaceAll(reports)

	reporterData, err := s.redis.Get(ctx, snapshotReportersKey).Bytes()
	if err != nil && err != redis.Nil {
		return utils.NewStorageError("read reporters snapshot", err)
	}
	if err == nil {
		var reporterPairs []reporterPair
		if err := json.Unmarshal(reporterData, &reporterPairs); err != nil {
			return utils.NewStorageError("unmarshal reporters snapshot", err)
		}
		reporters := make([]*models.ReporterProfile, 0, len(reporterPairs))
		for _, pair := range reporterPairs {
			if pair.Record == nil {
				continue
			}
			pair.Record.ID = pair.ID
			pair.Record.PasswordHash = pair.PasswordHash
			reporters = append(reporters, pair.Record)
		}
		s.reporters.ReplaceAll(reporters)
	}

	logrus.Infof("Snapshot loaded: %d reports, %d reporters", s.reports.Count(), s.reporters.Count())
	return nil
}

// Ping verifies the Redis connection with a short timeout.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	if s.redis == nil {
		return utils.NewNotReadyError("snapshot store")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.redis.Ping(ctx).Err()
}
