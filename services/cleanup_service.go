package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type SweepReport struct {
	UsersSwept  int     `json:"users_swept"`
	FilesPurged int     `json:"files_purged"`
	BytesFreed  int64   `json:"bytes_freed"`
	Warnings    []error `json:"-"`
	Failures    []error `json:"-"`
}

// CleanupService is the batch side of the trash lifecycle. It never schedules
// itself; the sweep command or an operator triggers it.
type CleanupService interface {
	CleanupOldTrash(ctx context.Context, userID uint, retentionDays int) (PurgeReport, error)
	SweepAll(ctx context.Context, retentionDays int) (SweepReport, error)
}

type cleanupService struct {
	deps   Deps
	purger purger
}

func NewCleanupService(deps Deps) CleanupService {
	return &cleanupService{deps: deps, purger: newPurger(deps)}
}

// CleanupOldTrash purges the user's files trashed more than retentionDays ago.
// storage_used is recomputed once for the whole batch.
func (s *cleanupService) CleanupOldTrash(ctx context.Context, userID uint, retentionDays int) (PurgeReport, error) {
	if retentionDays < 0 {
		return PurgeReport{}, newAppError(KindValidation, "retention days must not be negative", nil)
	}
	cutoff := oldTrashCutoff(s.deps.Settings.now(), retentionDays)

	return s.purger.purge(ctx, userID, func(tx *gorm.DB) (purgeSet, error) {
		if _, err := s.deps.Repos.Users.GetByID(ctx, tx, userID); err != nil {
			return purgeSet{}, repoError(err, "user not found", "failed to load user")
		}
		expired, err := s.deps.Repos.Files.ListDeletedBefore(ctx, tx, userID, cutoff)
		if err != nil {
			return purgeSet{}, newAppError(KindInternal, "failed to list expired trash", err)
		}
		return purgeSet{files: expired}, nil
	})
}

// SweepAll runs CleanupOldTrash for every user with auto cleanup enabled. A
// failing user is recorded and the sweep moves on.
func (s *cleanupService) SweepAll(ctx context.Context, retentionDays int) (SweepReport, error) {
	start := time.Now()
	defer func() { s.deps.Metrics.ObserveSweep(time.Since(start)) }()

	ids, err := s.deps.Repos.Users.ListIDs(ctx, nil, true)
	if err != nil {
		return SweepReport{}, newAppError(KindInternal, "failed to list users", err)
	}

	var report SweepReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r, err := s.CleanupOldTrash(ctx, id, retentionDays)
		if err != nil {
			log.Error().Err(err).Uint("user_id", id).Msg("trash sweep failed for user")
			report.Failures = append(report.Failures, fmt.Errorf("user %d: %w", id, err))
			continue
		}
		report.UsersSwept++
		report.FilesPurged += r.FilesPurged
		report.BytesFreed += r.BytesFreed
		report.Warnings = append(report.Warnings, r.Warnings...)
	}

	log.Info().Int("users", report.UsersSwept).Int("files", report.FilesPurged).Int64("bytes", report.BytesFreed).
		Int("failures", len(report.Failures)).Int("retention_days", retentionDays).Msg("trash sweep finished")
	return report, nil
}

// oldTrashCutoff is the deleted_at bound used by the sweep and the suggestions.
func oldTrashCutoff(now time.Time, retentionDays int) time.Time {
	return now.Add(-days(retentionDays))
}
