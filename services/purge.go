package services

import (
	"context"
	"errors"
	"fmt"

	"greencloud/models"
	"greencloud/storage"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// PurgeReport describes a hard delete. Warnings hold byte removals that failed
// after the records were already gone.
type PurgeReport struct {
	FilesPurged   int     `json:"files_purged"`
	FoldersPurged int     `json:"folders_purged"`
	BytesFreed    int64   `json:"bytes_freed"`
	Warnings      []error `json:"-"`
}

func (r PurgeReport) WarningMessages() []string {
	msgs := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		msgs = append(msgs, w.Error())
	}
	return msgs
}

func (r *PurgeReport) merge(other PurgeReport) {
	r.FilesPurged += other.FilesPurged
	r.FoldersPurged += other.FoldersPurged
	r.BytesFreed += other.BytesFreed
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// purgeSet is what one hard delete removes.
type purgeSet struct {
	files     []models.File
	folderIDs []uint
}

type purger struct {
	deps     Deps
	resolver folderResolver
}

func newPurger(deps Deps) purger {
	return purger{deps: deps, resolver: folderResolver{folders: deps.Repos.Folders, files: deps.Repos.Files}}
}

// purge collects a set under the user lock, deletes its records, recomputes
// storage_used once, and then removes the bytes outside the lock.
func (p purger) purge(ctx context.Context, userID uint, collect func(tx *gorm.DB) (purgeSet, error)) (PurgeReport, error) {
	return p.purgeThen(ctx, userID, collect, nil)
}

// purgeThen is purge with a final step run inside the same transaction.
func (p purger) purgeThen(ctx context.Context, userID uint, collect func(tx *gorm.DB) (purgeSet, error), then func(tx *gorm.DB) error) (PurgeReport, error) {
	var set purgeSet
	err := lockedTx(ctx, p.deps, userID, func(tx *gorm.DB) error {
		var err error
		if set, err = collect(tx); err != nil {
			return err
		}
		if set, err = p.withVersions(ctx, tx, userID, set); err != nil {
			return err
		}

		ids := make([]uint, len(set.files))
		for i, f := range set.files {
			ids[i] = f.ID
		}
		if err := p.deps.Repos.Files.DeleteByIDs(ctx, tx, ids); err != nil {
			return newAppError(KindInternal, "failed to delete file records", err)
		}
		if err := p.deps.Repos.Folders.DeleteByIDs(ctx, tx, set.folderIDs); err != nil {
			return newAppError(KindInternal, "failed to delete folder records", err)
		}
		if _, err := p.deps.Repos.Users.RecalculateStorageUsed(ctx, tx, userID); err != nil {
			return newAppError(KindInternal, "failed to recalculate storage", err)
		}
		if then != nil {
			return then(tx)
		}
		return nil
	})
	if err != nil {
		return PurgeReport{}, err
	}

	report := p.removeBytes(ctx, set.files)
	report.FoldersPurged = len(set.folderIDs)
	p.deps.Metrics.ObservePurge(report.FilesPurged, report.BytesFreed, len(report.Warnings))
	if report.FilesPurged > 0 || report.FoldersPurged > 0 {
		log.Info().Uint("user_id", userID).Int("files", report.FilesPurged).Int("folders", report.FoldersPurged).
			Int64("bytes", report.BytesFreed).Int("warnings", len(report.Warnings)).Msg("purge completed")
	}
	return report, nil
}

// withVersions adds the version children owned by every chain root in the set.
func (p purger) withVersions(ctx context.Context, tx *gorm.DB, userID uint, set purgeSet) (purgeSet, error) {
	seen := make(map[uint]bool, len(set.files))
	for _, f := range set.files {
		seen[f.ID] = true
	}
	for i := 0; i < len(set.files); i++ {
		f := set.files[i]
		if f.ParentFileID != nil {
			continue
		}
		versions, err := p.deps.Repos.Files.ListVersions(ctx, tx, userID, f.ID)
		if err != nil {
			return set, newAppError(KindInternal, "failed to load file versions", err)
		}
		for _, v := range versions {
			if !seen[v.ID] {
				seen[v.ID] = true
				set.files = append(set.files, v)
			}
		}
	}
	return set, nil
}

func (p purger) removeBytes(ctx context.Context, files []models.File) PurgeReport {
	var report PurgeReport
	// removal continues even if the caller has gone away
	rmCtx := context.WithoutCancel(ctx)
	for _, f := range files {
		report.FilesPurged++
		report.BytesFreed += f.Size
		if err := p.deps.Storage.Remove(rmCtx, f.StoragePath); err != nil {
			if errors.Is(err, storage.ErrNotExist) {
				log.Warn().Uint("file_id", f.ID).Str("path", f.StoragePath).Msg("stored bytes already missing at purge")
				continue
			}
			log.Warn().Err(err).Uint("file_id", f.ID).Str("path", f.StoragePath).Msg("failed to remove stored bytes")
			report.Warnings = append(report.Warnings,
				newAppError(KindStorageIO, fmt.Sprintf("failed to remove bytes of file %d", f.ID), err))
		}
	}
	return report
}

// folderSubtreeSet collects a folder, every descendant folder and all their files, in any state.
func (p purger) folderSubtreeSet(ctx context.Context, tx *gorm.DB, userID uint, rootIDs []uint) (purgeSet, error) {
	tree, err := p.resolver.loadTree(ctx, tx, userID)
	if err != nil {
		return purgeSet{}, err
	}
	var set purgeSet
	seen := make(map[uint]bool)
	for _, rootID := range rootIDs {
		nodes, err := tree.subtree(rootID, func(models.Folder) bool { return true })
		if err != nil {
			return purgeSet{}, err
		}
		for _, n := range nodes {
			if !seen[n.ID] {
				seen[n.ID] = true
				set.folderIDs = append(set.folderIDs, n.ID)
			}
		}
	}
	files, err := p.deps.Repos.Files.ListByFolderIDs(ctx, tx, userID, set.folderIDs)
	if err != nil {
		return purgeSet{}, newAppError(KindInternal, "failed to list folder files", err)
	}
	set.files = files
	return set, nil
}
