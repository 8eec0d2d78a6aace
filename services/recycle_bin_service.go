package services

import (
	"context"
	"errors"

	"greencloud/models"
	"greencloud/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type TrashListing struct {
	Files   []models.File   `json:"files"`
	Folders []models.Folder `json:"folders"`
}

// RecycleBinService drives the active -> trashed -> purged lifecycle. Soft delete
// and restore are no-ops on nodes already in the target state.
type RecycleBinService interface {
	SoftDeleteFile(ctx context.Context, userID uint, fileID uint) error
	SoftDeleteFolder(ctx context.Context, userID uint, folderID uint) error
	RestoreFile(ctx context.Context, userID uint, fileID uint) error
	RestoreFolder(ctx context.Context, userID uint, folderID uint) error
	HardDeleteFile(ctx context.Context, userID uint, fileID uint) (PurgeReport, error)
	HardDeleteFolder(ctx context.Context, userID uint, folderID uint) (PurgeReport, error)
	ListTrash(ctx context.Context, userID uint) (TrashListing, error)
	EmptyTrash(ctx context.Context, userID uint) (PurgeReport, error)
}

type recycleBinService struct {
	deps     Deps
	users    repositories.UserRepository
	folders  repositories.FolderRepository
	files    repositories.FileRepository
	settings Settings
	resolver folderResolver
	purger   purger
}

func NewRecycleBinService(deps Deps) RecycleBinService {
	return &recycleBinService{
		deps:     deps,
		users:    deps.Repos.Users,
		folders:  deps.Repos.Folders,
		files:    deps.Repos.Files,
		settings: deps.Settings,
		resolver: folderResolver{folders: deps.Repos.Folders, files: deps.Repos.Files},
		purger:   newPurger(deps),
	}
}

func (s *recycleBinService) trashUpdates(batch string) map[string]interface{} {
	return map[string]interface{}{
		"is_deleted":  true,
		"deleted_at":  s.settings.now(),
		"trash_batch": batch,
	}
}

func restoreUpdates() map[string]interface{} {
	return map[string]interface{}{
		"is_deleted":  false,
		"deleted_at":  nil,
		"trash_batch": "",
	}
}

func (s *recycleBinService) recalculate(ctx context.Context, tx *gorm.DB, userID uint) error {
	if _, err := s.users.RecalculateStorageUsed(ctx, tx, userID); err != nil {
		return newAppError(KindInternal, "failed to recalculate storage", err)
	}
	return nil
}

func (s *recycleBinService) SoftDeleteFile(ctx context.Context, userID uint, fileID uint) error {
	return lockedTx(ctx, s.deps, userID, func(tx *gorm.DB) error {
		file, err := s.files.GetByIDAndUser(ctx, tx, fileID, userID)
		if err != nil {
			return repoError(err, "file not found", "failed to load file")
		}
		if file.IsDeleted {
			return nil
		}

		ids := []uint{file.ID}
		if file.ParentFileID == nil {
			// versions have no lifecycle of their own and follow their chain root
			versions, err := s.files.ListVersions(ctx, tx, userID, file.ID)
			if err != nil {
				return newAppError(KindInternal, "failed to load file versions", err)
			}
			for _, v := range versions {
				if v.ID != file.ID && !v.IsDeleted {
					ids = append(ids, v.ID)
				}
			}
		}

		batch := uuid.NewString()
		if err := s.files.UpdateByIDsAndUser(ctx, tx, ids, userID, s.trashUpdates(batch)); err != nil {
			return newAppError(KindInternal, "failed to trash file", err)
		}
		log.Info().Uint("user_id", userID).Uint("file_id", file.ID).Int("files", len(ids)).Msg("file moved to trash")
		return s.recalculate(ctx, tx, userID)
	})
}

func (s *recycleBinService) SoftDeleteFolder(ctx context.Context, userID uint, folderID uint) error {
	return lockedTx(ctx, s.deps, userID, func(tx *gorm.DB) error {
		folder, err := s.folders.GetByIDAndUser(ctx, tx, folderID, userID)
		if err != nil {
			return repoError(err, "folder not found", "failed to load folder")
		}
		if folder.IsDeleted {
			return nil
		}

		tree, err := s.resolver.loadTree(ctx, tx, userID)
		if err != nil {
			return err
		}
		nodes, err := tree.subtree(folder.ID, func(f models.Folder) bool { return !f.IsDeleted })
		if err != nil {
			return err
		}
		folderIDs := make([]uint, len(nodes))
		for i, n := range nodes {
			folderIDs[i] = n.ID
		}

		contained, err := s.files.ListByFolderIDs(ctx, tx, userID, folderIDs)
		if err != nil {
			return newAppError(KindInternal, "failed to list folder files", err)
		}
		var fileIDs []uint
		for _, f := range contained {
			if !f.IsDeleted {
				fileIDs = append(fileIDs, f.ID)
			}
		}

		batch := uuid.NewString()
		updates := s.trashUpdates(batch)
		if err := s.folders.UpdateByIDs(ctx, tx, userID, folderIDs, updates); err != nil {
			return newAppError(KindInternal, "failed to trash folders", err)
		}
		if err := s.files.UpdateByIDsAndUser(ctx, tx, fileIDs, userID, updates); err != nil {
			return newAppError(KindInternal, "failed to trash files", err)
		}
		log.Info().Uint("user_id", userID).Uint("folder_id", folder.ID).
			Int("folders", len(folderIDs)).Int("files", len(fileIDs)).Msg("folder moved to trash")
		return s.recalculate(ctx, tx, userID)
	})
}

// activeParent reports whether id names an existing, active folder of the user.
func (s *recycleBinService) activeParent(ctx context.Context, tx *gorm.DB, userID uint, id *uint) (bool, error) {
	if id == nil {
		return true, nil
	}
	parent, err := s.folders.GetByIDAndUser(ctx, tx, *id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, newAppError(KindInternal, "failed to load parent folder", err)
	}
	return !parent.IsDeleted, nil
}

func (s *recycleBinService) RestoreFile(ctx context.Context, userID uint, fileID uint) error {
	return lockedTx(ctx, s.deps, userID, func(tx *gorm.DB) error {
		file, err := s.files.GetByIDAndUser(ctx, tx, fileID, userID)
		if err != nil {
			return repoError(err, "file not found", "failed to load file")
		}
		if !file.IsDeleted {
			return nil
		}

		ids := []uint{file.ID}
		if file.ParentFileID == nil && file.TrashBatch != "" {
			versions, err := s.files.ListVersions(ctx, tx, userID, file.ID)
			if err != nil {
				return newAppError(KindInternal, "failed to load file versions", err)
			}
			for _, v := range versions {
				if v.ID != file.ID && v.IsDeleted && v.TrashBatch == file.TrashBatch {
					ids = append(ids, v.ID)
				}
			}
		}
		if err := s.files.UpdateByIDsAndUser(ctx, tx, ids, userID, restoreUpdates()); err != nil {
			return newAppError(KindInternal, "failed to restore file", err)
		}

		ok, err := s.activeParent(ctx, tx, userID, file.FolderID)
		if err != nil {
			return err
		}
		if !ok {
			if err := s.files.UpdateByIDAndUser(ctx, tx, file.ID, userID, map[string]interface{}{"folder_id": nil}); err != nil {
				return newAppError(KindInternal, "failed to reattach file", err)
			}
			log.Info().Uint("user_id", userID).Uint("file_id", file.ID).Msg("restored file reattached to root")
		}
		return s.recalculate(ctx, tx, userID)
	})
}

// RestoreFolder restores the folder and the descendants trashed by the same
// soft delete. Items trashed on their own stay in the trash.
func (s *recycleBinService) RestoreFolder(ctx context.Context, userID uint, folderID uint) error {
	return lockedTx(ctx, s.deps, userID, func(tx *gorm.DB) error {
		folder, err := s.folders.GetByIDAndUser(ctx, tx, folderID, userID)
		if err != nil {
			return repoError(err, "folder not found", "failed to load folder")
		}
		if !folder.IsDeleted {
			return nil
		}

		batch := folder.TrashBatch
		tree, err := s.resolver.loadTree(ctx, tx, userID)
		if err != nil {
			return err
		}
		nodes, err := tree.subtree(folder.ID, func(f models.Folder) bool {
			return f.ID == folder.ID || (f.IsDeleted && batch != "" && f.TrashBatch == batch)
		})
		if err != nil {
			return err
		}
		folderIDs := make([]uint, len(nodes))
		for i, n := range nodes {
			folderIDs[i] = n.ID
		}

		contained, err := s.files.ListByFolderIDs(ctx, tx, userID, folderIDs)
		if err != nil {
			return newAppError(KindInternal, "failed to list folder files", err)
		}
		var fileIDs []uint
		for _, f := range contained {
			if f.IsDeleted && batch != "" && f.TrashBatch == batch {
				fileIDs = append(fileIDs, f.ID)
			}
		}

		if err := s.folders.UpdateByIDs(ctx, tx, userID, folderIDs, restoreUpdates()); err != nil {
			return newAppError(KindInternal, "failed to restore folders", err)
		}
		if err := s.files.UpdateByIDsAndUser(ctx, tx, fileIDs, userID, restoreUpdates()); err != nil {
			return newAppError(KindInternal, "failed to restore files", err)
		}

		ok, err := s.activeParent(ctx, tx, userID, folder.ParentID)
		if err != nil {
			return err
		}
		if !ok {
			if err := s.folders.UpdateByID(ctx, tx, folder.ID, map[string]interface{}{"parent_id": nil}); err != nil {
				return newAppError(KindInternal, "failed to reattach folder", err)
			}
			if err := s.resolver.recomputePaths(ctx, tx, userID, folder.ID); err != nil {
				return err
			}
			log.Info().Uint("user_id", userID).Uint("folder_id", folder.ID).Msg("restored folder reattached to root")
		}
		log.Info().Uint("user_id", userID).Uint("folder_id", folder.ID).
			Int("folders", len(folderIDs)).Int("files", len(fileIDs)).Msg("folder restored")
		return s.recalculate(ctx, tx, userID)
	})
}

func (s *recycleBinService) HardDeleteFile(ctx context.Context, userID uint, fileID uint) (PurgeReport, error) {
	return s.purger.purge(ctx, userID, func(tx *gorm.DB) (purgeSet, error) {
		file, err := s.files.GetByIDAndUser(ctx, tx, fileID, userID)
		if err != nil {
			return purgeSet{}, repoError(err, "file not found", "failed to load file")
		}
		return purgeSet{files: []models.File{file}}, nil
	})
}

func (s *recycleBinService) HardDeleteFolder(ctx context.Context, userID uint, folderID uint) (PurgeReport, error) {
	return s.purger.purge(ctx, userID, func(tx *gorm.DB) (purgeSet, error) {
		if _, err := s.folders.GetByIDAndUser(ctx, tx, folderID, userID); err != nil {
			return purgeSet{}, repoError(err, "folder not found", "failed to load folder")
		}
		return s.purger.folderSubtreeSet(ctx, tx, userID, []uint{folderID})
	})
}

func (s *recycleBinService) ListTrash(ctx context.Context, userID uint) (TrashListing, error) {
	files, err := s.files.ListDeleted(ctx, nil, userID)
	if err != nil {
		return TrashListing{}, newAppError(KindInternal, "failed to list trashed files", err)
	}
	folders, err := s.folders.ListDeleted(ctx, nil, userID)
	if err != nil {
		return TrashListing{}, newAppError(KindInternal, "failed to list trashed folders", err)
	}
	return TrashListing{Files: files, Folders: folders}, nil
}

// EmptyTrash purges every trashed file and every trashed folder subtree.
func (s *recycleBinService) EmptyTrash(ctx context.Context, userID uint) (PurgeReport, error) {
	return s.purger.purge(ctx, userID, func(tx *gorm.DB) (purgeSet, error) {
		folders, err := s.folders.ListDeleted(ctx, tx, userID)
		if err != nil {
			return purgeSet{}, newAppError(KindInternal, "failed to list trashed folders", err)
		}
		rootIDs := make([]uint, len(folders))
		for i, f := range folders {
			rootIDs[i] = f.ID
		}
		set, err := s.purger.folderSubtreeSet(ctx, tx, userID, rootIDs)
		if err != nil {
			return purgeSet{}, err
		}

		trashed, err := s.files.ListDeleted(ctx, tx, userID)
		if err != nil {
			return purgeSet{}, newAppError(KindInternal, "failed to list trashed files", err)
		}
		seen := make(map[uint]bool, len(set.files))
		for _, f := range set.files {
			seen[f.ID] = true
		}
		for _, f := range trashed {
			if !seen[f.ID] {
				set.files = append(set.files, f)
			}
		}
		return set, nil
	})
}
