package services

import (
	"context"

	"greencloud/models"
	"greencloud/repositories"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type FolderContents struct {
	Folder  *models.Folder  `json:"folder"`
	Folders []models.Folder `json:"folders"`
	Files   []models.File   `json:"files"`
}

type FolderService interface {
	CreateFolder(ctx context.Context, userID uint, name string, parentID *uint) (models.Folder, error)
	RenameFolder(ctx context.Context, userID uint, folderID uint, name string) (models.Folder, error)
	ListContents(ctx context.Context, userID uint, parentID *uint) (FolderContents, error)
	Breadcrumbs(ctx context.Context, userID uint, folderID uint) ([]Breadcrumb, error)
	ResolvePath(ctx context.Context, userID uint, folderID uint) ([]string, error)
	DescendantFileCount(ctx context.Context, userID uint, folderID uint) (int64, error)
}

type folderService struct {
	deps     Deps
	folders  repositories.FolderRepository
	files    repositories.FileRepository
	resolver folderResolver
}

func NewFolderService(deps Deps) FolderService {
	return &folderService{
		deps:     deps,
		folders:  deps.Repos.Folders,
		files:    deps.Repos.Files,
		resolver: folderResolver{folders: deps.Repos.Folders, files: deps.Repos.Files},
	}
}

// activeFolder loads a folder that must exist and not be trashed.
func (s *folderService) activeFolder(ctx context.Context, tx *gorm.DB, userID, folderID uint, notFound string) (models.Folder, error) {
	folder, err := s.folders.GetByIDAndUser(ctx, tx, folderID, userID)
	if err != nil {
		return models.Folder{}, repoError(err, notFound, "failed to load folder")
	}
	if folder.IsDeleted {
		return models.Folder{}, newAppError(KindNotFound, notFound, nil)
	}
	return folder, nil
}

func (s *folderService) ensureUniqueName(ctx context.Context, tx *gorm.DB, userID uint, parentID *uint, name string, excludeID uint) error {
	count, err := s.folders.CountActiveByParentAndName(ctx, tx, userID, parentID, name, excludeID)
	if err != nil {
		return newAppError(KindInternal, "failed to check folder name", err)
	}
	if count > 0 {
		return newAppError(KindConflict, "a folder with this name already exists", nil)
	}
	return nil
}

// CreateFolder adds a leaf under an active parent, or at the root when parentID is nil.
func (s *folderService) CreateFolder(ctx context.Context, userID uint, name string, parentID *uint) (models.Folder, error) {
	name, err := validateNodeName(name)
	if err != nil {
		return models.Folder{}, err
	}
	if parentID != nil && *parentID == 0 {
		parentID = nil
	}
	folder, err := models.NewFolder(userID, name, parentID)
	if err != nil {
		return models.Folder{}, newAppError(KindValidation, err.Error(), nil)
	}

	err = lockedTx(ctx, s.deps, userID, func(tx *gorm.DB) error {
		folder.Path = pathFromNames([]string{folder.Name})
		if parentID != nil {
			parent, err := s.activeFolder(ctx, tx, userID, *parentID, "parent folder not found")
			if err != nil {
				return err
			}
			names, err := s.resolver.resolvePath(ctx, tx, parent)
			if err != nil {
				return err
			}
			folder.Path = pathFromNames(append(names, folder.Name))
		}
		if err := s.ensureUniqueName(ctx, tx, userID, parentID, folder.Name, 0); err != nil {
			return err
		}
		if err := s.folders.Create(ctx, tx, &folder); err != nil {
			return newAppError(KindInternal, "failed to create folder", err)
		}
		return nil
	})
	if err != nil {
		return models.Folder{}, err
	}
	log.Info().Uint("user_id", userID).Uint("folder_id", folder.ID).Str("path", folder.Path).Msg("folder created")
	return folder, nil
}

// RenameFolder renames the folder and rebuilds the cached path of its subtree.
func (s *folderService) RenameFolder(ctx context.Context, userID uint, folderID uint, name string) (models.Folder, error) {
	name, err := validateNodeName(name)
	if err != nil {
		return models.Folder{}, err
	}

	var folder models.Folder
	err = lockedTx(ctx, s.deps, userID, func(tx *gorm.DB) error {
		var err error
		if folder, err = s.activeFolder(ctx, tx, userID, folderID, "folder not found"); err != nil {
			return err
		}
		if folder.Name == name {
			return nil
		}
		if err := s.ensureUniqueName(ctx, tx, userID, folder.ParentID, name, folder.ID); err != nil {
			return err
		}
		if err := s.folders.UpdateByID(ctx, tx, folder.ID, map[string]interface{}{"name": name}); err != nil {
			return newAppError(KindInternal, "failed to rename folder", err)
		}
		if err := s.resolver.recomputePaths(ctx, tx, userID, folder.ID); err != nil {
			return err
		}
		folder, err = s.folders.GetByIDAndUser(ctx, tx, folder.ID, userID)
		return asAppError(err, "failed to reload folder")
	})
	if err != nil {
		return models.Folder{}, err
	}
	return folder, nil
}

func (s *folderService) ListContents(ctx context.Context, userID uint, parentID *uint) (FolderContents, error) {
	var out FolderContents
	if parentID != nil && *parentID == 0 {
		parentID = nil
	}
	if parentID != nil {
		folder, err := s.activeFolder(ctx, nil, userID, *parentID, "folder not found")
		if err != nil {
			return FolderContents{}, err
		}
		out.Folder = &folder
	}

	folders, err := s.folders.ListByParent(ctx, nil, userID, parentID, false)
	if err != nil {
		return FolderContents{}, newAppError(KindInternal, "failed to list folders", err)
	}
	files, err := s.files.ListByFolder(ctx, nil, repositories.ListFilesInput{UserID: userID, FolderID: parentID, SortBy: "name", Order: "asc"})
	if err != nil {
		return FolderContents{}, newAppError(KindInternal, "failed to list files", err)
	}
	out.Folders, out.Files = folders, files
	return out, nil
}

func (s *folderService) Breadcrumbs(ctx context.Context, userID uint, folderID uint) ([]Breadcrumb, error) {
	folder, err := s.folders.GetByIDAndUser(ctx, nil, folderID, userID)
	if err != nil {
		return nil, repoError(err, "folder not found", "failed to load folder")
	}
	return s.resolver.breadcrumbs(ctx, nil, folder)
}

func (s *folderService) ResolvePath(ctx context.Context, userID uint, folderID uint) ([]string, error) {
	folder, err := s.folders.GetByIDAndUser(ctx, nil, folderID, userID)
	if err != nil {
		return nil, repoError(err, "folder not found", "failed to load folder")
	}
	return s.resolver.resolvePath(ctx, nil, folder)
}

func (s *folderService) DescendantFileCount(ctx context.Context, userID uint, folderID uint) (int64, error) {
	folder, err := s.folders.GetByIDAndUser(ctx, nil, folderID, userID)
	if err != nil {
		return 0, repoError(err, "folder not found", "failed to load folder")
	}
	return s.resolver.descendantFileCount(ctx, nil, folder)
}
