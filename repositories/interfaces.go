package repositories

import (
	"context"
	"time"

	"greencloud/models"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type UserRepository interface {
	CountByUsername(ctx context.Context, username string) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (models.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error)
	// LockByID reads the user row and holds a row lock until tx ends.
	LockByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error)
	// ReserveStorage adds size to storage_used only if the result stays within
	// the quota. It reports false when the quota would be exceeded.
	ReserveStorage(ctx context.Context, tx *gorm.DB, userID uint, size int64) (bool, error)
	// RecalculateStorageUsed rewrites storage_used from the user's active files.
	RecalculateStorageUsed(ctx context.Context, tx *gorm.DB, userID uint) (int64, error)
	UpdateByID(ctx context.Context, tx *gorm.DB, userID uint, updates map[string]interface{}) error
	ListIDs(ctx context.Context, tx *gorm.DB, autoCleanupOnly bool) ([]uint, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, userID uint) error
}

type FolderRepository interface {
	GetByIDAndUser(ctx context.Context, tx *gorm.DB, folderID uint, userID uint) (models.Folder, error)
	Create(ctx context.Context, tx *gorm.DB, folder *models.Folder) error
	// ListByParent lists a user's folders under parentID; nil lists the root.
	ListByParent(ctx context.Context, tx *gorm.DB, userID uint, parentID *uint, includeDeleted bool) ([]models.Folder, error)
	CountActiveByParentAndName(ctx context.Context, tx *gorm.DB, userID uint, parentID *uint, name string, excludeID uint) (int64, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]models.Folder, error)
	ListDeleted(ctx context.Context, tx *gorm.DB, userID uint) ([]models.Folder, error)
	UpdateByID(ctx context.Context, tx *gorm.DB, folderID uint, updates map[string]interface{}) error
	UpdateByIDs(ctx context.Context, tx *gorm.DB, userID uint, folderIDs []uint, updates map[string]interface{}) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, folderIDs []uint) error
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uint) error
}

type ListFilesInput struct {
	UserID   uint
	FolderID *uint
	SortBy   string
	Order    string
	Offset   int
	Limit    int
}

type FileRepository interface {
	Create(ctx context.Context, tx *gorm.DB, file *models.File) error
	GetByIDAndUser(ctx context.Context, tx *gorm.DB, fileID uint, userID uint) (models.File, error)
	ListByFolder(ctx context.Context, tx *gorm.DB, in ListFilesInput) ([]models.File, error)
	CountByFolder(ctx context.Context, tx *gorm.DB, userID uint, folderID *uint) (int64, error)
	// ListByFolderIDs returns files of any lifecycle state inside the given folders.
	ListByFolderIDs(ctx context.Context, tx *gorm.DB, userID uint, folderIDs []uint) ([]models.File, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]models.File, error)
	ListActiveHashed(ctx context.Context, tx *gorm.DB, userID uint) ([]models.File, error)
	ListActiveByHash(ctx context.Context, tx *gorm.DB, userID uint, hash string) ([]models.File, error)
	ListDeleted(ctx context.Context, tx *gorm.DB, userID uint) ([]models.File, error)
	ListDeletedBefore(ctx context.Context, tx *gorm.DB, userID uint, cutoff time.Time) ([]models.File, error)
	ListFavorites(ctx context.Context, tx *gorm.DB, userID uint) ([]models.File, error)
	// Search matches active files whose original_filename contains query,
	// ignoring case, newest first. limit <= 0 returns every match.
	Search(ctx context.Context, tx *gorm.DB, userID uint, query string, limit int) ([]models.File, error)
	ListRecent(ctx context.Context, tx *gorm.DB, userID uint, limit int) ([]models.File, error)
	// ListVersions returns the chain root and every file whose parent_file_id is rootID.
	ListVersions(ctx context.Context, tx *gorm.DB, userID uint, rootID uint) ([]models.File, error)
	MaxVersion(ctx context.Context, tx *gorm.DB, userID uint, rootID uint) (int, error)
	Stats(ctx context.Context, tx *gorm.DB, userID uint, now time.Time, retention, stale time.Duration) (FileStats, error)
	UpdateByIDAndUser(ctx context.Context, tx *gorm.DB, fileID uint, userID uint, updates map[string]interface{}) error
	UpdateByIDsAndUser(ctx context.Context, tx *gorm.DB, fileIDs []uint, userID uint, updates map[string]interface{}) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, fileIDs []uint) error
}

// FileStats aggregates the per-user counters the GreenOps engine reads.
type FileStats struct {
	ActiveFiles    int64
	FilesInFolders int64
	TrashedFiles   int64
	TrashedBytes   int64
	OldTrashFiles  int64
	StaleFiles     int64
}

type Container struct {
	TxManager TxManager
	Users     UserRepository
	Folders   FolderRepository
	Files     FileRepository
}
