package repositories

import (
	"context"
	"strings"
	"time"

	"greencloud/models"

	"gorm.io/gorm"
)

type GormFileRepository struct {
	db *gorm.DB
}

func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) folderQuery(db *gorm.DB, userID uint, folderID *uint) *gorm.DB {
	db = db.Where("user_id = ? AND is_deleted = ?", userID, false)
	if folderID == nil {
		return db.Where("folder_id IS NULL")
	}
	return db.Where("folder_id = ?", *folderID)
}

func (r *GormFileRepository) Create(_ context.Context, tx *gorm.DB, file *models.File) error {
	return useTx(r.db, tx).Create(file).Error
}

func (r *GormFileRepository) GetByIDAndUser(_ context.Context, tx *gorm.DB, fileID uint, userID uint) (models.File, error) {
	var file models.File
	err := useTx(r.db, tx).Where("id = ? AND user_id = ?", fileID, userID).First(&file).Error
	return file, err
}

func (r *GormFileRepository) ListByFolder(_ context.Context, tx *gorm.DB, in ListFilesInput) ([]models.File, error) {
	query := r.folderQuery(useTx(r.db, tx).Model(&models.File{}), in.UserID, in.FolderID)

	sortColumns := map[string]string{
		"name":       "original_filename",
		"created_at": "created_at",
		"size":       "size",
	}
	sortCol := sortColumns[in.SortBy]
	if sortCol == "" {
		sortCol = sortColumns["created_at"]
	}

	order := strings.ToUpper(in.Order)
	if order != "ASC" {
		order = "DESC"
	}

	query = query.Order(sortCol + " " + order).Order("id " + order)
	if in.Offset > 0 {
		query = query.Offset(in.Offset)
	}
	if in.Limit > 0 {
		query = query.Limit(in.Limit)
	}

	var files []models.File
	err := query.Find(&files).Error
	return files, err
}

func (r *GormFileRepository) CountByFolder(_ context.Context, tx *gorm.DB, userID uint, folderID *uint) (int64, error) {
	var total int64
	err := r.folderQuery(useTx(r.db, tx).Model(&models.File{}), userID, folderID).Count(&total).Error
	return total, err
}

func (r *GormFileRepository) ListByFolderIDs(_ context.Context, tx *gorm.DB, userID uint, folderIDs []uint) ([]models.File, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	var files []models.File
	err := useTx(r.db, tx).Where("user_id = ? AND folder_id IN ?", userID, folderIDs).Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListByUser(_ context.Context, tx *gorm.DB, userID uint) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).Where("user_id = ?", userID).Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListActiveHashed(_ context.Context, tx *gorm.DB, userID uint) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).
		Where("user_id = ? AND is_deleted = ? AND content_hash IS NOT NULL", userID, false).
		Order("id ASC").
		Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListActiveByHash(_ context.Context, tx *gorm.DB, userID uint, hash string) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).
		Where("user_id = ? AND is_deleted = ? AND content_hash = ?", userID, false, hash).
		Order("id ASC").
		Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListDeleted(_ context.Context, tx *gorm.DB, userID uint) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).
		Where("user_id = ? AND is_deleted = ?", userID, true).
		Order("deleted_at DESC").
		Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListDeletedBefore(_ context.Context, tx *gorm.DB, userID uint, cutoff time.Time) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).
		Where("user_id = ? AND is_deleted = ? AND deleted_at < ?", userID, true, cutoff).
		Order("deleted_at ASC").
		Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListFavorites(_ context.Context, tx *gorm.DB, userID uint) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).
		Where("user_id = ? AND is_deleted = ? AND is_favorite = ?", userID, false, true).
		Order("updated_at DESC").
		Find(&files).Error
	return files, err
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (r *GormFileRepository) Search(_ context.Context, tx *gorm.DB, userID uint, query string, limit int) ([]models.File, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	q := useTx(r.db, tx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Where("LOWER(original_filename) LIKE ? ESCAPE '!'", pattern).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var files []models.File
	err := q.Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListRecent(_ context.Context, tx *gorm.DB, userID uint, limit int) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListVersions(_ context.Context, tx *gorm.DB, userID uint, rootID uint) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).
		Where("user_id = ? AND (id = ? OR parent_file_id = ?)", userID, rootID, rootID).
		Order("version ASC").
		Find(&files).Error
	return files, err
}

func (r *GormFileRepository) MaxVersion(_ context.Context, tx *gorm.DB, userID uint, rootID uint) (int, error) {
	var version int
	err := useTx(r.db, tx).Model(&models.File{}).
		Where("user_id = ? AND (id = ? OR parent_file_id = ?)", userID, rootID, rootID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	return version, err
}

func (r *GormFileRepository) Stats(_ context.Context, tx *gorm.DB, userID uint, now time.Time, retention, stale time.Duration) (FileStats, error) {
	db := useTx(r.db, tx)
	var st FileStats

	count := func(dst *int64, query string, args ...interface{}) error {
		return db.Model(&models.File{}).Where("user_id = ?", userID).Where(query, args...).Count(dst).Error
	}
	if err := count(&st.ActiveFiles, "is_deleted = ?", false); err != nil {
		return st, err
	}
	if err := count(&st.FilesInFolders, "is_deleted = ? AND folder_id IS NOT NULL", false); err != nil {
		return st, err
	}
	if err := count(&st.TrashedFiles, "is_deleted = ?", true); err != nil {
		return st, err
	}
	if err := count(&st.OldTrashFiles, "is_deleted = ? AND deleted_at < ?", true, now.Add(-retention)); err != nil {
		return st, err
	}
	if err := count(&st.StaleFiles, "is_deleted = ? AND last_accessed_at < ?", false, now.Add(-stale)); err != nil {
		return st, err
	}

	err := db.Model(&models.File{}).
		Where("user_id = ? AND is_deleted = ?", userID, true).
		Select("COALESCE(SUM(size), 0)").
		Scan(&st.TrashedBytes).Error
	return st, err
}

func (r *GormFileRepository) UpdateByIDAndUser(_ context.Context, tx *gorm.DB, fileID uint, userID uint, updates map[string]interface{}) error {
	return useTx(r.db, tx).Model(&models.File{}).Where("id = ? AND user_id = ?", fileID, userID).Updates(updates).Error
}

func (r *GormFileRepository) UpdateByIDsAndUser(_ context.Context, tx *gorm.DB, fileIDs []uint, userID uint, updates map[string]interface{}) error {
	if len(fileIDs) == 0 {
		return nil
	}
	return useTx(r.db, tx).Model(&models.File{}).Where("id IN ? AND user_id = ?", fileIDs, userID).Updates(updates).Error
}

func (r *GormFileRepository) DeleteByIDs(_ context.Context, tx *gorm.DB, fileIDs []uint) error {
	if len(fileIDs) == 0 {
		return nil
	}
	return useTx(r.db, tx).Where("id IN ?", fileIDs).Delete(&models.File{}).Error
}
