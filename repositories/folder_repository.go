package repositories

import (
	"context"

	"greencloud/models"

	"gorm.io/gorm"
)

type GormFolderRepository struct {
	db *gorm.DB
}

func NewGormFolderRepository(db *gorm.DB) *GormFolderRepository {
	return &GormFolderRepository{db: db}
}

func byParent(db *gorm.DB, parentID *uint) *gorm.DB {
	if parentID == nil {
		return db.Where("parent_id IS NULL")
	}
	return db.Where("parent_id = ?", *parentID)
}

func (r *GormFolderRepository) GetByIDAndUser(_ context.Context, tx *gorm.DB, folderID uint, userID uint) (models.Folder, error) {
	var folder models.Folder
	err := useTx(r.db, tx).Where("id = ? AND user_id = ?", folderID, userID).First(&folder).Error
	return folder, err
}

func (r *GormFolderRepository) Create(_ context.Context, tx *gorm.DB, folder *models.Folder) error {
	return useTx(r.db, tx).Create(folder).Error
}

func (r *GormFolderRepository) ListByParent(_ context.Context, tx *gorm.DB, userID uint, parentID *uint, includeDeleted bool) ([]models.Folder, error) {
	db := byParent(useTx(r.db, tx).Model(&models.Folder{}).Where("user_id = ?", userID), parentID)
	if !includeDeleted {
		db = db.Where("is_deleted = ?", false)
	}

	var folders []models.Folder
	err := db.Order("name ASC").Find(&folders).Error
	return folders, err
}

func (r *GormFolderRepository) CountActiveByParentAndName(_ context.Context, tx *gorm.DB, userID uint, parentID *uint, name string, excludeID uint) (int64, error) {
	db := byParent(useTx(r.db, tx).Model(&models.Folder{}), parentID).
		Where("user_id = ? AND name = ? AND is_deleted = ?", userID, name, false)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	var count int64
	err := db.Count(&count).Error
	return count, err
}

func (r *GormFolderRepository) ListByUser(_ context.Context, tx *gorm.DB, userID uint) ([]models.Folder, error) {
	var folders []models.Folder
	err := useTx(r.db, tx).Where("user_id = ?", userID).Order("id ASC").Find(&folders).Error
	return folders, err
}

func (r *GormFolderRepository) ListDeleted(_ context.Context, tx *gorm.DB, userID uint) ([]models.Folder, error) {
	var folders []models.Folder
	err := useTx(r.db, tx).
		Where("user_id = ? AND is_deleted = ?", userID, true).
		Order("deleted_at DESC").
		Find(&folders).Error
	return folders, err
}

func (r *GormFolderRepository) UpdateByID(_ context.Context, tx *gorm.DB, folderID uint, updates map[string]interface{}) error {
	return useTx(r.db, tx).Model(&models.Folder{}).Where("id = ?", folderID).Updates(updates).Error
}

func (r *GormFolderRepository) UpdateByIDs(_ context.Context, tx *gorm.DB, userID uint, folderIDs []uint, updates map[string]interface{}) error {
	if len(folderIDs) == 0 {
		return nil
	}
	return useTx(r.db, tx).Model(&models.Folder{}).
		Where("user_id = ? AND id IN ?", userID, folderIDs).
		Updates(updates).Error
}

func (r *GormFolderRepository) DeleteByIDs(_ context.Context, tx *gorm.DB, folderIDs []uint) error {
	if len(folderIDs) == 0 {
		return nil
	}
	return useTx(r.db, tx).Where("id IN ?", folderIDs).Delete(&models.Folder{}).Error
}

func (r *GormFolderRepository) DeleteByUser(_ context.Context, tx *gorm.DB, userID uint) error {
	return useTx(r.db, tx).Where("user_id = ?", userID).Delete(&models.Folder{}).Error
}
