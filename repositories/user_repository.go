package repositories

import (
	"context"
	"errors"

	"greencloud/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) CountByUsername(ctx context.Context, username string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count, err
}

func (r *GormUserRepository) Create(_ context.Context, tx *gorm.DB, user *models.User) error {
	return useTx(r.db, tx).Create(user).Error
}

func (r *GormUserRepository) GetByUsername(_ context.Context, tx *gorm.DB, username string) (models.User, error) {
	var user models.User
	err := useTx(r.db, tx).Where("username = ?", username).First(&user).Error
	return user, err
}

func (r *GormUserRepository) GetByID(_ context.Context, tx *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := useTx(r.db, tx).First(&user, userID).Error
	return user, err
}

func (r *GormUserRepository) LockByID(_ context.Context, tx *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := useTx(r.db, tx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error
	return user, err
}

func (r *GormUserRepository) ReserveStorage(ctx context.Context, tx *gorm.DB, userID uint, size int64) (bool, error) {
	if size == 0 {
		// mysql reports unchanged rows as unaffected, so compare on a locked read.
		user, err := r.LockByID(ctx, tx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return user.StorageUsed <= user.StorageQuota, nil
	}
	res := useTx(r.db, tx).Model(&models.User{}).
		Where("id = ? AND storage_used + ? <= storage_quota", userID, size).
		UpdateColumn("storage_used", gorm.Expr("storage_used + ?", size))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormUserRepository) RecalculateStorageUsed(_ context.Context, tx *gorm.DB, userID uint) (int64, error) {
	db := useTx(r.db, tx)

	var total int64
	err := db.Model(&models.File{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	err = db.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("storage_used", total).Error
	return total, err
}

func (r *GormUserRepository) UpdateByID(_ context.Context, tx *gorm.DB, userID uint, updates map[string]interface{}) error {
	return useTx(r.db, tx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *GormUserRepository) ListIDs(_ context.Context, tx *gorm.DB, autoCleanupOnly bool) ([]uint, error) {
	db := useTx(r.db, tx).Model(&models.User{})
	if autoCleanupOnly {
		db = db.Where("auto_cleanup_enabled = ?", true)
	}
	var ids []uint
	err := db.Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *GormUserRepository) DeleteByID(_ context.Context, tx *gorm.DB, userID uint) error {
	return useTx(r.db, tx).Delete(&models.User{}, userID).Error
}
