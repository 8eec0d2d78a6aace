package services

import (
	"context"

	"greencloud/models"
	"greencloud/repositories"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type StorageQuotaOutput struct {
	StorageQuota   int64   `json:"storage_quota"`
	StorageUsed    int64   `json:"storage_used"`
	AvailableSpace int64   `json:"available_space"`
	UsagePercent   float64 `json:"usage_percent"`
	UsedHuman      string  `json:"used_human"`
}

type SettingsInput struct {
	EcoMode     *bool `json:"eco_mode_enabled"`
	AutoCleanup *bool `json:"auto_cleanup_enabled"`
}

type UserService interface {
	CreateUser(ctx context.Context, username string, quota *int64) (models.User, error)
	GetUser(ctx context.Context, userID uint) (models.User, error)
	GetStorageQuota(ctx context.Context, userID uint) (StorageQuotaOutput, error)
	UpdateSettings(ctx context.Context, userID uint, in SettingsInput) (models.User, error)
	RecalculateStorage(ctx context.Context, userID uint) (int64, error)
	RecalculateAll(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, userID uint) (PurgeReport, error)
}

type userService struct {
	deps     Deps
	users    repositories.UserRepository
	settings Settings
	purger   purger
}

func NewUserService(deps Deps) UserService {
	return &userService{deps: deps, users: deps.Repos.Users, settings: deps.Settings, purger: newPurger(deps)}
}

func (s *userService) CreateUser(ctx context.Context, username string, quota *int64) (models.User, error) {
	limit := s.settings.DefaultQuota
	if quota != nil {
		limit = *quota
	}
	user, err := models.NewUser(username, limit)
	if err != nil {
		return models.User{}, newAppError(KindValidation, err.Error(), nil)
	}

	count, err := s.users.CountByUsername(ctx, user.Username)
	if err != nil {
		return models.User{}, newAppError(KindInternal, "failed to check username", err)
	}
	if count > 0 {
		return models.User{}, newAppError(KindConflict, "username already exists", nil)
	}
	if err := s.users.Create(ctx, nil, &user); err != nil {
		return models.User{}, newAppError(KindInternal, "failed to create user", err)
	}
	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Int64("quota", user.StorageQuota).Msg("user created")
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, userID uint) (models.User, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return models.User{}, repoError(err, "user not found", "failed to query user")
	}
	return user, nil
}

func (s *userService) GetStorageQuota(ctx context.Context, userID uint) (StorageQuotaOutput, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return StorageQuotaOutput{}, err
	}
	return StorageQuotaOutput{
		StorageQuota:   user.StorageQuota,
		StorageUsed:    user.StorageUsed,
		AvailableSpace: user.AvailableSpace(),
		UsagePercent:   user.StoragePercentage(),
		UsedHuman:      user.StorageUsedHuman(),
	}, nil
}

func (s *userService) UpdateSettings(ctx context.Context, userID uint, in SettingsInput) (models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	updates := map[string]interface{}{}
	if in.EcoMode != nil {
		updates["eco_mode_enabled"] = *in.EcoMode
		user.EcoModeEnabled = *in.EcoMode
	}
	if in.AutoCleanup != nil {
		updates["auto_cleanup_enabled"] = *in.AutoCleanup
		user.AutoCleanupEnabled = *in.AutoCleanup
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.users.UpdateByID(ctx, nil, userID, updates); err != nil {
		return models.User{}, newAppError(KindInternal, "failed to update settings", err)
	}
	return user, nil
}

// RecalculateStorage rewrites storage_used from the user's active files.
func (s *userService) RecalculateStorage(ctx context.Context, userID uint) (int64, error) {
	var used int64
	err := lockedTx(ctx, s.deps, userID, func(tx *gorm.DB) error {
		if _, err := s.users.LockByID(ctx, tx, userID); err != nil {
			return repoError(err, "user not found", "failed to lock user")
		}
		var err error
		if used, err = s.users.RecalculateStorageUsed(ctx, tx, userID); err != nil {
			return newAppError(KindInternal, "failed to recalculate storage", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return used, nil
}

// RecalculateAll heals every user's counter and returns how many were processed.
func (s *userService) RecalculateAll(ctx context.Context) (int, error) {
	ids, err := s.users.ListIDs(ctx, nil, false)
	if err != nil {
		return 0, newAppError(KindInternal, "failed to list users", err)
	}
	for i, id := range ids {
		if _, err := s.RecalculateStorage(ctx, id); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}

// DeleteUser purges all of the user's files and folders and then the user itself.
func (s *userService) DeleteUser(ctx context.Context, userID uint) (PurgeReport, error) {
	collect := func(tx *gorm.DB) (purgeSet, error) {
		if _, err := s.users.GetByID(ctx, tx, userID); err != nil {
			return purgeSet{}, repoError(err, "user not found", "failed to load user")
		}
		files, err := s.deps.Repos.Files.ListByUser(ctx, tx, userID)
		if err != nil {
			return purgeSet{}, newAppError(KindInternal, "failed to list files", err)
		}
		folders, err := s.deps.Repos.Folders.ListByUser(ctx, tx, userID)
		if err != nil {
			return purgeSet{}, newAppError(KindInternal, "failed to list folders", err)
		}
		set := purgeSet{files: files, folderIDs: make([]uint, len(folders))}
		for i, f := range folders {
			set.folderIDs[i] = f.ID
		}
		return set, nil
	}
	remove := func(tx *gorm.DB) error {
		if err := s.deps.Repos.Folders.DeleteByUser(ctx, tx, userID); err != nil {
			return newAppError(KindInternal, "failed to delete folders", err)
		}
		if err := s.users.DeleteByID(ctx, tx, userID); err != nil {
			return newAppError(KindInternal, "failed to delete user", err)
		}
		return nil
	}

	report, err := s.purger.purgeThen(ctx, userID, collect, remove)
	if err != nil {
		return PurgeReport{}, err
	}
	log.Info().Uint("user_id", userID).Int("files", report.FilesPurged).Int("folders", report.FoldersPurged).Msg("user destroyed")
	return report, nil
}
