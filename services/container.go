package services

import (
	"time"

	"greencloud/config"
	"greencloud/metrics"
	"greencloud/repositories"
	"greencloud/storage"
)

// Settings carries the tunables services read on every call.
type Settings struct {
	AllowedExtensions []string
	MaxFileSize       int64
	HashChunkSize     int
	DefaultQuota      int64
	RetentionDays     int
	StaleFileDays     int
	LockWait          time.Duration
	Now               func() time.Time
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		AllowedExtensions: cfg.Storage.AllowedExtensions,
		MaxFileSize:       cfg.Storage.MaxFileSize,
		HashChunkSize:     cfg.Storage.HashChunkSize,
		DefaultQuota:      cfg.Storage.DefaultUserQuota,
		RetentionDays:     cfg.Trash.RetentionDays,
		StaleFileDays:     cfg.Trash.StaleFileDays,
		LockWait:          time.Duration(cfg.Locking.WaitTimeoutSeconds) * time.Second,
	}
}

func (s Settings) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// Deps is what every service is built from.
type Deps struct {
	Repos    repositories.Container
	Storage  storage.Backend
	Locker   UserLocker
	Metrics  *metrics.StorageMetrics
	Settings Settings
}

type Container struct {
	User       UserService
	Folder     FolderService
	File       FileService
	RecycleBin RecycleBinService
	Cleanup    CleanupService
	GreenOps   GreenOpsService
}

func NewContainer(deps Deps) *Container {
	if deps.Locker == nil {
		deps.Locker = NewLocalUserLocker()
	}
	return &Container{
		User:       NewUserService(deps),
		Folder:     NewFolderService(deps),
		File:       NewFileService(deps),
		RecycleBin: NewRecycleBinService(deps),
		Cleanup:    NewCleanupService(deps),
		GreenOps:   NewGreenOpsService(deps),
	}
}
