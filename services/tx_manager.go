package services

import (
	"context"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// lockedTx runs fn in one transaction while holding the user's lock.
func lockedTx(ctx context.Context, deps Deps, userID uint, fn func(tx *gorm.DB) error) error {
	unlock, err := lockUser(ctx, deps.Locker, deps.Metrics, deps.Settings.LockWait, userID)
	if err != nil {
		return err
	}
	defer unlock()
	return deps.Repos.TxManager.WithTransaction(ctx, fn)
}
