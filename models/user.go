package models

import (
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	ErrEmptyUsername = errors.New("username must not be empty")
	ErrNegativeQuota = errors.New("storage quota must not be negative")
)

type User struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username           string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	StorageQuota       int64     `gorm:"not null" json:"storage_quota"`
	StorageUsed        int64     `gorm:"not null;default:0" json:"storage_used"`
	EcoModeEnabled     bool      `gorm:"not null" json:"eco_mode_enabled"`
	AutoCleanupEnabled bool      `gorm:"not null" json:"auto_cleanup_enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewUser builds a user with an empty storage counter. GreenOps settings default to enabled.
func NewUser(username string, quota int64) (User, error) {
	u := User{
		Username:           strings.TrimSpace(username),
		StorageQuota:       quota,
		EcoModeEnabled:     true,
		AutoCleanupEnabled: true,
	}
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	return u, nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if u.StorageQuota < 0 {
		return ErrNegativeQuota
	}
	return nil
}

// StoragePercentage reports used/quota in percent. A zero quota reports 0.
func (u User) StoragePercentage() float64 {
	if u.StorageQuota <= 0 {
		return 0
	}
	return float64(u.StorageUsed) / float64(u.StorageQuota) * 100
}

// UsageBelow reports whether usage is strictly below pct percent of the quota,
// using integer arithmetic so bucket boundaries are exact.
func (u User) UsageBelow(pct int64) bool {
	if u.StorageQuota <= 0 {
		return true
	}
	return u.StorageUsed*100 < u.StorageQuota*pct
}

// UsageAbove reports whether usage is strictly above pct percent of the quota.
func (u User) UsageAbove(pct int64) bool {
	if u.StorageQuota <= 0 {
		return false
	}
	return u.StorageUsed*100 > u.StorageQuota*pct
}

func (u User) HasStorageSpace(size int64) bool {
	return u.StorageUsed+size <= u.StorageQuota
}

func (u User) AvailableSpace() int64 {
	if u.StorageUsed >= u.StorageQuota {
		return 0
	}
	return u.StorageQuota - u.StorageUsed
}

func (u User) StorageUsedHuman() string {
	return humanSize(u.StorageUsed)
}

func humanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
