package models

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrEmptyFilename = errors.New("filename must not be empty")
	ErrNegativeSize  = errors.New("file size must not be negative")
)

type LifecycleState string

const (
	StateActive  LifecycleState = "active"
	StateTrashed LifecycleState = "trashed"
	// StatePurged is never stored: a purged node has no record left.
	StatePurged LifecycleState = "purged"
)

// File is one stored blob owned by a user. Size is fixed at creation and
// ContentHash is written once, on commit, after the bytes are durable.
type File struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint       `gorm:"not null;index;index:idx_user_hash" json:"user_id"`
	FolderID         *uint      `gorm:"index" json:"folder_id"`
	OriginalFilename string     `gorm:"type:varchar(255);not null" json:"original_filename"`
	StoredName       string     `gorm:"type:varchar(255);not null" json:"stored_name"`
	StoragePath      string     `gorm:"type:varchar(1000);not null;uniqueIndex" json:"-"`
	Size             int64      `gorm:"not null" json:"size"`
	ContentHash      *string    `gorm:"type:char(64);index:idx_user_hash" json:"content_hash"`
	MimeType         string     `gorm:"type:varchar(100)" json:"mime_type"`
	Extension        string     `gorm:"type:varchar(16)" json:"extension"`
	IsDeleted        bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt        *time.Time `gorm:"index" json:"deleted_at"`
	TrashBatch       string     `gorm:"type:varchar(36);index" json:"-"`
	IsFavorite       bool       `gorm:"not null;default:false" json:"is_favorite"`
	Version          int        `gorm:"not null;default:1" json:"version"`
	ParentFileID     *uint      `gorm:"index" json:"parent_file_id"`
	LastAccessedAt   time.Time  `gorm:"index" json:"last_accessed_at"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (f File) Validate() error {
	if strings.TrimSpace(f.OriginalFilename) == "" {
		return ErrEmptyFilename
	}
	if f.Size < 0 {
		return ErrNegativeSize
	}
	return nil
}

func (f File) State() LifecycleState {
	if f.IsDeleted {
		return StateTrashed
	}
	return StateActive
}

func (f File) SizeHuman() string {
	return humanSize(f.Size)
}

// ExtensionOf returns the lower-cased extension of name without the dot.
func ExtensionOf(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

func (f File) HashValue() string {
	if f.ContentHash == nil {
		return ""
	}
	return *f.ContentHash
}
