package models

import (
	"errors"
	"strings"
	"time"
)

var ErrEmptyFolderName = errors.New("folder name must not be empty")

// Folder is a node in a user's namespace. ParentID nil means the folder sits at
// the user's root. Path is a cache of ancestor names and is rebuilt from the
// parent chain on rename; it is never read back as a source of truth.
type Folder struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	ParentID   *uint      `gorm:"index" json:"parent_id"`
	Path       string     `gorm:"type:varchar(1000)" json:"path"`
	IsDeleted  bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt  *time.Time `json:"deleted_at"`
	TrashBatch string     `gorm:"type:varchar(36);index" json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func NewFolder(userID uint, name string, parentID *uint) (Folder, error) {
	f := Folder{Name: strings.TrimSpace(name), UserID: userID, ParentID: parentID}
	if err := f.Validate(); err != nil {
		return Folder{}, err
	}
	return f, nil
}

func (f Folder) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyFolderName
	}
	return nil
}

func (f Folder) State() LifecycleState {
	if f.IsDeleted {
		return StateTrashed
	}
	return StateActive
}

// BuildChildPath joins a parent path cache and a child name.
func BuildChildPath(parentPath, childName string) string {
	if parentPath == "" || parentPath == "/" {
		return "/" + childName
	}
	return strings.TrimRight(parentPath, "/") + "/" + childName
}
