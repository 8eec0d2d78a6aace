package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"greencloud/models"
	"greencloud/repositories"
	"greencloud/storage"

	"gorm.io/gorm"
)

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// fakeStore is the in-memory state shared by the fake repositories.
type fakeStore struct {
	mu      sync.Mutex
	users   map[uint]models.User
	folders map[uint]models.Folder
	files   map[uint]models.File
	nextID  uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[uint]models.User{},
		folders: map[uint]models.Folder{},
		files:   map[uint]models.File{},
		nextID:  1,
	}
}

func (s *fakeStore) id() uint {
	id := s.nextID
	s.nextID++
	return id
}

func (s *fakeStore) container() repositories.Container {
	return repositories.Container{
		TxManager: fakeTxManager{},
		Users:     &fakeUserRepo{s: s},
		Folders:   &fakeFolderRepo{s: s},
		Files:     &fakeFileRepo{s: s},
	}
}

func (s *fakeStore) addUser(t *testing.T, quota, used int64) models.User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{ID: s.id(), Username: fmt.Sprintf("user%d", s.nextID), StorageQuota: quota, StorageUsed: used, EcoModeEnabled: true, AutoCleanupEnabled: true}
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) addFolder(t *testing.T, userID uint, name string, parentID *uint) models.Folder {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	f := models.Folder{ID: s.id(), UserID: userID, Name: name, ParentID: parentID, Path: "/" + name}
	if parentID != nil {
		f.Path = models.BuildChildPath(s.folders[*parentID].Path, name)
	}
	s.folders[f.ID] = f
	return f
}

func (s *fakeStore) addFile(t *testing.T, f models.File) models.File {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.id()
	if f.Version == 0 {
		f.Version = 1
	}
	if f.StoragePath == "" {
		f.StoragePath = fmt.Sprintf("%d/file-%d", f.UserID, f.ID)
	}
	s.files[f.ID] = f
	return f
}

func (s *fakeStore) user(t *testing.T, id uint) models.User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		t.Fatalf("expected user %d to exist", id)
	}
	return u
}

func (s *fakeStore) file(t *testing.T, id uint) models.File {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		t.Fatalf("expected file %d to exist", id)
	}
	return f
}

func (s *fakeStore) folder(t *testing.T, id uint) models.Folder {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[id]
	if !ok {
		t.Fatalf("expected folder %d to exist", id)
	}
	return f
}

func (s *fakeStore) hasFile(id uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[id]
	return ok
}

func (s *fakeStore) fileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// activeSum is the ground truth storage_used must match.
func (s *fakeStore) activeSum(userID uint) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, f := range s.files {
		if f.UserID == userID && !f.IsDeleted {
			total += f.Size
		}
	}
	return total
}

func (s *fakeStore) setFile(f models.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.ID] = f
}

func (s *fakeStore) setUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *fakeStore) setFolder(f models.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[f.ID] = f
}

func optionalID(v interface{}) (*uint, error) {
	switch id := v.(type) {
	case nil:
		return nil, nil
	case uint:
		return &id, nil
	default:
		return nil, fmt.Errorf("unexpected id value %T", v)
	}
}

func optionalTime(v interface{}) (*time.Time, error) {
	switch ts := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &ts, nil
	default:
		return nil, fmt.Errorf("unexpected time value %T", v)
	}
}

func applyFileUpdates(f *models.File, updates map[string]interface{}) error {
	for key, v := range updates {
		var err error
		switch key {
		case "is_deleted":
			f.IsDeleted = v.(bool)
		case "deleted_at":
			f.DeletedAt, err = optionalTime(v)
		case "trash_batch":
			f.TrashBatch = v.(string)
		case "folder_id":
			f.FolderID, err = optionalID(v)
		case "original_filename":
			f.OriginalFilename = v.(string)
		case "is_favorite":
			f.IsFavorite = v.(bool)
		case "last_accessed_at":
			f.LastAccessedAt = v.(time.Time)
		default:
			return fmt.Errorf("unsupported file column %q", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func applyFolderUpdates(f *models.Folder, updates map[string]interface{}) error {
	for key, v := range updates {
		var err error
		switch key {
		case "is_deleted":
			f.IsDeleted = v.(bool)
		case "deleted_at":
			f.DeletedAt, err = optionalTime(v)
		case "trash_batch":
			f.TrashBatch = v.(string)
		case "parent_id":
			f.ParentID, err = optionalID(v)
		case "name":
			f.Name = v.(string)
		case "path":
			f.Path = v.(string)
		default:
			return fmt.Errorf("unsupported folder column %q", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type fakeUserRepo struct {
	s *fakeStore
}

func (r *fakeUserRepo) CountByUsername(_ context.Context, username string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if u.Username == username {
			n++
		}
	}
	return n, nil
}

func (r *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user.ID == 0 {
		user.ID = r.s.id()
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, _ *gorm.DB, username string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ *gorm.DB, userID uint) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) LockByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error) {
	return r.GetByID(ctx, tx, userID)
}

func (r *fakeUserRepo) ReserveStorage(_ context.Context, _ *gorm.DB, userID uint, size int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return false, nil
	}
	if u.StorageUsed+size > u.StorageQuota {
		return false, nil
	}
	u.StorageUsed += size
	r.s.users[userID] = u
	return true, nil
}

func (r *fakeUserRepo) RecalculateStorageUsed(_ context.Context, _ *gorm.DB, userID uint) (int64, error) {
	total := r.s.activeSum(userID)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[userID]; ok {
		u.StorageUsed = total
		r.s.users[userID] = u
	}
	return total, nil
}

func (r *fakeUserRepo) UpdateByID(_ context.Context, _ *gorm.DB, userID uint, updates map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil
	}
	for key, v := range updates {
		switch key {
		case "eco_mode_enabled":
			u.EcoModeEnabled = v.(bool)
		case "auto_cleanup_enabled":
			u.AutoCleanupEnabled = v.(bool)
		case "storage_used":
			u.StorageUsed = v.(int64)
		default:
			return fmt.Errorf("unsupported user column %q", key)
		}
	}
	r.s.users[userID] = u
	return nil
}

func (r *fakeUserRepo) ListIDs(_ context.Context, _ *gorm.DB, autoCleanupOnly bool) ([]uint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uint
	for id, u := range r.s.users {
		if !autoCleanupOnly || u.AutoCleanupEnabled {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeUserRepo) DeleteByID(_ context.Context, _ *gorm.DB, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, userID)
	return nil
}

type fakeFolderRepo struct {
	s *fakeStore
}

func sameParent(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakeFolderRepo) filter(keep func(models.Folder) bool) []models.Folder {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Folder
	for _, f := range r.s.folders {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeFolderRepo) GetByIDAndUser(_ context.Context, _ *gorm.DB, folderID uint, userID uint) (models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.folders[folderID]
	if !ok || f.UserID != userID {
		return models.Folder{}, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *fakeFolderRepo) Create(_ context.Context, _ *gorm.DB, folder *models.Folder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if folder.ID == 0 {
		folder.ID = r.s.id()
	}
	r.s.folders[folder.ID] = *folder
	return nil
}

func (r *fakeFolderRepo) ListByParent(_ context.Context, _ *gorm.DB, userID uint, parentID *uint, includeDeleted bool) ([]models.Folder, error) {
	out := r.filter(func(f models.Folder) bool {
		return f.UserID == userID && sameParent(f.ParentID, parentID) && (includeDeleted || !f.IsDeleted)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeFolderRepo) CountActiveByParentAndName(_ context.Context, _ *gorm.DB, userID uint, parentID *uint, name string, excludeID uint) (int64, error) {
	out := r.filter(func(f models.Folder) bool {
		return f.UserID == userID && sameParent(f.ParentID, parentID) && f.Name == name && !f.IsDeleted && f.ID != excludeID
	})
	return int64(len(out)), nil
}

func (r *fakeFolderRepo) ListByUser(_ context.Context, _ *gorm.DB, userID uint) ([]models.Folder, error) {
	return r.filter(func(f models.Folder) bool { return f.UserID == userID }), nil
}

func (r *fakeFolderRepo) ListDeleted(_ context.Context, _ *gorm.DB, userID uint) ([]models.Folder, error) {
	return r.filter(func(f models.Folder) bool { return f.UserID == userID && f.IsDeleted }), nil
}

func (r *fakeFolderRepo) UpdateByID(_ context.Context, _ *gorm.DB, folderID uint, updates map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.folders[folderID]
	if !ok {
		return nil
	}
	if err := applyFolderUpdates(&f, updates); err != nil {
		return err
	}
	r.s.folders[folderID] = f
	return nil
}

func (r *fakeFolderRepo) UpdateByIDs(_ context.Context, _ *gorm.DB, userID uint, folderIDs []uint, updates map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range folderIDs {
		f, ok := r.s.folders[id]
		if !ok || f.UserID != userID {
			continue
		}
		if err := applyFolderUpdates(&f, updates); err != nil {
			return err
		}
		r.s.folders[id] = f
	}
	return nil
}

func (r *fakeFolderRepo) DeleteByIDs(_ context.Context, _ *gorm.DB, folderIDs []uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range folderIDs {
		delete(r.s.folders, id)
	}
	return nil
}

func (r *fakeFolderRepo) DeleteByUser(_ context.Context, _ *gorm.DB, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, f := range r.s.folders {
		if f.UserID == userID {
			delete(r.s.folders, id)
		}
	}
	return nil
}

type fakeFileRepo struct {
	s         *fakeStore
	createErr error
}

func (r *fakeFileRepo) filter(keep func(models.File) bool) []models.File {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.File
	for _, f := range r.s.files {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeFileRepo) Create(_ context.Context, _ *gorm.DB, file *models.File) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if file.ID == 0 {
		file.ID = r.s.id()
	}
	r.s.files[file.ID] = *file
	return nil
}

func (r *fakeFileRepo) GetByIDAndUser(_ context.Context, _ *gorm.DB, fileID uint, userID uint) (models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[fileID]
	if !ok || f.UserID != userID {
		return models.File{}, gorm.ErrRecordNotFound
	}
	return f, nil
}

func inFolder(f models.File, folderID *uint) bool {
	return sameParent(f.FolderID, folderID)
}

func (r *fakeFileRepo) ListByFolder(_ context.Context, _ *gorm.DB, in repositories.ListFilesInput) ([]models.File, error) {
	out := r.filter(func(f models.File) bool {
		return f.UserID == in.UserID && !f.IsDeleted && inFolder(f, in.FolderID)
	})
	if in.SortBy == "name" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].OriginalFilename < out[j].OriginalFilename })
	}
	if strings.EqualFold(in.Order, "desc") {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if in.Offset >= len(out) {
		return nil, nil
	}
	out = out[in.Offset:]
	if in.Limit > 0 && in.Limit < len(out) {
		out = out[:in.Limit]
	}
	return out, nil
}

func (r *fakeFileRepo) CountByFolder(_ context.Context, _ *gorm.DB, userID uint, folderID *uint) (int64, error) {
	out := r.filter(func(f models.File) bool { return f.UserID == userID && !f.IsDeleted && inFolder(f, folderID) })
	return int64(len(out)), nil
}

func (r *fakeFileRepo) ListByFolderIDs(_ context.Context, _ *gorm.DB, userID uint, folderIDs []uint) ([]models.File, error) {
	ids := map[uint]bool{}
	for _, id := range folderIDs {
		ids[id] = true
	}
	return r.filter(func(f models.File) bool { return f.UserID == userID && f.FolderID != nil && ids[*f.FolderID] }), nil
}

func (r *fakeFileRepo) ListByUser(_ context.Context, _ *gorm.DB, userID uint) ([]models.File, error) {
	return r.filter(func(f models.File) bool { return f.UserID == userID }), nil
}

func (r *fakeFileRepo) ListActiveHashed(_ context.Context, _ *gorm.DB, userID uint) ([]models.File, error) {
	return r.filter(func(f models.File) bool { return f.UserID == userID && !f.IsDeleted && f.ContentHash != nil }), nil
}

func (r *fakeFileRepo) ListActiveByHash(_ context.Context, _ *gorm.DB, userID uint, hash string) ([]models.File, error) {
	return r.filter(func(f models.File) bool { return f.UserID == userID && !f.IsDeleted && f.HashValue() == hash }), nil
}

func (r *fakeFileRepo) ListDeleted(_ context.Context, _ *gorm.DB, userID uint) ([]models.File, error) {
	return r.filter(func(f models.File) bool { return f.UserID == userID && f.IsDeleted }), nil
}

func (r *fakeFileRepo) ListDeletedBefore(_ context.Context, _ *gorm.DB, userID uint, cutoff time.Time) ([]models.File, error) {
	return r.filter(func(f models.File) bool {
		return f.UserID == userID && f.IsDeleted && f.DeletedAt != nil && f.DeletedAt.Before(cutoff)
	}), nil
}

func (r *fakeFileRepo) ListFavorites(_ context.Context, _ *gorm.DB, userID uint) ([]models.File, error) {
	return r.filter(func(f models.File) bool { return f.UserID == userID && !f.IsDeleted && f.IsFavorite }), nil
}

func newestFirst(files []models.File) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].ID > files[j].ID
	})
}

func (r *fakeFileRepo) Search(_ context.Context, _ *gorm.DB, userID uint, query string, limit int) ([]models.File, error) {
	needle := strings.ToLower(query)
	out := r.filter(func(f models.File) bool {
		return f.UserID == userID && !f.IsDeleted && strings.Contains(strings.ToLower(f.OriginalFilename), needle)
	})
	newestFirst(out)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeFileRepo) ListRecent(_ context.Context, _ *gorm.DB, userID uint, limit int) ([]models.File, error) {
	out := r.filter(func(f models.File) bool { return f.UserID == userID && !f.IsDeleted })
	newestFirst(out)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeFileRepo) ListVersions(_ context.Context, _ *gorm.DB, userID uint, rootID uint) ([]models.File, error) {
	out := r.filter(func(f models.File) bool {
		return f.UserID == userID && (f.ID == rootID || (f.ParentFileID != nil && *f.ParentFileID == rootID))
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (r *fakeFileRepo) MaxVersion(ctx context.Context, tx *gorm.DB, userID uint, rootID uint) (int, error) {
	versions, _ := r.ListVersions(ctx, tx, userID, rootID)
	latest := 0
	for _, v := range versions {
		if v.Version > latest {
			latest = v.Version
		}
	}
	return latest, nil
}

func (r *fakeFileRepo) Stats(_ context.Context, _ *gorm.DB, userID uint, now time.Time, retention, stale time.Duration) (repositories.FileStats, error) {
	var st repositories.FileStats
	for _, f := range r.filter(func(f models.File) bool { return f.UserID == userID }) {
		if f.IsDeleted {
			st.TrashedFiles++
			st.TrashedBytes += f.Size
			if f.DeletedAt != nil && f.DeletedAt.Before(now.Add(-retention)) {
				st.OldTrashFiles++
			}
			continue
		}
		st.ActiveFiles++
		if f.FolderID != nil {
			st.FilesInFolders++
		}
		if f.LastAccessedAt.Before(now.Add(-stale)) {
			st.StaleFiles++
		}
	}
	return st, nil
}

func (r *fakeFileRepo) UpdateByIDAndUser(ctx context.Context, tx *gorm.DB, fileID uint, userID uint, updates map[string]interface{}) error {
	return r.UpdateByIDsAndUser(ctx, tx, []uint{fileID}, userID, updates)
}

func (r *fakeFileRepo) UpdateByIDsAndUser(_ context.Context, _ *gorm.DB, fileIDs []uint, userID uint, updates map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range fileIDs {
		f, ok := r.s.files[id]
		if !ok || f.UserID != userID {
			continue
		}
		if err := applyFileUpdates(&f, updates); err != nil {
			return err
		}
		r.s.files[id] = f
	}
	return nil
}

func (r *fakeFileRepo) DeleteByIDs(_ context.Context, _ *gorm.DB, fileIDs []uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range fileIDs {
		delete(r.s.files, id)
	}
	return nil
}

// memBackend is an in-memory storage.Backend with failure injection.
type memBackend struct {
	mu        sync.Mutex
	objects   map[string][]byte
	writeErr  error
	removeErr error
	// exists makes the first n writes report storage.ErrExist before reading.
	exists  int
	removed []string
}

func newMemBackend() *memBackend {
	return &memBackend{objects: map[string][]byte{}}
}

func (b *memBackend) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	b.mu.Lock()
	if b.exists > 0 {
		b.exists--
		b.mu.Unlock()
		return 0, storage.ErrExist
	}
	if _, ok := b.objects[path]; ok {
		b.mu.Unlock()
		return 0, storage.ErrExist
	}
	writeErr := b.writeErr
	b.mu.Unlock()

	data, err := io.ReadAll(storage.ContextReader(ctx, r))
	if err != nil {
		return 0, err
	}
	if writeErr != nil {
		return 0, writeErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = data
	return int64(len(data)), nil
}

func (b *memBackend) Remove(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, path)
	if b.removeErr != nil {
		return b.removeErr
	}
	if _, ok := b.objects[path]; !ok {
		return storage.ErrNotExist
	}
	delete(b.objects, path)
	return nil
}

func (b *memBackend) Open(_ context.Context, path string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[path]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBackend) put(path string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = data
}

func (b *memBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func (b *memBackend) has(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[path]
	return ok
}

var errInjected = errors.New("injected failure")

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *fakeStore
	backend *memBackend
	deps    Deps
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	backend := newMemBackend()
	return &testEnv{
		store:   store,
		backend: backend,
		deps: Deps{
			Repos:   store.container(),
			Storage: backend,
			Locker:  NewLocalUserLocker(),
			Settings: Settings{
				AllowedExtensions: []string{"txt", "pdf", "png"},
				MaxFileSize:       10 << 20,
				HashChunkSize:     64,
				DefaultQuota:      1 << 30,
				RetentionDays:     30,
				StaleFileDays:     180,
				LockWait:          time.Second,
				Now:               func() time.Time { return fixedNow },
			},
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}

func appErrorKind(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
