package services

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"greencloud/metrics"
	"greencloud/models"
	"greencloud/repositories"
	"greencloud/storage"
	"greencloud/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// maxNameAttempts bounds retries when a generated stored name is already taken.
const maxNameAttempts = 5

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
	maxSearchResults   = 200
)

type FileListOutput struct {
	Files      []models.File        `json:"files"`
	Pagination utils.PaginationData `json:"pagination"`
}

type IngestInput struct {
	UserID   uint
	FolderID *uint
	Filename string
	Content  io.Reader
	// DeclaredSize is the client-reported size, or -1 when unknown. It only
	// enables an early quota rejection; the stored byte count is authoritative.
	DeclaredSize int64
	// VersionOf makes the upload a new version of an existing file.
	VersionOf *uint
}

type IngestOutput struct {
	File        models.File `json:"file"`
	DuplicateOf []uint      `json:"duplicate_of,omitempty"`
}

type ListFilesInput struct {
	UserID   uint
	FolderID *uint
	SortBy   string
	Order    string
	Page     int
	PageSize int
}

type FileService interface {
	Ingest(ctx context.Context, in IngestInput) (IngestOutput, error)
	ListFiles(ctx context.Context, in ListFilesInput) (FileListOutput, error)
	GetFile(ctx context.Context, userID uint, fileID uint) (models.File, error)
	Open(ctx context.Context, userID uint, fileID uint) (models.File, io.ReadCloser, error)
	Rename(ctx context.Context, userID uint, fileID uint, newName string) (models.File, error)
	Move(ctx context.Context, userID uint, fileID uint, folderID *uint) (models.File, error)
	ToggleFavorite(ctx context.Context, userID uint, fileID uint) (models.File, error)
	ListFavorites(ctx context.Context, userID uint) ([]models.File, error)
	SearchFiles(ctx context.Context, userID uint, query string) ([]models.File, error)
	ListRecent(ctx context.Context, userID uint, limit int) ([]models.File, error)
	ListVersions(ctx context.Context, userID uint, fileID uint) ([]models.File, error)
}

type fileService struct {
	deps     Deps
	users    repositories.UserRepository
	folders  repositories.FolderRepository
	files    repositories.FileRepository
	backend  storage.Backend
	metrics  *metrics.StorageMetrics
	settings Settings
	resolver folderResolver
}

func NewFileService(deps Deps) FileService {
	return &fileService{
		deps:     deps,
		users:    deps.Repos.Users,
		folders:  deps.Repos.Folders,
		files:    deps.Repos.Files,
		backend:  deps.Storage,
		metrics:  deps.Metrics,
		settings: deps.Settings,
		resolver: folderResolver{folders: deps.Repos.Folders, files: deps.Repos.Files},
	}
}

func (s *fileService) Ingest(ctx context.Context, in IngestInput) (IngestOutput, error) {
	out, err := s.ingest(ctx, in)
	if err != nil {
		s.metrics.ObserveIngest(ingestResult(err), 0)
		return IngestOutput{}, err
	}
	s.metrics.ObserveIngest(metrics.ResultCommitted, out.File.Size)
	return out, nil
}

func ingestResult(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return metrics.ResultQuotaExceeded
	case errors.Is(err, ErrStorageIO):
		return metrics.ResultStorageError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultCanceled
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrNotFound):
		return metrics.ResultRejected
	default:
		return metrics.ResultCommitFailed
	}
}

func (s *fileService) ingest(ctx context.Context, in IngestInput) (IngestOutput, error) {
	// validated
	if strings.TrimSpace(in.Filename) == "" {
		return IngestOutput{}, newAppError(KindValidation, "filename must not be empty", nil)
	}
	if in.Content == nil {
		return IngestOutput{}, newAppError(KindValidation, "upload content is missing", nil)
	}
	name := sanitizeFilename(in.Filename)
	if _, err := validateNodeName(name); err != nil {
		return IngestOutput{}, err
	}
	if !isFileExtensionAllowed(name, s.settings.AllowedExtensions) {
		return IngestOutput{}, newAppErrorWithData(KindUnsupportedType, "file type is not allowed",
			map[string]string{"extension": models.ExtensionOf(name)}, nil)
	}

	user, err := s.users.GetByID(ctx, nil, in.UserID)
	if err != nil {
		return IngestOutput{}, repoError(err, "user not found", "failed to load user")
	}

	// quota pre-check; the binding check happens again at commit under the user lock
	if in.DeclaredSize >= 0 {
		if s.settings.MaxFileSize > 0 && in.DeclaredSize > s.settings.MaxFileSize {
			return IngestOutput{}, newAppError(KindValidation, "file exceeds the maximum upload size", nil)
		}
		if !user.HasStorageSpace(in.DeclaredSize) {
			return IngestOutput{}, quotaExceeded(user, in.DeclaredSize)
		}
	}

	folder, err := s.resolver.resolveTargetFolder(ctx, nil, in.UserID, in.FolderID)
	if err != nil {
		return IngestOutput{}, err
	}
	var folderID *uint
	var folderNames []string
	if folder != nil {
		folderID = &folder.ID
		if folderNames, err = s.resolver.resolvePath(ctx, nil, *folder); err != nil {
			return IngestOutput{}, err
		}
	}

	var chainRoot *uint
	if in.VersionOf != nil {
		base, err := s.files.GetByIDAndUser(ctx, nil, *in.VersionOf, in.UserID)
		if err != nil {
			return IngestOutput{}, repoError(err, "file to version not found", "failed to load file")
		}
		if base.IsDeleted {
			return IngestOutput{}, newAppError(KindConflict, "cannot add a version to a trashed file", nil)
		}
		root := base.ID
		if base.ParentFileID != nil {
			root = *base.ParentFileID
		}
		chainRoot = &root
	}

	// stored
	limit, quotaBound := user.AvailableSpace(), true
	if s.settings.MaxFileSize > 0 && s.settings.MaxFileSize < limit {
		limit, quotaBound = s.settings.MaxFileSize, false
	}
	now := s.settings.now()
	storedName, relPath, size, err := s.store(ctx, storageDir(in.UserID, folderNames), name, in.Content, limit)
	if err != nil {
		return IngestOutput{}, err
	}
	if size > limit {
		s.discard(relPath)
		if quotaBound {
			return IngestOutput{}, quotaExceeded(user, size)
		}
		return IngestOutput{}, newAppError(KindValidation, "file exceeds the maximum upload size", nil)
	}

	// hashed
	digest, err := hashStored(ctx, s.backend, relPath, s.settings.HashChunkSize)
	if err != nil {
		s.discard(relPath)
		if ctx.Err() != nil {
			return IngestOutput{}, ctx.Err()
		}
		return IngestOutput{}, newAppError(KindStorageIO, "failed to hash stored content", err)
	}

	// committed
	file := models.File{
		UserID:           in.UserID,
		FolderID:         folderID,
		OriginalFilename: name,
		StoredName:       storedName,
		StoragePath:      relPath,
		Size:             size,
		ContentHash:      &digest,
		MimeType:         getMimeType(path.Ext(name)),
		Extension:        models.ExtensionOf(name),
		Version:          1,
		ParentFileID:     chainRoot,
		LastAccessedAt:   now,
	}
	if err := s.commit(ctx, &file); err != nil {
		s.discard(relPath)
		return IngestOutput{}, err
	}

	log.Info().Uint("user_id", file.UserID).Uint("file_id", file.ID).Int64("bytes", file.Size).
		Str("stored_name", file.StoredName).Msg("file ingested")

	out := IngestOutput{File: file}
	if same, err := s.files.ListActiveByHash(ctx, nil, in.UserID, digest); err == nil {
		for _, f := range same {
			if f.ID != file.ID {
				out.DuplicateOf = append(out.DuplicateOf, f.ID)
			}
		}
	} else {
		log.Warn().Err(err).Uint("file_id", file.ID).Msg("duplicate lookup failed")
	}
	return out, nil
}

func quotaExceeded(user models.User, size int64) *AppError {
	return newAppErrorWithData(KindQuotaExceeded, "storage quota exceeded", map[string]int64{
		"quota":     user.StorageQuota,
		"used":      user.StorageUsed,
		"available": user.AvailableSpace(),
		"requested": size,
	}, nil)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// store writes at most limit+1 bytes under a fresh stored name in dir. A name
// collision is retried only while the stream is still unread.
func (s *fileService) store(ctx context.Context, dir, name string, content io.Reader, limit int64) (string, string, int64, error) {
	src := &countingReader{r: io.LimitReader(content, limit+1)}
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		storedName := generateStoredName(name, s.settings.now())
		relPath := path.Join(dir, storedName)

		written, err := s.backend.Write(ctx, relPath, src)
		if err == nil {
			return storedName, relPath, written, nil
		}
		if errors.Is(err, storage.ErrExist) && src.n == 0 {
			continue
		}
		if ctx.Err() != nil {
			return "", "", 0, ctx.Err()
		}
		return "", "", 0, newAppError(KindStorageIO, "failed to write file content", err)
	}
	return "", "", 0, newAppError(KindStorageIO, "could not allocate a unique stored name", storage.ErrExist)
}

// discard removes bytes written by a rejected or failed ingestion.
func (s *fileService) discard(relPath string) {
	if err := s.backend.Remove(context.Background(), relPath); err != nil && !errors.Is(err, storage.ErrNotExist) {
		s.metrics.ObservePurge(0, 0, 1)
		log.Warn().Err(err).Str("path", relPath).Msg("failed to remove orphaned upload")
	}
}

func (s *fileService) commit(ctx context.Context, file *models.File) error {
	return lockedTx(ctx, s.deps, file.UserID, func(tx *gorm.DB) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		user, err := s.users.LockByID(ctx, tx, file.UserID)
		if err != nil {
			return repoError(err, "user not found", "failed to lock user")
		}
		ok, err := s.users.ReserveStorage(ctx, tx, file.UserID, file.Size)
		if err != nil {
			return newAppError(KindInternal, "failed to reserve storage", err)
		}
		if !ok {
			return quotaExceeded(user, file.Size)
		}

		if file.ParentFileID != nil {
			latest, err := s.files.MaxVersion(ctx, tx, file.UserID, *file.ParentFileID)
			if err != nil {
				return newAppError(KindInternal, "failed to read version chain", err)
			}
			file.Version = latest + 1
		}
		if err := s.files.Create(ctx, tx, file); err != nil {
			return newAppError(KindInternal, "failed to create file record", err)
		}
		return ctx.Err()
	})
}

func (s *fileService) ListFiles(ctx context.Context, in ListFilesInput) (FileListOutput, error) {
	page, pageSize := utils.NormalizePage(in.Page, in.PageSize)
	total, err := s.files.CountByFolder(ctx, nil, in.UserID, in.FolderID)
	if err != nil {
		return FileListOutput{}, newAppError(KindInternal, "failed to count files", err)
	}
	files, err := s.files.ListByFolder(ctx, nil, repositories.ListFilesInput{
		UserID:   in.UserID,
		FolderID: in.FolderID,
		SortBy:   in.SortBy,
		Order:    in.Order,
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	})
	if err != nil {
		return FileListOutput{}, newAppError(KindInternal, "failed to list files", err)
	}
	return FileListOutput{Files: files, Pagination: utils.NewPagination(page, pageSize, total)}, nil
}

func (s *fileService) GetFile(ctx context.Context, userID uint, fileID uint) (models.File, error) {
	file, err := s.files.GetByIDAndUser(ctx, nil, fileID, userID)
	if err != nil {
		return models.File{}, repoError(err, "file not found", "failed to load file")
	}
	return file, nil
}

func (s *fileService) activeFile(ctx context.Context, userID uint, fileID uint) (models.File, error) {
	file, err := s.GetFile(ctx, userID, fileID)
	if err != nil {
		return models.File{}, err
	}
	if file.IsDeleted {
		return models.File{}, newAppError(KindNotFound, "file not found", nil)
	}
	return file, nil
}

func (s *fileService) Open(ctx context.Context, userID uint, fileID uint) (models.File, io.ReadCloser, error) {
	file, err := s.activeFile(ctx, userID, fileID)
	if err != nil {
		return models.File{}, nil, err
	}
	rc, err := s.backend.Open(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			log.Error().Uint("file_id", file.ID).Str("path", file.StoragePath).Msg("stored bytes are missing")
		}
		return models.File{}, nil, newAppError(KindStorageIO, "failed to open file content", err)
	}

	now := s.settings.now()
	if err := s.files.UpdateByIDAndUser(ctx, nil, file.ID, userID, map[string]interface{}{"last_accessed_at": now}); err != nil {
		log.Warn().Err(err).Uint("file_id", file.ID).Msg("failed to record file access")
	} else {
		file.LastAccessedAt = now
	}
	return file, rc, nil
}

func (s *fileService) Rename(ctx context.Context, userID uint, fileID uint, newName string) (models.File, error) {
	name, err := validateNodeName(newName)
	if err != nil {
		return models.File{}, err
	}
	file, err := s.activeFile(ctx, userID, fileID)
	if err != nil {
		return models.File{}, err
	}
	if err := s.files.UpdateByIDAndUser(ctx, nil, file.ID, userID, map[string]interface{}{"original_filename": name}); err != nil {
		return models.File{}, newAppError(KindInternal, "failed to rename file", err)
	}
	file.OriginalFilename = name
	return file, nil
}

// Move relocates the file record only; stored bytes keep their path.
func (s *fileService) Move(ctx context.Context, userID uint, fileID uint, folderID *uint) (models.File, error) {
	file, err := s.activeFile(ctx, userID, fileID)
	if err != nil {
		return models.File{}, err
	}

	var target *uint
	if folderID != nil && *folderID != 0 {
		folder, err := s.folders.GetByIDAndUser(ctx, nil, *folderID, userID)
		if err != nil {
			return models.File{}, repoError(err, "target folder not found", "failed to load target folder")
		}
		if folder.IsDeleted {
			return models.File{}, newAppError(KindNotFound, "target folder not found", nil)
		}
		target = &folder.ID
	}

	if err := s.files.UpdateByIDAndUser(ctx, nil, file.ID, userID, map[string]interface{}{"folder_id": nullableID(target)}); err != nil {
		return models.File{}, newAppError(KindInternal, "failed to move file", err)
	}
	file.FolderID = target
	return file, nil
}

func (s *fileService) ToggleFavorite(ctx context.Context, userID uint, fileID uint) (models.File, error) {
	file, err := s.activeFile(ctx, userID, fileID)
	if err != nil {
		return models.File{}, err
	}
	file.IsFavorite = !file.IsFavorite
	if err := s.files.UpdateByIDAndUser(ctx, nil, file.ID, userID, map[string]interface{}{"is_favorite": file.IsFavorite}); err != nil {
		return models.File{}, newAppError(KindInternal, "failed to update favorite", err)
	}
	return file, nil
}

func (s *fileService) ListFavorites(ctx context.Context, userID uint) ([]models.File, error) {
	files, err := s.files.ListFavorites(ctx, nil, userID)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to list favorites", err)
	}
	return files, nil
}

// SearchFiles matches the query against active file names, ignoring case.
func (s *fileService) SearchFiles(ctx context.Context, userID uint, query string) ([]models.File, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newAppError(KindValidation, "search query must not be empty", nil)
	}
	files, err := s.files.Search(ctx, nil, userID, query, maxSearchResults)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to search files", err)
	}
	return files, nil
}

func (s *fileService) ListRecent(ctx context.Context, userID uint, limit int) ([]models.File, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	files, err := s.files.ListRecent(ctx, nil, userID, limit)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to list recent files", err)
	}
	return files, nil
}

func (s *fileService) ListVersions(ctx context.Context, userID uint, fileID uint) ([]models.File, error) {
	file, err := s.GetFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	root := file.ID
	if file.ParentFileID != nil {
		root = *file.ParentFileID
	}
	versions, err := s.files.ListVersions(ctx, nil, userID, root)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to list versions", err)
	}
	return versions, nil
}

// nullableID converts an optional id into a value gorm writes as NULL or the id.
func nullableID(id *uint) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
