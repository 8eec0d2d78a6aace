package services

import (
	"context"
	"errors"
	"strings"

	"greencloud/models"
	"greencloud/repositories"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// maxFolderDepth caps parent-chain walks. Deeper chains are reported as cycles.
const maxFolderDepth = 256

type Breadcrumb struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type folderResolver struct {
	folders repositories.FolderRepository
	files   repositories.FileRepository
}

// chain returns the folders from the root down to folder itself.
func (r folderResolver) chain(ctx context.Context, tx *gorm.DB, folder models.Folder) ([]models.Folder, error) {
	nodes := []models.Folder{folder}
	current := folder
	for current.ParentID != nil {
		if len(nodes) >= maxFolderDepth {
			log.Error().Uint("folder_id", folder.ID).Uint("user_id", folder.UserID).Int("depth", len(nodes)).
				Msg("folder parent chain exceeds maximum depth")
			return nil, newAppError(KindCycleDetected, "folder hierarchy contains a cycle", nil)
		}
		parent, err := r.folders.GetByIDAndUser(ctx, tx, *current.ParentID, folder.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Error().Uint("folder_id", current.ID).Uint("missing_parent_id", *current.ParentID).
					Msg("folder parent chain is broken")
				return nil, newAppError(KindBrokenChain, "folder parent does not exist", nil)
			}
			return nil, newAppError(KindInternal, "failed to load parent folder", err)
		}
		nodes = append(nodes, parent)
		current = parent
	}

	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes, nil
}

func (r folderResolver) resolvePath(ctx context.Context, tx *gorm.DB, folder models.Folder) ([]string, error) {
	nodes, err := r.chain(ctx, tx, folder)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names, nil
}

func (r folderResolver) breadcrumbs(ctx context.Context, tx *gorm.DB, folder models.Folder) ([]Breadcrumb, error) {
	nodes, err := r.chain(ctx, tx, folder)
	if err != nil {
		return nil, err
	}
	crumbs := make([]Breadcrumb, len(nodes))
	for i, n := range nodes {
		crumbs[i] = Breadcrumb{ID: n.ID, Name: n.Name}
	}
	return crumbs, nil
}

func pathFromNames(names []string) string {
	return "/" + strings.Join(names, "/")
}

// descendantFileCount counts active files in folder and every active sub-folder,
// visiting each folder once.
func (r folderResolver) descendantFileCount(ctx context.Context, tx *gorm.DB, folder models.Folder) (int64, error) {
	visited := map[uint]bool{folder.ID: true}
	queue := []uint{folder.ID}
	var total int64

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		count, err := r.files.CountByFolder(ctx, tx, folder.UserID, &id)
		if err != nil {
			return 0, newAppError(KindInternal, "failed to count files", err)
		}
		total += count

		children, err := r.folders.ListByParent(ctx, tx, folder.UserID, &id, false)
		if err != nil {
			return 0, newAppError(KindInternal, "failed to list sub-folders", err)
		}
		for _, child := range children {
			if visited[child.ID] {
				log.Error().Uint("folder_id", child.ID).Msg("folder visited twice during traversal")
				return 0, newAppError(KindCycleDetected, "folder hierarchy contains a cycle", nil)
			}
			visited[child.ID] = true
			queue = append(queue, child.ID)
		}
	}
	return total, nil
}

// resolveTargetFolder returns the active folder for an upload or move target.
// A missing, foreign or trashed folder falls back to the root (nil).
func (r folderResolver) resolveTargetFolder(ctx context.Context, tx *gorm.DB, userID uint, folderID *uint) (*models.Folder, error) {
	if folderID == nil || *folderID == 0 {
		return nil, nil
	}
	folder, err := r.folders.GetByIDAndUser(ctx, tx, *folderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Uint("user_id", userID).Uint("folder_id", *folderID).Msg("target folder not found, using root")
			return nil, nil
		}
		return nil, newAppError(KindInternal, "failed to load target folder", err)
	}
	if folder.IsDeleted {
		log.Warn().Uint("user_id", userID).Uint("folder_id", folder.ID).Msg("target folder is trashed, using root")
		return nil, nil
	}
	return &folder, nil
}

// folderTree indexes all of a user's folders by parent for in-memory subtree walks.
type folderTree struct {
	byID     map[uint]models.Folder
	children map[uint][]models.Folder
}

func (r folderResolver) loadTree(ctx context.Context, tx *gorm.DB, userID uint) (folderTree, error) {
	all, err := r.folders.ListByUser(ctx, tx, userID)
	if err != nil {
		return folderTree{}, newAppError(KindInternal, "failed to load folders", err)
	}
	t := folderTree{byID: make(map[uint]models.Folder, len(all)), children: make(map[uint][]models.Folder)}
	for _, f := range all {
		t.byID[f.ID] = f
		if f.ParentID != nil {
			t.children[*f.ParentID] = append(t.children[*f.ParentID], f)
		}
	}
	return t, nil
}

// subtree walks breadth-first from rootID and returns every folder for which
// follow reports true, root included. Children of skipped folders are not visited.
func (t folderTree) subtree(rootID uint, follow func(models.Folder) bool) ([]models.Folder, error) {
	root, ok := t.byID[rootID]
	if !ok || !follow(root) {
		return nil, nil
	}
	visited := map[uint]bool{rootID: true}
	out := []models.Folder{root}
	for i := 0; i < len(out); i++ {
		for _, child := range t.children[out[i].ID] {
			if visited[child.ID] {
				log.Error().Uint("folder_id", child.ID).Msg("folder visited twice during traversal")
				return nil, newAppError(KindCycleDetected, "folder hierarchy contains a cycle", nil)
			}
			visited[child.ID] = true
			if follow(child) {
				out = append(out, child)
			}
		}
	}
	return out, nil
}

// recomputePaths rewrites the cached path of root and all its descendants from
// the parent chain. The rows are updated through tx.
func (r folderResolver) recomputePaths(ctx context.Context, tx *gorm.DB, userID uint, rootID uint) error {
	tree, err := r.loadTree(ctx, tx, userID)
	if err != nil {
		return err
	}
	root, ok := tree.byID[rootID]
	if !ok {
		return newAppError(KindNotFound, "folder not found", nil)
	}
	names, err := r.resolvePath(ctx, tx, root)
	if err != nil {
		return err
	}

	nodes, err := tree.subtree(rootID, func(models.Folder) bool { return true })
	if err != nil {
		return err
	}
	paths := map[uint]string{rootID: pathFromNames(names)}
	for _, n := range nodes {
		if n.ID != rootID {
			paths[n.ID] = models.BuildChildPath(paths[*n.ParentID], n.Name)
		}
		if n.Path == paths[n.ID] {
			continue
		}
		if err := r.folders.UpdateByID(ctx, tx, n.ID, map[string]interface{}{"path": paths[n.ID]}); err != nil {
			return newAppError(KindInternal, "failed to update folder path", err)
		}
	}
	return nil
}
