package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"

	"greencloud/models"
	"greencloud/storage"
)

const defaultHashChunkSize = 4096

// HashContent streams r through SHA-256 in chunkSize pieces and returns the hex digest.
func HashContent(r io.Reader, chunkSize int) (string, error) {
	if chunkSize <= 0 {
		chunkSize = defaultHashChunkSize
	}
	h := sha256.New()
	if _, err := io.CopyBuffer(h, onlyReader{r}, make([]byte, chunkSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// onlyReader hides WriterTo so CopyBuffer actually uses the chunk buffer.
type onlyReader struct {
	io.Reader
}

// hashStored digests the bytes as the backend holds them.
func hashStored(ctx context.Context, backend storage.Backend, relPath string, chunkSize int) (string, error) {
	rc, err := backend.Open(ctx, relPath)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return HashContent(storage.ContextReader(ctx, rc), chunkSize)
}

type DuplicateGroup struct {
	Digest      string `json:"digest"`
	FileIDs     []uint `json:"file_ids"`
	TotalSize   int64  `json:"total_size"`
	WastedBytes int64  `json:"wasted_bytes"`
}

// groupDuplicates groups active hashed files by digest and keeps groups of two
// or more, largest waste first.
func groupDuplicates(files []models.File) []DuplicateGroup {
	byDigest := make(map[string]*DuplicateGroup)
	var order []string
	for _, f := range files {
		if f.IsDeleted || f.ContentHash == nil || *f.ContentHash == "" {
			continue
		}
		digest := *f.ContentHash
		g, ok := byDigest[digest]
		if !ok {
			g = &DuplicateGroup{Digest: digest}
			byDigest[digest] = g
			order = append(order, digest)
		}
		g.FileIDs = append(g.FileIDs, f.ID)
		g.TotalSize += f.Size
	}

	groups := make([]DuplicateGroup, 0)
	for _, digest := range order {
		g := byDigest[digest]
		if len(g.FileIDs) < 2 {
			continue
		}
		g.WastedBytes = g.TotalSize - g.TotalSize/int64(len(g.FileIDs))
		groups = append(groups, *g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].WastedBytes > groups[j].WastedBytes
	})
	return groups
}
