package services

import (
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	replacer := strings.NewReplacer("..", "_", "/", "_", "\\", "_")
	return strings.TrimSpace(replacer.Replace(name))
}

var (
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dotRuns         = regexp.MustCompile(`\.{2,}`)
)

// secureName reduces a name to ASCII letters, digits, dot, dash and underscore.
// Runs of dots collapse to "_" so no segment reads as a parent reference.
func secureName(name string) string {
	name = unsafeNameChars.ReplaceAllString(strings.ReplaceAll(name, " ", "_"), "")
	name = dotRuns.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

func isFileExtensionAllowed(fileName string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	fileExt := strings.ToLower(filepath.Ext(fileName))
	if fileExt == "" {
		return false
	}
	for _, ext := range allowed {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "*" {
			return true
		}
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if normalized == fileExt {
			return true
		}
	}

	return false
}

func getMimeType(ext string) string {
	mimeTypes := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".pdf":  "application/pdf",
		".txt":  "text/plain",
		".csv":  "text/csv",
		".json": "application/json",
		".mp4":  "video/mp4",
		".mp3":  "audio/mpeg",
		".zip":  "application/zip",
		".doc":  "application/msword",
	}
	ext = strings.ToLower(ext)
	if mt, ok := mimeTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

// generateStoredName builds <base>_<YYYYmmdd_HHMMSS>_<token><.ext>. The token
// is the first 8 hex digits of a random uuid.
func generateStoredName(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	base := secureName(strings.TrimSuffix(original, filepath.Ext(original)))
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s%s", base, now.Format("20060102_150405"), token, ext)
}

// storageDir is the physical directory for a user's folder: <userID>/<segments...>.
func storageDir(userID uint, folderNames []string) string {
	parts := []string{fmt.Sprintf("%d", userID)}
	for _, name := range folderNames {
		parts = append(parts, secureName(name))
	}
	return path.Join(parts...)
}

// validateNodeName checks a user-supplied file or folder name.
func validateNodeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", newAppError(KindValidation, "name must not be empty", nil)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return "", newAppError(KindValidation, "name contains invalid characters", nil)
	}
	if len(name) > 255 {
		return "", newAppError(KindValidation, "name is too long", nil)
	}
	return name, nil
}
