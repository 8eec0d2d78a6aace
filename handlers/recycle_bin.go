package handlers

import (
	"net/http"
	"strconv"

	"greencloud/config"
	"greencloud/utils"

	"github.com/gin-gonic/gin"
)

// ListTrash lists the caller's trashed files and folders.
func ListTrash(c *gin.Context) {
	listing, err := getServices().RecycleBin.ListTrash(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, listing)
}

// EmptyTrash purges every trashed file and folder of the caller.
func EmptyTrash(c *gin.Context) {
	report, err := getServices().RecycleBin.EmptyTrash(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	respondPurge(c, "trash emptied", report)
}

// CleanupTrash purges the caller's files trashed longer than retention_days,
// defaulting to the configured retention.
func CleanupTrash(c *gin.Context) {
	retention := defaultRetentionDays()
	if raw := c.Query("retention_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.Error(c, http.StatusBadRequest, "invalid retention_days")
			return
		}
		retention = n
	}
	report, err := getServices().Cleanup.CleanupOldTrash(c.Request.Context(), currentUserID(c), retention)
	if respondServiceError(c, err) {
		return
	}
	respondPurge(c, "old trash cleaned up", report)
}

func defaultRetentionDays() int {
	if config.AppConfig != nil {
		return config.AppConfig.Trash.RetentionDays
	}
	return config.Default().Trash.RetentionDays
}
