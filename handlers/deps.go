package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"greencloud/services"
	"greencloud/utils"

	"github.com/gin-gonic/gin"
)

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

var appServices *services.Container

// SetServices installs the service container used by every handler.
func SetServices(container *services.Container) {
	appServices = container
}

func getServices() *services.Container {
	if appServices == nil {
		panic("services container is not initialized")
	}
	return appServices
}

func respondServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var appErr *services.AppError
	switch {
	case errors.As(err, &appErr):
		code := appErr.HTTPCode
		if code == 0 {
			code = http.StatusInternalServerError
		}
		msg := appErr.Message
		if msg == "" {
			msg = string(appErr.Kind)
		}
		if appErr.Data != nil {
			utils.ErrorWithData(c, code, msg, appErr.Data)
		} else {
			utils.Error(c, code, msg)
		}
	case errors.Is(err, context.Canceled):
		utils.Error(c, statusClientClosedRequest, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		utils.Error(c, http.StatusRequestTimeout, "request timed out")
	default:
		utils.Error(c, http.StatusInternalServerError, "internal error")
	}
	return true
}

// respondPurge reports a hard delete, surfacing byte removals that failed.
func respondPurge(c *gin.Context, message string, report services.PurgeReport) {
	utils.SuccessWithMessage(c, message, gin.H{
		"files_purged":   report.FilesPurged,
		"folders_purged": report.FoldersPurged,
		"bytes_freed":    report.BytesFreed,
		"warnings":       report.WarningMessages(),
	})
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint("user_id")
}

func parseIDParam(c *gin.Context, name, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.Error(c, http.StatusBadRequest, message)
		return 0, false
	}
	return uint(id), true
}

// parseOptionalID reads an optional id; a missing value or 0 means the root.
func parseOptionalID(raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}
	v := uint(id)
	return &v, nil
}
