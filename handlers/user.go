package handlers

import (
	"net/http"

	"greencloud/services"
	"greencloud/utils"

	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Username     string `json:"username" binding:"required,max=80"`
	StorageQuota *int64 `json:"storage_quota"`
}

type UpdateSettingsRequest struct {
	EcoModeEnabled     *bool `json:"eco_mode_enabled"`
	AutoCleanupEnabled *bool `json:"auto_cleanup_enabled"`
}

// GetStorageQuota returns the caller's quota and usage.
func GetStorageQuota(c *gin.Context) {
	quota, err := getServices().User.GetStorageQuota(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, quota)
}

// UpdateSettings switches eco mode or auto cleanup.
func UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	user, err := getServices().User.UpdateSettings(c.Request.Context(), currentUserID(c), services.SettingsInput{
		EcoMode:     req.EcoModeEnabled,
		AutoCleanup: req.AutoCleanupEnabled,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, user)
}

// RecalculateStorage recomputes storage_used from active files.
func RecalculateStorage(c *gin.Context) {
	used, err := getServices().User.RecalculateStorage(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"storage_used": used})
}

// CreateUser provisions an account. Identity itself is owned by the fronting proxy.
func CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	user, err := getServices().User.CreateUser(c.Request.Context(), req.Username, req.StorageQuota)
	if respondServiceError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, utils.Response{Code: 0, Message: "user created", Data: user})
}

// DeleteUser removes a user with all files, folders and bytes.
func DeleteUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id", "invalid user id")
	if !ok {
		return
	}
	report, err := getServices().User.DeleteUser(c.Request.Context(), userID)
	if respondServiceError(c, err) {
		return
	}
	respondPurge(c, "user deleted", report)
}
