package handlers

import (
	"net/http"

	"greencloud/utils"

	"github.com/gin-gonic/gin"
)

type CreateFolderRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	ParentID *uint  `json:"parent_id"`
}

type RenameFolderRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// ListFolderContents lists the subfolders and files directly under parent_id.
func ListFolderContents(c *gin.Context) {
	parentID, err := parseOptionalID(c.Query("parent_id"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid parent id")
		return
	}
	contents, err := getServices().Folder.ListContents(c.Request.Context(), currentUserID(c), parentID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, contents)
}

// CreateFolder creates a folder under parent_id, or at the root.
func CreateFolder(c *gin.Context) {
	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	folder, err := getServices().Folder.CreateFolder(c.Request.Context(), currentUserID(c), req.Name, req.ParentID)
	if respondServiceError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, utils.Response{Code: 0, Message: "folder created", Data: folder})
}

// RenameFolder renames a folder and refreshes the cached paths below it.
func RenameFolder(c *gin.Context) {
	folderID, ok := parseIDParam(c, "id", "invalid folder id")
	if !ok {
		return
	}
	var req RenameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	folder, err := getServices().Folder.RenameFolder(c.Request.Context(), currentUserID(c), folderID, req.Name)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, folder)
}

// GetBreadcrumbs returns the ancestor chain of a folder, root first.
func GetBreadcrumbs(c *gin.Context) {
	folderID, ok := parseIDParam(c, "id", "invalid folder id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	crumbs, err := getServices().Folder.Breadcrumbs(ctx, currentUserID(c), folderID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, crumbs)
}

// GetFolderFileCount counts active files anywhere below a folder.
func GetFolderFileCount(c *gin.Context) {
	folderID, ok := parseIDParam(c, "id", "invalid folder id")
	if !ok {
		return
	}
	count, err := getServices().Folder.DescendantFileCount(c.Request.Context(), currentUserID(c), folderID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"folder_id": folderID, "file_count": count})
}

// DeleteFolder moves a folder and its whole subtree to the trash.
func DeleteFolder(c *gin.Context) {
	folderID, ok := parseIDParam(c, "id", "invalid folder id")
	if !ok {
		return
	}
	if respondServiceError(c, getServices().RecycleBin.SoftDeleteFolder(c.Request.Context(), currentUserID(c), folderID)) {
		return
	}
	utils.SuccessWithMessage(c, "folder moved to trash", nil)
}

// RestoreFolder brings back a folder and the subtree trashed with it.
func RestoreFolder(c *gin.Context) {
	folderID, ok := parseIDParam(c, "id", "invalid folder id")
	if !ok {
		return
	}
	if respondServiceError(c, getServices().RecycleBin.RestoreFolder(c.Request.Context(), currentUserID(c), folderID)) {
		return
	}
	utils.SuccessWithMessage(c, "folder restored", nil)
}

// PurgeFolder permanently deletes a folder subtree and its bytes.
func PurgeFolder(c *gin.Context) {
	folderID, ok := parseIDParam(c, "id", "invalid folder id")
	if !ok {
		return
	}
	report, err := getServices().RecycleBin.HardDeleteFolder(c.Request.Context(), currentUserID(c), folderID)
	if respondServiceError(c, err) {
		return
	}
	respondPurge(c, "folder permanently deleted", report)
}
