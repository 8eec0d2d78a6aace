package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"greencloud/services"
	"greencloud/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type RenameFileRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

type MoveFileRequest struct {
	FolderID *uint `json:"folder_id"`
}

// ListFiles lists the active files of one folder, paginated.
func ListFiles(c *gin.Context) {
	folderID, err := parseOptionalID(c.Query("folder_id"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid folder id")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	out, err := getServices().File.ListFiles(c.Request.Context(), services.ListFilesInput{
		UserID:   currentUserID(c),
		FolderID: folderID,
		SortBy:   c.DefaultQuery("sort_by", "created_at"),
		Order:    c.DefaultQuery("order", "desc"),
		Page:     page,
		PageSize: pageSize,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

// UploadFile streams one multipart file through the ingestion pipeline.
func UploadFile(c *gin.Context) {
	folderID, err := parseOptionalID(c.PostForm("folder_id"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid folder id")
		return
	}
	versionOf, err := parseOptionalID(c.PostForm("version_of"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid version_of id")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	declared := header.Size
	if declared <= 0 {
		declared = -1
	}
	out, err := getServices().File.Ingest(c.Request.Context(), services.IngestInput{
		UserID:       currentUserID(c),
		FolderID:     folderID,
		Filename:     header.Filename,
		Content:      file,
		DeclaredSize: declared,
		VersionOf:    versionOf,
	})
	if respondServiceError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, utils.Response{Code: 0, Message: "file uploaded", Data: out})
}

// DownloadFile streams the stored bytes of an active file as an attachment.
func DownloadFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id", "invalid file id")
	if !ok {
		return
	}
	file, rc, err := getServices().File.Open(c.Request.Context(), currentUserID(c), fileID)
	if respondServiceError(c, err) {
		return
	}
	defer rc.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, file.Size, contentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.OriginalFilename),
	})
	if err := c.Request.Context().Err(); err != nil {
		log.Debug().Uint("file_id", fileID).Err(err).Msg("download interrupted")
	}
}

// GetFile returns one file record of the caller.
func GetFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id", "invalid file id")
	if !ok {
		return
	}
	file, err := getServices().File.GetFile(c.Request.Context(), currentUserID(c), fileID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

// RenameFile changes the display name of an active file.
func RenameFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id", "invalid file id")
	if !ok {
		return
	}
	var req RenameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	file, err := getServices().File.Rename(c.Request.Context(), currentUserID(c), fileID, req.Name)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

// MoveFile moves a file into another folder, or to the root when folder_id is empty.
func MoveFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id", "invalid file id")
	if !ok {
		return
	}
	var req MoveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	file, err := getServices().File.Move(c.Request.Context(), currentUserID(c), fileID, req.FolderID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

// ToggleFavorite flips the favorite flag of an active file.
func ToggleFavorite(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id", "invalid file id")
	if !ok {
		return
	}
	file, err := getServices().File.ToggleFavorite(c.Request.Context(), currentUserID(c), fileID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

// ListFavorites lists the caller's active favorite files.
func ListFavorites(c *gin.Context) {
	files, err := getServices().File.ListFavorites(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, files)
}

// SearchFiles finds the caller's active files whose name contains q.
func SearchFiles(c *gin.Context) {
	files, err := getServices().File.SearchFiles(c.Request.Context(), currentUserID(c), c.Query("q"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"files": files, "count": len(files)})
}

// ListRecentFiles returns the newest active files, limit defaulting to 10.
func ListRecentFiles(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid limit")
		return
	}
	files, err := getServices().File.ListRecent(c.Request.Context(), currentUserID(c), limit)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, files)
}

// ListVersions lists every version in the chain the file belongs to.
func ListVersions(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id", "invalid file id")
	if !ok {
		return
	}
	files, err := getServices().File.ListVersions(c.Request.Context(), currentUserID(c), fileID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, files)
}

// DeleteFile moves a file to the trash.
func DeleteFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id", "invalid file id")
	if !ok {
		return
	}
	if respondServiceError(c, getServices().RecycleBin.SoftDeleteFile(c.Request.Context(), currentUserID(c), fileID)) {
		return
	}
	utils.SuccessWithMessage(c, "file moved to trash", nil)
}

// RestoreFile brings a trashed file back.
func RestoreFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id", "invalid file id")
	if !ok {
		return
	}
	if respondServiceError(c, getServices().RecycleBin.RestoreFile(c.Request.Context(), currentUserID(c), fileID)) {
		return
	}
	utils.SuccessWithMessage(c, "file restored", nil)
}

// PurgeFile removes a file and its bytes for good.
func PurgeFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id", "invalid file id")
	if !ok {
		return
	}
	report, err := getServices().RecycleBin.HardDeleteFile(c.Request.Context(), currentUserID(c), fileID)
	if respondServiceError(c, err) {
		return
	}
	respondPurge(c, "file permanently deleted", report)
}
