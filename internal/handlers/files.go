package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/service"
)

type fileResponse struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	SizeBytes        int64     `json:"size_bytes"`
	MimeType         string    `json:"mime_type"`
	Extension        string    `json:"extension"`
	SHA256           string    `json:"sha256"`
	FileType         string    `json:"file_type"`
	Description      *string   `json:"description"`
	AltText          *string   `json:"alt_text"`
	ArticleID        *int64    `json:"article_id"`
	PaperID          *int64    `json:"paper_id"`
	IsPublic         bool      `json:"is_public"`
	DownloadCount    int       `json:"download_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toFileResponse(file models.File) fileResponse {
	return fileResponse{
		ID:               file.ID,
		Filename:         file.Filename,
		OriginalFilename: file.OriginalFilename,
		SizeBytes:        file.SizeBytes,
		MimeType:         file.MimeType,
		Extension:        file.Extension,
		SHA256:           file.SHA256,
		FileType:         string(file.FileType),
		Description:      file.Description,
		AltText:          file.AltText,
		ArticleID:        file.ArticleID,
		PaperID:          file.PaperID,
		IsPublic:         file.IsPublic,
		DownloadCount:    file.DownloadCount,
		CreatedAt:        file.CreatedAt,
		UpdatedAt:        file.UpdatedAt,
	}
}

func (h HandlerSet) UploadFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	input := service.UploadInput{
		File:     file,
		Header:   header,
		IsPublic: c.PostForm("is_public") != "false",
	}
	if description := c.PostForm("description"); description != "" {
		input.Description = &description
	}
	if altText := c.PostForm("alt_text"); altText != "" {
		input.AltText = &altText
	}
	if raw := c.PostForm("article_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			input.ArticleID = &id
		}
	}
	if raw := c.PostForm("paper_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			input.PaperID = &id
		}
	}

	result, err := h.fileService.Upload(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
		case errors.Is(err, service.ErrExtensionBlocked):
			c.JSON(http.StatusBadRequest, gin.H{"error": "extension_not_allowed"})
		case errors.Is(err, service.ErrEmptyFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_file"})
		case errors.Is(err, service.ErrContentMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "content_mismatch"})
		default:
			h.log.Error().Err(err).Str("filename", header.Filename).Msg("upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed"})
		}
		return
	}

	status := http.StatusCreated
	if result.Deduplicated {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"file":         toFileResponse(result.File),
		"deduplicated": result.Deduplicated,
	})
}

func (h HandlerSet) ListFiles(c *gin.Context) {
	filter := repository.FileFilter{
		FileType: models.FileType(c.Query("file_type")),
		Orphaned: c.Query("orphaned") == "true",
	}
	if raw := c.Query("article_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ArticleID = &id
		}
	}
	if raw := c.Query("paper_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.PaperID = &id
		}
	}

	files, err := h.files.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_files_failed"})
		return
	}

	resp := make([]fileResponse, 0, len(files))
	for _, file := range files {
		resp = append(resp, toFileResponse(file))
	}
	c.JSON(http.StatusOK, gin.H{"files": resp, "count": len(resp)})
}

func (h HandlerSet) GetFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	file, err := h.files.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_file_failed"})
		return
	}
	c.JSON(http.StatusOK, toFileResponse(file))
}

func (h HandlerSet) DownloadFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	file, reader, err := h.fileService.Download(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "download_failed"})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, file.SizeBytes, file.MimeType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.OriginalFilename),
	})
}

func (h HandlerSet) AssociateFileArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	articleID, ok := pathID(c, "articleId")
	if !ok {
		return
	}

	if _, err := h.articles.GetByID(c.Request.Context(), articleID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article_not_found"})
		return
	}

	if err := h.files.AssociateArticle(c.Request.Context(), id, articleID); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "associate_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "article_id": articleID})
}

func (h HandlerSet) AssociateFilePaper(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	paperID, ok := pathID(c, "paperId")
	if !ok {
		return
	}

	if _, err := h.papers.GetByID(c.Request.Context(), paperID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
		return
	}

	if err := h.files.AssociatePaper(c.Request.Context(), id, paperID); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "associate_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "paper_id": paperID})
}

func (h HandlerSet) ClearFileAssociations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.files.ClearAssociations(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear_associations_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) DeleteFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_file_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
