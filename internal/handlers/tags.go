package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/slug"
)

type tagRequest struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	SortOrder   int     `json:"sort_order"`
}

type tagResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	Color       *string   `json:"color"`
	Icon        *string   `json:"icon"`
	IsActive    bool      `json:"is_active"`
	IsSystem    bool      `json:"is_system"`
	UsageCount  int       `json:"usage_count"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTagResponse(tag models.Tag) tagResponse {
	return tagResponse{
		ID:          tag.ID,
		Name:        tag.Name,
		Slug:        tag.Slug,
		Description: tag.Description,
		Color:       tag.Color,
		Icon:        tag.Icon,
		IsActive:    tag.IsActive,
		IsSystem:    tag.IsSystem,
		UsageCount:  tag.UsageCount,
		SortOrder:   tag.SortOrder,
		CreatedAt:   tag.CreatedAt,
		UpdatedAt:   tag.UpdatedAt,
	}
}

func sendTagList(c *gin.Context, tags []models.Tag) {
	resp := make([]tagResponse, 0, len(tags))
	for _, tag := range tags {
		resp = append(resp, toTagResponse(tag))
	}
	c.JSON(http.StatusOK, gin.H{"tags": resp, "count": len(resp)})
}

func (h HandlerSet) ListTags(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context(), c.Query("active_only") != "false", c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_tags_failed"})
		return
	}
	sendTagList(c, tags)
}

func (h HandlerSet) CreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag := models.Tag{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
	}
	if tag.Slug == "" {
		tag.Slug = slug.From(tag.Name)
	}

	if err := h.tags.Create(c.Request.Context(), &tag); err != nil {
		if errors.Is(err, repository.ErrDuplicateTag) {
			c.JSON(http.StatusConflict, gin.H{"error": "tag_already_exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_tag_failed"})
		return
	}

	c.JSON(http.StatusCreated, toTagResponse(tag))
}

type bulkTagsRequest struct {
	Names []string `json:"names" binding:"required"`
}

// BulkTags resolves a batch of tag names at once, creating the missing ones.
func (h HandlerSet) BulkTags(c *gin.Context) {
	var req bulkTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, err := h.tags.GetOrCreateByNames(c.Request.Context(), req.Names, slug.From)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bulk_tags_failed"})
		return
	}
	sendTagList(c, tags)
}

func (h HandlerSet) PopularTags(c *gin.Context) {
	tags, err := h.tags.ListPopular(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_tags_failed"})
		return
	}
	sendTagList(c, tags)
}

func (h HandlerSet) UnusedTags(c *gin.Context) {
	tags, err := h.tags.ListUnused(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_tags_failed"})
		return
	}
	sendTagList(c, tags)
}

func (h HandlerSet) TagBySlug(c *gin.Context) {
	tag, err := h.tags.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tag_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_tag_failed"})
		return
	}
	c.JSON(http.StatusOK, toTagResponse(tag))
}

func (h HandlerSet) GetTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tag, err := h.tags.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tag_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_tag_failed"})
		return
	}
	c.JSON(http.StatusOK, toTagResponse(tag))
}

func (h HandlerSet) UpdateTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tag, err := h.tags.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tag_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_tag_failed"})
		return
	}

	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag.Name = req.Name
	if req.Slug != "" {
		tag.Slug = req.Slug
	}
	if req.Description != nil {
		tag.Description = req.Description
	}
	if req.Color != nil {
		tag.Color = req.Color
	}
	if req.Icon != nil {
		tag.Icon = req.Icon
	}
	tag.SortOrder = req.SortOrder

	if err := h.tags.Update(c.Request.Context(), tag); err != nil {
		if errors.Is(err, repository.ErrDuplicateTag) {
			c.JSON(http.StatusConflict, gin.H{"error": "tag_already_exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_tag_failed"})
		return
	}
	c.JSON(http.StatusOK, toTagResponse(tag))
}

func (h HandlerSet) ActivateTag(c *gin.Context) {
	h.setTagActive(c, true)
}

func (h HandlerSet) DeactivateTag(c *gin.Context) {
	h.setTagActive(c, false)
}

func (h HandlerSet) setTagActive(c *gin.Context, active bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tags.SetActive(c.Request.Context(), id, active); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tag_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_tag_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": active})
}

func (h HandlerSet) DeleteTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tags.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTagNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "tag_not_found"})
		case errors.Is(err, repository.ErrTagInUse):
			c.JSON(http.StatusConflict, gin.H{"error": "tag_in_use"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_tag_failed"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
