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

type categoryRequest struct {
	Name            string  `json:"name" binding:"required"`
	Slug            string  `json:"slug"`
	Description     *string `json:"description"`
	ParentID        *int64  `json:"parent_id"`
	Color           *string `json:"color"`
	Icon            *string `json:"icon"`
	SortOrder       int     `json:"sort_order"`
	MetaTitle       *string `json:"meta_title"`
	MetaDescription *string `json:"meta_description"`
}

type categoryResponse struct {
	ID              int64              `json:"id"`
	Name            string             `json:"name"`
	Slug            string             `json:"slug"`
	Description     *string            `json:"description"`
	ParentID        *int64             `json:"parent_id"`
	Level           int                `json:"level"`
	Path            string             `json:"path"`
	Color           *string            `json:"color"`
	Icon            *string            `json:"icon"`
	IsActive        bool               `json:"is_active"`
	IsSystem        bool               `json:"is_system"`
	SortOrder       int                `json:"sort_order"`
	ArticleCount    int                `json:"article_count"`
	PaperCount      int                `json:"paper_count"`
	MetaTitle       *string            `json:"meta_title"`
	MetaDescription *string            `json:"meta_description"`
	Children        []categoryResponse `json:"children,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func toCategoryResponse(category models.Category) categoryResponse {
	return categoryResponse{
		ID:              category.ID,
		Name:            category.Name,
		Slug:            category.Slug,
		Description:     category.Description,
		ParentID:        category.ParentID,
		Level:           category.Level,
		Path:            category.Path,
		Color:           category.Color,
		Icon:            category.Icon,
		IsActive:        category.IsActive,
		IsSystem:        category.IsSystem,
		SortOrder:       category.SortOrder,
		ArticleCount:    category.ArticleCount,
		PaperCount:      category.PaperCount,
		MetaTitle:       category.MetaTitle,
		MetaDescription: category.MetaDescription,
		CreatedAt:       category.CreatedAt,
		UpdatedAt:       category.UpdatedAt,
	}
}

func toCategoryTree(node *models.Category) categoryResponse {
	resp := toCategoryResponse(*node)
	for _, child := range node.Children {
		resp.Children = append(resp.Children, toCategoryTree(child))
	}
	return resp
}

func sendCategoryList(c *gin.Context, categories []models.Category) {
	resp := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		resp = append(resp, toCategoryResponse(category))
	}
	c.JSON(http.StatusOK, gin.H{"categories": resp, "count": len(resp)})
}

func (h HandlerSet) ListCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context(), c.Query("active_only") != "false")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_categories_failed"})
		return
	}
	sendCategoryList(c, categories)
}

func (h HandlerSet) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := models.Category{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		ParentID:        req.ParentID,
		Color:           req.Color,
		Icon:            req.Icon,
		SortOrder:       req.SortOrder,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
	}
	if category.Slug == "" {
		category.Slug = slug.From(category.Name)
	}

	if err := h.categories.Create(c.Request.Context(), &category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "parent_not_found"})
		case errors.Is(err, repository.ErrDuplicateCategory):
			c.JSON(http.StatusConflict, gin.H{"error": "category_already_exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create_category_failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, toCategoryResponse(category))
}

func (h HandlerSet) CategoryTree(c *gin.Context) {
	roots, err := h.categories.Tree(c.Request.Context(), c.Query("active_only") != "false")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "category_tree_failed"})
		return
	}

	resp := make([]categoryResponse, 0, len(roots))
	for _, root := range roots {
		resp = append(resp, toCategoryTree(root))
	}
	c.JSON(http.StatusOK, gin.H{"categories": resp})
}

func (h HandlerSet) RootCategories(c *gin.Context) {
	categories, err := h.categories.ListRoots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_categories_failed"})
		return
	}
	sendCategoryList(c, categories)
}

func (h HandlerSet) CategoryBySlug(c *gin.Context) {
	category, err := h.categories.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "category_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_category_failed"})
		return
	}
	c.JSON(http.StatusOK, toCategoryResponse(category))
}

func (h HandlerSet) GetCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	category, err := h.categories.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "category_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_category_failed"})
		return
	}
	c.JSON(http.StatusOK, toCategoryResponse(category))
}

func (h HandlerSet) CategoryChildren(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	children, err := h.categories.ListChildren(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_categories_failed"})
		return
	}
	sendCategoryList(c, children)
}

type updateCategoryRequest struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	Color           *string `json:"color"`
	Icon            *string `json:"icon"`
	IsActive        *bool   `json:"is_active"`
	SortOrder       *int    `json:"sort_order"`
	MetaTitle       *string `json:"meta_title"`
	MetaDescription *string `json:"meta_description"`
}

func (h HandlerSet) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	category, err := h.categories.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "category_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_category_failed"})
		return
	}

	var req updateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		category.Name = req.Name
	}
	if req.Description != nil {
		category.Description = req.Description
	}
	if req.Color != nil {
		category.Color = req.Color
	}
	if req.Icon != nil {
		category.Icon = req.Icon
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	if req.MetaTitle != nil {
		category.MetaTitle = req.MetaTitle
	}
	if req.MetaDescription != nil {
		category.MetaDescription = req.MetaDescription
	}

	if err := h.categories.Update(c.Request.Context(), category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_category_failed"})
		return
	}
	c.JSON(http.StatusOK, toCategoryResponse(category))
}

type moveCategoryRequest struct {
	ParentID *int64 `json:"parent_id"`
}

func (h HandlerSet) MoveCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req moveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.categories.Move(c.Request.Context(), id, req.ParentID); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "category_not_found"})
		case errors.Is(err, repository.ErrCategoryCycle):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot move category under its own subtree"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "move_category_failed"})
		}
		return
	}

	category, err := h.categories.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_category_failed"})
		return
	}
	c.JSON(http.StatusOK, toCategoryResponse(category))
}

func (h HandlerSet) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "category_not_found"})
		case errors.Is(err, repository.ErrCategoryNotEmpty):
			c.JSON(http.StatusConflict, gin.H{"error": "category_not_empty"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_category_failed"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
