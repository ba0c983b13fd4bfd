package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/service"
)

type articleRequest struct {
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Summary          *string  `json:"summary"`
	Slug             string   `json:"slug"`
	Status           string   `json:"status"`
	MetaDescription  *string  `json:"meta_description"`
	FeaturedImageURL *string  `json:"featured_image_url"`
	CategoryID       *int64   `json:"category_id"`
	IsPublic         *bool    `json:"is_public"`
	Tags             []string `json:"tags"`
}

func (r articleRequest) toInput() service.ArticleInput {
	return service.ArticleInput{
		Title:            r.Title,
		Content:          r.Content,
		Summary:          r.Summary,
		Slug:             r.Slug,
		Status:           models.ArticleStatus(r.Status),
		MetaDescription:  r.MetaDescription,
		FeaturedImageURL: r.FeaturedImageURL,
		CategoryID:       r.CategoryID,
		IsPublic:         r.IsPublic,
		TagNames:         r.Tags,
	}
}

type articleResponse struct {
	ID               int64         `json:"id"`
	Title            string        `json:"title"`
	Content          string        `json:"content"`
	Summary          *string       `json:"summary"`
	Slug             string        `json:"slug"`
	Status           string        `json:"status"`
	MetaDescription  *string       `json:"meta_description"`
	FeaturedImageURL *string       `json:"featured_image_url"`
	CategoryID       *int64        `json:"category_id"`
	IsPublic         bool          `json:"is_public"`
	PublishedAt      *time.Time    `json:"published_at"`
	ViewCount        int           `json:"view_count"`
	LikeCount        int           `json:"like_count"`
	Tags             []tagResponse `json:"tags"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func toArticleResponse(article models.Article) articleResponse {
	tags := make([]tagResponse, 0, len(article.Tags))
	for _, tag := range article.Tags {
		tags = append(tags, toTagResponse(tag))
	}
	return articleResponse{
		ID:               article.ID,
		Title:            article.Title,
		Content:          article.Content,
		Summary:          article.Summary,
		Slug:             article.Slug,
		Status:           string(article.Status),
		MetaDescription:  article.MetaDescription,
		FeaturedImageURL: article.FeaturedImageURL,
		CategoryID:       article.CategoryID,
		IsPublic:         article.IsPublic,
		PublishedAt:      article.PublishedAt,
		ViewCount:        article.ViewCount,
		LikeCount:        article.LikeCount,
		Tags:             tags,
		CreatedAt:        article.CreatedAt,
		UpdatedAt:        article.UpdatedAt,
	}
}

func sendArticleList(c *gin.Context, articles []models.Article) {
	resp := make([]articleResponse, 0, len(articles))
	for _, article := range articles {
		resp = append(resp, toArticleResponse(article))
	}
	c.JSON(http.StatusOK, gin.H{"articles": resp, "count": len(resp)})
}

func (h HandlerSet) ListArticles(c *gin.Context) {
	filter := repository.ArticleFilter{
		Skip:          queryInt(c, "skip", 0),
		Limit:         queryInt(c, "limit", 20),
		PublishedOnly: c.Query("published_only") == "true",
		Search:        c.Query("search"),
	}
	if raw := c.Query("category_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.CategoryID = &id
		}
	}

	articles, err := h.articles.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_articles_failed"})
		return
	}
	sendArticleList(c, articles)
}

func (h HandlerSet) CreateArticle(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	article, err := h.articleService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrEmptyTitle) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_article_failed"})
		return
	}

	c.JSON(http.StatusCreated, toArticleResponse(article))
}

func (h HandlerSet) PopularArticles(c *gin.Context) {
	articles, err := h.articles.ListPopular(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_articles_failed"})
		return
	}
	sendArticleList(c, articles)
}

func (h HandlerSet) RecentArticles(c *gin.Context) {
	articles, err := h.articles.ListRecent(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_articles_failed"})
		return
	}
	sendArticleList(c, articles)
}

func (h HandlerSet) ArticleBySlug(c *gin.Context) {
	article, err := h.articles.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_article_failed"})
		return
	}
	c.JSON(http.StatusOK, toArticleResponse(article))
}

// GetArticle counts the read as a view unless increment_views=false.
func (h HandlerSet) GetArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	article, err := h.articleService.Get(c.Request.Context(), id, c.Query("increment_views") != "false")
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_article_failed"})
		return
	}
	c.JSON(http.StatusOK, toArticleResponse(article))
}

func (h HandlerSet) UpdateArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	article, err := h.articleService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_article_failed"})
		return
	}
	c.JSON(http.StatusOK, toArticleResponse(article))
}

func (h HandlerSet) DeleteArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.articles.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_article_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) PublishArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	article, err := h.articleService.Publish(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publish_failed"})
		return
	}
	c.JSON(http.StatusOK, toArticleResponse(article))
}

func (h HandlerSet) UnpublishArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	article, err := h.articleService.Unpublish(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unpublish_failed"})
		return
	}
	c.JSON(http.StatusOK, toArticleResponse(article))
}

func (h HandlerSet) LikeArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	likes, err := h.articles.IncrementLikes(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "like_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "like_count": likes})
}
