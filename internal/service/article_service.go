package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/slug"
)

var ErrEmptyTitle = errors.New("title required")

type ArticleInput struct {
	Title            string
	Content          string
	Summary          *string
	Slug             string
	Status           models.ArticleStatus
	MetaDescription  *string
	FeaturedImageURL *string
	CategoryID       *int64
	IsPublic         *bool
	TagNames         []string
}

type ArticleService struct {
	articles *repository.ArticleRepository
	tags     *repository.TagRepository
	log      zerolog.Logger
}

func NewArticleService(articles *repository.ArticleRepository, tags *repository.TagRepository, log zerolog.Logger) *ArticleService {
	return &ArticleService{
		articles: articles,
		tags:     tags,
		log:      log,
	}
}

func (s *ArticleService) Create(ctx context.Context, input ArticleInput) (models.Article, error) {
	if input.Title == "" {
		return models.Article{}, ErrEmptyTitle
	}

	slugValue := input.Slug
	if slugValue == "" {
		slugValue = slug.From(input.Title)
	}
	slugValue, err := s.uniqueSlug(ctx, slugValue)
	if err != nil {
		return models.Article{}, err
	}

	status := input.Status
	if status == "" {
		status = models.ArticleStatusDraft
	}

	article := models.Article{
		Title:            input.Title,
		Content:          input.Content,
		Summary:          input.Summary,
		Slug:             slugValue,
		Status:           status,
		MetaDescription:  input.MetaDescription,
		FeaturedImageURL: input.FeaturedImageURL,
		CategoryID:       input.CategoryID,
		IsPublic:         true,
	}
	if input.IsPublic != nil {
		article.IsPublic = *input.IsPublic
	}
	if status == models.ArticleStatusPublished {
		now := time.Now()
		article.PublishedAt = &now
	}

	if err := s.articles.Create(ctx, &article); err != nil {
		return models.Article{}, err
	}

	if err := s.attachTags(ctx, &article, input.TagNames); err != nil {
		return models.Article{}, err
	}

	return article, nil
}

func (s *ArticleService) Update(ctx context.Context, id int64, input ArticleInput) (models.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return models.Article{}, err
	}

	if input.Title != "" {
		article.Title = input.Title
	}
	if input.Content != "" {
		article.Content = input.Content
	}
	if input.Summary != nil {
		article.Summary = input.Summary
	}
	if input.Slug != "" && input.Slug != article.Slug {
		slugValue, err := s.uniqueSlug(ctx, input.Slug)
		if err != nil {
			return models.Article{}, err
		}
		article.Slug = slugValue
	}
	if input.Status != "" {
		article.Status = input.Status
	}
	if input.MetaDescription != nil {
		article.MetaDescription = input.MetaDescription
	}
	if input.FeaturedImageURL != nil {
		article.FeaturedImageURL = input.FeaturedImageURL
	}
	if input.CategoryID != nil {
		article.CategoryID = input.CategoryID
	}
	if input.IsPublic != nil {
		article.IsPublic = *input.IsPublic
	}

	if err := s.articles.Update(ctx, article); err != nil {
		return models.Article{}, err
	}

	if input.TagNames != nil {
		if err := s.attachTags(ctx, &article, input.TagNames); err != nil {
			return models.Article{}, err
		}
	}

	return article, nil
}

// Get returns the article, optionally counting the read as a view.
func (s *ArticleService) Get(ctx context.Context, id int64, countView bool) (models.Article, error) {
	if countView {
		if err := s.articles.IncrementViews(ctx, id); err != nil {
			s.log.Warn().Err(err).Int64("article_id", id).Msg("count view failed")
		}
	}
	return s.articles.GetByID(ctx, id)
}

func (s *ArticleService) Publish(ctx context.Context, id int64) (models.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return models.Article{}, err
	}

	article.Status = models.ArticleStatusPublished
	if article.PublishedAt == nil {
		now := time.Now()
		article.PublishedAt = &now
	}

	if err := s.articles.Update(ctx, article); err != nil {
		return models.Article{}, err
	}
	return article, nil
}

func (s *ArticleService) Unpublish(ctx context.Context, id int64) (models.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return models.Article{}, err
	}

	article.Status = models.ArticleStatusDraft

	if err := s.articles.Update(ctx, article); err != nil {
		return models.Article{}, err
	}
	return article, nil
}

func (s *ArticleService) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "untitled"
	}

	candidate := base
	for n := 2; ; n++ {
		exists, err := s.articles.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *ArticleService) attachTags(ctx context.Context, article *models.Article, names []string) error {
	if names == nil {
		return nil
	}

	tags, err := s.tags.GetOrCreateByNames(ctx, names, slug.From)
	if err != nil {
		return err
	}

	tagIDs := make([]int64, 0, len(tags))
	for _, tag := range tags {
		tagIDs = append(tagIDs, tag.ID)
	}
	if err := s.articles.SetTags(ctx, article.ID, tagIDs); err != nil {
		return err
	}

	article.Tags = tags
	return nil
}
