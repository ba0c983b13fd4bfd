package models

import "time"

type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"
)

type Article struct {
	ID               int64
	Title            string
	Content          string
	Summary          *string
	Slug             string
	Status           ArticleStatus
	MetaDescription  *string
	FeaturedImageURL *string
	CategoryID       *int64
	IsPublic         bool
	PublishedAt      *time.Time
	ViewCount        int
	LikeCount        int
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Tags []Tag
}

func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished && a.IsPublic
}
