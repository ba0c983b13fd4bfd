package models

import "time"

type Category struct {
	ID              int64
	Name            string
	Slug            string
	Description     *string
	ParentID        *int64
	Level           int
	Path            string
	Color           *string
	Icon            *string
	IsActive        bool
	IsSystem        bool
	SortOrder       int
	ArticleCount    int
	PaperCount      int
	MetaTitle       *string
	MetaDescription *string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Children []*Category
}
