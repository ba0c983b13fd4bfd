package models

import "time"

type Tag struct {
	ID          int64
	Name        string
	Slug        string
	Description *string
	Color       *string
	Icon        *string
	IsActive    bool
	IsSystem    bool
	UsageCount  int
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
