package models_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/internal/models"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestUserDisplayName(t *testing.T) {
	u := models.User{Username: "reader"}
	require.Equal(t, "reader", u.DisplayName())

	u.FullName = strPtr("")
	require.Equal(t, "reader", u.DisplayName())

	u.FullName = strPtr("Alex Reader")
	require.Equal(t, "Alex Reader", u.DisplayName())
}

func TestArticleIsPublished(t *testing.T) {
	a := models.Article{Status: models.ArticleStatusDraft, IsPublic: true}
	require.False(t, a.IsPublished())

	a.Status = models.ArticleStatusPublished
	require.True(t, a.IsPublished())

	a.IsPublic = false
	require.False(t, a.IsPublished())
}

func TestFileIsOrphaned(t *testing.T) {
	f := models.File{}
	require.True(t, f.IsOrphaned())

	f.ArticleID = int64Ptr(1)
	require.False(t, f.IsOrphaned())

	f.ArticleID = nil
	f.PaperID = int64Ptr(2)
	require.False(t, f.IsOrphaned())
}
