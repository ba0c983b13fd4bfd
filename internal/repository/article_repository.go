package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takuyakubo/knowledge-system/internal/models"
)

var ErrArticleNotFound = errors.New("article not found")

const articleColumns = `
	id, title, content, summary, slug, status, meta_description, featured_image_url,
	category_id, is_public, published_at, view_count, like_count, created_at, updated_at
`

type ArticleFilter struct {
	Skip          int
	Limit         int
	PublishedOnly bool
	CategoryID    *int64
	Search        string
}

type ArticleRepository struct {
	pool *pgxpool.Pool
}

func NewArticleRepository(pool *pgxpool.Pool) *ArticleRepository {
	return &ArticleRepository{pool: pool}
}

func (r *ArticleRepository) Create(ctx context.Context, article *models.Article) error {
	const query = `
		INSERT INTO articles (
			title, content, summary, slug, status, meta_description,
			featured_image_url, category_id, is_public, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	return r.pool.QueryRow(ctx, query,
		article.Title,
		article.Content,
		article.Summary,
		article.Slug,
		article.Status,
		article.MetaDescription,
		article.FeaturedImageURL,
		article.CategoryID,
		article.IsPublic,
		article.PublishedAt,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
}

func (r *ArticleRepository) GetByID(ctx context.Context, id int64) (models.Article, error) {
	const query = `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	article, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return models.Article{}, err
	}
	return r.withTags(ctx, article)
}

func (r *ArticleRepository) GetBySlug(ctx context.Context, slug string) (models.Article, error) {
	const query = `SELECT ` + articleColumns + ` FROM articles WHERE slug = $1`
	article, err := r.scanOne(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		return models.Article{}, err
	}
	return r.withTags(ctx, article)
}

func (r *ArticleRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE slug = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, slug).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ArticleRepository) List(ctx context.Context, filter ArticleFilter) ([]models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE 1=1`
	args := []any{}
	idx := 1

	if filter.PublishedOnly {
		query += ` AND status = 'published' AND is_public = TRUE`
	}
	if filter.CategoryID != nil {
		query += fmt.Sprintf(` AND category_id = $%d`, idx)
		args = append(args, *filter.CategoryID)
		idx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (title ILIKE $%d OR content ILIKE $%d OR summary ILIKE $%d)`, idx, idx, idx)
		args = append(args, "%"+filter.Search+"%")
		idx++
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, idx)
		args = append(args, filter.Limit)
		idx++
	}
	if filter.Skip > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, idx)
		args = append(args, filter.Skip)
	}

	return r.queryMany(ctx, query, args...)
}

func (r *ArticleRepository) ListPopular(ctx context.Context, limit int) ([]models.Article, error) {
	const query = `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE status = 'published' AND is_public = TRUE
		ORDER BY view_count DESC
		LIMIT $1
	`
	return r.queryMany(ctx, query, limit)
}

func (r *ArticleRepository) ListRecent(ctx context.Context, limit int) ([]models.Article, error) {
	const query = `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE status = 'published' AND is_public = TRUE
		ORDER BY published_at DESC NULLS LAST
		LIMIT $1
	`
	return r.queryMany(ctx, query, limit)
}

func (r *ArticleRepository) Update(ctx context.Context, article models.Article) error {
	const query = `
		UPDATE articles
		SET title = $2, content = $3, summary = $4, slug = $5, status = $6,
		    meta_description = $7, featured_image_url = $8, category_id = $9,
		    is_public = $10, published_at = $11, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		article.ID,
		article.Title,
		article.Content,
		article.Summary,
		article.Slug,
		article.Status,
		article.MetaDescription,
		article.FeaturedImageURL,
		article.CategoryID,
		article.IsPublic,
		article.PublishedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (r *ArticleRepository) IncrementViews(ctx context.Context, id int64) error {
	const query = `UPDATE articles SET view_count = view_count + 1 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *ArticleRepository) IncrementLikes(ctx context.Context, id int64) (int, error) {
	const query = `
		UPDATE articles SET like_count = like_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING like_count
	`
	var likes int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&likes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrArticleNotFound
		}
		return 0, err
	}
	return likes, nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM articles WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrArticleNotFound
	}
	return nil
}

// SetTags replaces the article's tag set and keeps tag usage counters in
// step, all inside one transaction.
func (r *ArticleRepository) SetTags(ctx context.Context, articleID int64, tagIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const decrement = `
		UPDATE tags SET usage_count = GREATEST(usage_count - 1, 0)
		WHERE id IN (SELECT tag_id FROM article_tags WHERE article_id = $1)
	`
	if _, err := tx.Exec(ctx, decrement, articleID); err != nil {
		return err
	}

	const clear = `DELETE FROM article_tags WHERE article_id = $1`
	if _, err := tx.Exec(ctx, clear, articleID); err != nil {
		return err
	}

	const insert = `INSERT INTO article_tags (article_id, tag_id) VALUES ($1, $2)`
	const increment = `UPDATE tags SET usage_count = usage_count + 1 WHERE id = $1`
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(ctx, insert, articleID, tagID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, increment, tagID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ArticleRepository) withTags(ctx context.Context, article models.Article) (models.Article, error) {
	const query = `
		SELECT t.id, t.name, t.slug, t.description, t.color, t.icon,
		       t.is_active, t.is_system, t.usage_count, t.sort_order,
		       t.created_at, t.updated_at
		FROM tags t
		JOIN article_tags at ON at.tag_id = t.id
		WHERE at.article_id = $1
		ORDER BY t.name
	`

	rows, err := r.pool.Query(ctx, query, article.ID)
	if err != nil {
		return models.Article{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(
			&tag.ID, &tag.Name, &tag.Slug, &tag.Description, &tag.Color, &tag.Icon,
			&tag.IsActive, &tag.IsSystem, &tag.UsageCount, &tag.SortOrder,
			&tag.CreatedAt, &tag.UpdatedAt,
		); err != nil {
			return models.Article{}, err
		}
		article.Tags = append(article.Tags, tag)
	}
	return article, rows.Err()
}

func (r *ArticleRepository) queryMany(ctx context.Context, query string, args ...any) ([]models.Article, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		article, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (r *ArticleRepository) scanOne(row pgx.Row) (models.Article, error) {
	article, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Article{}, ErrArticleNotFound
		}
		return models.Article{}, err
	}
	return article, nil
}

func (r *ArticleRepository) scanRow(row pgx.Row) (models.Article, error) {
	var article models.Article
	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Content,
		&article.Summary,
		&article.Slug,
		&article.Status,
		&article.MetaDescription,
		&article.FeaturedImageURL,
		&article.CategoryID,
		&article.IsPublic,
		&article.PublishedAt,
		&article.ViewCount,
		&article.LikeCount,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	return article, err
}
