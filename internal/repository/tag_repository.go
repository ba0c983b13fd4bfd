package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takuyakubo/knowledge-system/internal/models"
)

var (
	ErrTagNotFound  = errors.New("tag not found")
	ErrDuplicateTag = errors.New("tag already exists")
	ErrTagInUse     = errors.New("tag is still in use")
)

const tagColumns = `
	id, name, slug, description, color, icon, is_active, is_system,
	usage_count, sort_order, created_at, updated_at
`

type TagRepository struct {
	pool *pgxpool.Pool
}

func NewTagRepository(pool *pgxpool.Pool) *TagRepository {
	return &TagRepository{pool: pool}
}

func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	const query = `
		INSERT INTO tags (name, slug, description, color, icon, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		tag.Name, tag.Slug, tag.Description, tag.Color, tag.Icon, tag.SortOrder,
	).Scan(&tag.ID, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateTag
		}
		return err
	}
	tag.IsActive = true
	return nil
}

func (r *TagRepository) GetByID(ctx context.Context, id int64) (models.Tag, error) {
	const query = `SELECT ` + tagColumns + ` FROM tags WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *TagRepository) GetBySlug(ctx context.Context, slug string) (models.Tag, error) {
	const query = `SELECT ` + tagColumns + ` FROM tags WHERE slug = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, slug))
}

func (r *TagRepository) GetByName(ctx context.Context, name string) (models.Tag, error) {
	const query = `SELECT ` + tagColumns + ` FROM tags WHERE name = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, name))
}

func (r *TagRepository) List(ctx context.Context, activeOnly bool, search string) ([]models.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE 1=1`
	args := []any{}
	idx := 1

	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	if search != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY sort_order, name`

	return r.queryMany(ctx, query, args...)
}

func (r *TagRepository) ListPopular(ctx context.Context, limit int) ([]models.Tag, error) {
	const query = `
		SELECT ` + tagColumns + `
		FROM tags
		WHERE is_active = TRUE AND usage_count > 0
		ORDER BY usage_count DESC
		LIMIT $1
	`
	return r.queryMany(ctx, query, limit)
}

func (r *TagRepository) ListUnused(ctx context.Context) ([]models.Tag, error) {
	const query = `
		SELECT ` + tagColumns + `
		FROM tags
		WHERE usage_count = 0 AND is_system = FALSE
		ORDER BY name
	`
	return r.queryMany(ctx, query)
}

// GetOrCreateByNames resolves each name to a tag, creating missing ones.
// Used by article and paper writes that attach tags by name.
func (r *TagRepository) GetOrCreateByNames(ctx context.Context, names []string, slugify func(string) string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}

		tag, err := r.GetByName(ctx, name)
		if err == nil {
			tags = append(tags, tag)
			continue
		}
		if !errors.Is(err, ErrTagNotFound) {
			return nil, err
		}

		tag = models.Tag{Name: name, Slug: slugify(name)}
		if err := r.Create(ctx, &tag); err != nil {
			if errors.Is(err, ErrDuplicateTag) {
				// Lost a create race; fetch the winner.
				tag, err = r.GetByName(ctx, name)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (r *TagRepository) Update(ctx context.Context, tag models.Tag) error {
	const query = `
		UPDATE tags
		SET name = $2, slug = $3, description = $4, color = $5, icon = $6,
		    sort_order = $7, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		tag.ID, tag.Name, tag.Slug, tag.Description, tag.Color, tag.Icon, tag.SortOrder,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateTag
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *TagRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE tags SET is_active = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *TagRepository) Delete(ctx context.Context, id int64) error {
	const usage = `SELECT usage_count FROM tags WHERE id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, usage, id).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTagNotFound
		}
		return err
	}
	if count > 0 {
		return ErrTagInUse
	}

	const query = `DELETE FROM tags WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *TagRepository) queryMany(ctx context.Context, query string, args ...any) ([]models.Tag, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(
			&tag.ID, &tag.Name, &tag.Slug, &tag.Description, &tag.Color, &tag.Icon,
			&tag.IsActive, &tag.IsSystem, &tag.UsageCount, &tag.SortOrder,
			&tag.CreatedAt, &tag.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *TagRepository) scanOne(row pgx.Row) (models.Tag, error) {
	var tag models.Tag
	if err := row.Scan(
		&tag.ID, &tag.Name, &tag.Slug, &tag.Description, &tag.Color, &tag.Icon,
		&tag.IsActive, &tag.IsSystem, &tag.UsageCount, &tag.SortOrder,
		&tag.CreatedAt, &tag.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tag{}, ErrTagNotFound
		}
		return models.Tag{}, err
	}
	return tag, nil
}
