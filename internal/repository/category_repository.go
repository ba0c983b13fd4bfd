package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takuyakubo/knowledge-system/internal/models"
)

var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrCategoryNotEmpty  = errors.New("category still has children or content")
	ErrCategoryCycle     = errors.New("category cannot be moved under its own subtree")
)

const categoryColumns = `
	id, name, slug, description, parent_id, level, path, color, icon,
	is_active, is_system, sort_order, article_count, paper_count,
	meta_title, meta_description, created_at, updated_at
`

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create derives path and level from the parent before inserting.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ParentID != nil {
		parent, err := r.GetByID(ctx, *category.ParentID)
		if err != nil {
			return err
		}
		category.Level = parent.Level + 1
		category.Path = parent.Path + "/" + category.Slug
	} else {
		category.Level = 0
		category.Path = "/" + category.Slug
	}

	const query = `
		INSERT INTO categories (
			name, slug, description, parent_id, level, path, color, icon,
			sort_order, meta_title, meta_description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		category.Name, category.Slug, category.Description, category.ParentID,
		category.Level, category.Path, category.Color, category.Icon,
		category.SortOrder, category.MetaTitle, category.MetaDescription,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateCategory
		}
		return err
	}
	category.IsActive = true
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (models.Category, error) {
	const query = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (models.Category, error) {
	const query = `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, slug))
}

func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY path`
	return r.queryMany(ctx, query)
}

func (r *CategoryRepository) ListRoots(ctx context.Context) ([]models.Category, error) {
	const query = `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE parent_id IS NULL
		ORDER BY sort_order, name
	`
	return r.queryMany(ctx, query)
}

func (r *CategoryRepository) ListChildren(ctx context.Context, parentID int64) ([]models.Category, error) {
	const query = `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE parent_id = $1
		ORDER BY sort_order, name
	`
	return r.queryMany(ctx, query, parentID)
}

// Tree returns all categories assembled into root-anchored trees,
// ordered by path so parents always precede their children.
func (r *CategoryRepository) Tree(ctx context.Context, activeOnly bool) ([]*models.Category, error) {
	flat, err := r.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Category, len(flat))
	var roots []*models.Category
	for i := range flat {
		node := &flat[i]
		byID[node.ID] = node
	}
	for i := range flat {
		node := &flat[i]
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := byID[*node.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category models.Category) error {
	const query = `
		UPDATE categories
		SET name = $2, description = $3, color = $4, icon = $5, is_active = $6,
		    sort_order = $7, meta_title = $8, meta_description = $9, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		category.ID, category.Name, category.Description, category.Color,
		category.Icon, category.IsActive, category.SortOrder,
		category.MetaTitle, category.MetaDescription,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// Move re-parents a category and rewrites path and level for its whole
// subtree in one transaction.
func (r *CategoryRepository) Move(ctx context.Context, id int64, newParentID *int64) error {
	category, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	newLevel := 0
	newPath := "/" + category.Slug
	if newParentID != nil {
		if *newParentID == id {
			return ErrCategoryCycle
		}
		parent, err := r.GetByID(ctx, *newParentID)
		if err != nil {
			return err
		}
		if parent.Path == category.Path || len(parent.Path) > len(category.Path) && parent.Path[:len(category.Path)+1] == category.Path+"/" {
			return ErrCategoryCycle
		}
		newLevel = parent.Level + 1
		newPath = parent.Path + "/" + category.Slug
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const moveSelf = `
		UPDATE categories
		SET parent_id = $2, path = $3, level = $4, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, moveSelf, id, newParentID, newPath, newLevel); err != nil {
		return err
	}

	const moveSubtree = `
		UPDATE categories
		SET path = $2 || substring(path FROM char_length($1) + 1),
		    level = level + $3,
		    updated_at = NOW()
		WHERE path LIKE $1 || '/%'
	`
	if _, err := tx.Exec(ctx, moveSubtree, category.Path, newPath, newLevel-category.Level); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	const inUse = `
		SELECT EXISTS (SELECT 1 FROM categories WHERE parent_id = $1)
		    OR EXISTS (SELECT 1 FROM articles WHERE category_id = $1)
		    OR EXISTS (SELECT 1 FROM papers WHERE category_id = $1)
	`
	var blocked bool
	if err := r.pool.QueryRow(ctx, inUse, id).Scan(&blocked); err != nil {
		return err
	}
	if blocked {
		return ErrCategoryNotEmpty
	}

	const query = `DELETE FROM categories WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// RefreshCounts recomputes the denormalized article and paper counters.
// Run by the maintenance worker.
func (r *CategoryRepository) RefreshCounts(ctx context.Context) error {
	const query = `
		UPDATE categories c
		SET article_count = (SELECT COUNT(*) FROM articles a WHERE a.category_id = c.id),
		    paper_count   = (SELECT COUNT(*) FROM papers p WHERE p.category_id = c.id)
	`
	_, err := r.pool.Exec(ctx, query)
	return err
}

func (r *CategoryRepository) queryMany(ctx context.Context, query string, args ...any) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		category, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) scanOne(row pgx.Row) (models.Category, error) {
	category, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Category{}, ErrCategoryNotFound
		}
		return models.Category{}, err
	}
	return category, nil
}

func (r *CategoryRepository) scanRow(row pgx.Row) (models.Category, error) {
	var category models.Category
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.ParentID,
		&category.Level,
		&category.Path,
		&category.Color,
		&category.Icon,
		&category.IsActive,
		&category.IsSystem,
		&category.SortOrder,
		&category.ArticleCount,
		&category.PaperCount,
		&category.MetaTitle,
		&category.MetaDescription,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	return category, err
}
