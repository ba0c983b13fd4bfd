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
	ErrPaperNotFound  = errors.New("paper not found")
	ErrDuplicatePaper = errors.New("paper with this identifier already exists")
)

const paperColumns = `
	id, title, abstract, authors, journal, conference, publisher,
	publication_year, publication_date, volume, issue, pages,
	doi, arxiv_id, pmid, isbn, url, pdf_url, language, paper_type,
	personal_notes, rating, reading_status, priority, is_favorite,
	citation_count, read_at, category_id, created_at, updated_at
`

type PaperFilter struct {
	Skip          int
	Limit         int
	Search        string
	CategoryID    *int64
	ReadingStatus models.ReadingStatus
	FavoritesOnly bool
	Year          *int
}

type PaperRepository struct {
	pool *pgxpool.Pool
}

func NewPaperRepository(pool *pgxpool.Pool) *PaperRepository {
	return &PaperRepository{pool: pool}
}

func (r *PaperRepository) Create(ctx context.Context, paper *models.Paper) error {
	const query = `
		INSERT INTO papers (
			title, abstract, authors, journal, conference, publisher,
			publication_year, publication_date, volume, issue, pages,
			doi, arxiv_id, pmid, isbn, url, pdf_url, language, paper_type,
			personal_notes, rating, reading_status, priority, is_favorite, category_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		paper.Title, paper.Abstract, paper.Authors, paper.Journal, paper.Conference,
		paper.Publisher, paper.PublicationYear, paper.PublicationDate, paper.Volume,
		paper.Issue, paper.Pages, paper.DOI, paper.ArxivID, paper.PMID, paper.ISBN,
		paper.URL, paper.PDFURL, paper.Language, paper.PaperType, paper.PersonalNotes,
		paper.Rating, paper.ReadingStatus, paper.Priority, paper.IsFavorite, paper.CategoryID,
	).Scan(&paper.ID, &paper.CreatedAt, &paper.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicatePaper
		}
		return err
	}
	return nil
}

func (r *PaperRepository) GetByID(ctx context.Context, id int64) (models.Paper, error) {
	const query = `SELECT ` + paperColumns + ` FROM papers WHERE id = $1`
	paper, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return models.Paper{}, err
	}
	return r.withTags(ctx, paper)
}

func (r *PaperRepository) GetByDOI(ctx context.Context, doi string) (models.Paper, error) {
	const query = `SELECT ` + paperColumns + ` FROM papers WHERE doi = $1`
	paper, err := r.scanOne(r.pool.QueryRow(ctx, query, doi))
	if err != nil {
		return models.Paper{}, err
	}
	return r.withTags(ctx, paper)
}

func (r *PaperRepository) GetByArxivID(ctx context.Context, arxivID string) (models.Paper, error) {
	const query = `SELECT ` + paperColumns + ` FROM papers WHERE arxiv_id = $1`
	paper, err := r.scanOne(r.pool.QueryRow(ctx, query, arxivID))
	if err != nil {
		return models.Paper{}, err
	}
	return r.withTags(ctx, paper)
}

func (r *PaperRepository) List(ctx context.Context, filter PaperFilter) ([]models.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE 1=1`
	args := []any{}
	idx := 1

	if filter.Search != "" {
		query += fmt.Sprintf(` AND (title ILIKE $%d OR authors ILIKE $%d OR abstract ILIKE $%d)`, idx, idx, idx)
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	if filter.CategoryID != nil {
		query += fmt.Sprintf(` AND category_id = $%d`, idx)
		args = append(args, *filter.CategoryID)
		idx++
	}
	if filter.ReadingStatus != "" {
		query += fmt.Sprintf(` AND reading_status = $%d`, idx)
		args = append(args, filter.ReadingStatus)
		idx++
	}
	if filter.FavoritesOnly {
		query += ` AND is_favorite = TRUE`
	}
	if filter.Year != nil {
		query += fmt.Sprintf(` AND publication_year = $%d`, idx)
		args = append(args, *filter.Year)
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

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []models.Paper
	for rows.Next() {
		paper, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, paper)
	}
	return papers, rows.Err()
}

func (r *PaperRepository) Update(ctx context.Context, paper models.Paper) error {
	const query = `
		UPDATE papers
		SET title = $2, abstract = $3, authors = $4, journal = $5, conference = $6,
		    publisher = $7, publication_year = $8, publication_date = $9, volume = $10,
		    issue = $11, pages = $12, doi = $13, arxiv_id = $14, pmid = $15, isbn = $16,
		    url = $17, pdf_url = $18, language = $19, paper_type = $20,
		    personal_notes = $21, rating = $22, reading_status = $23, priority = $24,
		    is_favorite = $25, read_at = $26, category_id = $27, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		paper.ID, paper.Title, paper.Abstract, paper.Authors, paper.Journal,
		paper.Conference, paper.Publisher, paper.PublicationYear, paper.PublicationDate,
		paper.Volume, paper.Issue, paper.Pages, paper.DOI, paper.ArxivID, paper.PMID,
		paper.ISBN, paper.URL, paper.PDFURL, paper.Language, paper.PaperType,
		paper.PersonalNotes, paper.Rating, paper.ReadingStatus, paper.Priority,
		paper.IsFavorite, paper.ReadAt, paper.CategoryID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicatePaper
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPaperNotFound
	}
	return nil
}

func (r *PaperRepository) SetRating(ctx context.Context, id int64, rating int) error {
	const query = `UPDATE papers SET rating = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, rating)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPaperNotFound
	}
	return nil
}

// SetReadingStatus updates the status and stamps read_at when a paper
// reaches completed.
func (r *PaperRepository) SetReadingStatus(ctx context.Context, id int64, status models.ReadingStatus) error {
	const query = `
		UPDATE papers
		SET reading_status = $2,
		    read_at = CASE WHEN $2 = 'completed' THEN NOW() ELSE read_at END,
		    updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPaperNotFound
	}
	return nil
}

func (r *PaperRepository) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	const query = `
		UPDATE papers SET is_favorite = NOT is_favorite, updated_at = NOW()
		WHERE id = $1
		RETURNING is_favorite
	`
	var favorite bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&favorite); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrPaperNotFound
		}
		return false, err
	}
	return favorite, nil
}

func (r *PaperRepository) IncrementCitations(ctx context.Context, id int64) (int, error) {
	const query = `
		UPDATE papers SET citation_count = citation_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING citation_count
	`
	var citations int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&citations); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPaperNotFound
		}
		return 0, err
	}
	return citations, nil
}

func (r *PaperRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM papers WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPaperNotFound
	}
	return nil
}

func (r *PaperRepository) SetTags(ctx context.Context, paperID int64, tagIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const decrement = `
		UPDATE tags SET usage_count = GREATEST(usage_count - 1, 0)
		WHERE id IN (SELECT tag_id FROM paper_tags WHERE paper_id = $1)
	`
	if _, err := tx.Exec(ctx, decrement, paperID); err != nil {
		return err
	}

	const clear = `DELETE FROM paper_tags WHERE paper_id = $1`
	if _, err := tx.Exec(ctx, clear, paperID); err != nil {
		return err
	}

	const insert = `INSERT INTO paper_tags (paper_id, tag_id) VALUES ($1, $2)`
	const increment = `UPDATE tags SET usage_count = usage_count + 1 WHERE id = $1`
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(ctx, insert, paperID, tagID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, increment, tagID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PaperRepository) withTags(ctx context.Context, paper models.Paper) (models.Paper, error) {
	const query = `
		SELECT t.id, t.name, t.slug, t.description, t.color, t.icon,
		       t.is_active, t.is_system, t.usage_count, t.sort_order,
		       t.created_at, t.updated_at
		FROM tags t
		JOIN paper_tags pt ON pt.tag_id = t.id
		WHERE pt.paper_id = $1
		ORDER BY t.name
	`

	rows, err := r.pool.Query(ctx, query, paper.ID)
	if err != nil {
		return models.Paper{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(
			&tag.ID, &tag.Name, &tag.Slug, &tag.Description, &tag.Color, &tag.Icon,
			&tag.IsActive, &tag.IsSystem, &tag.UsageCount, &tag.SortOrder,
			&tag.CreatedAt, &tag.UpdatedAt,
		); err != nil {
			return models.Paper{}, err
		}
		paper.Tags = append(paper.Tags, tag)
	}
	return paper, rows.Err()
}

func (r *PaperRepository) scanOne(row pgx.Row) (models.Paper, error) {
	paper, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Paper{}, ErrPaperNotFound
		}
		return models.Paper{}, err
	}
	return paper, nil
}

func (r *PaperRepository) scanRow(row pgx.Row) (models.Paper, error) {
	var paper models.Paper
	err := row.Scan(
		&paper.ID,
		&paper.Title,
		&paper.Abstract,
		&paper.Authors,
		&paper.Journal,
		&paper.Conference,
		&paper.Publisher,
		&paper.PublicationYear,
		&paper.PublicationDate,
		&paper.Volume,
		&paper.Issue,
		&paper.Pages,
		&paper.DOI,
		&paper.ArxivID,
		&paper.PMID,
		&paper.ISBN,
		&paper.URL,
		&paper.PDFURL,
		&paper.Language,
		&paper.PaperType,
		&paper.PersonalNotes,
		&paper.Rating,
		&paper.ReadingStatus,
		&paper.Priority,
		&paper.IsFavorite,
		&paper.CitationCount,
		&paper.ReadAt,
		&paper.CategoryID,
		&paper.CreatedAt,
		&paper.UpdatedAt,
	)
	return paper, err
}
