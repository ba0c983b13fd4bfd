package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takuyakubo/knowledge-system/internal/models"
)

var ErrFileNotFound = errors.New("file not found")

const fileColumns = `
	id, filename, original_filename, object_key, size_bytes, mime_type,
	extension, sha256, file_type, description, alt_text, article_id,
	paper_id, is_public, download_count, created_at, updated_at
`

type FileFilter struct {
	FileType  models.FileType
	ArticleID *int64
	PaperID   *int64
	Orphaned  bool
}

type FileRepository struct {
	pool *pgxpool.Pool
}

func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	const query = `
		INSERT INTO files (
			filename, original_filename, object_key, size_bytes, mime_type,
			extension, sha256, file_type, description, alt_text, article_id,
			paper_id, is_public
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	return r.pool.QueryRow(ctx, query,
		file.Filename, file.OriginalFilename, file.ObjectKey, file.SizeBytes,
		file.MimeType, file.Extension, file.SHA256, file.FileType,
		file.Description, file.AltText, file.ArticleID, file.PaperID, file.IsPublic,
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)
}

func (r *FileRepository) GetByID(ctx context.Context, id int64) (models.File, error) {
	const query = `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// FindBySHA256 backs content dedup: identical bytes reuse the stored object.
func (r *FileRepository) FindBySHA256(ctx context.Context, sum string) (models.File, error) {
	const query = `SELECT ` + fileColumns + ` FROM files WHERE sha256 = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, sum))
}

func (r *FileRepository) List(ctx context.Context, filter FileFilter) ([]models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE 1=1`
	args := []any{}
	idx := 1

	if filter.FileType != "" {
		query += fmt.Sprintf(` AND file_type = $%d`, idx)
		args = append(args, filter.FileType)
		idx++
	}
	if filter.ArticleID != nil {
		query += fmt.Sprintf(` AND article_id = $%d`, idx)
		args = append(args, *filter.ArticleID)
		idx++
	}
	if filter.PaperID != nil {
		query += fmt.Sprintf(` AND paper_id = $%d`, idx)
		args = append(args, *filter.PaperID)
		idx++
	}
	if filter.Orphaned {
		query += ` AND article_id IS NULL AND paper_id IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		file, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// ListOrphanedBefore returns unattached files created before the cutoff,
// the cleanup task's candidates.
func (r *FileRepository) ListOrphanedBefore(ctx context.Context, cutoff time.Time) ([]models.File, error) {
	const query = `
		SELECT ` + fileColumns + `
		FROM files
		WHERE article_id IS NULL AND paper_id IS NULL AND created_at < $1
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		file, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (r *FileRepository) AssociateArticle(ctx context.Context, id int64, articleID int64) error {
	const query = `
		UPDATE files SET article_id = $2, paper_id = NULL, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, articleID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) AssociatePaper(ctx context.Context, id int64, paperID int64) error {
	const query = `
		UPDATE files SET paper_id = $2, article_id = NULL, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, paperID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) ClearAssociations(ctx context.Context, id int64) error {
	const query = `
		UPDATE files SET article_id = NULL, paper_id = NULL, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) IncrementDownloads(ctx context.Context, id int64) error {
	const query = `UPDATE files SET download_count = download_count + 1 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM files WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) scanOne(row pgx.Row) (models.File, error) {
	file, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.File{}, ErrFileNotFound
		}
		return models.File{}, err
	}
	return file, nil
}

func (r *FileRepository) scanRow(row pgx.Row) (models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.Filename,
		&file.OriginalFilename,
		&file.ObjectKey,
		&file.SizeBytes,
		&file.MimeType,
		&file.Extension,
		&file.SHA256,
		&file.FileType,
		&file.Description,
		&file.AltText,
		&file.ArticleID,
		&file.PaperID,
		&file.IsPublic,
		&file.DownloadCount,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	return file, err
}
