package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cmarsh/sitesync/internal/models"
)

type SQLitePageRepository struct {
	db *sql.DB
}

func NewSQLitePageRepository(db *sql.DB) *SQLitePageRepository {
	return &SQLitePageRepository{db: db}
}

func (r *SQLitePageRepository) GetBySlug(ctx context.Context, slug string) (*models.Page, error) {
	query := `SELECT slug, title, body, created_at, updated_at
	          FROM pages
	          WHERE slug = ?`

	var page models.Page
	err := r.db.QueryRowContext(ctx, query, slug).Scan(
		&page.Slug,
		&page.Title,
		&page.Body,
		&page.CreatedAt,
		&page.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page by slug: %w", err)
	}
	return &page, nil
}

func (r *SQLitePageRepository) List(ctx context.Context) ([]*models.Page, error) {
	query := `SELECT slug, title, body, created_at, updated_at
	          FROM pages
	          ORDER BY slug ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		var page models.Page
		err := rows.Scan(
			&page.Slug,
			&page.Title,
			&page.Body,
			&page.CreatedAt,
			&page.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, &page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}

	return pages, nil
}

// Upsert creates the page or replaces its content, bumping updated_at on
// replace only.
func (r *SQLitePageRepository) Upsert(ctx context.Context, page *models.Page) error {
	query := `INSERT INTO pages (slug, title, body)
	          VALUES (?, ?, ?)
	          ON CONFLICT(slug) DO UPDATE SET
	              title = excluded.title,
	              body = excluded.body,
	              updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query, page.Slug, page.Title, page.Body); err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}

	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM pages WHERE slug = ?`, page.Slug,
	).Scan(&page.CreatedAt, &page.UpdatedAt)
}

func (r *SQLitePageRepository) Delete(ctx context.Context, slug string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
