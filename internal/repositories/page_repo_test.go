package repositories

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmarsh/sitesync/internal/database"
	"github.com/cmarsh/sitesync/internal/models"
)

// TestPageRepository_UpsertAndGet tests create, read, and replace
func TestPageRepository_UpsertAndGet(t *testing.T) {
	repo := NewSQLitePageRepository(getTestDB(t))
	ctx := context.Background()

	page := &models.Page{Slug: "home", Title: "Welcome", Body: "<h1>Hi</h1>"}
	require.NoError(t, repo.Upsert(ctx, page))
	assert.False(t, page.CreatedAt.IsZero())
	assert.Nil(t, page.UpdatedAt, "fresh insert has no updated_at")

	got, err := repo.GetBySlug(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", got.Title)

	// ACT: replace content under the same slug
	page.Body = "<h1>Hello</h1>"
	require.NoError(t, repo.Upsert(ctx, page))

	// ASSERT: body replaced, updated_at stamped
	got, err = repo.GetBySlug(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hello</h1>", got.Body)
	assert.NotNil(t, got.UpdatedAt)
}

func TestPageRepository_GetMissing(t *testing.T) {
	repo := NewSQLitePageRepository(getTestDB(t))

	_, err := repo.GetBySlug(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrNotFound)
}

// TestPageRepository_ListOrdering tests slug-ordered listing
func TestPageRepository_ListOrdering(t *testing.T) {
	repo := NewSQLitePageRepository(getTestDB(t))
	ctx := context.Background()

	for _, slug := range []string{"services", "about", "contact"} {
		require.NoError(t, repo.Upsert(ctx, &models.Page{Slug: slug, Title: slug, Body: ""}))
	}

	pages, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "about", pages[0].Slug)
	assert.Equal(t, "contact", pages[1].Slug)
	assert.Equal(t, "services", pages[2].Slug)
}

func TestPageRepository_Delete(t *testing.T) {
	repo := NewSQLitePageRepository(getTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Page{Slug: "gone", Title: "x", Body: ""}))
	require.NoError(t, repo.Delete(ctx, "gone"))

	_, err := repo.GetBySlug(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "gone"), ErrNotFound)
}

// Helper: open a throwaway content database
func getTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "site.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
