package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/internal/database"
	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/security"
	"github.com/takuyakubo/knowledge-system/internal/slug"
)

// Integration tests run when KNOWLEDGE_TEST_DATABASE_URL points at a
// disposable Postgres database. Without it the suite skips.

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("KNOWLEDGE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("KNOWLEDGE_TEST_DATABASE_URL is not set; skipping Postgres integration test")
	}

	require.NoError(t, database.Migrate(dsn, zerolog.Nop()))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	t.Cleanup(pool.Close)
	return pool
}

func createTestUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool) models.User {
	t.Helper()

	users := repository.NewUserRepository(pool)
	tag := ksuid.New().String()
	user := models.User{
		Email:        "reader-" + tag + "@example.com",
		Username:     "reader-" + tag,
		PasswordHash: []byte("integration-test-hash"),
	}
	require.NoError(t, users.Create(ctx, &user))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, user.ID)
	})
	return user
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	users := repository.NewUserRepository(pool)

	user := createTestUser(ctx, t, pool)
	require.Positive(t, user.ID)
	require.True(t, user.IsActive)
	require.False(t, user.CreatedAt.IsZero())

	byEmail, err := users.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)

	byUsername, err := users.FindByUsername(ctx, user.Username)
	require.NoError(t, err)
	require.Equal(t, user.ID, byUsername.ID)

	_, err = users.GetByID(ctx, user.ID+1_000_000)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_DuplicateConstraints(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	users := repository.NewUserRepository(pool)

	user := createTestUser(ctx, t, pool)

	sameEmail := models.User{
		Email:        user.Email,
		Username:     "other-" + ksuid.New().String(),
		PasswordHash: []byte("integration-test-hash"),
	}
	err := users.Create(ctx, &sameEmail)
	require.ErrorIs(t, err, repository.ErrDuplicateEmail)

	sameUsername := models.User{
		Email:        "other-" + ksuid.New().String() + "@example.com",
		Username:     user.Username,
		PasswordHash: []byte("integration-test-hash"),
	}
	err = users.Create(ctx, &sameUsername)
	require.ErrorIs(t, err, repository.ErrDuplicateUsername)
}

func TestSessionRepository_RotateLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	sessions := repository.NewSessionRepository(pool)

	user := createTestUser(ctx, t, pool)

	token, hash, err := security.GenerateRefreshToken(0)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session := models.Session{
		ID:               ksuid.New().String(),
		UserID:           user.ID,
		RefreshTokenHash: hash,
		UserAgent:        "integration-test/1.0",
		IP:               "127.0.0.1",
		ExpiresAt:        time.Now().Add(time.Hour),
	}
	require.NoError(t, sessions.Create(ctx, session))

	found, err := sessions.FindByRefreshHash(ctx, security.HashRefreshToken(token))
	require.NoError(t, err)
	require.Equal(t, session.ID, found.ID)
	require.Equal(t, user.ID, found.UserID)

	nextToken, nextHash, err := security.GenerateRefreshToken(0)
	require.NoError(t, err)
	require.NoError(t, sessions.Rotate(ctx, session.ID, nextHash, time.Now().Add(2*time.Hour)))

	// The old token hash must stop resolving once rotated.
	_, err = sessions.FindByRefreshHash(ctx, security.HashRefreshToken(token))
	require.ErrorIs(t, err, repository.ErrSessionNotFound)

	rotated, err := sessions.FindByRefreshHash(ctx, security.HashRefreshToken(nextToken))
	require.NoError(t, err)
	require.Equal(t, session.ID, rotated.ID)

	require.NoError(t, sessions.DeleteByID(ctx, session.ID))
	_, err = sessions.GetByID(ctx, session.ID)
	require.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestSessionRepository_CapsPerUser(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	sessions := repository.NewSessionRepository(pool)

	user := createTestUser(ctx, t, pool)

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		_, hash, err := security.GenerateRefreshToken(0)
		require.NoError(t, err)
		id := ksuid.New().String()
		require.NoError(t, sessions.Create(ctx, models.Session{
			ID:               id,
			UserID:           user.ID,
			RefreshTokenHash: hash,
			UserAgent:        "integration-test/1.0",
			IP:               "127.0.0.1",
			ExpiresAt:        time.Now().Add(time.Hour),
		}))
		ids = append(ids, id)
	}

	count, err := sessions.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 4, count)

	require.NoError(t, sessions.DeleteOldestSessions(ctx, user.ID, 2))

	count, err = sessions.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// ksuid sorts by creation time, so the newest two survive.
	_, err = sessions.GetByID(ctx, ids[3])
	require.NoError(t, err)
	_, err = sessions.GetByID(ctx, ids[0])
	require.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestTagRepository_GetOrCreateByNames(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	tags := repository.NewTagRepository(pool)

	suffix := ksuid.New().String()[:8]
	names := []string{"Distributed Systems " + suffix, "Go " + suffix}

	created, err := tags.GetOrCreateByNames(ctx, names, slug.From)
	require.NoError(t, err)
	require.Len(t, created, 2)
	t.Cleanup(func() {
		for _, tag := range created {
			_, _ = pool.Exec(context.Background(), `DELETE FROM tags WHERE id = $1`, tag.ID)
		}
	})

	require.Equal(t, slug.From(names[0]), created[0].Slug)

	again, err := tags.GetOrCreateByNames(ctx, names, slug.From)
	require.NoError(t, err)
	require.Len(t, again, 2)
	require.Equal(t, created[0].ID, again[0].ID)
	require.Equal(t, created[1].ID, again[1].ID)
}
