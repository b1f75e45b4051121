package repository_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecturehub/backend-go/internal/database/models"
	"github.com/lecturehub/backend-go/internal/database/repository"
	"github.com/lecturehub/backend-go/internal/testutil"
)

func createToken(t *testing.T, repo repository.RefreshTokenRepository, userID uint, hash string, expiresAt time.Time) *models.RefreshToken {
	t.Helper()
	tok := &models.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	}
	require.NoError(t, repo.Create(tok))
	return tok
}

func TestRefreshTokenRepository_RevokeIfValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		want      int64
	}{
		{
			name:      "active and unexpired",
			expiresAt: now.Add(time.Hour),
			want:      1,
		},
		{
			name:      "already expired",
			expiresAt: now.Add(-time.Hour),
			want:      0,
		},
		{
			name: "expiry exactly now is expired",
			// expires_at > now must be strict: the boundary row is not consumable
			expiresAt: now,
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))
			createToken(t, repo, 1, "hash-under-test", tt.expiresAt)

			updated, err := repo.RevokeIfValid("hash-under-test", now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, updated)
		})
	}
}

func TestRefreshTokenRepository_RevokeIfValid_SecondCallLoses(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))
	createToken(t, repo, 1, "hash-1", time.Now().Add(time.Hour))

	updated, err := repo.RevokeIfValid("hash-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	// Idempotent: repeated calls affect zero rows and never error
	updated, err = repo.RevokeIfValid("hash-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)
}

func TestRefreshTokenRepository_RevokeIfValid_UnknownHash(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))

	updated, err := repo.RevokeIfValid("never-registered", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)
}

func TestRefreshTokenRepository_RevokeIfValid_ConcurrentCallers(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))
	createToken(t, repo, 1, "contested-hash", time.Now().Add(time.Hour))

	const callers = 20
	var winners atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			updated, err := repo.RevokeIfValid("contested-hash", time.Now())
			assert.NoError(t, err)
			winners.Add(updated)
		}()
	}
	wg.Wait()

	// The conditional update totally orders the race: exactly one winner
	assert.Equal(t, int64(1), winners.Load())
}

func TestRefreshTokenRepository_RevokeIfActive(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))

	// Logout must close out even an expired token
	createToken(t, repo, 1, "expired-hash", time.Now().Add(-time.Hour))

	updated, err := repo.RevokeIfActive("expired-hash")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	updated, err = repo.RevokeIfActive("expired-hash")
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)
}

func TestRefreshTokenRepository_RevokeAllActiveForUser(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))

	createToken(t, repo, 1, "u1-a", time.Now().Add(time.Hour))
	createToken(t, repo, 1, "u1-b", time.Now().Add(time.Hour))
	revokedAlready := createToken(t, repo, 1, "u1-c", time.Now().Add(time.Hour))
	createToken(t, repo, 2, "u2-a", time.Now().Add(time.Hour))

	_, err := repo.RevokeIfActive(revokedAlready.TokenHash)
	require.NoError(t, err)

	revoked, err := repo.RevokeAllActiveForUser(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), revoked)

	// Other users' sessions are untouched
	otherUser, err := repo.FindByHash("u2-a")
	require.NoError(t, err)
	assert.False(t, otherUser.Revoked)
}

func TestRefreshTokenRepository_FindByHash(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))
	created := createToken(t, repo, 7, "findable", time.Now().Add(time.Hour))

	found, err := repo.FindByHash("findable")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, uint(7), found.UserID)
	assert.False(t, found.Revoked)

	_, err = repo.FindByHash("missing")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
}

func TestRefreshTokenRepository_FindByHash_SeesRevokedRows(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))
	createToken(t, repo, 1, "rotated", time.Now().Add(time.Hour))

	_, err := repo.RevokeIfValid("rotated", time.Now())
	require.NoError(t, err)

	// Revoked rows stay visible; their presence is what makes replay detectable
	found, err := repo.FindByHash("rotated")
	require.NoError(t, err)
	assert.True(t, found.Revoked)
}

func TestRefreshTokenRepository_DeleteExpiredBefore(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))

	createToken(t, repo, 1, "old-1", time.Now().Add(-48*time.Hour))
	createToken(t, repo, 1, "old-2", time.Now().Add(-time.Minute))
	createToken(t, repo, 1, "fresh", time.Now().Add(time.Hour))

	deleted, err := repo.DeleteExpiredBefore(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.FindByHash("old-1")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	_, err = repo.FindByHash("fresh")
	assert.NoError(t, err)
}

func TestRefreshTokenRepository_Create_DuplicateHash(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.SetupTestDB(t))
	createToken(t, repo, 1, "dup", time.Now().Add(time.Hour))

	err := repo.Create(&models.RefreshToken{
		UserID:    2,
		TokenHash: "dup",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.Error(t, err)
}
