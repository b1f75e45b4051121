package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lecturehub/backend-go/internal/database/models"
)

// RefreshTokenRepository is the sole authority for refresh-token validity
// beyond signature and expiry checks. It exposes only state-transition
// operations; no caller ever mutates a row field directly.
//
// Every revoke method is a single conditional UPDATE, never a read-then-write
// pair: when concurrent callers race on the same hash, at most one of them can
// observe RowsAffected == 1. Repeated calls on an already-revoked hash simply
// affect zero rows, they do not error.
type RefreshTokenRepository interface {
	Create(token *models.RefreshToken) error
	// RevokeIfValid flips revoked to true only while the record is unrevoked
	// and not yet expired, marking it consumed by rotation. Returns the
	// number of rows transitioned (0 or 1).
	RevokeIfValid(tokenHash string, now time.Time) (int64, error)
	// RevokeIfActive revokes regardless of expiry; used by logout so an
	// expired-but-unrevoked token is still closed out. A token closed this
	// way is not replay evidence when presented again.
	RevokeIfActive(tokenHash string) (int64, error)
	// RevokeAllActiveForUser tears down every active session of one account.
	RevokeAllActiveForUser(userID uint) (int64, error)
	// FindByHash is a diagnostic read used only to classify a failed
	// RevokeIfValid; it takes no part in the authorization decision.
	FindByHash(tokenHash string) (*models.RefreshToken, error)
	// DeleteExpiredBefore reclaims storage for rows past expiry. Protocol
	// correctness never depends on it running.
	DeleteExpiredBefore(now time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository instance
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(token *models.RefreshToken) error {
	return r.db.Create(token).Error
}

func (r *refreshTokenRepository) RevokeIfValid(tokenHash string, now time.Time) (int64, error) {
	result := r.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked = ? AND expires_at > ?", tokenHash, false, now).
		Updates(map[string]interface{}{"revoked": true, "revoked_reason": models.RevokedReasonRotated})

	return result.RowsAffected, result.Error
}

func (r *refreshTokenRepository) RevokeIfActive(tokenHash string) (int64, error) {
	result := r.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked = ?", tokenHash, false).
		Updates(map[string]interface{}{"revoked": true, "revoked_reason": models.RevokedReasonLogout})

	return result.RowsAffected, result.Error
}

func (r *refreshTokenRepository) RevokeAllActiveForUser(userID uint) (int64, error) {
	result := r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{"revoked": true, "revoked_reason": models.RevokedReasonReplay})

	return result.RowsAffected, result.Error
}

func (r *refreshTokenRepository) FindByHash(tokenHash string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	err := r.db.Where("token_hash = ?", tokenHash).First(&refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &refreshToken, nil
}

func (r *refreshTokenRepository) DeleteExpiredBefore(now time.Time) (int64, error) {
	result := r.db.Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

// Repository errors
var ErrTokenNotFound = errors.New("refresh token not found")
