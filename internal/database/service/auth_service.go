package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lecturehub/backend-go/internal/database/models"
	"github.com/lecturehub/backend-go/internal/database/repository"
	"github.com/lecturehub/backend-go/internal/token"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(email, password, name, nickname string) (*models.User, error)
	Login(email, password string) (*models.User, *TokenPair, error)
	// Refresh rotates a refresh token: the raw token is atomically consumed
	// and a fresh pair is issued. Reuse of an already-consumed token is
	// treated as a replay and tears down every session of the account.
	Refresh(rawRefreshToken string) (*models.User, *TokenPair, error)
	// Logout is best-effort and idempotent; it never fails visibly.
	Logout(rawRefreshToken string)
	ValidateAccessToken(tokenString string) (*token.Claims, error)
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type authService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	codec            *token.Codec
	logger           *slog.Logger
}

// NewAuthService creates a new authentication service instance
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	codec *token.Codec,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		codec:            codec,
		logger:           logger,
	}
}

func (s *authService) Register(email, password, name, nickname string) (*models.User, error) {
	s.logger.Info("📝 [AuthService] Registration attempt", "email", email)

	existingUser, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, err
	}

	if existingUser != nil {
		s.logger.Warn("⚠️ [AuthService] Email already registered", "email", email)
		return nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		Email:    email,
		Password: string(hashedPassword),
		Name:     name,
		Nickname: nickname,
		Role:     models.RoleStudent,
	}

	if err := s.userRepo.Create(user); err != nil {
		s.logger.Error("❌ [AuthService] Failed to create user", "error", err)
		return nil, err
	}

	s.logger.Info("✅ [AuthService] User registered successfully", "user_id", user.ID)
	return user, nil
}

func (s *authService) Login(email, password string) (*models.User, *TokenPair, error) {
	s.logger.Info("🔐 [AuthService] Login attempt", "email", email)

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] User not found", "email", email)
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warn("⚠️ [AuthService] Invalid password", "email", email)
		return nil, nil, ErrInvalidCredentials
	}

	// Each login starts an independent token lineage; sessions on other
	// devices are untouched.
	tokens, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate tokens", "error", err)
		return nil, nil, err
	}

	s.logger.Info("✅ [AuthService] User logged in successfully", "user_id", user.ID)
	return user, tokens, nil
}

// Refresh implements refresh-token rotation with replay detection.
//
// The authorization decision is made by a single atomic conditional update:
// of any number of callers presenting the same token concurrently, exactly one
// observes the unrevoked row and consumes it. The follow-up read only
// classifies a failure, it never grants access:
//   - row exists and is revoked: the token was already consumed once, so this
//     use is a replay. Every active session of the account is revoked before
//     the error surfaces.
//   - row exists, unrevoked: the token sat past its expiry.
//   - no row: the token was never registered (or already swept).
func (s *authService) Refresh(rawRefreshToken string) (*models.User, *TokenPair, error) {
	s.logger.Info("🔄 [AuthService] Token refresh attempt")

	claims, err := s.codec.Verify(rawRefreshToken)
	if err != nil {
		s.logger.Warn("⚠️ [AuthService] Refresh token failed verification", "error", err)
		return nil, nil, ErrInvalidToken
	}

	if claims.Type != token.TypeRefresh {
		s.logger.Warn("⚠️ [AuthService] Wrong token type presented for refresh", "type", claims.Type)
		return nil, nil, ErrInvalidToken
	}

	hash := token.Hash(rawRefreshToken)

	updated, err := s.refreshTokenRepo.RevokeIfValid(hash, time.Now())
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to consume refresh token", "error", err)
		return nil, nil, err
	}

	if updated != 1 {
		return nil, nil, s.classifyFailedRotation(hash)
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] Refresh token subject no longer exists", "user_id", claims.UserID)
			return nil, nil, fmt.Errorf("%w: unknown account", ErrUnauthorized)
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, nil, err
	}

	tokens, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate new tokens", "error", err)
		return nil, nil, err
	}

	s.logger.Info("✅ [AuthService] Token rotated successfully", "user_id", user.ID)
	return user, tokens, nil
}

// classifyFailedRotation decides the error shape after RevokeIfValid affected
// no row. The read here is diagnostic only; the rotation was already denied.
func (s *authService) classifyFailedRotation(hash string) error {
	record, err := s.refreshTokenRepo.FindByHash(hash)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			s.logger.Warn("⚠️ [AuthService] Unregistered refresh token presented")
			return fmt.Errorf("%w: unregistered refresh token", ErrUnauthorized)
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return err
	}

	if record.Revoked {
		// Only a token consumed by a rotation counts as replay evidence:
		// presenting it again means either a stolen copy or a retried
		// rotation, and both get the full teardown of the account's
		// sessions. A token closed by logout or by an earlier teardown is
		// just an ordinary dead token.
		if record.RevokedReason != models.RevokedReasonRotated {
			s.logger.Warn("⚠️ [AuthService] Revoked refresh token presented", "user_id", record.UserID, "reason", record.RevokedReason)
			return fmt.Errorf("%w: revoked refresh token", ErrUnauthorized)
		}

		revoked, rerr := s.refreshTokenRepo.RevokeAllActiveForUser(record.UserID)
		if rerr != nil {
			s.logger.Error("❌ [AuthService] Failed to revoke user sessions after replay", "user_id", record.UserID, "error", rerr)
		}
		s.logger.Warn("🚨 [AuthService] Refresh token replay detected, all sessions revoked",
			"user_id", record.UserID,
			"sessions_revoked", revoked,
		)
		return ErrReplayDetected
	}

	s.logger.Warn("⚠️ [AuthService] Expired refresh token presented", "user_id", record.UserID)
	return fmt.Errorf("%w: expired refresh token", ErrUnauthorized)
}

func (s *authService) Logout(rawRefreshToken string) {
	s.logger.Info("👋 [AuthService] Logout attempt")

	if rawRefreshToken == "" {
		return
	}

	// Revoke even if the token already expired; errors are logged and
	// swallowed since logout is cleanup, not a security boundary.
	if _, err := s.refreshTokenRepo.RevokeIfActive(token.Hash(rawRefreshToken)); err != nil {
		s.logger.Error("❌ [AuthService] Failed to revoke token on logout", "error", err)
		return
	}

	s.logger.Info("✅ [AuthService] User logged out successfully")
}

func (s *authService) ValidateAccessToken(tokenString string) (*token.Claims, error) {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.Type != token.TypeAccess {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// issueTokenPair mints a new access+refresh pair and registers the refresh
// token's hash. The role claim comes from storage, never from an old token.
func (s *authService) issueTokenPair(user *models.User) (*TokenPair, error) {
	accessToken, err := s.codec.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.codec.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: token.Hash(refreshToken),
		ExpiresAt: time.Now().Add(s.codec.RefreshTokenTTL()),
	}

	if err := s.refreshTokenRepo.Create(record); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.codec.AccessTokenTTL().Seconds()),
	}, nil
}

// Service errors
var (
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or malformed token")
	ErrUnauthorized       = errors.New("refresh token cannot be used")
	ErrReplayDetected     = errors.New("refresh token reuse detected, all sessions revoked")
)
