package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lecturehub/backend-go/internal/database/models"
)

// Token type discriminators carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// minSecretLen is the minimum length of the HS256 signing secret.
const minSecretLen = 32

// ErrInvalidToken is returned by Verify for any token that is malformed,
// carries a bad signature, or is past its expiry.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the verified payload of a bearer token.
type Claims struct {
	UserID    uint
	Role      models.Role // empty for refresh tokens
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec issues and verifies signed bearer tokens. It is stateless: verification
// never consults storage, and revocation lives entirely in the refresh layer.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec builds a codec from the process-wide signing secret. A missing or
// short secret is a startup failure, not a recoverable condition.
func NewCodec(secret string, accessExpMinutes, refreshExpDays int64) (*Codec, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("JWT secret is missing or too short (min %d chars, got %d)", minSecretLen, len(secret))
	}

	return &Codec{
		secret:     []byte(secret),
		accessTTL:  time.Duration(accessExpMinutes) * time.Minute,
		refreshTTL: time.Duration(refreshExpDays) * 24 * time.Hour,
	}, nil
}

// IssueAccessToken mints a short-lived access token carrying the caller's role.
// Access tokens are never persisted or individually revocable; they just expire.
func (c *Codec) IssueAccessToken(userID uint, role models.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"type":    TypeAccess,
		"iat":     now.Unix(),
		"exp":     now.Add(c.accessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// IssueRefreshToken mints a long-lived refresh token. It carries no role claim:
// the role is re-resolved from storage on every rotation, so a stale token can
// never smuggle an outdated privilege level. The jti claim makes every token
// unique even when two are minted in the same second for the same user.
func (c *Codec) IssueRefreshToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"type":    TypeRefresh,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(c.refreshTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// RefreshTokenTTL exposes the configured refresh lifetime so the service layer
// can store a matching expiry on the persisted record.
func (c *Codec) RefreshTokenTTL() time.Duration {
	return c.refreshTTL
}

// AccessTokenTTL exposes the configured access lifetime for response metadata.
func (c *Codec) AccessTokenTTL() time.Duration {
	return c.accessTTL
}

// Verify checks signature and expiry and returns the token's claims.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := mapClaims["user_id"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	typ, ok := mapClaims["type"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		UserID: uint(userID),
		Type:   typ,
	}

	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = models.Role(role)
	}
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return claims, nil
}

// Hash returns the hex-encoded SHA-256 digest of a raw token. This is the only
// form in which refresh tokens are ever persisted or looked up.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
