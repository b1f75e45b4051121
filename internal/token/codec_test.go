package token_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecturehub/backend-go/internal/database/models"
	"github.com/lecturehub/backend-go/internal/testutil"
	"github.com/lecturehub/backend-go/internal/token"
)

func TestNewCodec_SecretValidation(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{
			name:    "valid secret",
			secret:  testutil.TestJWTSecret,
			wantErr: false,
		},
		{
			name:    "empty secret",
			secret:  "",
			wantErr: true,
		},
		{
			name:    "too short",
			secret:  "0123456789abcdefghijklmnopqrstu", // 31 chars
			wantErr: true,
		},
		{
			name:    "exactly minimum length",
			secret:  "0123456789abcdefghijklmnopqrstuv", // 32 chars
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := token.NewCodec(tt.secret, 15, 7)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, codec)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, codec)
			}
		})
	}
}

func TestCodec_AccessToken(t *testing.T) {
	codec := testutil.NewTestCodec(t)

	raw, err := codec.IssueAccessToken(42, models.RoleInstructor)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := codec.Verify(raw)
	require.NoError(t, err)

	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, models.RoleInstructor, claims.Role)
	assert.Equal(t, token.TypeAccess, claims.Type)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestCodec_RefreshToken(t *testing.T) {
	codec := testutil.NewTestCodec(t)

	raw, err := codec.IssueRefreshToken(42)
	require.NoError(t, err)

	claims, err := codec.Verify(raw)
	require.NoError(t, err)

	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, token.TypeRefresh, claims.Type)
	// Refresh tokens never carry a role; it is re-resolved from storage on use
	assert.Empty(t, claims.Role)
}

func TestCodec_RefreshTokensAreUnique(t *testing.T) {
	codec := testutil.NewTestCodec(t)

	// Same user, same instant: the jti claim must still make them distinct
	first, err := codec.IssueRefreshToken(1)
	require.NoError(t, err)
	second, err := codec.IssueRefreshToken(1)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, token.Hash(first), token.Hash(second))
}

func TestCodec_Verify_Rejections(t *testing.T) {
	codec := testutil.NewTestCodec(t)
	otherCodec, err := token.NewCodec("another-secret-0123456789abcdefghij", 15, 7)
	require.NoError(t, err)

	valid, err := codec.IssueAccessToken(1, models.RoleStudent)
	require.NoError(t, err)

	foreign, err := otherCodec.IssueAccessToken(1, models.RoleStudent)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
		{name: "wrong signing key", token: foreign},
		{name: "tampered payload", token: tamper(valid)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := codec.Verify(tt.token)
			assert.ErrorIs(t, err, token.ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestCodec_Verify_ExpiredToken(t *testing.T) {
	// Negative access lifetime: the token is already past expiry when issued
	codec, err := token.NewCodec(testutil.TestJWTSecret, -1, 7)
	require.NoError(t, err)

	raw, err := codec.IssueAccessToken(1, models.RoleStudent)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestHash(t *testing.T) {
	h := token.Hash("some-refresh-token")

	assert.Len(t, h, 64)
	assert.Equal(t, h, token.Hash("some-refresh-token"))
	assert.NotEqual(t, h, token.Hash("another-refresh-token"))
	// hex only
	assert.Equal(t, strings.ToLower(h), h)
}

// tamper flips the payload segment of a JWT while keeping the signature
func tamper(raw string) string {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return raw
	}
	parts[1] = "eyJ1c2VyX2lkIjo5OTl9"
	return strings.Join(parts, ".")
}
