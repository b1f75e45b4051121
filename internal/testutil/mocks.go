package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lecturehub/backend-go/internal/database/models"
	"github.com/lecturehub/backend-go/internal/database/service"
	"github.com/lecturehub/backend-go/internal/token"
)

// TestJWTSecret satisfies the codec's 32-byte minimum.
const TestJWTSecret = "test-secret-0123456789abcdefghijklmn"

// NewTestLogger returns a logger that discards all output
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestCodec builds a codec with short, test-friendly lifetimes
func NewTestCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(TestJWTSecret, 15, 7)
	require.NoError(t, err)
	return codec
}

// SetupTestDB creates a new in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A fresh connection would see a fresh :memory: database, and the race
	// tests need every goroutine on the same one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	return db
}

// ==================== MOCK USER REPOSITORY ====================

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	if len(args) > 1 && args.Get(0) != nil {
		user.ID = args.Get(0).(uint)
	}
	return args.Error(len(args) - 1)
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// ==================== MOCK REFRESH TOKEN REPOSITORY ====================

// MockRefreshTokenRepository implements repository.RefreshTokenRepository for testing
type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(tok *models.RefreshToken) error {
	args := m.Called(tok)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) RevokeIfValid(tokenHash string, now time.Time) (int64, error) {
	args := m.Called(tokenHash, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefreshTokenRepository) RevokeIfActive(tokenHash string) (int64, error) {
	args := m.Called(tokenHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefreshTokenRepository) RevokeAllActiveForUser(userID uint) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefreshTokenRepository) FindByHash(tokenHash string) (*models.RefreshToken, error) {
	args := m.Called(tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) DeleteExpiredBefore(now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

// ==================== HELPERS ====================

// CreateAuthServiceWithMocks wires an auth service over mock repositories
func CreateAuthServiceWithMocks(t *testing.T, userRepo *MockUserRepository, tokenRepo *MockRefreshTokenRepository) service.AuthService {
	t.Helper()
	return service.NewAuthService(userRepo, tokenRepo, NewTestCodec(t), NewTestLogger())
}
