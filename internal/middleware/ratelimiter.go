package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lecturehub/backend-go/internal/config"
)

// RateLimiter throttles authentication attempts using Redis
type RateLimiter interface {
	// CheckAttemptLimit checks if the subject has exceeded the attempt limit
	// for the current window. Returns: allowed bool, used int64, error
	CheckAttemptLimit(ctx context.Context, subject string) (bool, int64, error)

	// RecordAttempt increments the attempt count for a subject
	RecordAttempt(ctx context.Context, subject string) error

	// Close closes the Redis connection
	Close() error
}

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// NewRateLimiter creates a new Redis-based rate limiter
func NewRateLimiter(cfg *config.Config, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       int(cfg.RedisDatabase),
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("❌ [RateLimiter] Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ [RateLimiter] Connected to Redis",
		"host", cfg.RedisHost,
		"port", cfg.RedisPort,
	)

	return &redisRateLimiter{
		client: client,
		limit:  cfg.LoginAttemptLimit,
		window: time.Duration(cfg.LoginAttemptWindowSecs) * time.Second,
		logger: logger,
	}, nil
}

// attemptKey generates the Redis key for a subject's attempt count
// Format: auth:attempts:{subject}
func attemptKey(subject string) string {
	return fmt.Sprintf("auth:attempts:%s", subject)
}

func (r *redisRateLimiter) CheckAttemptLimit(ctx context.Context, subject string) (bool, int64, error) {
	// If limit is 0 or negative, unlimited
	if r.limit <= 0 {
		return true, 0, nil
	}

	count, err := r.client.Get(ctx, attemptKey(subject)).Int64()
	if err == redis.Nil {
		return true, 0, nil
	}
	if err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to get attempt count", "error", err, "subject", subject)
		// On error, allow the request but log it
		return true, 0, err
	}

	return count < r.limit, count, nil
}

func (r *redisRateLimiter) RecordAttempt(ctx context.Context, subject string) error {
	key := attemptKey(subject)

	pipe := r.client.Pipeline()
	pipe.Incr(ctx, key)
	// Refresh the window on every attempt so a burst cannot outlive its key
	pipe.Expire(ctx, key, r.window)

	_, err := pipe.Exec(ctx)
	if err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to record attempt", "error", err, "subject", subject)
		return err
	}

	return nil
}

func (r *redisRateLimiter) Close() error {
	return r.client.Close()
}

// NoOpRateLimiter is a rate limiter that always allows requests
// Used when Redis is not available
type NoOpRateLimiter struct {
	logger *slog.Logger
}

// NewNoOpRateLimiter creates a no-op rate limiter
func NewNoOpRateLimiter(logger *slog.Logger) RateLimiter {
	logger.Warn("⚠️ [RateLimiter] Using no-op rate limiter - rate limiting is disabled")
	return &NoOpRateLimiter{logger: logger}
}

func (r *NoOpRateLimiter) CheckAttemptLimit(ctx context.Context, subject string) (bool, int64, error) {
	return true, 0, nil
}

func (r *NoOpRateLimiter) RecordAttempt(ctx context.Context, subject string) error {
	return nil
}

func (r *NoOpRateLimiter) Close() error {
	return nil
}
