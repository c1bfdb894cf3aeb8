package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campushub/registration-api/pkg/config"
)

// LoginLimiter throttles repeated failed logins per username and source IP
// using a fixed redis window. A nil client disables limiting.
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter constructs a LoginLimiter from configuration.
func NewLoginLimiter(client *redis.Client, cfg config.LoginLimiterConfig, logger *zap.Logger) *LoginLimiter {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	window := cfg.Window
	if window <= 0 {
		window = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

func loginAttemptKey(username, ip string) string {
	return fmt.Sprintf("login_attempts:%s:%s", username, ip)
}

// Allowed reports whether another attempt may proceed. Limiter outages fail
// open so redis downtime cannot lock everyone out.
func (l *LoginLimiter) Allowed(ctx context.Context, username, ip string) bool {
	if l.client == nil {
		return true
	}
	count, err := l.client.Get(ctx, loginAttemptKey(username, ip)).Int()
	if err != nil {
		if err != redis.Nil {
			l.logger.Warn("login limiter read failed", zap.Error(err))
		}
		return true
	}
	return count < l.maxAttempts
}

// RecordFailure counts one failed attempt within the window.
func (l *LoginLimiter) RecordFailure(ctx context.Context, username, ip string) {
	if l.client == nil {
		return
	}
	key := loginAttemptKey(username, ip)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("login limiter incr failed", zap.Error(err))
		return
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("login limiter expire failed", zap.Error(err))
		}
	}
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, username, ip string) {
	if l.client == nil {
		return
	}
	if err := l.client.Del(ctx, loginAttemptKey(username, ip)).Err(); err != nil {
		l.logger.Warn("login limiter reset failed", zap.Error(err))
	}
}
