package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrRefreshTokenNotFound is returned when no refresh token is on record for
// a user id.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

const refreshTokenKeyPrefix = "refresh_token:"

// RefreshTokenRepository keeps the currently issued refresh token per user id
// in Redis. One key per id; SET makes overwriting the previous session the
// only write path.
type RefreshTokenRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRefreshTokenRepository(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Put stores the refresh token for the user id, replacing any previous entry.
// The key expires together with the token's own validity window.
func (r *RefreshTokenRepository) Put(ctx context.Context, userID, token string) error {
	key := refreshTokenKeyPrefix + userID

	if err := r.client.Set(ctx, key, token, r.ttl).Err(); err != nil {
		r.logger.WithError(err).Error("Failed to store refresh token")
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

func (r *RefreshTokenRepository) Get(ctx context.Context, userID string) (string, error) {
	token, err := r.client.Get(ctx, refreshTokenKeyPrefix+userID).Result()
	if err == redis.Nil {
		return "", ErrRefreshTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}
