package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTokenNotFound = errors.New("token invalid or expired")

type TokenPurpose string

const (
	TokenPurposeReset  TokenPurpose = "reset"
	TokenPurposeVerify TokenPurpose = "verify"
)

// AuthTokenRepository stores the short-lived one-shot tokens used for
// password resets and email verification. Expiry is delegated to redis.
type AuthTokenRepository struct {
	client *redis.Client
}

func NewAuthTokenRepository(client *redis.Client) *AuthTokenRepository {
	return &AuthTokenRepository{client: client}
}

func (r *AuthTokenRepository) Set(ctx context.Context, purpose TokenPurpose, token string, userID int64, ttl time.Duration) error {
	key := tokenKey(purpose, token)
	if err := r.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store %s token: %w", purpose, err)
	}
	return nil
}

// Consume resolves the token to its user and deletes it in one step so a
// token can never be redeemed twice.
func (r *AuthTokenRepository) Consume(ctx context.Context, purpose TokenPurpose, token string) (int64, error) {
	key := tokenKey(purpose, token)
	val, err := r.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("consume %s token: %w", purpose, err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token payload: %w", err)
	}
	return userID, nil
}

func tokenKey(purpose TokenPurpose, token string) string {
	return fmt.Sprintf("auth:%s_token:%s", purpose, token)
}
