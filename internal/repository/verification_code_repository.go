package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lernova/attendsheets-api/internal/models"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

const signupCodePrefix = "signup:code:"

// VerificationCodeRepository stores pending signups keyed by email with a
// TTL, so codes expire without any sweeper process. Without a Redis client
// every operation fails with ErrSignupUnavailable.
type VerificationCodeRepository struct {
	client *redis.Client
}

// NewVerificationCodeRepository constructs the code store.
func NewVerificationCodeRepository(client *redis.Client) *VerificationCodeRepository {
	return &VerificationCodeRepository{client: client}
}

// Save stores the pending signup under its email for the given TTL,
// replacing any earlier pending signup for the same address.
func (r *VerificationCodeRepository) Save(ctx context.Context, pending models.PendingSignup, ttl time.Duration) error {
	if r.client == nil {
		return appErrors.ErrSignupUnavailable
	}

	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending signup: %w", err)
	}
	if err := r.client.Set(ctx, signupCodePrefix+pending.Email, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store pending signup: %w", err)
	}
	return nil
}

// Get returns the pending signup for an email, or ErrCacheMiss when the code
// expired or was never issued.
func (r *VerificationCodeRepository) Get(ctx context.Context, email string) (*models.PendingSignup, error) {
	if r.client == nil {
		return nil, appErrors.ErrSignupUnavailable
	}

	raw, err := r.client.Get(ctx, signupCodePrefix+email).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("load pending signup: %w", err)
	}

	var pending models.PendingSignup
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending signup: %w", err)
	}
	return &pending, nil
}

// Delete removes the pending signup once verified.
func (r *VerificationCodeRepository) Delete(ctx context.Context, email string) error {
	if r.client == nil {
		return appErrors.ErrSignupUnavailable
	}

	if err := r.client.Del(ctx, signupCodePrefix+email).Err(); err != nil {
		return fmt.Errorf("delete pending signup: %w", err)
	}
	return nil
}
