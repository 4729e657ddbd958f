package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernova/attendsheets-api/internal/models"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

func TestVerificationCodeRepositoryWithoutRedis(t *testing.T) {
	repo := NewVerificationCodeRepository(nil)
	ctx := context.Background()

	pending := models.PendingSignup{Email: "teacher@example.com", Code: "123456"}

	var err error
	require.NotPanics(t, func() {
		err = repo.Save(ctx, pending, time.Minute)
	})
	assert.ErrorIs(t, err, appErrors.ErrSignupUnavailable)

	require.NotPanics(t, func() {
		_, err = repo.Get(ctx, pending.Email)
	})
	assert.ErrorIs(t, err, appErrors.ErrSignupUnavailable)

	require.NotPanics(t, func() {
		err = repo.Delete(ctx, pending.Email)
	})
	assert.ErrorIs(t, err, appErrors.ErrSignupUnavailable)
}
