package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lernova/attendsheets-api/internal/models"
	"github.com/lernova/attendsheets-api/pkg/config"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

type mockUserRepo struct {
	users map[string]*models.User
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.users == nil {
		m.users = map[string]*models.User{}
	}
	if user.ID == "" {
		user.ID = "user-1"
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return nil
}

type mockCodeStore struct {
	pending map[string]models.PendingSignup
	saveErr error
}

func (m *mockCodeStore) Save(ctx context.Context, pending models.PendingSignup, ttl time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.pending == nil {
		m.pending = map[string]models.PendingSignup{}
	}
	m.pending[pending.Email] = pending
	return nil
}

func (m *mockCodeStore) Get(ctx context.Context, email string) (*models.PendingSignup, error) {
	if p, ok := m.pending[email]; ok {
		return &p, nil
	}
	return nil, appErrors.ErrCacheMiss
}

func (m *mockCodeStore) Delete(ctx context.Context, email string) error {
	delete(m.pending, email)
	return nil
}

type captureMailer struct {
	emails []string
	codes  []string
}

func (m *captureMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	m.emails = append(m.emails, email)
	m.codes = append(m.codes, code)
	return nil
}

func newAuthFixture() (*AuthService, *mockUserRepo, *mockCodeStore, *captureMailer) {
	users := &mockUserRepo{users: map[string]*models.User{}}
	codes := &mockCodeStore{}
	mailer := &captureMailer{}
	svc := NewAuthService(users, codes, mailer, nil, nil, config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "attendsheets-test",
	}, 15*time.Minute)
	return svc, users, codes, mailer
}

func seedUser(t *testing.T, users *mockUserRepo, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "teacher-1",
		Email:        "teacher@example.com",
		PasswordHash: string(hash),
		FullName:     "Teacher One",
		Role:         models.RoleTeacher,
		Active:       true,
	}
	users.users[user.ID] = user
	return user
}

func TestLoginSuccess(t *testing.T) {
	svc, users, _, _ := newAuthFixture()
	seedUser(t, users, "secret123")

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "teacher@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", claims.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, users, _, _ := newAuthFixture()
	seedUser(t, users, "secret123")

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "teacher@example.com", Password: "nope",
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, users, _, _ := newAuthFixture()
	user := seedUser(t, users, "secret123")
	user.Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "teacher@example.com", Password: "secret123",
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestSignupAndVerifyFlow(t *testing.T) {
	svc, users, codes, mailer := newAuthFixture()
	ctx := context.Background()

	err := svc.Signup(ctx, models.SignupRequest{
		Email:    "student@example.com",
		Password: "secret123",
		FullName: "Student One",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	require.Len(t, mailer.codes, 1)
	require.Len(t, mailer.codes[0], 6)

	_, err = svc.VerifySignup(ctx, models.VerifySignupRequest{
		Email: "student@example.com", Code: "000000x",
	})
	require.ErrorIs(t, err, appErrors.ErrCodeExpired)

	resp, err := svc.VerifySignup(ctx, models.VerifySignupRequest{
		Email: "student@example.com", Code: mailer.codes[0],
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	stored, err := users.FindByEmail(ctx, "student@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Active)
	assert.NotEqual(t, "secret123", stored.PasswordHash)

	assert.Empty(t, codes.pending)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, users, _, _ := newAuthFixture()
	seedUser(t, users, "secret123")

	err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "teacher@example.com",
		Password: "secret123",
		FullName: "Dupe",
		Role:     models.RoleTeacher,
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestVerifySignupExpiredCode(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	_, err := svc.VerifySignup(context.Background(), models.VerifySignupRequest{
		Email: "nobody@example.com", Code: "123456",
	})
	require.ErrorIs(t, err, appErrors.ErrCodeExpired)
}

func TestSignupCodeStoreUnavailable(t *testing.T) {
	svc, _, codes, mailer := newAuthFixture()
	codes.saveErr = appErrors.ErrSignupUnavailable

	err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "new@example.com",
		Password: "password123",
		FullName: "New Teacher",
		Role:     models.RoleTeacher,
	})

	require.ErrorIs(t, err, appErrors.ErrSignupUnavailable)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
	assert.Empty(t, mailer.emails)
}
