package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushub/registration-api/internal/models"
	appErrors "github.com/campushub/registration-api/pkg/errors"
)

type fakeAuthUsers struct {
	users     map[string]models.User
	passwords map[string]string
}

func (f *fakeAuthUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if f.passwords == nil {
		f.passwords = map[string]string{}
	}
	f.passwords[id] = passwordHash
	return nil
}

type fakeThrottle struct {
	allowed  bool
	failures int
	resets   int
}

func (f *fakeThrottle) Allowed(ctx context.Context, username, ip string) bool { return f.allowed }
func (f *fakeThrottle) RecordFailure(ctx context.Context, username, ip string) {
	f.failures++
}
func (f *fakeThrottle) Reset(ctx context.Context, username, ip string) { f.resets++ }

func newAuthFixture(t *testing.T) (*AuthService, *fakeAuthUsers, *fakeThrottle) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &fakeAuthUsers{users: map[string]models.User{
		"user-1": {ID: "user-1", Username: "admin", PasswordHash: string(hash), Role: models.RoleAdmin},
	}}
	throttle := &fakeThrottle{allowed: true}
	svc := NewAuthService(users, throttle, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "registration-api",
	})
	return svc, users, throttle
}

func TestAuthLoginIssuesToken(t *testing.T) {
	svc, _, throttle := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Equal(t, 1, throttle.resets)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _, throttle := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "nope"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Equal(t, 1, throttle.failures)
}

func TestAuthLoginUnknownUser(t *testing.T) {
	svc, _, throttle := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Equal(t, 1, throttle.failures)
}

func TestAuthLoginThrottled(t *testing.T) {
	svc, _, throttle := newAuthFixture(t)
	throttle.allowed = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "correct-horse"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTooManyAttempts.Code, appErr.Code)
}

func TestAuthChangePassword(t *testing.T) {
	svc, users, _ := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "battery-staple",
	})
	require.NoError(t, err)
	require.Contains(t, users.passwords, "user-1")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.passwords["user-1"]), []byte("battery-staple")))
}

func TestAuthChangePasswordWrongOld(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "nope",
		NewPassword: "battery-staple",
	})
	require.Error(t, err)
}
