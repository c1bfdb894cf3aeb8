package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/registration-api/internal/models"
)

type fakeUserRepo struct {
	users     map[string]models.User
	renamed   map[string]string
	passwords map[string]string
	deleted   []string
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range f.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-new"
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) UpdateUsername(ctx context.Context, id, username string) error {
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Username = username
	f.users[id] = u
	if f.renamed == nil {
		f.renamed = map[string]string{}
	}
	f.renamed[id] = username
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if _, ok := f.users[id]; !ok {
		return sql.ErrNoRows
	}
	if f.passwords == nil {
		f.passwords = map[string]string{}
	}
	f.passwords[id] = passwordHash
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func newUserFixture() (*UserService, *fakeUserRepo) {
	repo := &fakeUserRepo{
		users: map[string]models.User{
			"sup-1":   {ID: "sup-1", Username: "finance1", Role: models.RoleFinancialSupervisor},
			"sup-2":   {ID: "sup-2", Username: "finance2", Role: models.RoleFinancialSupervisor},
			"admin-1": {ID: "admin-1", Username: "admin", Role: models.RoleAdmin},
		},
	}
	return NewUserService(repo, nil, nil), repo
}

func TestUserServiceUpdateSupervisor(t *testing.T) {
	svc, repo := newUserFixture()

	info, err := svc.UpdateSupervisor(context.Background(), "sup-1", UpdateSupervisorRequest{Username: "finance1b"})
	require.NoError(t, err)
	assert.Equal(t, "finance1b", info.Username)
	assert.Equal(t, "finance1b", repo.renamed["sup-1"])
}

func TestUserServiceUpdateSupervisorSameName(t *testing.T) {
	svc, repo := newUserFixture()

	info, err := svc.UpdateSupervisor(context.Background(), "sup-1", UpdateSupervisorRequest{Username: "finance1"})
	require.NoError(t, err)
	assert.Equal(t, "finance1", info.Username)
	assert.Empty(t, repo.renamed)
}

func TestUserServiceUpdateSupervisorUsernameTaken(t *testing.T) {
	svc, _ := newUserFixture()

	_, err := svc.UpdateSupervisor(context.Background(), "sup-1", UpdateSupervisorRequest{Username: "finance2"})
	require.Error(t, err)
}

func TestUserServiceUpdateSupervisorNotSupervisor(t *testing.T) {
	svc, _ := newUserFixture()

	_, err := svc.UpdateSupervisor(context.Background(), "admin-1", UpdateSupervisorRequest{Username: "admin2"})
	require.Error(t, err)
}

func TestUserServiceDeleteSupervisor(t *testing.T) {
	svc, repo := newUserFixture()

	require.NoError(t, svc.DeleteSupervisor(context.Background(), "sup-1"))
	assert.Equal(t, []string{"sup-1"}, repo.deleted)

	require.Error(t, svc.DeleteSupervisor(context.Background(), "sup-1"))
}
