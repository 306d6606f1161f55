package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userDomain "codeclash/internal/domain/user"
	errs "codeclash/internal/errors"
	"codeclash/internal/rank"
	repo "codeclash/internal/repository"
)

type fakeUserStorage struct {
	byID map[string]userDomain.Profile
}

func newFakeUserStorage() *fakeUserStorage {
	return &fakeUserStorage{byID: make(map[string]userDomain.Profile)}
}

func (f *fakeUserStorage) GetByEmail(_ context.Context, email string) (userDomain.Profile, error) {
	for _, p := range f.byID {
		if p.Email == email {
			return p, nil
		}
	}
	return userDomain.Profile{}, errs.ErrUserNotFound
}

func (f *fakeUserStorage) GetByID(_ context.Context, userID string) (userDomain.Profile, error) {
	p, ok := f.byID[userID]
	if !ok {
		return userDomain.Profile{}, errs.ErrUserNotFound
	}
	return p, nil
}

func (f *fakeUserStorage) Create(_ context.Context, profile userDomain.Profile) error {
	f.byID[profile.ID] = profile
	return nil
}

func (f *fakeUserStorage) Update(_ context.Context, userID string, _ userDomain.ProfilePatch) error {
	if _, ok := f.byID[userID]; !ok {
		return errs.ErrUserNotFound
	}
	return nil
}

func newTestHandler() (*AuthUsecaseHandler, *fakeUserStorage) {
	users := newFakeUserStorage()
	return NewUserUsecaseHandler(users, repo.NewSessionMapStorage()), users
}

func TestRegisterUser(t *testing.T) {
	handler, users := newTestHandler()
	ctx := context.Background()

	sessionID, err := handler.RegisterUser(ctx, "Alice", "alice@example.com", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	userID, err := handler.GetUserIdFromSession(sessionID)
	require.NoError(t, err)

	profile := users.byID[userID]
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.NotEqual(t, "secret", profile.PasswordHash, "password must not be stored in the clear")
	assert.Equal(t, rank.TierUnranked, profile.Stats.Rank)
	assert.Empty(t, profile.SolvedProblems)
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	handler, _ := newTestHandler()
	ctx := context.Background()

	_, err := handler.RegisterUser(ctx, "Alice", "alice@example.com", "secret")
	require.NoError(t, err)

	_, err = handler.RegisterUser(ctx, "Imposter", "alice@example.com", "other")
	assert.ErrorIs(t, err, errs.ErrUserExists)
}

func TestLoginUser(t *testing.T) {
	handler, _ := newTestHandler()
	ctx := context.Background()

	_, err := handler.RegisterUser(ctx, "Alice", "alice@example.com", "secret")
	require.NoError(t, err)

	sessionID, err := handler.LoginUser(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.True(t, handler.CheckAuthorized(ctx, sessionID))

	_, err = handler.LoginUser(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, errs.ErrWrongPassword)

	_, err = handler.LoginUser(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestLogoutUser(t *testing.T) {
	handler, _ := newTestHandler()
	ctx := context.Background()

	sessionID, err := handler.RegisterUser(ctx, "Alice", "alice@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, handler.LogoutUser(sessionID))
	assert.False(t, handler.CheckAuthorized(ctx, sessionID))
	assert.ErrorIs(t, handler.LogoutUser(sessionID), errs.ErrSessionNotFound)
}
