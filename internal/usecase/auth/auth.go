package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	userDomain "codeclash/internal/domain/user"
	errs "codeclash/internal/errors"
	"codeclash/internal/random"
)

type AuthUsecaseHandler struct {
	userStorage    UserStorage
	sessionStorage SessionStorage
}

func NewUserUsecaseHandler(u UserStorage, s SessionStorage) *AuthUsecaseHandler {
	return &AuthUsecaseHandler{
		userStorage:    u,
		sessionStorage: s,
	}
}

type UserStorage interface {
	GetByEmail(ctx context.Context, email string) (userDomain.Profile, error)
	GetByID(ctx context.Context, userID string) (userDomain.Profile, error)
	Create(ctx context.Context, profile userDomain.Profile) error
	Update(ctx context.Context, userID string, patch userDomain.ProfilePatch) error
}

type SessionStorage interface {
	GetUserIdBySession(sessionID string) (userID string, ok bool)
	StoreSession(sessionID string, userID string)
	DeleteSession(sessionID string) (ok bool)
}

func (a *AuthUsecaseHandler) CheckAuthorized(ctx context.Context, sessionID string) bool {
	userID, found := a.sessionStorage.GetUserIdBySession(sessionID)
	if !found {
		return false
	}
	_, err := a.userStorage.GetByID(ctx, userID)
	return err == nil
}

// RegisterUser создаёт пользователя с дефолтным профилем и открывает
// сессию. Пароль хранится только как bcrypt-хеш.
func (a *AuthUsecaseHandler) RegisterUser(ctx context.Context, name string, email string, password string) (sessionID string, err error) {
	_, err = a.userStorage.GetByEmail(ctx, email)
	if err == nil {
		return "", errs.ErrUserExists
	}
	if !errors.Is(err, errs.ErrUserNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	newProfile := userDomain.NewDefaultProfile(uuid.New().String())
	if name != "" {
		newProfile.Name = name
	}
	newProfile.Email = email
	newProfile.PasswordHash = string(hash)

	if err := a.userStorage.Create(ctx, newProfile); err != nil {
		return "", err
	}

	sessionID = random.RandString(64)
	a.sessionStorage.StoreSession(sessionID, newProfile.ID)
	return sessionID, nil
}

func (a *AuthUsecaseHandler) LoginUser(ctx context.Context, email string, password string) (sessionID string, err error) {
	userFromDb, err := a.userStorage.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return "", errs.ErrUserNotFound
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(userFromDb.PasswordHash), []byte(password)) != nil {
		return "", errs.ErrWrongPassword
	}

	// отметить активность, ошибка не блокирует вход
	_ = a.userStorage.Update(ctx, userFromDb.ID, userDomain.ProfilePatch{})

	sessionID = random.RandString(64)
	a.sessionStorage.StoreSession(sessionID, userFromDb.ID)
	return sessionID, nil
}

// returns nil or ErrSessionNotFound
func (a *AuthUsecaseHandler) LogoutUser(sessionID string) (err error) {
	_, ok := a.sessionStorage.GetUserIdBySession(sessionID)
	if !ok {
		return errs.ErrSessionNotFound
	}
	ok = a.sessionStorage.DeleteSession(sessionID)
	if !ok {
		return errs.ErrSessionNotFound
	}
	return nil
}

func (a *AuthUsecaseHandler) GetUserIdFromSession(sessionID string) (string, error) {
	userID, ok := a.sessionStorage.GetUserIdBySession(sessionID)
	if !ok {
		return "", errs.ErrSessionNotFound
	}
	return userID, nil
}

func (a *AuthUsecaseHandler) GetUserByUserId(ctx context.Context, userID string) (userDomain.Profile, error) {
	return a.userStorage.GetByID(ctx, userID)
}
