package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"codeclash/internal/domain/user"
	errs "codeclash/internal/errors"
	"codeclash/internal/rank"
)

// Награда за решённую задачу.
const solveRewardPoints = 10

// Ограничение на загружаемый аватар.
const maxImageSizeBytes = 5 * 1024 * 1024

type ProfileStore interface {
	GetByID(ctx context.Context, userID string) (user.Profile, error)
	Create(ctx context.Context, profile user.Profile) error
	Update(ctx context.Context, userID string, patch user.ProfilePatch) error
	EnsureStats(ctx context.Context, userID string) error
	AddSolvedProblem(ctx context.Context, userID string, problemID int, newCount int, newAvgTime int, pointsDelta int) error
	ApplyReward(ctx context.Context, userID string, reward user.MatchReward) error
	SetRank(ctx context.Context, userID string, rankName string) error
}

type BlobStorage interface {
	Upload(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

type ProfileUseCase struct {
	store ProfileStore
	blobs BlobStorage
	log   *zap.SugaredLogger
}

func NewProfileUseCase(store ProfileStore, blobs BlobStorage, log *zap.SugaredLogger) *ProfileUseCase {
	return &ProfileUseCase{store: store, blobs: blobs, log: log}
}

// GetUserProfile читает профиль; отсутствующий документ не ошибка —
// он материализуется с нулевой статистикой и возвращается.
func (p *ProfileUseCase) GetUserProfile(ctx context.Context, userID string) (user.Profile, error) {
	found, err := p.store.GetByID(ctx, userID)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, errs.ErrUserNotFound) {
		return user.Profile{}, err
	}

	fresh := user.NewDefaultProfile(userID)
	if err := p.store.Create(ctx, fresh); err != nil {
		return user.Profile{}, err
	}

	p.log.Infof("materialized default profile for user %s", userID)
	return fresh, nil
}

// UpdateUserProfile — merge-update существующего документа либо
// создание с дефолтами и наложенными поверх полями.
func (p *ProfileUseCase) UpdateUserProfile(ctx context.Context, userID string, patch user.ProfilePatch) error {
	err := p.store.Update(ctx, userID, patch)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrUserNotFound) {
		return err
	}

	fresh := user.NewDefaultProfile(userID)
	if patch.Name != nil {
		fresh.Name = *patch.Name
	}
	if patch.CoderName != nil {
		fresh.CoderName = *patch.CoderName
	}
	if patch.ProfileImage != nil {
		fresh.ProfileImage = *patch.ProfileImage
	}

	return p.store.Create(ctx, fresh)
}

// UpdateProblemSolved отмечает задачу решённой. Повторный вызов с тем
// же problemId — успех без изменений.
func (p *ProfileUseCase) UpdateProblemSolved(ctx context.Context, userID string, problemID int, solveTimeSeconds int) error {
	profile, err := p.store.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user document not found: %w", err)
	}

	for _, solved := range profile.SolvedProblems {
		if solved == problemID {
			return nil
		}
	}

	newCount := len(profile.SolvedProblems) + 1
	oldAvg := profile.Stats.AverageSolveTime

	newAvg := solveTimeSeconds
	if oldAvg != 0 {
		newAvg = int(math.Round((float64(oldAvg)*float64(newCount-1) + float64(solveTimeSeconds)) / float64(newCount)))
	}

	return p.store.AddSolvedProblem(ctx, userID, problemID, newCount, newAvg, solveRewardPoints)
}

// UpdateUserRank пересчитывает лигу из текущих ранговых очков и пишет
// её безусловно. Идемпотентна.
func (p *ProfileUseCase) UpdateUserRank(ctx context.Context, userID string) error {
	profile, err := p.store.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user document not found: %w", err)
	}

	return p.store.SetRank(ctx, userID, rank.ComputeRank(profile.Stats.TotalRankPoints))
}

// EnsureProfileWithStats гарантирует, что профиль существует и в нём
// есть stats — защита от частично инициализированных документов.
func (p *ProfileUseCase) EnsureProfileWithStats(ctx context.Context, userID string) error {
	_, err := p.store.GetByID(ctx, userID)
	if errors.Is(err, errs.ErrUserNotFound) {
		return p.store.Create(ctx, user.NewDefaultProfile(userID))
	}
	if err != nil {
		return err
	}

	return p.store.EnsureStats(ctx, userID)
}

// ApplyMatchReward начисляет награду за матч атомарными инкрементами.
func (p *ProfileUseCase) ApplyMatchReward(ctx context.Context, userID string, reward user.MatchReward) error {
	return p.store.ApplyReward(ctx, userID, reward)
}

// UploadProfileImage валидирует файл до похода в хранилище, грузит
// его и прописывает URL в профиль.
func (p *ProfileUseCase) UploadProfileImage(ctx context.Context, userID string, filename string, contentType string, data []byte) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", errs.ErrNotAnImage
	}
	if len(data) > maxImageSizeBytes {
		return "", errs.ErrImageTooLarge
	}

	key := fmt.Sprintf("profileImages/%s_%d%s", userID, time.Now().UnixMilli(), filepath.Ext(filename))

	url, err := p.blobs.Upload(ctx, key, contentType, data)
	if err != nil {
		return "", err
	}

	if err := p.UpdateUserProfile(ctx, userID, user.ProfilePatch{ProfileImage: &url}); err != nil {
		return "", fmt.Errorf("failed to update profile with new image: %w", err)
	}

	return url, nil
}
