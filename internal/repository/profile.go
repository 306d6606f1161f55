package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"codeclash/internal/bootstrap"
	"codeclash/internal/domain/user"
	errs "codeclash/internal/errors"
)

// Категории лидерборда и поля, по которым он строится.
const (
	CategoryGlobal     = "global"
	CategoryRankPoints = "rankPoints"
)

func leaderboardField(category string) string {
	if category == CategoryRankPoints {
		return "stats.total_rank_points"
	}
	return "stats.total_points"
}

type ProfileRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewProfileRepository(cfg bootstrap.Config, log *zap.SugaredLogger, mongo *mongo.Database) *ProfileRepository {
	return &ProfileRepository{
		cfg:   cfg,
		log:   log,
		mongo: mongo,
	}
}

func (p *ProfileRepository) users() *mongo.Collection {
	return p.mongo.Collection("users")
}

// mongo возвращает Unauthorized как CommandError с кодом 13 —
// различаем его отдельно, как того требует контракт updateUserProfile.
func mapWriteError(err error) error {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 13 {
		return errs.ErrPermissionDenied
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == 13 {
				return errs.ErrPermissionDenied
			}
		}
	}
	return err
}

func (p *ProfileRepository) GetByID(ctx context.Context, userID string) (user.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result user.Profile
	err := p.users().FindOne(ctx, bson.M{"_id": userID}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.Profile{}, errs.ErrUserNotFound
	} else if err != nil {
		p.log.Errorf("failed to get profile %s: %v", userID, err)
		return user.Profile{}, err
	}

	return result, nil
}

func (p *ProfileRepository) GetByEmail(ctx context.Context, email string) (user.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result user.Profile
	err := p.users().FindOne(ctx, bson.M{"email": email}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.Profile{}, errs.ErrUserNotFound
	} else if err != nil {
		p.log.Errorf("failed to get profile by email: %v", err)
		return user.Profile{}, err
	}

	return result, nil
}

func (p *ProfileRepository) Create(ctx context.Context, profile user.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.users().InsertOne(ctx, profile)
	if err != nil {
		p.log.Errorf("failed to insert profile %s: %v", profile.ID, err)
		return mapWriteError(err)
	}

	p.log.Infof("profile created for user %s", profile.ID)
	return nil
}

// Update применяет частичное обновление профиля, попутно обновляя
// last_active. Отсутствующий документ — ошибка, создание с нуля
// делает уровень usecase.
func (p *ProfileRepository) Update(ctx context.Context, userID string, patch user.ProfilePatch) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"last_active": time.Now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.CoderName != nil {
		set["coder_name"] = *patch.CoderName
	}
	if patch.ProfileImage != nil {
		set["profile_image"] = *patch.ProfileImage
	}

	res, err := p.users().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		p.log.Errorf("failed to update profile %s: %v", userID, err)
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrUserNotFound
	}

	return nil
}

// EnsureStats дозаполняет профиль нулевой статистикой, если документ
// существует, но саб-структура stats в нём отсутствует. Самолечение
// частично инициализированных профилей, не штатный путь.
func (p *ProfileRepository) EnsureStats(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"_id":        userID,
		"stats.rank": bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{"stats": user.DefaultStats()},
	}

	_, err := p.users().UpdateOne(ctx, filter, update)
	if err != nil {
		p.log.Errorf("failed to backfill stats for %s: %v", userID, err)
		return mapWriteError(err)
	}
	return nil
}

// AddSolvedProblem добавляет задачу в решённые и пересчитывает
// статистику. Счётчик очков — атомарный $inc.
func (p *ProfileRepository) AddSolvedProblem(ctx context.Context, userID string, problemID int, newCount int, newAvgTime int, pointsDelta int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$addToSet": bson.M{"solved_problems": problemID},
		"$set": bson.M{
			"stats.problems_solved":    newCount,
			"stats.average_solve_time": newAvgTime,
			"last_active":              time.Now(),
		},
		"$inc": bson.M{"stats.total_points": pointsDelta},
	}

	res, err := p.users().UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		p.log.Errorf("ошибка при добавлении решённой задачи: %v", err)
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrUserNotFound
	}

	return nil
}

// ApplyReward начисляет награду за матч атомарными инкрементами,
// чтобы оставаться корректным при конкурентных начислениях.
func (p *ProfileRepository) ApplyReward(ctx context.Context, userID string, reward user.MatchReward) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	inc := bson.M{}
	if reward.RankPoints != 0 {
		inc["stats.total_rank_points"] = reward.RankPoints
	}
	if reward.RankWins != 0 {
		inc["stats.rank_wins"] = reward.RankWins
	}
	if reward.RankMatches != 0 {
		inc["stats.rank_matches"] = reward.RankMatches
	}
	if reward.Points != 0 {
		inc["stats.total_points"] = reward.Points
	}

	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"last_active": time.Now()},
	}

	res, err := p.users().UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		p.log.Errorf("failed to apply match reward to %s: %v", userID, err)
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrUserNotFound
	}

	return nil
}

// SetRank записывает лигу безусловно, даже если она не изменилась.
func (p *ProfileRepository) SetRank(ctx context.Context, userID string, rankName string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"stats.rank":  rankName,
			"last_active": time.Now(),
		},
	}

	res, err := p.users().UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		p.log.Errorf("failed to set rank for %s: %v", userID, err)
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrUserNotFound
	}

	return nil
}

// Top возвращает профили, отсортированные по убыванию очков категории.
func (p *ProfileRepository) Top(ctx context.Context, category string, limit int) ([]user.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: leaderboardField(category), Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := p.users().Find(ctx, bson.M{}, opts)
	if err != nil {
		p.log.Errorf("failed to query leaderboard: %v", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []user.Profile
	if err := cursor.All(ctx, &result); err != nil {
		p.log.Error(err)
		return nil, err
	}

	return result, nil
}

// CountWithMorePoints считает пользователей со строго большим
// количеством очков — позиция в лидерборде это count+1.
func (p *ProfileRepository) CountWithMorePoints(ctx context.Context, category string, points int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := p.users().CountDocuments(ctx, bson.M{leaderboardField(category): bson.M{"$gt": points}})
	if err != nil {
		return 0, fmt.Errorf("failed to count leaderboard position: %w", err)
	}

	return count, nil
}
