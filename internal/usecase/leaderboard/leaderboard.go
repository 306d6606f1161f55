package leaderboard

import (
	"context"
	"fmt"

	"codeclash/internal/domain/user"
)

// Категории лидерборда: суммарные очки или ранговые очки.
const (
	CategoryGlobal     = "global"
	CategoryRankPoints = "rankPoints"
)

type Entry struct {
	Position  int        `json:"position"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	CoderName string     `json:"coder_name,omitempty"`
	Stats     user.Stats `json:"stats"`
}

type LeaderboardStore interface {
	GetByID(ctx context.Context, userID string) (user.Profile, error)
	Top(ctx context.Context, category string, limit int) ([]user.Profile, error)
	CountWithMorePoints(ctx context.Context, category string, points int) (int64, error)
}

type LeaderboardUseCase struct {
	store LeaderboardStore
}

func NewLeaderboardUseCase(store LeaderboardStore) *LeaderboardUseCase {
	return &LeaderboardUseCase{store: store}
}

// Top возвращает первые limit профилей категории с позициями от 1.
func (l *LeaderboardUseCase) Top(ctx context.Context, category string, limit int) ([]Entry, error) {
	profiles, err := l.store.Top(ctx, category, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(profiles))
	for i, p := range profiles {
		name := p.Name
		if name == "" {
			name = "Anonymous"
		}
		entries = append(entries, Entry{
			Position:  i + 1,
			UserID:    p.ID,
			Name:      name,
			CoderName: p.CoderName,
			Stats:     p.Stats,
		})
	}

	return entries, nil
}

// UserPosition — позиция пользователя: число игроков со строго
// большим количеством очков плюс один.
func (l *LeaderboardUseCase) UserPosition(ctx context.Context, userID string, category string) (int, error) {
	profile, err := l.store.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user for position: %w", err)
	}

	points := profile.Stats.TotalPoints
	if category == CategoryRankPoints {
		points = profile.Stats.TotalRankPoints
	}

	higher, err := l.store.CountWithMorePoints(ctx, category, points)
	if err != nil {
		return 0, err
	}

	return int(higher) + 1, nil
}
