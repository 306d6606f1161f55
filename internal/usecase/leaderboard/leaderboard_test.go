package leaderboard

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeclash/internal/domain/user"
	errs "codeclash/internal/errors"
)

type fakeLeaderboardStore struct {
	profiles map[string]user.Profile
}

func (f *fakeLeaderboardStore) points(p user.Profile, category string) int {
	if category == CategoryRankPoints {
		return p.Stats.TotalRankPoints
	}
	return p.Stats.TotalPoints
}

func (f *fakeLeaderboardStore) GetByID(_ context.Context, userID string) (user.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return user.Profile{}, errs.ErrUserNotFound
	}
	return p, nil
}

func (f *fakeLeaderboardStore) Top(_ context.Context, category string, limit int) ([]user.Profile, error) {
	all := make([]user.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return f.points(all[i], category) > f.points(all[j], category)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeLeaderboardStore) CountWithMorePoints(_ context.Context, category string, points int) (int64, error) {
	var n int64
	for _, p := range f.profiles {
		if f.points(p, category) > points {
			n++
		}
	}
	return n, nil
}

func seedStore() *fakeLeaderboardStore {
	return &fakeLeaderboardStore{profiles: map[string]user.Profile{
		"a": {ID: "a", Name: "Alpha", Stats: user.Stats{TotalPoints: 300, TotalRankPoints: 10}},
		"b": {ID: "b", Name: "Bravo", Stats: user.Stats{TotalPoints: 200, TotalRankPoints: 90}},
		"c": {ID: "c", Name: "", Stats: user.Stats{TotalPoints: 100, TotalRankPoints: 50}},
	}}
}

func TestTop_GlobalOrderingAndPositions(t *testing.T) {
	uc := NewLeaderboardUseCase(seedStore())

	entries, err := uc.Top(context.Background(), CategoryGlobal, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].UserID, entries[1].UserID, entries[2].UserID})
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 2, entries[1].Position)
	assert.Equal(t, 3, entries[2].Position)
	assert.Equal(t, "Anonymous", entries[2].Name, "empty names are masked")
}

func TestTop_RankPointsCategoryAndLimit(t *testing.T) {
	uc := NewLeaderboardUseCase(seedStore())

	entries, err := uc.Top(context.Background(), CategoryRankPoints, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "b", entries[0].UserID)
	assert.Equal(t, "c", entries[1].UserID)
}

func TestUserPosition(t *testing.T) {
	uc := NewLeaderboardUseCase(seedStore())

	pos, err := uc.UserPosition(context.Background(), "c", CategoryGlobal)
	require.NoError(t, err)
	assert.Equal(t, 3, pos)

	pos, err = uc.UserPosition(context.Background(), "b", CategoryRankPoints)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	_, err = uc.UserPosition(context.Background(), "ghost", CategoryGlobal)
	assert.ErrorIs(t, err, errs.ErrUserNotFound)
}
