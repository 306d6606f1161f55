package user

import (
	"time"

	"codeclash/internal/rank"
)

type Profile struct {
	ID             string    `json:"id" bson:"_id,omitempty"`
	Name           string    `json:"name" bson:"name"`
	CoderName      string    `json:"coder_name,omitempty" bson:"coder_name,omitempty"`
	Email          string    `json:"email" bson:"email"`
	ProfileImage   string    `json:"profile_image,omitempty" bson:"profile_image,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	LastActive     time.Time `json:"last_active" bson:"last_active"`
	Stats          Stats     `json:"stats" bson:"stats"`
	SolvedProblems []int     `json:"solved_problems" bson:"solved_problems"`
	PasswordHash   string    `json:"-" bson:"password_hash"`
}

type Stats struct {
	ProblemsSolved   int    `json:"problems_solved" bson:"problems_solved"`
	CurrentStreak    int    `json:"current_streak" bson:"current_streak"`
	BestStreak       int    `json:"best_streak" bson:"best_streak"`
	AverageSolveTime int    `json:"average_solve_time" bson:"average_solve_time"`
	TotalPoints      int    `json:"total_points" bson:"total_points"`
	TotalRankPoints  int    `json:"total_rank_points" bson:"total_rank_points"`
	RankWins         int    `json:"rank_wins" bson:"rank_wins"`
	RankMatches      int    `json:"rank_matches" bson:"rank_matches"`
	Rank             string `json:"rank" bson:"rank"`
}

// DefaultStats — нулевая статистика нового профиля.
func DefaultStats() Stats {
	return Stats{Rank: rank.TierUnranked}
}

// NewDefaultProfile materializes a profile with zeroed stats. Used both
// on registration and when a read hits a missing document.
func NewDefaultProfile(id string) Profile {
	now := time.Now()
	return Profile{
		ID:             id,
		Name:           "New User",
		CreatedAt:      now,
		LastActive:     now,
		Stats:          DefaultStats(),
		SolvedProblems: []int{},
	}
}

// ProfilePatch — закрытый набор обновляемых полей профиля.
// nil-поле означает "не трогать".
type ProfilePatch struct {
	Name         *string `json:"name,omitempty"`
	CoderName    *string `json:"coder_name,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
}

// MatchReward is applied with atomic increments, never read-modify-write.
type MatchReward struct {
	RankPoints  int
	RankWins    int
	RankMatches int
	Points      int
}
