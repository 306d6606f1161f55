package matchmaking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"codeclash/internal/domain/match"
	"codeclash/internal/domain/user"
	errs "codeclash/internal/errors"
	"codeclash/internal/rank"
	"codeclash/internal/statuses"
	profileUC "codeclash/internal/usecase/profile"
)

type fakeMatchStore struct {
	mu          sync.Mutex
	queue       map[string]match.QueueEntry
	matches     map[string]match.Match
	subscribers map[string][]chan match.Event
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{
		queue:       make(map[string]match.QueueEntry),
		matches:     make(map[string]match.Match),
		subscribers: make(map[string][]chan match.Event),
	}
}

func (f *fakeMatchStore) FindWaitingCandidate(_ context.Context, excludeUserID string) (match.QueueEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best match.QueueEntry
	found := false
	for _, entry := range f.queue {
		if entry.UserID == excludeUserID || entry.Status != match.QueueStatusWaiting {
			continue
		}
		if !found || entry.Timestamp.Before(best.Timestamp) {
			best = entry
			found = true
		}
	}
	return best, found, nil
}

func (f *fakeMatchStore) PutQueueEntry(_ context.Context, entry match.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[entry.UserID] = entry
	return nil
}

func (f *fakeMatchStore) DeleteQueueEntry(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.queue, userID)
	return nil
}

func (f *fakeMatchStore) CreateMatch(_ context.Context, newMatch match.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[newMatch.ID] = newMatch
	return nil
}

func (f *fakeMatchStore) GetMatch(_ context.Context, matchID string) (match.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return match.Match{}, errs.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeMatchStore) ActiveMatchByUser(_ context.Context, userID string) (match.Match, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.HasPlayer(userID) && !statuses.IsTerminal(m.Status) {
			return m, true, nil
		}
	}
	return match.Match{}, false, nil
}

func (f *fakeMatchStore) SetMatchStatus(_ context.Context, matchID string, status string, winner string, endTime *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return errs.ErrMatchNotFound
	}
	m.Status = status
	if winner != "" {
		m.Winner = winner
	}
	if endTime != nil {
		m.EndTime = endTime
	}
	f.matches[matchID] = m
	return nil
}

func (f *fakeMatchStore) PutSubmission(_ context.Context, matchID string, userID string, sub match.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return errs.ErrMatchNotFound
	}
	if m.Submissions == nil {
		m.Submissions = make(map[string]match.Submission)
	}
	m.Submissions[userID] = sub
	f.matches[matchID] = m
	return nil
}

func (f *fakeMatchStore) RecentMatchesByUser(_ context.Context, userID string, limit int) ([]match.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []match.Match
	for _, m := range f.matches {
		if m.HasPlayer(userID) {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMatchStore) PublishEvent(_ context.Context, userID string, event match.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (f *fakeMatchStore) SubscribeEvents(_ context.Context, userID string) (<-chan match.Event, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan match.Event, 16)
	f.subscribers[userID] = append(f.subscribers[userID], ch)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			subs := f.subscribers[userID]
			for i, sub := range subs {
				if sub == ch {
					f.subscribers[userID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, stop, nil
}

type fakePicker struct{ problemID int }

func (f *fakePicker) GetRandomID(_ context.Context, _ string) (int, error) {
	return f.problemID, nil
}

// mmProfileStore — урезанный in-memory аналог пользовательской
// коллекции для проверки начисления наград.
type mmProfileStore struct {
	mu       sync.Mutex
	profiles map[string]user.Profile
}

func newMMProfileStore() *mmProfileStore {
	return &mmProfileStore{profiles: make(map[string]user.Profile)}
}

func (s *mmProfileStore) GetByID(_ context.Context, userID string) (user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return user.Profile{}, errs.ErrUserNotFound
	}
	return p, nil
}

func (s *mmProfileStore) Create(_ context.Context, profile user.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
	return nil
}

func (s *mmProfileStore) Update(_ context.Context, userID string, patch user.ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; !ok {
		return errs.ErrUserNotFound
	}
	return nil
}

func (s *mmProfileStore) EnsureStats(_ context.Context, _ string) error { return nil }

func (s *mmProfileStore) AddSolvedProblem(_ context.Context, userID string, problemID int, newCount int, newAvgTime int, pointsDelta int) error {
	return nil
}

func (s *mmProfileStore) ApplyReward(_ context.Context, userID string, reward user.MatchReward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return errs.ErrUserNotFound
	}
	p.Stats.TotalRankPoints += reward.RankPoints
	p.Stats.RankWins += reward.RankWins
	p.Stats.RankMatches += reward.RankMatches
	p.Stats.TotalPoints += reward.Points
	s.profiles[userID] = p
	return nil
}

func (s *mmProfileStore) SetRank(_ context.Context, userID string, rankName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return errs.ErrUserNotFound
	}
	p.Stats.Rank = rankName
	s.profiles[userID] = p
	return nil
}

func newTestUseCase() (*MatchmakingUseCase, *fakeMatchStore, *mmProfileStore) {
	store := newFakeMatchStore()
	profiles := newMMProfileStore()
	log := zap.NewNop().Sugar()
	profilesUC := profileUC.NewProfileUseCase(profiles, nil, log)
	uc := NewMatchmakingUseCase(store, &fakePicker{problemID: 17}, profilesUC, log)
	return uc, store, profiles
}

func recvEvent(t *testing.T, events <-chan match.Event) match.Event {
	t.Helper()
	select {
	case event, ok := <-events:
		require.True(t, ok, "event stream closed unexpectedly")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a match event")
		return match.Event{}
	}
}

func TestJoin_FirstUserWaits(t *testing.T) {
	uc, store, _ := newTestUseCase()

	res, err := uc.Join(context.Background(), "alice")
	require.NoError(t, err)

	assert.True(t, res.Waiting)
	assert.Empty(t, res.MatchID)
	assert.Contains(t, store.queue, "alice")
}

func TestJoin_SecondUserPairs(t *testing.T) {
	uc, store, _ := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)

	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	require.False(t, res.Waiting)
	require.NotEmpty(t, res.MatchID)

	created, err := uc.GetMatch(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Player1)
	assert.Equal(t, "bob", created.Player2)
	assert.Equal(t, 17, created.ProblemID)
	assert.Equal(t, statuses.StatusMatched, created.Status)

	// очередь после спаривания пуста
	assert.Empty(t, store.queue)
}

func TestJoin_TwiceSameUserStaysSingle(t *testing.T) {
	uc, store, _ := newTestUseCase()
	ctx := context.Background()

	first, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	second, err := uc.Join(ctx, "alice")
	require.NoError(t, err)

	assert.True(t, first.Waiting)
	assert.True(t, second.Waiting, "user must never be paired with themselves")
	assert.Len(t, store.queue, 1)
}

func TestJoin_ReturnsActiveMatch(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	rejoin, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, res.MatchID, rejoin.MatchID, "rejoin must return the running match, not create a new one")
}

func TestCancel_Idempotent(t *testing.T) {
	uc, store, _ := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, uc.Cancel(ctx, "alice"))
	require.NoError(t, uc.Cancel(ctx, "alice"), "cancelling an absent entry is not an error")
	assert.Empty(t, store.queue)
}

func TestSubmitSolution_MovesMatchInProgress(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	sub := match.Submission{Code: "print(1)", Language: "python", SubmissionTime: time.Now()}
	require.NoError(t, uc.SubmitSolution(ctx, res.MatchID, "alice", sub))

	updated, err := uc.GetMatch(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, statuses.StatusInProgress, updated.Status)
	assert.Contains(t, updated.Submissions, "alice")

	// второе решение статус не двигает
	require.NoError(t, uc.SubmitSolution(ctx, res.MatchID, "bob", sub))
	updated, err = uc.GetMatch(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, statuses.StatusInProgress, updated.Status)
}

func TestSubmitSolution_RejectsOutsiderAndFinished(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	sub := match.Submission{Code: "x", Language: "go"}
	assert.ErrorIs(t, uc.SubmitSolution(ctx, res.MatchID, "mallory", sub), errs.ErrNotAParticipant)

	require.NoError(t, uc.Complete(ctx, res.MatchID, "alice"))
	assert.ErrorIs(t, uc.SubmitSolution(ctx, res.MatchID, "alice", sub), errs.ErrBadTransition)
}

func TestComplete_AppliesRewardSchedule(t *testing.T) {
	uc, _, profiles := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, uc.Complete(ctx, res.MatchID, "alice"))

	finished, err := uc.GetMatch(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, statuses.StatusCompleted, finished.Status)
	assert.Equal(t, "alice", finished.Winner)
	require.NotNil(t, finished.EndTime)

	winner := profiles.profiles["alice"]
	assert.Equal(t, 1, winner.Stats.TotalRankPoints)
	assert.Equal(t, 1, winner.Stats.RankWins)
	assert.Equal(t, 1, winner.Stats.RankMatches)
	assert.Equal(t, 25, winner.Stats.TotalPoints)
	assert.Equal(t, rank.TierBronze, winner.Stats.Rank)

	loser := profiles.profiles["bob"]
	assert.Equal(t, 0, loser.Stats.TotalRankPoints)
	assert.Equal(t, 0, loser.Stats.RankWins)
	assert.Equal(t, 1, loser.Stats.RankMatches)
	assert.Equal(t, 5, loser.Stats.TotalPoints)
	assert.Equal(t, rank.TierUnranked, loser.Stats.Rank)
}

func TestComplete_SecondCompletionRejected(t *testing.T) {
	uc, _, profiles := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, uc.Complete(ctx, res.MatchID, "alice"))
	assert.ErrorIs(t, uc.Complete(ctx, res.MatchID, "bob"), errs.ErrBadTransition)

	// награды начислены ровно один раз
	assert.Equal(t, 1, profiles.profiles["alice"].Stats.RankMatches)
	assert.Equal(t, 1, profiles.profiles["bob"].Stats.RankMatches)
}

func TestComplete_WinnerMustParticipate(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	assert.ErrorIs(t, uc.Complete(ctx, res.MatchID, "mallory"), errs.ErrNotAParticipant)
}

func TestCancelMatch_NoRewards(t *testing.T) {
	uc, _, profiles := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, uc.CancelMatch(ctx, res.MatchID))

	cancelled, err := uc.GetMatch(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, statuses.StatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.Winner)
	assert.Empty(t, profiles.profiles, "cancelled match must not touch profiles")

	assert.ErrorIs(t, uc.CancelMatch(ctx, res.MatchID), errs.ErrBadTransition)
}

func TestListen_FoundThenUpdated(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)

	events, stop, err := uc.Listen(ctx, "alice")
	require.NoError(t, err)
	defer stop()

	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	found := recvEvent(t, events)
	assert.Equal(t, match.EventFound, found.Kind)
	assert.Equal(t, res.MatchID, found.Match.ID)

	sub := match.Submission{Code: "solve()", Language: "go", SubmissionTime: time.Now()}
	require.NoError(t, uc.SubmitSolution(ctx, res.MatchID, "bob", sub))

	updated := recvEvent(t, events)
	assert.Equal(t, match.EventUpdated, updated.Kind)
	assert.Equal(t, statuses.StatusInProgress, updated.Match.Status)
}

func TestListen_ExistingMatchYieldsSingleFound(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := uc.Join(ctx, "alice")
	require.NoError(t, err)
	res, err := uc.Join(ctx, "bob")
	require.NoError(t, err)

	// подписка после создания матча: found синтезируется из базы
	events, stop, err := uc.Listen(ctx, "alice")
	require.NoError(t, err)
	defer stop()

	found := recvEvent(t, events)
	assert.Equal(t, match.EventFound, found.Kind)
	assert.Equal(t, res.MatchID, found.Match.ID)

	require.NoError(t, uc.Complete(ctx, res.MatchID, "bob"))

	next := recvEvent(t, events)
	assert.Equal(t, match.EventUpdated, next.Kind, "duplicate found must be suppressed")
	assert.Equal(t, statuses.StatusCompleted, next.Match.Status)
}

func TestListen_StopIsIdempotent(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	_, stop, err := uc.Listen(ctx, "alice")
	require.NoError(t, err)

	stop()
	stop()
}
