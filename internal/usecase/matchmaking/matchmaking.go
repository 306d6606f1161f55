package matchmaking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codeclash/internal/domain/match"
	"codeclash/internal/domain/user"
	errs "codeclash/internal/errors"
	"codeclash/internal/statuses"
	profileUC "codeclash/internal/usecase/profile"
)

// Фиксированная схема наград за ранговый матч.
var (
	winnerReward = user.MatchReward{RankPoints: 1, RankWins: 1, RankMatches: 1, Points: 25}
	loserReward  = user.MatchReward{RankMatches: 1, Points: 5}
)

type MatchStore interface {
	FindWaitingCandidate(ctx context.Context, excludeUserID string) (match.QueueEntry, bool, error)
	PutQueueEntry(ctx context.Context, entry match.QueueEntry) error
	DeleteQueueEntry(ctx context.Context, userID string) error
	CreateMatch(ctx context.Context, newMatch match.Match) error
	GetMatch(ctx context.Context, matchID string) (match.Match, error)
	ActiveMatchByUser(ctx context.Context, userID string) (match.Match, bool, error)
	SetMatchStatus(ctx context.Context, matchID string, status string, winner string, endTime *time.Time) error
	PutSubmission(ctx context.Context, matchID string, userID string, sub match.Submission) error
	RecentMatchesByUser(ctx context.Context, userID string, limit int) ([]match.Match, error)
	PublishEvent(ctx context.Context, userID string, event match.Event) error
	SubscribeEvents(ctx context.Context, userID string) (<-chan match.Event, func(), error)
}

type ProblemPicker interface {
	GetRandomID(ctx context.Context, difficulty string) (int, error)
}

type MatchmakingUseCase struct {
	store     MatchStore
	problems  ProblemPicker
	profileUC *profileUC.ProfileUseCase
	log       *zap.SugaredLogger
}

func NewMatchmakingUseCase(store MatchStore, problems ProblemPicker, profiles *profileUC.ProfileUseCase, log *zap.SugaredLogger) *MatchmakingUseCase {
	return &MatchmakingUseCase{
		store:     store,
		problems:  problems,
		profileUC: profiles,
		log:       log,
	}
}

// Join ставит пользователя в очередь либо сразу создаёт матч, если
// в очереди кто-то ждёт. Начинается с идемпотентной зачистки своего
// хвоста: остаться в очереди дважды нельзя.
//
// Атомарности между сканом очереди и созданием матча нет — при
// одновременных Join двух пар возможна гонка. Это принятый риск:
// очередь самовосстанавливается зачисткой в Join и Cancel.
func (m *MatchmakingUseCase) Join(ctx context.Context, userID string) (match.JoinResult, error) {
	if err := m.store.DeleteQueueEntry(ctx, userID); err != nil {
		return match.JoinResult{}, err
	}

	// незавершённый матч пользователя — вернуть его, а не спарить заново
	if active, ok, err := m.store.ActiveMatchByUser(ctx, userID); err != nil {
		return match.JoinResult{}, err
	} else if ok {
		m.log.Infof("user %s rejoins active match %s", userID, active.ID)
		return match.JoinResult{MatchID: active.ID}, nil
	}

	candidate, found, err := m.store.FindWaitingCandidate(ctx, userID)
	if err != nil {
		return match.JoinResult{}, err
	}

	if !found {
		entry := match.QueueEntry{
			UserID:    userID,
			Timestamp: time.Now(),
			Status:    match.QueueStatusWaiting,
		}
		if err := m.store.PutQueueEntry(ctx, entry); err != nil {
			return match.JoinResult{}, err
		}
		m.log.Infof("user %s is waiting for an opponent", userID)
		return match.JoinResult{Waiting: true}, nil
	}

	return m.pair(ctx, candidate.UserID, userID)
}

func (m *MatchmakingUseCase) pair(ctx context.Context, player1 string, player2 string) (match.JoinResult, error) {
	if err := m.store.DeleteQueueEntry(ctx, player1); err != nil {
		return match.JoinResult{}, err
	}
	if err := m.store.DeleteQueueEntry(ctx, player2); err != nil {
		return match.JoinResult{}, err
	}

	problemID, err := m.problems.GetRandomID(ctx, "")
	if err != nil {
		return match.JoinResult{}, fmt.Errorf("failed to pick a problem for the match: %w", err)
	}

	newMatch := match.Match{
		ID:        uuid.New().String(),
		Player1:   player1,
		Player2:   player2,
		ProblemID: problemID,
		StartTime: time.Now(),
		Status:    statuses.StatusMatched,
	}

	if err := m.store.CreateMatch(ctx, newMatch); err != nil {
		return match.JoinResult{}, err
	}

	m.notifyPlayers(ctx, newMatch, match.EventFound)

	return match.JoinResult{MatchID: newMatch.ID}, nil
}

func (m *MatchmakingUseCase) notifyPlayers(ctx context.Context, played match.Match, kind string) {
	event := match.Event{Kind: kind, Match: played}
	for _, playerID := range []string{played.Player1, played.Player2} {
		if err := m.store.PublishEvent(ctx, playerID, event); err != nil {
			// доставка события best-effort, матч уже в базе
			m.log.Errorf("failed to notify %s about match %s: %v", playerID, played.ID, err)
		}
	}
}

// Cancel убирает заявку из очереди. Уже созданный матч не трогает.
func (m *MatchmakingUseCase) Cancel(ctx context.Context, userID string) error {
	return m.store.DeleteQueueEntry(ctx, userID)
}

func (m *MatchmakingUseCase) GetMatch(ctx context.Context, matchID string) (match.Match, error) {
	return m.store.GetMatch(ctx, matchID)
}

func (m *MatchmakingUseCase) RecentMatches(ctx context.Context, userID string, count int) ([]match.Match, error) {
	return m.store.RecentMatchesByUser(ctx, userID, count)
}

// Listen отдаёт поток событий матчей пользователя: ровно одно found
// на первый появившийся матч и updated на каждое его изменение.
// Возвращённая функция останавливает поток, повторный вызов — no-op.
func (m *MatchmakingUseCase) Listen(ctx context.Context, userID string) (<-chan match.Event, func(), error) {
	raw, stop, err := m.store.SubscribeEvents(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan match.Event)
	go func() {
		defer close(out)

		foundSent := false

		// матч мог появиться до подписки
		if active, ok, err := m.store.ActiveMatchByUser(ctx, userID); err != nil {
			m.log.Errorf("listen: failed to check active match for %s: %v", userID, err)
		} else if ok {
			select {
			case out <- match.Event{Kind: match.EventFound, Match: active}:
				foundSent = true
			case <-ctx.Done():
				return
			}
		}

		for event := range raw {
			if event.Kind == match.EventFound {
				if foundSent {
					continue
				}
				foundSent = true
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, stop, nil
}

// SubmitSolution сохраняет решение игрока и переводит матч в
// in_progress при первом решении.
func (m *MatchmakingUseCase) SubmitSolution(ctx context.Context, matchID string, userID string, sub match.Submission) error {
	played, err := m.store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !played.HasPlayer(userID) {
		return errs.ErrNotAParticipant
	}
	if statuses.IsTerminal(played.Status) {
		return errs.ErrBadTransition
	}

	if err := m.store.PutSubmission(ctx, matchID, userID, sub); err != nil {
		return err
	}

	if played.Status == statuses.StatusMatched {
		if err := m.store.SetMatchStatus(ctx, matchID, statuses.StatusInProgress, "", nil); err != nil {
			return err
		}
	}

	updated, err := m.store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	m.notifyPlayers(ctx, updated, match.EventUpdated)

	return nil
}

// Complete завершает матч победой winnerID и запускает начисление
// наград. Повторное завершение отбивается проверкой перехода статуса.
func (m *MatchmakingUseCase) Complete(ctx context.Context, matchID string, winnerID string) error {
	played, err := m.store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !played.HasPlayer(winnerID) {
		return errs.ErrNotAParticipant
	}
	if !statuses.CanTransition(played.Status, statuses.StatusCompleted) {
		return errs.ErrBadTransition
	}

	now := time.Now()
	if err := m.store.SetMatchStatus(ctx, matchID, statuses.StatusCompleted, winnerID, &now); err != nil {
		return err
	}

	played.Status = statuses.StatusCompleted
	played.Winner = winnerID
	played.EndTime = &now
	m.notifyPlayers(ctx, played, match.EventUpdated)

	loserID := played.Player1
	if loserID == winnerID {
		loserID = played.Player2
	}

	return m.ResolveResults(ctx, winnerID, loserID)
}

// CancelMatch переводит матч в cancelled без победителя и наград.
func (m *MatchmakingUseCase) CancelMatch(ctx context.Context, matchID string) error {
	played, err := m.store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !statuses.CanTransition(played.Status, statuses.StatusCancelled) {
		return errs.ErrBadTransition
	}

	now := time.Now()
	if err := m.store.SetMatchStatus(ctx, matchID, statuses.StatusCancelled, "", &now); err != nil {
		return err
	}

	played.Status = statuses.StatusCancelled
	played.EndTime = &now
	m.notifyPlayers(ctx, played, match.EventUpdated)

	return nil
}

// ResolveResults начисляет фиксированные награды и пересчитывает лиги
// обоих участников. Семантика at-least-once: если второе обновление
// упало, первое не откатывается — ретрай на совести вызывающего.
func (m *MatchmakingUseCase) ResolveResults(ctx context.Context, winnerID string, loserID string) error {
	if err := m.profileUC.EnsureProfileWithStats(ctx, winnerID); err != nil {
		return fmt.Errorf("failed to prepare winner profile: %w", err)
	}
	if err := m.profileUC.EnsureProfileWithStats(ctx, loserID); err != nil {
		return fmt.Errorf("failed to prepare loser profile: %w", err)
	}

	if err := m.profileUC.ApplyMatchReward(ctx, winnerID, winnerReward); err != nil {
		return fmt.Errorf("failed to reward winner: %w", err)
	}
	if err := m.profileUC.ApplyMatchReward(ctx, loserID, loserReward); err != nil {
		return fmt.Errorf("failed to reward loser: %w", err)
	}

	if err := m.profileUC.UpdateUserRank(ctx, winnerID); err != nil {
		return err
	}
	if err := m.profileUC.UpdateUserRank(ctx, loserID); err != nil {
		return err
	}

	m.log.Infof("match results resolved: winner %s, loser %s", winnerID, loserID)
	return nil
}
