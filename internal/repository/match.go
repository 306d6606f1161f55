package repo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"codeclash/internal/bootstrap"
	"codeclash/internal/domain/match"
	errs "codeclash/internal/errors"
)

const matchEventsChannelPrefix = "match_events:"

type MatchRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewMatchRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *MatchRepository {
	return &MatchRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

func (m *MatchRepository) queue() *mongo.Collection {
	return m.mongo.Collection("match_queue")
}

func (m *MatchRepository) matches() *mongo.Collection {
	return m.mongo.Collection("matches")
}

// FindWaitingCandidate ищет самую старую ожидающую заявку чужого
// пользователя. Второе значение false — очередь пуста.
func (m *MatchRepository) FindWaitingCandidate(ctx context.Context, excludeUserID string) (match.QueueEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"_id":    bson.M{"$ne": excludeUserID},
		"status": match.QueueStatusWaiting,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	var entry match.QueueEntry
	err := m.queue().FindOne(ctx, filter, opts).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return match.QueueEntry{}, false, nil
	} else if err != nil {
		m.log.Errorf("failed to scan match queue: %v", err)
		return match.QueueEntry{}, false, err
	}

	return entry, true, nil
}

// PutQueueEntry — upsert по _id, поэтому на пользователя не бывает
// больше одной записи.
func (m *MatchRepository) PutQueueEntry(ctx context.Context, entry match.QueueEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := m.queue().ReplaceOne(ctx, bson.M{"_id": entry.UserID}, entry, opts)
	if err != nil {
		m.log.Errorf("failed to put queue entry for %s: %v", entry.UserID, err)
		return err
	}

	return nil
}

// DeleteQueueEntry идемпотентна: отсутствие записи не ошибка.
func (m *MatchRepository) DeleteQueueEntry(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.queue().DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		m.log.Errorf("failed to delete queue entry for %s: %v", userID, err)
		return err
	}

	return nil
}

func (m *MatchRepository) CreateMatch(ctx context.Context, newMatch match.Match) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.matches().InsertOne(ctx, newMatch)
	if err != nil {
		m.log.Errorf("failed to insert match %s: %v", newMatch.ID, err)
		return err
	}

	m.log.Infof("match %s created: %s vs %s", newMatch.ID, newMatch.Player1, newMatch.Player2)
	return nil
}

func (m *MatchRepository) GetMatch(ctx context.Context, matchID string) (match.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result match.Match
	err := m.matches().FindOne(ctx, bson.M{"_id": matchID}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return match.Match{}, errs.ErrMatchNotFound
	} else if err != nil {
		m.log.Errorf("failed to get match %s: %v", matchID, err)
		return match.Match{}, err
	}

	return result, nil
}

// ActiveMatchByUser возвращает незавершённый матч пользователя,
// если такой есть.
func (m *MatchRepository) ActiveMatchByUser(ctx context.Context, userID string) (match.Match, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"$and": []bson.M{
			{
				"$or": []bson.M{
					{"player1": userID},
					{"player2": userID},
				},
			},
			{
				"status": bson.M{"$nin": []string{"completed", "cancelled"}},
			},
		},
	}

	var result match.Match
	err := m.matches().FindOne(ctx, filter).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return match.Match{}, false, nil
	} else if err != nil {
		m.log.Error(err)
		return match.Match{}, false, err
	}

	return result, true, nil
}

func (m *MatchRepository) SetMatchStatus(ctx context.Context, matchID string, status string, winner string, endTime *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": status}
	if winner != "" {
		set["winner"] = winner
	}
	if endTime != nil {
		set["end_time"] = *endTime
	}

	res, err := m.matches().UpdateOne(ctx, bson.M{"_id": matchID}, bson.M{"$set": set})
	if err != nil {
		m.log.Errorf("failed to update status of match %s: %v", matchID, err)
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrMatchNotFound
	}

	return nil
}

func (m *MatchRepository) PutSubmission(ctx context.Context, matchID string, userID string, sub match.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"submissions." + userID: sub},
	}

	res, err := m.matches().UpdateOne(ctx, bson.M{"_id": matchID}, update)
	if err != nil {
		m.log.Errorf("failed to store submission for match %s: %v", matchID, err)
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrMatchNotFound
	}

	return nil
}

// RecentMatchesByUser — матчи пользователя в любой из двух ролей,
// свежие первыми.
func (m *MatchRepository) RecentMatchesByUser(ctx context.Context, userID string, limit int) ([]match.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"$or": []bson.M{
			{"player1": userID},
			{"player2": userID},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.matches().Find(ctx, filter, opts)
	if err != nil {
		m.log.Errorf("failed to query recent matches for %s: %v", userID, err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []match.Match
	if err := cursor.All(ctx, &result); err != nil {
		m.log.Error(err)
		return nil, err
	}

	return result, nil
}

// PublishEvent рассылает событие матча в канал пользователя.
func (m *MatchRepository) PublishEvent(ctx context.Context, userID string, event match.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := m.redis.Publish(ctx, matchEventsChannelPrefix+userID, payload).Err(); err != nil {
		m.log.Errorf("failed to publish match event for %s: %v", userID, err)
		return err
	}

	return nil
}

// SubscribeEvents подписывается на события матчей пользователя.
// Возвращённая функция останавливает подписку и закрывает канал;
// повторный вызов безопасен.
func (m *MatchRepository) SubscribeEvents(ctx context.Context, userID string) (<-chan match.Event, func(), error) {
	pubsub := m.redis.Subscribe(ctx, matchEventsChannelPrefix+userID)

	// дождаться подтверждения подписки, чтобы не потерять ранние события
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	events := make(chan match.Event)
	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event match.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				m.log.Errorf("malformed match event for %s: %v", userID, err)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			if err := pubsub.Close(); err != nil {
				m.log.Error(err)
			}
		})
	}

	return events, stop, nil
}
