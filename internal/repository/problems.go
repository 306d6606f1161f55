package repo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"codeclash/internal/bootstrap"
	"codeclash/internal/domain/problem"
	errs "codeclash/internal/errors"
)

type ProblemRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewProblemRepository(cfg bootstrap.Config, log *zap.SugaredLogger, mongo *mongo.Database) *ProblemRepository {
	return &ProblemRepository{
		cfg:   cfg,
		log:   log,
		mongo: mongo,
	}
}

func (p *ProblemRepository) problems() *mongo.Collection {
	return p.mongo.Collection("problems")
}

func (p *ProblemRepository) GetByID(ctx context.Context, problemID int) (problem.Problem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result problem.Problem
	err := p.problems().FindOne(ctx, bson.M{"_id": problemID}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return problem.Problem{}, errs.ErrProblemNotFound
	} else if err != nil {
		p.log.Errorf("failed to get problem %d: %v", problemID, err)
		return problem.Problem{}, err
	}

	return result, nil
}

// GetRandomID выбирает случайную задачу для матча. Пустая difficulty
// означает любую сложность.
func (p *ProblemRepository) GetRandomID(ctx context.Context, difficulty string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if difficulty != "" {
		filter["difficulty"] = difficulty
	}

	count, err := p.problems().CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count problems: %w", err)
	}
	if count == 0 {
		return 0, errs.ErrProblemNotFound
	}

	opts := options.FindOne().SetSkip(rand.Int63n(count))

	var result problem.Problem
	if err := p.problems().FindOne(ctx, filter, opts).Decode(&result); err != nil {
		p.log.Errorf("failed to pick random problem: %v", err)
		return 0, err
	}

	return result.ID, nil
}

// GetProblemsPaginated возвращает страницу задач по уровню сложности.
func (p *ProblemRepository) GetProblemsPaginated(ctx context.Context, difficulty string, pageNum int) (*problem.ProblemsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if difficulty != "" {
		filter["difficulty"] = difficulty
	}

	count, err := p.problems().CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	pageLimit := p.cfg.PageLimitProblems
	totalPages := (int(count) + pageLimit - 1) / pageLimit

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64((pageNum - 1) * pageLimit)).
		SetLimit(int64(pageLimit))

	cursor, err := p.problems().Find(ctx, filter, opts)
	if err != nil {
		p.log.Error(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var problems []problem.Problem
	if err := cursor.All(ctx, &problems); err != nil {
		return nil, err
	}

	return &problem.ProblemsResponse{
		PageNum:    pageNum,
		TotalPages: totalPages,
		Problems:   problems,
	}, nil
}
