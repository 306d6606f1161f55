package problems

import (
	"context"

	"codeclash/internal/domain/problem"
)

type ProblemStore interface {
	GetByID(ctx context.Context, problemID int) (problem.Problem, error)
	GetRandomID(ctx context.Context, difficulty string) (int, error)
	GetProblemsPaginated(ctx context.Context, difficulty string, pageNum int) (*problem.ProblemsResponse, error)
}

type ProblemUseCase struct {
	problemStore ProblemStore
}

func NewProblemUseCase(problemStore ProblemStore) *ProblemUseCase {
	return &ProblemUseCase{problemStore: problemStore}
}

func (p *ProblemUseCase) GetProblemByID(ctx context.Context, problemID int) (problem.Problem, error) {
	return p.problemStore.GetByID(ctx, problemID)
}

func (p *ProblemUseCase) GetProblemsByDifficultyByPage(ctx context.Context, difficulty string, pageNum int) (*problem.ProblemsResponse, error) {
	return p.problemStore.GetProblemsPaginated(ctx, difficulty, pageNum)
}
