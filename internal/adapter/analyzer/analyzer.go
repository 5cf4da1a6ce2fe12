package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github-cv-curator/internal/adapter/scorer"
	"github-cv-curator/internal/domain"
	"github-cv-curator/internal/port"
)

// RepoAnalyzer scores a batch of repositories with a bounded worker pool.
type RepoAnalyzer struct {
	scorer         port.Scorer
	maxGoroutines  int // 最大并发数
	perRepoTimeout time.Duration
	logger         *zap.Logger
	nowFunc        func() time.Time
}

// NewRepoAnalyzer 创建新的分析器实例
func NewRepoAnalyzer(scorer port.Scorer, logger *zap.Logger) *RepoAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepoAnalyzer{
		scorer:         scorer,
		maxGoroutines:  4,
		perRepoTimeout: 30 * time.Second,
		logger:         logger,
		nowFunc:        time.Now,
	}
}

// SetMaxGoroutines 设置最大并发数
func (a *RepoAnalyzer) SetMaxGoroutines(max int) {
	if max > 0 {
		a.maxGoroutines = max
	}
}

// SetPerRepoTimeout bounds a single Score call.
func (a *RepoAnalyzer) SetPerRepoTimeout(d time.Duration) {
	if d > 0 {
		a.perRepoTimeout = d
	}
}

type job struct {
	index int
	fact  domain.RepositoryFact
}

type result struct {
	index  int
	scored domain.ScoredRepository
	err    error
}

// scoreWorker 工作协程，处理单个repo的评分
func (a *RepoAnalyzer) scoreWorker(
	ctx context.Context,
	req domain.JobRequirement,
	jobs <-chan job,
	results chan<- result,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for j := range jobs {
		if ctx.Err() != nil {
			results <- result{index: j.index, err: ctx.Err()}
			continue
		}

		repoCtx, cancel := context.WithTimeout(ctx, a.perRepoTimeout)
		scored, err := a.scorer.Score(repoCtx, j.fact, req)
		cancel()

		if err != nil {
			a.logger.Warn("scoring failed",
				zap.Int("worker", workerID),
				zap.String("repo_id", j.fact.ID),
				zap.Error(err))
			results <- result{index: j.index, err: err}
			continue
		}

		a.logger.Debug("repository scored",
			zap.Int("worker", workerID),
			zap.String("repo_id", j.fact.ID),
			zap.Float64("score", scored.Score))
		results <- result{index: j.index, scored: scored}
	}
}

// ScoreAll scores every fact against req in parallel. The returned slice keeps
// the input order whatever order the workers finish in; repositories whose
// scoring failed are left out and reported as failures instead.
func (a *RepoAnalyzer) ScoreAll(ctx context.Context, facts []domain.RepositoryFact, req domain.JobRequirement) ([]domain.ScoredRepository, []domain.RecordFailure, error) {
	if len(facts) == 0 {
		return nil, nil, nil
	}

	// one reference time for the whole batch, so equal facts score equal
	if _, ok := scorer.ReferenceTime(ctx); !ok {
		ctx = scorer.WithReferenceTime(ctx, a.nowFunc())
	}

	workers := a.maxGoroutines
	if workers > len(facts) {
		workers = len(facts)
	}
	a.logger.Info("scoring repositories",
		zap.String("scorer", a.scorer.Name()),
		zap.Int("count", len(facts)),
		zap.Int("workers", workers))

	jobs := make(chan job, len(facts))
	results := make(chan result, len(facts))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go a.scoreWorker(ctx, req, jobs, results, &wg, i+1)
	}

	for i, f := range facts {
		jobs <- job{index: i, fact: f}
	}
	close(jobs)

	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("scoring interrupted: %w", err)
	}

	ordered := make([]*result, len(facts))
	for r := range results {
		r := r
		ordered[r.index] = &r
	}

	scored := make([]domain.ScoredRepository, 0, len(facts))
	var failures []domain.RecordFailure
	for i, r := range ordered {
		if r.err != nil {
			failures = append(failures, domain.RecordFailure{ID: facts[i].ID, Stage: domain.StageScore, Reason: r.err.Error()})
			continue
		}
		scored = append(scored, r.scored)
	}
	return scored, failures, nil
}
