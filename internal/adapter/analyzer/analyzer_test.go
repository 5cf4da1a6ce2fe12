package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-cv-curator/internal/adapter/scorer"
	"github-cv-curator/internal/adapter/selector"
	"github-cv-curator/internal/domain"
)

// MockScorer 模拟Scorer接口
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Name() string { return "mock" }

func (m *MockScorer) Score(ctx context.Context, fact domain.RepositoryFact, req domain.JobRequirement) (domain.ScoredRepository, error) {
	args := m.Called(ctx, fact, req)
	if fn, ok := args.Get(0).(func(domain.RepositoryFact) domain.ScoredRepository); ok {
		return fn(fact), args.Error(1)
	}
	return args.Get(0).(domain.ScoredRepository), args.Error(1)
}

// slowScorer finishes later for earlier inputs so completion order is reversed.
type slowScorer struct{}

func (slowScorer) Name() string { return "slow" }

func (slowScorer) Score(_ context.Context, fact domain.RepositoryFact, _ domain.JobRequirement) (domain.ScoredRepository, error) {
	time.Sleep(time.Duration(10-fact.Stars) * time.Millisecond)
	return domain.ScoredRepository{Fact: fact, Score: float64(fact.Stars)}, nil
}

func facts(n int) []domain.RepositoryFact {
	out := make([]domain.RepositoryFact, n)
	for i := range out {
		out[i] = domain.RepositoryFact{ID: fmt.Sprintf("octo/r%d", i), Stars: i, Languages: map[string]int{"Go": 1}}
	}
	return out
}

func TestRepoAnalyzer_ScoreAll(t *testing.T) {
	req := domain.JobRequirement{RequiredSkills: []string{"go"}}

	tests := []struct {
		name      string
		facts     []domain.RepositoryFact
		setupMock func(*MockScorer)
		verify    func(*testing.T, []domain.ScoredRepository, []domain.RecordFailure, error)
	}{
		{
			name:  "all succeed",
			facts: facts(3),
			setupMock: func(m *MockScorer) {
				m.On("Score", mock.Anything, mock.Anything, req).Return(domain.ScoredRepository{Score: 5}, nil).Times(3)
			},
			verify: func(t *testing.T, scored []domain.ScoredRepository, failures []domain.RecordFailure, err error) {
				require.NoError(t, err)
				assert.Len(t, scored, 3)
				assert.Empty(t, failures)
			},
		},
		{
			name:  "failed record is reported not zero scored",
			facts: facts(3),
			setupMock: func(m *MockScorer) {
				m.On("Score", mock.Anything, mock.MatchedBy(func(f domain.RepositoryFact) bool { return f.ID == "octo/r1" }), req).
					Return(domain.ScoredRepository{}, errors.New("llm quota exceeded"))
				m.On("Score", mock.Anything, mock.Anything, req).
					Return(func(f domain.RepositoryFact) domain.ScoredRepository {
						return domain.ScoredRepository{Fact: f, Score: 1}
					}, nil)
			},
			verify: func(t *testing.T, scored []domain.ScoredRepository, failures []domain.RecordFailure, err error) {
				require.NoError(t, err)
				require.Len(t, scored, 2)
				assert.Equal(t, "octo/r0", scored[0].ID())
				assert.Equal(t, "octo/r2", scored[1].ID())
				require.Len(t, failures, 1)
				assert.Equal(t, "octo/r1", failures[0].ID)
				assert.Equal(t, domain.StageScore, failures[0].Stage)
				assert.Contains(t, failures[0].Reason, "quota")
			},
		},
		{
			name:      "empty input",
			facts:     nil,
			setupMock: func(m *MockScorer) {},
			verify: func(t *testing.T, scored []domain.ScoredRepository, failures []domain.RecordFailure, err error) {
				assert.NoError(t, err)
				assert.Empty(t, scored)
				assert.Empty(t, failures)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockScorer)
			tt.setupMock(m)

			a := NewRepoAnalyzer(m, nil)
			a.SetMaxGoroutines(2)
			scored, failures, err := a.ScoreAll(context.Background(), tt.facts, req)
			tt.verify(t, scored, failures, err)
			m.AssertExpectations(t)
		})
	}
}

func TestRepoAnalyzer_ScoreAll_OrderIndependentOfCompletion(t *testing.T) {
	a := NewRepoAnalyzer(slowScorer{}, nil)
	a.SetMaxGoroutines(10)

	in := facts(10)
	scored, failures, err := a.ScoreAll(context.Background(), in, domain.JobRequirement{})
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, scored, len(in))
	for i := range in {
		assert.Equal(t, in[i].ID, scored[i].ID())
	}
}

func TestRepoAnalyzer_ScoreAll_MatchesSequential(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s, err := scorer.New(nil, scorer.DefaultWeights(), scorer.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	req := domain.JobRequirement{RequiredSkills: []string{"go", "docker"}}

	in := facts(25)
	a := NewRepoAnalyzer(s, nil)
	a.SetMaxGoroutines(8)
	parallel, _, err := a.ScoreAll(context.Background(), in, req)
	require.NoError(t, err)

	for i, f := range in {
		assert.Equal(t, s.Evaluate(f, req), parallel[i])
	}
}

func TestRepoAnalyzer_ScoreAll_SharedReferenceTime(t *testing.T) {
	// 默认时钟：同一批次内更新时间相同的仓库必须得到相同的时效分
	s, err := scorer.New(nil, scorer.DefaultWeights())
	require.NoError(t, err)
	req := domain.JobRequirement{RequiredSkills: []string{"go"}}

	updated := time.Now().Add(-200 * 24 * time.Hour)
	in := []domain.RepositoryFact{
		{ID: "a/few", Languages: map[string]int{"Go": 100}, Stars: 5, Forks: 10, UpdatedAt: updated},
		{ID: "b/many", Languages: map[string]int{"Go": 100}, Stars: 10, Forks: 5, UpdatedAt: updated},
	}

	a := NewRepoAnalyzer(s, nil)
	a.SetMaxGoroutines(2)
	for i := 0; i < 20; i++ {
		scored, failures, err := a.ScoreAll(context.Background(), in, req)
		require.NoError(t, err)
		require.Empty(t, failures)
		require.Len(t, scored, 2)

		assert.Equal(t, scored[0].Factors[domain.FactorRecency], scored[1].Factors[domain.FactorRecency])
		assert.Equal(t, scored[0].Score, scored[1].Score)

		sel, err := selector.New().Select(scored, 1, false)
		require.NoError(t, err)
		require.Len(t, sel.Entries, 1)
		assert.Equal(t, "b/many", sel.Entries[0].Repository.ID(), "equal scores fall back to stars")
	}
}

func TestRepoAnalyzer_ScoreAll_KeepsCallerReferenceTime(t *testing.T) {
	s, err := scorer.New(nil, scorer.DefaultWeights())
	require.NoError(t, err)

	pinned := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	fact := domain.RepositoryFact{ID: "a/b", Languages: map[string]int{"Go": 1}, UpdatedAt: pinned}
	scored, _, err := NewRepoAnalyzer(s, nil).ScoreAll(scorer.WithReferenceTime(context.Background(), pinned), []domain.RepositoryFact{fact}, domain.JobRequirement{})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, 1.0, scored[0].Factors[domain.FactorRecency])
}

func TestRepoAnalyzer_ScoreAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewRepoAnalyzer(slowScorer{}, nil).ScoreAll(ctx, facts(3), domain.JobRequirement{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepoAnalyzer_Setters(t *testing.T) {
	a := NewRepoAnalyzer(slowScorer{}, nil)
	a.SetMaxGoroutines(0)
	a.SetPerRepoTimeout(0)
	assert.Equal(t, 4, a.maxGoroutines)
	assert.Equal(t, 30*time.Second, a.perRepoTimeout)

	a.SetMaxGoroutines(7)
	a.SetPerRepoTimeout(time.Second)
	assert.Equal(t, 7, a.maxGoroutines)
	assert.Equal(t, time.Second, a.perRepoTimeout)
}
