package scorer

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-cv-curator/internal/domain"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestScorer(t *testing.T, w Weights) *Scorer {
	t.Helper()
	s, err := New(nil, w, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return s
}

func pythonRepo() domain.RepositoryFact {
	return domain.RepositoryFact{
		ID:         "octo/pyrepo",
		Languages:  map[string]int{"Python": 1000},
		Stars:      50,
		UpdatedAt:  fixedNow,
		ReadmeText: strings.Repeat("a", 3000),
	}
}

func TestScore_PartialRequiredMatch(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())
	req := domain.JobRequirement{
		RequiredSkills:  []string{"python", "docker"},
		PreferredSkills: []string{"kubernetes"},
	}

	got, err := s.Score(context.Background(), pythonRepo(), req)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, got.Factors[domain.FactorSkillMatch], 1e-12)
	assert.InDelta(t, math.Log10(51)/3, got.Factors[domain.FactorPopularity], 1e-12)
	assert.Equal(t, 1.0, got.Factors[domain.FactorRecency])
	assert.Equal(t, 1.0, got.Factors[domain.FactorDocumentation])

	expected := 10 * (0.5*0.5 + 0.2*math.Log10(51)/3 + 0.2 + 0.1)
	assert.InDelta(t, expected, got.Score, 1e-9)
	assert.Equal(t, []string{"python"}, got.MatchedRequired)
	assert.Empty(t, got.MatchedPreferred)

	var sum float64
	for _, name := range domain.FactorOrder {
		sum += got.Breakdown[name]
	}
	assert.InDelta(t, got.Score, sum, 1e-9)
	assert.InDelta(t, 2.5, got.Breakdown[domain.FactorSkillMatch], 1e-12)
}

func TestScore_Deterministic(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())
	fact := pythonRepo()
	fact.Topics = []string{"docker", "fastapi"}
	fact.Description = "FastAPI service with Redis"
	req := domain.JobRequirement{RequiredSkills: []string{"python", "redis"}, PreferredSkills: []string{"docker"}}

	first := s.Evaluate(fact, req)
	for i := 0; i < 50; i++ {
		again := s.Evaluate(fact, req)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.Breakdown, again.Breakdown)
	}
}

func TestScore_Bounds(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())
	req := domain.JobRequirement{RequiredSkills: []string{"python"}, PreferredSkills: []string{"docker"}}

	facts := []domain.RepositoryFact{
		{ID: "a/empty", Languages: map[string]int{"C": 0}},
		{ID: "a/max", Languages: map[string]int{"Python": 1}, Topics: []string{"docker"}, Stars: math.MaxInt32, Forks: math.MaxInt32, UpdatedAt: fixedNow.Add(48 * time.Hour), ReadmeText: strings.Repeat("x", 50000)},
		{ID: "a/old", Languages: map[string]int{"Python": 1}, UpdatedAt: fixedNow.AddDate(-10, 0, 0)},
	}

	for _, f := range facts {
		got := s.Evaluate(f, req)
		assert.GreaterOrEqual(t, got.Score, 0.0, f.ID)
		assert.LessOrEqual(t, got.Score, domain.MaxScore, f.ID)
		for name, v := range got.Factors {
			assert.True(t, v >= 0 && v <= 1, "%s factor %s=%v", f.ID, name, v)
		}
	}

	assert.InDelta(t, domain.MaxScore, s.Evaluate(facts[1], req).Score, 1e-9)
}

func TestScore_MonotonicInStars(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())
	req := domain.JobRequirement{RequiredSkills: []string{"python"}}
	fact := pythonRepo()

	prev := -1.0
	for _, stars := range []int{0, 1, 2, 10, 99, 100, 500, 998, 999, 1000, 5000, 1 << 20} {
		fact.Stars = stars
		got := s.Evaluate(fact, req).Score
		assert.GreaterOrEqual(t, got, prev, "stars=%d", stars)
		prev = got
	}
}

func TestScore_EmptyRequiredSkills(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())
	req := domain.JobRequirement{PreferredSkills: []string{"python"}}

	got := s.Evaluate(pythonRepo(), req)
	assert.Equal(t, 0.0, got.Factors[domain.FactorSkillMatch])
	assert.Equal(t, []string{"python"}, got.MatchedPreferred)
}

func TestScore_PreferredBonusIsCapped(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())
	fact := pythonRepo()
	fact.Topics = []string{"docker"}
	req := domain.JobRequirement{RequiredSkills: []string{"python"}, PreferredSkills: []string{"docker"}}

	assert.Equal(t, 1.0, s.Evaluate(fact, req).Factors[domain.FactorSkillMatch])
}

func TestRecency(t *testing.T) {
	tests := []struct {
		name    string
		updated time.Time
		want    float64
	}{
		{name: "future is fresh", updated: fixedNow.Add(72 * time.Hour), want: 1},
		{name: "within 30 days", updated: fixedNow.AddDate(0, 0, -30), want: 1},
		{name: "midway", updated: fixedNow.Add(-time.Duration(380*24) * time.Hour), want: 0.5},
		{name: "two years", updated: fixedNow.Add(-time.Duration(730*24) * time.Hour), want: 0},
		{name: "zero time", updated: time.Time{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Recency(tt.updated, fixedNow), 1e-9)
		})
	}
}

func TestPopularityAndDocumentation(t *testing.T) {
	assert.Equal(t, 0.0, Popularity(0, 0))
	assert.InDelta(t, 1.0, Popularity(900, 99), 1e-12)
	assert.Equal(t, 1.0, Popularity(100000, 0))

	assert.Equal(t, 0.0, Documentation(""))
	assert.Equal(t, 0.5, Documentation(strings.Repeat("ü", 1000)))
	assert.Equal(t, 1.0, Documentation(strings.Repeat("a", 2001)))
}

func TestWeights(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.Error(t, Weights{}.Validate())
	assert.Error(t, Weights{SkillMatch: 1, Popularity: -0.1}.Validate())
	assert.Error(t, Weights{SkillMatch: math.NaN()}.Validate())

	_, err := New(nil, Weights{})
	assert.Error(t, err)

	// weights summing to 2 behave like the halved set
	doubled := newTestScorer(t, Weights{SkillMatch: 1, Popularity: 0.4, Recency: 0.4, Documentation: 0.2})
	base := newTestScorer(t, DefaultWeights())
	req := domain.JobRequirement{RequiredSkills: []string{"python", "docker"}}
	assert.InDelta(t, base.Evaluate(pythonRepo(), req).Score, doubled.Evaluate(pythonRepo(), req).Score, 1e-9)

	onlySkills := newTestScorer(t, Weights{SkillMatch: 3})
	assert.InDelta(t, 5.0, onlySkills.Evaluate(pythonRepo(), req).Score, 1e-9)
	assert.Equal(t, "deterministic", onlySkills.Name())
}

func TestScore_ReferenceTime(t *testing.T) {
	// 时钟每次调用都前进一天，固定参考时间后结果不再随调用次数变化
	tick := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s, err := New(nil, DefaultWeights(), WithClock(func() time.Time {
		tick = tick.Add(24 * time.Hour)
		return tick
	}))
	require.NoError(t, err)

	fact := domain.RepositoryFact{ID: "a/b", Languages: map[string]int{"Go": 1}, Stars: 3, UpdatedAt: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)}
	ref := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ctx := WithReferenceTime(context.Background(), ref)

	first, err := s.Score(ctx, fact, domain.JobRequirement{})
	require.NoError(t, err)
	second, err := s.Score(ctx, fact, domain.JobRequirement{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, Recency(fact.UpdatedAt, ref), first.Factors[domain.FactorRecency])

	got, ok := ReferenceTime(ctx)
	assert.True(t, ok)
	assert.Equal(t, ref, got)
	_, ok = ReferenceTime(context.Background())
	assert.False(t, ok)

	unpinned, err := s.Score(context.Background(), fact, domain.JobRequirement{})
	require.NoError(t, err)
	assert.Less(t, unpinned.Factors[domain.FactorRecency], first.Factors[domain.FactorRecency])
}
