// Package scorer rates how well a repository fits a job requirement with an
// explicit weighted formula. The same input always yields the same score.
package scorer

import (
	"context"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github-cv-curator/internal/domain"
	"github-cv-curator/internal/skill"
)

// Normalization constants.
const (
	popularitySaturation = 3.0    // log10(1000): 999 stars+forks saturate
	freshDays            = 30.0   // updated within this window counts as fully recent
	staleDays            = 730.0  // two years without updates scores zero
	readmeSaturation     = 2000.0 // README runes for full documentation credit
	preferredBonus       = 0.5
)

// Weights sets how much each factor counts. They are normalized by their sum.
type Weights struct {
	SkillMatch    float64 `mapstructure:"skill-match" json:"skill_match"`
	Popularity    float64 `mapstructure:"popularity" json:"popularity"`
	Recency       float64 `mapstructure:"recency" json:"recency"`
	Documentation float64 `mapstructure:"documentation" json:"documentation"`
}

// DefaultWeights is 0.5 skills, 0.2 popularity, 0.2 recency, 0.1 documentation.
func DefaultWeights() Weights {
	return Weights{SkillMatch: 0.5, Popularity: 0.2, Recency: 0.2, Documentation: 0.1}
}

// Validate rejects negative weights and an all-zero set.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skill-match":   w.SkillMatch,
		"popularity":    w.Popularity,
		"recency":       w.Recency,
		"documentation": w.Documentation,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", name, v)
		}
	}
	if w.sum() <= 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	return nil
}

func (w Weights) sum() float64 {
	return w.SkillMatch + w.Popularity + w.Recency + w.Documentation
}

func (w Weights) normalized() Weights {
	s := w.sum()
	if math.Abs(s-1) < 1e-9 {
		return w
	}
	return Weights{
		SkillMatch:    w.SkillMatch / s,
		Popularity:    w.Popularity / s,
		Recency:       w.Recency / s,
		Documentation: w.Documentation / s,
	}
}

func (w Weights) of(factor string) float64 {
	switch factor {
	case domain.FactorSkillMatch:
		return w.SkillMatch
	case domain.FactorPopularity:
		return w.Popularity
	case domain.FactorRecency:
		return w.Recency
	case domain.FactorDocumentation:
		return w.Documentation
	}
	return 0
}

// Scorer is the deterministic relevance scorer.
type Scorer struct {
	vocab   *skill.Vocabulary
	weights Weights
	nowFunc func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock pins the reference time used for recency.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.nowFunc = now
		}
	}
}

// New returns a scorer using vocab (the built-in vocabulary when nil) and the given weights.
func New(vocab *skill.Vocabulary, weights Weights, opts ...Option) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if vocab == nil {
		vocab = skill.Default()
	}
	s := &Scorer{
		vocab:   vocab,
		weights: weights.normalized(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name identifies the scoring strategy.
func (s *Scorer) Name() string { return "deterministic" }

type referenceTimeKey struct{}

// WithReferenceTime pins the "now" that recency is measured against for every
// Score call made with the returned context, so one batch shares one clock.
func WithReferenceTime(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, referenceTimeKey{}, now)
}

// ReferenceTime returns the time pinned by WithReferenceTime, if any.
func ReferenceTime(ctx context.Context) (time.Time, bool) {
	now, ok := ctx.Value(referenceTimeKey{}).(time.Time)
	return now, ok
}

// Score never fails; the error is there to satisfy port.Scorer. Recency uses
// the context's reference time, or the scorer's clock when none is pinned.
func (s *Scorer) Score(ctx context.Context, fact domain.RepositoryFact, req domain.JobRequirement) (domain.ScoredRepository, error) {
	now, ok := ReferenceTime(ctx)
	if !ok {
		now = s.nowFunc()
	}
	return s.EvaluateAt(fact, req, now), nil
}

// Evaluate is EvaluateAt with the scorer's clock.
func (s *Scorer) Evaluate(fact domain.RepositoryFact, req domain.JobRequirement) domain.ScoredRepository {
	return s.EvaluateAt(fact, req, s.nowFunc())
}

// EvaluateAt computes the score and its breakdown with recency measured at now.
// Factors are summed in domain.FactorOrder so the floating point result is
// reproducible.
func (s *Scorer) EvaluateAt(fact domain.RepositoryFact, req domain.JobRequirement, now time.Time) domain.ScoredRepository {
	repoSkills := s.vocab.RepoSkills(fact)
	have := make(map[string]bool, len(repoSkills))
	for _, sk := range repoSkills {
		have[sk] = true
	}

	matchedRequired := intersect(req.RequiredSkills, have)
	matchedPreferred := intersect(req.PreferredSkills, have)

	factors := map[string]float64{
		domain.FactorSkillMatch:    skillMatch(len(matchedRequired), len(req.RequiredSkills), len(matchedPreferred), len(req.PreferredSkills)),
		domain.FactorPopularity:    Popularity(fact.Stars, fact.Forks),
		domain.FactorRecency:       Recency(fact.UpdatedAt, now),
		domain.FactorDocumentation: Documentation(fact.ReadmeText),
	}

	breakdown := make(map[string]float64, len(factors))
	var total float64
	for _, name := range domain.FactorOrder {
		value, ok := factors[name]
		if !ok {
			continue
		}
		contribution := s.weights.of(name) * value
		breakdown[name] = contribution * domain.MaxScore
		total += contribution
	}

	return domain.ScoredRepository{
		Fact:             fact,
		Score:            clamp(total*domain.MaxScore, 0, domain.MaxScore),
		Breakdown:        breakdown,
		Factors:          factors,
		Skills:           repoSkills,
		MatchedRequired:  matchedRequired,
		MatchedPreferred: matchedPreferred,
	}
}

// skillMatch is zero when nothing is required; preferred matches add up to half a point on top.
func skillMatch(matchedReq, totalReq, matchedPref, totalPref int) float64 {
	if totalReq == 0 {
		return 0
	}
	v := float64(matchedReq)/float64(totalReq) + preferredBonus*float64(matchedPref)/math.Max(1, float64(totalPref))
	return clamp(v, 0, 1)
}

// Popularity is log10(stars+forks+1)/3, capped at 1.
func Popularity(stars, forks int) float64 {
	n := stars + forks
	if n < 0 {
		n = 0
	}
	return clamp(math.Log10(float64(n)+1)/popularitySaturation, 0, 1)
}

// Recency is 1 within 30 days of now, falls linearly to 0 at two years.
// Timestamps in the future count as fresh.
func Recency(updated, now time.Time) float64 {
	days := now.Sub(updated).Hours() / 24
	switch {
	case days <= freshDays:
		return 1
	case days >= staleDays:
		return 0
	}
	return 1 - (days-freshDays)/(staleDays-freshDays)
}

// Documentation is README length in runes over 2000, capped at 1.
func Documentation(readme string) float64 {
	return clamp(float64(utf8.RuneCountInString(readme))/readmeSaturation, 0, 1)
}

func intersect(wanted []string, have map[string]bool) []string {
	out := make([]string, 0, len(wanted))
	for _, w := range wanted {
		if have[w] {
			out = append(out, w)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
