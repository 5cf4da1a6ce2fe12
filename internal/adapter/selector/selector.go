// Package selector picks the top-N scored repositories, optionally steering
// away from near-identical picks, and explains each choice.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

const (
	DefaultPenalty   = 0.5
	DefaultThreshold = 0.7
)

// Selector is stateless apart from its diversity settings.
type Selector struct {
	penalty   float64
	threshold float64
}

// Option configures a Selector.
type Option func(*Selector)

// WithPenalty sets the points subtracted from a candidate too similar to an earlier pick.
func WithPenalty(p float64) Option {
	return func(s *Selector) {
		if p >= 0 {
			s.penalty = p
		}
	}
}

// WithThreshold sets the Jaccard overlap from which a candidate counts as too similar.
func WithThreshold(t float64) Option {
	return func(s *Selector) {
		if t > 0 && t <= 1 {
			s.threshold = t
		}
	}
}

func New(opts ...Option) *Selector {
	s := &Selector{penalty: DefaultPenalty, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns at most n repositories. Without diversity the order is score
// desc, stars desc, updated_at desc, id asc. With diversity each pick is made
// greedily on score minus a penalty for candidates whose dominant language and
// topics overlap an earlier pick by at least the threshold. A pool smaller than
// n yields a shorter selection, not an error.
func (s *Selector) Select(scored []domain.ScoredRepository, n int, diversity bool) (domain.Selection, error) {
	if n <= 0 {
		return domain.Selection{}, common.NewError(common.ErrCodeInvalidCount,
			fmt.Sprintf("selection count must be positive, got %d", n))
	}

	pool := make([]domain.ScoredRepository, len(scored))
	copy(pool, scored)
	sort.SliceStable(pool, func(i, j int) bool {
		return ranksBefore(pool[i], pool[i].Score, pool[j], pool[j].Score)
	})

	sel := domain.Selection{Requested: n, Diversity: diversity}
	if !diversity {
		for i := 0; i < len(pool) && i < n; i++ {
			sel.Entries = append(sel.Entries, s.entry(i+1, pool[i], 0, ""))
		}
		return sel, nil
	}

	features := make([]map[string]struct{}, len(pool))
	for i, r := range pool {
		features[i] = featureSet(r.Fact)
	}

	taken := make([]bool, len(pool))
	var chosen []int
	for len(chosen) < n && len(chosen) < len(pool) {
		best, bestEff, bestPenalty, bestTwin := -1, 0.0, 0.0, ""
		for i, r := range pool {
			if taken[i] {
				continue
			}
			penalty, twin := 0.0, ""
			for _, c := range chosen {
				if jaccard(features[i], features[c]) >= s.threshold {
					penalty, twin = s.penalty, pool[c].ID()
					break
				}
			}
			eff := r.Score - penalty
			if best < 0 || ranksBefore(r, eff, pool[best], bestEff) {
				best, bestEff, bestPenalty, bestTwin = i, eff, penalty, twin
			}
		}
		taken[best] = true
		chosen = append(chosen, best)
		sel.Entries = append(sel.Entries, s.entry(len(chosen), pool[best], bestPenalty, bestTwin))
	}
	return sel, nil
}

// ranksBefore is the total order used everywhere: effective score, stars, recency, id.
func ranksBefore(a domain.ScoredRepository, aScore float64, b domain.ScoredRepository, bScore float64) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	if a.Fact.Stars != b.Fact.Stars {
		return a.Fact.Stars > b.Fact.Stars
	}
	if !a.Fact.UpdatedAt.Equal(b.Fact.UpdatedAt) {
		return a.Fact.UpdatedAt.After(b.Fact.UpdatedAt)
	}
	return a.Fact.ID < b.Fact.ID
}

// featureSet is the dominant language plus the topics, lower-cased.
func featureSet(f domain.RepositoryFact) map[string]struct{} {
	set := make(map[string]struct{}, len(f.Topics)+1)
	if lang := f.DominantLanguage(); lang != "" {
		set["lang:"+strings.ToLower(lang)] = struct{}{}
	}
	for _, t := range f.Topics {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func (s *Selector) entry(rank int, r domain.ScoredRepository, penalty float64, twin string) domain.SelectionEntry {
	return domain.SelectionEntry{
		Rank:             rank,
		Repository:       r,
		Justification:    Justify(r, penalty, twin),
		DiversityPenalty: penalty,
	}
}

// Justify explains a score from its breakdown, e.g.
// "Score 6.64/10 (skill_match 2.50, popularity 1.14, recency 2.00, documentation_quality 1.00). Matches required: python."
func Justify(r domain.ScoredRepository, penalty float64, twin string) string {
	parts := make([]string, 0, len(r.Breakdown))
	for _, name := range domain.FactorOrder {
		if v, ok := r.Breakdown[name]; ok {
			parts = append(parts, fmt.Sprintf("%s %.2f", name, v))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score %.2f/10", r.Score)
	if len(parts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString(".")

	if len(r.MatchedRequired) > 0 {
		fmt.Fprintf(&b, " Matches required: %s.", strings.Join(r.MatchedRequired, ", "))
	} else {
		b.WriteString(" Matches no required skill.")
	}
	if len(r.MatchedPreferred) > 0 {
		fmt.Fprintf(&b, " Matches preferred: %s.", strings.Join(r.MatchedPreferred, ", "))
	}
	if penalty > 0 {
		fmt.Fprintf(&b, " Diversity penalty -%.2f (similar to %s).", penalty, twin)
	}
	return b.String()
}
