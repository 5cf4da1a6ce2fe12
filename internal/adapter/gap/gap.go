// Package gap compares a selection against a job requirement and turns the
// missing skills into learning recommendations.
package gap

import (
	"fmt"
	"strings"

	"github-cv-curator/internal/domain"
	"github-cv-curator/internal/skill"
)

type Analyzer struct {
	vocab *skill.Vocabulary
}

// New uses vocab, or the built-in vocabulary when nil. It must be the same
// vocabulary the scorer used so that skill derivation agrees.
func New(vocab *skill.Vocabulary) *Analyzer {
	if vocab == nil {
		vocab = skill.Default()
	}
	return &Analyzer{vocab: vocab}
}

// Analyze lists every required or preferred skill that no selected repository
// shows, required first, each group in requirement order.
func (a *Analyzer) Analyze(sel domain.Selection, req domain.JobRequirement) []domain.SkillGap {
	present := a.selectionSkills(sel)

	gaps := make([]domain.SkillGap, 0)
	emitted := make(map[string]bool)
	emit := func(skills []string, importance domain.Importance) {
		for _, s := range skills {
			if present[s] || emitted[s] {
				continue
			}
			emitted[s] = true
			gaps = append(gaps, domain.SkillGap{Skill: s, Importance: importance, PresentInSelection: false})
		}
	}
	emit(req.RequiredSkills, domain.ImportanceRequired)
	emit(req.PreferredSkills, domain.ImportancePreferred)
	return gaps
}

func (a *Analyzer) selectionSkills(sel domain.Selection) map[string]bool {
	present := make(map[string]bool)
	for _, e := range sel.Entries {
		for _, s := range a.vocab.RepoSkills(e.Repository.Fact) {
			present[s] = true
		}
	}
	return present
}

// Recommend turns gaps into learning suggestions: high priority for required
// skills, medium for preferred ones, low for requested domains that none of the
// selected repositories touches.
func (a *Analyzer) Recommend(gaps []domain.SkillGap, sel domain.Selection, req domain.JobRequirement) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, len(gaps)+len(req.DomainTags))
	for _, g := range gaps {
		priority := domain.PriorityMedium
		if g.Importance == domain.ImportanceRequired {
			priority = domain.PriorityHigh
		}
		recs = append(recs, domain.Recommendation{
			Skill:      g.Skill,
			Priority:   priority,
			Resources:  a.resources(g.Skill),
			Objectives: a.objectives(g.Skill),
		})
	}

	covered := a.selectionDomains(sel)
	for _, tag := range req.DomainTags {
		if covered[tag] {
			continue
		}
		recs = append(recs, domain.Recommendation{
			Skill:    tag,
			Priority: domain.PriorityLow,
			Resources: []string{
				fmt.Sprintf("https://github.com/topics/%s", topicSlug(tag)),
			},
			Objectives: []string{
				fmt.Sprintf("Build a small project that solves a %s problem and document the domain context in its README", tag),
			},
		})
	}
	return recs
}

func (a *Analyzer) selectionDomains(sel domain.Selection) map[string]bool {
	covered := make(map[string]bool)
	for _, e := range sel.Entries {
		f := e.Repository.Fact
		text := strings.Join(append([]string{f.Description, f.ReadmeText}, f.Topics...), "\n")
		for _, tag := range a.vocab.MatchDomains(text) {
			covered[tag] = true
		}
	}
	return covered
}

func (a *Analyzer) resources(name string) []string {
	if e, ok := a.vocab.Entry(name); ok && len(e.Resources) > 0 {
		return append([]string(nil), e.Resources...)
	}
	return []string{
		fmt.Sprintf("https://github.com/topics/%s", topicSlug(name)),
		fmt.Sprintf("Official %s documentation and getting-started guide", name),
	}
}

func (a *Analyzer) objectives(name string) []string {
	if e, ok := a.vocab.Entry(name); ok && len(e.Objectives) > 0 {
		return append([]string(nil), e.Objectives...)
	}
	return []string{
		fmt.Sprintf("Build and publish a public repository that uses %s in a non-trivial way", name),
		fmt.Sprintf("Describe the %s parts of the project in its README", name),
	}
}

func topicSlug(name string) string {
	r := strings.NewReplacer(" ", "-", "/", "-", "+", "p", "#", "sharp", ".", "")
	return r.Replace(strings.ToLower(name))
}
