package domain

import (
	"sort"
	"time"
)

// RawRepoPayload is one repository as a source (GitHub API, JSON dump) hands it over.
// Nothing here is validated yet; the fact extractor decides whether it is usable.
type RawRepoPayload struct {
	ID          string         `json:"id"` // owner/name
	URL         string         `json:"url,omitempty"`
	Description string         `json:"description"`
	Languages   map[string]int `json:"languages"`
	Topics      []string       `json:"topics"`
	Stars       int            `json:"stars"`
	Forks       int            `json:"forks"`
	Fork        bool           `json:"fork,omitempty"`
	Archived    bool           `json:"archived,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ReadmeText  string         `json:"readme_text"`
}

// RepositoryFact is a validated, normalized snapshot of one repository.
type RepositoryFact struct {
	ID          string         `json:"id"`
	URL         string         `json:"url,omitempty"`
	Description string         `json:"description"`
	Languages   map[string]int `json:"languages"`
	Topics      []string       `json:"topics"`
	Stars       int            `json:"stars"`
	Forks       int            `json:"forks"`
	Fork        bool           `json:"fork,omitempty"`
	Archived    bool           `json:"archived,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ReadmeText  string         `json:"readme_text"`
}

// DominantLanguage returns the language with the largest byte count.
// Ties resolve to the alphabetically smaller name so the answer is stable.
func (f RepositoryFact) DominantLanguage() string {
	best, bestBytes := "", -1
	for name, bytes := range f.Languages {
		if bytes > bestBytes || (bytes == bestBytes && name < best) {
			best, bestBytes = name, bytes
		}
	}
	return best
}

// LanguageNames returns the language keys in sorted order.
func (f RepositoryFact) LanguageNames() []string {
	names := make([]string, 0, len(f.Languages))
	for name := range f.Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Seniority is the ordinal level a job asks for.
type Seniority int

const (
	SeniorityUnknown Seniority = iota
	SeniorityJunior
	SeniorityMid
	SenioritySenior
)

func (s Seniority) String() string {
	switch s {
	case SeniorityJunior:
		return "junior"
	case SeniorityMid:
		return "mid"
	case SenioritySenior:
		return "senior"
	default:
		return "unknown"
	}
}

// MarshalText lets seniority travel as a word in JSON and YAML.
func (s Seniority) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// JobRequirement is a normalized job description.
// RequiredSkills and PreferredSkills keep first-mention order and never share a token.
type JobRequirement struct {
	RequiredSkills  []string  `json:"required_skills"`
	PreferredSkills []string  `json:"preferred_skills"`
	Seniority       Seniority `json:"seniority"`
	DomainTags      []string  `json:"domain_tags,omitempty"`
}

// AllSkills returns required skills followed by preferred skills.
func (r JobRequirement) AllSkills() []string {
	all := make([]string, 0, len(r.RequiredSkills)+len(r.PreferredSkills))
	all = append(all, r.RequiredSkills...)
	return append(all, r.PreferredSkills...)
}

// Breakdown keys used by the relevance scorer, listed in evaluation order.
const (
	FactorSkillMatch    = "skill_match"
	FactorPopularity    = "popularity"
	FactorRecency       = "recency"
	FactorDocumentation = "documentation_quality"
	FactorLLM           = "llm_judgement"
)

// FactorOrder is the fixed order factors are summed and reported in.
var FactorOrder = []string{FactorSkillMatch, FactorPopularity, FactorRecency, FactorDocumentation, FactorLLM}

// MaxScore is the upper bound of every relevance score.
const MaxScore = 10.0

// ScoredRepository pairs a fact with its relevance to one requirement.
type ScoredRepository struct {
	Fact             RepositoryFact     `json:"fact"`
	Score            float64            `json:"score"`
	Breakdown        map[string]float64 `json:"breakdown"` // weighted contribution per factor, sums to Score
	Factors          map[string]float64 `json:"factors"`   // raw factor values in [0,1]
	Skills           []string           `json:"skills"`    // derived skill set of the repository
	MatchedRequired  []string           `json:"matched_required"`
	MatchedPreferred []string           `json:"matched_preferred"`
}

// ID is a shortcut for the repository identifier.
func (s ScoredRepository) ID() string { return s.Fact.ID }

// SelectionEntry is one chosen repository with the reason it was chosen.
type SelectionEntry struct {
	Rank             int              `json:"rank"`
	Repository       ScoredRepository `json:"repository"`
	Justification    string           `json:"justification"`
	DiversityPenalty float64          `json:"diversity_penalty,omitempty"`
}

// Selection is the ranked result of the selector.
type Selection struct {
	Entries   []SelectionEntry `json:"entries"`
	Requested int              `json:"requested"`
	Diversity bool             `json:"diversity"`
}

// Len returns the number of selected repositories.
func (s Selection) Len() int { return len(s.Entries) }

// IDs returns the selected ids in rank order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		ids = append(ids, e.Repository.ID())
	}
	return ids
}

// SelectionRecord is the wire shape of one selection entry.
type SelectionRecord struct {
	ID            string             `json:"id"`
	Score         float64            `json:"score"`
	Breakdown     map[string]float64 `json:"breakdown"`
	Justification string             `json:"justification"`
}

// Records flattens the selection into its serialized form.
func (s Selection) Records() []SelectionRecord {
	out := make([]SelectionRecord, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, SelectionRecord{
			ID:            e.Repository.ID(),
			Score:         e.Repository.Score,
			Breakdown:     e.Repository.Breakdown,
			Justification: e.Justification,
		})
	}
	return out
}

// Importance says whether a missing skill was must-have or nice-to-have.
type Importance string

const (
	ImportanceRequired  Importance = "required"
	ImportancePreferred Importance = "preferred"
)

// SkillGap is one competency the job asks for that the selection does not show.
type SkillGap struct {
	Skill              string     `json:"skill"`
	Importance         Importance `json:"importance"`
	PresentInSelection bool       `json:"present_in_selection"`
}

// Priority ranks learning recommendations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a learning suggestion derived from a gap.
type Recommendation struct {
	Skill      string   `json:"skill"`
	Priority   Priority `json:"priority"`
	Resources  []string `json:"resources"`
	Objectives []string `json:"objectives"`
}

// Profile is the personal header rendered on top of the CV.
type Profile struct {
	Name     string `json:"name,omitempty" mapstructure:"name"`
	Title    string `json:"title,omitempty" mapstructure:"title"`
	Email    string `json:"email,omitempty" mapstructure:"email"`
	Location string `json:"location,omitempty" mapstructure:"location"`
	LinkedIn string `json:"linkedin,omitempty" mapstructure:"linkedin"`
}

// Pipeline stages a record can fail in.
const (
	StageExtract = "extract"
	StageScore   = "score"
)

// RecordFailure is one repository dropped from a run, with the stage and the reason.
type RecordFailure struct {
	ID     string `json:"id"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// RunReport is everything one curation run produced.
type RunReport struct {
	Username        string             `json:"username"`
	JobDescription  string             `json:"job_description"`
	Requirement     JobRequirement     `json:"requirement"`
	Scored          []ScoredRepository `json:"scored"`
	Selection       Selection          `json:"selection"`
	Gaps            []SkillGap         `json:"gaps"`
	Recommendations []Recommendation   `json:"recommendations"`
	Failures        []RecordFailure    `json:"failures,omitempty"`
	Profile         Profile            `json:"profile"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
}

// RunSummary is one stored run as the history listing shows it.
type RunSummary struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Requested   int       `json:"requested"`
	Diversity   bool      `json:"diversity"`
	SelectedIDs []string  `json:"selected_ids"`
	TopScore    float64   `json:"top_score"`
	GapCount    int       `json:"gap_count"`
	CreatedAt   time.Time `json:"created_at"`
}
