package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github-cv-curator/internal/domain"
)

var markdownTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`# {{.Heading}}
{{- if .Title}}

**{{.Title}}**
{{- end}}
{{- if .Contact}}

{{.Contact}}
{{- end}}

## Professional Summary

{{.Summary}}

## Technical Skills

{{if .Skills}}{{join .Skills ", "}}{{else}}_No skills derived from the selected projects._{{end}}

## Project Highlights
{{range .Projects}}
### {{.Rank}}. [{{.ID}}]({{.URL}})

{{if .Description}}{{.Description}}

{{end}}- **Relevance:** {{printf "%.2f" .Score}}/10
{{- if .Languages}}
- **Languages:** {{join .Languages ", "}}
{{- end}}
{{- if .Topics}}
- **Topics:** {{join .Topics ", "}}
{{- end}}
- **Stars:** {{.Stars}} · **Forks:** {{.Forks}}
- **Why:** {{.Justification}}
{{else}}
_No repository was selected._
{{end}}
## Skill Gaps
{{if .Gaps}}
| Skill | Importance |
|---|---|
{{- range .Gaps}}
| {{.Skill}} | {{.Importance}} |
{{- end}}
{{else}}
The selected projects cover every requested skill.
{{end}}
{{- if .Roadmap}}
## Learning Roadmap
{{range .Roadmap}}
### {{.Skill}} ({{.Priority}} priority)
{{range .Objectives}}
- {{.}}
{{- end}}
{{- if .Resources}}

Resources:
{{range .Resources}}
- {{.}}
{{- end}}
{{- end}}
{{end}}
{{- end}}
`))

type markdownView struct {
	Heading  string
	Title    string
	Contact  string
	Summary  string
	Skills   []string
	Projects []projectView
	Gaps     []domain.SkillGap
	Roadmap  []domain.Recommendation
}

type projectView struct {
	Rank          int
	ID            string
	URL           string
	Description   string
	Score         float64
	Languages     []string
	Topics        []string
	Stars         int
	Forks         int
	Justification string
}

// RenderMarkdown writes the CV report for report.
func RenderMarkdown(w io.Writer, report *domain.RunReport) error {
	if err := markdownTemplate.Execute(w, buildView(report)); err != nil {
		return fmt.Errorf("render markdown report: %w", err)
	}
	return nil
}

func buildView(report *domain.RunReport) markdownView {
	p := report.Profile
	heading := p.Name
	if heading == "" {
		heading = report.Username
	}
	if heading == "" {
		heading = "Curriculum Vitae"
	}

	var contact []string
	for _, c := range []string{p.Email, p.Location, p.LinkedIn} {
		if c != "" {
			contact = append(contact, c)
		}
	}
	if report.Username != "" {
		contact = append(contact, "https://github.com/"+report.Username)
	}

	view := markdownView{
		Heading: heading,
		Title:   p.Title,
		Contact: strings.Join(contact, " · "),
		Skills:  skillsByFrequency(report.Selection),
		Gaps:    report.Gaps,
		Roadmap: orderedRoadmap(report.Recommendations),
	}
	view.Summary = summaryLine(report, view.Skills)

	for _, e := range report.Selection.Entries {
		f := e.Repository.Fact
		langs := f.LanguageNames()
		sort.Strings(langs)
		url := f.URL
		if url == "" {
			url = "https://github.com/" + f.ID
		}
		view.Projects = append(view.Projects, projectView{
			Rank:          e.Rank,
			ID:            f.ID,
			URL:           url,
			Description:   f.Description,
			Score:         e.Repository.Score,
			Languages:     langs,
			Topics:        f.Topics,
			Stars:         f.Stars,
			Forks:         f.Forks,
			Justification: e.Justification,
		})
	}
	return view
}

func summaryLine(report *domain.RunReport, skills []string) string {
	n := report.Selection.Len()
	if n == 0 {
		return "No public repository matched the target role yet; see the learning roadmap below."
	}

	var b strings.Builder
	if report.Requirement.Seniority != domain.SeniorityUnknown {
		fmt.Fprintf(&b, "Targeting a %s role. ", report.Requirement.Seniority)
	}
	projects := "projects"
	if n == 1 {
		projects = "project"
	}
	fmt.Fprintf(&b, "%d selected %s", n, projects)
	if len(skills) > 0 {
		top := skills
		if len(top) > 5 {
			top = top[:5]
		}
		fmt.Fprintf(&b, " demonstrating %s", strings.Join(top, ", "))
	}
	b.WriteString(".")
	if matched := matchedRequired(report); len(report.Requirement.RequiredSkills) > 0 {
		fmt.Fprintf(&b, " Covers %d of %d required skills.", matched, len(report.Requirement.RequiredSkills))
	}
	return b.String()
}

func matchedRequired(report *domain.RunReport) int {
	seen := make(map[string]bool)
	for _, e := range report.Selection.Entries {
		for _, s := range e.Repository.MatchedRequired {
			seen[s] = true
		}
	}
	return len(seen)
}

// skillsByFrequency orders the union of the selected repositories' skills by
// how many repositories show them, ties by name.
func skillsByFrequency(sel domain.Selection) []string {
	counts := make(map[string]int)
	for _, e := range sel.Entries {
		for _, s := range e.Repository.Skills {
			counts[s]++
		}
	}
	skills := make([]string, 0, len(counts))
	for s := range counts {
		skills = append(skills, s)
	}
	sort.Slice(skills, func(i, j int) bool {
		if counts[skills[i]] != counts[skills[j]] {
			return counts[skills[i]] > counts[skills[j]]
		}
		return skills[i] < skills[j]
	})
	return skills
}

var priorityRank = map[domain.Priority]int{
	domain.PriorityHigh:   0,
	domain.PriorityMedium: 1,
	domain.PriorityLow:    2,
}

func orderedRoadmap(recs []domain.Recommendation) []domain.Recommendation {
	out := append([]domain.Recommendation(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
	})
	return out
}
