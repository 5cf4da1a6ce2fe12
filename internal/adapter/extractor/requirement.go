package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
	"github-cv-curator/internal/skill"
)

var (
	preferredMarkers = []string{"nice to have", "nice-to-have", "good to have", "preferred", "bonus", "a plus", "desirable", "desired", "optional", "ideally", "would be great", "advantage", "advantageous"}
	requiredMarkers  = []string{"required", "requirements", "must", "must-have", "mandatory", "essential", "minimum", "you have", "you bring"}

	seniorityPhrases = []struct {
		level   domain.Seniority
		phrases []string
	}{
		{domain.SeniorityJunior, []string{"junior", "jr", "entry-level", "entry level", "graduate", "intern", "internship"}},
		{domain.SeniorityMid, []string{"mid-level", "mid level", "intermediate", "midlevel"}},
		{domain.SenioritySenior, []string{"senior", "sr", "lead engineer", "lead developer", "tech lead", "team lead", "principal", "staff engineer", "architect"}},
	}

	yearsPattern = regexp.MustCompile(`(\d{1,2})\s*\+?\s*(?:-\s*\d{1,2}\s*)?(?:years?|yrs?)\b`)
	clauseSplit  = regexp.MustCompile(`;|\.\s+|\n`)
)

// headings without skills switch the section mode only when they are this short or end with ':'
const maxHeadingWords = 6

// RequirementExtractor turns free-text job descriptions into a JobRequirement.
type RequirementExtractor struct {
	vocab *skill.Vocabulary
}

// NewRequirementExtractor uses the given vocabulary, or the built-in one when nil.
func NewRequirementExtractor(vocab *skill.Vocabulary) *RequirementExtractor {
	if vocab == nil {
		vocab = skill.Default()
	}
	return &RequirementExtractor{vocab: vocab}
}

type mode int

const (
	modeRequired mode = iota
	modePreferred
)

// Extract reads text clause by clause. Skills default to required; a "nice to
// have" style marker, or a preceding heading, makes them preferred. Inside a
// clause a marker binds to its comma separated segment and carries on to the
// segments after it, and within one segment a preferred marker beats a
// required one. A skill seen in both roles stays required. Fails with
// EMPTY_REQUIREMENT when no known skill is found.
func (e *RequirementExtractor) Extract(text string) (domain.JobRequirement, error) {
	var required, preferred []string
	seenRequired := map[string]bool{}
	seenPreferred := map[string]bool{}

	section := modeRequired
	for _, clause := range clauseSplit.Split(text, -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		mentions := e.vocab.Mentions(clause)
		if len(mentions) == 0 {
			if strings.HasSuffix(clause, ":") || len(strings.Fields(clause)) <= maxHeadingWords {
				section = markerMode(clause, section)
			}
			continue
		}

		segments := segmentModes(strings.ToLower(clause), section)
		for _, m := range mentions {
			s := m.Skill
			if modeAt(segments, m.Pos) == modeRequired {
				if !seenRequired[s] {
					seenRequired[s] = true
					required = append(required, s)
				}
				continue
			}
			if !seenPreferred[s] {
				seenPreferred[s] = true
				preferred = append(preferred, s)
			}
		}
	}

	filtered := preferred[:0]
	for _, s := range preferred {
		if !seenRequired[s] {
			filtered = append(filtered, s)
		}
	}
	preferred = filtered

	if len(required)+len(preferred) == 0 {
		return domain.JobRequirement{}, common.NewError(common.ErrCodeEmptyRequirement,
			fmt.Sprintf("no known skills in job description %q", snippet(text)))
	}

	return domain.JobRequirement{
		RequiredSkills:  required,
		PreferredSkills: preferred,
		Seniority:       detectSeniority(text),
		DomainTags:      e.vocab.MatchDomains(text),
	}, nil
}

type segment struct {
	end  int
	mode mode
}

// segmentModes splits a lower-cased clause at commas. A segment takes the mode
// of its own marker, else that of the last marked segment before it, else the
// section mode.
func segmentModes(lower string, section mode) []segment {
	var out []segment
	current := section
	for start := 0; start <= len(lower); {
		end := strings.IndexByte(lower[start:], ',')
		if end < 0 {
			end = len(lower)
		} else {
			end += start
		}
		current = markerMode(lower[start:end], current)
		out = append(out, segment{end: end, mode: current})
		start = end + 1
	}
	return out
}

func modeAt(segments []segment, pos int) mode {
	for _, s := range segments {
		if pos < s.end {
			return s.mode
		}
	}
	return segments[len(segments)-1].mode
}

// markerMode returns the mode named by a marker in text, or fallback.
func markerMode(text string, fallback mode) mode {
	padded := " " + strings.Join(skill.Tokenize(text), " ") + " "
	switch {
	case containsAny(padded, preferredMarkers):
		return modePreferred
	case containsAny(padded, requiredMarkers):
		return modeRequired
	}
	return fallback
}

// detectSeniority takes the highest level named in the text or implied by years of experience.
func detectSeniority(text string) domain.Seniority {
	lower := " " + strings.Join(skill.Tokenize(text), " ") + " "
	level := domain.SeniorityUnknown
	for _, group := range seniorityPhrases {
		if group.level > level && containsAny(lower, group.phrases) {
			level = group.level
		}
	}

	for _, m := range yearsPattern.FindAllStringSubmatch(strings.ToLower(text), -1) {
		years, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		implied := domain.SeniorityJunior
		switch {
		case years >= 5:
			implied = domain.SenioritySenior
		case years >= 2:
			implied = domain.SeniorityMid
		}
		if implied > level {
			level = implied
		}
	}
	return level
}

// containsAny reports whether padded (space-joined tokens with surrounding spaces) contains any phrase as whole words.
func containsAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func snippet(text string) string {
	const limit = 80
	text = strings.Join(strings.Fields(text), " ")
	if cut := capRunes(text, limit); cut != text {
		return cut + "..."
	}
	return text
}
