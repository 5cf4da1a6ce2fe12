package extractor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

const (
	// MaxReadmeRunes bounds README text kept per repository.
	MaxReadmeRunes = 10000
	// MaxDescriptionRunes bounds the description kept per repository.
	MaxDescriptionRunes = 2000
)

// FactExtractor turns raw repository payloads into validated facts.
type FactExtractor struct {
	maxReadme      int
	maxDescription int
}

// NewFactExtractor returns an extractor with the default text caps.
func NewFactExtractor() *FactExtractor {
	return &FactExtractor{maxReadme: MaxReadmeRunes, maxDescription: MaxDescriptionRunes}
}

// Extract validates one payload. It fails with a MALFORMED_INPUT AppError naming
// the offending id when id or languages are missing or invalid.
func (e *FactExtractor) Extract(raw domain.RawRepoPayload) (domain.RepositoryFact, error) {
	id := strings.TrimSpace(raw.ID)
	if err := validateID(id); err != nil {
		return domain.RepositoryFact{}, err
	}

	if len(raw.Languages) == 0 {
		return domain.RepositoryFact{}, malformed(id, "no languages detected")
	}
	languages := make(map[string]int, len(raw.Languages))
	for name, size := range raw.Languages {
		name = strings.TrimSpace(name)
		if name == "" {
			return domain.RepositoryFact{}, malformed(id, "empty language name")
		}
		if size < 0 {
			return domain.RepositoryFact{}, malformed(id, fmt.Sprintf("negative byte count %d for %s", size, name))
		}
		languages[name] += size
	}

	if raw.Stars < 0 || raw.Forks < 0 {
		return domain.RepositoryFact{}, malformed(id, fmt.Sprintf("negative counters (stars=%d forks=%d)", raw.Stars, raw.Forks))
	}

	return domain.RepositoryFact{
		ID:          id,
		URL:         strings.TrimSpace(raw.URL),
		Description: capRunes(strings.TrimSpace(raw.Description), e.maxDescription),
		Languages:   languages,
		Topics:      normalizeTopics(raw.Topics),
		Stars:       raw.Stars,
		Forks:       raw.Forks,
		Fork:        raw.Fork,
		Archived:    raw.Archived,
		UpdatedAt:   raw.UpdatedAt.UTC(),
		ReadmeText:  capRunes(strings.TrimSpace(raw.ReadmeText), e.maxReadme),
	}, nil
}

// Batch is the outcome of extracting many payloads: the usable facts in input
// order plus one failure per rejected record.
type Batch struct {
	Facts    []domain.RepositoryFact
	Failures []domain.RecordFailure
}

// ExtractAll extracts every payload, skipping bad records instead of aborting.
// A repeated id is rejected; the first occurrence wins.
func (e *FactExtractor) ExtractAll(raws []domain.RawRepoPayload) Batch {
	var out Batch
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		fact, err := e.Extract(raw)
		if err != nil {
			out.Failures = append(out.Failures, domain.RecordFailure{ID: raw.ID, Stage: domain.StageExtract, Reason: err.Error()})
			continue
		}
		if seen[fact.ID] {
			err := malformed(fact.ID, "duplicate repository id")
			out.Failures = append(out.Failures, domain.RecordFailure{ID: fact.ID, Stage: domain.StageExtract, Reason: err.Error()})
			continue
		}
		seen[fact.ID] = true
		out.Facts = append(out.Facts, fact)
	}
	return out
}

// ExtractJSON decodes a JSON array of raw payloads and extracts each element.
// An element of the wrong shape fails on its own; only a document that is not
// an array fails as a whole.
func (e *FactExtractor) ExtractJSON(data []byte) (Batch, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return Batch{}, common.WrapError(common.ErrCodeMalformedInput, "repository payload is not a JSON array", err)
	}

	var out Batch
	raws := make([]domain.RawRepoPayload, 0, len(elems))
	for i, elem := range elems {
		var raw domain.RawRepoPayload
		if err := json.Unmarshal(elem, &raw); err != nil {
			id := peekID(elem)
			if id == "" {
				id = fmt.Sprintf("#%d", i)
			}
			wrapped := common.WrapError(common.ErrCodeMalformedInput, fmt.Sprintf("repository %s has the wrong shape", id), err)
			out.Failures = append(out.Failures, domain.RecordFailure{ID: id, Stage: domain.StageExtract, Reason: wrapped.Error()})
			continue
		}
		raws = append(raws, raw)
	}

	batch := e.ExtractAll(raws)
	out.Facts = batch.Facts
	out.Failures = append(out.Failures, batch.Failures...)
	return out, nil
}

func peekID(elem json.RawMessage) string {
	var probe struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(elem, &probe); err != nil {
		return ""
	}
	if s, ok := probe.ID.(string); ok {
		return s
	}
	return ""
}

func validateID(id string) error {
	if id == "" {
		return common.NewError(common.ErrCodeMalformedInput, "repository id is missing")
	}
	owner, name, ok := strings.Cut(id, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") || strings.ContainsAny(id, " \t\n") {
		return malformed(id, "id must look like owner/name")
	}
	return nil
}

func malformed(id, reason string) error {
	return common.NewError(common.ErrCodeMalformedInput, fmt.Sprintf("repository %s: %s", id, reason))
}

func normalizeTopics(topics []string) []string {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func capRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
