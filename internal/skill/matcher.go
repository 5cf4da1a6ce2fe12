package skill

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github-cv-curator/internal/domain"
)

type token struct {
	text string
	pos  int
}

// Tokenize lower-cases text and splits it into words. '+', '#', '.' and '-'
// stay inside words so that c++, c#, node.js and scikit-learn survive;
// trailing dots and dashes are stripped.
func Tokenize(text string) []string {
	toks := tokenizeAt(strings.ToLower(text), 0)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.text
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' || r == '-'
}

func tokenizeAt(lower string, base int) []token {
	var out []token
	start := -1
	flush := func(end int) {
		s := strings.TrimRight(lower[start:end], ".-")
		if s != "" {
			out = append(out, token{text: s, pos: base + start})
		}
		start = -1
	}
	for i, r := range lower {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
		}
	}
	if start >= 0 {
		flush(len(lower))
	}
	return out
}

var (
	// "experience with X", "proficiency in X, Y and Z", "knowledge of X"
	contextPhrase = regexp.MustCompile(`(?:experience|experienced|proficiency|proficient|knowledge|expertise|familiarity|familiar|skilled|fluency|fluent|background|comfortable|hands-on)\s+(?:with|in|of|using)\s+([^;:!?\n()]+?)(?:\.(?:\s|$)|[;:!?\n()]|$)`)
	// "senior go engineer", "java developers"
	rolePhrase = regexp.MustCompile(`(?:^|[\s,(])([a-z0-9+#.]+)\s+(?:developer|engineer|programmer)s?\b`)
	listSplit  = regexp.MustCompile(`\s*(?:,|/|&|\band\b|\bor\b)\s*`)
)

// ambiguous names inside a context phrase only count when the list item is this short
const maxContextItemWords = 3

type hit struct {
	canonical string
	pos       int
}

// Match returns the canonical skills mentioned in text, in order of first mention.
// Ambiguous names are kept only when a context detector vouches for them; unknown words are dropped.
func (v *Vocabulary) Match(text string) []string {
	mentions := v.Mentions(text)
	out := make([]string, len(mentions))
	for i, m := range mentions {
		out[i] = m.Skill
	}
	return out
}

// Mention is a canonical skill and the byte offset of its first mention in the
// lower-cased text.
type Mention struct {
	Skill string
	Pos   int
}

// Mentions is Match with positions.
func (v *Vocabulary) Mentions(text string) []Mention {
	lower := strings.ToLower(text)

	var hits []hit
	hits = v.scan(tokenizeAt(lower, 0), false, hits)

	for _, m := range contextPhrase.FindAllStringSubmatchIndex(lower, -1) {
		hits = v.scanList(lower, m[2], m[3], hits)
	}
	for _, m := range rolePhrase.FindAllStringSubmatchIndex(lower, -1) {
		hits = v.scan(tokenizeAt(lower[m[2]:m[3]], m[2]), true, hits)
	}

	first := firstHits(hits)
	out := make([]Mention, len(first))
	for i, h := range first {
		out[i] = Mention{Skill: h.canonical, Pos: h.pos}
	}
	return out
}

// MatchDomains returns the domain tags mentioned in text, in order of first mention.
func (v *Vocabulary) MatchDomains(text string) []string {
	toks := tokenizeAt(strings.ToLower(text), 0)
	var hits []hit
	for i := 0; i < len(toks); {
		n, tag := v.longest(toks[i:], func(key string) (string, bool) {
			t, ok := v.tags[key]
			return t, ok
		})
		if n == 0 {
			i++
			continue
		}
		hits = append(hits, hit{canonical: tag, pos: toks[i].pos})
		i += n
	}
	first := firstHits(hits)
	out := make([]string, len(first))
	for i, h := range first {
		out[i] = h.canonical
	}
	return out
}

func (v *Vocabulary) scanList(lower string, start, end int, hits []hit) []hit {
	phrase := lower[start:end]
	cursor := 0
	for _, sep := range append(listSplit.FindAllStringIndex(phrase, -1), []int{len(phrase), len(phrase)}) {
		item := tokenizeAt(phrase[cursor:sep[0]], start+cursor)
		hits = v.scan(item, len(item) <= maxContextItemWords, hits)
		cursor = sep[1]
	}
	return hits
}

// scan walks tokens left to right taking the longest known phrase at each
// position. An unknown hyphenated word is scanned again part by part, so
// "python-based" yields python while "scikit-learn" stays whole.
func (v *Vocabulary) scan(toks []token, allowAmbiguous bool, hits []hit) []hit {
	for i := 0; i < len(toks); {
		n, canonical := v.longest(toks[i:], func(key string) (string, bool) {
			t, ok := v.skills[key]
			if !ok || (t.ambiguous && !allowAmbiguous) {
				return "", false
			}
			return t.canonical, true
		})
		if n == 0 {
			if parts := splitHyphens(toks[i]); len(parts) > 1 {
				hits = v.scan(parts, allowAmbiguous, hits)
			}
			i++
			continue
		}
		hits = append(hits, hit{canonical: canonical, pos: toks[i].pos})
		i += n
	}
	return hits
}

func splitHyphens(t token) []token {
	if !strings.Contains(t.text, "-") {
		return nil
	}
	var parts []token
	offset := 0
	for _, p := range strings.Split(t.text, "-") {
		if s := strings.TrimRight(p, "."); s != "" {
			parts = append(parts, token{text: s, pos: t.pos + offset})
		}
		offset += len(p) + 1
	}
	return parts
}

func (v *Vocabulary) longest(toks []token, lookup func(string) (string, bool)) (int, string) {
	width := v.maxWords
	if width > len(toks) {
		width = len(toks)
	}
	for n := width; n >= 1; n-- {
		words := make([]string, n)
		for j := 0; j < n; j++ {
			words[j] = toks[j].text
		}
		if found, ok := lookup(strings.Join(words, " ")); ok {
			return n, found
		}
	}
	return 0, ""
}

// firstHits orders hits by position and keeps the first mention of each name.
func firstHits(hits []hit) []hit {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	seen := make(map[string]bool, len(hits))
	out := make([]hit, 0, len(hits))
	for _, h := range hits {
		if seen[h.canonical] {
			continue
		}
		seen[h.canonical] = true
		out = append(out, h)
	}
	return out
}

// RepoSkills derives a repository's skill set from its language keys, topics,
// description and README. Languages and topics the dictionary does not know are
// kept as lower-cased names. The result is sorted and unique.
func (v *Vocabulary) RepoSkills(fact domain.RepositoryFact) []string {
	set := make(map[string]struct{})
	add := func(name string) {
		if c, ok := v.Canonical(name); ok {
			set[c] = struct{}{}
			return
		}
		if key := phraseKey(name); key != "" {
			set[key] = struct{}{}
		}
	}

	for lang := range fact.Languages {
		add(lang)
	}
	for _, topic := range fact.Topics {
		add(topic)
	}
	for _, s := range v.Match(fact.Description) {
		set[s] = struct{}{}
	}
	for _, s := range v.Match(fact.ReadmeText) {
		set[s] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
