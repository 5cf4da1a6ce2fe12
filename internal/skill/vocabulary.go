// Package skill holds the known-skill dictionary and the matcher that turns
// free text, language names and topics into canonical skill tokens.
package skill

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one canonical skill.
// When Ambiguous is set the bare Name only counts inside a context phrase
// ("experience with go"); Aliases always count.
type Entry struct {
	Name       string   `yaml:"name"`
	Aliases    []string `yaml:"aliases,omitempty"`
	Ambiguous  bool     `yaml:"ambiguous,omitempty"`
	Resources  []string `yaml:"resources,omitempty"`
	Objectives []string `yaml:"objectives,omitempty"`
}

// Domain is an industry or problem-area tag and the phrases that signal it.
type Domain struct {
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
}

type phraseTarget struct {
	canonical string
	ambiguous bool
}

// Vocabulary is an immutable skill dictionary. Safe for concurrent use.
type Vocabulary struct {
	entries  []Entry
	byName   map[string]int
	domains  []Domain
	skills   map[string]phraseTarget
	tags     map[string]string
	maxWords int
}

type file struct {
	Skills  []Entry  `yaml:"skills"`
	Domains []Domain `yaml:"domains"`
}

// New builds a vocabulary. Names are normalized to lower case; a phrase that
// points at two different skills is rejected.
func New(entries []Entry, domains []Domain) (*Vocabulary, error) {
	v := &Vocabulary{
		byName: make(map[string]int, len(entries)),
		skills: make(map[string]phraseTarget),
		tags:   make(map[string]string),
	}

	for _, e := range entries {
		e.Name = strings.ToLower(strings.TrimSpace(e.Name))
		if e.Name == "" {
			return nil, fmt.Errorf("skill entry with empty name")
		}
		if _, dup := v.byName[e.Name]; dup {
			return nil, fmt.Errorf("skill %q defined twice", e.Name)
		}
		v.byName[e.Name] = len(v.entries)
		v.entries = append(v.entries, e)

		if err := v.addPhrase(e.Name, e.Name, e.Ambiguous); err != nil {
			return nil, err
		}
		for _, alias := range e.Aliases {
			if err := v.addPhrase(alias, e.Name, false); err != nil {
				return nil, err
			}
		}
	}

	for _, d := range domains {
		d.Tag = strings.ToLower(strings.TrimSpace(d.Tag))
		if d.Tag == "" {
			return nil, fmt.Errorf("domain with empty tag")
		}
		v.domains = append(v.domains, d)
		for _, kw := range append([]string{d.Tag}, d.Keywords...) {
			key := phraseKey(kw)
			if key == "" {
				continue
			}
			if prev, ok := v.tags[key]; ok && prev != d.Tag {
				return nil, fmt.Errorf("domain keyword %q maps to both %q and %q", kw, prev, d.Tag)
			}
			v.tags[key] = d.Tag
			v.trackWidth(key)
		}
	}

	return v, nil
}

func (v *Vocabulary) addPhrase(phrase, canonical string, ambiguous bool) error {
	key := phraseKey(phrase)
	if key == "" {
		return fmt.Errorf("skill %q has an empty alias", canonical)
	}
	if prev, ok := v.skills[key]; ok && prev.canonical != canonical {
		return fmt.Errorf("phrase %q maps to both %q and %q", phrase, prev.canonical, canonical)
	}
	v.skills[key] = phraseTarget{canonical: canonical, ambiguous: ambiguous}
	v.trackWidth(key)
	return nil
}

func (v *Vocabulary) trackWidth(key string) {
	if n := strings.Count(key, " ") + 1; n > v.maxWords {
		v.maxWords = n
	}
}

// With returns a copy of v where entries and domains replace same-named ones and new ones are appended.
func (v *Vocabulary) With(entries []Entry, domains []Domain) (*Vocabulary, error) {
	merged := make([]Entry, len(v.entries))
	copy(merged, v.entries)
	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if i, ok := v.byName[name]; ok {
			merged[i] = e
			continue
		}
		merged = append(merged, e)
	}

	mergedDomains := make([]Domain, len(v.domains))
	copy(mergedDomains, v.domains)
outer:
	for _, d := range domains {
		tag := strings.ToLower(strings.TrimSpace(d.Tag))
		for i := range mergedDomains {
			if mergedDomains[i].Tag == tag {
				mergedDomains[i] = d
				continue outer
			}
		}
		mergedDomains = append(mergedDomains, d)
	}

	return New(merged, mergedDomains)
}

// Parse reads a YAML document with `skills:` and `domains:` lists and layers it over the default vocabulary.
func Parse(data []byte) (*Vocabulary, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	return Default().With(f.Skills, f.Domains)
}

// LoadFile reads a vocabulary YAML file, see Parse.
func LoadFile(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	return Parse(data)
}

// Entry returns the dictionary entry for a canonical skill.
func (v *Vocabulary) Entry(name string) (Entry, bool) {
	i, ok := v.byName[name]
	if !ok {
		return Entry{}, false
	}
	return v.entries[i], true
}

// Canonical resolves a single name (language, topic, alias) to its canonical skill.
// Ambiguous names resolve too: a language key or a topic is never prose.
func (v *Vocabulary) Canonical(name string) (string, bool) {
	key := phraseKey(name)
	if t, ok := v.skills[key]; ok {
		return t.canonical, true
	}
	if spaced := phraseKey(strings.ReplaceAll(name, "-", " ")); spaced != key {
		if t, ok := v.skills[spaced]; ok {
			return t.canonical, true
		}
	}
	return "", false
}

// Skills returns all canonical skill names, sorted.
func (v *Vocabulary) Skills() []string {
	names := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Domains returns the configured domain tags in definition order.
func (v *Vocabulary) Domains() []string {
	tags := make([]string, 0, len(v.domains))
	for _, d := range v.domains {
		tags = append(tags, d.Tag)
	}
	return tags
}

func phraseKey(s string) string {
	toks := Tokenize(s)
	return strings.Join(toks, " ")
}
