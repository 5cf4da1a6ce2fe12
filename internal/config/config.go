// Package config holds the curator configuration: defaults, viper loading from
// file, environment and flags, and validation.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github-cv-curator/internal/adapter/filter"
	"github-cv-curator/internal/adapter/gemini"
	"github-cv-curator/internal/adapter/scorer"
	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

const (
	// Name is the config file name looked up in the current directory.
	Name = "cv-curator"
	// EnvPrefix prefixes every environment override, e.g. CV_CURATOR_SELECTION_COUNT.
	EnvPrefix = "CV_CURATOR"

	ProviderDeterministic = "deterministic"
	ProviderGemini        = "gemini"
)

type Config struct {
	GitHub     GitHubConfig     `mapstructure:"github" json:"github"`
	Selection  SelectionConfig  `mapstructure:"selection" json:"selection"`
	Scoring    ScoringConfig    `mapstructure:"scoring" json:"scoring"`
	Gemini     GeminiConfig     `mapstructure:"gemini" json:"gemini"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary" json:"vocabulary"`
	Filter     filter.Options   `mapstructure:"filter" json:"filter"`
	Output     OutputConfig     `mapstructure:"output" json:"output"`
	Storage    StorageConfig    `mapstructure:"storage" json:"storage"`
	Notify     NotifyConfig     `mapstructure:"notify" json:"notify"`
	Profile    domain.Profile   `mapstructure:"profile" json:"profile"`
}

type GitHubConfig struct {
	Token       string `mapstructure:"token" json:"-"`
	TokenFile   string `mapstructure:"token-file" json:"token_file,omitempty"`
	MaxRepos    int    `mapstructure:"max-repos" json:"max_repos"`
	Concurrency int    `mapstructure:"concurrency" json:"concurrency"`
}

type SelectionConfig struct {
	Count              int     `mapstructure:"count" json:"count"`
	Diversity          bool    `mapstructure:"diversity" json:"diversity"`
	DiversityPenalty   float64 `mapstructure:"diversity-penalty" json:"diversity_penalty"`
	DiversityThreshold float64 `mapstructure:"diversity-threshold" json:"diversity_threshold"`
}

type ScoringConfig struct {
	Weights     scorer.Weights `mapstructure:"weights" json:"weights"`
	Concurrency int            `mapstructure:"concurrency" json:"concurrency"`
	Provider    string         `mapstructure:"provider" json:"provider"`
}

type GeminiConfig struct {
	APIKey     string  `mapstructure:"api-key" json:"-"`
	APIKeyFile string  `mapstructure:"api-key-file" json:"api_key_file,omitempty"`
	Model      string  `mapstructure:"model" json:"model"`
	Blend      float64 `mapstructure:"blend" json:"blend"`
}

type VocabularyConfig struct {
	File string `mapstructure:"file" json:"file,omitempty"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir" json:"dir"`
}

type StorageConfig struct {
	DSN string `mapstructure:"dsn" json:"-"`
}

type NotifyConfig struct {
	FeishuWebhook string `mapstructure:"feishu-webhook" json:"-"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{MaxRepos: 30, Concurrency: 4},
		Selection: SelectionConfig{
			Count:              3,
			Diversity:          true,
			DiversityPenalty:   0.5,
			DiversityThreshold: 0.7,
		},
		Scoring: ScoringConfig{
			Weights:     scorer.DefaultWeights(),
			Concurrency: 4,
			Provider:    ProviderDeterministic,
		},
		Gemini: GeminiConfig{Model: gemini.DefaultModel, Blend: gemini.DefaultBlend},
		Filter: filter.Options{SkipForks: true},
		Output: OutputConfig{Dir: "output"},
	}
}

// well-known variables accepted next to the prefixed ones
var extraEnv = map[string]string{
	"github.token":          "GITHUB_TOKEN",
	"gemini.api-key":        "GEMINI_API_KEY",
	"storage.dsn":           "DATABASE_DSN",
	"notify.feishu-webhook": "FEISHU_WEBHOOK",
}

// SetDefaults registers Default() on v so that every key is known to viper and
// can be overridden from the environment.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("github.token", "")
	v.SetDefault("github.token-file", "")
	v.SetDefault("github.max-repos", d.GitHub.MaxRepos)
	v.SetDefault("github.concurrency", d.GitHub.Concurrency)
	v.SetDefault("selection.count", d.Selection.Count)
	v.SetDefault("selection.diversity", d.Selection.Diversity)
	v.SetDefault("selection.diversity-penalty", d.Selection.DiversityPenalty)
	v.SetDefault("selection.diversity-threshold", d.Selection.DiversityThreshold)
	v.SetDefault("scoring.weights.skill-match", d.Scoring.Weights.SkillMatch)
	v.SetDefault("scoring.weights.popularity", d.Scoring.Weights.Popularity)
	v.SetDefault("scoring.weights.recency", d.Scoring.Weights.Recency)
	v.SetDefault("scoring.weights.documentation", d.Scoring.Weights.Documentation)
	v.SetDefault("scoring.concurrency", d.Scoring.Concurrency)
	v.SetDefault("scoring.provider", d.Scoring.Provider)
	v.SetDefault("gemini.api-key", "")
	v.SetDefault("gemini.api-key-file", "")
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.blend", d.Gemini.Blend)
	v.SetDefault("vocabulary.file", "")
	v.SetDefault("filter.max-age-days", d.Filter.MaxAgeDays)
	v.SetDefault("filter.exclude", []string{})
	v.SetDefault("filter.skip-forks", d.Filter.SkipForks)
	v.SetDefault("filter.skip-archived", d.Filter.SkipArchived)
	v.SetDefault("filter.readme-only", d.Filter.ReadmeOnly)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("notify.feishu-webhook", "")
	for _, key := range []string{"name", "title", "email", "location", "linkedin"} {
		v.SetDefault("profile."+key, "")
	}
}

// Load reads the config file (path, or cv-curator.yaml in the current
// directory when path is empty), overlays the environment and the flags
// already bound to v, and validates the result. A missing default file is not
// an error; a missing explicit one is.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range extraEnv {
		prefixed := EnvPrefix + "_" + strings.NewReplacer(".", "_", "-", "_").Replace(strings.ToUpper(key))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, common.WrapError(common.ErrCodeInvalidInput, "read config", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges. Secrets are not checked here: they are only needed
// by the commands that reach the network.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.GitHub.MaxRepos > 0, "github.max-repos must be positive, got %d", c.GitHub.MaxRepos)
	check(c.GitHub.Concurrency > 0, "github.concurrency must be positive, got %d", c.GitHub.Concurrency)
	check(c.Selection.Count > 0, "selection.count must be positive, got %d", c.Selection.Count)
	check(c.Selection.DiversityPenalty >= 0, "selection.diversity-penalty must not be negative, got %v", c.Selection.DiversityPenalty)
	check(c.Selection.DiversityThreshold > 0 && c.Selection.DiversityThreshold <= 1,
		"selection.diversity-threshold must be in (0,1], got %v", c.Selection.DiversityThreshold)
	if err := c.Scoring.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring.weights: %w", err))
	}
	check(c.Scoring.Concurrency > 0, "scoring.concurrency must be positive, got %d", c.Scoring.Concurrency)
	check(c.Scoring.Provider == ProviderDeterministic || c.Scoring.Provider == ProviderGemini,
		"scoring.provider must be %q or %q, got %q", ProviderDeterministic, ProviderGemini, c.Scoring.Provider)
	check(c.Gemini.Blend >= 0 && c.Gemini.Blend <= 1, "gemini.blend must be in [0,1], got %v", c.Gemini.Blend)
	check(c.Filter.MaxAgeDays >= 0, "filter.max-age-days must not be negative, got %d", c.Filter.MaxAgeDays)
	check(strings.TrimSpace(c.Output.Dir) != "", "output.dir must not be empty")

	if len(errs) > 0 {
		return common.WrapError(common.ErrCodeInvalidInput, "invalid configuration", errors.Join(errs...))
	}
	return nil
}
