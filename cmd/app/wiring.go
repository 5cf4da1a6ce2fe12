package main

import (
	"context"
	"fmt"

	gogithub "github.com/google/go-github/v53/github"
	"go.uber.org/zap"

	"github-cv-curator/internal/adapter/analyzer"
	"github-cv-curator/internal/adapter/extractor"
	"github-cv-curator/internal/adapter/feishu"
	"github-cv-curator/internal/adapter/filter"
	"github-cv-curator/internal/adapter/gap"
	"github-cv-curator/internal/adapter/gemini"
	"github-cv-curator/internal/adapter/github"
	"github-cv-curator/internal/adapter/output"
	"github-cv-curator/internal/adapter/repository"
	"github-cv-curator/internal/adapter/scorer"
	"github-cv-curator/internal/adapter/selector"
	"github-cv-curator/internal/config"
	"github-cv-curator/internal/port"
	"github-cv-curator/internal/secrets"
	"github-cv-curator/internal/service"
	"github-cv-curator/internal/skill"
)

// mode says which collaborators a command may reach.
type mode int

const (
	// online fetches from GitHub and publishes the run.
	online mode = iota
	// offline works on local files only.
	offline
)

// buildService wires the pipeline from the configuration. The returned
// function releases the LLM client when one was created.
func buildService(ctx context.Context, cfg *config.Config, m mode, log *zap.Logger) (*service.CurationService, func(), error) {
	cleanup := func() {}

	vocab := skill.Default()
	if cfg.Vocabulary.File != "" {
		var err error
		if vocab, err = skill.LoadFile(cfg.Vocabulary.File); err != nil {
			return nil, cleanup, err
		}
		log.Info("vocabulary loaded", zap.String("file", cfg.Vocabulary.File), zap.Int("skills", len(vocab.Skills())))
	}

	base, err := scorer.New(vocab, cfg.Scoring.Weights)
	if err != nil {
		return nil, cleanup, err
	}
	var relevance port.Scorer = base
	if cfg.Scoring.Provider == config.ProviderGemini {
		key, err := secrets.Load(secrets.Source{Name: "gemini api key", Value: cfg.Gemini.APIKey, File: cfg.Gemini.APIKeyFile})
		if err != nil {
			return nil, cleanup, fmt.Errorf("%w (set GEMINI_API_KEY or gemini.api-key-file)", err)
		}
		llm, err := gemini.NewScorer(ctx, key, cfg.Gemini.Model, base, cfg.Gemini.Blend, log)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() {
			if err := llm.Close(); err != nil {
				log.Warn("closing gemini client", zap.Error(err))
			}
		}
		relevance = llm
	}

	repoAnalyzer := analyzer.NewRepoAnalyzer(relevance, log)
	repoAnalyzer.SetMaxGoroutines(cfg.Scoring.Concurrency)

	deps := service.Deps{
		Facts:        extractor.NewFactExtractor(),
		Requirements: extractor.NewRequirementExtractor(vocab),
		Analyzer:     repoAnalyzer,
		Selector: selector.New(
			selector.WithPenalty(cfg.Selection.DiversityPenalty),
			selector.WithThreshold(cfg.Selection.DiversityThreshold),
		),
		Gaps:    gap.New(vocab),
		Writers: []port.ReportWriter{output.NewFileWriter(cfg.Output.Dir, log)},
		Logger:  log,
	}

	var client *gogithub.Client
	if m == online {
		client, err = githubClient(cfg)
		if err != nil {
			return nil, cleanup, err
		}
		deps.Source = github.NewFetcher(client, cfg.GitHub.Concurrency, log)

		if deps.Store, err = openStore(cfg, log); err != nil {
			cleanup()
			return nil, func() {}, err
		}
		if cfg.Notify.FeishuWebhook != "" {
			deps.Notifier = feishu.NewNotifier(cfg.Notify.FeishuWebhook, log)
		}
	}
	// without a client the README-only filter keeps everything
	deps.Filter = filter.NewRepoFilter(client, log)

	svc, err := service.NewCurationService(deps)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return svc, cleanup, nil
}

func githubClient(cfg *config.Config) (*gogithub.Client, error) {
	token, err := secrets.Optional(secrets.Source{Name: "github token", Value: cfg.GitHub.Token, File: cfg.GitHub.TokenFile})
	if err != nil {
		return nil, err
	}
	return github.NewClient(token), nil
}

// openStore returns nil when no DSN is configured; runs are then not persisted.
func openStore(cfg *config.Config, log *zap.Logger) (port.RunStore, error) {
	if cfg.Storage.DSN == "" {
		log.Debug("storage.dsn not set, runs will not be stored")
		return nil, nil
	}
	store, err := repository.NewPostgresRepo(cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	return store, nil
}
