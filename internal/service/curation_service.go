package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github-cv-curator/internal/adapter/analyzer"
	"github-cv-curator/internal/adapter/extractor"
	"github-cv-curator/internal/adapter/filter"
	"github-cv-curator/internal/adapter/scorer"
	"github-cv-curator/internal/adapter/gap"
	"github-cv-curator/internal/adapter/selector"
	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
	"github-cv-curator/internal/logger"
	"github-cv-curator/internal/port"
)

const maxLogLength = 120

// Request is one curation run.
type Request struct {
	Username       string
	Repo           string // when set only owner Username's repository Repo is curated
	JobDescription string
	Count          int
	Diversity      bool
	MaxRepos       int
	Filter         filter.Options
	Profile        domain.Profile
}

// Deps aggregates the collaborators of the service. Analyzer and Requirements
// are mandatory, Source is needed by Curate only, the rest is optional.
type Deps struct {
	Source       port.RepoSource
	Facts        *extractor.FactExtractor
	Requirements *extractor.RequirementExtractor
	Filter       *filter.RepoFilter
	Analyzer     *analyzer.RepoAnalyzer
	Selector     *selector.Selector
	Gaps         *gap.Analyzer
	Writers      []port.ReportWriter
	Store        port.RunStore
	Notifier     port.Notifier
	Logger       *zap.Logger
}

// factsWriter is implemented by writers that also keep the extracted facts.
type factsWriter interface {
	WriteFacts(ctx context.Context, facts []domain.RepositoryFact) error
}

// CurationService 处理整个 CV 项目精选流程
type CurationService struct {
	deps    Deps
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewCurationService 创建新的精选服务
func NewCurationService(deps Deps) (*CurationService, error) {
	if deps.Analyzer == nil {
		return nil, common.NewError(common.ErrCodeInvalidInput, "curation service needs an analyzer")
	}
	if deps.Requirements == nil {
		return nil, common.NewError(common.ErrCodeInvalidInput, "curation service needs a requirement extractor")
	}
	if deps.Facts == nil {
		deps.Facts = extractor.NewFactExtractor()
	}
	if deps.Selector == nil {
		deps.Selector = selector.New()
	}
	if deps.Gaps == nil {
		deps.Gaps = gap.New(nil)
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &CurationService{deps: deps, logger: log, nowFunc: time.Now}, nil
}

// Curate fetches the user's repositories and runs the whole pipeline.
func (s *CurationService) Curate(ctx context.Context, req Request) (*domain.RunReport, error) {
	started := s.nowFunc()
	requirement, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if s.deps.Source == nil {
		return nil, common.NewError(common.ErrCodeInvalidInput, "no repository source configured")
	}

	var raws []domain.RawRepoPayload
	if req.Repo != "" {
		s.logger.Info("fetching repository", zap.String("username", req.Username), zap.String("repo", req.Repo))
		raw, err := s.deps.Source.GetRepo(ctx, req.Username, req.Repo)
		if err != nil {
			return nil, fmt.Errorf("fetch %s/%s: %w", req.Username, req.Repo, err)
		}
		raws = []domain.RawRepoPayload{raw}
	} else {
		s.logger.Info("fetching repositories", zap.String("username", req.Username), zap.Int("max_repos", req.MaxRepos))
		raws, err = s.deps.Source.ListUserRepos(ctx, req.Username, req.MaxRepos)
		if err != nil {
			return nil, fmt.Errorf("fetch repositories of %s: %w", req.Username, err)
		}
	}

	return s.run(ctx, req, requirement, s.deps.Facts.ExtractAll(raws), started)
}

// CurateBatch runs the pipeline on payloads that were already extracted, for
// example from a local JSON file.
func (s *CurationService) CurateBatch(ctx context.Context, req Request, batch extractor.Batch) (*domain.RunReport, error) {
	started := s.nowFunc()
	requirement, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, req, requirement, batch, started)
}

// History lists the stored runs of username, newest first.
func (s *CurationService) History(ctx context.Context, username string, limit int) ([]domain.RunSummary, error) {
	if s.deps.Store == nil {
		return nil, common.NewError(common.ErrCodeInvalidInput, "run history needs storage.dsn to be configured")
	}
	return s.deps.Store.ListRuns(ctx, username, limit)
}

// prepare validates the request and extracts the requirement before any I/O.
func (s *CurationService) prepare(req Request) (domain.JobRequirement, error) {
	if req.Count <= 0 {
		return domain.JobRequirement{}, common.NewError(common.ErrCodeInvalidCount,
			fmt.Sprintf("selection count must be positive, got %d", req.Count))
	}

	requirement, err := s.deps.Requirements.Extract(req.JobDescription)
	if err != nil {
		s.logger.Error("requirement extraction failed",
			zap.String("job_description", logger.TruncateForLog(req.JobDescription, maxLogLength)),
			zap.Error(err))
		return domain.JobRequirement{}, err
	}
	s.logger.Info("requirement extracted",
		zap.Strings("required", requirement.RequiredSkills),
		zap.Strings("preferred", requirement.PreferredSkills),
		zap.Stringer("seniority", requirement.Seniority),
		zap.Strings("domains", requirement.DomainTags))
	return requirement, nil
}

func (s *CurationService) run(ctx context.Context, req Request, requirement domain.JobRequirement, batch extractor.Batch, started time.Time) (*domain.RunReport, error) {
	failures := append([]domain.RecordFailure(nil), batch.Failures...)
	for _, f := range batch.Failures {
		s.logger.Warn("repository skipped", zap.String("repo_id", f.ID), zap.String("stage", f.Stage), zap.String("reason", f.Reason))
	}
	s.logger.Info("facts extracted", zap.Int("facts", len(batch.Facts)), zap.Int("failures", len(batch.Failures)))

	for _, w := range s.deps.Writers {
		if fw, ok := w.(factsWriter); ok {
			if err := fw.WriteFacts(ctx, batch.Facts); err != nil {
				return nil, err
			}
		}
	}

	facts := batch.Facts
	if s.deps.Filter != nil {
		var err error
		facts, _, err = s.deps.Filter.Apply(ctx, facts, req.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter repositories: %w", err)
		}
	}

	scored, scoreFailures, err := s.deps.Analyzer.ScoreAll(scorer.WithReferenceTime(ctx, started), facts, requirement)
	if err != nil {
		return nil, err
	}
	for _, f := range scoreFailures {
		s.logger.Warn("repository not scored", zap.String("repo_id", f.ID), zap.String("reason", f.Reason))
	}
	failures = append(failures, scoreFailures...)

	selection, err := s.deps.Selector.Select(scored, req.Count, req.Diversity)
	if err != nil {
		return nil, err
	}
	for _, e := range selection.Entries {
		s.logger.Info("project selected",
			zap.Int("rank", e.Rank),
			zap.String("repo_id", e.Repository.ID()),
			zap.Float64("score", e.Repository.Score))
	}

	gaps := s.deps.Gaps.Analyze(selection, requirement)
	report := &domain.RunReport{
		Username:        req.Username,
		JobDescription:  req.JobDescription,
		Requirement:     requirement,
		Scored:          scored,
		Selection:       selection,
		Gaps:            gaps,
		Recommendations: s.deps.Gaps.Recommend(gaps, selection, requirement),
		Failures:        failures,
		Profile:         req.Profile,
		StartedAt:       started,
		FinishedAt:      s.nowFunc(),
	}

	for _, w := range s.deps.Writers {
		if err := w.Write(ctx, report); err != nil {
			return nil, err
		}
	}
	s.publish(ctx, report)
	return report, nil
}

// publish stores and announces the run. Both are best effort: the report is
// already written, so failures are logged and the run still succeeds.
func (s *CurationService) publish(ctx context.Context, report *domain.RunReport) {
	if s.deps.Store != nil {
		id, err := s.deps.Store.SaveRun(ctx, report)
		if err != nil {
			s.logger.Error("run not stored", zap.String("username", report.Username), zap.Error(err))
		} else {
			s.logger.Info("run stored", zap.Uint("run_id", id))
		}
	}

	if s.deps.Notifier == nil {
		s.logger.Debug("no notifier configured")
		return
	}
	if err := s.deps.Notifier.NotifyRun(ctx, report); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("run summary not pushed", zap.String("username", report.Username), zap.Error(err))
	}
}
