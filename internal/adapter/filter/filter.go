// Package filter drops repositories that should never reach scoring:
// stale ones, excluded ids, forks, archived and README-only repositories.
package filter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v53/github"
	"go.uber.org/zap"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

// Options selects which filters Apply runs. Zero values disable a filter.
type Options struct {
	MaxAgeDays   int      `mapstructure:"max-age-days"`
	Exclude      []string `mapstructure:"exclude"`
	SkipForks    bool     `mapstructure:"skip-forks"`
	SkipArchived bool     `mapstructure:"skip-archived"`
	ReadmeOnly   bool     `mapstructure:"readme-only"`
}

// Step describes the result of executing a filtering step.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// RepoFilter runs the filters; client is only needed for the README-only check.
type RepoFilter struct {
	client  *github.Client
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewRepoFilter 创建新的过滤器实例
func NewRepoFilter(client *github.Client, logger *zap.Logger) *RepoFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepoFilter{
		client:  client,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Apply runs every enabled filter in a fixed order and reports one Step per filter run.
func (f *RepoFilter) Apply(ctx context.Context, facts []domain.RepositoryFact, opts Options) ([]domain.RepositoryFact, []Step, error) {
	var steps []Step
	run := func(name string, fn func([]domain.RepositoryFact) []domain.RepositoryFact) {
		before := len(facts)
		facts = fn(facts)
		step := Step{Name: name, Initial: before, Dropped: before - len(facts), Left: len(facts)}
		steps = append(steps, step)
		f.logger.Info("filter step",
			zap.String("name", step.Name),
			zap.Int("initial", step.Initial),
			zap.Int("dropped", step.Dropped),
			zap.Int("left", step.Left),
		)
	}

	if len(opts.Exclude) > 0 {
		run("exclude", func(in []domain.RepositoryFact) []domain.RepositoryFact { return f.FilterExcluded(in, opts.Exclude) })
	}
	if opts.SkipForks || opts.SkipArchived {
		run("forks-archived", func(in []domain.RepositoryFact) []domain.RepositoryFact {
			return f.FilterForks(in, opts.SkipForks, opts.SkipArchived)
		})
	}
	if opts.MaxAgeDays > 0 {
		run("max-age", func(in []domain.RepositoryFact) []domain.RepositoryFact { return f.FilterByUpdatedAt(in, opts.MaxAgeDays) })
	}
	if opts.ReadmeOnly {
		var err error
		run("readme-only", func(in []domain.RepositoryFact) []domain.RepositoryFact {
			var out []domain.RepositoryFact
			out, err = f.FilterReadmeOnly(ctx, in)
			if err != nil {
				return in
			}
			return out
		})
		if err != nil {
			return nil, steps, err
		}
	}
	return facts, steps, nil
}

// FilterByUpdatedAt 过滤掉最近更新时间超过指定天数的项目
func (f *RepoFilter) FilterByUpdatedAt(facts []domain.RepositoryFact, maxDaysOld int) []domain.RepositoryFact {
	filtered := make([]domain.RepositoryFact, 0, len(facts))
	maxAge := time.Duration(maxDaysOld) * 24 * time.Hour
	current := f.nowFunc()

	for _, fact := range facts {
		if current.Sub(fact.UpdatedAt) <= maxAge {
			filtered = append(filtered, fact)
		}
	}
	return filtered
}

// FilterExcluded drops repositories whose id is in ids. Matching ignores case.
func (f *RepoFilter) FilterExcluded(facts []domain.RepositoryFact, ids []string) []domain.RepositoryFact {
	excluded := make(map[string]bool, len(ids))
	for _, id := range ids {
		excluded[strings.ToLower(strings.TrimSpace(id))] = true
	}

	filtered := make([]domain.RepositoryFact, 0, len(facts))
	for _, fact := range facts {
		if excluded[strings.ToLower(fact.ID)] {
			f.logger.Debug("repository excluded", zap.String("repo_id", fact.ID))
			continue
		}
		filtered = append(filtered, fact)
	}
	return filtered
}

// FilterForks drops forks and/or archived repositories.
func (f *RepoFilter) FilterForks(facts []domain.RepositoryFact, forks, archived bool) []domain.RepositoryFact {
	filtered := make([]domain.RepositoryFact, 0, len(facts))
	for _, fact := range facts {
		if (forks && fact.Fork) || (archived && fact.Archived) {
			continue
		}
		filtered = append(filtered, fact)
	}
	return filtered
}

// FilterReadmeOnly 过滤掉仅有 README 提交的项目
// API 失败时保守地保留该项目
func (f *RepoFilter) FilterReadmeOnly(ctx context.Context, facts []domain.RepositoryFact) ([]domain.RepositoryFact, error) {
	if f.client == nil {
		// 没有GitHub客户端时无法检查提交，保守地返回原列表
		return append([]domain.RepositoryFact(nil), facts...), nil
	}

	filtered := make([]domain.RepositoryFact, 0, len(facts))
	for _, fact := range facts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		owner, name, ok := ownerAndName(fact)
		if !ok {
			f.logger.Warn("cannot resolve repository owner", zap.String("repo_id", fact.ID), zap.String("url", fact.URL))
			filtered = append(filtered, fact)
			continue
		}

		hasRealCommit, err := f.hasNonReadmeCommit(ctx, owner, name)
		if err != nil {
			f.logger.Warn("commit check failed, keeping repository", zap.String("repo_id", fact.ID), zap.Error(err))
			filtered = append(filtered, fact)
			continue
		}
		if !hasRealCommit {
			f.logger.Info("README-only repository dropped", zap.String("repo_id", fact.ID))
			continue
		}
		filtered = append(filtered, fact)
	}
	return filtered, nil
}

// ownerAndName prefers the github.com URL and falls back to an "owner/name" id.
func ownerAndName(fact domain.RepositoryFact) (string, string, bool) {
	if u, err := url.Parse(fact.URL); err == nil && u.Host == "github.com" {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], true
		}
	}
	owner, name, found := strings.Cut(fact.ID, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

// hasNonReadmeCommit 检查仓库最近的提交中是否有非README相关的提交
func (f *RepoFilter) hasNonReadmeCommit(ctx context.Context, owner, name string) (bool, error) {
	const maxCommitsToCheck = 10

	commits, _, err := f.client.Repositories.ListCommits(ctx, owner, name, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: maxCommitsToCheck},
	})
	if err != nil {
		return false, fmt.Errorf("list commits of %s/%s: %w", owner, name, err)
	}

	for _, commit := range commits {
		hasNonReadme, err := f.commitHasNonReadmeChanges(ctx, owner, name, commit.GetSHA())
		if err != nil {
			f.logger.Debug("commit detail unavailable", zap.String("sha", commit.GetSHA()), zap.Error(err))
			continue
		}
		if hasNonReadme {
			return true, nil
		}
	}
	return false, nil
}

// commitHasNonReadmeChanges 检查单个提交是否包含非README文件的修改
func (f *RepoFilter) commitHasNonReadmeChanges(ctx context.Context, owner, name, sha string) (bool, error) {
	var commit *github.RepositoryCommit

	err := common.Do(ctx, func() error {
		var apiErr error
		commit, _, apiErr = f.client.Repositories.GetCommit(ctx, owner, name, sha, nil)
		return apiErr
	}, common.WithMaxRetries(2), common.WithInitialDelay(500*time.Millisecond))
	if err != nil {
		return false, fmt.Errorf("get commit %s: %w", sha, err)
	}

	if commit == nil || len(commit.Files) == 0 {
		// 没有文件变更信息，保守地认为有实际提交
		return true, nil
	}
	for _, file := range commit.Files {
		if !isReadmeFile(file.GetFilename()) {
			return true, nil
		}
	}
	return false, nil
}

var readmeNames = map[string]bool{
	"readme":          true,
	"readme.md":       true,
	"readme.txt":      true,
	"readme.rst":      true,
	"readme.markdown": true,
	"readme.mdown":    true,
	"readme.mkdn":     true,
}

// isReadmeFile 判断文件名是否为README相关文件 (含子目录，如 docs/README.md)
func isReadmeFile(filename string) bool {
	if filename == "" {
		return false
	}
	lower := strings.ToLower(filename)
	if i := strings.LastIndex(lower, "/"); i >= 0 {
		lower = lower[i+1:]
	}
	return readmeNames[lower]
}
