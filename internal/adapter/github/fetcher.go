package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v53/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

// NewClient 初始化 GitHub 客户端
// token 为空时匿名访问，限制 60 次/小时
func NewClient(token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(context.Background(), ts))
}

// Fetcher 实现了 port.RepoSource 接口
type Fetcher struct {
	client      *github.Client
	concurrency int
	retryOpts   []common.Option
	logger      *zap.Logger
}

// NewFetcher wraps client. Per-repository detail calls run concurrency at a time.
func NewFetcher(client *github.Client, concurrency int, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Fetcher{
		client:      client,
		concurrency: concurrency,
		retryOpts: []common.Option{
			common.WithMaxRetries(3),
			common.WithInitialDelay(time.Second),
			common.WithRetryIf(retryable),
		},
		logger: logger,
	}
}

// ListUserRepos lists the user's own public repositories, most recently
// updated first, then fills in languages and README for each.
func (f *Fetcher) ListUserRepos(ctx context.Context, username string, limit int) ([]domain.RawRepoPayload, error) {
	if limit <= 0 {
		return nil, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("max repositories must be positive, got %d", limit))
	}

	perPage := limit
	if perPage > 100 {
		perPage = 100
	}
	opts := &github.RepositoryListOptions{
		Type:        "owner",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var repos []*github.Repository
	for len(repos) < limit {
		var page []*github.Repository
		var resp *github.Response
		err := common.Do(ctx, func() error {
			var apiErr error
			page, resp, apiErr = f.client.Repositories.List(ctx, username, opts)
			return classify(apiErr)
		}, f.retryOpts...)
		if err != nil {
			return nil, common.WrapError(common.ErrCodeGitHubAPI, fmt.Sprintf("list repositories of %s", username), err)
		}
		repos = append(repos, page...)
		if resp == nil || resp.NextPage == 0 || len(page) == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	if len(repos) > limit {
		repos = repos[:limit]
	}

	f.logger.Info("repositories listed", zap.String("username", username), zap.Int("count", len(repos)))
	return f.enrichAll(ctx, repos)
}

// GetRepo fetches one repository with its languages and README.
func (f *Fetcher) GetRepo(ctx context.Context, owner, name string) (domain.RawRepoPayload, error) {
	var repo *github.Repository
	err := common.Do(ctx, func() error {
		var apiErr error
		repo, _, apiErr = f.client.Repositories.Get(ctx, owner, name)
		return classify(apiErr)
	}, f.retryOpts...)
	if err != nil {
		return domain.RawRepoPayload{}, common.WrapError(common.ErrCodeGitHubAPI, fmt.Sprintf("get repository %s/%s", owner, name), err)
	}

	out, err := f.enrichAll(ctx, []*github.Repository{repo})
	if err != nil {
		return domain.RawRepoPayload{}, err
	}
	return out[0], nil
}

// enrichAll fetches details in parallel; results keep the input order.
func (f *Fetcher) enrichAll(ctx context.Context, repos []*github.Repository) ([]domain.RawRepoPayload, error) {
	out := make([]domain.RawRepoPayload, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, repo := range repos {
		i, repo := i, repo
		g.Go(func() error {
			out[i] = f.enrich(gctx, repo)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch repository details: %w", err)
	}
	return out, nil
}

// enrich never fails on a single repository: a missing language list is left
// empty for the fact extractor to reject, a missing README becomes "".
func (f *Fetcher) enrich(ctx context.Context, repo *github.Repository) domain.RawRepoPayload {
	owner, name := repo.GetOwner().GetLogin(), repo.GetName()
	payload := domain.RawRepoPayload{
		ID:          repo.GetFullName(),
		URL:         repo.GetHTMLURL(),
		Description: repo.GetDescription(),
		Topics:      repo.Topics,
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		Fork:        repo.GetFork(),
		Archived:    repo.GetArchived(),
		UpdatedAt:   repo.GetUpdatedAt().Time,
	}
	if payload.ID == "" {
		payload.ID = owner + "/" + name
	}

	err := common.Do(ctx, func() error {
		langs, _, apiErr := f.client.Repositories.ListLanguages(ctx, owner, name)
		if apiErr == nil {
			payload.Languages = langs
		}
		return classify(apiErr)
	}, f.retryOpts...)
	if err != nil {
		f.logger.Warn("languages unavailable", zap.String("repo_id", payload.ID), zap.Error(err))
	}

	err = common.Do(ctx, func() error {
		readme, _, apiErr := f.client.Repositories.GetReadme(ctx, owner, name, nil)
		if apiErr != nil {
			return classify(apiErr)
		}
		text, decodeErr := readme.GetContent()
		if decodeErr != nil {
			return common.Permanent(decodeErr)
		}
		payload.ReadmeText = text
		return nil
	}, f.retryOpts...)
	switch {
	case errors.Is(err, common.ErrNotFound):
		f.logger.Debug("no README", zap.String("repo_id", payload.ID))
	case err != nil:
		f.logger.Warn("README unavailable", zap.String("repo_id", payload.ID), zap.Error(err))
	}

	return payload
}

// classify turns a 404 into a permanent NOT_FOUND error so it is not retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return common.Permanent(common.WrapError(common.ErrCodeNotFound, "resource not found", err))
	}
	return err
}

// retryable keeps retrying server errors, rate limits and transport failures, not other 4xx.
func retryable(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		return code >= 500 || code == http.StatusTooManyRequests
	}
	return true
}
