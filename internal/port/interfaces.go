package port

import (
	"context"

	"github-cv-curator/internal/domain"
)

// RepoSource (侦察兵): fetches raw repository payloads from GitHub or a file.
type RepoSource interface {
	// ListUserRepos returns the user's repositories, most recently updated first, at most limit.
	ListUserRepos(ctx context.Context, username string, limit int) ([]domain.RawRepoPayload, error)
	// GetRepo fetches a single repository by owner/name.
	GetRepo(ctx context.Context, owner, name string) (domain.RawRepoPayload, error)
}

// Scorer (鉴定师): rates one repository against one requirement.
// Implementations must not keep state between calls.
type Scorer interface {
	Name() string
	Score(ctx context.Context, fact domain.RepositoryFact, req domain.JobRequirement) (domain.ScoredRepository, error)
}

// RunStore (仓库管理员): persists curation runs.
type RunStore interface {
	SaveRun(ctx context.Context, report *domain.RunReport) (uint, error)
	ListRuns(ctx context.Context, username string, limit int) ([]domain.RunSummary, error)
}

// Notifier (信使): pushes a run summary to a chat channel.
type Notifier interface {
	NotifyRun(ctx context.Context, report *domain.RunReport) error
}

// ReportWriter renders a finished run somewhere (files, console).
type ReportWriter interface {
	Write(ctx context.Context, report *domain.RunReport) error
}
