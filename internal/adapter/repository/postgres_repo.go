package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

// RunRecord is one stored curation run.
type RunRecord struct {
	ID             uint   `gorm:"primaryKey"`
	Username       string `gorm:"index;size:64"`
	JobDescription string `gorm:"type:text"`
	Requested      int
	Diversity      bool
	TopScore       float64
	GapCount       int
	StartedAt      time.Time
	FinishedAt     time.Time
	CreatedAt      time.Time

	Projects []ProjectRecord `gorm:"foreignKey:RunID"`
	Gaps     []GapRecord     `gorm:"foreignKey:RunID"`
}

func (RunRecord) TableName() string { return "curation_runs" }

// ProjectRecord is one selected repository of a run.
type ProjectRecord struct {
	ID               uint   `gorm:"primaryKey"`
	RunID            uint   `gorm:"index"`
	Rank             int
	RepoID           string `gorm:"size:255"`
	URL              string
	Score            float64
	Breakdown        string `gorm:"type:text"` // JSON object factor -> contribution
	Justification    string `gorm:"type:text"`
	DiversityPenalty float64
}

func (ProjectRecord) TableName() string { return "run_projects" }

// GapRecord is one missing skill of a run.
type GapRecord struct {
	ID         uint `gorm:"primaryKey"`
	RunID      uint `gorm:"index"`
	Skill      string
	Importance string
}

func (GapRecord) TableName() string { return "run_gaps" }

// PostgresRepo 实现了 port.RunStore 接口
type PostgresRepo struct {
	db *gorm.DB
}

// NewPostgresRepo 初始化数据库连接并自动迁移表结构
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接数据库失败", err)
	}

	if err := db.AutoMigrate(&RunRecord{}, &ProjectRecord{}, &GapRecord{}); err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "数据库迁移失败", err)
	}
	return &PostgresRepo{db: db}, nil
}

// SaveRun stores the run with its selected projects and gaps in one transaction
// and returns the new run id.
func (r *PostgresRepo) SaveRun(ctx context.Context, report *domain.RunReport) (uint, error) {
	run, err := toRecord(report)
	if err != nil {
		return 0, err
	}
	projects, gaps := run.Projects, run.Gaps
	run.Projects, run.Gaps = nil, nil

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for i := range projects {
			projects[i].RunID = run.ID
		}
		for i := range gaps {
			gaps[i].RunID = run.ID
		}
		if len(projects) > 0 {
			if err := tx.Create(&projects).Error; err != nil {
				return fmt.Errorf("insert selected projects: %w", err)
			}
		}
		if len(gaps) > 0 {
			if err := tx.Create(&gaps).Error; err != nil {
				return fmt.Errorf("insert skill gaps: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, common.WrapError(common.ErrCodeDatabase, fmt.Sprintf("save run for %s", report.Username), err)
	}
	return run.ID, nil
}

// ListRuns returns the latest runs of username, newest first.
func (r *PostgresRepo) ListRuns(ctx context.Context, username string, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	var runs []RunRecord
	err := r.db.WithContext(ctx).
		Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("rank") }).
		Where("username = ?", username).
		Order("created_at desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, fmt.Sprintf("list runs for %s", username), err)
	}

	out := make([]domain.RunSummary, 0, len(runs))
	for _, run := range runs {
		ids := make([]string, 0, len(run.Projects))
		for _, p := range run.Projects {
			ids = append(ids, p.RepoID)
		}
		out = append(out, domain.RunSummary{
			ID:          run.ID,
			Username:    run.Username,
			Requested:   run.Requested,
			Diversity:   run.Diversity,
			SelectedIDs: ids,
			TopScore:    run.TopScore,
			GapCount:    run.GapCount,
			CreatedAt:   run.CreatedAt,
		})
	}
	return out, nil
}

func toRecord(report *domain.RunReport) (RunRecord, error) {
	run := RunRecord{
		Username:       report.Username,
		JobDescription: report.JobDescription,
		Requested:      report.Selection.Requested,
		Diversity:      report.Selection.Diversity,
		GapCount:       len(report.Gaps),
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
	}

	for _, e := range report.Selection.Entries {
		breakdown, err := json.Marshal(e.Repository.Breakdown)
		if err != nil {
			return RunRecord{}, common.WrapError(common.ErrCodeInternal, fmt.Sprintf("encode breakdown of %s", e.Repository.ID()), err)
		}
		if e.Repository.Score > run.TopScore {
			run.TopScore = e.Repository.Score
		}
		run.Projects = append(run.Projects, ProjectRecord{
			Rank:             e.Rank,
			RepoID:           e.Repository.ID(),
			URL:              e.Repository.Fact.URL,
			Score:            e.Repository.Score,
			Breakdown:        string(breakdown),
			Justification:    e.Justification,
			DiversityPenalty: e.DiversityPenalty,
		})
	}
	for _, g := range report.Gaps {
		run.Gaps = append(run.Gaps, GapRecord{Skill: g.Skill, Importance: string(g.Importance)})
	}
	return run, nil
}
