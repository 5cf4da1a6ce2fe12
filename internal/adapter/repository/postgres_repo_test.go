package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

// setupMockDB 创建一个模拟的数据库连接
func setupMockDB(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// 禁用日志以减少输出
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return &PostgresRepo{db: gormDB}, mock
}

func sampleReport() *domain.RunReport {
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return &domain.RunReport{
		Username:       "octo",
		JobDescription: "Backend engineer, Go and PostgreSQL required.",
		Selection: domain.Selection{
			Requested: 2,
			Diversity: true,
			Entries: []domain.SelectionEntry{
				{
					Rank:          1,
					Repository:    domain.ScoredRepository{Fact: domain.RepositoryFact{ID: "octo/api", URL: "https://github.com/octo/api"}, Score: 7.2, Breakdown: map[string]float64{"skill_match": 5}},
					Justification: "Score 7.2/10",
				},
				{
					Rank:             2,
					Repository:       domain.ScoredRepository{Fact: domain.RepositoryFact{ID: "octo/cli"}, Score: 6.1},
					Justification:    "Score 6.1/10",
					DiversityPenalty: 0.5,
				},
			},
		},
		Gaps:       []domain.SkillGap{{Skill: "kafka", Importance: domain.ImportanceRequired}},
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
	}
}

func TestPostgresRepo_SaveRun(t *testing.T) {
	tests := []struct {
		name      string
		report    *domain.RunReport
		setupMock func(sqlmock.Sqlmock)
		verify    func(*testing.T, uint, error)
	}{
		{
			name:   "成功保存运行记录",
			report: sampleReport(),
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "curation_runs"`)).
					WithArgs("octo", sqlmock.AnyArg(), 2, true, 7.2, 1, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "run_projects"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "run_gaps"`)).
					WithArgs(uint(7), "kafka", "required").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectCommit()
			},
			verify: func(t *testing.T, id uint, err error) {
				require.NoError(t, err)
				assert.Equal(t, uint(7), id)
			},
		},
		{
			name:   "空选择只写入运行记录",
			report: &domain.RunReport{Username: "octo", Selection: domain.Selection{Requested: 3}},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "curation_runs"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
				mock.ExpectCommit()
			},
			verify: func(t *testing.T, id uint, err error) {
				require.NoError(t, err)
				assert.Equal(t, uint(8), id)
			},
		},
		{
			name:   "数据库错误时回滚",
			report: sampleReport(),
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "curation_runs"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "run_projects"`)).
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			verify: func(t *testing.T, id uint, err error) {
				require.Error(t, err)
				assert.Zero(t, id)
				assert.Equal(t, common.ErrCodeDatabase, common.CodeOf(err))
				assert.ErrorContains(t, err, "insert selected projects")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupMockDB(t)
			tt.setupMock(mock)

			id, err := repo.SaveRun(context.Background(), tt.report)
			tt.verify(t, id, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepo_ListRuns(t *testing.T) {
	created := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(sqlmock.Sqlmock)
		verify    func(*testing.T, []domain.RunSummary, error)
	}{
		{
			name: "返回运行历史",
			setupMock: func(mock sqlmock.Sqlmock) {
				runs := sqlmock.NewRows([]string{"id", "username", "requested", "diversity", "top_score", "gap_count", "created_at"}).
					AddRow(2, "octo", 3, true, 8.5, 1, created).
					AddRow(1, "octo", 2, false, 6.0, 0, created.Add(-time.Hour))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "curation_runs" WHERE username = $1 ORDER BY created_at desc LIMIT $2`)).
					WithArgs("octo", 5).
					WillReturnRows(runs)

				projects := sqlmock.NewRows([]string{"id", "run_id", "rank", "repo_id"}).
					AddRow(10, 2, 1, "octo/api").
					AddRow(11, 2, 2, "octo/cli").
					AddRow(12, 1, 1, "octo/api")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "run_projects" WHERE "run_projects"."run_id" IN ($1,$2)`)).
					WillReturnRows(projects)
			},
			verify: func(t *testing.T, runs []domain.RunSummary, err error) {
				require.NoError(t, err)
				require.Len(t, runs, 2)
				assert.Equal(t, uint(2), runs[0].ID)
				assert.Equal(t, []string{"octo/api", "octo/cli"}, runs[0].SelectedIDs)
				assert.Equal(t, 8.5, runs[0].TopScore)
				assert.True(t, runs[0].Diversity)
				assert.Equal(t, []string{"octo/api"}, runs[1].SelectedIDs)
			},
		},
		{
			name: "查询失败",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "curation_runs"`)).
					WillReturnError(gorm.ErrInvalidDB)
			},
			verify: func(t *testing.T, runs []domain.RunSummary, err error) {
				assert.Nil(t, runs)
				assert.ErrorIs(t, err, gorm.ErrInvalidDB)
				assert.Equal(t, common.ErrCodeDatabase, common.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupMockDB(t)
			tt.setupMock(mock)

			runs, err := repo.ListRuns(context.Background(), "octo", 5)
			tt.verify(t, runs, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestToRecord(t *testing.T) {
	run, err := toRecord(sampleReport())
	require.NoError(t, err)

	assert.Equal(t, 7.2, run.TopScore)
	assert.Equal(t, 1, run.GapCount)
	require.Len(t, run.Projects, 2)
	assert.JSONEq(t, `{"skill_match": 5}`, run.Projects[0].Breakdown)
	assert.Equal(t, "null", run.Projects[1].Breakdown)
	assert.Equal(t, 0.5, run.Projects[1].DiversityPenalty)
	assert.Equal(t, []GapRecord{{Skill: "kafka", Importance: "required"}}, run.Gaps)
}
