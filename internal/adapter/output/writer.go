// Package output persists a finished run: JSON records, the Markdown CV
// report and a console summary table.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

// File names inside the output directory.
const (
	ProjectsFile        = "projects_info.json"
	SelectionFile       = "selection.json"
	GapsFile            = "gaps.json"
	RecommendationsFile = "recommendations.json"
	ReportJSONFile      = "report.json"
	ReportMarkdownFile  = "report.md"
)

// FileWriter implements port.ReportWriter on a directory.
type FileWriter struct {
	dir    string
	logger *zap.Logger
}

func NewFileWriter(dir string, logger *zap.Logger) *FileWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileWriter{dir: dir, logger: logger}
}

// Dir is the directory files are written to.
func (w *FileWriter) Dir() string { return w.dir }

// WriteFacts stores the extracted facts before scoring starts.
func (w *FileWriter) WriteFacts(_ context.Context, facts []domain.RepositoryFact) error {
	if facts == nil {
		facts = []domain.RepositoryFact{}
	}
	return w.writeFile(ProjectsFile, func(out io.Writer) error { return writeJSON(out, facts) })
}

// Write stores the selection, gaps, recommendations, the full report and report.md.
func (w *FileWriter) Write(ctx context.Context, report *domain.RunReport) error {
	gaps := report.Gaps
	if gaps == nil {
		gaps = []domain.SkillGap{}
	}
	recs := report.Recommendations
	if recs == nil {
		recs = []domain.Recommendation{}
	}

	steps := []struct {
		name  string
		write func(io.Writer) error
	}{
		{SelectionFile, func(out io.Writer) error { return writeJSON(out, report.Selection.Records()) }},
		{GapsFile, func(out io.Writer) error { return writeJSON(out, gaps) }},
		{RecommendationsFile, func(out io.Writer) error { return writeJSON(out, recs) }},
		{ReportJSONFile, func(out io.Writer) error { return writeJSON(out, report) }},
		{ReportMarkdownFile, func(out io.Writer) error { return RenderMarkdown(out, report) }},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeFile(s.name, s.write); err != nil {
			return err
		}
	}
	return nil
}

func (w *FileWriter) writeFile(name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return common.WrapError(common.ErrCodeInternal, fmt.Sprintf("create output directory %s", w.dir), err)
	}

	path := filepath.Join(w.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return common.WrapError(common.ErrCodeInternal, fmt.Sprintf("create %s", path), err)
	}
	defer func() { _ = file.Close() }()

	if err := write(file); err != nil {
		return common.WrapError(common.ErrCodeInternal, fmt.Sprintf("write %s", path), err)
	}
	w.logger.Info("wrote output file", zap.String("path", path))
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
