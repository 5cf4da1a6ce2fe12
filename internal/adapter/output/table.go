package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github-cv-curator/internal/domain"
)

const maxJustificationWidth = 70

// ConsoleWriter prints the selection and the gaps as tables.
type ConsoleWriter struct {
	out       io.Writer
	useColors bool
}

func NewConsoleWriter(out io.Writer, useColors bool) *ConsoleWriter {
	return &ConsoleWriter{out: out, useColors: useColors}
}

// PrintSelection writes the ranked selection table followed by the gap table.
func (c *ConsoleWriter) PrintSelection(report *domain.RunReport) error {
	if err := c.selectionTable(report.Selection); err != nil {
		return err
	}
	if len(report.Gaps) == 0 {
		_, err := fmt.Fprintln(c.out, "No skill gaps: the selection covers every requested skill.")
		return err
	}
	return c.gapTable(report.Gaps)
}

// PrintScored lists every scored repository with its per-factor breakdown.
func (c *ConsoleWriter) PrintScored(scored []domain.ScoredRepository) error {
	table := tablewriter.NewWriter(c.out)
	defer func() { _ = table.Close() }()

	headers := []string{"#", "Repository", "Score"}
	for _, f := range domain.FactorOrder {
		headers = append(headers, f)
	}
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, r := range scored {
		row := []string{strconv.Itoa(i + 1), r.ID(), c.score(r.Score)}
		for _, f := range domain.FactorOrder {
			v, ok := r.Breakdown[f]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%.2f", v))
		}
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// PrintHistory lists stored runs, newest first as the store returns them.
func (c *ConsoleWriter) PrintHistory(runs []domain.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(c.out, "No stored runs.")
		return err
	}

	table := tablewriter.NewWriter(c.out)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Run", "Date", "Requested", "Diversity", "Top Score", "Gaps", "Selected"})

	var data [][]string
	for _, r := range runs {
		data = append(data, []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.CreatedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(r.Requested),
			onOff(r.Diversity),
			c.score(r.TopScore),
			strconv.Itoa(r.GapCount),
			truncate(strings.Join(r.SelectedIDs, ", "), maxJustificationWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func (c *ConsoleWriter) selectionTable(sel domain.Selection) error {
	table := tablewriter.NewWriter(c.out)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Rank", "Repository", "Score", "Penalty", "Justification"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, e := range sel.Entries {
		penalty := ""
		if e.DiversityPenalty > 0 {
			penalty = fmt.Sprintf("-%.2f", e.DiversityPenalty)
		}
		data = append(data, []string{
			strconv.Itoa(e.Rank),
			e.Repository.ID(),
			c.score(e.Repository.Score),
			penalty,
			truncate(e.Justification, maxJustificationWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "Selected %d of %d requested (diversity %s)\n", sel.Len(), sel.Requested, onOff(sel.Diversity))
	return err
}

func (c *ConsoleWriter) gapTable(gaps []domain.SkillGap) error {
	table := tablewriter.NewWriter(c.out)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Missing Skill", "Importance"})

	red, yellow := fmt.Sprint, fmt.Sprint
	if c.useColors {
		red = color.New(color.FgRed, color.Bold).SprintFunc()
		yellow = color.New(color.FgYellow).SprintFunc()
	}

	var data [][]string
	for _, g := range gaps {
		importance := yellow(string(g.Importance))
		if g.Importance == domain.ImportanceRequired {
			importance = red(string(g.Importance))
		}
		data = append(data, []string{g.Skill, importance})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// score colors by band: green from 7, yellow from 4, red below.
func (c *ConsoleWriter) score(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	if !c.useColors {
		return s
	}
	switch {
	case v >= 7:
		return color.New(color.FgGreen, color.Bold).Sprint(s)
	case v >= 4:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgRed).Sprint(s)
	}
}

func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-3]) + "..."
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
