package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github-cv-curator/internal/adapter/extractor"
	"github-cv-curator/internal/service"
)

type scoreOptions struct {
	job      string
	jobFile  string
	username string
	all      bool
	noColor  bool
}

func newScoreCmd(c *cli) *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score <payloads.json>",
		Short: "Score a local JSON array of repository payloads against a job description",
		Long: `score runs the whole selection on previously fetched repository payloads.
It never reaches GitHub, the database or the webhook.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, c, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.job, "job", "j", "", "job description text")
	f.StringVarP(&opts.jobFile, "job-file", "f", "", "file holding the job description")
	f.StringVarP(&opts.username, "user", "u", "", "owner name used in the reports")
	f.BoolVar(&opts.all, "all", false, "also print the breakdown of every scored repository")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colored tables")
	f.IntP("count", "n", 3, "number of projects to select")
	f.Bool("diversity", true, "penalize projects that overlap an earlier pick")
	f.StringP("output", "o", "output", "directory for the JSON and Markdown reports")
	f.StringSlice("exclude", nil, "repository ids (owner/name) to leave out")
	f.Int("max-age-days", 0, "skip repositories not updated for this many days (0 = off)")
	f.String("vocabulary", "", "YAML file extending the built-in skill vocabulary")
	return cmd
}

func runScore(cmd *cobra.Command, c *cli, opts *scoreOptions, path string) error {
	ctx := cmd.Context()
	cfg := c.cfg

	jobText, err := readJobDescription(opts.job, opts.jobFile)
	if err != nil {
		return err
	}
	if strings.TrimSpace(jobText) == "" {
		return fmt.Errorf("a job description is required: use --job or --job-file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading payloads: %w", err)
	}
	batch, err := extractor.NewFactExtractor().ExtractJSON(data)
	if err != nil {
		return err
	}
	c.logger.Info("payloads loaded", zap.String("file", path), zap.Int("facts", len(batch.Facts)), zap.Int("failures", len(batch.Failures)))

	svc, cleanup, err := buildService(ctx, cfg, offline, c.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := svc.CurateBatch(ctx, service.Request{
		Username:       ownerOf(opts.username, batch),
		JobDescription: jobText,
		Count:          cfg.Selection.Count,
		Diversity:      cfg.Selection.Diversity,
		Filter:         cfg.Filter,
		Profile:        cfg.Profile,
	}, batch)
	if err != nil {
		return err
	}

	if opts.all {
		if err := newConsole(c, !opts.noColor).PrintScored(report.Scored); err != nil {
			return err
		}
	}
	return printReport(c, report, !opts.noColor)
}

// ownerOf prefers the explicit name, then the owner of the first repository id.
func ownerOf(username string, batch extractor.Batch) string {
	if username != "" {
		return username
	}
	for _, f := range batch.Facts {
		if owner, _, ok := strings.Cut(f.ID, "/"); ok {
			return owner
		}
	}
	return ""
}
