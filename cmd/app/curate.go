package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github-cv-curator/internal/adapter/github"
	"github-cv-curator/internal/adapter/output"
	"github-cv-curator/internal/domain"
	"github-cv-curator/internal/service"
)

type curateOptions struct {
	job         string
	jobFile     string
	interactive bool
	noColor     bool
}

func newCurateCmd(c *cli) *cobra.Command {
	opts := &curateOptions{}

	cmd := &cobra.Command{
		Use:   "curate [username | profile URL | repository URL]",
		Short: "Fetch a user's repositories and select the best fit for a job description",
		Example: `  cv-curator curate octocat --job-file job.txt -n 3
  cv-curator curate https://github.com/octocat/hello-world -j "Go developer, Docker required"
  cv-curator curate -i`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurate(cmd, c, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.job, "job", "j", "", "job description text")
	f.StringVarP(&opts.jobFile, "job-file", "f", "", "file holding the job description")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "prompt for missing username, count and job description")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colored tables")
	f.IntP("count", "n", 3, "number of projects to select")
	f.Bool("diversity", true, "penalize projects that overlap an earlier pick")
	f.Int("max-repos", 30, "maximum number of repositories fetched")
	f.StringP("output", "o", "output", "directory for the JSON and Markdown reports")
	f.String("provider", "deterministic", "scoring provider: deterministic or gemini")
	f.StringSlice("exclude", nil, "repository ids (owner/name) to leave out")
	f.Int("max-age-days", 0, "skip repositories not updated for this many days (0 = off)")
	f.Bool("readme-only", false, "skip repositories whose recent commits only touch the README")
	f.String("vocabulary", "", "YAML file extending the built-in skill vocabulary")
	return cmd
}

func runCurate(cmd *cobra.Command, c *cli, opts *curateOptions, args []string) error {
	ctx := cmd.Context()
	cfg := c.cfg

	input := ""
	if len(args) == 1 {
		input = args[0]
	}
	jobText, err := readJobDescription(opts.job, opts.jobFile)
	if err != nil {
		return err
	}

	if opts.interactive {
		p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		if input == "" {
			if input, err = p.target(); err != nil {
				return err
			}
		}
		if !cmd.Flags().Changed("count") {
			if cfg.Selection.Count, err = p.count(cfg.Selection.Count); err != nil {
				return err
			}
		}
		if strings.TrimSpace(jobText) == "" {
			if jobText, err = p.jobDescription(); err != nil {
				return err
			}
		}
	}
	if input == "" {
		return fmt.Errorf("a GitHub username or URL is required (or pass --interactive)")
	}
	if strings.TrimSpace(jobText) == "" {
		return fmt.Errorf("a job description is required: use --job, --job-file or --interactive")
	}

	target, err := github.ParseTarget(input)
	if err != nil {
		return err
	}

	svc, cleanup, err := buildService(ctx, cfg, online, c.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	c.logger.Info("starting the curation", zap.String("target", target.String()), zap.String("version", version))
	report, err := svc.Curate(ctx, service.Request{
		Username:       target.Owner,
		Repo:           target.Repo,
		JobDescription: jobText,
		Count:          cfg.Selection.Count,
		Diversity:      cfg.Selection.Diversity,
		MaxRepos:       cfg.GitHub.MaxRepos,
		Filter:         cfg.Filter,
		Profile:        cfg.Profile,
	})
	if err != nil {
		return err
	}
	return printReport(c, report, !opts.noColor)
}

// newConsole honours --no-color as well as NO_COLOR and non-terminal output.
func newConsole(c *cli, colors bool) *output.ConsoleWriter {
	return output.NewConsoleWriter(c.out, colors && !color.NoColor)
}

func printReport(c *cli, report *domain.RunReport, colors bool) error {
	if err := newConsole(c, colors).PrintSelection(report); err != nil {
		return err
	}
	if len(report.Failures) > 0 {
		fmt.Fprintf(c.out, "⚠️ %d repositories skipped (see log for reasons)\n", len(report.Failures))
	}
	fmt.Fprintf(c.out, "📄 Reports written to %s\n", c.cfg.Output.Dir)
	return nil
}

// readJobDescription returns the text flag, or the file contents when a file is given.
func readJobDescription(text, file string) (string, error) {
	if text != "" && file != "" {
		return "", fmt.Errorf("use either --job or --job-file, not both")
	}
	if file == "" {
		return text, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading job description: %w", err)
	}
	return string(data), nil
}
