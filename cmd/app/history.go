package main

import (
	"github.com/spf13/cobra"

	"github-cv-curator/internal/adapter/github"
	"github-cv-curator/internal/config"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		limit   int
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "history <username>",
		Short: "List the stored curation runs of a user (needs storage.dsn)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := github.ParseTarget(args[0])
			if err != nil {
				return err
			}

			// listing never scores, so no LLM client is needed
			cfg := *c.cfg
			cfg.Scoring.Provider = config.ProviderDeterministic
			svc, cleanup, err := buildService(cmd.Context(), &cfg, online, c.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := svc.History(cmd.Context(), target.Owner, limit)
			if err != nil {
				return err
			}
			return newConsole(c, !noColor).PrintHistory(runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "number of runs to show")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored tables")
	return cmd
}
