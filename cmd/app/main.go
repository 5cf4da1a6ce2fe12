package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github-cv-curator/internal/config"
	"github-cv-curator/internal/logger"
)

const app = "cv-curator"

// Actual version can be specified in build command.
var version = "dev"

// flagKeys maps command flags onto configuration keys. A flag only overrides
// the file and the environment when it was set explicitly.
var flagKeys = map[string]string{
	"count":        "selection.count",
	"diversity":    "selection.diversity",
	"max-repos":    "github.max-repos",
	"output":       "output.dir",
	"provider":     "scoring.provider",
	"exclude":      "filter.exclude",
	"max-age-days": "filter.max-age-days",
	"readme-only":  "filter.readme-only",
	"vocabulary":   "vocabulary.file",
}

// cli carries what every command needs once the root has been set up.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
	out     io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:           app,
		Short:         "Pick the GitHub projects that best fit a job description for your CV",
		Long:          "cv-curator scores a user's GitHub repositories against a job description, selects the most relevant ones and reports the skills still missing.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "a config file (default is cv-curator.yaml in current directory)")
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	root.PersistentFlags().Bool("json", false, "json format for logging")

	root.AddCommand(newCurateCmd(c), newScoreCmd(c), newHistoryCmd(c), newVersionCmd())
	return root
}

// setup loads .env, binds the running command's flags, reads the
// configuration and builds the logger.
func (c *cli) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if err := bindFlags(c.v, cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	debug, _ := cmd.Flags().GetBool("debug")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	c.logger, err = logger.New(jsonLogs, debug)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	c.logger.Debug("configuration loaded",
		zap.String("config", c.v.ConfigFileUsed()),
		zap.Any("settings", cfg))
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// no configuration needed
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", app, version)
		},
	}
}
