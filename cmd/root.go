// Package cmd defines the jobcrawler command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/app"
	"github.com/JakeFAU/jobboard-crawler/internal/config"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/logging"
	"github.com/JakeFAU/jobboard-crawler/internal/orchestrator"
)

const closeTimeout = 15 * time.Second

// App is the slice of the application container the commands use.
type App interface {
	Crawl(ctx context.Context, sites []crawler.Platform, opts orchestrator.Options) ([]crawler.CrawlResult, error)
	Stats(ctx context.Context, site crawler.Platform) (crawler.PostingStats, error)
	OpsHandler() http.Handler
	Close(ctx context.Context) error
}

// newApp is the application factory. Tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger, app.Options{})
}

// cli carries the state the root command builds for its subcommands.
type cli struct {
	cfgFile  string
	logLevel string

	cfg    config.Config
	logger *zap.Logger
	app    App

	closeOnce sync.Once
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobcrawler",
		Short: "Collects job postings from Korean job boards.",
		Long: `jobcrawler collects job postings from wanted, jobkorea and saramin,
normalizes them into one schema and stores them for later analysis.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return c.shutdown(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (YAML, TOML or JSON)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(newCrawlCmd(c), newStatsCmd(c), newServeCmd(c))
	return cmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return err
	}
	logging.Init(logger)
	c.cfg = cfg
	c.logger = logger

	instance, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	c.app = instance
	return nil
}

// shutdown releases the application once, whichever path the command took.
func (c *cli) shutdown(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		if c.app == nil {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		err = c.app.Close(closeCtx)
	})
	return err
}

func (c *cli) resolveApp() (App, error) {
	if c.app == nil {
		return nil, errors.New("application services not initialized")
	}
	return c.app, nil
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := &cli{}
	err := newRootCmd(c).ExecuteContext(ctx)
	if cerr := c.shutdown(ctx); cerr != nil {
		logging.L().Warn("shutdown failed", zap.Error(cerr))
	}
	stop()
	if err != nil {
		logging.L().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
