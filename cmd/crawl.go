package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/app"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/orchestrator"
)

type crawlFlags struct {
	site         string
	full         bool
	skipExisting bool
	daysBack     int

	sites []crawler.Platform
}

func newCrawlCmd(c *cli) *cobra.Command {
	f := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl one or more job boards",
		Long: `Collects listing URLs from the selected boards, extracts every detail page and
saves the normalized postings. Boards run concurrently; one board failing does not
stop the others.`,
		Example: `  jobcrawler crawl --site wanted
  jobcrawler crawl --site all --days-back 3
  jobcrawler crawl --site jobkorea,saramin --full`,
		// Sites are checked here so a typo fails before any service is built.
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments %v", args)
			}
			sites, err := app.ParseSites(f.site)
			if err != nil {
				return err
			}
			f.sites = sites
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, c, f)
		},
	}
	cmd.Flags().StringVar(&f.site, "site", "", "board to crawl: wanted, jobkorea, saramin, all or a comma list")
	cmd.Flags().BoolVar(&f.full, "full", false, "walk every listing page instead of the recent window")
	cmd.Flags().BoolVar(&f.skipExisting, "skip-existing", false, "skip URLs already stored within the recency window")
	cmd.Flags().IntVar(&f.daysBack, "days-back", 0, "recency window in days (default from config)")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func runCrawl(cmd *cobra.Command, c *cli, f *crawlFlags) error {
	instance, err := c.resolveApp()
	if err != nil {
		return err
	}
	if f.daysBack < 0 {
		return &crawler.ConfigurationError{Reason: "--days-back must not be negative"}
	}
	opts := orchestrator.Options{
		FullCrawl:    f.full,
		SkipExisting: f.skipExisting || c.cfg.Crawler.SkipExisting,
		DaysBack:     f.daysBack,
	}

	c.logger.Info("crawl starting", zap.Int("sites", len(f.sites)), zap.Bool("full", f.full))
	results, crawlErr := instance.Crawl(cmd.Context(), f.sites, opts)
	if err := renderSummary(cmd.OutOrStdout(), results); err != nil {
		c.logger.Warn("render summary failed", zap.Error(err))
	}
	if crawlErr != nil {
		return fmt.Errorf("crawl: %w", crawlErr)
	}
	for _, r := range results {
		if r.Blocked {
			c.logger.Warn("board blocked the session; consider a longer delay", zap.String("site", string(r.Site)))
		}
	}
	return nil
}

func renderSummary(w io.Writer, results []crawler.CrawlResult) error {
	if len(results) == 0 {
		return nil
	}
	data := pterm.TableData{{"Site", "Found", "New", "Duplicates", "Errors", "Skipped", "Elapsed"}}
	for _, r := range results {
		if r.Site == "" {
			continue
		}
		data = append(data, []string{
			string(r.Site),
			humanize.Comma(int64(r.TotalFound)),
			humanize.Comma(int64(r.NewSaved)),
			humanize.Comma(int64(r.Duplicates)),
			humanize.Comma(int64(r.Errors)),
			humanize.Comma(int64(r.Skipped)),
			r.Elapsed.Round(time.Second).String(),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).WithWriter(w).Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}
