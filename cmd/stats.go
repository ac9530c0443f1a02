package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

func newStatsCmd(c *cli) *cobra.Command {
	var site string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print what the posting store holds for a board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			platform, err := crawler.ParsePlatform(site)
			if err != nil {
				return err
			}
			instance, err := c.resolveApp()
			if err != nil {
				return err
			}
			stats, err := instance.Stats(cmd.Context(), platform)
			if err != nil {
				return err
			}
			return renderStats(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "board: wanted, jobkorea or saramin")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func renderStats(w io.Writer, s crawler.PostingStats) error {
	last := "never"
	if !s.LastCrawledAt.IsZero() {
		last = fmt.Sprintf("%s (%s)", s.LastCrawledAt.Format("2006-01-02 15:04"), humanize.Time(s.LastCrawledAt))
	}
	if _, err := fmt.Fprintf(w, "%s: %s postings, last crawled %s\n", s.Platform, humanize.Comma(int64(s.Total)), last); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	if len(s.ByCategory) == 0 {
		return nil
	}

	categories := make([]string, 0, len(s.ByCategory))
	for name := range s.ByCategory {
		categories = append(categories, name)
	}
	sort.Slice(categories, func(i, j int) bool {
		ci, cj := s.ByCategory[categories[i]], s.ByCategory[categories[j]]
		if ci != cj {
			return ci > cj
		}
		return categories[i] < categories[j]
	})
	data := pterm.TableData{{"Category", "Postings"}}
	for _, name := range categories {
		label := name
		if label == "" {
			label = "(uncategorized)"
		}
		data = append(data, []string{label, humanize.Comma(int64(s.ByCategory[name]))})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}
