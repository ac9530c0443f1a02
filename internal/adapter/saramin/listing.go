package saramin

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/extract"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
	"github.com/JakeFAU/jobboard-crawler/internal/textutil"
)

const (
	listingPath    = "/zf_user/jobs/list/job-category"
	fullCrawlPages = 10
	rowsPerPage    = 30
)

// CollectListingURLs reads the IT category result pages over plain HTTP.
func (a *Adapter) CollectListingURLs(ctx context.Context, cfg crawler.SiteConfig, fullCrawl bool) ([]string, error) {
	pages := cfg.MaxPages
	if fullCrawl {
		pages = fullCrawlPages
	}
	urls := crawler.NewURLSet()
	breaker := crawler.NewBreaker(crawler.MaxConsecutiveEmptyPages)

	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return urls.Slice(), fmt.Errorf("saramin listing: %w", err)
		}
		if page > 1 {
			if err := a.pauser.Pause(ctx, session.Between(2*time.Second, 4*time.Second)); err != nil {
				return urls.Slice(), err
			}
		}
		rows, err := a.listPage(ctx, cfg, page)
		switch {
		case err != nil:
			a.logger.Warn("listing page failed", zap.Int("page", page), zap.Error(err))
		case len(rows) == 0:
			a.logger.Info("empty listing page", zap.Int("page", page), zap.Int("misses", breaker.Misses()+1))
		default:
			breaker.Hit()
			for _, row := range rows {
				if !urls.Add(row.url) {
					continue
				}
				a.remember(row.url, row.meta)
				a.logger.Debug("posting found",
					zap.String("company", row.meta.Company),
					zap.String("title", row.meta.Title),
				)
			}
			a.logger.Info("listing page", zap.Int("page", page), zap.Int("urls", len(rows)))
		}
		if (err != nil || len(rows) == 0) && breaker.Miss() {
			a.logger.Info("listing breaker tripped", zap.Int("page", page))
			break
		}
	}
	a.logger.Info("listing collected", zap.Int("urls", urls.Len()))
	return urls.Slice(), nil
}

func (a *Adapter) listPage(ctx context.Context, cfg crawler.SiteConfig, page int) ([]listingRow, error) {
	q := url.Values{}
	q.Set("cat_mcls", "2")
	q.Set("search_done", "y")
	q.Set("page_count", "50")
	q.Set("sort", "RD")
	q.Set("type", "job-category")
	q.Set("page", strconv.Itoa(page))
	endpoint := a.origin + listingPath + "?" + q.Encode()

	var body []byte
	err := a.retrier.Do(ctx, "saramin listing", func(ctx context.Context, _ int) error {
		p, err := a.http.Get(ctx, endpoint, cfg.Headers(""))
		if err != nil {
			return err
		}
		body = p.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing page %d: %w", page, err)
	}
	return a.parseListing(doc), nil
}

type listingRow struct {
	url  string
	meta crawler.ListingMeta
}

var jobLinkSelectors = []string{
	"div.job_tit a.str_tit",
	`a[href*="/zf_user/jobs/relay/view"]`,
	`a[href*="/zf_user/jobs/view"]`,
}

func (a *Adapter) parseListing(doc *goquery.Document) []listingRow {
	var rows []listingRow
	doc.Find("section.list_recruiting div.list_item").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= rowsPerPage {
			return false
		}
		var href string
		for _, sel := range jobLinkSelectors {
			if v := strings.TrimSpace(item.Find(sel).First().AttrOr("href", "")); v != "" {
				href = v
				break
			}
		}
		postingURL := textutil.NormalizeURL(href, a.origin)
		if !a.isPostingURL(postingURL) {
			return true
		}
		rows = append(rows, listingRow{url: postingURL, meta: listingMeta(item)})
		return true
	})
	return rows
}

func (a *Adapter) isPostingURL(u string) bool {
	if u == "" || !textutil.HostMatches(u, a.domain) {
		return false
	}
	return strings.Contains(u, "jobs/relay/view") || strings.Contains(u, "jobs/view")
}

// listingMeta reads what the result row already tells about the posting. The condition spans
// come in the order location, experience, education, work type.
func listingMeta(item *goquery.Selection) crawler.ListingMeta {
	var meta crawler.ListingMeta

	company := item.Find(`div[class*="company"]`).First()
	if link := company.Find("a").First(); link.Length() > 0 {
		meta.Company = textutil.Clean(link.Text())
	} else {
		meta.Company = textutil.Clean(company.Text())
	}

	title := item.Find("div.job_tit a").First()
	if title.Length() == 0 {
		title = item.Find(`div[class*="job"] a, div[class*="title"] a`).First()
	}
	meta.Title = textutil.Clean(title.AttrOr("title", ""))
	if meta.Title == "" {
		meta.Title = textutil.Clean(title.Text())
	}

	conditions := extract.Texts(item, "div.job_condition > span")
	fields := []*string{&meta.Location, &meta.Experience, &meta.Education, &meta.WorkType}
	for i, field := range fields {
		if i < len(conditions) {
			*field = conditions[i]
		}
	}
	meta.Positions = textutil.Dedupe(extract.Texts(item, `[class*="sector"] span`))
	return meta
}
