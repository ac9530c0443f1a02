// Package wanted crawls wanted.co.kr through its public JSON API.
package wanted

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/clock/system"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/extract"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
	"github.com/JakeFAU/jobboard-crawler/internal/taxonomy"
	"github.com/JakeFAU/jobboard-crawler/internal/textutil"
)

const (
	// DefaultOrigin is the production host.
	DefaultOrigin = "https://www.wanted.co.kr"

	jobGroupDevelopment = "518"
	pageSize            = 20
	minPreferredRunes   = 5
	salesChartWait      = 2 * time.Second
)

var (
	jobPathPattern = regexp.MustCompile(`/wd/(\d+)`)

	preferredSeparators = []*regexp.Regexp{
		regexp.MustCompile(`•\s*`),
		regexp.MustCompile(`\*\s*`),
		regexp.MustCompile(`-\s*`),
		regexp.MustCompile(`\d+\.\s*`),
		regexp.MustCompile(`\n\s*`),
		regexp.MustCompile(`;\s*`),
	}
)

// Config wires the adapter's collaborators. Only HTTP is required.
type Config struct {
	HTTP session.Fetcher
	// Browser renders the company sales chart. nil skips it.
	Browser    session.Browser
	Retrier    *session.Retrier
	Pauser     session.Pauser
	Taxonomies *taxonomy.Taxonomies
	Clock      crawler.Clock
	Logger     *zap.Logger
	// Origin replaces DefaultOrigin for API, posting and company URLs.
	Origin string
	// FullCrawlPages bounds listing pagination in full-crawl mode.
	FullCrawlPages int
}

// Adapter implements crawler.Adapter for wanted.
type Adapter struct {
	http      session.Fetcher
	browser   session.Browser
	retrier   *session.Retrier
	pauser    session.Pauser
	tax       *taxonomy.Taxonomies
	clock     crawler.Clock
	logger    *zap.Logger
	origin    string
	fullPages int
}

var _ crawler.Adapter = (*Adapter)(nil)

// New builds an adapter, filling unset collaborators with production defaults.
func New(cfg Config) (*Adapter, error) {
	if cfg.HTTP == nil {
		return nil, &crawler.ConfigurationError{Reason: "wanted adapter requires an http session"}
	}
	a := &Adapter{
		http:      cfg.HTTP,
		browser:   cfg.Browser,
		retrier:   cfg.Retrier,
		pauser:    cfg.Pauser,
		tax:       cfg.Taxonomies,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		origin:    strings.TrimRight(cfg.Origin, "/"),
		fullPages: cfg.FullCrawlPages,
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.logger = a.logger.With(zap.String("site", string(crawler.PlatformWanted)))
	if a.retrier == nil {
		a.retrier = session.NewRetrier(session.DefaultRetryPolicy(), a.logger)
	}
	if a.pauser == nil {
		a.pauser = session.TimerPauser{}
	}
	if a.tax == nil {
		a.tax = taxonomy.Default()
	}
	if a.clock == nil {
		a.clock = system.New()
	}
	if a.origin == "" {
		a.origin = DefaultOrigin
	}
	if a.fullPages <= 0 {
		a.fullPages = 1000
	}
	return a, nil
}

// CollectListingURLs pages through the navigation API until the page budget or the breaker
// stops it.
func (a *Adapter) CollectListingURLs(ctx context.Context, cfg crawler.SiteConfig, fullCrawl bool) ([]string, error) {
	pages := cfg.MaxPages
	if fullCrawl {
		pages = a.fullPages
	}
	urls := crawler.NewURLSet()
	breaker := crawler.NewBreaker(crawler.MaxConsecutiveEmptyPages)

	for page := 0; page < pages; page++ {
		if err := ctx.Err(); err != nil {
			return urls.Slice(), fmt.Errorf("wanted listing: %w", err)
		}
		ids, err := a.listPage(ctx, cfg, page)
		switch {
		case err != nil:
			a.logger.Warn("listing page failed", zap.Int("page", page), zap.Error(err))
		case len(ids) == 0:
			a.logger.Info("empty listing page", zap.Int("page", page), zap.Int("misses", breaker.Misses()+1))
		default:
			breaker.Hit()
			for _, id := range ids {
				urls.Add(a.postingURL(id))
			}
			a.logger.Debug("listing page", zap.Int("page", page), zap.Int("ids", len(ids)))
		}
		if (err != nil || len(ids) == 0) && breaker.Miss() {
			a.logger.Info("listing breaker tripped", zap.Int("page", page))
			break
		}
		if page+1 < pages {
			if err := a.pauser.Pause(ctx, session.Jitter(cfg.Delay, 0.3)); err != nil {
				return urls.Slice(), err
			}
		}
	}
	a.logger.Info("listing collected", zap.Int("urls", urls.Len()))
	return urls.Slice(), nil
}

func (a *Adapter) listPage(ctx context.Context, cfg crawler.SiteConfig, page int) ([]int64, error) {
	q := url.Values{}
	q.Set("job_group_id", jobGroupDevelopment)
	q.Set("country", "kr")
	q.Set("job_sort", "job.latest_order")
	q.Set("years", "-1")
	q.Set("locations", "all")
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("offset", strconv.Itoa(page*pageSize))
	endpoint := a.origin + "/api/chaos/navigation/v1/results?" + q.Encode()

	var resp listResponse
	err := a.retrier.Do(ctx, "wanted listing", func(ctx context.Context, _ int) error {
		resp = listResponse{}
		return a.http.GetJSON(ctx, endpoint, cfg.Headers(cfg.BaseURL), &resp)
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.ID > 0 {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

func (a *Adapter) postingURL(id int64) string {
	return fmt.Sprintf("%s/wd/%d", a.origin, id)
}

// ExtractDetail loads the posting from the details API and, best effort, enriches the company
// from its profile page.
func (a *Adapter) ExtractDetail(ctx context.Context, rawURL string, cfg crawler.SiteConfig) (*crawler.JobPosting, error) {
	m := jobPathPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("wanted: no posting id in %s: %w", rawURL, crawler.ErrNoPosting)
	}
	nativeID := m[1]

	j, err := a.fetchJob(ctx, cfg, nativeID)
	if err != nil {
		return nil, err
	}
	posting := a.toPosting(j, rawURL)

	if j.Company.ID > 0 {
		profile := a.fetchCompanyProfile(ctx, cfg, j.Company.ID)
		if posting.Company.Industry == "" {
			posting.Company.Industry = profile.industry
		}
		if profile.sales != "" {
			posting.Company.Sales = profile.sales
		}
	}
	return posting, nil
}

func (a *Adapter) fetchJob(ctx context.Context, cfg crawler.SiteConfig, nativeID string) (*job, error) {
	endpoint := fmt.Sprintf("%s/api/chaos/jobs/v4/%s/details?%d=", a.origin, nativeID, a.clock.Now().UnixMilli())
	headers := cfg.Headers(fmt.Sprintf("%s/wd/%s", a.origin, nativeID))
	headers.Set("X-Requested-With", "XMLHttpRequest")

	var resp detailResponse
	err := a.retrier.Do(ctx, "wanted detail", func(ctx context.Context, _ int) error {
		resp = detailResponse{}
		return a.http.GetJSON(ctx, endpoint, headers, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("wanted detail %s: %w", nativeID, err)
	}
	if resp.Message != "ok" || resp.Data.Job == nil {
		return nil, fmt.Errorf("wanted detail %s: message %q: %w", nativeID, resp.Message, crawler.ErrNoPosting)
	}
	return resp.Data.Job, nil
}

func (a *Adapter) toPosting(j *job, rawURL string) *crawler.JobPosting {
	now := a.clock.Now()
	d := j.Detail
	fullText := strings.Join([]string{d.MainTasks, d.Requirements, d.PreferredPoints}, " ")

	positions := positionTexts(j.CategoryTag)
	techs := techNames(j.SkillTags, fullText)

	return &crawler.JobPosting{
		JobID:    crawler.JobID(crawler.PlatformWanted, now, strconv.FormatInt(j.ID, 10)),
		JobURL:   rawURL,
		Platform: crawler.PlatformWanted,
		JobTitle: textutil.Clean(d.Position),
		Company: crawler.Company{
			Name:        textutil.Clean(j.Company.Name),
			Size:        companySize(j.AttractionTags),
			Description: strings.TrimSpace(d.Intro),
			Industry:    textutil.Clean(j.Company.IndustryName),
		},
		WorkType: workType(j.EmploymentType),
		Location: crawler.Location{
			RawText:       j.Address.FullLocation,
			City:          j.Address.Location,
			District:      j.Address.District,
			DetailAddress: j.Address.FullLocation,
		},
		Education:           textutil.InferEducation(d.Requirements),
		Experience:          experience(j),
		Position:            a.tax.Position(strings.Join(positions, ", "), positions),
		TechStack:           a.tax.TechStack(strings.Join(techs, ", "), techs, fullText),
		PreferredExperience: preferred(d.PreferredPoints),
		CrawledAt:           now,
	}
}

func positionTexts(tag categoryTag) []string {
	var out []string
	if t := textutil.Clean(tag.ParentTag.Text); t != "" {
		out = append(out, t)
	}
	for _, child := range tag.ChildTags {
		if t := textutil.Clean(child.Text); t != "" {
			out = append(out, t)
		}
	}
	return textutil.Dedupe(out)
}

// techNames puts the board's skill tags first, then keywords found in the body text.
func techNames(tags []textTag, fullText string) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Text)
	}
	return textutil.Dedupe(append(names, textutil.ExtractTechs(fullText)...))
}

func companySize(tags []attractionTag) string {
	for _, t := range tags {
		if size, ok := companySizeTags[t]; ok {
			return size
		}
	}
	return ""
}

func workType(employment string) string {
	if mapped, ok := employmentTypes[employment]; ok {
		return mapped
	}
	return employment
}

func experience(j *job) crawler.Experience {
	if j.IsNewbie {
		return crawler.Experience{RawText: "신입", MinYears: 0, MaxYears: 1}
	}
	if j.AnnualTo >= 100 {
		return crawler.Experience{
			RawText:  fmt.Sprintf("경력%d년 이상", j.AnnualFrom),
			MinYears: j.AnnualFrom,
			MaxYears: textutil.OpenEndedYears,
		}
	}
	return crawler.Experience{
		RawText:  fmt.Sprintf("경력%d-%d년", j.AnnualFrom, j.AnnualTo),
		MinYears: j.AnnualFrom,
		MaxYears: j.AnnualTo,
	}
}

// preferred splits on the first separator that actually splits the text.
func preferred(text string) crawler.PreferredExperience {
	out := crawler.PreferredExperience{RawText: text}
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, sep := range preferredSeparators {
		parts := sep.Split(text, -1)
		if len(parts) < 2 {
			continue
		}
		for _, p := range parts {
			p = textutil.Clean(p)
			if len([]rune(p)) >= minPreferredRunes {
				out.RawList = append(out.RawList, p)
			}
		}
		break
	}
	if len(out.RawList) == 0 {
		out.RawList = []string{textutil.Clean(text)}
	}
	return out
}

type companyProfile struct {
	industry string
	sales    string
}

// fetchCompanyProfile never fails the posting; every problem is logged at debug.
func (a *Adapter) fetchCompanyProfile(ctx context.Context, cfg crawler.SiteConfig, companyID int64) companyProfile {
	companyURL := fmt.Sprintf("%s/company/%d", a.origin, companyID)
	var profile companyProfile

	page, err := a.http.Get(ctx, companyURL, crawler.CommonBrowserHeaders())
	if err != nil {
		a.logger.Debug("company page unavailable", zap.String("url", companyURL), zap.Error(err))
	} else if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body)); err == nil {
		profile = parseCompanyTable(doc)
	}

	if a.browser != nil {
		if sales := a.salesFromChart(ctx, cfg, companyURL); sales != "" {
			profile.sales = sales
		}
	}
	return profile
}

func parseCompanyTable(doc *goquery.Document) companyProfile {
	var profile companyProfile
	doc.Find(`div[class^="CompanyInfoTable_wrapper"] dl`).Each(func(_ int, dl *goquery.Selection) {
		key := textutil.Clean(dl.Find("dt").First().Text())
		dd := dl.Find("dd").First()
		switch key {
		case "표준산업분류":
			if v := textutil.Clean(dd.Text()); v != "-" {
				profile.industry = v
			}
		case "매출액":
			if v := revenueText(dd); v != "-" {
				profile.sales = v
			}
		}
	})
	return profile
}

// revenueText joins the figure with its unit suffix ("25억 3,353만" + "원").
func revenueText(dd *goquery.Selection) string {
	trailing := dd.Find(`div[class*="trailingText"]`)
	if trailing.Length() == 0 {
		return textutil.Clean(dd.Text())
	}
	main := dd.Clone()
	main.Find(`div[class*="trailingText"]`).Remove()
	var suffix strings.Builder
	trailing.Each(func(_ int, s *goquery.Selection) {
		suffix.WriteString(strings.TrimSpace(s.Text()))
	})
	return textutil.Clean(main.Text()) + suffix.String()
}

var salesChart = extract.NewChain[string]("sales",
	extract.Strategy[string]{Name: "chart-summary", Run: salesFromWDS},
	extract.Strategy[string]{Name: "sales-label", Run: salesNearLabel},
)

func (a *Adapter) salesFromChart(ctx context.Context, cfg crawler.SiteConfig, companyURL string) string {
	page, err := session.FetchRendered(ctx, a.browser, companyURL, session.TabOptionsFor(cfg), "body", salesChartWait)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			a.logger.Debug("sales chart unavailable", zap.String("url", companyURL), zap.Error(err))
		}
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return ""
	}
	return salesChart.Value(doc)
}

func salesFromWDS(doc *goquery.Document) string {
	var found string
	doc.Find(`div[class*="SalesChart_wrapper"] div[class*="wds"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := textutil.Clean(s.Text())
		if looksLikeMoney(text) && !strings.Contains(text, "매출") {
			found = text
			return false
		}
		return true
	})
	return found
}

func salesNearLabel(doc *goquery.Document) string {
	var found string
	doc.Find("div, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 || textutil.Clean(s.Text()) != "매출" {
			return true
		}
		s.Parent().Find("div, span").EachWithBreak(func(_ int, sib *goquery.Selection) bool {
			text := textutil.Clean(sib.Text())
			if text != "매출" && looksLikeMoney(text) {
				found = text
				return false
			}
			return true
		})
		return found == ""
	})
	return found
}

func looksLikeMoney(text string) bool {
	if !strings.ContainsAny(text, "0123456789") {
		return false
	}
	return strings.Contains(text, "원")
}
