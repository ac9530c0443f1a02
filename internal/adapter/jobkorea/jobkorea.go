// Package jobkorea crawls jobkorea.co.kr. Listing needs a rendered page because results only
// appear after duty filters are applied; detail pages are plain HTML.
package jobkorea

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
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

// DefaultOrigin is the production host.
const DefaultOrigin = "https://www.jobkorea.co.kr"

var (
	giReadPattern  = regexp.MustCompile(`/GI_Read/(\d+)`)
	dimension44    = regexp.MustCompile(`pageviewObj\.dimension44\s*=\s*['"]([^'"]*)['"]`)
	titleNoise     = []string{"관심기업", "기업인증"}
	detailPacing   = [2]time.Duration{time.Second, 2 * time.Second}
	companyPacing  = [2]time.Duration{time.Second, 2 * time.Second}
	companyTables  = []string{"table.table-basic-infomation-primary", ".basic-infomation-container table", ".company-infomation-container table"}
	companyNameSel = []string{".company-header-branding-body .name", ".name"}
)

// Config wires the adapter's collaborators. HTTP is required; Browser is required for listing.
type Config struct {
	HTTP       session.Fetcher
	Browser    session.Browser
	Retrier    *session.Retrier
	Pauser     session.Pauser
	Taxonomies *taxonomy.Taxonomies
	Clock      crawler.Clock
	Logger     *zap.Logger
	// Origin replaces DefaultOrigin for search, posting and company URLs.
	Origin string
	// Categories overrides DevCategories.
	Categories []string
}

// Adapter implements crawler.Adapter for jobkorea. Listing metadata is cached per URL so detail
// extraction can skip fields the listing already provided.
type Adapter struct {
	http       session.Fetcher
	browser    session.Browser
	retrier    *session.Retrier
	pauser     session.Pauser
	tax        *taxonomy.Taxonomies
	clock      crawler.Clock
	logger     *zap.Logger
	origin     string
	categories []string

	mu   sync.Mutex
	meta map[string]crawler.ListingMeta
}

var _ crawler.Adapter = (*Adapter)(nil)

// New builds an adapter, filling unset collaborators with production defaults.
func New(cfg Config) (*Adapter, error) {
	if cfg.HTTP == nil {
		return nil, &crawler.ConfigurationError{Reason: "jobkorea adapter requires an http session"}
	}
	a := &Adapter{
		http:       cfg.HTTP,
		browser:    cfg.Browser,
		retrier:    cfg.Retrier,
		pauser:     cfg.Pauser,
		tax:        cfg.Taxonomies,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		origin:     strings.TrimRight(cfg.Origin, "/"),
		categories: cfg.Categories,
		meta:       make(map[string]crawler.ListingMeta),
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.logger = a.logger.With(zap.String("site", string(crawler.PlatformJobKorea)))
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
	if len(a.categories) == 0 {
		a.categories = DevCategories
	}
	return a, nil
}

func (a *Adapter) remember(u string, m crawler.ListingMeta) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.meta[u] = m
}

// Metadata returns the listing snapshot cached for u.
func (a *Adapter) Metadata(u string) (crawler.ListingMeta, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.meta[u]
	return m, ok
}

// ExtractDetail fetches the posting over HTTP. Cached listing fields win; the DOM fills the rest.
func (a *Adapter) ExtractDetail(ctx context.Context, rawURL string, cfg crawler.SiteConfig) (*crawler.JobPosting, error) {
	m := giReadPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("jobkorea: no posting id in %s: %w", rawURL, crawler.ErrNoPosting)
	}
	if err := a.pauser.Pause(ctx, session.Between(detailPacing[0], detailPacing[1])); err != nil {
		return nil, err
	}

	var page *session.Page
	err := a.retrier.Do(ctx, "jobkorea detail", func(ctx context.Context, _ int) error {
		var err error
		page, err = a.http.Get(ctx, rawURL, cfg.Headers(""))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("jobkorea detail %s: %w", m[1], err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("jobkorea detail %s: parse: %w", m[1], err)
	}

	meta, _ := a.Metadata(rawURL)
	posting := a.buildPosting(doc, page.Body, rawURL, m[1], meta)

	if !hasEssentialCompanyInfo(posting.Company) && meta.CompanyURL != "" {
		a.enrichCompany(ctx, &posting.Company, meta.CompanyURL)
		if !hasEssentialCompanyInfo(posting.Company) {
			a.enrichCompany(ctx, &posting.Company, meta.CompanyURL+"?tabType=l")
		}
	}
	if posting.JobTitle == "" && posting.Company.Name == "" {
		return nil, fmt.Errorf("jobkorea detail %s: %w", m[1], crawler.ErrNoPosting)
	}
	return posting, nil
}

func (a *Adapter) buildPosting(doc *goquery.Document, raw []byte, rawURL, nativeID string, meta crawler.ListingMeta) *crawler.JobPosting {
	now := a.clock.Now()
	fullText := extract.BodyText(doc)

	experience := textutil.ParseExperience(meta.Experience)
	if meta.Experience == "" {
		experience = textutil.ParseExperience(qualification(doc, "경력"))
	}

	positionText, positions := positionsFromScript(raw)
	if len(positions) == 0 {
		positions = meta.Positions
		positionText = strings.Join(meta.Positions, ", ")
	}
	techs := techChain.Value(doc)

	return &crawler.JobPosting{
		JobID:               crawler.JobID(crawler.PlatformJobKorea, now, nativeID),
		JobURL:              rawURL,
		Platform:            crawler.PlatformJobKorea,
		JobTitle:            a.field(titleChain, doc, meta.Title),
		Company:             companyFromDetail(doc, a.field(companyNameChain, doc, meta.Company)),
		WorkType:            firstNonEmpty(meta.WorkType, workCondition(doc, "고용형태")),
		Location:            textutil.ParseLocation(firstNonEmpty(meta.Location, workCondition(doc, "지역"))),
		Education:           firstNonEmpty(meta.Education, qualification(doc, "학력")),
		Experience:          experience,
		Position:            a.tax.Position(positionText, positions),
		TechStack:           a.tax.TechStack(strings.Join(techs, ", "), techs, fullText),
		PreferredExperience: preferredFromDetail(doc),
		CrawledAt:           now,
	}
}

// field prefers the listing's value and otherwise runs chain, logging the gap when it finds
// nothing.
func (a *Adapter) field(chain *extract.Chain[string], doc *goquery.Document, listed string) string {
	if listed != "" {
		return listed
	}
	v, err := chain.Require(doc)
	if err != nil {
		a.logger.Debug("field not extracted", zap.Error(err))
	}
	return v
}

var titleChain = extract.NewChain[string]("job_title").
	Then("sumTit", func(doc *goquery.Document) string {
		heading := doc.Find("div.sumTit h3.hd_3").First().Clone()
		heading.Find("span.coName, button").Remove()
		for _, line := range strings.Split(heading.Text(), "\n") {
			line = textutil.Clean(line)
			if line != "" && !containsAny(line, titleNoise) {
				return line
			}
		}
		return ""
	})

var companyNameChain = extract.NewChain[string]("company").
	Then("coName", extract.Text("span.coName")).
	Then("subtitle", extract.Text("div.view-subtitle.dev-wrap-subtitle a.subtitle-corp"))

var techChain = extract.NewChain[[]string]("tech_stack").
	Then("skill-row", func(doc *goquery.Document) []string {
		return textutil.SplitItems(qualification(doc, "스킬"), 1, ",")
	}).
	Then("skill-tags", func(doc *goquery.Document) []string {
		return extract.Texts(doc.Selection, "ul.view-content-detail-skill li")
	})

// qualification reads a row of the first summary column (학력, 경력, 스킬).
func qualification(doc *goquery.Document, key string) string {
	return exactDefinition(doc.Find("div.tbRow.clear div.tbCol dl.tbList").First(), key)
}

// workCondition reads a row of the second summary column (고용형태, 지역).
func workCondition(doc *goquery.Document, key string) string {
	cols := doc.Find("div.tbRow.clear div.tbCol")
	if cols.Length() < 2 {
		return ""
	}
	return exactDefinition(cols.Eq(1).Find("dl.tbList").First(), key)
}

// exactDefinition pairs dt and dd by position and matches the label exactly.
func exactDefinition(dl *goquery.Selection, key string) string {
	dts := dl.Find("dt")
	dds := dl.Find("dd")
	var found string
	dts.EachWithBreak(func(i int, dt *goquery.Selection) bool {
		if i >= dds.Length() {
			return false
		}
		if textutil.Clean(dt.Text()) == key {
			found = textutil.Clean(dds.Eq(i).Text())
			return false
		}
		return true
	})
	return found
}

func positionsFromScript(raw []byte) (string, []string) {
	m := dimension44.FindSubmatch(raw)
	if m == nil {
		return "", nil
	}
	value := string(m[1])
	return strings.ReplaceAll(value, "|", ", "), textutil.SplitItems(value, 1, "|")
}

func preferredFromDetail(doc *goquery.Document) crawler.PreferredExperience {
	text := textutil.Clean(doc.Find("dl.tbAdd.tbPref dd").First().Text())
	return crawler.PreferredExperience{RawText: text, RawList: textutil.SplitItems(text, 1, ",")}
}

func companyFromDetail(doc *goquery.Document, name string) crawler.Company {
	c := crawler.Company{Name: name}
	info := doc.Find("div.tbCol.coInfo dl.tbList").First()
	if info.Length() == 0 {
		return c
	}
	c.Industry = exactDefinition(info, "산업")
	c.Size = exactDefinition(info, "사원수")
	c.Sales = exactDefinition(info, "매출액")
	var desc []string
	for _, key := range []string{"기업형태", "설립"} {
		if v := exactDefinition(info, key); v != "" {
			desc = append(desc, v)
		}
	}
	c.Description = strings.Join(desc, ", ")
	return c
}

func hasEssentialCompanyInfo(c crawler.Company) bool {
	return c.Size != "" || c.Sales != "" || c.Industry != ""
}

// enrichCompany fills empty company fields from the company profile page. Failures are ignored.
func (a *Adapter) enrichCompany(ctx context.Context, c *crawler.Company, companyURL string) {
	if err := a.pauser.Pause(ctx, session.Between(companyPacing[0], companyPacing[1])); err != nil {
		return
	}
	page, err := a.http.Get(ctx, companyURL, crawler.CommonBrowserHeaders())
	if err != nil {
		a.logger.Debug("company page unavailable", zap.String("url", companyURL), zap.Error(err))
		return
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return
	}
	mergeCompanyPage(doc, c)
}

func mergeCompanyPage(doc *goquery.Document, c *crawler.Company) {
	if c.Name == "" {
		c.Name = companyPageName(doc)
	}
	var table *goquery.Selection
	for _, sel := range companyTables {
		if t := doc.Find(sel).First(); t.Length() > 0 {
			table = t
			break
		}
	}
	if table != nil {
		table.Find("tr.field").Each(func(_ int, tr *goquery.Selection) {
			values := tr.Find("td.field-value")
			tr.Find("th.field-label").Each(func(i int, th *goquery.Selection) {
				if i >= values.Length() {
					return
				}
				value := fieldValue(values.Eq(i))
				if value == "" {
					return
				}
				switch textutil.Clean(th.Text()) {
				case "산업":
					setIfEmpty(&c.Industry, value)
				case "기업구분":
					setIfEmpty(&c.Size, value)
				case "매출액":
					setIfEmpty(&c.Sales, value)
				case "사원수":
					setIfEmpty(&c.Description, value)
				}
			})
		})
	}
	if c.Industry == "" {
		c.Industry = textutil.Clean(doc.Find(".summary-item").First().Text())
	}
}

func fieldValue(td *goquery.Selection) string {
	for _, sel := range []string{"div.value", "div.values div.value", "div.value a"} {
		if v := textutil.Clean(td.Find(sel).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

func companyPageName(doc *goquery.Document) string {
	for _, sel := range companyNameSel {
		if name := textutil.Clean(doc.Find(sel).First().Text()); name != "" && !strings.Contains(name, "잡코리아") {
			return name
		}
	}
	title := textutil.Clean(doc.Find("title").First().Text())
	if title == "" || strings.Contains(title, "잡코리아") {
		return ""
	}
	return strings.Fields(title)[0]
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
