package jobkorea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/extract"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
	"github.com/JakeFAU/jobboard-crawler/internal/textutil"
)

// ChunkSize stays under the board's limit of 20 simultaneous duty filters.
const ChunkSize = 17

// DevCategories are the developer duty filters, matched against the checkbox data-name.
var DevCategories = []string{
	"백엔드개발자", "프론트엔드개발자", "웹개발자", "앱개발자",
	"시스템엔지니어", "네트워크엔지니어", "DBA", "데이터엔지니어",
	"데이터사이언티스트", "보안엔지니어", "소프트웨어개발자",
	"게임개발자", "하드웨어개발자", "AI/ML엔지니어", "블록체인개발자",
	"클라우드엔지니어", "웹퍼블리셔", "IT컨설팅", "QA",
	"AI/ML연구원", "데이터분석가", "데이터라벨러", "프롬프트엔지니어",
	"AI보안전문가", "MLOps엔지니어", "AI서비스개발자",
}

var mainCategorySelectors = []string{
	`label[for="duty_step1_10031"]`,
	`#duty_step1_10031`,
	`input[value="10031"]`,
}

const (
	fullCrawlPages = 10
	filterSettle   = 2 * time.Second
	resultsSettle  = 5 * time.Second
)

const selectCategoriesJS = `(() => {
  const wanted = new Set(%s);
  const root = document.querySelector('div.nano-content.dev-sub');
  if (!root) return [];
  const picked = [];
  root.querySelectorAll('input[type="checkbox"]').forEach((cb) => {
    const name = cb.getAttribute('data-name');
    if (!name || !wanted.has(name)) return;
    if (!cb.checked) cb.click();
    picked.push(name);
  });
  return picked;
})()`

const submitSearchJS = `(() => {
  const byText = (sel, text) => Array.from(document.querySelectorAll(sel))
    .find((el) => (el.innerText || el.value || '').includes(text));
  const button = byText('button', '선택된 조건 검색하기')
    || byText('input[type="button"], input[type="submit"]', '선택된 조건 검색하기')
    || byText('button', '검색하기')
    || document.querySelector('.btn-search');
  if (!button) return false;
  button.click();
  return true;
})()`

const existsJS = `document.querySelector(%s) !== null`

const locationJS = `location.href.split('#')[0]`

// Chunks partitions categories into groups of at most size.
func Chunks(categories []string, size int) [][]string {
	if size <= 0 {
		size = ChunkSize
	}
	var out [][]string
	for start := 0; start < len(categories); start += size {
		end := min(start+size, len(categories))
		out = append(out, categories[start:end])
	}
	return out
}

// CollectListingURLs runs every category chunk in its own tab. A failed chunk is logged and
// skipped.
func (a *Adapter) CollectListingURLs(ctx context.Context, cfg crawler.SiteConfig, fullCrawl bool) ([]string, error) {
	if a.browser == nil {
		return nil, &crawler.ConfigurationError{Reason: "jobkorea listing requires a browser session"}
	}
	pages := cfg.MaxPages
	if fullCrawl {
		pages = fullCrawlPages
	}
	urls := crawler.NewURLSet()
	chunks := Chunks(a.categories, ChunkSize)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return urls.Slice(), fmt.Errorf("jobkorea listing: %w", err)
		}
		logger := a.logger.With(zap.Int("chunk", i+1), zap.Int("chunks", len(chunks)))
		found, err := a.collectChunk(ctx, cfg, chunk, pages, logger)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return urls.Slice(), err
			}
			logger.Warn("category chunk failed", zap.Error(err))
		}
		for _, u := range found {
			urls.Add(u)
		}
		logger.Info("category chunk done", zap.Int("urls", len(found)))
	}
	return urls.Slice(), nil
}

func (a *Adapter) collectChunk(ctx context.Context, cfg crawler.SiteConfig, chunk []string, pages int, logger *zap.Logger) ([]string, error) {
	tab, err := a.browser.NewTab(ctx, session.TabOptionsFor(cfg))
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	defer tab.Close()

	if _, err := tab.Navigate(ctx, a.origin+"/recruit/joblist?menucode=duty"); err != nil {
		return nil, err
	}
	if err := a.pauser.Pause(ctx, filterSettle); err != nil {
		return nil, err
	}
	if err := a.clickMainCategory(ctx, tab); err != nil {
		return nil, err
	}
	if err := a.pauser.Pause(ctx, filterSettle); err != nil {
		return nil, err
	}

	names, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	var picked []string
	if err := tab.Eval(ctx, fmt.Sprintf(selectCategoriesJS, names), &picked); err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	if len(picked) == 0 {
		return nil, errors.New("no duty categories could be selected")
	}
	logger.Debug("categories selected", zap.Strings("categories", picked))

	var submitted bool
	if err := tab.Eval(ctx, submitSearchJS, &submitted); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	if !submitted {
		return nil, errors.New("search button not found")
	}
	if err := a.pauser.Pause(ctx, resultsSettle); err != nil {
		return nil, err
	}
	return a.paginate(ctx, tab, pages, logger)
}

func (a *Adapter) clickMainCategory(ctx context.Context, tab session.Tab) error {
	for _, sel := range mainCategorySelectors {
		quoted, _ := json.Marshal(sel)
		var exists bool
		if err := tab.Eval(ctx, fmt.Sprintf(existsJS, quoted), &exists); err != nil || !exists {
			continue
		}
		if err := tab.Click(ctx, sel); err == nil {
			return nil
		}
	}
	return errors.New("main duty category not clickable")
}

// paginate reads result pages by jumping to the #anchorGICnt_<n> fragment.
func (a *Adapter) paginate(ctx context.Context, tab session.Tab, pages int, logger *zap.Logger) ([]string, error) {
	var found []string
	breaker := crawler.NewBreaker(crawler.MaxConsecutiveEmptyPages)

	for page := 1; page <= pages; page++ {
		rows, err := a.readPage(ctx, tab)
		if err != nil && errors.Is(err, context.Canceled) {
			return found, err
		}
		if len(rows) == 0 {
			logger.Info("empty result page", zap.Int("page", page), zap.Error(err))
			if breaker.Miss() {
				logger.Info("result breaker tripped", zap.Int("page", page))
				break
			}
		} else {
			breaker.Hit()
			for _, row := range rows {
				a.remember(row.url, row.meta)
				found = append(found, row.url)
			}
			logger.Debug("result page", zap.Int("page", page), zap.Int("rows", len(rows)))
		}
		if page == pages {
			break
		}
		if err := a.nextPage(ctx, tab, page+1); err != nil {
			logger.Info("pagination stopped", zap.Int("page", page+1), zap.Error(err))
			break
		}
	}
	return found, nil
}

func (a *Adapter) readPage(ctx context.Context, tab session.Tab) ([]listingRow, error) {
	html, err := tab.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return parseListing(doc, a.origin), nil
}

func (a *Adapter) nextPage(ctx context.Context, tab session.Tab, page int) error {
	var base string
	if err := tab.Eval(ctx, locationJS, &base); err != nil {
		return err
	}
	if _, err := tab.Navigate(ctx, fmt.Sprintf("%s#anchorGICnt_%d", base, page)); err != nil {
		return err
	}
	return a.pauser.Pause(ctx, session.Between(time.Second, 2*time.Second))
}

type listingRow struct {
	url  string
	meta crawler.ListingMeta
}

func parseListing(doc *goquery.Document, origin string) []listingRow {
	var rows []listingRow
	doc.Find("#dev-gi-list tr.devloopArea").Each(func(_ int, tr *goquery.Selection) {
		link := tr.Find(`td.tplTit strong a[href*="/Recruit/GI_Read/"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		postingURL := textutil.NormalizeURL(href, origin)
		if postingURL == "" {
			return
		}

		meta := crawler.ListingMeta{Company: textutil.Clean(tr.Find("td.tplCo a").First().Text())}
		if title, ok := link.Attr("title"); ok && strings.TrimSpace(title) != "" {
			meta.Title = textutil.Clean(title)
		} else {
			meta.Title = textutil.Clean(link.Text())
		}
		if companyHref, ok := tr.Find(`td.tplCo a[href*="/Recruit/Co_Read/"]`).First().Attr("href"); ok {
			meta.CompanyURL = textutil.NormalizeURL(companyHref, origin)
		}

		cells := extract.Texts(tr, "td.tplTit p.etc span.cell")
		fields := []*string{&meta.Experience, &meta.Education, &meta.Location, &meta.WorkType, &meta.PositionLevel}
		for i, field := range fields {
			if i < len(cells) {
				*field = cells[i]
			}
		}
		meta.Positions = textutil.SplitItems(tr.Find("td.tplTit p.dsc").First().Text(), 1, ",")

		rows = append(rows, listingRow{url: postingURL, meta: meta})
	})
	return rows
}
