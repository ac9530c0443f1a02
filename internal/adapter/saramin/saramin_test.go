package saramin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
	"github.com/JakeFAU/jobboard-crawler/internal/session/sessiontest"
	"github.com/JakeFAU/jobboard-crawler/internal/taxonomy"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingAuditor struct {
	mu       sync.Mutex
	findings []crawler.SuspiciousFinding
}

func (r *recordingAuditor) Record(_ context.Context, f crawler.SuspiciousFinding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, f)
}

func (r *recordingAuditor) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.findings))
	for _, f := range r.findings {
		out = append(out, f.Kind)
	}
	return out
}

const listingPage = `<html><body><section class="list_recruiting"><div class="list_body">
<div class="list_item">
  <div class="col company_nm"><a class="str_tit" href="/zf_user/company-info/view?csn=1">에이크미</a></div>
  <div class="col notification_info">
    <div class="job_tit"><a class="str_tit" href="/zf_user/jobs/relay/view?rec_idx=501&view_type=list" title="백엔드 엔지니어">백엔드 엔지니어</a></div>
    <div class="job_meta"><span class="job_sector"><span>백엔드/서버개발</span><span>Java</span></span></div>
  </div>
  <div class="col recruit_info"><div class="job_condition"><span><a>서울</a> <a>강남구</a></span><span>경력 3년↑</span><span>대졸↑</span><span>정규직</span></div></div>
</div>
<div class="list_item">
  <div class="col company_nm"><a href="#">외부</a></div>
  <div class="job_tit"><a class="str_tit" href="https://www.example.com/zf_user/jobs/view?rec_idx=9">외부 공고</a></div>
</div>
<div class="list_item">
  <div class="col company_nm"><span>베타랩스</span></div>
  <a href="/zf_user/jobs/view?rec_idx=502">데이터 엔지니어</a>
</div>
<div class="list_item">
  <div class="job_tit"><a class="str_tit" href="/zf_user/jobs/relay/view?rec_idx=501&view_type=list">백엔드 엔지니어</a></div>
</div>
</div></section></body></html>`

const emptyListingPage = `<html><body><section class="list_recruiting"><div class="list_body"></div></section></body></html>`

var detailPage = `<html><head><title>사람인</title>` + strings.Repeat("<!-- padding -->", 80) + `</head><body>
<section class="jview jview-0-999"><h1 class="tit_job">다른 공고</h1></section>
<section class="jview jview-0-501">
 <div class="wrap_jv_header"><a class="company_name">에이크미</a><h1 class="tit_job">백엔드 엔지니어 (Go)</h1></div>
 <div class="jv_cont jv_summary"><div class="cont">
   <div class="col"><dl><dt>경력</dt><dd><strong>경력 3~5년</strong></dd></dl><dl><dt>학력</dt><dd>대학교(4년) 졸업</dd></dl></div>
   <div class="col"><dl><dt>근무형태</dt><dd>정규직(수습기간 3개월)</dd></dl><dl><dt>근무지역</dt><dd>서울 마포구 양화로</dd></dl></div>
 </div></div>
 <div class="jv_cont jv_detail"><iframe id="iframe_content_501" class="iframe_content" src="/zf_user/jobs/relay/view-detail?rec_idx=501"></iframe></div>
 <div class="jv_cont jv_company"><div class="info_area">
   <dl><dt>업종</dt><dd>응용 소프트웨어 개발</dd></dl>
   <dl><dt>기업형태</dt><dd>중소기업</dd></dl>
   <dl><dt>사원수</dt><dd>45명</dd></dl>
   <dl><dt>설립일</dt><dd>2015년 3월 2일</dd></dl>
   <dl><dt>매출액</dt><dd>30억</dd></dl>
 </div></div>
</section>
</body></html>`

const embeddedBody = `<html><body><div class="user_content">
<dl><dt>주요업무</dt><dd>Go와 Kubernetes 기반 결제 서버를 개발하고 운영합니다. PostgreSQL 데이터 모델링도 함께 합니다.</dd></dl>
<dl><dt>우대사항</dt><dd><pre>• Kafka 운영 경험
• 대규모 트래픽 처리 경험</pre></dd></dl>
</div></body></html>`

const imageBody = `<html><body><div class="user_content">
<img src="/a.png"><img src="/b.png"><img src="/c.png"><img src="/d.png"><img src="/e.png"><img src="/f.png">
</div></body></html>`

const postingURL = DefaultOrigin + "/zf_user/jobs/relay/view?rec_idx=501&view_type=list"

func newAdapter(t *testing.T, origin string, browser session.Browser, auditor crawler.Auditor, attempts int) *Adapter {
	t.Helper()
	a, err := New(Config{
		HTTP:       session.NewHTTPSession(session.HTTPConfig{Timeout: 5 * time.Second}, nil, zap.NewNop()),
		Browser:    browser,
		Retrier:    &session.Retrier{Policy: session.RetryPolicy{MaxAttempts: attempts}, Pauser: session.NoPause{}, Logger: zap.NewNop()},
		Pauser:     session.NoPause{},
		Taxonomies: taxonomy.Default(),
		Clock:      fixedClock{t: time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)},
		Auditor:    auditor,
		Origin:     origin,
	})
	require.NoError(t, err)
	return a
}

func siteConfig(maxPages int) crawler.SiteConfig {
	cfg := crawler.DefaultSites()[crawler.PlatformSaramin]
	cfg.MaxPages = maxPages
	return cfg
}

func detailBrowser(body string) *sessiontest.Browser {
	return &sessiontest.Browser{Handler: func(url string) sessiontest.Response {
		if strings.Contains(url, "view-detail") {
			return sessiontest.Response{HTML: body}
		}
		return sessiontest.Response{HTML: detailPage}
	}}
}

func TestCollectListingURLs(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, listingPath, r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("cat_mcls"))
		assert.Equal(t, "50", r.URL.Query().Get("page_count"))
		assert.Equal(t, "RD", r.URL.Query().Get("sort"))
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(listingPage))
		case "4":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(emptyListingPage))
		}
	}))
	t.Cleanup(srv.Close)

	a := newAdapter(t, srv.URL, nil, nil, 1)
	urls, err := a.CollectListingURLs(context.Background(), siteConfig(10), false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/zf_user/jobs/relay/view?rec_idx=501&view_type=list",
		srv.URL + "/zf_user/jobs/view?rec_idx=502",
	}, urls)
	assert.Equal(t, int32(4), calls.Load(), "pages 2-4 trip the breaker")

	meta, ok := a.Metadata(urls[0])
	require.True(t, ok)
	assert.Equal(t, crawler.ListingMeta{
		Title:      "백엔드 엔지니어",
		Company:    "에이크미",
		Experience: "경력 3년↑",
		Education:  "대졸↑",
		Location:   "서울 강남구",
		WorkType:   "정규직",
		Positions:  []string{"백엔드/서버개발", "Java"},
	}, meta)

	meta, ok = a.Metadata(urls[1])
	require.True(t, ok)
	assert.Equal(t, "베타랩스", meta.Company)
}

func TestCollectListingURLsHonoursPageBudget(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(listingPage))
	}))
	t.Cleanup(srv.Close)

	a := newAdapter(t, srv.URL, nil, nil, 1)
	urls, err := a.CollectListingURLs(context.Background(), siteConfig(2), false)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExtractDetail(t *testing.T) {
	t.Parallel()

	browser := detailBrowser(embeddedBody)
	auditor := &recordingAuditor{}
	a := newAdapter(t, "", browser, auditor, 1)

	posting, err := a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	require.NoError(t, err)

	assert.Equal(t, "saramin_2026_501", posting.JobID)
	assert.Equal(t, crawler.PlatformSaramin, posting.Platform)
	assert.Equal(t, "백엔드 엔지니어 (Go)", posting.JobTitle)
	assert.Equal(t, crawler.Company{
		Name:        "에이크미",
		Size:        "중소기업, 45명",
		Description: "설립: 2015년 3월 2일",
		Sales:       "30억",
		Industry:    "응용 소프트웨어 개발",
	}, posting.Company)
	assert.Equal(t, "정규직(수습기간 3개월)", posting.WorkType)
	assert.Equal(t, "서울", posting.Location.City)
	assert.Equal(t, "마포구", posting.Location.District)
	assert.Equal(t, "대학교(4년) 졸업", posting.Education)
	assert.Equal(t, 3, posting.Experience.MinYears)
	assert.Equal(t, 5, posting.Experience.MaxYears)
	assert.Equal(t, []string{"Go", "PostgreSQL", "Kubernetes", "Kafka"}, posting.TechStack.RawList)
	assert.Equal(t, []string{"Kafka 운영 경험", "대규모 트래픽 처리 경험"}, posting.PreferredExperience.RawList)
	assert.Empty(t, auditor.kinds())

	tabs := browser.Tabs()
	require.Len(t, tabs, 2)
	assert.Equal(t, []string{postingURL}, tabs[0].Visited())
	assert.Equal(t, []string{DefaultOrigin + "/zf_user/jobs/relay/view-detail?rec_idx=501"}, tabs[1].Visited())
	assert.True(t, browser.AllClosed())
	assert.True(t, tabs[0].Options.Stealth)
}

func TestExtractDetailPrefersListingMetadata(t *testing.T) {
	t.Parallel()

	a := newAdapter(t, "", detailBrowser(embeddedBody), nil, 1)
	a.remember(postingURL, crawler.ListingMeta{
		Title:     "목록 제목",
		Company:   "목록 회사",
		Positions: []string{"백엔드/서버개발"},
	})

	posting, err := a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	require.NoError(t, err)
	assert.Equal(t, "목록 제목", posting.JobTitle)
	assert.Equal(t, "목록 회사", posting.Company.Name)
	assert.Equal(t, []string{"백엔드/서버개발"}, posting.Position.RawList)
	assert.Equal(t, "정규직(수습기간 3개월)", posting.WorkType, "summary beats listing")
}

func TestExtractDetailAuditsImageBody(t *testing.T) {
	t.Parallel()

	auditor := &recordingAuditor{}
	a := newAdapter(t, "", detailBrowser(imageBody), auditor, 1)

	posting, err := a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	require.NoError(t, err, "posting is kept")
	assert.Equal(t, "에이크미", posting.Company.Name)
	assert.Equal(t, []string{KindImageHeavy, KindSparseText}, auditor.kinds())

	first := auditor.findings[0]
	assert.Equal(t, crawler.PlatformSaramin, first.Site)
	assert.Equal(t, DefaultOrigin+"/zf_user/jobs/relay/view-detail?rec_idx=501", first.URL)
	assert.Equal(t, postingURL, first.PostingURL)
	assert.Equal(t, "/a.png, /b.png, /c.png, /d.png, /e.png", first.Sample)
	assert.Equal(t, imageBody, string(first.HTML))
	assert.Equal(t, time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), first.DetectedAt)
}

func TestExtractDetailLogsGapsAndSuspiciousContent(t *testing.T) {
	t.Parallel()

	page := strings.Replace(detailPage, `<a class="company_name">에이크미</a>`, "", 1)
	browser := &sessiontest.Browser{Handler: func(url string) sessiontest.Response {
		if strings.Contains(url, "view-detail") {
			return sessiontest.Response{HTML: imageBody}
		}
		return sessiontest.Response{HTML: page}
	}}
	core, logs := observer.New(zap.DebugLevel)
	a := newAdapter(t, "", browser, &recordingAuditor{}, 1)
	a.logger = zap.New(core)

	posting, err := a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	require.NoError(t, err)
	assert.Equal(t, "백엔드 엔지니어 (Go)", posting.JobTitle)
	assert.Empty(t, posting.Company.Name)

	gaps := logs.FilterMessage("field not extracted").All()
	require.Len(t, gaps, 1)
	var gap *crawler.ExtractionGap
	require.ErrorAs(t, loggedError(t, gaps[0]), &gap)
	assert.Equal(t, "company", gap.Field)

	suspicious := logs.FilterMessage("suspicious embedded content").All()
	require.Len(t, suspicious, 2)
	var detected *crawler.SuspiciousContentDetected
	require.ErrorAs(t, loggedError(t, suspicious[0]), &detected)
	assert.Equal(t, KindImageHeavy, detected.Kind)
	assert.Equal(t, DefaultOrigin+"/zf_user/jobs/relay/view-detail?rec_idx=501", detected.URL)
}

func loggedError(t *testing.T, entry observer.LoggedEntry) error {
	t.Helper()
	for _, f := range entry.Context {
		if err, ok := f.Interface.(error); ok && f.Key == "error" {
			return err
		}
	}
	t.Fatalf("no error field on %q", entry.Message)
	return nil
}

func TestExtractDetailMissingUserContent(t *testing.T) {
	t.Parallel()

	auditor := &recordingAuditor{}
	a := newAdapter(t, "", detailBrowser(`<html><body><p>loading</p></body></html>`), auditor, 1)

	posting, err := a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	require.NoError(t, err)
	assert.Equal(t, []string{KindMissingContent}, auditor.kinds())
	assert.Empty(t, posting.PreferredExperience.RawList)
	assert.Equal(t, []string{"Go"}, posting.TechStack.RawList, "falls back to the section text")
}

func TestExtractDetailRetriesAfterBlock(t *testing.T) {
	t.Parallel()

	var detailHits atomic.Int32
	browser := &sessiontest.Browser{Handler: func(url string) sessiontest.Response {
		if strings.Contains(url, "view-detail") {
			return sessiontest.Response{HTML: embeddedBody}
		}
		if detailHits.Add(1) == 1 {
			return sessiontest.Response{Status: http.StatusForbidden, HTML: "<html><body>blocked</body></html>"}
		}
		return sessiontest.Response{HTML: detailPage}
	}}
	a := newAdapter(t, "", browser, nil, 3)

	posting, err := a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	require.NoError(t, err)
	assert.Equal(t, "saramin_2026_501", posting.JobID)
	assert.Equal(t, int32(2), detailHits.Load())
	assert.Len(t, browser.Tabs(), 3)
	assert.True(t, browser.AllClosed())
}

func TestExtractDetailFailures(t *testing.T) {
	t.Parallel()

	short := &sessiontest.Browser{Handler: func(string) sessiontest.Response {
		return sessiontest.Response{HTML: "<html><body>tiny</body></html>"}
	}}
	a := newAdapter(t, "", short, nil, 2)
	_, err := a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	require.Error(t, err)
	assert.True(t, crawler.IsRetryable(err))
	assert.Len(t, short.Tabs(), 2)

	blocked := &sessiontest.Browser{Handler: func(string) sessiontest.Response {
		return sessiontest.Response{Status: http.StatusForbidden}
	}}
	a = newAdapter(t, "", blocked, nil, 1)
	_, err = a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	assert.True(t, crawler.IsBlocked(err))

	missing := &sessiontest.Browser{Handler: func(string) sessiontest.Response {
		return sessiontest.Response{Status: http.StatusNotFound}
	}}
	a = newAdapter(t, "", missing, nil, 3)
	_, err = a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	assert.ErrorIs(t, err, crawler.ErrNoPosting)
	assert.Len(t, missing.Tabs(), 1, "not retried")

	gone := &sessiontest.Browser{Handler: func(string) sessiontest.Response {
		return sessiontest.Response{Status: http.StatusGone, HTML: "<html><body>마감된 공고</body></html>"}
	}}
	a = newAdapter(t, "", gone, nil, 3)
	_, err = a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	assert.ErrorIs(t, err, crawler.ErrNoPosting)
	assert.False(t, crawler.IsRetryable(err))
	assert.Len(t, gone.Tabs(), 1)

	unavailable := &sessiontest.Browser{Handler: func(string) sessiontest.Response {
		return sessiontest.Response{Status: http.StatusServiceUnavailable}
	}}
	a = newAdapter(t, "", unavailable, nil, 2)
	_, err = a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	assert.True(t, crawler.IsRetryable(err))
	assert.Len(t, unavailable.Tabs(), 2)

	_, err = a.ExtractDetail(context.Background(), DefaultOrigin+"/zf_user/jobs/list", siteConfig(1))
	assert.ErrorIs(t, err, crawler.ErrNoPosting)

	a = newAdapter(t, "", nil, nil, 1)
	_, err = a.ExtractDetail(context.Background(), postingURL, siteConfig(1))
	assert.True(t, crawler.IsConfiguration(err))
}

func TestInspectEmbedded(t *testing.T) {
	t.Parallel()

	longText := strings.Repeat("채용 공고 본문입니다. ", 10)
	cases := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "plain text",
			html: `<div class="user_content"><p>` + longText + `</p></div>`,
		},
		{
			name: "pdf embed",
			html: `<div class="user_content"><embed src="/files/JD.PDF"><p>` + longText + `</p></div>`,
			want: []string{KindPDF},
		},
		{
			name: "canvas",
			html: `<div class="user_content"><canvas></canvas><p>` + longText + `</p></div>`,
			want: []string{KindCanvas},
		},
		{
			name: "structured",
			html: `<div class="user_content">` + strings.Repeat("<span></span>", 12) + `<p>짧음</p></div>`,
			want: []string{KindStructured, KindSparseText},
		},
		{
			name: "pdf wins over images",
			html: `<iframe src="/a.pdf"></iframe><img><img><img><img><div class="user_content">` + longText + `</div>`,
			want: []string{KindPDF},
		},
		{
			name: "missing",
			html: `<p>nothing</p>`,
			want: []string{KindMissingContent},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + tc.html + "</body></html>"))
			require.NoError(t, err)
			var kinds []string
			for _, f := range inspectEmbedded(doc) {
				kinds = append(kinds, f.kind)
			}
			assert.Equal(t, tc.want, kinds)
		})
	}
}

func TestSplitPreformatted(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"AWS 경험", "Docker 경험"}, splitPreformatted("◦ AWS 경험\n◦ Docker 경험"))
	assert.Equal(t, []string{"쿠버네티스 운영", "대용량 처리"}, splitPreformatted("- 쿠버네티스 운영\n - 대용량 처리"))
	assert.Equal(t, []string{"관련 학과 전공자", "스타트업 근무 경험자"}, splitPreformatted("관련 학과 전공자\n짧음\n스타트업 근무 경험자"))
	assert.Equal(t, []string{"한 줄 우대"}, splitPreformatted("  한 줄 우대 "))
	assert.Nil(t, splitPreformatted(" "))
}

func TestPreferredFromSection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "dash bullets keep hyphenated words",
			html: "- Objective-C 또는 Swift 경험\n- CI/CD 파이프라인 구축 경험",
			want: []string{"Objective-C 또는 Swift 경험", "CI/CD 파이프라인 구축 경험"},
		},
		{
			name: "hyphen only inside a word",
			html: "Objective-C 개발 경험자",
			want: []string{"Objective-C 개발 경험자"},
		},
		{
			name: "dot bullets",
			html: "• AWS 경험 • Kafka 운영",
			want: []string{"AWS 경험", "Kafka 운영"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><div class="preferred">` + tc.html + `</div></body></html>`))
			require.NoError(t, err)
			got := preferredFromSection(doc)
			assert.Equal(t, tc.want, got.RawList)
			assert.NotEmpty(t, got.RawText)
		})
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, preferredFromSection(doc).RawList)
}

func TestJobSectionFallsBackToPage(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><section class="jview jview-1-777"><h1>A</h1></section><h1>B</h1></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "A", titleChain.Value(jobSection(doc, "777")))
	assert.Equal(t, "A", titleChain.Value(jobSection(doc, "888")), "whole page, first h1")
}
