package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, href, base, want string
	}{
		{name: "rooted", href: "/wd/123", base: "https://site.kr", want: "https://site.kr/wd/123"},
		{name: "protocol relative", href: "//cdn.site.kr/x", base: "https://site.kr", want: "https://cdn.site.kr/x"},
		{name: "absolute", href: "http://other.kr/a", base: "https://site.kr", want: "http://other.kr/a"},
		{name: "bare relative", href: "wd/9", base: "https://site.kr/list/page", want: "https://site.kr/wd/9"},
		{name: "keeps query", href: "/Recruit/GI_Read/1?Oem_Code=C1", base: "https://www.jobkorea.co.kr", want: "https://www.jobkorea.co.kr/Recruit/GI_Read/1?Oem_Code=C1"},
		{name: "empty", href: "  ", base: "https://site.kr", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, NormalizeURL(tc.href, tc.base))
		})
	}
}

func TestQueryValueAndHostMatches(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "4521", QueryValue("https://www.saramin.co.kr/zf_user/jobs/relay/view?rec_idx=4521&x=1", "rec_idx"))
	assert.Empty(t, QueryValue("https://www.saramin.co.kr/", "rec_idx"))
	assert.True(t, HostMatches("https://www.saramin.co.kr/x", "saramin.co.kr"))
	assert.False(t, HostMatches("https://saramin.co.kr.evil.com/x", "saramin.co.kr"))
}

func TestParseExperience(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text     string
		min, max int
	}{
		{text: "신입", min: 0, max: 0},
		{text: "경력무관", min: 0, max: 0},
		{text: "경력 3~5년", min: 3, max: 5},
		{text: "경력 5년 이상", min: 5, max: OpenEndedYears},
		{text: "경력 7년", min: 7, max: 7},
		{text: "경력(10~2년)", min: 2, max: 10},
		{text: "", min: 0, max: 0},
		{text: "경력", min: 0, max: 0},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			got := ParseExperience(tc.text)
			assert.Equal(t, tc.text, got.RawText)
			assert.Equal(t, tc.min, got.MinYears)
			assert.Equal(t, tc.max, got.MaxYears)
		})
	}
}

func TestParseLocation(t *testing.T) {
	t.Parallel()

	loc := ParseLocation("서울  강남구 테헤란로 427")
	assert.Equal(t, "서울", loc.City)
	assert.Equal(t, "강남구", loc.District)
	assert.Equal(t, "서울 강남구 테헤란로 427", loc.RawText)

	loc = ParseLocation("경기 성남시 분당구")
	assert.Equal(t, "경기", loc.City)
	assert.Empty(t, loc.District)

	loc = ParseLocation("제주 제주시")
	assert.Empty(t, loc.City)
	assert.Empty(t, ParseLocation("").RawText)
}

func TestInferEducation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, EducationAny, InferEducation("학력무관"))
	assert.Equal(t, EducationHigh, InferEducation("고등학교 졸업 이상"))
	assert.Equal(t, EducationCollege, InferEducation("학사 이상"))
	assert.Equal(t, EducationMaster, InferEducation("석사 우대"))
	assert.Equal(t, EducationPhD, InferEducation("박사 학위"))
	assert.Empty(t, InferEducation("Go 경험"))
}

func TestExtractTechs(t *testing.T) {
	t.Parallel()

	got := ExtractTechs("Java, Python 우대")
	assert.Contains(t, got, "Java")
	assert.Contains(t, got, "Python")

	got = ExtractTechs("Javascript only")
	assert.NotContains(t, got, "Java")
	assert.Contains(t, got, "Javascript")

	got = ExtractTechs("c++과 Node.js, k8s 경험자. kotlin와 spring boot")
	assert.Contains(t, got, "c++")
	assert.Contains(t, got, "Node.js")
	assert.Contains(t, got, "kotlin")
	assert.Contains(t, got, "spring boot")
	assert.Contains(t, got, "spring")

	assert.Empty(t, ExtractTechs(""))
	assert.Empty(t, ExtractTechs("가나다라"))
}

func TestExtractTechsTreatsHangulAsBoundary(t *testing.T) {
	t.Parallel()

	// Korean particles and nouns attach directly to the keyword.
	got := ExtractTechs("Java와 Go언어, 파이썬Python 경험")
	assert.Contains(t, got, "Java")
	assert.Contains(t, got, "Go")
	assert.Contains(t, got, "Python")

	assert.NotContains(t, ExtractTechs("Golang 개발"), "Go")
	assert.NotContains(t, ExtractTechs("Java8 이상"), "Java")
}

func TestExtractTechsNoDuplicates(t *testing.T) {
	t.Parallel()

	got := ExtractTechs("SQLite SQLite")
	count := 0
	for _, g := range got {
		if g == "SQLite" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestSplitItemsAndClean(t *testing.T) {
	t.Parallel()

	items := SplitItems("• 대용량 트래픽 경험\n• AWS\n- 오픈소스 기여 경험", 5, "\n")
	assert.Equal(t, []string{"대용량 트래픽 경험", "오픈소스 기여 경험"}, items)
	assert.Equal(t, "a b", Clean("  a \n\t b "))
	assert.Equal(t, "가나", Truncate("가나다", 2))
	assert.Equal(t, []string{"Go", "AWS"}, Dedupe([]string{"Go", "go", " AWS", ""}))
}
