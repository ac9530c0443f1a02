package saramin

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/extract"
	"github.com/JakeFAU/jobboard-crawler/internal/textutil"
)

// minEmbeddedChars is the least body text worth scanning for techs and preferred items.
const minEmbeddedChars = 30

// dashBullet separates items in cleaned text. Hyphens inside words such as Objective-C are kept.
const dashBullet = " - "

var dashItem = regexp.MustCompile(`\n\s*-\s*`)

var titleChain = extract.NewChain[string]("job_title").
	Then("tit_job", extract.Text("h1.tit_job")).
	Then("tit_area", extract.Text("div.tit_area h1")).
	Then("job_title", extract.Text(".job_title h1")).
	Then("h1", extract.Text("h1"))

var companyNameChain = extract.NewChain[string]("company").
	Then("company_name", extract.Text(".company_name")).
	Then("cp_area", extract.Text(".cp_area .company")).
	Then("tit_company", extract.Text(".tit_company"))

func (a *Adapter) buildPosting(section *goquery.Document, content *goquery.Selection, rawURL, recIdx string, meta crawler.ListingMeta) *crawler.JobPosting {
	now := a.clock.Now()
	summary := summaryFields(section)
	qualification := textutil.Clean(section.Find("div.qualification").First().Text())

	experienceText := firstNonEmpty(summary["경력"], meta.Experience)
	experience := textutil.ParseExperience(experienceText)
	if experienceText == "" && qualification != "" {
		experience = textutil.ParseExperience(qualification)
	}
	education := firstNonEmpty(summary["학력"], meta.Education)
	if education == "" {
		education = textutil.InferEducation(qualification)
	}

	positions := textutil.Dedupe(append(append([]string(nil), meta.Positions...), extract.Texts(section.Selection, "div.job_sector span")...))
	fullText := selectionText(section.Selection)
	if content != nil {
		fullText += " " + selectionText(content)
	}
	techs := techStack(section, content)
	companyName := a.field(companyNameChain, section, meta.Company)

	return &crawler.JobPosting{
		JobID:      crawler.JobID(crawler.PlatformSaramin, now, recIdx),
		JobURL:     rawURL,
		Platform:   crawler.PlatformSaramin,
		JobTitle:   a.field(titleChain, section, meta.Title),
		Company:    companyInfo(section, companyName),
		WorkType:   firstNonEmpty(summary["근무형태"], jobInfo(section), meta.WorkType),
		Location:   textutil.ParseLocation(firstNonEmpty(summary["근무지역"], meta.Location, textutil.Clean(section.Find(".work_place").First().Text()))),
		Education:  education,
		Experience: experience,
		Position:   a.tax.Position(strings.Join(positions, ", "), positions),
		TechStack:  a.tax.TechStack(strings.Join(techs, ", "), techs, fullText),
		PreferredExperience: firstPreferred(
			preferredFromSection(section),
			preferredFromContent(content),
		),
		CrawledAt: now,
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

// summaryFields maps the dt/dd pairs of the jv_summary block. The first occurrence of a label wins.
func summaryFields(doc *goquery.Document) map[string]string {
	out := make(map[string]string)
	doc.Find("div.jv_summary dl").Each(func(_ int, dl *goquery.Selection) {
		key := textutil.Clean(dl.Find("dt").First().Text())
		value := textutil.Clean(dl.Find("dd").First().Text())
		if key == "" || value == "" {
			return
		}
		if _, ok := out[key]; !ok {
			out[key] = value
		}
	})
	return out
}

func jobInfo(doc *goquery.Document) string {
	info := doc.Find("div.job_info").First()
	if v := extract.DefinitionValue(info, "고용형태"); v != "" {
		return v
	}
	return extract.DefinitionValue(info, "근무형태")
}

// techStack tries explicit skill tags, then the embedded body, then keyword scans of the
// section and its job_description.
func techStack(section *goquery.Document, content *goquery.Selection) []string {
	if skills := extract.Texts(section.Selection, "div.job_skill .skill"); len(skills) > 0 {
		return skills
	}
	if content != nil {
		if text := selectionText(content); utf8.RuneCountInString(text) >= minEmbeddedChars {
			if techs := textutil.ExtractTechs(text); len(techs) > 0 {
				return techs
			}
		}
	}
	if techs := textutil.ExtractTechs(selectionText(section.Selection)); len(techs) > 0 {
		return techs
	}
	return textutil.ExtractTechs(selectionText(section.Find("div.job_description").First()))
}

func preferredFromSection(doc *goquery.Document) crawler.PreferredExperience {
	text := textutil.Clean(doc.Find("div.preferred").First().Text())
	if text == "" {
		return crawler.PreferredExperience{}
	}
	var items []string
	switch {
	case strings.Contains(text, "•"):
		items = textutil.SplitItems(text, 1, "•")
	case strings.HasPrefix(text, "- ") || strings.Contains(text, dashBullet):
		items = textutil.SplitItems(text, 1, dashBullet)
	default:
		items = []string{text}
	}
	return crawler.PreferredExperience{RawText: text, RawList: items}
}

// preferredFromContent reads the 우대사항/우대조건 block of the embedded body. Items come from the
// preformatted text when there is some, otherwise from bullets in the block text.
func preferredFromContent(content *goquery.Selection) crawler.PreferredExperience {
	if content == nil || utf8.RuneCountInString(selectionText(content)) < minEmbeddedChars {
		return crawler.PreferredExperience{}
	}
	var out crawler.PreferredExperience
	content.Find("dl").EachWithBreak(func(_ int, dl *goquery.Selection) bool {
		title := textutil.Clean(dl.Find("dt").First().Text())
		if !strings.Contains(title, "우대사항") && !strings.Contains(title, "우대조건") {
			return true
		}
		dd := dl.Find("dd").First()
		text := textutil.Clean(dd.Text())
		if text == "" {
			return true
		}
		var items []string
		dd.Find("pre").Each(func(_ int, pre *goquery.Selection) {
			items = append(items, splitPreformatted(pre.Text())...)
		})
		if len(items) == 0 {
			switch {
			case strings.Contains(text, "•"):
				items = textutil.SplitItems(text, 1, "•")
			case strings.Contains(text, "◦"):
				items = textutil.SplitItems(text, 1, "◦")
			default:
				items = []string{text}
			}
		}
		out = crawler.PreferredExperience{RawText: text, RawList: items}
		return false
	})
	return out
}

// splitPreformatted splits a <pre> block on bullets, dash lines or plain lines, in that order of
// preference. Plain lines shorter than six characters are dropped.
func splitPreformatted(text string) []string {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil
	case strings.Contains(text, "•"):
		return textutil.SplitItems(text, 1, "•")
	case strings.Contains(text, "◦"):
		return textutil.SplitItems(text, 1, "◦")
	case dashItem.MatchString(text):
		return textutil.SplitItems(dashItem.ReplaceAllString(text, "\x00"), 1, "\x00")
	case strings.Contains(text, "\n"):
		return textutil.SplitItems(text, 6, "\n")
	default:
		return []string{textutil.Clean(text)}
	}
}

func firstPreferred(candidates ...crawler.PreferredExperience) crawler.PreferredExperience {
	for _, c := range candidates {
		if c.RawText != "" {
			return c
		}
	}
	return crawler.PreferredExperience{}
}

// companyInfo reads the jv_company info area, falling back to the older cp_info block when it
// yields nothing descriptive.
func companyInfo(doc *goquery.Document, name string) crawler.Company {
	c := crawler.Company{Name: name}
	doc.Find("div.jv_company div.info_area dl").Each(func(_ int, dl *goquery.Selection) {
		key, value := definition(dl)
		switch {
		case value == "":
		case strings.Contains(key, "업종"):
			c.Industry = value
		case strings.Contains(key, "기업형태"):
			c.Size = value
		case strings.Contains(key, "사원수"):
			c.Size = joinNonEmpty(c.Size, value)
		case strings.Contains(key, "설립일"):
			c.Description = joinNonEmpty(c.Description, "설립: "+value)
		case strings.Contains(key, "매출"):
			c.Sales = value
		}
	})
	if c.Size != "" || c.Industry != "" || c.Description != "" {
		return c
	}
	doc.Find("div.cp_info dl").Each(func(_ int, dl *goquery.Selection) {
		key, value := definition(dl)
		switch {
		case value == "":
		case strings.Contains(key, "업종"):
			c.Industry = value
		case strings.Contains(key, "규모"), strings.Contains(key, "사원수"):
			c.Size = value
		case strings.Contains(key, "매출"):
			c.Sales = value
		case strings.Contains(key, "설립"):
			c.Description = joinNonEmpty(c.Description, "설립: "+value)
		}
	})
	return c
}

func definition(dl *goquery.Selection) (string, string) {
	return textutil.Clean(dl.Find("dt").First().Text()), textutil.Clean(dl.Find("dd").First().Text())
}

// selectionText is the cleaned text of sel without scripts and styles.
func selectionText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	clone := sel.Clone()
	clone.Find("script, style, noscript").Remove()
	return textutil.Clean(clone.Text())
}

func joinNonEmpty(existing, v string) string {
	if existing == "" {
		return v
	}
	return existing + ", " + v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
