package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobboard-crawler/internal/textutil"
)

// Text returns a strategy that reads the cleaned text of the first match of selector.
func Text(selector string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		return textutil.Clean(doc.Find(selector).First().Text())
	}
}

// Attr returns a strategy that reads attr from the first match of selector.
func Attr(selector, attr string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		v, _ := doc.Find(selector).First().Attr(attr)
		return textutil.Clean(v)
	}
}

// Meta reads a <meta property|name=...> content value.
func Meta(name string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		sel := doc.Find(`meta[property="` + name + `"]`)
		if sel.Length() == 0 {
			sel = doc.Find(`meta[name="` + name + `"]`)
		}
		v, _ := sel.First().Attr("content")
		return textutil.Clean(v)
	}
}

// FirstText tries each selector in order and returns the first non-empty text.
func FirstText(doc *goquery.Document, selectors ...string) string {
	for _, s := range selectors {
		if v := textutil.Clean(doc.Find(s).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

// Texts collects the cleaned, non-empty texts of every match of selector.
func Texts(sel *goquery.Selection, selector string) []string {
	var out []string
	sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v := textutil.Clean(s.Text()); v != "" {
			out = append(out, v)
		}
	})
	return out
}

// SectionAfterHeading finds a heading whose text contains one of keywords and returns the
// text of the element that follows it.
func SectionAfterHeading(doc *goquery.Document, headings string, keywords ...string) string {
	var found string
	doc.Find(headings).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		label := textutil.Clean(h.Text())
		for _, kw := range keywords {
			if strings.Contains(label, kw) {
				found = textutil.Clean(h.Next().Text())
				return found == ""
			}
		}
		return true
	})
	return found
}

// DefinitionValue scans <dt>/<dd> and <th>/<td> pairs for a label containing key.
func DefinitionValue(sel *goquery.Selection, key string) string {
	var found string
	sel.Find("dt, th").EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if !strings.Contains(textutil.Clean(label.Text()), key) {
			return true
		}
		next := label.NextFiltered("dd, td")
		if next.Length() == 0 {
			next = label.Next()
		}
		found = textutil.Clean(next.Text())
		return found == ""
	})
	return found
}

// BodyText returns the cleaned text of the whole document without scripts and styles.
func BodyText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return textutil.Clean(body.Text())
}
