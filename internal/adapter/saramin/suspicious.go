package saramin

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobboard-crawler/internal/textutil"
)

// Kinds of suspicious embedded content. The values are the labels the audit trail uses.
const (
	KindPDF            = "PDF_콘텐츠"
	KindImageHeavy     = "이미지_위주"
	KindCanvas         = "Canvas_콘텐츠"
	KindStructured     = "구조화된_비텍스트"
	KindSparseText     = "텍스트_부족"
	KindMissingContent = "user_content_없음"
)

const (
	maxSampleRunes     = 500
	maxImages          = 3
	sampledImages      = 5
	structuredMaxChars = 100
	structuredMinTags  = 10
	sparseTextChars    = 50
)

type finding struct {
	kind   string
	sample string
}

// inspectEmbedded lists what makes an embedded posting body look like something other than
// text. At most one of the non-text kinds is reported; the user_content checks are independent.
func inspectEmbedded(doc *goquery.Document) []finding {
	var out []finding
	if f, ok := nonTextContent(doc); ok {
		out = append(out, f)
	}
	content := doc.Find("div.user_content").First()
	if content.Length() == 0 {
		return append(out, finding{kind: KindMissingContent})
	}
	if text := textutil.Clean(content.Text()); utf8.RuneCountInString(text) < sparseTextChars {
		out = append(out, finding{kind: KindSparseText, sample: text})
	}
	return out
}

func nonTextContent(doc *goquery.Document) (finding, bool) {
	pdf := doc.Find("embed[src], object[src], iframe[src]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.AttrOr("src", "")), "pdf")
	})
	if pdf.Length() > 0 {
		return finding{kind: KindPDF, sample: outerHTML(pdf)}, true
	}

	if imgs := doc.Find("img"); imgs.Length() > maxImages {
		srcs := imgs.Slice(0, min(sampledImages, imgs.Length())).Map(func(_ int, s *goquery.Selection) string {
			return s.AttrOr("src", "")
		})
		return finding{kind: KindImageHeavy, sample: strings.Join(srcs, ", ")}, true
	}

	if canvas := doc.Find("canvas"); canvas.Length() > 0 {
		return finding{kind: KindCanvas, sample: outerHTML(canvas)}, true
	}

	content := doc.Find("div.user_content").First()
	if content.Length() == 0 {
		return finding{}, false
	}
	text := textutil.Clean(content.Text())
	elements := content.Find("*")
	if utf8.RuneCountInString(text) < structuredMaxChars && elements.Length() > structuredMinTags {
		tags := elements.Slice(0, structuredMinTags).Map(func(_ int, s *goquery.Selection) string {
			return goquery.NodeName(s)
		})
		return finding{
			kind:   KindStructured,
			sample: fmt.Sprintf("텍스트:%d글자, 요소:%s", utf8.RuneCountInString(text), strings.Join(tags, ",")),
		}, true
	}
	return finding{}, false
}

func outerHTML(sel *goquery.Selection) string {
	parts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if html, err := goquery.OuterHtml(s); err == nil {
			parts = append(parts, html)
		}
	})
	return strings.Join(parts, "")
}
