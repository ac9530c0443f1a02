package taxonomy

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/textutil"
)

// Token length bounds applied when a tech field has to be split from free text.
const (
	minTechTokenRunes = 2
	maxTechTokenRunes = 30
)

var techNameStrips = regexp.MustCompile(`[.\-_\s]+`)

type techEntry struct {
	canonical string
	category  string
}

// TechTaxonomy is the immutable alias table behind Normalize.
type TechTaxonomy struct {
	aliases map[string]techEntry
}

// NewTechTaxonomy builds the alias table from the built-in definitions.
func NewTechTaxonomy() *TechTaxonomy {
	t := &TechTaxonomy{aliases: make(map[string]techEntry)}
	for _, cat := range techTable {
		for _, tech := range cat.techs {
			for _, alias := range tech.aliases {
				t.aliases[normalizeTechName(alias)] = techEntry{canonical: tech.canonical, category: cat.category}
			}
		}
	}
	return t
}

// Lookup resolves a single spelling to its canonical name and category.
func (t *TechTaxonomy) Lookup(name string) (canonical, category string, ok bool) {
	entry, ok := t.aliases[normalizeTechName(name)]
	if !ok {
		return "", "", false
	}
	return entry.canonical, entry.category, true
}

// Normalize resolves every token of a posting's tech field. rawList is used as-is when
// present; otherwise rawText is split on common delimiters. fullText is the whole posting
// and feeds the required/preferred/experience context guess.
func (t *TechTaxonomy) Normalize(rawText string, rawList []string, fullText string) crawler.TechStack {
	stack := crawler.TechStack{RawText: rawText, RawList: rawList, Normalized: []crawler.NormalizedTech{}}

	tokens := rawList
	if len(tokens) == 0 {
		tokens = SplitTechText(rawText)
	}
	lowerFull := strings.ToLower(fullText)
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if utf8.RuneCountInString(token) < minTechTokenRunes {
			continue
		}
		ctx := inferContext(token, lowerFull)
		if canonical, category, ok := t.Lookup(token); ok {
			stack.Normalized = append(stack.Normalized, crawler.NormalizedTech{
				Tech:       canonical,
				Category:   category,
				Confidence: crawler.ConfidenceHigh,
				Context:    ctx,
			})
			continue
		}
		stack.Normalized = append(stack.Normalized, crawler.NormalizedTech{
			Tech:       guessTechName(token),
			Category:   GuessCategory(token),
			Confidence: crawler.ConfidenceLow,
			Context:    ctx,
		})
	}
	return stack
}

// SplitTechText tokenizes a free-text tech field, keeping tokens of 2 to 30 runes.
func SplitTechText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := []string{text}
	for _, sep := range techSeparators {
		var next []string
		for _, p := range parts {
			for _, piece := range strings.Split(p, sep) {
				if piece = strings.TrimSpace(piece); piece != "" {
					next = append(next, piece)
				}
			}
		}
		parts = next
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		n := utf8.RuneCountInString(p)
		if n >= minTechTokenRunes && n <= maxTechTokenRunes {
			out = append(out, p)
		}
	}
	return out
}

// GuessCategory assigns a category to a technology the alias table does not know.
func GuessCategory(name string) string {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "db", "database", "sql"):
		return CategoryDatabase
	case containsAny(lower, "cloud", "aws", "azure", "gcp"):
		return CategoryCloud
	case containsAny(lower, ".js", "script", "lang"):
		return CategoryLanguage
	case containsAny(lower, "framework", "lib", "library"):
		return CategoryFramework
	default:
		return CategoryTool
	}
}

func inferContext(tech, lowerFull string) crawler.TechContext {
	if lowerFull == "" {
		return crawler.ContextExperience
	}
	lowerTech := strings.ToLower(tech)
	for _, c := range contextKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lowerFull, lowerTech+" "+kw) ||
				strings.Contains(lowerFull, kw+" "+lowerTech) ||
				(strings.Contains(lowerFull, kw+":") && strings.Contains(lowerFull, lowerTech)) {
				return crawler.TechContext(c.context)
			}
		}
	}
	return crawler.ContextExperience
}

func guessTechName(token string) string {
	name := strings.ToLower(token)
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, ".", "")
}

func normalizeTechName(name string) string {
	name = strings.ToLower(textutil.Clean(name))
	return strings.TrimSpace(techNameStrips.ReplaceAllString(name, ""))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
