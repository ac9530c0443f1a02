package taxonomy

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/textutil"
)

// PartialMatchThreshold is the minimum length ratio a containment match must reach.
const PartialMatchThreshold = 0.70

// Unknown category values returned when nothing matches.
const (
	UnknownCategory = "UNKNOWN"
	UnknownLabel    = "미분류"
)

var (
	parenthetical  = regexp.MustCompile(`\([^)]*\)`)
	positionStrips = regexp.MustCompile(`[/,\-\s]+`)
)

type positionEntry struct {
	keyword string
	result  crawler.NormalizedPosition
}

// PositionTaxonomy is the immutable keyword table behind NormalizePosition.
type PositionTaxonomy struct {
	entries []positionEntry
	exact   map[string]int
}

// NewPositionTaxonomy builds the table from the built-in category definitions.
func NewPositionTaxonomy() *PositionTaxonomy {
	return buildPositionTaxonomy(positionTable)
}

// buildPositionTaxonomy indexes every keyword of table. A keyword listed twice keeps its first
// position in the scan order and takes the category of its last listing.
func buildPositionTaxonomy(table []primaryDef) *PositionTaxonomy {
	t := &PositionTaxonomy{exact: make(map[string]int)}
	for _, primary := range table {
		for _, sub := range primary.subs {
			for _, kw := range sub.keywords {
				key := normalizePositionText(kw.text)
				if key == "" {
					continue
				}
				result := crawler.NormalizedPosition{
					PrimaryCategory:   primary.key,
					SecondaryCategory: sub.key,
					PrimaryLabel:      primary.label,
					SecondaryLabel:    sub.label,
					Confidence:        kw.confidence,
					IsDataRole:        dataPrimaries[primary.key],
				}
				if i, dup := t.exact[key]; dup {
					t.entries[i].result = result
					continue
				}
				t.exact[key] = len(t.entries)
				t.entries = append(t.entries, positionEntry{keyword: key, result: result})
			}
		}
	}
	return t
}

// Len reports how many distinct normalized keywords the table holds.
func (t *PositionTaxonomy) Len() int {
	return len(t.entries)
}

// Normalize places a posting's role wording in the taxonomy. rawList entries are preferred
// over rawText. The first exact keyword hit wins; otherwise the best containment match at or
// above PartialMatchThreshold; otherwise the UNKNOWN category with low confidence.
func (t *PositionTaxonomy) Normalize(rawText string, rawList []string) crawler.Position {
	pos := crawler.Position{RawText: rawText, RawList: rawList, Normalized: unknownPosition()}

	candidates := rawList
	if len(candidates) == 0 && rawText != "" {
		candidates = []string{rawText}
	}

	best := -1
	bestScore := 0.0
	for _, candidate := range candidates {
		text := normalizePositionText(candidate)
		if text == "" {
			continue
		}
		if idx, ok := t.exact[text]; ok {
			pos.Normalized = t.entries[idx].result
			return pos
		}
		for i, entry := range t.entries {
			if !strings.Contains(text, entry.keyword) && !strings.Contains(entry.keyword, text) {
				continue
			}
			score := lengthRatio(entry.keyword, text)
			if score >= PartialMatchThreshold && score > bestScore {
				best, bestScore = i, score
			}
		}
	}
	if best >= 0 {
		pos.Normalized = t.entries[best].result
	}
	return pos
}

// IsDataRole reports whether the normalized placement is a data or AI role.
func IsDataRole(p crawler.NormalizedPosition) bool {
	return dataPrimaries[p.PrimaryCategory]
}

func unknownPosition() crawler.NormalizedPosition {
	return crawler.NormalizedPosition{
		PrimaryCategory:   UnknownCategory,
		SecondaryCategory: UnknownCategory,
		PrimaryLabel:      UnknownLabel,
		SecondaryLabel:    UnknownLabel,
		Confidence:        crawler.ConfidenceLow,
	}
}

func normalizePositionText(s string) string {
	s = strings.ToLower(textutil.Clean(s))
	s = parenthetical.ReplaceAllString(s, "")
	s = positionStrips.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func lengthRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	return float64(min(la, lb)) / float64(max(la, lb))
}
