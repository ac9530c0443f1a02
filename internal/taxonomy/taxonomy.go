package taxonomy

import (
	"sync"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// Taxonomies bundles both normalizers so adapters can take a single dependency.
type Taxonomies struct {
	Positions *PositionTaxonomy
	Techs     *TechTaxonomy
}

var (
	defaultOnce sync.Once
	defaultTax  *Taxonomies
)

// Default returns the process-wide tables, building them on first use.
func Default() *Taxonomies {
	defaultOnce.Do(func() {
		defaultTax = &Taxonomies{
			Positions: NewPositionTaxonomy(),
			Techs:     NewTechTaxonomy(),
		}
	})
	return defaultTax
}

// Position is shorthand for t.Positions.Normalize.
func (t *Taxonomies) Position(rawText string, rawList []string) crawler.Position {
	return t.Positions.Normalize(rawText, rawList)
}

// TechStack is shorthand for t.Techs.Normalize.
func (t *Taxonomies) TechStack(rawText string, rawList []string, fullText string) crawler.TechStack {
	return t.Techs.Normalize(rawText, rawList, fullText)
}
