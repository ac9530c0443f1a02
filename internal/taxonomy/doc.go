// Package taxonomy maps free-text position titles and technology names onto fixed
// categories. Tables are built once per process and never mutated afterwards, so a
// *PositionTaxonomy or *TechTaxonomy may be shared freely between goroutines.
package taxonomy
