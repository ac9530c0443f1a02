package extract

import (
	"reflect"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// Strategy produces a candidate value from a document. The zero value of T means "not found".
type Strategy[T any] struct {
	Name string
	Run  func(doc *goquery.Document) T
}

// Chain tries its strategies in order and keeps the first non-empty result.
type Chain[T any] struct {
	Field      string
	strategies []Strategy[T]
}

// NewChain builds a chain for the named field.
func NewChain[T any](field string, strategies ...Strategy[T]) *Chain[T] {
	return &Chain[T]{Field: field, strategies: strategies}
}

// Then appends a strategy and returns the chain.
func (c *Chain[T]) Then(name string, run func(doc *goquery.Document) T) *Chain[T] {
	c.strategies = append(c.strategies, Strategy[T]{Name: name, Run: run})
	return c
}

// Len returns the number of strategies.
func (c *Chain[T]) Len() int { return len(c.strategies) }

// Run returns the first non-empty value plus the name of the strategy that produced it.
// ok is false when every strategy came back empty.
func (c *Chain[T]) Run(doc *goquery.Document) (value T, strategy string, ok bool) {
	if doc == nil {
		return value, "", false
	}
	for _, s := range c.strategies {
		if s.Run == nil {
			continue
		}
		v := s.Run(doc)
		if !isEmpty(v) {
			return v, s.Name, true
		}
	}
	return value, "", false
}

// Require is Run for fields a posting should not lack. It returns a *crawler.ExtractionGap
// naming the field when every strategy came back empty.
func (c *Chain[T]) Require(doc *goquery.Document) (T, error) {
	v, _, ok := c.Run(doc)
	if !ok {
		return v, &crawler.ExtractionGap{Field: c.Field}
	}
	return v, nil
}

// Value is Run without the bookkeeping.
func (c *Chain[T]) Value(doc *goquery.Document) T {
	v, _, _ := c.Run(doc)
	return v
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}
