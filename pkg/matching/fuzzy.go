package matching

import (
	"mercagasto/domain"

	"github.com/pmezard/go-difflib/difflib"
)

type FuzzyStrategy struct {
	MinRatio float64
}

func (s FuzzyStrategy) Method() domain.MatchMethod {
	return domain.MethodFuzzy
}

// Ratio is the sequence similarity of two normalized strings, in [0,1].
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

func (s FuzzyStrategy) Attempt(item Item, catalog *Catalog) (Result, bool) {
	query := splitRunes(Normalize(item.Description))
	if len(query) == 0 {
		return Result{}, false
	}

	best := 0.0
	var tied []*Product
	matcher := difflib.NewMatcher(nil, query)
	for _, p := range catalog.Products() {
		matcher.SetSeq1(p.runes)
		r := matcher.Ratio()
		switch {
		case r > best+scoreEpsilon:
			best = r
			tied = append(tied[:0], p)
		case r >= best-scoreEpsilon && r > 0:
			tied = append(tied, p)
		}
	}
	if len(tied) == 0 || best < s.MinRatio {
		return Result{}, false
	}

	shortest := shortestNames(tied)
	if len(shortest) == 1 {
		return Result{Product: shortest[0], Confidence: best, Method: domain.MethodFuzzy}, true
	}
	if p, ok := closestPrice(item, shortest); ok {
		return Result{Product: p, Confidence: best, Method: domain.MethodPrice}, true
	}
	return Result{Product: shortest[0], Confidence: best, Method: domain.MethodFuzzy}, true
}

func shortestNames(products []*Product) []*Product {
	minLen := -1
	var out []*Product
	for _, p := range products {
		n := len(p.runes)
		switch {
		case minLen < 0 || n < minLen:
			minLen = n
			out = append(out[:0], p)
		case n == minLen:
			out = append(out, p)
		}
	}
	return out
}
