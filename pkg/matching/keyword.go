package matching

import (
	"mercagasto/domain"
)

// KeywordStrategy accepts the best Jaccard score strictly above MinScore.
type KeywordStrategy struct {
	MinScore float64
}

func (s KeywordStrategy) Method() domain.MatchMethod {
	return domain.MethodKeyword
}

func (s KeywordStrategy) Attempt(item Item, catalog *Catalog) (Result, bool) {
	tokens := Tokens(Normalize(item.Description))
	if len(tokens) == 0 {
		return Result{}, false
	}

	best := 0.0
	var tied []*Product
	for _, p := range catalog.Products() {
		score := jaccard(tokens, p.tokens)
		if score == 0 {
			continue
		}
		switch {
		case score > best+scoreEpsilon:
			best = score
			tied = append(tied[:0], p)
		case score >= best-scoreEpsilon:
			tied = append(tied, p)
		}
	}
	if len(tied) == 0 || best <= s.MinScore {
		return Result{}, false
	}
	if len(tied) == 1 {
		return Result{Product: tied[0], Confidence: best, Method: domain.MethodKeyword}, true
	}
	if p, ok := closestPrice(item, tied); ok {
		return Result{Product: p, Confidence: best, Method: domain.MethodPrice}, true
	}
	return Result{Product: shortestNames(tied)[0], Confidence: best, Method: domain.MethodKeyword}, true
}
