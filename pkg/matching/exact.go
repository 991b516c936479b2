package matching

import (
	"mercagasto/domain"
)

type ExactStrategy struct{}

func (ExactStrategy) Method() domain.MatchMethod {
	return domain.MethodExact
}

func (ExactStrategy) Attempt(item Item, catalog *Catalog) (Result, bool) {
	found := catalog.Lookup(item.Description)
	if len(found) == 0 {
		return Result{}, false
	}
	return Result{Product: found[0], Confidence: 1.0, Method: domain.MethodExact}, true
}
