package matching

import (
	"mercagasto/domain"

	"github.com/google/uuid"
)

type Config struct {
	FuzzyMinRatio        float64
	KeywordMinScore      float64
	AutoAcceptConfidence float64
	ReviewConfidence     float64
}

func DefaultConfig() Config {
	return Config{
		FuzzyMinRatio:        0.8,
		KeywordMinScore:      0.5,
		AutoAcceptConfidence: 0.9,
		ReviewConfidence:     0.7,
	}
}

// Match is the resolution of one line item. Every pointer is nil when the
// item stayed unmatched.
type Match struct {
	CatalogProductID *uuid.UUID
	CategoryID       *uuid.UUID
	SubcategoryID    *uuid.UUID
	Confidence       *float64
	Method           *domain.MatchMethod
	ProductName      string
}

func (m Match) Matched() bool {
	return m.CatalogProductID != nil
}

type Engine struct {
	strategies []Strategy
	cfg        Config
}

func NewEngine(cfg Config) *Engine {
	return NewEngineWithStrategies(cfg,
		ExactStrategy{},
		FuzzyStrategy{MinRatio: cfg.FuzzyMinRatio},
		KeywordStrategy{MinScore: cfg.KeywordMinScore},
	)
}

func NewEngineWithStrategies(cfg Config, strategies ...Strategy) *Engine {
	return &Engine{strategies: strategies, cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Match runs the cascade and returns the first strategy that resolves the item.
func (e *Engine) Match(item Item, catalog *Catalog) Match {
	if catalog.Len() == 0 || Normalize(item.Description) == "" {
		return Match{}
	}
	for _, s := range e.strategies {
		res, ok := s.Attempt(item, catalog)
		if !ok || res.Product == nil {
			continue
		}
		return newMatch(res)
	}
	return Match{}
}

func (e *Engine) MatchAll(items []Item, catalog *Catalog) []Match {
	out := make([]Match, len(items))
	for i, it := range items {
		out[i] = e.Match(it, catalog)
	}
	return out
}

// Band classifies a confidence against the configured cutoffs.
func (e *Engine) Band(confidence float64) domain.ConfidenceBand {
	switch {
	case confidence >= e.cfg.AutoAcceptConfidence:
		return domain.BandAuto
	case confidence >= e.cfg.ReviewConfidence:
		return domain.BandReview
	default:
		return domain.BandWeak
	}
}

func newMatch(res Result) Match {
	p := res.Product
	id := p.ID
	conf := clamp(res.Confidence)
	method := res.Method
	return Match{
		CatalogProductID: &id,
		CategoryID:       copyID(p.CategoryID),
		SubcategoryID:    copyID(p.SubcategoryID),
		Confidence:       &conf,
		Method:           &method,
		ProductName:      p.DisplayName,
	}
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
