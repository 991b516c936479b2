package matching

import (
	"sort"

	"mercagasto/domain"
)

type methodAcc struct {
	count    int64
	sum      float64
	min, max float64
}

// Stats accumulates match outcomes for one batch or rematch pass.
type Stats struct {
	engine   *Engine
	total    int64
	matched  int64
	bands    map[domain.ConfidenceBand]int64
	byMethod map[domain.MatchMethod]*methodAcc
}

func NewStats(engine *Engine) *Stats {
	return &Stats{
		engine:   engine,
		bands:    make(map[domain.ConfidenceBand]int64),
		byMethod: make(map[domain.MatchMethod]*methodAcc),
	}
}

func (s *Stats) Add(m Match) {
	s.total++
	if !m.Matched() || m.Confidence == nil || m.Method == nil {
		return
	}
	conf := *m.Confidence
	band := s.engine.Band(conf)
	s.bands[band]++
	if band != domain.BandWeak {
		s.matched++
	}

	acc, ok := s.byMethod[*m.Method]
	if !ok {
		acc = &methodAcc{min: conf, max: conf}
		s.byMethod[*m.Method] = acc
	}
	acc.count++
	acc.sum += conf
	if conf < acc.min {
		acc.min = conf
	}
	if conf > acc.max {
		acc.max = conf
	}
}

// Summary reports categorized items as those at or above the review cutoff.
func (s *Stats) Summary() domain.MatchingStats {
	out := domain.MatchingStats{
		TotalItems:    s.total,
		Categorized:   s.matched,
		Uncategorized: s.total - s.matched,
		AutoAccepted:  s.bands[domain.BandAuto],
		NeedsReview:   s.bands[domain.BandReview],
		Weak:          s.bands[domain.BandWeak],
	}
	if s.total > 0 {
		out.CoverageRate = float64(s.matched) / float64(s.total)
	}
	for method, acc := range s.byMethod {
		out.ByMethod = append(out.ByMethod, domain.MethodStats{
			Method:        string(method),
			Count:         acc.count,
			AvgConfidence: acc.sum / float64(acc.count),
			MinConfidence: acc.min,
			MaxConfidence: acc.max,
		})
	}
	sort.Slice(out.ByMethod, func(i, j int) bool {
		return out.ByMethod[i].Method < out.ByMethod[j].Method
	})
	return out
}
