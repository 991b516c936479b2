package domain

import (
	"errors"
)

type MatchMethod string

const (
	MethodExact   MatchMethod = "exact"
	MethodFuzzy   MatchMethod = "fuzzy"
	MethodKeyword MatchMethod = "keyword"
	MethodPrice   MatchMethod = "price"
)

type ConfidenceBand string

const (
	BandAuto   ConfidenceBand = "auto"
	BandReview ConfidenceBand = "review"
	BandWeak   ConfidenceBand = "weak"
)

var (
	MessageSuccessGetMatchingStats = "matching statistics retrieved successfully"
	MessageSuccessRematch          = "rematch finished"
	MessageFailedGetMatchingStats  = "failed to retrieve matching statistics"
	MessageFailedRematch           = "failed to rematch line items"

	ErrEmptyCatalog = errors.New("catalog snapshot is empty")
)

type (
	MethodStats struct {
		Method        string  `json:"method"`
		Count         int64   `json:"count"`
		AvgConfidence float64 `json:"avg_confidence"`
		MinConfidence float64 `json:"min_confidence"`
		MaxConfidence float64 `json:"max_confidence"`
	}

	MatchingStats struct {
		TotalItems    int64         `json:"total_items"`
		Categorized   int64         `json:"categorized"`
		Uncategorized int64         `json:"uncategorized"`
		CoverageRate  float64       `json:"coverage_rate"`
		AutoAccepted  int64         `json:"auto_accepted"`
		NeedsReview   int64         `json:"needs_review"`
		Weak          int64         `json:"weak"`
		ByMethod      []MethodStats `json:"by_method"`
	}

	RematchSummary struct {
		Examined  int `json:"examined"`
		Improved  int `json:"improved"`
		Unchanged int `json:"unchanged"`
		// Matches summarizes what the engine produced for the examined items.
		Matches MatchingStats `json:"matches"`
	}
)
