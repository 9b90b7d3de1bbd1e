package domain

import "time"

type SlotTier string

const (
	TierRecommended SlotTier = "recommended"
	TierAvailable   SlotTier = "available"
	TierFlexible    SlotTier = "flexible"
)

// Rank orders tiers for sorting; recommended slots come first.
func (t SlotTier) Rank() int {
	switch t {
	case TierRecommended:
		return 0
	case TierAvailable:
		return 1
	default:
		return 2
	}
}

type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceMed  Confidence = "med"
	ConfidenceLow  Confidence = "low"
)

// Downgrade steps confidence down one level; low stays low.
func (c Confidence) Downgrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMed
	case ConfidenceMed:
		return ConfidenceLow
	}
	return ConfidenceLow
}

// Slot is a derived 15-minute booking window. Slots are produced fresh per
// availability query and never persisted; a slot has no identity beyond its
// start time.
type Slot struct {
	StartAt               time.Time
	EndAt                 time.Time
	Covers                int
	AvailableCovers       int
	LoadPercentage        float64
	UtilizationPercentage float64
	Tier                  SlotTier
	Confidence            Confidence
	MinutesUntil          int
}
