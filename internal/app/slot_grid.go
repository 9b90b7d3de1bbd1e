package app

import (
	"sort"
	"time"

	"github.com/coverbook/coverbook/internal/domain"
)

const slotWidth = 15 * time.Minute

// slotAccumulator is one cell of the day's grid: a fixed, ordered array of
// these is built per query and indexed by position, so the reservation
// overlay is a bounded double loop with no map lookups.
type slotAccumulator struct {
	start  time.Time
	end    time.Time
	covers int
}

// buildSlotGrid generates 15-minute slots from the opening time up to
// closeTime − avgDining inclusive, so the last slot still fits a full
// dining duration before closing. Unparseable hours yield an empty grid.
func buildSlotGrid(date time.Time, hours domain.ServiceHours, avgDining time.Duration) []slotAccumulator {
	open, close, ok := hours.Window(date)
	if !ok {
		return nil
	}
	last := close.Add(-avgDining)

	var grid []slotAccumulator
	for start := open; !start.After(last); start = start.Add(slotWidth) {
		grid = append(grid, slotAccumulator{start: start, end: start.Add(slotWidth)})
	}
	return grid
}

// overlayReservations adds each reservation's party size to every grid slot
// its occupancy interval [startAt, startAt+avgDining) intersects, whether
// the party arrives during the slot or is still at the table from earlier.
func overlayReservations(grid []slotAccumulator, reservations []domain.Reservation, avgDining time.Duration) {
	for _, res := range reservations {
		occupiedUntil := res.StartAt.Add(avgDining)
		for i := range grid {
			if res.StartAt.Before(grid[i].end) && grid[i].start.Before(occupiedUntil) {
				grid[i].covers += res.PartySize
			}
		}
	}
}

// scoreSlots converts accumulated covers into tiered slots. Slots with no
// remaining covers are dropped, never returned. The capacity cap models
// covers turning over across the dining duration: it is how many covers a
// single 15-minute window may absorb, not the total seat count.
func scoreSlots(grid []slotAccumulator, cap, totalSeats int, now time.Time) []domain.Slot {
	slots := make([]domain.Slot, 0, len(grid))
	for _, cell := range grid {
		available := cap - cell.covers
		if available <= 0 {
			continue
		}

		loadPct := float64(cell.covers) / float64(cap) * 100
		utilizationPct := float64(cell.covers) / float64(totalSeats) * 100
		minutesUntil := int(cell.start.Sub(now) / time.Minute)

		tier, confidence := classifySlot(available, cap, loadPct, minutesUntil, cell.start.Hour())

		slots = append(slots, domain.Slot{
			StartAt:               cell.start,
			EndAt:                 cell.end,
			Covers:                cell.covers,
			AvailableCovers:       available,
			LoadPercentage:        loadPct,
			UtilizationPercentage: utilizationPct,
			Tier:                  tier,
			Confidence:            confidence,
			MinutesUntil:          minutesUntil,
		})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Tier.Rank() != slots[j].Tier.Rank() {
			return slots[i].Tier.Rank() < slots[j].Tier.Rank()
		}
		return slots[i].StartAt.Before(slots[j].StartAt)
	})
	return slots
}

// classifySlot assigns tier and base confidence, then applies the two
// downgrades in order: same-day lead time first, then early/late hour
// (which only touches high). Each rule fires at most once.
func classifySlot(available, cap int, loadPct float64, minutesUntil, startHour int) (domain.SlotTier, domain.Confidence) {
	var tier domain.SlotTier
	var confidence domain.Confidence

	switch {
	case float64(available) >= float64(cap)*0.5 && loadPct < 50:
		tier = domain.TierRecommended
		confidence = domain.ConfidenceHigh
	case float64(available) >= float64(cap)*0.3 && loadPct < 70:
		tier = domain.TierAvailable
		if minutesUntil > 120 {
			confidence = domain.ConfidenceHigh
		} else {
			confidence = domain.ConfidenceMed
		}
	default:
		tier = domain.TierFlexible
		if minutesUntil > 60 {
			confidence = domain.ConfidenceMed
		} else {
			confidence = domain.ConfidenceLow
		}
	}

	if minutesUntil < 120 {
		confidence = confidence.Downgrade()
	}
	if (startHour < 11 || startHour > 21) && confidence == domain.ConfidenceHigh {
		confidence = domain.ConfidenceMed
	}
	return tier, confidence
}
