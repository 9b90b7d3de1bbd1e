package domain

type ReservationStatus string

const (
	StatusBooked    ReservationStatus = "booked"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCheckedIn ReservationStatus = "checked_in"
	StatusSeated    ReservationStatus = "seated"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusNoShow    ReservationStatus = "no_show"
)

// statusRank orders the happy path booked → confirmed → checked_in →
// seated → completed. Transitions must move forward; skips are allowed.
var statusRank = map[ReservationStatus]int{
	StatusBooked:    0,
	StatusConfirmed: 1,
	StatusCheckedIn: 2,
	StatusSeated:    3,
	StatusCompleted: 4,
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusBooked, StatusConfirmed, StatusCheckedIn, StatusSeated,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Cancelled and no_show are reachable from any non-terminal state; the
// happy path is monotonic and never moves backward.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled || next == StatusNoShow {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// ActiveStatuses are the states that still occupy seats; the availability
// engine counts only these toward slot load.
func ActiveStatuses() []ReservationStatus {
	return []ReservationStatus{StatusBooked, StatusConfirmed, StatusCheckedIn, StatusSeated}
}
