package domain

import (
	"strings"
	"time"
)

type SourceSystem string

const (
	SourceNative    SourceSystem = "native"
	SourceOpenTable SourceSystem = "external_opentable"
	SourceResy      SourceSystem = "external_resy"
)

const externalPrefix = "external_"

// IsExternal reports whether the system is an external booking channel.
func (s SourceSystem) IsExternal() bool {
	return strings.HasPrefix(string(s), externalPrefix)
}

func (s SourceSystem) Valid() bool {
	switch s {
	case SourceNative, SourceOpenTable, SourceResy:
		return true
	}
	return false
}

// Source identifies the channel a reservation came through. ExternalID is
// the channel's own id and is unique per (restaurant, system) when present.
type Source struct {
	System     SourceSystem
	ExternalID string
}

type Guest struct {
	DinerID string
	Name    string
	Phone   string
	Email   string
}

// StatusChange is one entry of a reservation's append-only status history.
// Entries are never rewritten or truncated.
type StatusChange struct {
	Status         ReservationStatus
	PreviousStatus ReservationStatus
	ChangedAt      time.Time
	Source         SourceSystem
	Metadata       map[string]any
}

// Reconciliation is written by the external reconciliation collaborator that
// cross-checks the ledger against a channel's own records.
type Reconciliation struct {
	LastReconciledAt   *time.Time
	Status             string
	DivergenceDetected bool
}

// Reservation is the canonical ledger document. StartAt is immutable once
// created; Status moves only through the ledger's status-update operation.
type Reservation struct {
	ID             string
	RestaurantID   string
	StartAt        time.Time
	PartySize      int
	Source         Source
	Guest          Guest
	Status         ReservationStatus
	StatusHistory  []StatusChange
	Reconciliation Reconciliation
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
