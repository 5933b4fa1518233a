package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusBooked    Status = "booked"
	StatusAttended  Status = "attended"
	StatusCancelled Status = "cancelled"
	StatusMissed    Status = "missed"
)

type Kind string

const (
	KindAdmin    Kind = "admin"
	KindNew      Kind = "new"
	KindFollowup Kind = "followup"
)

type BlockScope string

const (
	ScopeClinic       BlockScope = "clinic"
	ScopePractitioner BlockScope = "practitioner"
)

// ManageTokenTTL is how long a booking's manage link stays usable.
const ManageTokenTTL = 7 * 24 * time.Hour

// OverrideMarker records a privileged force-booking into a closure window.
type OverrideMarker struct {
	ActorID    uuid.UUID   `json:"actorId"`
	At         time.Time   `json:"at"`
	ClosureIDs []uuid.UUID `json:"closureIds"`
}

// Appointment is the authoritative booking record. Every state transition
// must also update the matching BusyBlock.
type Appointment struct {
	ID             uuid.UUID
	TenantID       string
	PractitionerID uuid.UUID
	ServiceID      uuid.UUID
	PatientID      uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	Kind           Kind
	Status         Status
	CorporateSlug  *string
	Override       *OverrideMarker
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BusyBlock is the denormalized occupancy marker consulted by public slot
// queries so they never read full appointment documents.
type BusyBlock struct {
	ID             uuid.UUID
	TenantID       string
	AppointmentID  uuid.UUID
	StartUTC       time.Time
	EndUTC         time.Time
	Status         Status
	Scope          BlockScope
	PractitionerID *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectiveScope resolves the block's scope. Old clinic-wide admin blocks
// were written with no scope and no practitioner; they count as
// clinic-scoped.
func (b *BusyBlock) EffectiveScope() BlockScope {
	if b.Scope == ScopePractitioner && b.PractitionerID != nil {
		return ScopePractitioner
	}
	return ScopeClinic
}

// Blocks reports whether the busy block applies to a query for the given
// practitioner (uuid.Nil means no practitioner filter).
func (b *BusyBlock) Blocks(practitionerID uuid.UUID) bool {
	if b.Status != StatusBooked {
		return false
	}
	if b.EffectiveScope() == ScopeClinic {
		return true
	}
	return practitionerID != uuid.Nil && *b.PractitionerID == practitionerID
}

// ManageToken is a clinic-scoped capability letting an unauthenticated
// holder cancel or reschedule one appointment until expiry. It is not
// single-use.
type ManageToken struct {
	ID            uuid.UUID
	TenantID      string
	AppointmentID uuid.UUID
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

func (t *ManageToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// EventLog is an audit record of a booking mutation. Writes are best-effort
// and never fail the mutation.
type EventLog struct {
	ID            int64
	TenantID      string
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
