package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/clinic"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTokenNotFound       = errors.New("manage token not found")
	ErrBusyBlockNotFound   = errors.New("busy block not found")
)

// Repository contains all DB interactions needed by the booking engine and
// the availability resolver.
type Repository interface {
	GetAppointment(ctx context.Context, tenantID string, id uuid.UUID) (*Appointment, error)
	// ListBookedAppointments returns booked appointments for one
	// practitioner overlapping [from, to).
	ListBookedAppointments(ctx context.Context, tenantID string, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error)
	// ListBusyBlocks returns booked-status busy blocks of any scope
	// overlapping [from, to).
	ListBusyBlocks(ctx context.Context, tenantID string, from, to time.Time) ([]BusyBlock, error)

	GetManageToken(ctx context.Context, tenantID string, id uuid.UUID) (*ManageToken, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	InsertEvent(ctx context.Context, ev EventLog) error

	// InTx runs fn inside one transaction; a returned error rolls back
	// every write made through the TxRepository.
	InTx(ctx context.Context, fn func(tx TxRepository) error) error
}

// TxRepository is the slice of the store visible inside a booking
// transaction. Re-validation reads and the final writes all go through the
// same snapshot.
type TxRepository interface {
	ListActiveClosures(ctx context.Context, tenantID string, from, to time.Time) ([]clinic.Closure, error)
	// ListOverlappingBooked returns booked appointments for the
	// practitioner overlapping [from, to), excluding excludeID when
	// non-nil (the appointment being moved).
	ListOverlappingBooked(ctx context.Context, tenantID string, practitionerID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]Appointment, error)

	InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	UpdateAppointmentWindow(ctx context.Context, tenantID string, id uuid.UUID, start, end time.Time, override *OverrideMarker) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, tenantID string, id uuid.UUID, from, to Status) (*Appointment, error)
	UpdateAppointmentDetails(ctx context.Context, tenantID string, id uuid.UUID, serviceID uuid.UUID, kind Kind) (*Appointment, error)
	DeleteAppointment(ctx context.Context, tenantID string, id uuid.UUID) error

	InsertBusyBlock(ctx context.Context, b *BusyBlock) error
	UpdateBusyBlockWindow(ctx context.Context, tenantID string, appointmentID uuid.UUID, start, end time.Time) error
	UpdateBusyBlockStatus(ctx context.Context, tenantID string, appointmentID uuid.UUID, status Status) error
	DeleteBusyBlock(ctx context.Context, tenantID string, appointmentID uuid.UUID) error

	InsertManageToken(ctx context.Context, t *ManageToken) error
	DeleteTokensForAppointment(ctx context.Context, tenantID string, appointmentID uuid.UUID) error
}
