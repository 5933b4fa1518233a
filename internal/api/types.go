package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/corporate"
	"github.com/openclinic/clinic-scheduling/internal/schedule"
)

// Public wire timestamps are Unix milliseconds.

type SlotResponse struct {
	StartMs int64 `json:"startMs"`
	EndMs   int64 `json:"endMs"`
}

type ListSlotsResponse struct {
	Slots                []SlotResponse                    `json:"slots"`
	WeeklyHoursEffective map[string][]schedule.RawInterval `json:"weeklyHoursEffective"`
	DayFlags             map[string]corporate.DayFlag      `json:"dayFlags"`
	StepMinutes          int                               `json:"stepMinutes"`
	CorporateContext     string                            `json:"corporateContext,omitempty"`
}

type PatientRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
}

type CreateBookingRequest struct {
	ServiceID      string         `json:"serviceId"`
	PractitionerID string         `json:"practitionerId"`
	StartMs        int64          `json:"startMs"`
	EndMs          int64          `json:"endMs"`
	Patient        PatientRequest `json:"patient"`
	CorporateSlug  string         `json:"corporateSlug,omitempty"`
	CorporateCode  string         `json:"corporateCode,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	PractitionerID uuid.UUID `json:"practitionerId"`
	ServiceID      uuid.UUID `json:"serviceId"`
	StartMs        int64     `json:"startMs"`
	EndMs          int64     `json:"endMs"`
	Kind           string    `json:"kind"`
	Status         string    `json:"status"`
	CorporateSlug  string    `json:"corporateSlug,omitempty"`
	Overridden     bool      `json:"overridden,omitempty"`
}

type CreateBookingResponse struct {
	Appointment   AppointmentResponse `json:"appointment"`
	ManageTokenID uuid.UUID           `json:"manageTokenId"`
	ManageExpires int64               `json:"manageExpiresMs"`
}

type ManageContextResponse struct {
	Appointment      AppointmentResponse `json:"appointment"`
	PatientFirstName string              `json:"patientFirstName"`
	ExpiresMs        int64               `json:"expiresMs"`
}

type RescheduleRequest struct {
	NewStartMs int64 `json:"newStartMs"`
	NewEndMs   int64 `json:"newEndMs"`
}

type StaffCreateAppointmentRequest struct {
	ServiceID       string         `json:"serviceId"`
	PractitionerID  string         `json:"practitionerId"`
	StartMs         int64          `json:"startMs"`
	EndMs           int64          `json:"endMs"`
	Kind            string         `json:"kind,omitempty"`
	Patient         PatientRequest `json:"patient"`
	ClosureOverride bool           `json:"closureOverride,omitempty"`
}

type StaffRescheduleRequest struct {
	NewStartMs      int64 `json:"newStartMs"`
	NewEndMs        int64 `json:"newEndMs"`
	ClosureOverride bool  `json:"closureOverride,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateDetailsRequest struct {
	ServiceID string `json:"serviceId"`
	Kind      string `json:"kind"`
}

type CreateClosureRequest struct {
	FromMs int64 `json:"fromMs"`
	ToMs   int64 `json:"toMs"`
}

type SetClosureActiveRequest struct {
	Active bool `json:"active"`
}

type ClosureResponse struct {
	ID     uuid.UUID `json:"id"`
	FromMs int64     `json:"fromMs"`
	ToMs   int64     `json:"toMs"`
	Active bool      `json:"active"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toMs(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMs(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
