package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/clinic"
	"github.com/openclinic/clinic-scheduling/internal/corporate"
	redisclient "github.com/openclinic/clinic-scheduling/internal/redis"
	"github.com/openclinic/clinic-scheduling/internal/schedule"
)

const (
	EventBookingCreated     = "BOOKING_CREATED"
	EventBookingCancelled   = "BOOKING_CANCELLED"
	EventBookingRescheduled = "BOOKING_RESCHEDULED"
	EventBookingStatusSet   = "BOOKING_STATUS_SET"
	EventBookingDeleted     = "BOOKING_DELETED"
	EventClosureOverride    = "CLOSURE_OVERRIDE"
)

var (
	ErrInvalidWindow           = errors.New("end must be after start")
	ErrOutsideOpeningHours     = errors.New("time window is outside opening hours")
	ErrTooSoon                 = errors.New("time window is inside the minimum notice period")
	ErrTooFarAhead             = errors.New("time window is beyond the booking horizon")
	ErrClinicClosed            = errors.New("time window overlaps an active closure")
	ErrOverlap                 = errors.New("time window overlaps a booked appointment")
	ErrNotBooked               = errors.New("appointment is not in the booked state")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrTokenExpired            = errors.New("manage token has expired")
	ErrBookingContended        = errors.New("booking is being mutated concurrently, please retry")
)

// Notifier sends patient-facing booking emails. Implementations are
// best-effort; the engine records failures and never rolls back for them.
type Notifier interface {
	BookingCreated(ctx context.Context, a *Appointment, p *clinic.Patient, t *ManageToken) error
	BookingCancelled(ctx context.Context, a *Appointment, p *clinic.Patient) error
	BookingRescheduled(ctx context.Context, a *Appointment, p *clinic.Patient) error
}

// Service is the booking mutation engine. Every mutation runs inside one
// transaction that re-reads the blocking sources and writes the Appointment
// together with its BusyBlock.
type Service struct {
	repo     Repository
	clinics  clinic.Repository
	locker   redisclient.Locker
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, clinics clinic.Repository, locker redisclient.Locker, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		clinics:  clinics,
		locker:   locker,
		notifier: notifier,
		now:      time.Now,
	}
}

// PatientInfo is the public create form's patient section.
type PatientInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
}

type CreateParams struct {
	TenantID       string
	ServiceID      uuid.UUID
	PractitionerID uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	Kind           Kind
	Patient        PatientInfo
	Corporate      *corporate.Context
	// Override force-books into closure windows. Callers must hold the
	// closure-override permission before setting it; the engine records
	// the marker and audit event but does not re-check the permission.
	Override bool
	ActorID  uuid.UUID
}

type CreateResult struct {
	Appointment *Appointment
	Token       *ManageToken
}

// Create books an appointment. Preconditions are validated up front, then
// re-checked inside the transaction under the per-practitioner lock.
func (s *Service) Create(ctx context.Context, p CreateParams) (*CreateResult, error) {
	if !p.EndAt.After(p.StartAt) {
		return nil, ErrInvalidWindow
	}
	if p.Kind == "" {
		p.Kind = KindNew
	}

	settings, err := s.clinics.GetSettings(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	svc, err := s.clinics.GetService(ctx, p.TenantID, p.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, clinic.ErrServiceNotFound
	}

	pract, err := s.clinics.GetPractitioner(ctx, p.TenantID, p.PractitionerID)
	if err != nil {
		return nil, err
	}
	if !pract.Active {
		return nil, clinic.ErrPractitionerNotFound
	}

	loc := clinic.LocationFor(settings, pract)
	if err := s.checkWindow(settings, pract, loc, p.StartAt, p.EndAt); err != nil {
		return nil, err
	}

	corporateSlug, err := s.checkCorporateCreate(settings, loc, p)
	if err != nil {
		return nil, err
	}

	patient, err := s.resolvePatient(ctx, p.TenantID, p.Patient)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:             uuid.New(),
		TenantID:       p.TenantID,
		PractitionerID: p.PractitionerID,
		ServiceID:      p.ServiceID,
		PatientID:      patient.ID,
		StartAt:        p.StartAt.UTC(),
		EndAt:          p.EndAt.UTC(),
		Kind:           p.Kind,
		CorporateSlug:  corporateSlug,
	}

	token := &ManageToken{
		ID:            uuid.New(),
		TenantID:      p.TenantID,
		AppointmentID: appt.ID,
		ExpiresAt:     s.now().Add(ManageTokenTTL),
	}

	var overridden []uuid.UUID
	err = s.locker.WithBookingLock(ctx, p.TenantID, p.PractitionerID, func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(tx TxRepository) error {
			closureIDs, err := s.checkClosures(lockCtx, tx, p.TenantID, appt.StartAt, appt.EndAt, p.Override)
			if err != nil {
				return err
			}
			overridden = closureIDs

			if err := s.checkOverlap(lockCtx, tx, p.TenantID, p.PractitionerID, appt.StartAt, appt.EndAt, nil); err != nil {
				return err
			}

			if len(closureIDs) > 0 {
				appt.Override = &OverrideMarker{ActorID: p.ActorID, At: s.now().UTC(), ClosureIDs: closureIDs}
			}

			created, err := tx.InsertAppointment(lockCtx, appt)
			if err != nil {
				return fmt.Errorf("insert appointment: %w", err)
			}
			appt = created

			practID := appt.PractitionerID
			block := &BusyBlock{
				ID:             uuid.New(),
				TenantID:       p.TenantID,
				AppointmentID:  appt.ID,
				StartUTC:       appt.StartAt,
				EndUTC:         appt.EndAt,
				Status:         StatusBooked,
				Scope:          ScopePractitioner,
				PractitionerID: &practID,
			}
			if err := tx.InsertBusyBlock(lockCtx, block); err != nil {
				return fmt.Errorf("insert busy block: %w", err)
			}

			if err := tx.InsertManageToken(lockCtx, token); err != nil {
				return fmt.Errorf("insert manage token: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingContended
		}
		return nil, err
	}

	s.logEvent(ctx, p.TenantID, appt.ID, EventBookingCreated, map[string]any{
		"practitioner_id": appt.PractitionerID.String(),
		"service_id":      appt.ServiceID.String(),
		"start_at":        appt.StartAt,
		"end_at":          appt.EndAt,
	})
	if len(overridden) > 0 {
		s.logEvent(ctx, p.TenantID, appt.ID, EventClosureOverride, map[string]any{
			"actor_id":    p.ActorID.String(),
			"closure_ids": overridden,
		})
	}

	if s.notifier != nil {
		if err := s.notifier.BookingCreated(ctx, appt, patient, token); err != nil {
			log.Printf("booking %s: confirmation email failed: %v", appt.ID, err)
		}
	}

	return &CreateResult{Appointment: appt, Token: token}, nil
}

type RescheduleParams struct {
	TenantID      string
	AppointmentID uuid.UUID
	StartAt       time.Time
	EndAt         time.Time
	Override      bool
	ActorID       uuid.UUID
}

// Reschedule moves a booked appointment, re-validating the corporate
// authorization carried by the record against the target day and
// re-checking closures and overlap against the new window.
func (s *Service) Reschedule(ctx context.Context, p RescheduleParams) (*Appointment, error) {
	if !p.EndAt.After(p.StartAt) {
		return nil, ErrInvalidWindow
	}

	appt, err := s.repo.GetAppointment(ctx, p.TenantID, p.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusBooked {
		return nil, ErrNotBooked
	}

	settings, err := s.clinics.GetSettings(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	pract, err := s.clinics.GetPractitioner(ctx, p.TenantID, appt.PractitionerID)
	if err != nil {
		return nil, err
	}

	loc := clinic.LocationFor(settings, pract)
	if err := s.checkWindow(settings, pract, loc, p.StartAt, p.EndAt); err != nil {
		return nil, err
	}

	slug := ""
	if appt.CorporateSlug != nil {
		slug = *appt.CorporateSlug
	}
	if err := settings.Gate().CheckDay(slug, schedule.DateOf(p.StartAt, loc)); err != nil {
		return nil, err
	}

	newStart := p.StartAt.UTC()
	newEnd := p.EndAt.UTC()

	var (
		updated    *Appointment
		overridden []uuid.UUID
	)
	err = s.locker.WithBookingLock(ctx, p.TenantID, appt.PractitionerID, func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(tx TxRepository) error {
			closureIDs, err := s.checkClosures(lockCtx, tx, p.TenantID, newStart, newEnd, p.Override)
			if err != nil {
				return err
			}
			overridden = closureIDs

			excl := appt.ID
			if err := s.checkOverlap(lockCtx, tx, p.TenantID, appt.PractitionerID, newStart, newEnd, &excl); err != nil {
				return err
			}

			var marker *OverrideMarker
			if len(closureIDs) > 0 {
				marker = &OverrideMarker{ActorID: p.ActorID, At: s.now().UTC(), ClosureIDs: closureIDs}
			}

			moved, err := tx.UpdateAppointmentWindow(lockCtx, p.TenantID, appt.ID, newStart, newEnd, marker)
			if err != nil {
				return fmt.Errorf("update appointment window: %w", err)
			}
			updated = moved

			if err := tx.UpdateBusyBlockWindow(lockCtx, p.TenantID, appt.ID, newStart, newEnd); err != nil {
				return fmt.Errorf("update busy block window: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingContended
		}
		return nil, err
	}

	s.logEvent(ctx, p.TenantID, appt.ID, EventBookingRescheduled, map[string]any{
		"start_at": newStart,
		"end_at":   newEnd,
	})
	if len(overridden) > 0 {
		s.logEvent(ctx, p.TenantID, appt.ID, EventClosureOverride, map[string]any{
			"actor_id":    p.ActorID.String(),
			"closure_ids": overridden,
		})
	}
	s.notifyRescheduled(ctx, updated)

	return updated, nil
}

// Cancel moves a booked appointment to cancelled and frees its busy block
// within the same transaction.
func (s *Service) Cancel(ctx context.Context, tenantID string, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusBooked {
		return nil, ErrNotBooked
	}

	var cancelled *Appointment
	err = s.repo.InTx(ctx, func(tx TxRepository) error {
		updated, err := tx.UpdateAppointmentStatus(ctx, tenantID, id, StatusBooked, StatusCancelled)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrNotBooked
			}
			return fmt.Errorf("cancel appointment: %w", err)
		}
		cancelled = updated
		if err := tx.UpdateBusyBlockStatus(ctx, tenantID, id, StatusCancelled); err != nil {
			return fmt.Errorf("free busy block: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, tenantID, id, EventBookingCancelled, map[string]any{})
	s.notifyCancelled(ctx, cancelled)
	return cancelled, nil
}

// SetStatus applies a staff status transition. booked is the only
// non-terminal state.
func (s *Service) SetStatus(ctx context.Context, tenantID string, id uuid.UUID, to Status) (*Appointment, error) {
	switch to {
	case StatusAttended, StatusCancelled, StatusMissed:
	default:
		return nil, ErrInvalidStatusTransition
	}

	var updated *Appointment
	err := s.repo.InTx(ctx, func(tx TxRepository) error {
		appt, err := tx.UpdateAppointmentStatus(ctx, tenantID, id, StatusBooked, to)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// Either unknown or already terminal; disambiguate
				// outside the transaction path.
				return err
			}
			return fmt.Errorf("set status: %w", err)
		}
		updated = appt
		if err := tx.UpdateBusyBlockStatus(ctx, tenantID, id, to); err != nil {
			return fmt.Errorf("update busy block status: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			if existing, getErr := s.repo.GetAppointment(ctx, tenantID, id); getErr == nil && existing.Status != StatusBooked {
				return nil, ErrInvalidStatusTransition
			}
		}
		return nil, err
	}

	s.logEvent(ctx, tenantID, id, EventBookingStatusSet, map[string]any{"status": string(to)})
	return updated, nil
}

// UpdateDetails edits service and kind. Administrative edits are allowed
// only while booked.
func (s *Service) UpdateDetails(ctx context.Context, tenantID string, id, serviceID uuid.UUID, kind Kind) (*Appointment, error) {
	svc, err := s.clinics.GetService(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, clinic.ErrServiceNotFound
	}

	var updated *Appointment
	err = s.repo.InTx(ctx, func(tx TxRepository) error {
		appt, err := tx.UpdateAppointmentDetails(ctx, tenantID, id, serviceID, kind)
		if err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			if existing, getErr := s.repo.GetAppointment(ctx, tenantID, id); getErr == nil && existing.Status != StatusBooked {
				return nil, ErrNotBooked
			}
		}
		return nil, err
	}

	s.logEvent(ctx, tenantID, id, EventBookingStatusSet, map[string]any{
		"service_id": serviceID.String(),
		"kind":       string(kind),
	})
	return updated, nil
}

// Delete removes an appointment plus its busy block and tokens.
func (s *Service) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	err := s.repo.InTx(ctx, func(tx TxRepository) error {
		if err := tx.DeleteTokensForAppointment(ctx, tenantID, id); err != nil {
			return err
		}
		if err := tx.DeleteBusyBlock(ctx, tenantID, id); err != nil {
			return err
		}
		return tx.DeleteAppointment(ctx, tenantID, id)
	})
	if err != nil {
		return err
	}
	s.logEvent(ctx, tenantID, id, EventBookingDeleted, map[string]any{})
	return nil
}

// ManageContext is what a manage-token holder may see.
type ManageContext struct {
	Token       *ManageToken
	Appointment *Appointment
	Patient     *clinic.Patient
}

// ResolveToken loads a manage token and its appointment. Expired tokens
// behave like unknown ones.
func (s *Service) ResolveToken(ctx context.Context, tenantID string, tokenID uuid.UUID) (*ManageContext, error) {
	token, err := s.repo.GetManageToken(ctx, tenantID, tokenID)
	if err != nil {
		return nil, err
	}
	if token.Expired(s.now()) {
		return nil, ErrTokenExpired
	}

	appt, err := s.repo.GetAppointment(ctx, tenantID, token.AppointmentID)
	if err != nil {
		return nil, err
	}
	patient, err := s.clinics.GetPatient(ctx, tenantID, appt.PatientID)
	if err != nil {
		return nil, err
	}
	return &ManageContext{Token: token, Appointment: appt, Patient: patient}, nil
}

// CancelByToken cancels the appointment a valid manage token refers to.
func (s *Service) CancelByToken(ctx context.Context, tenantID string, tokenID uuid.UUID) (*Appointment, error) {
	mc, err := s.ResolveToken(ctx, tenantID, tokenID)
	if err != nil {
		return nil, err
	}
	return s.Cancel(ctx, tenantID, mc.Appointment.ID)
}

// RescheduleByToken moves the appointment a valid manage token refers to.
// Token holders never override closures.
func (s *Service) RescheduleByToken(ctx context.Context, tenantID string, tokenID uuid.UUID, start, end time.Time) (*Appointment, error) {
	mc, err := s.ResolveToken(ctx, tenantID, tokenID)
	if err != nil {
		return nil, err
	}
	return s.Reschedule(ctx, RescheduleParams{
		TenantID:      tenantID,
		AppointmentID: mc.Appointment.ID,
		StartAt:       start,
		EndAt:         end,
	})
}

// PurgeExpiredTokens is called periodically by the expiry worker.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return n, nil
}

// Precondition checks

func (s *Service) checkWindow(settings *clinic.BookingSettings, pract *clinic.Practitioner, loc *time.Location, start, end time.Time) error {
	now := s.now()
	if start.Before(now.Add(time.Duration(settings.MinNoticeMinutes) * time.Minute)) {
		return ErrTooSoon
	}
	if start.After(now.Add(time.Duration(settings.MaxAdvanceDays) * 24 * time.Hour)) {
		return ErrTooFarAhead
	}

	effective := settings.WeeklyHours
	if pract.WeeklyHours != nil {
		effective = schedule.Intersect(effective, pract.WeeklyHours)
	}
	if !schedule.WithinHours(effective, loc, start, end) {
		return ErrOutsideOpeningHours
	}
	return nil
}

func (s *Service) checkCorporateCreate(settings *clinic.BookingSettings, loc *time.Location, p CreateParams) (*string, error) {
	gate := settings.Gate()
	day := schedule.DateOf(p.StartAt, loc)

	if p.Corporate == nil || p.Corporate.Slug == "" {
		if gate.CorporateOnly(day) {
			return nil, corporate.ErrDayNotAllowed
		}
		return nil, nil
	}

	program, err := gate.Authorize(*p.Corporate)
	if err != nil {
		return nil, err
	}
	if !program.AllowsDay(day) {
		return nil, corporate.ErrDayNotAllowed
	}
	if !program.AllowsService(p.ServiceID.String()) || !program.AllowsPractitioner(p.PractitionerID.String()) {
		return nil, corporate.ErrDayNotAllowed
	}
	slug := program.Slug
	return &slug, nil
}

// checkClosures rejects windows overlapping active closures unless override
// is set, in which case it returns the overlapped closure ids for the
// override marker.
func (s *Service) checkClosures(ctx context.Context, tx TxRepository, tenantID string, start, end time.Time, override bool) ([]uuid.UUID, error) {
	closures, err := tx.ListActiveClosures(ctx, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("check closures: %w", err)
	}
	if len(closures) == 0 {
		return nil, nil
	}
	if !override {
		return nil, ErrClinicClosed
	}
	ids := make([]uuid.UUID, 0, len(closures))
	for _, c := range closures {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *Service) checkOverlap(ctx context.Context, tx TxRepository, tenantID string, practitionerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) error {
	overlapping, err := tx.ListOverlappingBooked(ctx, tenantID, practitionerID, start, end, excludeID)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if len(overlapping) > 0 {
		return ErrOverlap
	}
	return nil
}

func (s *Service) resolvePatient(ctx context.Context, tenantID string, info PatientInfo) (*clinic.Patient, error) {
	existing, err := s.clinics.FindPatientByEmail(ctx, tenantID, info.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, clinic.ErrPatientNotFound) {
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return s.clinics.CreatePatient(ctx, clinic.Patient{
		TenantID:  tenantID,
		FirstName: info.FirstName,
		LastName:  info.LastName,
		Email:     info.Email,
		Phone:     info.Phone,
	})
}

func (s *Service) notifyCancelled(ctx context.Context, appt *Appointment) {
	if s.notifier == nil || appt == nil {
		return
	}
	patient, err := s.clinics.GetPatient(ctx, appt.TenantID, appt.PatientID)
	if err != nil {
		log.Printf("booking %s: load patient for email: %v", appt.ID, err)
		return
	}
	if err := s.notifier.BookingCancelled(ctx, appt, patient); err != nil {
		log.Printf("booking %s: cancellation email failed: %v", appt.ID, err)
	}
}

func (s *Service) notifyRescheduled(ctx context.Context, appt *Appointment) {
	if s.notifier == nil || appt == nil {
		return
	}
	patient, err := s.clinics.GetPatient(ctx, appt.TenantID, appt.PatientID)
	if err != nil {
		log.Printf("booking %s: load patient for email: %v", appt.ID, err)
		return
	}
	if err := s.notifier.BookingRescheduled(ctx, appt, patient); err != nil {
		log.Printf("booking %s: reschedule email failed: %v", appt.ID, err)
	}
}

func (s *Service) logEvent(ctx context.Context, tenantID string, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		TenantID:      tenantID,
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
