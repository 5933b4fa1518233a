package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/clinic"
	"github.com/openclinic/clinic-scheduling/internal/corporate"
	"github.com/openclinic/clinic-scheduling/internal/schedule"
)

// PurposeOpeningWindows asks for the effective weekly hours and day flags
// without stepping out candidate slots.
const PurposeOpeningWindows = "openingWindows"

var ErrInvalidRange = errors.New("date range end must be after start")

// Slot is a bookable candidate window.
type Slot struct {
	Start time.Time
	End   time.Time
}

type Params struct {
	TenantID         string
	From             time.Time
	To               time.Time
	PractitionerID   uuid.UUID // uuid.Nil when unspecified
	ServiceID        uuid.UUID // uuid.Nil when unspecified
	Corporate        *corporate.Context
	TimezoneOverride string
	Purpose          string
}

type Result struct {
	Slots                []Slot
	DayFlags             map[string]corporate.DayFlag
	WeeklyHoursEffective schedule.WeeklyHours
	StepMinutes          int
	CorporateSlug        string // non-empty when a corporate context authorized
}

// Resolver combines weekly hours, closures, busy blocks, and appointments
// into candidate slots.
type Resolver struct {
	clinics  clinic.Repository
	bookings booking.Repository
	now      func() time.Time
}

func NewResolver(clinics clinic.Repository, bookings booking.Repository) *Resolver {
	return &Resolver{
		clinics:  clinics,
		bookings: bookings,
		now:      time.Now,
	}
}

type span struct {
	start time.Time
	end   time.Time
}

// ListSlots computes the bookable slots for a date range. Reads are
// non-transactional: availability is advisory until a booking transaction
// re-validates at commit time.
func (r *Resolver) ListSlots(ctx context.Context, p Params) (*Result, error) {
	if !p.To.After(p.From) {
		return nil, ErrInvalidRange
	}

	settings, err := r.clinics.GetSettings(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	var pract *clinic.Practitioner
	if p.PractitionerID != uuid.Nil {
		pract, err = r.clinics.GetPractitioner(ctx, p.TenantID, p.PractitionerID)
		if err != nil {
			return nil, err
		}
	}

	effective := settings.WeeklyHours
	if pract != nil && pract.WeeklyHours != nil {
		effective = schedule.Intersect(effective, pract.WeeklyHours)
	}

	loc := r.location(settings, pract, p.TimezoneOverride)
	gate := settings.Gate()
	days := localDays(p.From, p.To, loc)

	result := &Result{
		Slots:                []Slot{},
		DayFlags:             gate.DayFlags(days),
		WeeklyHoursEffective: effective,
		StepMinutes:          settings.SlotStepMinutes,
	}

	// A listing with a corporate claim that does not authorize simply sees
	// no corporate days, same as an anonymous caller.
	program := r.authorizedProgram(gate, p)
	if program != nil {
		result.CorporateSlug = program.Slug
	}

	if p.Purpose == PurposeOpeningWindows {
		return result, nil
	}
	if effective.Empty() {
		// Nothing can ever be open; skip stepping the range entirely.
		return result, nil
	}

	blocking, err := r.loadBlocking(ctx, p)
	if err != nil {
		return nil, err
	}

	r.step(result, settings, effective, loc, days, program, gate, blocking, p)
	return result, nil
}

func (r *Resolver) location(settings *clinic.BookingSettings, pract *clinic.Practitioner, override string) *time.Location {
	if override != "" {
		if loc, err := time.LoadLocation(override); err == nil {
			return loc
		}
	}
	return clinic.LocationFor(settings, pract)
}

func (r *Resolver) authorizedProgram(gate *corporate.Gate, p Params) *corporate.Program {
	if p.Corporate == nil || p.Corporate.Slug == "" {
		return nil
	}
	program, err := gate.Authorize(*p.Corporate)
	if err != nil {
		return nil
	}
	if p.ServiceID != uuid.Nil && !program.AllowsService(p.ServiceID.String()) {
		return nil
	}
	if p.PractitionerID != uuid.Nil && !program.AllowsPractitioner(p.PractitionerID.String()) {
		return nil
	}
	return program
}

// loadBlocking fans out the blocking-source reads. Busy blocks are the
// cheap filter; when a practitioner is requested their booked appointments
// are unioned in as well, appointments being the source of truth.
func (r *Resolver) loadBlocking(ctx context.Context, p Params) ([]span, error) {
	var (
		closures []clinic.Closure
		blocks   []booking.BusyBlock
		appts    []booking.Appointment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		closures, err = r.clinics.ListActiveClosures(gctx, p.TenantID, p.From, p.To)
		return err
	})
	g.Go(func() error {
		var err error
		blocks, err = r.bookings.ListBusyBlocks(gctx, p.TenantID, p.From, p.To)
		return err
	})
	if p.PractitionerID != uuid.Nil {
		g.Go(func() error {
			var err error
			appts, err = r.bookings.ListBookedAppointments(gctx, p.TenantID, p.PractitionerID, p.From, p.To)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load blocking sources: %w", err)
	}

	var spans []span
	for _, c := range closures {
		spans = append(spans, span{start: c.FromAt, end: c.ToAt})
	}
	for _, b := range blocks {
		if b.Blocks(p.PractitionerID) {
			spans = append(spans, span{start: b.StartUTC, end: b.EndUTC})
		}
	}
	for _, a := range appts {
		spans = append(spans, span{start: a.StartAt, end: a.EndAt})
	}
	return spans, nil
}

func (r *Resolver) step(result *Result, settings *clinic.BookingSettings, effective schedule.WeeklyHours, loc *time.Location, days []string, program *corporate.Program, gate *corporate.Gate, blocking []span, p Params) {
	now := r.now()
	notBefore := now.Add(time.Duration(settings.MinNoticeMinutes) * time.Minute)
	notAfter := now.Add(time.Duration(settings.MaxAdvanceDays) * 24 * time.Hour)

	for _, day := range days {
		if program != nil {
			if !program.AllowsDay(day) {
				continue
			}
		} else if gate.CorporateOnly(day) {
			continue
		}

		midnight, err := time.ParseInLocation("2006-01-02", day, loc)
		if err != nil {
			continue
		}

		for _, iv := range effective[schedule.DayKey(midnight.Weekday())] {
			for m := iv.Start; m+settings.SlotStepMinutes <= iv.End; m += settings.SlotStepMinutes {
				start := wallClock(midnight, m, loc)
				end := wallClock(midnight, m+settings.SlotStepMinutes, loc)

				if start.Before(p.From) || end.After(p.To) {
					continue
				}
				if start.Before(notBefore) || start.After(notAfter) {
					continue
				}
				if overlapsAny(blocking, start, end) {
					continue
				}
				result.Slots = append(result.Slots, Slot{Start: start.UTC(), End: end.UTC()})
			}
		}
	}
}

// wallClock pins minute-of-day m to the local wall clock. Adding minutes to
// midnight drifts across a DST transition, and book-time validation reads
// the wall clock.
func wallClock(day time.Time, m int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, loc)
}

func overlapsAny(blocking []span, start, end time.Time) bool {
	for _, b := range blocking {
		if schedule.Overlaps(start, end, b.start, b.end) {
			return true
		}
	}
	return false
}

// localDays lists the YYYY-MM-DD days the [from, to) range touches in loc.
func localDays(from, to time.Time, loc *time.Location) []string {
	var days []string
	last := schedule.DateOf(to.Add(-time.Nanosecond), loc)

	cur := from.In(loc)
	cur = time.Date(cur.Year(), cur.Month(), cur.Day(), 0, 0, 0, 0, loc)
	for {
		day := cur.Format("2006-01-02")
		days = append(days, day)
		if day == last {
			break
		}
		cur = cur.AddDate(0, 0, 1)
		if len(days) > 366 {
			break
		}
	}
	return days
}
