package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/clinic"
)

// BookingNotifier composes patient-facing booking emails. It satisfies
// booking.Notifier; every method is best-effort from the engine's point of
// view.
type BookingNotifier struct {
	sender        EmailSender
	manageBaseURL string
}

func NewBookingNotifier(sender EmailSender, manageBaseURL string) *BookingNotifier {
	if sender == nil {
		sender = NoopSender{}
	}
	return &BookingNotifier{sender: sender, manageBaseURL: manageBaseURL}
}

func (n *BookingNotifier) BookingCreated(ctx context.Context, a *booking.Appointment, p *clinic.Patient, t *booking.ManageToken) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment is booked for %s.\n\nManage your booking (cancel or reschedule) until %s:\n%s/%s/manage/%s\n",
		p.FirstName,
		a.StartAt.Format(time.RFC1123),
		t.ExpiresAt.Format("2 Jan 2006"),
		n.manageBaseURL,
		a.TenantID,
		t.ID,
	)
	return n.sender.Send(ctx, EmailMessage{
		To:      p.Email,
		ToName:  p.FirstName + " " + p.LastName,
		Subject: "Your appointment is confirmed",
		Body:    body,
	})
}

func (n *BookingNotifier) BookingCancelled(ctx context.Context, a *booking.Appointment, p *clinic.Patient) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment on %s has been cancelled.\n",
		p.FirstName,
		a.StartAt.Format(time.RFC1123),
	)
	return n.sender.Send(ctx, EmailMessage{
		To:      p.Email,
		ToName:  p.FirstName + " " + p.LastName,
		Subject: "Your appointment was cancelled",
		Body:    body,
	})
}

func (n *BookingNotifier) BookingRescheduled(ctx context.Context, a *booking.Appointment, p *clinic.Patient) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment has been moved to %s.\n",
		p.FirstName,
		a.StartAt.Format(time.RFC1123),
	)
	return n.sender.Send(ctx, EmailMessage{
		To:      p.Email,
		ToName:  p.FirstName + " " + p.LastName,
		Subject: "Your appointment was rescheduled",
		Body:    body,
	})
}
