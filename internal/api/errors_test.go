package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openclinic/clinic-scheduling/internal/availability"
	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/clinic"
	"github.com/openclinic/clinic-scheduling/internal/corporate"
	redisclient "github.com/openclinic/clinic-scheduling/internal/redis"
)

func TestHandleServiceError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{booking.ErrInvalidWindow, http.StatusBadRequest, "invalid_argument"},
		{availability.ErrInvalidRange, http.StatusBadRequest, "invalid_argument"},

		{booking.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{booking.ErrTokenNotFound, http.StatusNotFound, "manage_token_not_found"},
		{booking.ErrTokenExpired, http.StatusNotFound, "manage_token_not_found"},
		{clinic.ErrPractitionerNotFound, http.StatusNotFound, "practitioner_not_found"},
		{clinic.ErrServiceNotFound, http.StatusNotFound, "service_not_found"},

		{clinic.ErrSettingsNotFound, http.StatusConflict, "settings_not_configured"},
		{booking.ErrTooSoon, http.StatusConflict, "failed_precondition"},
		{booking.ErrOutsideOpeningHours, http.StatusConflict, "failed_precondition"},
		{booking.ErrClinicClosed, http.StatusConflict, "failed_precondition"},
		{booking.ErrOverlap, http.StatusConflict, "failed_precondition"},
		{booking.ErrNotBooked, http.StatusConflict, "failed_precondition"},
		{corporate.ErrCodeMismatch, http.StatusConflict, "corporate_access_denied"},
		{corporate.ErrUnknownProgram, http.StatusConflict, "corporate_access_denied"},
		{corporate.ErrDayNotAllowed, http.StatusForbidden, "corporate_day_denied"},
		{booking.ErrBookingContended, http.StatusConflict, "booking_contended"},

		{redisclient.ErrLimitExceeded, http.StatusTooManyRequests, "rate_limited"},

		{errors.New("pg: connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, c := range cases {
		t.Run(c.code+"/"+c.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, fmt.Errorf("handler: %w", c.err))

			if rec.Code != c.status {
				t.Errorf("status = %d, want %d", rec.Code, c.status)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != c.code {
				t.Errorf("code = %q, want %q", body.Error, c.code)
			}
		})
	}
}

func TestHandleServiceError_NeverLeaksInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, errors.New("dial tcp 10.1.2.3:5432: connect refused"))

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Details != "unexpected error" {
		t.Errorf("details = %q, internals must not leak to callers", body.Details)
	}
}

func TestTokenExpiryIndistinguishableFromUnknown(t *testing.T) {
	recA := httptest.NewRecorder()
	recB := httptest.NewRecorder()
	handleServiceError(recA, booking.ErrTokenNotFound)
	handleServiceError(recB, booking.ErrTokenExpired)

	if recA.Code != recB.Code || recA.Body.String() != recB.Body.String() {
		t.Errorf("expired and unknown tokens must produce identical responses:\n%s\n%s",
			recA.Body.String(), recB.Body.String())
	}
}
