package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/openclinic/clinic-scheduling/internal/availability"
	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/clinic"
	"github.com/openclinic/clinic-scheduling/internal/corporate"
	redisclient "github.com/openclinic/clinic-scheduling/internal/redis"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleServiceError maps domain sentinels onto the wire taxonomy: bad
// input 400, missing things 404, failed preconditions 409, authorization
// 403, admission control 429, everything else a detail-free 500.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidWindow),
		errors.Is(err, availability.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())

	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrTokenNotFound),
		errors.Is(err, booking.ErrTokenExpired):
		// Expired and unknown tokens are indistinguishable to callers.
		writeError(w, http.StatusNotFound, "manage_token_not_found", "manage token not found")
	case errors.Is(err, clinic.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, clinic.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, clinic.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, clinic.ErrClosureNotFound):
		writeError(w, http.StatusNotFound, "closure_not_found", err.Error())

	case errors.Is(err, clinic.ErrSettingsNotFound):
		writeError(w, http.StatusConflict, "settings_not_configured", err.Error())
	case errors.Is(err, booking.ErrTooSoon),
		errors.Is(err, booking.ErrTooFarAhead),
		errors.Is(err, booking.ErrOutsideOpeningHours),
		errors.Is(err, booking.ErrClinicClosed),
		errors.Is(err, booking.ErrOverlap),
		errors.Is(err, booking.ErrNotBooked),
		errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "failed_precondition", err.Error())
	case errors.Is(err, corporate.ErrCodeRequired),
		errors.Is(err, corporate.ErrCodeMismatch),
		errors.Is(err, corporate.ErrUnknownProgram):
		writeError(w, http.StatusConflict, "corporate_access_denied", err.Error())
	case errors.Is(err, corporate.ErrDayNotAllowed):
		writeError(w, http.StatusForbidden, "corporate_day_denied", err.Error())

	case errors.Is(err, booking.ErrBookingContended),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "booking_contended", "booking is being mutated concurrently, please retry shortly")

	case errors.Is(err, redisclient.ErrLimitExceeded):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")

	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
