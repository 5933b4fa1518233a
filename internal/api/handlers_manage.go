package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/metrics"
)

func manageContextHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, tokenID, ok := manageParams(w, r)
		if !ok {
			return
		}

		mc, err := svc.ResolveToken(r.Context(), tenant, tokenID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ManageContextResponse{
			Appointment:      appointmentResponse(mc.Appointment),
			PatientFirstName: mc.Patient.FirstName,
			ExpiresMs:        toMs(mc.Token.ExpiresAt),
		})
	}
}

func cancelByTokenHandler(svc *booking.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, tokenID, ok := manageParams(w, r)
		if !ok {
			return
		}

		appt, err := svc.CancelByToken(r.Context(), tenant, tokenID)
		if err != nil {
			m.ObserveMutation("cancel", "error")
			handleServiceError(w, err)
			return
		}
		m.ObserveMutation("cancel", "ok")

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func rescheduleByTokenHandler(svc *booking.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, tokenID, ok := manageParams(w, r)
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.RescheduleByToken(r.Context(), tenant, tokenID, fromMs(req.NewStartMs), fromMs(req.NewEndMs))
		if err != nil {
			m.ObserveMutation("reschedule", "error")
			handleServiceError(w, err)
			return
		}
		m.ObserveMutation("reschedule", "ok")

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func manageParams(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	tokenID, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_token", "token must be a valid UUID")
		return "", uuid.Nil, false
	}
	return chi.URLParam(r, "tenant"), tokenID, true
}
