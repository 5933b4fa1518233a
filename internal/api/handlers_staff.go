package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/clinic"
	"github.com/openclinic/clinic-scheduling/internal/metrics"
	"github.com/openclinic/clinic-scheduling/internal/mirror"
)

// requireOverridePermission elevates closure overrides: forcing a booking
// into a closure window needs settings.write on top of the scheduling
// permission that admitted the request.
func requireOverridePermission(w http.ResponseWriter, r *http.Request, auth clinic.Authorizer) bool {
	tenant := chi.URLParam(r, "tenant")
	ok, err := auth.HasPermission(r.Context(), tenant, ActorID(r.Context()), clinic.PermSettingsWrite)
	if err != nil {
		handleServiceError(w, err)
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "permission_denied", "closure override requires "+clinic.PermSettingsWrite)
		return false
	}
	return true
}

func staffCreateAppointmentHandler(svc *booking.Service, auth clinic.Authorizer, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StaffCreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "serviceId must be a valid UUID")
			return
		}
		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitionerId must be a valid UUID")
			return
		}
		if req.ClosureOverride && !requireOverridePermission(w, r, auth) {
			return
		}

		kind := booking.KindAdmin
		if req.Kind != "" {
			kind = booking.Kind(req.Kind)
		}

		result, err := svc.Create(r.Context(), booking.CreateParams{
			TenantID:       chi.URLParam(r, "tenant"),
			ServiceID:      serviceID,
			PractitionerID: practitionerID,
			StartAt:        fromMs(req.StartMs),
			EndAt:          fromMs(req.EndMs),
			Kind:           kind,
			Patient: booking.PatientInfo{
				FirstName: req.Patient.FirstName,
				LastName:  req.Patient.LastName,
				Email:     req.Patient.Email,
				Phone:     req.Patient.Phone,
			},
			Override: req.ClosureOverride,
			ActorID:  ActorID(r.Context()),
		})
		if err != nil {
			m.ObserveMutation("staff_create", "error")
			handleServiceError(w, err)
			return
		}
		m.ObserveMutation("staff_create", "ok")

		writeJSON(w, http.StatusCreated, CreateBookingResponse{
			Appointment:   appointmentResponse(result.Appointment),
			ManageTokenID: result.Token.ID,
			ManageExpires: toMs(result.Token.ExpiresAt),
		})
	}
}

func staffRescheduleHandler(svc *booking.Service, auth clinic.Authorizer, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentIDParam(w, r)
		if !ok {
			return
		}

		var req StaffRescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.ClosureOverride && !requireOverridePermission(w, r, auth) {
			return
		}

		appt, err := svc.Reschedule(r.Context(), booking.RescheduleParams{
			TenantID:      chi.URLParam(r, "tenant"),
			AppointmentID: id,
			StartAt:       fromMs(req.NewStartMs),
			EndAt:         fromMs(req.NewEndMs),
			Override:      req.ClosureOverride,
			ActorID:       ActorID(r.Context()),
		})
		if err != nil {
			m.ObserveMutation("staff_reschedule", "error")
			handleServiceError(w, err)
			return
		}
		m.ObserveMutation("staff_reschedule", "ok")

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func staffUpdateStatusHandler(svc *booking.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentIDParam(w, r)
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.SetStatus(r.Context(), chi.URLParam(r, "tenant"), id, booking.Status(req.Status))
		if err != nil {
			m.ObserveMutation("set_status", "error")
			handleServiceError(w, err)
			return
		}
		m.ObserveMutation("set_status", "ok")

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func staffUpdateDetailsHandler(svc *booking.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentIDParam(w, r)
		if !ok {
			return
		}

		var req UpdateDetailsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "serviceId must be a valid UUID")
			return
		}

		appt, err := svc.UpdateDetails(r.Context(), chi.URLParam(r, "tenant"), id, serviceID, booking.Kind(req.Kind))
		if err != nil {
			m.ObserveMutation("update_details", "error")
			handleServiceError(w, err)
			return
		}
		m.ObserveMutation("update_details", "ok")

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func staffDeleteAppointmentHandler(svc *booking.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "tenant"), id); err != nil {
			m.ObserveMutation("delete", "error")
			handleServiceError(w, err)
			return
		}
		m.ObserveMutation("delete", "ok")
		w.WriteHeader(http.StatusNoContent)
	}
}

func createClosureHandler(clinics clinic.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateClosureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.ToMs <= req.FromMs {
			writeError(w, http.StatusBadRequest, "invalid_range", "toMs must be after fromMs")
			return
		}

		c, err := clinics.CreateClosure(r.Context(), chi.URLParam(r, "tenant"), fromMs(req.FromMs), fromMs(req.ToMs))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, ClosureResponse{
			ID:     c.ID,
			FromMs: toMs(c.FromAt),
			ToMs:   toMs(c.ToAt),
			Active: c.Active,
		})
	}
}

func setClosureActiveHandler(clinics clinic.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_closure_id", "id must be a valid UUID")
			return
		}

		var req SetClosureActiveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := clinics.SetClosureActive(r.Context(), chi.URLParam(r, "tenant"), id, req.Active); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// putSettingsHandler replaces the canonical settings document and
// reactively rebuilds the public mirror.
func putSettingsHandler(clinics clinic.Repository, sync *mirror.Synchronizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not read body")
			return
		}
		if !json.Valid(body) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "settings document must be JSON")
			return
		}

		tenant := chi.URLParam(r, "tenant")
		if _, err := clinic.ParseSettings(tenant, body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_settings", "settings document does not match the canonical shape")
			return
		}

		if err := clinics.PutSettings(r.Context(), tenant, body); err != nil {
			handleServiceError(w, err)
			return
		}
		if _, err := sync.Rebuild(r.Context(), tenant); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func appointmentIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
