package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/availability"
	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/corporate"
	"github.com/openclinic/clinic-scheduling/internal/metrics"
	"github.com/openclinic/clinic-scheduling/internal/mirror"
	"github.com/openclinic/clinic-scheduling/internal/schedule"
)

func listSlotsHandler(resolver *availability.Resolver, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		from, err1 := parseMsParam(q.Get("fromMs"))
		to, err2 := parseMsParam(q.Get("toMs"))
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "invalid_date_range", "fromMs and toMs must be Unix millisecond timestamps")
			return
		}

		params := availability.Params{
			TenantID:         chi.URLParam(r, "tenant"),
			From:             from,
			To:               to,
			TimezoneOverride: q.Get("timezone"),
			Purpose:          q.Get("purpose"),
		}

		if raw := q.Get("practitionerId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitionerId must be a valid UUID")
				return
			}
			params.PractitionerID = id
		}
		if raw := q.Get("serviceId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_service_id", "serviceId must be a valid UUID")
				return
			}
			params.ServiceID = id
		}
		if slug := q.Get("corporateSlug"); slug != "" {
			params.Corporate = &corporate.Context{Slug: slug, Code: q.Get("corporateCode")}
		}

		start := time.Now()
		result, err := resolver.ListSlots(r.Context(), params)
		if err != nil {
			m.ObserveListing("error", time.Since(start).Seconds())
			handleServiceError(w, err)
			return
		}
		m.ObserveListing("ok", time.Since(start).Seconds())

		resp := ListSlotsResponse{
			Slots:                make([]SlotResponse, 0, len(result.Slots)),
			WeeklyHoursEffective: schedule.MarshalWeek(result.WeeklyHoursEffective),
			DayFlags:             result.DayFlags,
			StepMinutes:          result.StepMinutes,
			CorporateContext:     result.CorporateSlug,
		}
		for _, s := range result.Slots {
			resp.Slots = append(resp.Slots, SlotResponse{StartMs: toMs(s.Start), EndMs: toMs(s.End)})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createBookingHandler(svc *booking.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
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
		if req.Patient.FirstName == "" || req.Patient.Email == "" {
			writeError(w, http.StatusBadRequest, "invalid_patient", "patient firstName and email are required")
			return
		}

		params := booking.CreateParams{
			TenantID:       chi.URLParam(r, "tenant"),
			ServiceID:      serviceID,
			PractitionerID: practitionerID,
			StartAt:        fromMs(req.StartMs),
			EndAt:          fromMs(req.EndMs),
			Kind:           booking.KindNew,
			Patient: booking.PatientInfo{
				FirstName: req.Patient.FirstName,
				LastName:  req.Patient.LastName,
				Email:     req.Patient.Email,
				Phone:     req.Patient.Phone,
			},
		}
		if req.CorporateSlug != "" {
			params.Corporate = &corporate.Context{Slug: req.CorporateSlug, Code: req.CorporateCode}
		}

		result, err := svc.Create(r.Context(), params)
		if err != nil {
			m.ObserveMutation("create", "error")
			handleServiceError(w, err)
			return
		}
		m.ObserveMutation("create", "ok")

		writeJSON(w, http.StatusCreated, CreateBookingResponse{
			Appointment:   appointmentResponse(result.Appointment),
			ManageTokenID: result.Token.ID,
			ManageExpires: toMs(result.Token.ExpiresAt),
		})
	}
}

func publicMirrorHandler(sync *mirror.Synchronizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := sync.Get(r.Context(), chi.URLParam(r, "tenant"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)
	}
}

func appointmentResponse(a *booking.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:             a.ID,
		PractitionerID: a.PractitionerID,
		ServiceID:      a.ServiceID,
		StartMs:        toMs(a.StartAt),
		EndMs:          toMs(a.EndAt),
		Kind:           string(a.Kind),
		Status:         string(a.Status),
		Overridden:     a.Override != nil,
	}
	if a.CorporateSlug != nil {
		resp.CorporateSlug = *a.CorporateSlug
	}
	return resp
}

func parseMsParam(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return fromMs(ms), nil
}
