package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openclinic/clinic-scheduling/internal/availability"
	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/clinic"
	"github.com/openclinic/clinic-scheduling/internal/metrics"
)

// stubClinics/stubBookings serve just the reads an anonymous slot listing
// touches; anything else panics through the embedded nil interface.
type stubClinics struct {
	clinic.Repository
	settings *clinic.BookingSettings
}

func (s *stubClinics) GetSettings(context.Context, string) (*clinic.BookingSettings, error) {
	return s.settings, nil
}

func (s *stubClinics) ListActiveClosures(context.Context, string, time.Time, time.Time) ([]clinic.Closure, error) {
	return nil, nil
}

type stubBookings struct {
	booking.Repository
}

func (stubBookings) ListBusyBlocks(context.Context, string, time.Time, time.Time) ([]booking.BusyBlock, error) {
	return nil, nil
}

const slotsSettingsDoc = `{
	"timezone": "UTC",
	"slotStepMinutes": 30,
	"minNoticeMinutes": 0,
	"maxAdvanceDays": 60,
	"weeklyHours": {
		"mon": [{"start":"08:00","end":"12:00"}],
		"tue": [{"start":"08:00","end":"12:00"}],
		"wed": [{"start":"08:00","end":"12:00"}],
		"thu": [{"start":"08:00","end":"12:00"}],
		"fri": [{"start":"08:00","end":"12:00"}],
		"sat": [{"start":"08:00","end":"12:00"}],
		"sun": [{"start":"08:00","end":"12:00"}]
	}
}`

func newSlotsRouter(t *testing.T) http.Handler {
	t.Helper()
	settings, err := clinic.ParseSettings("t1", []byte(slotsSettingsDoc))
	if err != nil {
		t.Fatalf("parse settings: %v", err)
	}
	resolver := availability.NewResolver(&stubClinics{settings: settings}, stubBookings{})
	m := metrics.NewSchedulingMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Get("/v1/{tenant}/public/slots", listSlotsHandler(resolver, m))
	return r
}

func TestListSlotsHandler_ReturnsMillisecondSlots(t *testing.T) {
	router := newSlotsRouter(t)

	day := time.Now().UTC().AddDate(0, 0, 7)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	url := fmt.Sprintf("/v1/t1/public/slots?fromMs=%d&toMs=%d",
		day.UnixMilli(), day.Add(24*time.Hour).UnixMilli())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ListSlotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StepMinutes != 30 {
		t.Errorf("stepMinutes = %d", resp.StepMinutes)
	}
	// 08:00..12:00 at a 30-minute step is eight candidates.
	if len(resp.Slots) != 8 {
		t.Fatalf("slots = %d, want 8", len(resp.Slots))
	}
	first := resp.Slots[0]
	if want := day.Add(8 * time.Hour).UnixMilli(); first.StartMs != want {
		t.Errorf("first startMs = %d, want %d", first.StartMs, want)
	}
	if got := first.EndMs - first.StartMs; got != (30 * time.Minute).Milliseconds() {
		t.Errorf("slot length = %dms", got)
	}
	if len(resp.WeeklyHoursEffective) != 7 {
		t.Errorf("weeklyHoursEffective has %d keys, want 7", len(resp.WeeklyHoursEffective))
	}
}

func TestListSlotsHandler_RejectsBadRange(t *testing.T) {
	router := newSlotsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/t1/public/slots?fromMs=abc&toMs=123", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "invalid_date_range" {
		t.Errorf("code = %q", body.Error)
	}
}
