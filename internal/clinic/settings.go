package clinic

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/openclinic/clinic-scheduling/internal/corporate"
	"github.com/openclinic/clinic-scheduling/internal/schedule"
)

const (
	defaultSlotStepMinutes = 30
	defaultMaxAdvanceDays  = 60
)

// BookingSettings is the normalized per-tenant scheduling configuration.
// The canonical document also carries fields this core never interprets
// (publicServiceNames, emails, patientCopy); they ride along in Doc so the
// mirror projection can see them.
type BookingSettings struct {
	TenantID          string
	Timezone          string
	SlotStepMinutes   int
	MinNoticeMinutes  int
	MaxAdvanceDays    int
	WeeklyHours       schedule.WeeklyHours
	CorporatePrograms []corporate.Program
	Doc               json.RawMessage
}

// settingsDoc is the canonical wire shape of the settings document.
type settingsDoc struct {
	Timezone          string              `json:"timezone"`
	SlotStepMinutes   int                 `json:"slotStepMinutes"`
	MinNoticeMinutes  int                 `json:"minNoticeMinutes"`
	MaxAdvanceDays    int                 `json:"maxAdvanceDays"`
	CorporatePrograms []corporate.Program `json:"corporatePrograms"`
}

// ParseSettings decodes a canonical settings document, normalizing weekly
// hours through the historical fallback chain and applying defaults for
// absent numeric fields.
func ParseSettings(tenantID string, doc json.RawMessage) (*BookingSettings, error) {
	var d settingsDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("parse settings for %s: %w", tenantID, err)
	}

	s := &BookingSettings{
		TenantID:          tenantID,
		Timezone:          d.Timezone,
		SlotStepMinutes:   d.SlotStepMinutes,
		MinNoticeMinutes:  d.MinNoticeMinutes,
		MaxAdvanceDays:    d.MaxAdvanceDays,
		WeeklyHours:       schedule.NormalizeWeeklyHours(doc),
		CorporatePrograms: d.CorporatePrograms,
		Doc:               doc,
	}

	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
	if s.SlotStepMinutes <= 0 {
		s.SlotStepMinutes = defaultSlotStepMinutes
	}
	if s.MinNoticeMinutes < 0 {
		s.MinNoticeMinutes = 0
	}
	if s.MaxAdvanceDays <= 0 {
		s.MaxAdvanceDays = defaultMaxAdvanceDays
	}

	return s, nil
}

// Gate builds the corporate day-gate for these settings.
func (s *BookingSettings) Gate() *corporate.Gate {
	return corporate.NewGate(s.CorporatePrograms)
}

// Location resolves the clinic timezone, falling back to UTC on an
// unloadable zone name rather than failing the request.
func (s *BookingSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocationFor prefers the practitioner's timezone over the clinic's when
// one is set.
func LocationFor(s *BookingSettings, p *Practitioner) *time.Location {
	if p != nil && p.Timezone != nil && *p.Timezone != "" {
		if loc, err := time.LoadLocation(*p.Timezone); err == nil {
			return loc
		}
	}
	return s.Location()
}
