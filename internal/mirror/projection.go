package mirror

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/clinic"
	"github.com/openclinic/clinic-scheduling/internal/schedule"
)

// Document is the public mirror shape: the canonical settings minus private
// fields, plus derived services/practitioners/corporate metadata. Weekly
// hours always carry all seven weekday keys.
type Document struct {
	Timezone           string                              `json:"timezone"`
	BookingRules       BookingRules                        `json:"bookingRules"`
	WeeklyHours        map[string][]schedule.RawInterval   `json:"weeklyHours"`
	Services           []PublicService                     `json:"services"`
	Practitioners      []PublicPractitioner                `json:"practitioners"`
	CorporateDays      map[string][]string                 `json:"corporateDays"`
	PublicServiceNames map[string]string                   `json:"publicServiceNames,omitempty"`
	Contact            map[string]string                   `json:"contact,omitempty"`
	PatientCopy        map[string]string                   `json:"patientCopy,omitempty"`
}

type BookingRules struct {
	SlotStepMinutes  int `json:"slotStepMinutes"`
	MinNoticeMinutes int `json:"minNoticeMinutes"`
	MaxAdvanceDays   int `json:"maxAdvanceDays"`
}

type PublicService struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"durationMinutes"`
}

type PublicPractitioner struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// passthrough is the slice of the raw settings document that survives into
// the mirror untouched. The private emails block is deliberately absent.
type passthrough struct {
	PublicServiceNames map[string]string `json:"publicServiceNames"`
	Contact            map[string]string `json:"contact"`
	PatientCopy        map[string]string `json:"patientCopy"`
}

// Project derives a public mirror document. Pure: identical inputs yield
// identical output, including the weekly-hours key set.
func Project(settings *clinic.BookingSettings, services []clinic.Service, practitioners []clinic.Practitioner, memberships []clinic.Membership) *Document {
	doc := &Document{
		Timezone: settings.Timezone,
		BookingRules: BookingRules{
			SlotStepMinutes:  settings.SlotStepMinutes,
			MinNoticeMinutes: settings.MinNoticeMinutes,
			MaxAdvanceDays:   settings.MaxAdvanceDays,
		},
		WeeklyHours:   schedule.MarshalWeek(settings.WeeklyHours),
		Services:      []PublicService{},
		Practitioners: []PublicPractitioner{},
		CorporateDays: map[string][]string{},
	}

	var pt passthrough
	if len(settings.Doc) > 0 {
		_ = json.Unmarshal(settings.Doc, &pt)
	}
	doc.PublicServiceNames = pt.PublicServiceNames
	doc.Contact = pt.Contact
	doc.PatientCopy = pt.PatientCopy

	for _, s := range services {
		if !s.Active || !s.Public {
			continue
		}
		doc.Services = append(doc.Services, PublicService{
			ID:              s.ID,
			Name:            s.Name,
			DurationMinutes: s.DurationMinutes,
		})
	}

	suspended := make(map[uuid.UUID]bool, len(memberships))
	for _, m := range memberships {
		if m.Status == clinic.MemberSuspended {
			suspended[m.MemberID] = true
		}
	}
	for _, p := range practitioners {
		if !p.Active || suspended[p.ID] {
			continue
		}
		doc.Practitioners = append(doc.Practitioners, PublicPractitioner{ID: p.ID, Name: p.Name})
	}

	for _, program := range settings.CorporatePrograms {
		for _, day := range program.AllowedDays {
			doc.CorporateDays[day] = append(doc.CorporateDays[day], program.Slug)
		}
	}

	return doc
}
