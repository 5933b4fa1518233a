package mirror

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/clinic"
)

const settingsDoc = `{
	"timezone": "Europe/London",
	"slotStepMinutes": 30,
	"minNoticeMinutes": 120,
	"maxAdvanceDays": 60,
	"weeklyHours": {"mon": [{"start":"09:00","end":"17:00"}]},
	"corporatePrograms": [
		{"slug": "acme", "mode": "CODE_UNLOCK", "code": "HUSH", "allowedDays": ["2026-09-14"]}
	],
	"publicServiceNames": {"svc": "Consultation"},
	"contact": {"phone": "020 7946 0000"},
	"patientCopy": {"welcome": "Hello"},
	"emails": {"admin": "admin@clinic.example"}
}`

func projectFixture(t *testing.T) (*Document, []clinic.Practitioner, []clinic.Membership) {
	t.Helper()
	settings, err := clinic.ParseSettings("t1", []byte(settingsDoc))
	if err != nil {
		t.Fatalf("parse settings: %v", err)
	}

	services := []clinic.Service{
		{ID: uuid.New(), Name: "Consult", DurationMinutes: 30, Public: true, Active: true},
		{ID: uuid.New(), Name: "Internal", DurationMinutes: 30, Public: false, Active: true},
		{ID: uuid.New(), Name: "Retired", DurationMinutes: 30, Public: true, Active: false},
	}
	suspendedID := uuid.New()
	practitioners := []clinic.Practitioner{
		{ID: uuid.New(), Name: "Dr. Visible", Active: true},
		{ID: suspendedID, Name: "Dr. Suspended", Active: true},
		{ID: uuid.New(), Name: "Dr. Inactive", Active: false},
	}
	memberships := []clinic.Membership{
		{MemberID: suspendedID, Status: clinic.MemberSuspended},
	}

	return Project(settings, services, practitioners, memberships), practitioners, memberships
}

func TestProject_FiltersPrivateEntities(t *testing.T) {
	doc, _, _ := projectFixture(t)

	if len(doc.Services) != 1 || doc.Services[0].Name != "Consult" {
		t.Errorf("services = %+v, want only the active public one", doc.Services)
	}
	if len(doc.Practitioners) != 1 || doc.Practitioners[0].Name != "Dr. Visible" {
		t.Errorf("practitioners = %+v, want only active non-suspended", doc.Practitioners)
	}
}

func TestProject_WeeklyHoursAlwaysSevenKeys(t *testing.T) {
	doc, _, _ := projectFixture(t)
	if len(doc.WeeklyHours) != 7 {
		t.Fatalf("weeklyHours has %d keys, want 7", len(doc.WeeklyHours))
	}
	for _, key := range []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"} {
		if doc.WeeklyHours[key] == nil {
			t.Errorf("weeklyHours[%q] is nil", key)
		}
	}
}

func TestProject_NeverLeaksPrivateFields(t *testing.T) {
	doc, _, _ := projectFixture(t)
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	if strings.Contains(out, "emails") || strings.Contains(out, "admin@clinic.example") {
		t.Errorf("mirror leaked the private emails block: %s", out)
	}
	if strings.Contains(out, "HUSH") {
		t.Errorf("mirror leaked a corporate unlock code: %s", out)
	}
	// Corporate days themselves are public metadata.
	if doc.CorporateDays["2026-09-14"] == nil {
		t.Error("corporate day partition missing from mirror")
	}
	if !strings.Contains(out, "020 7946 0000") {
		t.Error("public contact block should pass through")
	}
}

func TestProject_Deterministic(t *testing.T) {
	a, _, _ := projectFixture(t)

	settings, err := clinic.ParseSettings("t1", []byte(settingsDoc))
	if err != nil {
		t.Fatal(err)
	}
	b := Project(settings, nil, nil, nil)

	rawA, _ := json.Marshal(a.WeeklyHours)
	rawB, _ := json.Marshal(b.WeeklyHours)
	if string(rawA) != string(rawB) {
		t.Errorf("projection of identical settings diverged:\n%s\n%s", rawA, rawB)
	}
}

func TestStale(t *testing.T) {
	if Stale([]byte(`{"weeklyHours": {"mon": []}}`)) {
		t.Error("document with weeklyHours is not stale")
	}
	if !Stale([]byte(`{"timezone": "UTC"}`)) {
		t.Error("document missing weeklyHours is stale")
	}
	if !Stale([]byte(`garbage`)) {
		t.Error("unparseable document is stale")
	}
}
