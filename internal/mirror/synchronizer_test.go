package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/clinic"
)

type fakeClinics struct {
	settings *clinic.BookingSettings
}

func (f *fakeClinics) GetSettings(context.Context, string) (*clinic.BookingSettings, error) {
	if f.settings == nil {
		return nil, clinic.ErrSettingsNotFound
	}
	return f.settings, nil
}

func (f *fakeClinics) PutSettings(context.Context, string, json.RawMessage) error {
	return errors.New("not implemented")
}

func (f *fakeClinics) ListActiveClosures(context.Context, string, time.Time, time.Time) ([]clinic.Closure, error) {
	return nil, nil
}

func (f *fakeClinics) CreateClosure(context.Context, string, time.Time, time.Time) (*clinic.Closure, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClinics) SetClosureActive(context.Context, string, uuid.UUID, bool) error {
	return errors.New("not implemented")
}

func (f *fakeClinics) GetPractitioner(context.Context, string, uuid.UUID) (*clinic.Practitioner, error) {
	return nil, clinic.ErrPractitionerNotFound
}

func (f *fakeClinics) ListActivePractitioners(context.Context, string) ([]clinic.Practitioner, error) {
	return []clinic.Practitioner{{ID: uuid.New(), Name: "Dr. A", Active: true}}, nil
}

func (f *fakeClinics) GetService(context.Context, string, uuid.UUID) (*clinic.Service, error) {
	return nil, clinic.ErrServiceNotFound
}

func (f *fakeClinics) ListActiveServices(context.Context, string) ([]clinic.Service, error) {
	return []clinic.Service{{ID: uuid.New(), Name: "Consult", DurationMinutes: 30, Public: true, Active: true}}, nil
}

func (f *fakeClinics) GetPatient(context.Context, string, uuid.UUID) (*clinic.Patient, error) {
	return nil, clinic.ErrPatientNotFound
}

func (f *fakeClinics) FindPatientByEmail(context.Context, string, string) (*clinic.Patient, error) {
	return nil, clinic.ErrPatientNotFound
}

func (f *fakeClinics) CreatePatient(context.Context, clinic.Patient) (*clinic.Patient, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClinics) GetMembership(context.Context, string, uuid.UUID) (*clinic.Membership, error) {
	return nil, clinic.ErrMembershipNotFound
}

func (f *fakeClinics) ListMemberships(context.Context, string) ([]clinic.Membership, error) {
	return nil, nil
}

type memMirrorStore struct {
	docs map[string]json.RawMessage
	puts int
}

func (s *memMirrorStore) GetMirror(_ context.Context, tenantID string) (json.RawMessage, error) {
	doc, ok := s.docs[tenantID]
	if !ok {
		return nil, ErrMirrorNotFound
	}
	return doc, nil
}

func (s *memMirrorStore) PutMirror(_ context.Context, tenantID string, doc json.RawMessage) error {
	s.docs[tenantID] = doc
	s.puts++
	return nil
}

func newSyncFixture(t *testing.T) (*Synchronizer, *memMirrorStore) {
	t.Helper()
	settings, err := clinic.ParseSettings("t1", []byte(`{
		"timezone": "UTC",
		"weeklyHours": {"mon": [{"start":"09:00","end":"17:00"}]}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	store := &memMirrorStore{docs: map[string]json.RawMessage{}}
	return NewSynchronizer(&fakeClinics{settings: settings}, store), store
}

func TestGet_RebuildsMissingMirror(t *testing.T) {
	sync, store := newSyncFixture(t)

	raw, err := sync.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if store.puts != 1 {
		t.Errorf("puts = %d, want 1 (lazy rebuild must persist)", store.puts)
	}
	if Stale(raw) {
		t.Error("freshly rebuilt mirror must not be stale")
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("mirror is not a valid document: %v", err)
	}
	if len(doc.Services) != 1 || len(doc.Practitioners) != 1 {
		t.Errorf("doc = %+v", doc)
	}
}

func TestGet_RebuildsStaleMirror(t *testing.T) {
	sync, store := newSyncFixture(t)
	// A mirror written before weekly hours existed in the projection.
	store.docs["t1"] = json.RawMessage(`{"timezone": "UTC", "services": []}`)

	raw, err := sync.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if Stale(raw) {
		t.Error("stale mirror must be replaced on read")
	}
	if store.puts != 1 {
		t.Errorf("puts = %d, want 1", store.puts)
	}
}

func TestGet_ServesFreshMirrorWithoutRebuild(t *testing.T) {
	sync, store := newSyncFixture(t)

	if _, err := sync.Rebuild(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := sync.Get(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	if store.puts != 1 {
		t.Errorf("puts = %d, want 1 (fresh mirror must not rebuild)", store.puts)
	}
}

func TestGet_MissingSettingsPropagates(t *testing.T) {
	store := &memMirrorStore{docs: map[string]json.RawMessage{}}
	sync := NewSynchronizer(&fakeClinics{}, store)

	_, err := sync.Get(context.Background(), "t1")
	if !errors.Is(err, clinic.ErrSettingsNotFound) {
		t.Errorf("err = %v, want ErrSettingsNotFound", err)
	}
}
