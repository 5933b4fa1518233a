package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/openclinic/clinic-scheduling/internal/clinic"
)

var ErrMirrorNotFound = errors.New("public mirror not found")

// Store persists mirror documents. Writes are full replacements so stale
// fields never survive a legitimate settings change.
type Store interface {
	GetMirror(ctx context.Context, tenantID string) (json.RawMessage, error)
	PutMirror(ctx context.Context, tenantID string, doc json.RawMessage) error
}

// Synchronizer keeps the public read replica in sync with canonical
// settings: reactively on settings change, lazily when a read finds the
// mirror missing or incomplete.
type Synchronizer struct {
	clinics clinic.Repository
	store   Store
}

func NewSynchronizer(clinics clinic.Repository, store Store) *Synchronizer {
	return &Synchronizer{clinics: clinics, store: store}
}

// Rebuild projects canonical settings into a fresh mirror and persists it.
func (s *Synchronizer) Rebuild(ctx context.Context, tenantID string) (json.RawMessage, error) {
	settings, err := s.clinics.GetSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	services, err := s.clinics.ListActiveServices(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	practitioners, err := s.clinics.ListActivePractitioners(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load practitioners: %w", err)
	}
	memberships, err := s.clinics.ListMemberships(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}

	doc := Project(settings, services, practitioners, memberships)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode mirror: %w", err)
	}

	if err := s.store.PutMirror(ctx, tenantID, raw); err != nil {
		return nil, fmt.Errorf("persist mirror: %w", err)
	}
	return raw, nil
}

// Get returns the current mirror, rebuilding it synchronously when missing
// or stale before answering.
func (s *Synchronizer) Get(ctx context.Context, tenantID string) (json.RawMessage, error) {
	raw, err := s.store.GetMirror(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrMirrorNotFound) {
			return s.Rebuild(ctx, tenantID)
		}
		return nil, err
	}
	if Stale(raw) {
		log.Printf("mirror for %s is incomplete, rebuilding", tenantID)
		return s.Rebuild(ctx, tenantID)
	}
	return raw, nil
}

// Stale is the staleness detector: a mirror without its weekly-hours field
// is incomplete and must be rebuilt.
func Stale(raw json.RawMessage) bool {
	var probe struct {
		WeeklyHours map[string]json.RawMessage `json:"weeklyHours"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return true
	}
	return probe.WeeklyHours == nil
}
