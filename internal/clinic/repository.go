package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSettingsNotFound     = errors.New("clinic settings not configured")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrServiceNotFound      = errors.New("service not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrClosureNotFound      = errors.New("closure not found")
	ErrMembershipNotFound   = errors.New("membership not found")
)

// Repository contains the clinic-configuration reads and writes the
// scheduling core needs.
type Repository interface {
	GetSettings(ctx context.Context, tenantID string) (*BookingSettings, error)
	PutSettings(ctx context.Context, tenantID string, doc json.RawMessage) error

	ListActiveClosures(ctx context.Context, tenantID string, from, to time.Time) ([]Closure, error)
	CreateClosure(ctx context.Context, tenantID string, from, to time.Time) (*Closure, error)
	SetClosureActive(ctx context.Context, tenantID string, id uuid.UUID, active bool) error

	GetPractitioner(ctx context.Context, tenantID string, id uuid.UUID) (*Practitioner, error)
	ListActivePractitioners(ctx context.Context, tenantID string) ([]Practitioner, error)

	GetService(ctx context.Context, tenantID string, id uuid.UUID) (*Service, error)
	ListActiveServices(ctx context.Context, tenantID string) ([]Service, error)

	GetPatient(ctx context.Context, tenantID string, id uuid.UUID) (*Patient, error)
	FindPatientByEmail(ctx context.Context, tenantID, email string) (*Patient, error)
	CreatePatient(ctx context.Context, p Patient) (*Patient, error)

	GetMembership(ctx context.Context, tenantID string, memberID uuid.UUID) (*Membership, error)
	ListMemberships(ctx context.Context, tenantID string) ([]Membership, error)
}

// Authorizer is the boolean permission check exposed by the membership
// system. The core calls it before reading any mutable booking state.
type Authorizer interface {
	HasPermission(ctx context.Context, tenantID string, memberID uuid.UUID, perm string) (bool, error)
}

// RepoAuthorizer answers permission checks from membership rows.
type RepoAuthorizer struct {
	repo Repository
}

func NewRepoAuthorizer(repo Repository) *RepoAuthorizer {
	return &RepoAuthorizer{repo: repo}
}

func (a *RepoAuthorizer) HasPermission(ctx context.Context, tenantID string, memberID uuid.UUID, perm string) (bool, error) {
	m, err := a.repo.GetMembership(ctx, tenantID, memberID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.Has(perm), nil
}
