package clinic

import (
	"time"

	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/schedule"
)

type MembershipStatus string

const (
	MemberActive    MembershipStatus = "active"
	MemberSuspended MembershipStatus = "suspended"
)

// Permission flags checked before staff mutations.
const (
	PermScheduleWrite  = "schedule.write"
	PermScheduleManage = "schedule.manage"
	PermSettingsWrite  = "settings.write"
)

// Closure is a clinic-wide unavailable time range. Immutable once created
// except for the active flag (soft delete).
type Closure struct {
	ID        uuid.UUID
	TenantID  string
	FromAt    time.Time
	ToAt      time.Time
	Active    bool
	CreatedAt time.Time
}

// Practitioner belongs to one clinic. WeeklyHours, when present, is
// intersected with clinic hours, never unioned.
type Practitioner struct {
	ID          uuid.UUID
	TenantID    string
	Name        string
	Timezone    *string
	Active      bool
	WeeklyHours schedule.WeeklyHours // nil when the practitioner has no override
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Service struct {
	ID              uuid.UUID
	TenantID        string
	Name            string
	DurationMinutes int
	Public          bool
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Patient struct {
	ID        uuid.UUID
	TenantID  string
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership is the external authorization collaborator's record as this
// core sees it: enough to gate staff mutations and to filter suspended
// practitioners out of the public mirror.
type Membership struct {
	TenantID    string
	MemberID    uuid.UUID
	Status      MembershipStatus
	Permissions []string
}

func (m *Membership) Has(perm string) bool {
	if m.Status != MemberActive {
		return false
	}
	for _, p := range m.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
