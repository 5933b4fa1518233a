package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openclinic/clinic-scheduling/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) GetSettings(ctx context.Context, tenantID string) (*BookingSettings, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc
		FROM clinic_settings
		WHERE tenant_id = $1
	`, tenantID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return ParseSettings(tenantID, doc)
}

func (r *PgRepository) PutSettings(ctx context.Context, tenantID string, doc json.RawMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinic_settings (tenant_id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant_id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, tenantID, []byte(doc))
	return err
}

// Helpers

func scanClosure(row pgx.Row) (*Closure, error) {
	var c Closure
	err := row.Scan(&c.ID, &c.TenantID, &c.FromAt, &c.ToAt, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClosureNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	var weekly []byte
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Timezone, &p.Active, &weekly, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}
	if len(weekly) > 0 {
		p.WeeklyHours = schedule.ParseWeek(weekly)
	}
	return &p, nil
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.DurationMinutes, &s.Public, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.TenantID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Closures

func (r *PgRepository) ListActiveClosures(ctx context.Context, tenantID string, from, to time.Time) ([]Closure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, from_at, to_at, active, created_at
		FROM closures
		WHERE tenant_id = $1
		  AND active = true
		  AND from_at < $3
		  AND to_at > $2
		ORDER BY from_at
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Closure
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateClosure(ctx context.Context, tenantID string, from, to time.Time) (*Closure, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO closures (id, tenant_id, from_at, to_at, active, created_at)
		VALUES ($1, $2, $3, $4, true, now())
		RETURNING id, tenant_id, from_at, to_at, active, created_at
	`, uuid.New(), tenantID, from, to)
	return scanClosure(row)
}

func (r *PgRepository) SetClosureActive(ctx context.Context, tenantID string, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE closures
		SET active = $3
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClosureNotFound
	}
	return nil
}

// Practitioners

func (r *PgRepository) GetPractitioner(ctx context.Context, tenantID string, id uuid.UUID) (*Practitioner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, timezone, active, weekly_hours, created_at, updated_at
		FROM practitioners
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanPractitioner(row)
}

func (r *PgRepository) ListActivePractitioners(ctx context.Context, tenantID string) ([]Practitioner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, timezone, active, weekly_hours, created_at, updated_at
		FROM practitioners
		WHERE tenant_id = $1 AND active = true
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// Services

func (r *PgRepository) GetService(ctx context.Context, tenantID string, id uuid.UUID) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, duration_minutes, public, active, created_at, updated_at
		FROM services
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanService(row)
}

func (r *PgRepository) ListActiveServices(ctx context.Context, tenantID string) ([]Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, duration_minutes, public, active, created_at, updated_at
		FROM services
		WHERE tenant_id = $1 AND active = true
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// Patients

func (r *PgRepository) GetPatient(ctx context.Context, tenantID string, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, first_name, last_name, email, phone, created_at, updated_at
		FROM patients
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanPatient(row)
}

func (r *PgRepository) FindPatientByEmail(ctx context.Context, tenantID, email string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, first_name, last_name, email, phone, created_at, updated_at
		FROM patients
		WHERE tenant_id = $1 AND lower(email) = lower($2)
	`, tenantID, email)
	return scanPatient(row)
}

func (r *PgRepository) CreatePatient(ctx context.Context, p Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, tenant_id, first_name, last_name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id, tenant_id, first_name, last_name, email, phone, created_at, updated_at
	`, uuid.New(), p.TenantID, p.FirstName, p.LastName, p.Email, p.Phone)
	return scanPatient(row)
}

// Memberships

func (r *PgRepository) GetMembership(ctx context.Context, tenantID string, memberID uuid.UUID) (*Membership, error) {
	var m Membership
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, member_id, status, permissions
		FROM memberships
		WHERE tenant_id = $1 AND member_id = $2
	`, tenantID, memberID).Scan(&m.TenantID, &m.MemberID, &m.Status, &m.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PgRepository) ListMemberships(ctx context.Context, tenantID string) ([]Membership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id, member_id, status, permissions
		FROM memberships
		WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.TenantID, &m.MemberID, &m.Status, &m.Permissions); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
