package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openclinic/clinic-scheduling/internal/clinic"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentColumns = `id, tenant_id, practitioner_id, service_id, patient_id,
	start_at, end_at, kind, status, corporate_slug, override, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var override []byte

	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.PractitionerID,
		&a.ServiceID,
		&a.PatientID,
		&a.StartAt,
		&a.EndAt,
		&a.Kind,
		&a.Status,
		&a.CorporateSlug,
		&override,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if len(override) > 0 {
		var m OverrideMarker
		if err := json.Unmarshal(override, &m); err != nil {
			return nil, fmt.Errorf("decode override marker: %w", err)
		}
		a.Override = &m
	}
	return &a, nil
}

func scanBusyBlock(row pgx.Row) (*BusyBlock, error) {
	var b BusyBlock
	err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.AppointmentID,
		&b.StartUTC,
		&b.EndUTC,
		&b.Status,
		&b.Scope,
		&b.PractitionerID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusyBlockNotFound
		}
		return nil, err
	}
	return &b, nil
}

func scanManageToken(row pgx.Row) (*ManageToken, error) {
	var t ManageToken
	err := row.Scan(&t.ID, &t.TenantID, &t.AppointmentID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// Interface methods

func (r *PgRepository) GetAppointment(ctx context.Context, tenantID string, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListBookedAppointments(ctx context.Context, tenantID string, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
		  AND practitioner_id = $2
		  AND status = 'booked'
		  AND start_at < $4
		  AND end_at > $3
		ORDER BY start_at
	`, tenantID, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListBusyBlocks(ctx context.Context, tenantID string, from, to time.Time) ([]BusyBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, appointment_id, start_utc, end_utc, status, scope, practitioner_id, created_at, updated_at
		FROM busy_blocks
		WHERE tenant_id = $1
		  AND status = 'booked'
		  AND start_utc < $3
		  AND end_utc > $2
		ORDER BY start_utc
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BusyBlock
	for rows.Next() {
		b, err := scanBusyBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetManageToken(ctx context.Context, tenantID string, id uuid.UUID) (*ManageToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, appointment_id, expires_at, created_at
		FROM manage_tokens
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanManageToken(row)
}

func (r *PgRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM manage_tokens
		WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (tenant_id, event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.TenantID, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func (r *PgRepository) InTx(ctx context.Context, fn func(tx TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txRepo := &pgTxRepository{tx: tx}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// pgTxRepository runs every read and write on the transaction's connection.

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) ListActiveClosures(ctx context.Context, tenantID string, from, to time.Time) ([]clinic.Closure, error) {
	rows, err := r.tx.Query(ctx, `
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

	var result []clinic.Closure
	for rows.Next() {
		var c clinic.Closure
		if err := rows.Scan(&c.ID, &c.TenantID, &c.FromAt, &c.ToAt, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *pgTxRepository) ListOverlappingBooked(ctx context.Context, tenantID string, practitionerID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]Appointment, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
		  AND practitioner_id = $2
		  AND status = 'booked'
		  AND start_at < $4
		  AND end_at > $3
		  AND ($5::uuid IS NULL OR id <> $5)
		ORDER BY start_at
	`, tenantID, practitionerID, from, to, excludeID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *pgTxRepository) InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	var override []byte
	if a.Override != nil {
		var err error
		override, err = json.Marshal(a.Override)
		if err != nil {
			return nil, fmt.Errorf("encode override marker: %w", err)
		}
	}

	row := r.tx.QueryRow(ctx, `
		INSERT INTO appointments (id, tenant_id, practitioner_id, service_id, patient_id,
			start_at, end_at, kind, status, corporate_slug, override, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'booked', $9, $10, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.TenantID, a.PractitionerID, a.ServiceID, a.PatientID,
		a.StartAt, a.EndAt, a.Kind, a.CorporateSlug, override)
	return scanAppointment(row)
}

func (r *pgTxRepository) UpdateAppointmentWindow(ctx context.Context, tenantID string, id uuid.UUID, start, end time.Time, override *OverrideMarker) (*Appointment, error) {
	var overrideDoc []byte
	if override != nil {
		var err error
		overrideDoc, err = json.Marshal(override)
		if err != nil {
			return nil, fmt.Errorf("encode override marker: %w", err)
		}
	}

	row := r.tx.QueryRow(ctx, `
		UPDATE appointments
		SET start_at = $3,
		    end_at = $4,
		    override = COALESCE($5, override),
		    updated_at = now()
		WHERE tenant_id = $1
		  AND id = $2
		  AND status = 'booked'
		RETURNING `+appointmentColumns+`
	`, tenantID, id, start, end, overrideDoc)
	return scanAppointment(row)
}

func (r *pgTxRepository) UpdateAppointmentStatus(ctx context.Context, tenantID string, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $4,
		    updated_at = now()
		WHERE tenant_id = $1
		  AND id = $2
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, tenantID, id, from, to)
	return scanAppointment(row)
}

func (r *pgTxRepository) UpdateAppointmentDetails(ctx context.Context, tenantID string, id uuid.UUID, serviceID uuid.UUID, kind Kind) (*Appointment, error) {
	row := r.tx.QueryRow(ctx, `
		UPDATE appointments
		SET service_id = $3,
		    kind = $4,
		    updated_at = now()
		WHERE tenant_id = $1
		  AND id = $2
		  AND status = 'booked'
		RETURNING `+appointmentColumns+`
	`, tenantID, id, serviceID, kind)
	return scanAppointment(row)
}

func (r *pgTxRepository) DeleteAppointment(ctx context.Context, tenantID string, id uuid.UUID) error {
	tag, err := r.tx.Exec(ctx, `
		DELETE FROM appointments
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *pgTxRepository) InsertBusyBlock(ctx context.Context, b *BusyBlock) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO busy_blocks (id, tenant_id, appointment_id, start_utc, end_utc, status, scope, practitioner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, b.ID, b.TenantID, b.AppointmentID, b.StartUTC, b.EndUTC, b.Status, b.Scope, b.PractitionerID)
	return err
}

func (r *pgTxRepository) UpdateBusyBlockWindow(ctx context.Context, tenantID string, appointmentID uuid.UUID, start, end time.Time) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE busy_blocks
		SET start_utc = $3,
		    end_utc = $4,
		    updated_at = now()
		WHERE tenant_id = $1 AND appointment_id = $2
	`, tenantID, appointmentID, start, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBusyBlockNotFound
	}
	return nil
}

func (r *pgTxRepository) UpdateBusyBlockStatus(ctx context.Context, tenantID string, appointmentID uuid.UUID, status Status) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE busy_blocks
		SET status = $3,
		    updated_at = now()
		WHERE tenant_id = $1 AND appointment_id = $2
	`, tenantID, appointmentID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBusyBlockNotFound
	}
	return nil
}

func (r *pgTxRepository) DeleteBusyBlock(ctx context.Context, tenantID string, appointmentID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `
		DELETE FROM busy_blocks
		WHERE tenant_id = $1 AND appointment_id = $2
	`, tenantID, appointmentID)
	return err
}

func (r *pgTxRepository) InsertManageToken(ctx context.Context, t *ManageToken) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO manage_tokens (id, tenant_id, appointment_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, t.ID, t.TenantID, t.AppointmentID, t.ExpiresAt)
	return err
}

func (r *pgTxRepository) DeleteTokensForAppointment(ctx context.Context, tenantID string, appointmentID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `
		DELETE FROM manage_tokens
		WHERE tenant_id = $1 AND appointment_id = $2
	`, tenantID, appointmentID)
	return err
}
