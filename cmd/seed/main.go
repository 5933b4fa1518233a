// Seeds a demo clinic so the API can be exercised locally: one tenant with
// settings, a handful of practitioners and services, staff memberships, and a
// batch of fake patients.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openclinic/clinic-scheduling/internal/db"
)

const tenantID = "demo-clinic"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedSettings(context.Background(), pool); err != nil {
		log.Fatalf("seed settings: %v", err)
	}
	if err := seedPractitioners(context.Background(), pool, 5); err != nil {
		log.Fatalf("seed practitioners: %v", err)
	}
	if err := seedServices(context.Background(), pool); err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedMemberships(context.Background(), pool); err != nil {
		log.Fatalf("seed memberships: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool) error {
	corporateDay := time.Now().AddDate(0, 0, 14).Format("2006-01-02")
	doc := fmt.Sprintf(`{
		"timezone": "Europe/London",
		"slotStepMinutes": 30,
		"minNoticeMinutes": 120,
		"maxAdvanceDays": 60,
		"weeklyHours": {
			"mon": [["09:00", "17:00"]],
			"tue": [["09:00", "17:00"]],
			"wed": [["09:00", "17:00"]],
			"thu": [["09:00", "17:00"]],
			"fri": [["09:00", "13:00"]],
			"sat": [],
			"sun": []
		},
		"corporatePrograms": [
			{
				"slug": "acme-health-day",
				"mode": "CODE_UNLOCK",
				"code": "ACME2026",
				"allowedDays": ["%s"]
			}
		],
		"publicServiceNames": {},
		"patientCopy": {"welcome": "Welcome to the demo clinic."}
	}`, corporateDay)

	_, err := pool.Exec(ctx, `
		INSERT INTO clinic_settings (tenant_id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant_id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, tenantID, []byte(doc))
	if err != nil {
		return err
	}

	log.Printf("settings seeded for tenant %s (corporate day %s)", tenantID, corporateDay)
	return nil
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d practitioners", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()

		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, tenant_id, name, timezone, active, weekly_hours, created_at, updated_at)
			VALUES ($1, $2, $3, '', true, NULL, now(), now())
		`, id, tenantID, name)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("practitioners seeded")
	return nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) error {
	services := []struct {
		name     string
		duration int
		public   bool
	}{
		{"Initial Consultation", 60, true},
		{"Follow-up", 30, true},
		{"Extended Assessment", 90, true},
		{"Internal Review", 30, false},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range services {
		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, tenant_id, name, duration_minutes, public, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
		`, uuid.New(), tenantID, s.name, s.duration, s.public)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("services seeded")
	return nil
}

func seedMemberships(ctx context.Context, pool *pgxpool.Pool) error {
	members := []struct {
		perms []string
	}{
		{[]string{"schedule.write", "schedule.manage", "settings.write"}},
		{[]string{"schedule.write"}},
	}

	for _, m := range members {
		id := uuid.New()
		_, err := pool.Exec(ctx, `
			INSERT INTO memberships (tenant_id, member_id, status, permissions)
			VALUES ($1, $2, 'active', $3)
		`, tenantID, id, m.perms)
		if err != nil {
			return err
		}
		log.Printf("membership seeded: member_id=%s perms=%v", id, m.perms)
	}

	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, tenant_id, first_name, last_name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
				ON CONFLICT DO NOTHING
			`, uuid.New(), tenantID, gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email(), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("patients seeded")
	return nil
}
