package mirror

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) GetMirror(ctx context.Context, tenantID string) (json.RawMessage, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `
		SELECT doc
		FROM public_mirrors
		WHERE tenant_id = $1
	`, tenantID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMirrorNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *PgStore) PutMirror(ctx context.Context, tenantID string, doc json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO public_mirrors (tenant_id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant_id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, tenantID, []byte(doc))
	return err
}
