package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmsynth/lmsynth/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) Create(ctx context.Context, s *SavedScenario) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	req, err := json.Marshal(s.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	resp, err := json.Marshal(s.Response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO saved_scenario (id, name, created_by, request, response)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		s.ID, s.Name, s.CreatedBy, req, resp,
	).Scan(&s.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*SavedScenario, error) {
	var (
		s         SavedScenario
		req, resp []byte
	)
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, created_by, request, response, created_at
		FROM saved_scenario WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.CreatedBy, &req, &resp, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(req, &s.Request); err != nil {
		return nil, fmt.Errorf("decode saved request: %w", err)
	}
	if err := json.Unmarshal(resp, &s.Response); err != nil {
		return nil, fmt.Errorf("decode saved response: %w", err)
	}
	return &s, nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]SavedSummary, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM saved_scenario`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, created_by, response->'kpis', created_at
		FROM saved_scenario
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SavedSummary, error) {
		var (
			s    SavedSummary
			kpis []byte
		)
		if err := row.Scan(&s.ID, &s.Name, &s.CreatedBy, &kpis, &s.CreatedAt); err != nil {
			return s, err
		}
		if len(kpis) > 0 {
			if err := json.Unmarshal(kpis, &s.KPIs); err != nil {
				return s, fmt.Errorf("decode kpis: %w", err)
			}
		}
		return s, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM saved_scenario WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
