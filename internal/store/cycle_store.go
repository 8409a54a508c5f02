package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/lensquery/internal/domain"
)

// DefaultRecentLimit bounds Recent when the caller passes a non-positive n.
const DefaultRecentLimit = 20

type CycleStore struct {
	db *sql.DB
}

func NewCycleStore(db *sql.DB) *CycleStore {
	return &CycleStore{db: db}
}

func (s *CycleStore) Create(ctx context.Context, c *domain.Cycle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (id, provider, model, outcome, http_status, token_estimate, duration_ms, frame_key, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Provider, c.Model, string(c.Outcome), c.HTTPStatus, c.TokenEstimate, c.DurationMS, c.FrameKey, c.Error, c.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create cycle: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when no cycle has the given id.
func (s *CycleStore) GetByID(ctx context.Context, id string) (*domain.Cycle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, provider, model, outcome, http_status, token_estimate, duration_ms, frame_key, error, started_at
		FROM cycles WHERE id = ?
	`, id)

	c, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return c, nil
}

// Recent returns up to n cycles, newest first.
func (s *CycleStore) Recent(ctx context.Context, n int) ([]*domain.Cycle, error) {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, model, outcome, http_status, token_estimate, duration_ms, frame_key, error, started_at
		FROM cycles ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cycles []*domain.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}
	return cycles, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(sc scanner) (*domain.Cycle, error) {
	c := &domain.Cycle{}
	var outcome string
	err := sc.Scan(&c.ID, &c.Provider, &c.Model, &outcome, &c.HTTPStatus, &c.TokenEstimate, &c.DurationMS, &c.FrameKey, &c.Error, &c.StartedAt)
	if err != nil {
		return nil, err
	}
	c.Outcome = domain.CycleOutcome(outcome)
	return c, nil
}
