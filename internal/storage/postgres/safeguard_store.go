package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vigil-trading/vigil/internal/safeguard"
)

// SafeguardStore persists the singleton safeguard state as one JSONB row.
type SafeguardStore struct {
	pool *Pool
}

// NewSafeguardStore creates the store.
func NewSafeguardStore(pool *Pool) *SafeguardStore {
	return &SafeguardStore{pool: pool}
}

var _ safeguard.Store = (*SafeguardStore)(nil)

// LoadSafeguard returns the persisted state, or nil when none was saved yet.
func (s *SafeguardStore) LoadSafeguard(ctx context.Context) (*safeguard.State, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM safeguard_state WHERE id = 1`).Scan(&raw)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load safeguard state: %w", err)
	}

	var st safeguard.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal safeguard state: %w", err)
	}
	return &st, nil
}

// SaveSafeguard upserts the singleton row.
func (s *SafeguardStore) SaveSafeguard(ctx context.Context, st *safeguard.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal safeguard state: %w", err)
	}

	query := `
		INSERT INTO safeguard_state (id, state, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, raw); err != nil {
		return fmt.Errorf("save safeguard state: %w", err)
	}
	return nil
}
