package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vigil-trading/vigil/internal/providers"
	"github.com/vigil-trading/vigil/internal/scoring"
	"github.com/vigil-trading/vigil/internal/solana"
	"github.com/vigil-trading/vigil/internal/storage"
	"github.com/vigil-trading/vigil/internal/watchlist"
)

// WatchlistStore implements storage.WatchlistStore on PostgreSQL.
type WatchlistStore struct {
	pool *Pool
}

// NewWatchlistStore creates the store.
func NewWatchlistStore(pool *Pool) *WatchlistStore {
	return &WatchlistStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WatchlistStore = (*WatchlistStore)(nil)

const entryColumns = `mint, symbol, name, creator, status, rejection_kind,
	first_seen_at, last_checked_at, qualified_at, rejected_at, removed_at,
	below_alive_since, metrics, prev_metrics, score, risk,
	qualify_reason, reject_reason, remove_reason`

// UpsertEntry inserts or fully replaces the entry keyed by mint.
func (s *WatchlistStore) UpsertEntry(ctx context.Context, e *watchlist.Entry) error {
	metricsJSON, err := marshalNullable(e.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	prevJSON, err := marshalNullable(e.PrevMetrics)
	if err != nil {
		return fmt.Errorf("marshal prev metrics: %w", err)
	}
	scoreJSON, err := json.Marshal(e.Score)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	riskJSON, err := json.Marshal(e.Risk)
	if err != nil {
		return fmt.Errorf("marshal risk: %w", err)
	}

	query := `
		INSERT INTO watchlist_entries (` + entryColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now())
		ON CONFLICT (mint) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			creator = EXCLUDED.creator,
			status = EXCLUDED.status,
			rejection_kind = EXCLUDED.rejection_kind,
			first_seen_at = EXCLUDED.first_seen_at,
			last_checked_at = EXCLUDED.last_checked_at,
			qualified_at = EXCLUDED.qualified_at,
			rejected_at = EXCLUDED.rejected_at,
			removed_at = EXCLUDED.removed_at,
			below_alive_since = EXCLUDED.below_alive_since,
			metrics = EXCLUDED.metrics,
			prev_metrics = EXCLUDED.prev_metrics,
			score = EXCLUDED.score,
			risk = EXCLUDED.risk,
			qualify_reason = EXCLUDED.qualify_reason,
			reject_reason = EXCLUDED.reject_reason,
			remove_reason = EXCLUDED.remove_reason,
			updated_at = now()
	`

	_, err = s.pool.Exec(ctx, query,
		string(e.Mint), e.Symbol, e.Name, string(e.Creator),
		string(e.Status), string(e.RejectionKind),
		e.FirstSeenAt, e.LastCheckedAt, e.QualifiedAt, e.RejectedAt, e.RemovedAt,
		e.BelowAliveSince, metricsJSON, prevJSON, scoreJSON, riskJSON,
		e.QualifyReason, e.RejectReason, e.RemoveReason,
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// GetByMint retrieves one entry. Returns storage.ErrNotFound when absent.
func (s *WatchlistStore) GetByMint(ctx context.Context, mint solana.Pubkey) (*watchlist.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM watchlist_entries WHERE mint = $1`

	e, err := scanEntry(s.pool.QueryRow(ctx, query, string(mint)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entry by mint: %w", err)
	}
	return e, nil
}

// ListByStatus returns all entries in any of the given statuses.
func (s *WatchlistStore) ListByStatus(ctx context.Context, statuses ...watchlist.Status) ([]*watchlist.Entry, error) {
	args := make([]string, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}

	query := `SELECT ` + entryColumns + `
		FROM watchlist_entries
		WHERE status = ANY($1)
		ORDER BY mint ASC`

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list entries by status: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListDue returns active entries last checked before cutoff, newest
// token first.
func (s *WatchlistStore) ListDue(ctx context.Context, cutoff time.Time, limit int) ([]*watchlist.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM watchlist_entries
		WHERE status = ANY($1) AND last_checked_at <= $2
		ORDER BY first_seen_at DESC
		LIMIT $3`

	active := []string{
		string(watchlist.StatusPendingTriage),
		string(watchlist.StatusWatching),
		string(watchlist.StatusQualified),
	}

	rows, err := s.pool.Query(ctx, query, active, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list due entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// AppendTransition records one state-machine transition.
func (s *WatchlistStore) AppendTransition(ctx context.Context, rec *watchlist.TransitionRecord) error {
	query := `
		INSERT INTO watchlist_transitions (id, mint, from_status, to_status, kind, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, string(rec.Mint), string(rec.From), string(rec.To),
		string(rec.Kind), rec.Reason, rec.At,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

// ListTransitions returns the mint's transition history, newest first.
func (s *WatchlistStore) ListTransitions(ctx context.Context, mint solana.Pubkey, limit int) ([]*watchlist.TransitionRecord, error) {
	query := `
		SELECT id, mint, from_status, to_status, kind, reason, occurred_at
		FROM watchlist_transitions
		WHERE mint = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, string(mint), limit)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []*watchlist.TransitionRecord
	for rows.Next() {
		var rec watchlist.TransitionRecord
		var mintStr, from, to, kind string
		if err := rows.Scan(&rec.ID, &mintStr, &from, &to, &kind, &rec.Reason, &rec.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		rec.Mint = solana.Pubkey(mintStr)
		rec.From = watchlist.Status(from)
		rec.To = watchlist.Status(to)
		rec.Kind = watchlist.RejectionKind(kind)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (*watchlist.Entry, error) {
	var e watchlist.Entry
	var mint, creator, status, kind string
	var metricsJSON, prevJSON, scoreJSON, riskJSON []byte

	err := row.Scan(
		&mint, &e.Symbol, &e.Name, &creator, &status, &kind,
		&e.FirstSeenAt, &e.LastCheckedAt, &e.QualifiedAt, &e.RejectedAt, &e.RemovedAt,
		&e.BelowAliveSince, &metricsJSON, &prevJSON, &scoreJSON, &riskJSON,
		&e.QualifyReason, &e.RejectReason, &e.RemoveReason,
	)
	if err != nil {
		return nil, err
	}

	e.Mint = solana.Pubkey(mint)
	e.Creator = solana.Pubkey(creator)
	e.Status = watchlist.Status(status)
	e.RejectionKind = watchlist.RejectionKind(kind)

	if len(metricsJSON) > 0 {
		var m providers.TokenMetrics
		if err := json.Unmarshal(metricsJSON, &m); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
		e.Metrics = &m
	}
	if len(prevJSON) > 0 {
		var m providers.TokenMetrics
		if err := json.Unmarshal(prevJSON, &m); err != nil {
			return nil, fmt.Errorf("unmarshal prev metrics: %w", err)
		}
		e.PrevMetrics = &m
	}
	if len(scoreJSON) > 0 {
		var b scoring.Breakdown
		if err := json.Unmarshal(scoreJSON, &b); err != nil {
			return nil, fmt.Errorf("unmarshal score: %w", err)
		}
		e.Score = b
	}
	if len(riskJSON) > 0 {
		if err := json.Unmarshal(riskJSON, &e.Risk); err != nil {
			return nil, fmt.Errorf("unmarshal risk: %w", err)
		}
	}
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]*watchlist.Entry, error) {
	var out []*watchlist.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case *providers.TokenMetrics:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
