package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crosspair/spreadbot/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL. Writes are
// append-only; the strategy never reads this data back.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// InsertSignal appends one fired signal.
func (s *AuditStore) InsertSignal(ctx context.Context, sig domain.Signal) error {
	const query = `
		INSERT INTO signals (id, kind, direction, spread_pct, btc_price, eth_price, estimated_pnl_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		sig.ID,
		string(sig.Kind),
		string(sig.Direction),
		sig.Observation.SpreadPct,
		sig.Observation.BTC.Price,
		sig.Observation.ETH.Price,
		sig.EstimatedPnLUSD,
		sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert signal %s: %w", sig.ID, err)
	}
	return nil
}

// InsertAlertResult appends one per-sink delivery outcome.
func (s *AuditStore) InsertAlertResult(ctx context.Context, res domain.AlertResult) error {
	const query = `
		INSERT INTO alerts (id, signal_id, sink, ok, error, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`

	_, err := s.pool.Exec(ctx, query,
		res.ID,
		res.SignalID,
		res.Sink,
		res.OK,
		res.Error,
		res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert result %s: %w", res.ID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.AuditStore = (*AuditStore)(nil)
