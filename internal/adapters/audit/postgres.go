package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
	"github.com/okian/facegate/pkg/metrics"
)

// PostgresSink stores records in the access_events table.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// Option applies a configuration option to the PostgresSink.
type Option func(*PostgresSink)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *PostgresSink) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewPostgresSink connects and migrates the schema.
func NewPostgresSink(ctx context.Context, dsn string, opts ...Option) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect audit store: %w", err)
	}
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS access_events (
			id BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			identity TEXT NOT NULL DEFAULT '',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			decision TEXT NOT NULL,
			status TEXT NOT NULL,
			mode TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS access_events_occurred_at_idx ON access_events (occurred_at);
		CREATE INDEX IF NOT EXISTS access_events_identity_idx ON access_events (identity);
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	s := &PostgresSink{pool: pool, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record implements Sink.
func (s *PostgresSink) Record(ctx context.Context, r Record) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO access_events (occurred_at, identity, confidence, decision, status, mode)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.Time, r.Identity, r.Confidence, string(r.Decision), string(r.Status), r.Mode)
	if err != nil {
		metrics.RecordAuditError()
		s.logger.Error(ctx, "failed to record access attempt",
			logger.String("identity", r.Identity),
			logger.String("decision", string(r.Decision)),
			logger.Error(err),
		)
	}
}

// Recent implements Reader.
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT occurred_at, identity, confidence, decision, status, mode
		FROM access_events ORDER BY occurred_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query access events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                Record
			decision, status string
		)
		if err := rows.Scan(&r.Time, &r.Identity, &r.Confidence, &decision, &status, &r.Mode); err != nil {
			return nil, fmt.Errorf("failed to scan access event: %w", err)
		}
		r.Decision = Decision(decision)
		r.Status = model.Status(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query access events: %w", err)
	}
	return out, nil
}

// Stats implements Reader.
func (s *PostgresSink) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE decision = $2),
			COUNT(*) FILTER (WHERE decision = $3)
		FROM access_events WHERE occurred_at >= $1`,
		startOfDay(now), string(Granted), string(Denied),
	).Scan(&st.Today.Total, &st.Today.Granted, &st.Today.Denied)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute daily stats: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT NULLIF(identity, '')) FROM access_events`,
	).Scan(&st.TotalRecords, &st.UniqueIdentities)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return st, nil
}

// Purge implements Reader.
func (s *PostgresSink) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM access_events WHERE occurred_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge access events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}
