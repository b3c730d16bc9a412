package repository

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/okian/facegate/internal/domain/imaging"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/internal/domain/naming"
)

// PostgresStore keeps identities in PostgreSQL. Fused embeddings live in a
// pgvector column without a fixed dimension so backends can change; pose
// references are PNG bytes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and migrates the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect identity store: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize identity schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS identities (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			embedding VECTOR,
			backends TEXT[] NOT NULL DEFAULT '{}',
			enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS identity_poses (
			id BIGSERIAL PRIMARY KEY,
			identity_id BIGINT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
			pose TEXT NOT NULL,
			seq INT NOT NULL,
			image BYTEA NOT NULL
		);
		CREATE INDEX IF NOT EXISTS identities_name_key_idx ON identities (name_key);
		CREATE INDEX IF NOT EXISTS identity_poses_identity_idx ON identity_poses (identity_id);
	`)
	return err
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context) ([]model.EnrolledIdentity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, embedding, backends, enrolled_at
		FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load identities: %w", err)
	}
	var (
		ids   []model.EnrolledIdentity
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			rowID      int64
			name       string
			embedding  *pgvector.Vector
			backends   []string
			enrolledAt time.Time
		)
		if err := rows.Scan(&rowID, &name, &embedding, &backends, &enrolledAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %w", model.ErrStoreCorrupt, err)
		}
		id := model.EnrolledIdentity{Name: name, EnrolledAt: enrolledAt}
		if embedding != nil {
			id.Embedding = &model.FusedEmbedding{Vector: toFloat64(embedding.Slice()), Backends: backends}
		}
		index[rowID] = len(ids)
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load identities: %w", err)
	}

	poses, err := s.pool.Query(ctx, `
		SELECT identity_id, pose, image FROM identity_poses ORDER BY identity_id, pose, seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to load pose references: %w", err)
	}
	defer poses.Close()
	for poses.Next() {
		var (
			ownerID int64
			pose    string
			data    []byte
		)
		if err := poses.Scan(&ownerID, &pose, &data); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrStoreCorrupt, err)
		}
		i, ok := index[ownerID]
		if !ok {
			continue
		}
		img, err := imaging.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%w: identity %q: %w", model.ErrStoreCorrupt, ids[i].Name, err)
		}
		if ids[i].Poses == nil {
			ids[i].Poses = make(map[model.Pose][]image.Image)
		}
		ids[i].Poses[model.Pose(pose)] = append(ids[i].Poses[model.Pose(pose)], img)
	}
	if err := poses.Err(); err != nil {
		return nil, fmt.Errorf("failed to load pose references: %w", err)
	}
	return ids, nil
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, id model.EnrolledIdentity) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return insertIdentity(ctx, tx, id)
	})
}

// Remove implements Store.
func (s *PostgresStore) Remove(ctx context.Context, name string) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM identities WHERE name_key = $1", naming.Key(name))
	if err != nil {
		return false, fmt.Errorf("failed to remove identity: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReplaceAll implements Store in a single transaction.
func (s *PostgresStore) ReplaceAll(ctx context.Context, ids []model.EnrolledIdentity) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM identities"); err != nil {
			return fmt.Errorf("failed to clear identities: %w", err)
		}
		for _, id := range ids {
			if err := insertIdentity(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func insertIdentity(ctx context.Context, tx pgx.Tx, id model.EnrolledIdentity) error {
	if id.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidIdentity)
	}
	var (
		embedding any
		backends  = []string{}
	)
	if id.Embedding != nil {
		embedding = pgvector.NewVector(toFloat32(id.Embedding.Vector))
		backends = append(backends, id.Embedding.Backends...)
	}
	enrolledAt := id.EnrolledAt
	if enrolledAt.IsZero() {
		enrolledAt = time.Now()
	}

	var rowID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO identities (name, name_key, embedding, backends, enrolled_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		id.Name, naming.Key(id.Name), embedding, backends, enrolledAt,
	).Scan(&rowID)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	batch := &pgx.Batch{}
	for pose, refs := range id.Poses {
		for seq, img := range refs {
			data, err := imaging.EncodePNG(img)
			if err != nil {
				return err
			}
			batch.Queue(`INSERT INTO identity_poses (identity_id, pose, seq, image) VALUES ($1, $2, $3, $4)`,
				rowID, string(pose), seq, data)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert pose references: %w", err)
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
