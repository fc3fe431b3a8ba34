// Package store persists the training corpus, oracle claims and weight
// snapshots in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/snapshot"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/postgres"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	position BIGSERIAL,
	id       TEXT PRIMARY KEY,
	items    TEXT[] NOT NULL
);
CREATE TABLE IF NOT EXISTS claims (
	id              TEXT PRIMARY KEY,
	left_ids        TEXT[] NOT NULL,
	right_ids       TEXT[] NOT NULL,
	lo              DOUBLE PRECISION NOT NULL,
	hi              DOUBLE PRECISION NOT NULL,
	idempotency_key TEXT UNIQUE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS weight_snapshots (
	version    BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	body       JSONB NOT NULL
);`

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "store"),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// SaveCollections upserts the corpus, replacing the items of known IDs.
func (s *Store) SaveCollections(ctx context.Context, collections []corpus.Collection) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, c := range collections {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO collections (id, items) VALUES ($1, $2)
				ON CONFLICT (id) DO UPDATE SET items = EXCLUDED.items`,
				c.ID, pq.Array(c.Items)); err != nil {
				return fmt.Errorf("saving collection %q: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("collections saved", "count", len(collections))
	return nil
}

// LoadCollections returns the corpus in insertion order.
func (s *Store) LoadCollections(ctx context.Context) ([]corpus.Collection, error) {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT id, items FROM collections ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var out []corpus.Collection
	for rows.Next() {
		var c corpus.Collection
		if err := rows.Scan(&c.ID, pq.Array(&c.Items)); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}
	return out, nil
}

// SaveClaim stores c and returns its ID. A repeated idempotency key returns
// the ID of the claim first stored under it with created false.
func (s *Store) SaveClaim(ctx context.Context, c claim.OracleClaim, idempotencyKey string) (id string, created bool, err error) {
	if idempotencyKey != "" {
		existing, err := s.claimIDByKey(ctx, idempotencyKey)
		if err != nil {
			return "", false, err
		}
		if existing != "" {
			s.logger.Info("duplicate claim detected",
				"idempotency_key", idempotencyKey,
				"existing_id", existing,
			)
			return existing, false, nil
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	err = s.db.DB.QueryRowContext(ctx,
		`INSERT INTO claims (id, left_ids, right_ids, lo, hi, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`,
		c.ID, pq.Array(c.Left), pq.Array(c.Right), c.Interval.Lo, c.Interval.Hi, nullableString(idempotencyKey),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, apperrors.New(apperrors.ErrIdempotencyConflict, 409, "idempotency key already in use")
	}
	if err != nil {
		return "", false, fmt.Errorf("inserting claim: %w", err)
	}
	return id, true, nil
}

func (s *Store) claimIDByKey(ctx context.Context, key string) (string, error) {
	var id string
	err := s.db.DB.QueryRowContext(ctx, `SELECT id FROM claims WHERE idempotency_key=$1`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying by idempotency key: %w", err)
	}
	return id, nil
}

// LoadClaims returns every stored claim, oldest first.
func (s *Store) LoadClaims(ctx context.Context) ([]claim.OracleClaim, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, left_ids, right_ids, lo, hi FROM claims ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying claims: %w", err)
	}
	defer rows.Close()

	var out []claim.OracleClaim
	for rows.Next() {
		var c claim.OracleClaim
		if err := rows.Scan(&c.ID, pq.Array(&c.Left), pq.Array(&c.Right), &c.Interval.Lo, &c.Interval.Hi); err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating claims: %w", err)
	}
	return out, nil
}

// SaveSnapshot upserts the weights of one model version.
func (s *Store) SaveSnapshot(ctx context.Context, snap snapshot.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if _, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO weight_snapshots (version, created_at, body) VALUES ($1, $2, $3)
		ON CONFLICT (version) DO UPDATE SET created_at = EXCLUDED.created_at, body = EXCLUDED.body`,
		int64(snap.Version), snap.CreatedAt, body); err != nil {
		return fmt.Errorf("saving snapshot %d: %w", snap.Version, err)
	}
	return nil
}

// LatestSnapshot returns the snapshot with the highest version.
func (s *Store) LatestSnapshot(ctx context.Context) (snapshot.Snapshot, error) {
	var body []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT body FROM weight_snapshots ORDER BY version DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Snapshot{}, fmt.Errorf("latest snapshot: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// nullableString converts a Go string to a sql.NullString, treating the
// empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
