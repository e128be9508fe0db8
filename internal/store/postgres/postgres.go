// Package postgres implements the snapshot store on PostgreSQL with
// pgvector descriptor columns.
//
// Snapshot semantics are preserved: Update rewrites the full state inside
// one transaction, serialized across processes by an advisory lock.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/store"
)

// snapshotLockKey is the advisory lock serializing snapshot writers.
const snapshotLockKey = int64(7265736)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier is the read surface shared by the pool and open transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Store is the PostgreSQL-backed snapshot store.
type Store struct {
	db     DB
	logger *slog.Logger
	mu     sync.Mutex
}

var _ store.Store = (*Store)(nil)

// New creates a store over an existing pool (or mock).
func New(db DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// NewPool creates a configured pgx pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Load implements store.Store.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	return load(ctx, s.db)
}

// Update implements store.Store. The whole load-mutate-save runs in one
// transaction under an advisory lock, so a concurrent writer in another
// process waits instead of losing the update.
func (s *Store) Update(ctx context.Context, fn store.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot update: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, snapshotLockKey); err != nil {
		return fmt.Errorf("acquire snapshot lock: %w", err)
	}

	snap, err := load(ctx, tx)
	if err != nil {
		return err
	}

	changed, err := fn(snap)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := save(ctx, tx, snap); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot update: %w", err)
	}
	return nil
}

func load(ctx context.Context, q querier) (*domain.Snapshot, error) {
	snap := domain.NewSnapshot()

	rows, err := q.Query(ctx, `
		SELECT i.id, i.name, i.registered_at, d.components
		FROM identities i
		JOIN descriptors d ON d.identity_id = i.id
		ORDER BY i.position, d.position
	`)
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var (
			id, name     string
			registeredAt time.Time
			components   []byte
		)
		if err := rows.Scan(&id, &name, &registeredAt, &components); err != nil {
			return nil, fmt.Errorf("scan identity row: %w", err)
		}

		var descriptor domain.Descriptor
		if err := json.Unmarshal(components, &descriptor); err != nil {
			return nil, fmt.Errorf("decode descriptor for %q: %w", id, err)
		}

		pos, ok := index[id]
		if !ok {
			index[id] = len(snap.Users)
			snap.Users = append(snap.Users, domain.Identity{
				ID:           id,
				Name:         name,
				RegisteredAt: registeredAt,
			})
			pos = index[id]
		}
		snap.Users[pos].Descriptors = append(snap.Users[pos].Descriptors, descriptor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity rows: %w", err)
	}

	attRows, err := q.Query(ctx, `
		SELECT identity_id, date
		FROM attendance
		ORDER BY identity_id, date
	`)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	defer attRows.Close()

	for attRows.Next() {
		var (
			id   string
			date time.Time
		)
		if err := attRows.Scan(&id, &date); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		snap.Attendance[id] = append(snap.Attendance[id], date.Format(domain.DateFormat))
	}
	if err := attRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}

	return snap, nil
}

// save rewrites the full snapshot. Descriptors are stored twice: the
// vector(128) column for distance queries in SQL, and a jsonb copy that
// round-trips the float64 components exactly.
func save(ctx context.Context, tx pgx.Tx, snap *domain.Snapshot) error {
	for _, table := range []string{"attendance", "descriptors", "identities"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for pos, u := range snap.Users {
		_, err := tx.Exec(ctx, `
			INSERT INTO identities (id, name, registered_at, position)
			VALUES ($1, $2, $3, $4)
		`, u.ID, u.Name, u.RegisteredAt, pos)
		if err != nil {
			return fmt.Errorf("insert identity %q: %w", u.ID, err)
		}

		for dpos, d := range u.Descriptors {
			components, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("encode descriptor for %q: %w", u.ID, err)
			}

			floats := make([]float32, len(d))
			for i, v := range d {
				floats[i] = float32(v)
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO descriptors (identity_id, position, embedding, components)
				VALUES ($1, $2, $3, $4)
			`, u.ID, dpos, pgvector.NewVector(floats), components)
			if err != nil {
				return fmt.Errorf("insert descriptor for %q: %w", u.ID, err)
			}
		}
	}

	for id, dates := range snap.Attendance {
		for _, date := range dates {
			day, err := time.Parse(domain.DateFormat, date)
			if err != nil {
				return fmt.Errorf("attendance date %q for %q: %w", date, id, err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO attendance (identity_id, date)
				VALUES ($1, $2)
			`, id, day)
			if err != nil {
				return fmt.Errorf("insert attendance for %q: %w", id, err)
			}
		}
	}

	return nil
}
