package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/standardhub/internal/port/database"
)

var _ database.Store = (*Store)(nil)

// Store implements database.Store using PostgreSQL. A Store returned to an
// InTx callback is bound to that transaction.
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// InTx runs fn in a single transaction. Nested calls reuse the outer one.
func (s *Store) InTx(ctx context.Context, fn func(tx database.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return writeErr(err, "commit tx")
	}
	return nil
}

// --- Parents ---

func (s *Store) ConventionExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM conventions WHERE id = $1)`, id, "convention")
}

func (s *Store) PackageStructureExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM package_structures WHERE id = $1)`, id, "package structure")
}

func (s *Store) exists(ctx context.Context, query string, id int64, what string) (bool, error) {
	var ok bool
	if err := s.q.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("%s exists %d: %w", what, id, err)
	}
	return ok, nil
}

// CreateConvention inserts a convention row and returns its id. Conventions
// are managed outside the feedback queue; this seeds parents for tests and
// local runs.
func (s *Store) CreateConvention(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `INSERT INTO conventions (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, writeErr(err, "create convention")
	}
	return id, nil
}

// CreatePackageStructure inserts a package structure row and returns its id.
func (s *Store) CreatePackageStructure(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `INSERT INTO package_structures (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, writeErr(err, "create package structure")
	}
	return id, nil
}
