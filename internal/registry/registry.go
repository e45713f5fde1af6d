// Package registry reads the dataset registry from the Dify PostgreSQL
// database. It never writes.
package registry

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is a read-only view of the datasets table.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Connect opens a connection pool against the registry database. The
// connection is verified lazily; an unreachable database surfaces on the
// first query, not here.
func Connect(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse registry dsn: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open registry pool: %w", err)
	}

	return &Store{pool: pool, log: log}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ListDatasetIDs returns the full set of dataset ids. A returned error means
// the registry could not be read; callers must then suppress every
// destructive decision that depends on registry membership.
func (s *Store) ListDatasetIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text FROM datasets`)
	if err != nil {
		return nil, fmt.Errorf("query dataset ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan dataset id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dataset ids: %w", err)
	}
	return ids, nil
}

// DatasetNames resolves human-readable names for a set of dataset ids.
// Best effort: on any failure it logs a warning and returns what it has;
// missing ids are simply absent from the map.
func (s *Store) DatasetNames(ctx context.Context, ids []string) map[string]string {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names
	}

	rows, err := s.pool.Query(ctx, `SELECT id::text, name FROM datasets WHERE id::text = ANY($1)`, ids)
	if err != nil {
		s.log.Warn("dataset name lookup failed", zap.Error(err))
		return names
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			s.log.Warn("dataset name scan failed", zap.Error(err))
			return names
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("dataset name lookup failed", zap.Error(err))
	}
	return names
}
