package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/agent-supervisor/pkg/bootstrap"
	"github.com/morezero/agent-supervisor/pkg/registry"
)

const storeLogPrefix = "db:store"

// Store provides database access to the responder table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store with the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListResponders returns all responder descriptors ordered by registration
// position. The supervisor calls this once at startup; the registry stays
// fixed for the process lifetime afterwards.
func (s *Store) ListResponders(ctx context.Context) ([]registry.ResponderDescriptor, error) {
	slog.Debug(fmt.Sprintf("%s - ListResponders", storeLogPrefix))

	rows, err := s.pool.Query(ctx,
		`SELECT identifier, address, capability, version
		 FROM responders
		 ORDER BY position, identifier`)
	if err != nil {
		return nil, fmt.Errorf("%s - list responders: %w", storeLogPrefix, err)
	}
	defer rows.Close()

	var out []registry.ResponderDescriptor
	for rows.Next() {
		var d registry.ResponderDescriptor
		if err := rows.Scan(&d.Identifier, &d.Address, &d.Capability, &d.Version); err != nil {
			return nil, fmt.Errorf("%s - scan responder: %w", storeLogPrefix, err)
		}
		d.Health = registry.HealthUnknown
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - list responders: %w", storeLogPrefix, err)
	}
	return out, nil
}

// SeedResponders upserts the bootstrap responder set into the database,
// preserving file order as the registration position.
func (s *Store) SeedResponders(ctx context.Context, cfg *bootstrap.RespondersConfig) error {
	slog.Info(fmt.Sprintf("%s - Seeding %d responders", storeLogPrefix, len(cfg.Responders)))

	now := time.Now().UTC()
	for i, r := range cfg.Responders {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO responders (identifier, address, capability, version, position, created, modified)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)
			 ON CONFLICT (identifier) DO UPDATE SET
			   address = $2,
			   capability = $3,
			   version = $4,
			   position = $5,
			   modified = $6`,
			r.Identifier, r.Address, r.Capability, r.Version, i, now)
		if err != nil {
			return fmt.Errorf("%s - seed responder %q: %w", storeLogPrefix, r.Identifier, err)
		}
	}
	return nil
}

// ClearResponders truncates the responder table; schema is preserved.
func (s *Store) ClearResponders(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE responders`); err != nil {
		return fmt.Errorf("%s - clear responders: %w", storeLogPrefix, err)
	}
	return nil
}
