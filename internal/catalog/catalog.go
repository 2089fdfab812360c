// Package catalog stores static mob reference data in SQLite and serves it to
// protocol handlers through world.MobCatalog.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/riftwatch/riftwatch/internal/db"
	"github.com/riftwatch/riftwatch/internal/world"
)

const schema = `CREATE TABLE IF NOT EXISTS mob_info (
	type_id  INTEGER PRIMARY KEY,
	name     TEXT NOT NULL,
	tier     INTEGER NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT ''
)`

// Catalog is a read-through cache over the mob_info table.
type Catalog struct {
	db     *db.Database
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[int32]*world.MobInfo
	miss  map[int32]struct{}
}

type seedFile struct {
	Mobs []world.MobInfo `yaml:"mobs"`
}

// Open opens the catalog database at path and migrates it.
func Open(ctx context.Context, path string) (*Catalog, error) {
	database, err := db.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, schema); err != nil {
		database.Close()
		return nil, err
	}
	return &Catalog{
		db:     database,
		logger: log.With().Str("component", "catalog").Logger(),
		cache:  make(map[int32]*world.MobInfo),
		miss:   make(map[int32]struct{}),
	}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Seed inserts or replaces infos and invalidates the cache.
func (c *Catalog) Seed(ctx context.Context, infos []world.MobInfo) error {
	err := c.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO mob_info (type_id, name, tier, category) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, info := range infos {
			if _, err := stmt.ExecContext(ctx, info.TypeID, info.Name, info.Tier, info.Category); err != nil {
				return fmt.Errorf("insert mob %d: %w", info.TypeID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed mob catalog: %w", err)
	}

	c.mu.Lock()
	c.cache = make(map[int32]*world.MobInfo)
	c.miss = make(map[int32]struct{})
	c.mu.Unlock()

	c.logger.Info().Int("mobs", len(infos)).Msg("mob catalog seeded")
	return nil
}

// Import seeds the catalog from a YAML file with a top-level "mobs" list.
func (c *Catalog) Import(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read mob seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse mob seed: %w", err)
	}
	return c.Seed(ctx, f.Mobs)
}

// Count returns the number of catalogued mob types.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mob_info`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mob catalog: %w", err)
	}
	return n, nil
}

// Lookup returns the reference data for typeID. Results, including misses, are
// cached until the next Seed.
func (c *Catalog) Lookup(typeID int32) (*world.MobInfo, bool) {
	c.mu.RLock()
	info, hit := c.cache[typeID]
	_, missed := c.miss[typeID]
	c.mu.RUnlock()
	if hit {
		return info, true
	}
	if missed {
		return nil, false
	}

	info = &world.MobInfo{}
	err := c.db.QueryRowContext(context.Background(),
		`SELECT type_id, name, tier, category FROM mob_info WHERE type_id = ?`, typeID).
		Scan(&info.TypeID, &info.Name, &info.Tier, &info.Category)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err == nil:
		c.cache[typeID] = info
		return info, true
	case errors.Is(err, sql.ErrNoRows):
		c.miss[typeID] = struct{}{}
	default:
		c.logger.Warn().Err(err).Int32("type_id", typeID).Msg("mob lookup failed")
	}
	return nil, false
}
