package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Trewaters/soar-sub011/internal/config"
	storepkg "github.com/Trewaters/soar-sub011/internal/store"
	"github.com/Trewaters/soar-sub011/internal/store/memstore"
	storepg "github.com/Trewaters/soar-sub011/internal/store/postgres"
	storesqlite "github.com/Trewaters/soar-sub011/internal/store/sqlite"
)

// NewStore opens the store selected by cfg.StoreDriver, ensures its schema
// and loads cfg.SeedFile when one is configured.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	var st storepkg.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		st = memstore.New()
	case config.DriverSQLite:
		db, err := storesqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		st = storesqlite.NewWithDB(db)
	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("SOAR_POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		bctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout())
		err = storepg.Bootstrap(bctx, db)
		cancel()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		st = storepg.NewWithDB(db)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER: %s", cfg.StoreDriver)
	}
	log.Debug().Str("driver", cfg.StoreDriver).Msg("store opened")

	if cfg.SeedFile != "" {
		if err := seedIfEmpty(ctx, st, cfg.SeedFile, log); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
		}
	}
	return st, nil
}

// seedIfEmpty loads path into st unless st already holds library rows. Persistent
// drivers keep the rows of an earlier start.
func seedIfEmpty(ctx context.Context, st storepkg.Store, path string, log zerolog.Logger) error {
	empty, err := storepkg.Empty(ctx, st)
	if err != nil {
		return err
	}
	if !empty {
		log.Info().Str("file", path).Msg("store already populated, seed skipped")
		return nil
	}
	n, err := storepkg.SeedPath(ctx, st, path)
	if err != nil {
		return err
	}
	log.Info().Int("items", n).Str("file", path).Msg("store seeded")
	return nil
}
