// Package storage opens the delta log database and keeps the handle that
// services share for the lifetime of the process.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/nibblelog/internal/dbx"
	"github.com/dmitrijs2005/nibblelog/internal/server/repositories/deltas"
	"github.com/dmitrijs2005/nibblelog/internal/server/repositories/repomanager"
)

// Store is an open database together with the repository manager that
// matches its dialect.
type Store struct {
	DB      *sql.DB
	Manager repomanager.RepositoryManager
	Driver  string
}

var sqlDrivers = map[string]string{
	repomanager.DriverPostgres: "pgx",
	repomanager.DriverSQLite:   "sqlite",
}

// Open connects to dsn with driver ("postgres" or "sqlite"), verifies the
// connection and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	manager, err := repomanager.New(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(sqlDrivers[driver], dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == repomanager.DriverSQLite {
		// one writer; also keeps ":memory:" databases alive on a single connection
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := manager.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &Store{DB: db, Manager: manager, Driver: driver}, nil
}

// Deltas returns the delta repository bound to db, which may be the store's
// *sql.DB or a transaction opened on it.
func (s *Store) Deltas(db dbx.DBTX) deltas.Repository {
	return s.Manager.Deltas(db)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.DB.Close()
}
