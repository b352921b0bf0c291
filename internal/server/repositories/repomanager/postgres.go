package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/nibblelog/internal/dbx"
	"github.com/dmitrijs2005/nibblelog/internal/server/migrations"
	"github.com/dmitrijs2005/nibblelog/internal/server/repositories/deltas"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// Deltas returns a deltas.Repository bound to the provided DBTX.
// Appends must run inside a transaction for the advisory lock to hold.
func (m *PostgresRepositoryManager) Deltas(db dbx.DBTX) deltas.Repository {
	return deltas.NewPostgresRepository(db)
}

// RunMigrations applies the embedded postgres migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.PostgresDir)
}
