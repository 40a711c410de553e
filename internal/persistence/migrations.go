package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Documents are stored as jsonb with a uuid primary key; each collection gets
// its own table plus whatever expression indexes its lookups need.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "create_users",
		sql: `CREATE TABLE IF NOT EXISTS users (
			id uuid PRIMARY KEY,
			doc jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT NOW(),
			updated_at timestamptz NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "create_users_email_unique",
		sql:  `CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users ((doc->>'email'))`,
	},
	{
		name: "create_users_reset_token_idx",
		sql:  `CREATE INDEX IF NOT EXISTS users_reset_token_idx ON users ((doc->>'passwordResetToken'))`,
	},
	{
		name: "create_jobs",
		sql: `CREATE TABLE IF NOT EXISTS jobs (
			id uuid PRIMARY KEY,
			doc jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT NOW(),
			updated_at timestamptz NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "create_jobs_provider_idx",
		sql:  `CREATE INDEX IF NOT EXISTS jobs_provider_idx ON jobs ((doc->>'provider'))`,
	},
	{
		name: "create_reviews",
		sql: `CREATE TABLE IF NOT EXISTS reviews (
			id uuid PRIMARY KEY,
			doc jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT NOW(),
			updated_at timestamptz NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "create_reviews_job_idx",
		sql:  `CREATE INDEX IF NOT EXISTS reviews_job_idx ON reviews ((doc->>'job'))`,
	},
	{
		name: "create_tours",
		sql: `CREATE TABLE IF NOT EXISTS tours (
			id uuid PRIMARY KEY,
			doc jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT NOW(),
			updated_at timestamptz NOT NULL DEFAULT NOW()
		)`,
	},
}

// RunMigrations creates the collection tables when they do not exist yet.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	for _, m := range migrations {
		logger.Info("applying migration", zap.String("name", m.name))
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(migrations)))
	return nil
}
