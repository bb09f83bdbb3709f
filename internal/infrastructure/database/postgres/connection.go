// Package postgres provides the decision store: a pooled connection plus
// schema migrations for the learning_decisions audit table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

const connectTimeout = 5 * time.Second

// DSN renders the connection string for cfg.
func DSN(cfg config.PostgresConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)
}

// Connect opens a pooled connection and verifies it with a ping.
func Connect(cfg config.PostgresConfig, log logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return nil, errors.New(errors.ErrCodeDatabaseError, "open postgres connection").WithCause(err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.New(errors.ErrCodeDatabaseError, "postgres ping failed").WithCause(err)
	}

	log.Info("postgres connected",
		logging.String("host", cfg.Host),
		logging.String("database", cfg.DBName))
	return db, nil
}

// RunMigrations applies every pending migration from cfg.MigrationsDir.
func RunMigrations(cfg config.PostgresConfig, log logging.Logger) error {
	m, err := migrate.New("file://"+cfg.MigrationsDir, DSN(cfg))
	if err != nil {
		return errors.New(errors.ErrCodeDatabaseError, "open migration source").WithCause(err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn("closing migrator",
				logging.Any("source_err", srcErr), logging.Any("db_err", dbErr))
		}
	}()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.New(errors.ErrCodeDatabaseError, "apply migrations").WithCause(err)
	}
	version, dirty, _ := m.Version()
	log.Info("migrations applied",
		logging.Any("version", version), logging.Bool("dirty", dirty))
	return nil
}
