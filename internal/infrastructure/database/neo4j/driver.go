// Package neo4j provides the policy knowledge graph sink.
package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// Driver wraps the vendor driver with the session defaults the repositories
// assume.
type Driver struct {
	driver   neo4j.DriverWithContext
	database string
	logger   logging.Logger
}

// NewDriver connects and verifies reachability.
func NewDriver(ctx context.Context, cfg config.Neo4jConfig, log logging.Logger) (*Driver, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectionTimeout > 0 {
				c.SocketConnectTimeout = cfg.ConnectionTimeout
			}
		})
	if err != nil {
		return nil, errors.New(errors.ErrCodeDatabaseError, "create neo4j driver").WithCause(err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.New(errors.ErrCodeDatabaseError, "neo4j connectivity check failed").WithCause(err)
	}

	log.Info("neo4j connected", logging.String("uri", cfg.URI))
	return &Driver{driver: driver, database: cfg.Database, logger: log.Named("neo4j")}, nil
}

// ExecuteWrite runs work inside a managed write transaction.
func (d *Driver) ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: d.database,
	})
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, work)
}

// ExecuteRead runs work inside a managed read transaction.
func (d *Driver) ExecuteRead(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: d.database,
	})
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

// Close releases every pooled connection.
func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}
