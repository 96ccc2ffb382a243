// Package database manages the PostgreSQL connection pool and schema
// migrations backing the profile repository and the Postgres history
// backend.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/domain"
)

// DB wraps the shared pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewConnection opens the connection pool from the server's database
// configuration and verifies it with a ping before handing it out.
func NewConnection(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      cfg.Host,
		"database":  cfg.Database,
		"max_conns": cfg.MaxOpenConns,
	}).Info("Connected to PostgreSQL")

	return &DB{
		Pool: pool,
		log:  logger,
	}, nil
}

// buildDSN renders the keyword/value connection string pgx expects.
func buildDSN(cfg domain.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, cfg.SSLMode,
	)
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.Info("Database connection pool closed")
	}
}

// Health checks the database connection, for the health endpoint.
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
