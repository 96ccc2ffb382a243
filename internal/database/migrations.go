package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// Migrator brings the user_profiles and scan_history schema up to date on
// startup.
type Migrator struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrator creates a migrator reading migration files from sourcePath.
func NewMigrator(databaseURL, sourcePath string, logger *logrus.Logger) (*Migrator, error) {
	m, err := migrate.New(fmt.Sprintf("file://%s", sourcePath), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}

	return &Migrator{
		migrate: m,
		log:     logger,
	}, nil
}

// Up applies all pending migrations. The context is checked before
// starting; golang-migrate runs each migration to completion once begun.
func (mg *Migrator) Up(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := mg.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying schema migrations: %w", err)
	}

	version, dirty, err := mg.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}

	mg.log.WithFields(logrus.Fields{
		"schema_version": version,
		"dirty":          dirty,
	}).Info("Database schema up to date")

	return nil
}

// Close releases the migrator's source and database handles.
func (mg *Migrator) Close() error {
	sourceErr, dbErr := mg.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}
