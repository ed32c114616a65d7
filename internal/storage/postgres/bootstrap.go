package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Bootstrap creates the target schema and the fixed audit tables, then
// seeds SchemaVersions with the current ingestion logic version if the
// table is empty. All steps are idempotent; running setup twice is safe.
func (s *Store) Bootstrap(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin bootstrap transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.schema != "public" {
		if _, err := tx.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(s.schema)); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", s.schema, err)
		}
	}

	schemaVersionsDDL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.SchemaVersions (
			SchemaVersionID SERIAL PRIMARY KEY,
			VersionNumber TEXT NOT NULL UNIQUE,
			CreationDate TIMESTAMPTZ NOT NULL,
			UpdateDate TIMESTAMPTZ,
			Description TEXT,
			DemographicGroup TEXT
		)`, quoteIdent(s.schema))
	if _, err := tx.ExecContext(ctx, schemaVersionsDDL); err != nil {
		return fmt.Errorf("failed to create SchemaVersions: %w", err)
	}

	filesProcessedDDL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.XMLFilesProcessed (
			ProcessedFileID TEXT PRIMARY KEY,
			OriginalFileName TEXT NOT NULL,
			MD5Hash TEXT,
			ProcessingTimestamp TIMESTAMPTZ NOT NULL,
			Status TEXT NOT NULL,
			SchemaVersionID INTEGER,
			DemographicGroup TEXT,
			FOREIGN KEY (SchemaVersionID) REFERENCES %s.SchemaVersions(SchemaVersionID)
		)`, quoteIdent(s.schema), quoteIdent(s.schema))
	if _, err := tx.ExecContext(ctx, filesProcessedDDL); err != nil {
		return fmt.Errorf("failed to create XMLFilesProcessed: %w", err)
	}

	var count int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s.SchemaVersions", quoteIdent(s.schema))
	if err := tx.QueryRowContext(ctx, countQuery).Scan(&count); err != nil {
		return fmt.Errorf("failed to count schema versions: %w", err)
	}
	if count == 0 {
		seed := fmt.Sprintf(`
			INSERT INTO %s.SchemaVersions (VersionNumber, CreationDate, Description, DemographicGroup)
			VALUES ($1, $2, $3, $4)`, quoteIdent(s.schema))
		if _, err := tx.ExecContext(ctx, seed, IngestionLogicVersion, time.Now().UTC(), ingestionLogicDescription, nil); err != nil {
			return fmt.Errorf("failed to seed schema version %s: %w", IngestionLogicVersion, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bootstrap: %w", err)
	}
	return nil
}

// IngestionSchemaVersionID looks up the SchemaVersions row for a version
// number. found is false when no row exists, which means setup has not
// been run against this schema.
func (s *Store) IngestionSchemaVersionID(ctx context.Context, version string) (id int64, found bool, err error) {
	query := fmt.Sprintf("SELECT SchemaVersionID FROM %s.SchemaVersions WHERE VersionNumber = $1", quoteIdent(s.schema))
	err = s.db.QueryRowContext(ctx, query, version).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up schema version %s: %w", version, err)
	}
	return id, true, nil
}
