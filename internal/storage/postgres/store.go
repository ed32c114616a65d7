// Package postgres implements the dynamic staging store: schema
// reconciliation, PCR overwrite, row insertion, and foreign-key planning
// over a PostgreSQL database.
package postgres

import (
	"context"
	"database/sql"
)

// Audit table names. These are fixed-schema tables excluded from dynamic
// table enumeration.
const (
	TableSchemaVersions    = "SchemaVersions"
	TableXMLFilesProcessed = "XMLFilesProcessed"
)

// IngestionLogicVersion identifies the ingestion logic, not the data
// schema (which is dynamic). Bootstrap seeds it into SchemaVersions.
const IngestionLogicVersion = "1.0.0-dynamic-ingestor-v4"

const ingestionLogicDescription = "Dynamic table logic v4 (PCR UUID based overwrite)."

// Processing statuses written to XMLFilesProcessed.Status.
const (
	StatusStaged            = "Staged_Dynamic_PG_V4"
	StatusErrorMD5          = "Error_MD5"
	StatusErrorFileNotFound = "Error_FileNotFound"
	StatusErrorParsingEmpty = "Error_Parsing_Empty"
	StatusErrorStagingTx    = "Error_Staging_Tx_PG_V4"
	StatusErrorUnexpected   = "Error_Unexpected_PG_V4"
)

// commonColumns are present on every dynamic table, in creation order.
// element_id is the primary key.
var commonColumns = []string{
	"element_id",
	"parent_element_id",
	"pcr_uuid_context",
	"original_tag_name",
	"text_content",
}

var commonColumnSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(commonColumns))
	for _, c := range commonColumns {
		m[c] = struct{}{}
	}
	return m
}()

// Querier is the subset of database/sql satisfied by both *sql.DB and
// *sql.Tx. All DDL and DML of the staging path funnels through the
// pipeline's transaction handle via this interface, so a whole file
// commits or rolls back as one unit.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the database handle, the target schema name, and the
// per-process schema cache.
type Store struct {
	db     *sql.DB
	schema string
	cache  *SchemaCache
}

// NewStore wraps an already-open handle. Open is the normal entry point;
// this exists for embedders and tests that manage the connection
// themselves.
func NewStore(db *sql.DB, schema string) *Store {
	return &Store{
		db:     db,
		schema: schema,
		cache:  NewSchemaCache(schema),
	}
}

// DB exposes the underlying handle for transaction control.
func (s *Store) DB() *sql.DB { return s.db }

// Schema returns the configured target schema name.
func (s *Store) Schema() string { return s.schema }

// Cache returns the store's schema cache.
func (s *Store) Cache() *SchemaCache { return s.cache }

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// quoteIdent double-quotes an identifier. Identifiers reaching this point
// are sanitized or validated, so no embedded quotes need escaping.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// qualified returns a schema-qualified, quoted table reference.
func (s *Store) qualified(table string) string {
	return quoteIdent(s.schema) + "." + quoteIdent(table)
}
