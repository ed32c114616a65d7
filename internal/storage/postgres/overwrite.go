package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/dambry/nemsis-ingest/internal/debug"
)

// DeleteForPCRs removes every row whose pcr_uuid_context matches one of
// the incoming PCR UUIDs, across all dynamic tables. It runs before any
// insert for the file, on the same transaction, so re-ingesting a file
// fully replaces the prior state of its PCRs.
//
// Returns the total number of rows deleted.
func (s *Store) DeleteForPCRs(ctx context.Context, qx Querier, pcrUUIDs []string) (int64, error) {
	if len(pcrUUIDs) == 0 {
		return 0, nil
	}

	tables, err := s.dynamicTables(ctx, qx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, table := range tables {
		cols, err := s.cache.Columns(ctx, qx, table)
		if err != nil {
			return total, err
		}
		if _, ok := cols["pcr_uuid_context"]; !ok {
			continue
		}
		for _, id := range pcrUUIDs {
			res, err := qx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE "pcr_uuid_context" = $1`, s.qualified(table)), id)
			if err != nil {
				return total, fmt.Errorf("failed to delete PCR %s from %s: %w", id, table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return total, fmt.Errorf("failed to count deleted rows in %s: %w", table, err)
			}
			if n > 0 {
				debug.Logf("deleted %d rows from %s for PCR %s\n", n, table, id)
			}
			total += n
		}
	}

	ingestMetrics.pcrRowsDeleted.Add(ctx, total)
	return total, nil
}

// dynamicTables enumerates the base tables of the configured schema,
// excluding the fixed audit tables and catalog-prefixed names.
func (s *Store) dynamicTables(ctx context.Context, qx Querier) ([]string, error) {
	rows, err := qx.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
	`, s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tables in %s: %w", s.schema, err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if isAuditTable(name) || strings.HasPrefix(name, "pg_") {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to enumerate tables in %s: %w", s.schema, err)
	}
	return tables, nil
}

// isAuditTable matches the fixed audit tables regardless of the case the
// catalog reports (unquoted DDL folds them to lowercase).
func isAuditTable(name string) bool {
	return strings.EqualFold(name, TableSchemaVersions) || strings.EqualFold(name, TableXMLFilesProcessed)
}
