package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/dambry/nemsis-ingest/internal/debug"
)

// SchemaCache memoizes table -> column-set lookups for one schema.
//
// The reconciler asks for column sets once per element; without the memo,
// catalog queries would dominate ingestion time. The cache is a value owned
// by its pipeline, never shared across workers, and is invalidated between
// files so concurrent DDL from another ingester is picked up at the next
// file boundary.
type SchemaCache struct {
	schema string
	tables map[string]map[string]struct{}
}

// NewSchemaCache returns an empty cache for the given schema.
func NewSchemaCache(schema string) *SchemaCache {
	return &SchemaCache{
		schema: schema,
		tables: make(map[string]map[string]struct{}),
	}
}

// Columns returns the column set of a table, querying
// information_schema.columns on first sight and memoizing the answer.
// A table that does not exist yields an empty set, not an error.
// The table name must already be sanitized.
func (c *SchemaCache) Columns(ctx context.Context, qx Querier, table string) (map[string]struct{}, error) {
	key := strings.ToLower(table)
	if cols, ok := c.tables[key]; ok {
		return cols, nil
	}

	cols := make(map[string]struct{})
	rows, err := qx.QueryContext(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
	`, c.schema, key)
	if err != nil {
		// Catalog lookups treat a missing relation as an empty set.
		if strings.Contains(strings.ToLower(err.Error()), "does not exist") {
			c.tables[key] = cols
			return cols, nil
		}
		return nil, fmt.Errorf("failed to read columns of %s.%s: %w", c.schema, key, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		cols[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns of %s.%s: %w", c.schema, key, err)
	}

	c.tables[key] = cols
	return cols, nil
}

// SetColumns replaces the cached column set for a freshly created table.
func (c *SchemaCache) SetColumns(table string, cols map[string]struct{}) {
	c.tables[strings.ToLower(table)] = cols
}

// Add records a newly added column on a cached table.
func (c *SchemaCache) Add(table, column string) {
	key := strings.ToLower(table)
	if cols, ok := c.tables[key]; ok {
		cols[column] = struct{}{}
	}
}

// InvalidateAll drops every memoized entry. Called at the end of each file,
// success or failure.
func (c *SchemaCache) InvalidateAll() {
	if len(c.tables) > 0 {
		debug.Logf("schema cache invalidated (%d tables)\n", len(c.tables))
	}
	c.tables = make(map[string]map[string]struct{})
}
