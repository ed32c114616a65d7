package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dambry/nemsis-ingest/internal/debug"
	"github.com/dambry/nemsis-ingest/internal/nemsisxml"
	"github.com/dambry/nemsis-ingest/internal/sanitize"
)

// ErrEmptyIdentifier is returned when a table suggestion sanitizes to
// nothing. The pipeline treats the element as unstageable and fails the
// file.
var ErrEmptyIdentifier = errors.New("identifier is empty after sanitization")

// EnsureTable makes sure the dynamic table for tableSuggestion exists and
// carries a column for every sanitized attribute, creating the table or
// adding columns as needed. It returns the sanitized table name and the
// reconciled column set.
//
// All DDL runs on qx, so it participates in the caller's transaction and
// is undone by rollback.
func (s *Store) EnsureTable(ctx context.Context, qx Querier, tableSuggestion string, attrs map[string]string) (string, map[string]struct{}, error) {
	table := sanitize.Truncate(sanitize.Name(tableSuggestion))
	if table == "" {
		return "", nil, fmt.Errorf("table suggestion %q: %w", tableSuggestion, ErrEmptyIdentifier)
	}

	cols, err := s.cache.Columns(ctx, qx, table)
	if err != nil {
		return "", nil, err
	}

	if len(cols) == 0 {
		if err := s.createTable(ctx, qx, table, attrs); err != nil {
			return "", nil, err
		}
		cols, err = s.cache.Columns(ctx, qx, table)
		if err != nil {
			return "", nil, err
		}
	}

	for _, attr := range sortedAttributeColumns(attrs) {
		if _, ok := cols[attr]; ok {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", s.qualified(table), quoteIdent(attr))
		if _, err := qx.ExecContext(ctx, ddl); err != nil {
			return "", nil, fmt.Errorf("failed to add column %s to %s: %w", attr, table, err)
		}
		debug.Logf("added column %s.%s\n", table, attr)
		s.cache.Add(table, attr)
		ingestMetrics.columnsAdded.Add(ctx, 1)
	}

	return table, cols, nil
}

// createTable issues CREATE TABLE IF NOT EXISTS with the five common
// columns plus one TEXT column per sanitized attribute, then records the
// element path as the table comment when the element carries one.
func (s *Store) createTable(ctx context.Context, qx Querier, table string, attrs map[string]string) error {
	defs := []string{
		quoteIdent("element_id") + " TEXT PRIMARY KEY",
		quoteIdent("parent_element_id") + " TEXT",
		quoteIdent("pcr_uuid_context") + " TEXT",
		quoteIdent("original_tag_name") + " TEXT",
		quoteIdent("text_content") + " TEXT",
	}
	created := make(map[string]struct{}, len(commonColumns)+len(attrs))
	for _, c := range commonColumns {
		created[c] = struct{}{}
	}
	for _, attr := range sortedAttributeColumns(attrs) {
		defs = append(defs, quoteIdent(attr)+" TEXT")
		created[attr] = struct{}{}
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.qualified(table), strings.Join(defs, ", "))
	if _, err := qx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	debug.Logf("created table %s\n", table)
	ingestMetrics.tablesCreated.Add(ctx, 1)

	if path := attrs[nemsisxml.PathAttribute]; path != "" {
		comment := fmt.Sprintf("COMMENT ON TABLE %s IS %s", s.qualified(table), quoteLiteral(path))
		if _, err := qx.ExecContext(ctx, comment); err != nil {
			return fmt.Errorf("failed to comment table %s: %w", table, err)
		}
	}

	s.cache.SetColumns(table, created)
	return nil
}

// sortedAttributeColumns maps raw attribute names to sanitized column
// names, drops names that sanitize to nothing or collide with common
// columns, and returns them sorted. Sorting keeps DDL reproducible; two
// raw attributes sanitizing to the same identifier collapse into one
// column.
func sortedAttributeColumns(attrs map[string]string) []string {
	seen := make(map[string]struct{}, len(attrs))
	out := make([]string, 0, len(attrs))
	for raw := range attrs {
		name := sanitize.Truncate(sanitize.Name(raw))
		if name == "" {
			continue
		}
		if _, ok := commonColumnSet[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// quoteLiteral single-quotes a SQL string literal. COMMENT ON cannot take
// a bind parameter, so the path is embedded directly.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
