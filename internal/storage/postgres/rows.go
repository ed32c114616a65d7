package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dambry/nemsis-ingest/internal/nemsisxml"
	"github.com/dambry/nemsis-ingest/internal/sanitize"
)

// WriteElement projects one element onto the reconciled column set and
// inserts it as a single parameterized row. cols must come from
// EnsureTable for the same element; an attribute column missing from it
// indicates a reconciliation bug and fails the insert.
func (s *Store) WriteElement(ctx context.Context, qx Querier, table string, cols map[string]struct{}, el *nemsisxml.Element) error {
	row := buildRow(el)

	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	colSQL := make([]string, 0, len(names))
	placeholders := make([]string, 0, len(names))
	values := make([]any, 0, len(names))
	for _, name := range names {
		if _, ok := cols[name]; !ok {
			if _, common := commonColumnSet[name]; common {
				return fmt.Errorf("table %s is missing common column %s", table, name)
			}
			return fmt.Errorf("table %s has no column %s after reconciliation", table, name)
		}
		colSQL = append(colSQL, quoteIdent(name))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(values)+1))
		values = append(values, row[name])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.qualified(table), strings.Join(colSQL, ", "), strings.Join(placeholders, ", "))
	if _, err := qx.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to insert element %s into %s: %w", el.ElementID, table, err)
	}

	ingestMetrics.rowsInserted.Add(ctx, 1)
	return nil
}

// buildRow maps an element to column -> value. Empty strings become SQL
// NULLs for the nullable common columns. Attributes are folded in sorted
// raw-key order, so when two raw names sanitize to the same column the
// lexicographically last one wins, deterministically.
func buildRow(el *nemsisxml.Element) map[string]any {
	row := map[string]any{
		"element_id":        el.ElementID,
		"parent_element_id": nullable(el.ParentElementID),
		"pcr_uuid_context":  nullable(el.PCRUUIDContext),
		"original_tag_name": el.ElementTag,
		"text_content":      nullable(el.TextContent),
	}

	keys := make([]string, 0, len(el.Attributes))
	for k := range el.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := sanitize.Truncate(sanitize.Name(k))
		if name == "" {
			continue
		}
		if _, common := commonColumnSet[name]; common {
			continue
		}
		row[name] = el.Attributes[k]
	}
	return row
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
