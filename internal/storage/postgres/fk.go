package postgres

import (
	"context"
	"crypto/md5" // #nosec G501 - identifier fingerprint, not security
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dambry/nemsis-ingest/internal/debug"
	"github.com/dambry/nemsis-ingest/internal/sanitize"
)

// TablePair is a (child, parent) relationship observed during insertion:
// child rows carry parent_element_id values referencing parent rows.
type TablePair struct {
	Child  string
	Parent string
}

// ForeignKeyName derives the constraint name for a child->parent pair.
//
// The ideal name fk_<child>_<parent> is used verbatim when it fits the
// 63-byte identifier cap. Otherwise both table parts are truncated into a
// shared budget (child gets the floor half, parent the remainder) and a
// 6-hex MD5 fingerprint of the ideal name is appended so distinct long
// pairs cannot collide after truncation.
//
// The result is a pure function of the pair: equal pairs always yield
// equal names, which the existence check depends on.
func ForeignKeyName(child, parent string) string {
	ideal := "fk_" + child + "_" + parent
	if len(ideal) <= sanitize.MaxIdentifierLen {
		return ideal
	}

	sum := md5.Sum([]byte(ideal)) // #nosec G401
	hash := hex.EncodeToString(sum[:])[:6]

	// Budget for "<child>_<parent>" once the prefix, hash, and the
	// separator before the hash are accounted for.
	maxTablesPart := sanitize.MaxIdentifierLen - len("fk_") - len(hash) - 1

	childPart, parentPart := child, parent
	if len(childPart)+1+len(parentPart) > maxTablesPart {
		avail := maxTablesPart - 1
		maxChild := avail / 2
		if len(childPart) > maxChild {
			childPart = childPart[:maxChild]
		}
		maxParent := avail - maxChild
		if len(parentPart) > maxParent {
			parentPart = parentPart[:maxParent]
		}
		if len(childPart)+1+len(parentPart) > maxTablesPart {
			childPart = childPart[:avail-len(parentPart)-1]
		}
	}

	name := "fk_" + childPart + "_" + parentPart + "_" + hash
	if len(name) > sanitize.MaxIdentifierLen {
		name = name[:sanitize.MaxIdentifierLen]
	}
	return name
}

// EnsureForeignKey creates the FK constraint for a pair unless it already
// exists. The constraint enforces child.parent_element_id ->
// parent.element_id with ON DELETE CASCADE, so a PCR overwrite that
// deletes parent rows sweeps orphaned children with it.
//
// A failed ALTER (for example a dangling parent reference in historical
// data) is fatal for the file; the caller's rollback undoes the whole
// ingestion.
func (s *Store) EnsureForeignKey(ctx context.Context, qx Querier, pair TablePair) (bool, error) {
	child := strings.ToLower(pair.Child)
	parent := strings.ToLower(pair.Parent)
	name := ForeignKeyName(pair.Child, pair.Parent)

	var existing string
	err := qx.QueryRowContext(ctx, `
		SELECT constraint_name FROM information_schema.table_constraints
		WHERE table_schema = $1 AND table_name = $2 AND constraint_name = $3
	`, s.schema, child, name).Scan(&existing)
	if err == nil {
		debug.Logf("fk %s already present on %s\n", name, child)
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to check constraint %s on %s: %w", name, child, err)
	}

	ddl := fmt.Sprintf(
		`ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY ("parent_element_id") REFERENCES %s ("element_id") ON DELETE CASCADE`,
		s.qualified(child), quoteIdent(name), s.qualified(parent))
	if _, err := qx.ExecContext(ctx, ddl); err != nil {
		return false, fmt.Errorf("failed to create constraint %s on %s referencing %s: %w", name, child, parent, err)
	}
	debug.Logf("created fk %s: %s -> %s\n", name, child, parent)
	return true, nil
}
