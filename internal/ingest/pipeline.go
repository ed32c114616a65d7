// Package ingest orchestrates per-file staging: hash, parse, overwrite,
// insert, foreign keys, audit, and archive, one transaction per file.
package ingest

import (
	"context"
	"crypto/md5" // #nosec G501 - file fingerprint for the audit trail
	"database/sql"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dambry/nemsis-ingest/internal/archive"
	"github.com/dambry/nemsis-ingest/internal/debug"
	"github.com/dambry/nemsis-ingest/internal/nemsisxml"
	"github.com/dambry/nemsis-ingest/internal/sanitize"
	"github.com/dambry/nemsis-ingest/internal/storage/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// missingFileHash is the MD5 sentinel audited when the input file never
// existed, so the attempt is still traceable.
const missingFileHash = "N/A"

// Pipeline processes XML files against one store. It is single-threaded:
// callers running multiple pipelines in parallel must partition input so
// no two concurrent files share a PCR UUID; nothing here coordinates that.
type Pipeline struct {
	store           *postgres.Store
	schemaVersionID int64
	archiveDir      string
	errorDir        string
}

// New returns a pipeline writing audit rows against the given ingestion
// schema version.
func New(store *postgres.Store, schemaVersionID int64, archiveDir, errorDir string) *Pipeline {
	return &Pipeline{
		store:           store,
		schemaVersionID: schemaVersionID,
		archiveDir:      archiveDir,
		errorDir:        errorDir,
	}
}

// ProcessFile ingests one XML file. On success the file's data is
// committed, an audit row is written, and the file moves to the archive
// directory. On failure the transaction is rolled back, an Error_* audit
// row is written, and the file is quarantined in the error directory.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) error {
	defer p.store.Cache().InvalidateAll()

	processedID := uuid.NewString()
	fileName := filepath.Base(path)

	hash, err := fileMD5(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			p.audit(ctx, processedID, fileName, missingFileHash, postgres.StatusErrorFileNotFound)
			return fmt.Errorf("input file not found: %w", err)
		}
		p.audit(ctx, processedID, fileName, "", postgres.StatusErrorMD5)
		p.quarantine(path)
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}

	elements, err := nemsisxml.ParseFile(path)
	if err != nil || len(elements) == 0 {
		p.audit(ctx, processedID, fileName, hash, postgres.StatusErrorParsingEmpty)
		p.quarantine(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return fmt.Errorf("no elements parsed from %s", path)
	}

	pcrUUIDs := nemsisxml.UniquePCRUUIDs(elements)
	debug.Logf("processing %s: %d elements, %d PCR(s)\n", fileName, len(elements), len(pcrUUIDs))

	if err := p.stage(ctx, elements, pcrUUIDs); err != nil {
		p.audit(ctx, processedID, fileName, hash, stagingStatus(err))
		p.quarantine(path)
		return fmt.Errorf("staging %s: %w", fileName, err)
	}

	p.audit(ctx, processedID, fileName, hash, postgres.StatusStaged)
	if err := archive.Archive(path, p.archiveDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: data staged for %s but archiving failed: %v\n", fileName, err)
	}
	return nil
}

// stage runs the transactional portion: PCR overwrite, per-element
// reconcile+insert, and the foreign-key pass. Everything, DDL included,
// commits or rolls back as one unit.
func (p *Pipeline) stage(ctx context.Context, elements []*nemsisxml.Element, pcrUUIDs []string) error {
	tx, err := p.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(pcrUUIDs) > 0 {
		deleted, err := p.store.DeleteForPCRs(ctx, tx, pcrUUIDs)
		if err != nil {
			return err
		}
		if deleted > 0 {
			debug.Logf("overwrote %d existing rows for %d PCR(s)\n", deleted, len(pcrUUIDs))
		}
	}

	fkPairs := make(map[postgres.TablePair]struct{})
	for _, el := range elements {
		table, cols, err := p.store.EnsureTable(ctx, tx, el.TableSuggestion, el.Attributes)
		if err != nil {
			return err
		}

		if el.ParentElementID != "" && el.ParentTableSuggestion != "" {
			parent := sanitize.Truncate(sanitize.Name(el.ParentTableSuggestion))
			if parent != "" {
				fkPairs[postgres.TablePair{Child: table, Parent: parent}] = struct{}{}
			}
		}

		if err := p.store.WriteElement(ctx, tx, table, cols, el); err != nil {
			return err
		}
	}

	for _, pair := range sortedPairs(fkPairs) {
		if _, err := p.store.EnsureForeignKey(ctx, tx, pair); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// sortedPairs orders the observed (child, parent) pairs so constraint
// creation, and therefore the audit log, is reproducible across runs.
func sortedPairs(pairs map[postgres.TablePair]struct{}) []postgres.TablePair {
	out := make([]postgres.TablePair, 0, len(pairs))
	for pair := range pairs {
		out = append(out, pair)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Child != out[j].Child {
			return out[i].Child < out[j].Child
		}
		return out[i].Parent < out[j].Parent
	})
	return out
}

// stagingStatus classifies a transactional failure for the audit trail:
// database-side errors audit as staging failures, anything else as
// unexpected.
func stagingStatus(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return postgres.StatusErrorStagingTx
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return postgres.StatusErrorStagingTx
	}
	if errors.Is(err, postgres.ErrEmptyIdentifier) {
		return postgres.StatusErrorStagingTx
	}
	return postgres.StatusErrorUnexpected
}

// audit writes the attempt's audit row on a fresh implicit transaction.
// Audit failure never masks the processing outcome; it is reported and
// dropped.
func (p *Pipeline) audit(ctx context.Context, processedID, fileName, hash, status string) {
	err := p.store.LogProcessedFile(ctx, postgres.ProcessedFile{
		ProcessedFileID:  processedID,
		OriginalFileName: fileName,
		MD5Hash:          hash,
		Status:           status,
		SchemaVersionID:  p.schemaVersionID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to audit %s (%s): %v\n", fileName, status, err)
	}
}

// quarantine moves a failed file to the error directory. Best effort; the
// processing error is what the caller reports.
func (p *Pipeline) quarantine(path string) {
	if err := archive.Quarantine(path, p.errorDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to quarantine %s: %v\n", path, err)
	}
}

// fileMD5 hashes the file contents for the audit trail.
func fileMD5(path string) (string, error) {
	// #nosec G304 - operator-supplied input path
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := md5.New() // #nosec G401
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
