package postgres

import (
	"context"
	"fmt"
	"time"
)

// ProcessedFile is one XMLFilesProcessed audit row: a single
// file-processing attempt and its outcome.
type ProcessedFile struct {
	ProcessedFileID  string
	OriginalFileName string
	MD5Hash          string // empty when the hash could not be computed
	Status           string
	SchemaVersionID  int64
}

// LogProcessedFile writes the audit row for one processing attempt. It
// runs on the store's own handle, outside any file transaction, so a
// failed ingestion still leaves its audit trail behind.
func (s *Store) LogProcessedFile(ctx context.Context, rec ProcessedFile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.XMLFilesProcessed
			(ProcessedFileID, OriginalFileName, MD5Hash, ProcessingTimestamp, Status, SchemaVersionID, DemographicGroup)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, quoteIdent(s.schema))

	var hash any
	if rec.MD5Hash != "" {
		hash = rec.MD5Hash
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.ProcessedFileID, rec.OriginalFileName, hash, time.Now().UTC(), rec.Status, rec.SchemaVersionID, nil)
	if err != nil {
		return fmt.Errorf("failed to log processed file %s: %w", rec.OriginalFileName, err)
	}

	ingestMetrics.filesProcessed.Add(ctx, 1)
	return nil
}
