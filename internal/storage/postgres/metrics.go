package postgres

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// ingestMetrics holds OTel metric instruments for the staging store.
// Instruments are registered against the global delegating provider at
// init time, so they forward to a real provider if an embedder installs
// one; otherwise they are no-ops.
var ingestMetrics struct {
	rowsInserted   metric.Int64Counter
	tablesCreated  metric.Int64Counter
	columnsAdded   metric.Int64Counter
	pcrRowsDeleted metric.Int64Counter
	filesProcessed metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/dambry/nemsis-ingest/storage/postgres")
	ingestMetrics.rowsInserted, _ = m.Int64Counter("nemsis.db.rows_inserted",
		metric.WithDescription("Element rows inserted into dynamic tables"),
		metric.WithUnit("{row}"),
	)
	ingestMetrics.tablesCreated, _ = m.Int64Counter("nemsis.db.tables_created",
		metric.WithDescription("Dynamic tables created on first observation"),
		metric.WithUnit("{table}"),
	)
	ingestMetrics.columnsAdded, _ = m.Int64Counter("nemsis.db.columns_added",
		metric.WithDescription("Attribute columns added to existing dynamic tables"),
		metric.WithUnit("{column}"),
	)
	ingestMetrics.pcrRowsDeleted, _ = m.Int64Counter("nemsis.db.pcr_rows_deleted",
		metric.WithDescription("Rows deleted by PCR overwrite before re-ingestion"),
		metric.WithUnit("{row}"),
	)
	ingestMetrics.filesProcessed, _ = m.Int64Counter("nemsis.files_processed",
		metric.WithDescription("XML file processing attempts audited"),
		metric.WithUnit("{file}"),
	)
}
