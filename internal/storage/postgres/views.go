package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// eAirwayViewName is the reporting view aggregating the 0:M eAirway
// relationships per PCR.
const eAirwayViewName = "v_eairway_comprehensive"

// eAirwaySourceTables are the dynamic tables the view reads. They only
// exist once ingested data has produced them.
var eAirwaySourceTables = []string{
	"eairway_01",
	"eairway_04",
	"eairway_08",
	"eairway_09",
	"eairway_confirmationgroup",
}

// CreateEAirwayView drops and recreates the eAirway comprehensive
// reporting view. The 0:M fields (indications, complications, failure
// reasons, confirmation methods) are aggregated as sorted
// semicolon-separated lists per PCR.
//
// Returns false without error when any of the source tables does not exist
// yet; the view would reference missing relations, so there is nothing to do.
func (s *Store) CreateEAirwayView(ctx context.Context) (bool, error) {
	present, err := s.existingTables(ctx, eAirwaySourceTables)
	if err != nil {
		return false, err
	}
	if len(present) < len(eAirwaySourceTables) {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin view transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	drop := fmt.Sprintf("DROP VIEW IF EXISTS %s CASCADE", s.qualified(eAirwayViewName))
	if _, err := tx.ExecContext(ctx, drop); err != nil {
		return false, fmt.Errorf("failed to drop %s: %w", eAirwayViewName, err)
	}
	if _, err := tx.ExecContext(ctx, s.eAirwayViewSQL()); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", eAirwayViewName, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit view creation: %w", err)
	}
	return true, nil
}

// existingTables returns which of the given tables are present in the
// configured schema.
func (s *Store) existingTables(ctx context.Context, names []string) ([]string, error) {
	var present []string
	for _, name := range names {
		var one int
		err := s.db.QueryRowContext(ctx, `
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		`, s.schema, name).Scan(&one)
		if err == nil {
			present = append(present, name)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check table %s: %w", name, err)
		}
	}
	return present, nil
}

// eAirwayViewSQL builds the CREATE VIEW statement. The aggregation lists
// collapse duplicate values and order them for stable reporting output.
func (s *Store) eAirwayViewSQL() string {
	q := func(table string) string { return s.qualified(table) }
	return fmt.Sprintf(`
CREATE VIEW %s AS
WITH airway_indications AS (
    SELECT pcr_uuid_context,
           STRING_AGG(DISTINCT eairway_01_value, '; ' ORDER BY eairway_01_value) AS indications_list
    FROM %s
    WHERE eairway_01_value IS NOT NULL AND eairway_01_value != ''
    GROUP BY pcr_uuid_context
),
airway_complications AS (
    SELECT pcr_uuid_context,
           STRING_AGG(DISTINCT eairway_08_value, '; ' ORDER BY eairway_08_value) AS complications_list
    FROM %s
    WHERE eairway_08_value IS NOT NULL AND eairway_08_value != ''
    GROUP BY pcr_uuid_context
),
airway_failure_reasons AS (
    SELECT pcr_uuid_context,
           STRING_AGG(DISTINCT eairway_09_value, '; ' ORDER BY eairway_09_value) AS failure_reasons_list
    FROM %s
    WHERE eairway_09_value IS NOT NULL AND eairway_09_value != ''
    GROUP BY pcr_uuid_context
),
airway_confirmation_methods AS (
    SELECT cg.pcr_uuid_context,
           STRING_AGG(DISTINCT a04.eairway_04_value, '; ' ORDER BY a04.eairway_04_value) AS confirmation_methods_list
    FROM %s cg
    LEFT JOIN %s a04 ON a04.parent_element_id = cg.element_id
    WHERE a04.eairway_04_value IS NOT NULL AND a04.eairway_04_value != ''
    GROUP BY cg.pcr_uuid_context
),
airway_confirmations AS (
    SELECT pcr_uuid_context,
           COUNT(*) AS confirmation_count
    FROM %s
    GROUP BY pcr_uuid_context
),
airway_base_data AS (
    SELECT DISTINCT pcr_uuid_context FROM (
        SELECT pcr_uuid_context FROM %s
        UNION
        SELECT pcr_uuid_context FROM %s
        UNION
        SELECT pcr_uuid_context FROM %s
        UNION
        SELECT pcr_uuid_context FROM %s
    ) all_airway_pcrs
)
SELECT abd.pcr_uuid_context,
       COALESCE(ai.indications_list, '') AS airway_indications,
       COALESCE(ac.complications_list, '') AS airway_complications,
       COALESCE(afr.failure_reasons_list, '') AS airway_failure_reasons,
       COALESCE(acm.confirmation_methods_list, '') AS confirmation_methods,
       COALESCE(acf.confirmation_count, 0) AS confirmation_count,
       CONCAT_WS(' | ',
           CASE WHEN ai.indications_list IS NOT NULL AND ai.indications_list != ''
                THEN 'INDICATIONS: ' || ai.indications_list END,
           CASE WHEN ac.complications_list IS NOT NULL AND ac.complications_list != ''
                THEN 'COMPLICATIONS: ' || ac.complications_list END,
           CASE WHEN afr.failure_reasons_list IS NOT NULL AND afr.failure_reasons_list != ''
                THEN 'FAILURE_REASONS: ' || afr.failure_reasons_list END,
           CASE WHEN acm.confirmation_methods_list IS NOT NULL AND acm.confirmation_methods_list != ''
                THEN 'CONFIRMATION_METHODS: ' || acm.confirmation_methods_list END
       ) AS text_context
FROM airway_base_data abd
LEFT JOIN airway_indications ai ON ai.pcr_uuid_context = abd.pcr_uuid_context
LEFT JOIN airway_complications ac ON ac.pcr_uuid_context = abd.pcr_uuid_context
LEFT JOIN airway_failure_reasons afr ON afr.pcr_uuid_context = abd.pcr_uuid_context
LEFT JOIN airway_confirmation_methods acm ON acm.pcr_uuid_context = abd.pcr_uuid_context
LEFT JOIN airway_confirmations acf ON acf.pcr_uuid_context = abd.pcr_uuid_context
WHERE abd.pcr_uuid_context IS NOT NULL
ORDER BY abd.pcr_uuid_context`,
		q(eAirwayViewName),
		q("eairway_01"), q("eairway_08"), q("eairway_09"),
		q("eairway_confirmationgroup"), q("eairway_04"),
		q("eairway_confirmationgroup"),
		q("eairway_01"), q("eairway_08"), q("eairway_09"), q("eairway_confirmationgroup"))
}
