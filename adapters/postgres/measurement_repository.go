package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ecosense/domain/batch"
	"ecosense/domain/core"
	"ecosense/domain/stats"
	"ecosense/ports"

	"github.com/jmoiron/sqlx"
)

// defaultInsertChunkSize bounds one multi-row INSERT statement
const defaultInsertChunkSize = 500

// measurementRepository implements the MeasurementRepository interface
type measurementRepository struct {
	db        *sqlx.DB
	chunkSize int
}

// NewMeasurementRepository creates a new measurement repository. chunkSize
// bounds the rows per INSERT statement; values below 1 fall back to the
// default.
func NewMeasurementRepository(db *sqlx.DB, chunkSize int) ports.MeasurementRepository {
	if chunkSize < 1 {
		chunkSize = defaultInsertChunkSize
	}
	return &measurementRepository{db: db, chunkSize: chunkSize}
}

// InsertMany writes measurements in bounded chunks inside one transaction.
// Either every row lands or none do.
func (r *measurementRepository) InsertMany(ctx context.Context, measurements []*batch.Measurement) error {
	if len(measurements) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO measurements (
		id, batch_id, location_id, metric_id, value, measured_at,
		quality_flag, operator, equipment, notes, created_at
	) VALUES (:id, :batch_id, :location_id, :metric_id, :value, :measured_at,
		:quality_flag, :operator, :equipment, :notes, :created_at)`

	for start := 0; start < len(measurements); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(measurements) {
			end = len(measurements)
		}
		chunk := make([]map[string]interface{}, 0, end-start)
		for _, m := range measurements[start:end] {
			chunk = append(chunk, map[string]interface{}{
				"id":           m.ID,
				"batch_id":     m.BatchID,
				"location_id":  m.LocationID,
				"metric_id":    m.MetricID,
				"value":        m.Value,
				"measured_at":  m.MeasuredAt.Time(),
				"quality_flag": m.Quality,
				"operator":     m.Operator,
				"equipment":    m.Equipment,
				"notes":        m.Notes,
				"created_at":   m.CreatedAt.Time(),
			})
		}
		if _, err := tx.NamedExecContext(ctx, query, chunk); err != nil {
			return fmt.Errorf("failed to insert measurements: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit measurements: %w", err)
	}
	return nil
}

// CountByBatch returns the number of persisted measurements for a batch
func (r *measurementRepository) CountByBatch(ctx context.Context, id core.BatchID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM measurements WHERE batch_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count measurements: %w", err)
	}
	return count, nil
}

// Query projects measurements matching the filter, joined with their
// location and metric names, for analysis.
func (r *measurementRepository) Query(ctx context.Context, filter stats.Filter) ([]stats.Observation, error) {
	query := `SELECT m.location_id, l.name, m.metric_id, t.name, m.value, m.measured_at
		FROM measurements m
		JOIN locations l ON l.id = m.location_id
		JOIN metric_types t ON t.id = m.metric_id`

	conds := []string{}
	args := []interface{}{}

	if filter.IncludeQuestionable {
		conds = append(conds, `m.quality_flag <> 'invalid'`)
	} else {
		conds = append(conds, `m.quality_flag = 'valid'`)
	}
	if filter.From != nil {
		conds = append(conds, `m.measured_at >= ?`)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conds = append(conds, `m.measured_at <= ?`)
		args = append(args, *filter.To)
	}
	if len(filter.LocationIDs) > 0 {
		conds = append(conds, `m.location_id IN (?)`)
		args = append(args, filter.LocationIDs)
	}
	if len(filter.MetricIDs) > 0 {
		conds = append(conds, `m.metric_id IN (?)`)
		args = append(args, filter.MetricIDs)
	}

	query += " WHERE " + strings.Join(conds, " AND ") + " ORDER BY m.measured_at"

	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build measurement query: %w", err)
	}
	expanded = r.db.Rebind(expanded)

	rows, err := r.db.QueryContext(ctx, expanded, expandedArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var observations []stats.Observation
	for rows.Next() {
		var obs stats.Observation
		var measuredAt time.Time
		if err := rows.Scan(&obs.LocationID, &obs.LocationName, &obs.MetricID,
			&obs.MetricName, &obs.Value, &measuredAt); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		obs.MeasuredAt = measuredAt
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}
