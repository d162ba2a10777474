// Package sweepdb persists per-sweep segmentation statistics to SQLite.
// The table is append-only; rows are keyed by the sweep's publication ID.
package sweepdb

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/sweepseg/internal/segmenter"
)

// SweepDB wraps the stats database handle.
type SweepDB struct {
	*sql.DB
}

// schema.sql defines the sweep_stats table and its indexes.
//
//go:embed schema.sql
var schemaSQL string

// NewSweepDB opens (creating if necessary) the stats database at path.
func NewSweepDB(path string) (*SweepDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sweep_stats schema: %w", err)
	}

	log.Println("initialized sweep stats database schema")

	return &SweepDB{db}, nil
}

// RecordSweep stores one sweep's metrics. Satisfies pipeline.Recorder.
func (sdb *SweepDB) RecordSweep(sweepID string, res *segmenter.Result) error {
	query := `
		INSERT INTO sweep_stats (
			sweep_id, sensor_id, ts_unix_nanos,
			points_in, projected,
			dropped_nonfinite, dropped_row, dropped_column, dropped_range,
			ground_cells, accepted_segments, rejected_clusters,
			segmented_points, outlier_points, process_micros,
			range_mean, range_p95
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	m := res.Metrics
	_, err := sdb.Exec(query,
		sweepID, res.SensorID, res.Timestamp.UnixNano(),
		m.PointsIn, m.Projected,
		m.DroppedNonFinite, m.DroppedRow, m.DroppedColumn, m.DroppedRange,
		m.GroundCells, m.AcceptedSegments, m.RejectedClusters,
		m.SegmentedPoints, m.OutlierPoints, m.Duration.Microseconds(),
		m.RangeSummary.Mean, m.RangeSummary.P95,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sweep stats: %w", err)
	}
	return nil
}

// SweepRow is one persisted sweep_stats record.
type SweepRow struct {
	SweepID          string
	SensorID         string
	Timestamp        time.Time
	PointsIn         int64
	Projected        int64
	GroundCells      int64
	AcceptedSegments int64
	SegmentedPoints  int64
	OutlierPoints    int64
	ProcessMicros    int64
}

// RecentSweeps returns up to limit rows for a sensor, newest first.
func (sdb *SweepDB) RecentSweeps(sensorID string, limit int) ([]SweepRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := sdb.Query(`
		SELECT sweep_id, sensor_id, ts_unix_nanos,
		       points_in, projected, ground_cells,
		       accepted_segments, segmented_points, outlier_points, process_micros
		FROM sweep_stats
		WHERE sensor_id = ?
		ORDER BY ts_unix_nanos DESC
		LIMIT ?
	`, sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep stats: %w", err)
	}
	defer rows.Close()

	var out []SweepRow
	for rows.Next() {
		var r SweepRow
		var tsNanos int64
		if err := rows.Scan(&r.SweepID, &r.SensorID, &tsNanos,
			&r.PointsIn, &r.Projected, &r.GroundCells,
			&r.AcceptedSegments, &r.SegmentedPoints, &r.OutlierPoints, &r.ProcessMicros); err != nil {
			return nil, fmt.Errorf("failed to scan sweep stats row: %w", err)
		}
		r.Timestamp = time.Unix(0, tsNanos)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SweepCount returns the total number of recorded sweeps.
func (sdb *SweepDB) SweepCount() (int64, error) {
	var n int64
	err := sdb.QueryRow(`SELECT COUNT(*) FROM sweep_stats`).Scan(&n)
	return n, err
}
