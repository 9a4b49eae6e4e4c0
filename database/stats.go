package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// EnrollmentCoverageRow summarizes the enrollment state of one student.
type EnrollmentCoverageRow struct {
	StudentID     uint    `json:"student_id"`
	StudentCode   string  `json:"student_code"`
	FullName      string  `json:"full_name"`
	EncodingCount int     `json:"encoding_count"`
	AvgQuality    float64 `json:"avg_quality"`
	AdaptiveCount int     `json:"adaptive_count"`
}

// EventCounts aggregates recognition outcomes over a time window.
type EventCounts struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// GetEnrollmentCoverage returns per-student encoding counts and mean quality,
// including students with no encodings at all
func GetEnrollmentCoverage(db *sql.DB) ([]EnrollmentCoverageRow, error) {
	queryBuilder := psql.Select(
		"s.id",
		"s.code",
		"s.full_name",
		"COUNT(fe.id)",
		"COALESCE(AVG(fe.quality_score), 0)",
		"COALESCE(SUM(CASE WHEN fe.is_adaptive THEN 1 ELSE 0 END), 0)",
	).
		From("students s").
		LeftJoin("face_encodings fe ON fe.student_id = s.id").
		GroupBy("s.id", "s.code", "s.full_name").
		OrderBy("s.code ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for GetEnrollmentCoverage: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment coverage: %w", err)
	}
	defer rows.Close()

	var results []EnrollmentCoverageRow
	for rows.Next() {
		var row EnrollmentCoverageRow
		if err := rows.Scan(&row.StudentID, &row.StudentCode, &row.FullName, &row.EncodingCount, &row.AvgQuality, &row.AdaptiveCount); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment coverage row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// GetEventCounts returns recognition event totals since the given Unix time
func GetEventCounts(db *sql.DB, sinceUnix int64) (EventCounts, error) {
	queryBuilder := psql.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN matched THEN 1 ELSE 0 END), 0)",
	).
		From("recognition_events").
		Where(sq.GtOrEq{"created_at": sinceUnix})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return EventCounts{}, fmt.Errorf("failed to build SQL query for GetEventCounts: %w", err)
	}

	var counts EventCounts
	if err := db.QueryRow(sqlStr, args...).Scan(&counts.Total, &counts.Matched); err != nil {
		return EventCounts{}, fmt.Errorf("failed to query event counts: %w", err)
	}
	counts.Unmatched = counts.Total - counts.Matched
	return counts, nil
}
