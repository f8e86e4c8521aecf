package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"chessd/internal/server/storage"
)

// RecordCalculation asynchronously appends an audit row
func (s *Store) RecordCalculation(rec storage.CalculationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.enqueue("calculation", func(tx *sql.Tx) error {
		query := `INSERT INTO calculations (
			request_id, game_id, fen, best_move, outcome, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			rec.RequestID, rec.GameID, rec.FEN, rec.Move, rec.Outcome,
			rec.Duration.Milliseconds(), rec.CreatedAt.UTC(),
		)
		return err
	})
	return nil
}

// QueryCalculations retrieves audit rows, newest first. An empty or "*"
// filter matches everything.
func (s *Store) QueryCalculations(gameID, outcome string) ([]storage.CalculationRecord, error) {
	query := `SELECT request_id, game_id, fen, best_move, outcome, duration_ms, created_at
	FROM calculations WHERE 1=1`

	var args []any
	if gameID != "" && gameID != "*" {
		query += " AND game_id = ?"
		args = append(args, gameID)
	}
	if outcome != "" && outcome != "*" {
		query += " AND outcome = ?"
		args = append(args, outcome)
	}
	query += " ORDER BY created_at DESC, calculation_id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []storage.CalculationRecord
	for rows.Next() {
		var rec storage.CalculationRecord
		var durationMs int64
		if err := rows.Scan(
			&rec.RequestID, &rec.GameID, &rec.FEN, &rec.Move, &rec.Outcome, &durationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return records, nil
}
