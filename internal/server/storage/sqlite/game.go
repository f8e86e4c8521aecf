package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chessd/internal/server/storage"

	"github.com/mattn/go-sqlite3"
)

var (
	_ storage.GameStore = (*Store)(nil)
	_ storage.AuditLog  = (*Store)(nil)
)

// Create inserts a new game
func (s *Store) Create(ctx context.Context, rec storage.GameRecord) error {
	query := `INSERT INTO games (
		game_id, resource_name, white_player_name, black_player_name, game_type, fen, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, storage.ResourceName(rec.ID),
		rec.WhitePlayerName, rec.BlackPlayerName, rec.GameType,
		rec.FEN, rec.CreatedAt.UTC(),
	)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%s: %w", rec.ID, storage.ErrGameExists)
		}
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

// Get retrieves one game
func (s *Store) Get(ctx context.Context, id string) (storage.GameRecord, error) {
	query := `SELECT game_id, white_player_name, black_player_name, game_type, fen, created_at
	FROM games WHERE game_id = ?`

	var rec storage.GameRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.WhitePlayerName, &rec.BlackPlayerName, &rec.GameType, &rec.FEN, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.GameRecord{}, fmt.Errorf("%s: %w", id, storage.ErrGameNotFound)
	}
	if err != nil {
		return storage.GameRecord{}, fmt.Errorf("query failed: %w", err)
	}
	return rec, nil
}

// List returns every game, newest first
func (s *Store) List(ctx context.Context) ([]storage.GameRecord, error) {
	query := `SELECT game_id, white_player_name, black_player_name, game_type, fen, created_at
	FROM games ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	games := []storage.GameRecord{}
	for rows.Next() {
		var rec storage.GameRecord
		if err := rows.Scan(
			&rec.ID, &rec.WhitePlayerName, &rec.BlackPlayerName, &rec.GameType, &rec.FEN, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		games = append(games, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return games, nil
}

// Delete removes a game; its audit rows are kept
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE game_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return expectOne(res, id)
}

// SetFEN replaces the stored position of a game
func (s *Store) SetFEN(ctx context.Context, id, fen string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE games SET fen = ? WHERE game_id = ?`, fen, id)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, storage.ErrGameNotFound)
	}
	return nil
}
