package sqlite

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	resource_name TEXT NOT NULL,
	white_player_name TEXT NOT NULL,
	black_player_name TEXT NOT NULL,
	game_type TEXT NOT NULL,
	fen TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS calculations (
	calculation_id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	game_id TEXT NOT NULL,
	fen TEXT NOT NULL,
	best_move TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_games_created_at ON games(created_at);
CREATE INDEX IF NOT EXISTS idx_calculations_game_id ON calculations(game_id);
CREATE INDEX IF NOT EXISTS idx_calculations_outcome ON calculations(outcome);
`
