// Package storage defines the game record store and its backends.
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrGameNotFound is returned when no record exists for a game id
	ErrGameNotFound = errors.New("game not found")
	// ErrGameExists is returned by Create for a duplicate game id
	ErrGameExists = errors.New("game already exists")
	// ErrUnavailable is returned once a backend keeps failing after retries
	ErrUnavailable = errors.New("game store unavailable")
)

// GameRecord is the persisted state of one game
type GameRecord struct {
	ID              string    `json:"id"`
	WhitePlayerName string    `json:"whitePlayerName"`
	BlackPlayerName string    `json:"blackPlayerName"`
	GameType        string    `json:"gameType"`
	FEN             string    `json:"fen"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CalculationRecord is one audit row per engine calculation
type CalculationRecord struct {
	RequestID string
	GameID    string
	FEN       string
	Move      string // empty unless Outcome is success
	Outcome   string
	Duration  time.Duration
	CreatedAt time.Time
}

// GameStore persists game records. Implementations return errors wrapping
// ErrGameNotFound for unknown ids.
type GameStore interface {
	Create(ctx context.Context, rec GameRecord) error
	Get(ctx context.Context, id string) (GameRecord, error)
	List(ctx context.Context) ([]GameRecord, error)
	Delete(ctx context.Context, id string) error
	SetFEN(ctx context.Context, id, fen string) error
}

// AuditLog records calculations without blocking the caller
type AuditLog interface {
	RecordCalculation(rec CalculationRecord) error
}

// ResourceName derives the backend key of a game: "game-" plus the first
// eight hex digits of the md5 of its id.
func ResourceName(id string) string {
	sum := md5.Sum([]byte(id))
	return "game-" + hex.EncodeToString(sum[:])[:8]
}
