package core

import "time"

// Request types

type CreateGameRequest struct {
	WhitePlayerName string `json:"whitePlayerName" validate:"required,min=1,max=40"`
	BlackPlayerName string `json:"blackPlayerName" validate:"required,min=1,max=40"`
	GameType        string `json:"gameType" validate:"required,max=32"`
}

type MoveRequest struct {
	FEN string `json:"fen" validate:"required,max=100"`
}

// Response types

type CreateGameResponse struct {
	GameID string `json:"gameId"`
}

type GameResponse struct {
	GameID          string    `json:"gameId"`
	WhitePlayerName string    `json:"whitePlayerName"`
	BlackPlayerName string    `json:"blackPlayerName"`
	GameType        string    `json:"gameType"`
	FEN             string    `json:"fen"`
	CreatedAt       time.Time `json:"createdAt"`
}

type MoveResponse struct {
	GameID   string `json:"gameId"`
	FEN      string `json:"fen"`
	BestMove string `json:"bestMove"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
