// Package session holds the interactive client's mutable state between commands.
package session

import (
	"chessd/internal/client/api"
	"chessd/internal/server/core"
)

type Session struct {
	APIBaseURL  string
	Client      *api.Client
	Verbose     bool
	CurrentGame string
	// Last known state of CurrentGame, nil until fetched
	CurrentGameState *core.GameResponse
	LastBestMove     string
}

func New(baseURL string) *Session {
	return &Session{
		APIBaseURL: baseURL,
		Client:     api.New(baseURL),
	}
}

// SetBaseURL points the session and its client at another server
func (s *Session) SetBaseURL(u string) {
	s.APIBaseURL = u
	s.Client.SetBaseURL(u)
}

// SetCurrentGame switches the active game and forgets the cached state
func (s *Session) SetCurrentGame(id string) {
	if id != s.CurrentGame {
		s.CurrentGameState = nil
		s.LastBestMove = ""
	}
	s.CurrentGame = id
}

// ShortGameID is the first eight characters of the current game id
func (s *Session) ShortGameID() string {
	if len(s.CurrentGame) <= 8 {
		return s.CurrentGame
	}
	return s.CurrentGame[:8]
}
