package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"chessd/internal/client/session"
	"chessd/internal/server/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0"

// fakeServer keeps a single game in memory
type fakeServer struct {
	mu      sync.Mutex
	created *core.CreateGameRequest
	fen     string
	moves   []string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/games":
		var req core.CreateGameRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.created = &req
		f.fen = startFEN
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(core.CreateGameResponse{GameID: "3b241101-e2bb-4255-8caf-4136c566a962"})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/board"):
		_ = json.NewEncoder(w).Encode(core.BoardResponse{FEN: f.fen, Board: "  a b c d e f g h\n8 r n  8\n  a b c d e f g h"})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/games/"):
		if f.created == nil {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(core.ErrorResponse{Error: "game not found", Code: core.ErrGameNotFound})
			return
		}
		_ = json.NewEncoder(w).Encode(core.GameResponse{GameID: "3b241101-e2bb-4255-8caf-4136c566a962", FEN: f.fen})
	case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/move"):
		var req core.MoveRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.moves = append(f.moves, req.FEN)
		f.fen = req.FEN
		_ = json.NewEncoder(w).Encode(core.MoveResponse{FEN: req.FEN, BestMove: "e2e4"})
	case r.Method == http.MethodDelete:
		f.created = nil
		_ = json.NewEncoder(w).Encode(core.MessageResponse{Msg: "deleted"})
	default:
		http.NotFound(w, r)
	}
}

func newTestRegistry(t *testing.T, input string) (*Registry, *session.Session, *fakeServer, *bytes.Buffer) {
	t.Helper()
	fake := &fakeServer{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s := session.New(srv.URL)
	r := NewRegistry(s)
	out := &bytes.Buffer{}
	r.SetOutput(out)
	r.SetInput(strings.NewReader(input))
	return r, s, fake, out
}

func TestNewGamePromptsAndDefaults(t *testing.T) {
	r, s, fake, out := newTestRegistry(t, "alice\n\nblitz\n")

	require.NoError(t, r.Execute(context.Background(), "new"))

	require.NotNil(t, fake.created)
	assert.Equal(t, "alice", fake.created.WhitePlayerName)
	assert.Equal(t, "black", fake.created.BlackPlayerName)
	assert.Equal(t, "blitz", fake.created.GameType)
	assert.Equal(t, "3b241101-e2bb-4255-8caf-4136c566a962", s.CurrentGame)
	assert.Equal(t, "3b241101", s.ShortGameID())
	assert.Contains(t, out.String(), "Game created")
}

func TestMoveUsesStoredPositionByDefault(t *testing.T) {
	r, s, fake, out := newTestRegistry(t, "\n\n\n")
	ctx := context.Background()

	require.NoError(t, r.Execute(ctx, "new"))
	require.NoError(t, r.Execute(ctx, "move"))

	require.Len(t, fake.moves, 1)
	assert.Equal(t, startFEN, fake.moves[0])
	assert.Equal(t, "e2e4", s.LastBestMove)
	assert.Contains(t, out.String(), "Best move: e2e4")
}

func TestMoveJoinsFENFields(t *testing.T) {
	r, _, fake, _ := newTestRegistry(t, "\n\n\n")
	ctx := context.Background()

	require.NoError(t, r.Execute(ctx, "n"))
	require.NoError(t, r.Execute(ctx, "m 8/8/8/8/8/8/8/K6k b - - 3 40"))

	require.Len(t, fake.moves, 1)
	assert.Equal(t, "8/8/8/8/8/8/8/K6k b - - 3 40", fake.moves[0])
}

func TestCommandsWithoutGame(t *testing.T) {
	r, _, _, out := newTestRegistry(t, "")

	require.NoError(t, r.Execute(context.Background(), "move"))
	assert.Contains(t, out.String(), "no current game")
}

func TestJoinUnknownGameReportsServerError(t *testing.T) {
	r, s, _, out := newTestRegistry(t, "")

	require.NoError(t, r.Execute(context.Background(), "join nope"))
	assert.Empty(t, s.CurrentGame)
	assert.Contains(t, out.String(), core.ErrGameNotFound)
}

func TestShowAndDelete(t *testing.T) {
	r, s, _, out := newTestRegistry(t, "\n\n\n")
	ctx := context.Background()

	require.NoError(t, r.Execute(ctx, "new"))
	require.NoError(t, r.Execute(ctx, "show"))
	assert.Contains(t, out.String(), "FEN: "+startFEN)

	require.NoError(t, r.Execute(ctx, "delete"))
	assert.Empty(t, s.CurrentGame)
}

func TestUnknownCommandAndHelp(t *testing.T) {
	r, _, _, out := newTestRegistry(t, "")
	ctx := context.Background()

	require.NoError(t, r.Execute(ctx, "bogus"))
	assert.Contains(t, out.String(), "Unknown command: bogus")

	require.NoError(t, r.Execute(ctx, "help move"))
	assert.Contains(t, out.String(), "Usage: move [fen]")

	require.NoError(t, r.Execute(ctx, "?"))
	assert.Contains(t, out.String(), "Game Commands")
}

func TestExitAndURL(t *testing.T) {
	r, s, _, _ := newTestRegistry(t, "")
	ctx := context.Background()

	require.NoError(t, r.Execute(ctx, "url example.com:9090"))
	assert.Equal(t, "http://example.com:9090", s.APIBaseURL)
	assert.Equal(t, "http://example.com:9090", s.Client.BaseURL)

	assert.ErrorIs(t, r.Execute(ctx, "x"), ErrExit)
}
