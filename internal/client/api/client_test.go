package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"chessd/internal/server/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := New(srv.URL + "/")
	c.Out = io.Discard
	return c
}

func TestMakeMove(t *testing.T) {
	const fen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/games/g1/move", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req core.MoveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, fen, req.FEN)

		_ = json.NewEncoder(w).Encode(core.MoveResponse{GameID: "g1", FEN: req.FEN, BestMove: "e2e4"})
	})
	c.SetToken("secret")

	resp, err := c.MakeMove(context.Background(), "g1", fen)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", resp.BestMove)
	assert.Equal(t, fen, resp.FEN)
}

func TestErrorResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("requestId", "req-1")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(core.ErrorResponse{
			Error: "Engine took too long to respond",
			Code:  core.ErrEngineTimeout,
		})
	})

	_, err := c.MakeMove(context.Background(), "g1", "x")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "req-1", apiErr.RequestID)
	assert.Equal(t, core.ErrEngineTimeout, apiErr.Response.Code)
	assert.Contains(t, err.Error(), "Engine took too long to respond")
}

func TestNonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	err := c.DeleteGame(context.Background(), "g1")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad gateway", apiErr.Response.Error)
}

func TestListGamesAndHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(HealthResponse{Msg: "healthy", Time: 1, Audit: "ok"})
		case "/api/v1/games":
			_ = json.NewEncoder(w).Encode([]core.GameResponse{{GameID: "a"}, {GameID: "b"}})
		default:
			http.NotFound(w, r)
		}
	})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Audit)

	games, err := c.ListGames(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "b", games[1].GameID)
}

func TestRawRequestSendsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"fen":"x"}`, string(body))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.RawRequest(context.Background(), http.MethodPost, "/api/v1/games", `{"fen":"x"}`))
}

func TestContextCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetGame(ctx, "g1")
	assert.ErrorIs(t, err, context.Canceled)
}
