package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"chessd/internal/server/engine"
	"chessd/internal/server/logging"
	"chessd/internal/server/position"
	"chessd/internal/server/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu    sync.Mutex
	games map[string]storage.GameRecord
}

func newMemStore() *memStore {
	return &memStore{games: make(map[string]storage.GameRecord)}
}

func (m *memStore) Create(_ context.Context, rec storage.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[rec.ID]; ok {
		return storage.ErrGameExists
	}
	m.games[rec.ID] = rec
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (storage.GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return storage.GameRecord{}, fmt.Errorf("%s: %w", id, storage.ErrGameNotFound)
	}
	return rec, nil
}

func (m *memStore) List(context.Context) ([]storage.GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.GameRecord{}
	for _, rec := range m.games {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return storage.ErrGameNotFound
	}
	delete(m.games, id)
	return nil
}

func (m *memStore) SetFEN(_ context.Context, id, fen string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return storage.ErrGameNotFound
	}
	rec.FEN = fen
	m.games[id] = rec
	return nil
}

type fakeCalculator struct {
	move   string
	err    error
	health error
	calls  int
}

func (f *fakeCalculator) Calculate(context.Context, position.Position) (string, error) {
	f.calls++
	return f.move, f.err
}

func (f *fakeCalculator) HealthCheck(context.Context) error { return f.health }

type fakeAudit struct {
	records []storage.CalculationRecord
	healthy bool
}

func (f *fakeAudit) RecordCalculation(rec storage.CalculationRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeAudit) IsHealthy() bool { return f.healthy }

const afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

func TestCreateGameStartsFromInitialPosition(t *testing.T) {
	store := newMemStore()
	svc := New(store, &fakeCalculator{}, nil, nil)

	rec, err := svc.CreateGame(context.Background(), "g1", NewGame{
		WhitePlayerName: "alice", BlackPlayerName: "bob", GameType: "blitz",
	})
	require.NoError(t, err)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0", rec.FEN)

	got, err := svc.GetGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, rec.FEN, got.FEN)
	assert.Equal(t, "alice", got.WhitePlayerName)
}

func TestMakeMove(t *testing.T) {
	store := newMemStore()
	calc := &fakeCalculator{move: "e7e5"}
	audit := &fakeAudit{healthy: true}
	svc := New(store, calc, audit, nil)
	ctx := logging.WithRequestID(context.Background(), "req-1")

	_, err := svc.CreateGame(ctx, "g1", NewGame{GameType: "blitz"})
	require.NoError(t, err)

	res, err := svc.MakeMove(ctx, "g1", afterE4)
	require.NoError(t, err)
	assert.Equal(t, MoveResult{GameID: "g1", FEN: afterE4, BestMove: "e7e5"}, res)

	rec, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, afterE4, rec.FEN, "the submitted position is stored, not the engine reply")

	require.Len(t, audit.records, 1)
	assert.Equal(t, "req-1", audit.records[0].RequestID)
	assert.Equal(t, "success", audit.records[0].Outcome)
	assert.Equal(t, "e7e5", audit.records[0].Move)
}

func TestMakeMoveMalformedNeverReachesEngine(t *testing.T) {
	store := newMemStore()
	calc := &fakeCalculator{move: "e7e5"}
	svc := New(store, calc, nil, nil)
	ctx := context.Background()
	_, err := svc.CreateGame(ctx, "g1", NewGame{})
	require.NoError(t, err)

	_, err = svc.MakeMove(ctx, "g1", "rnbqkbnr/pppppppp w KQkq -")
	require.ErrorIs(t, err, position.ErrMalformed)
	assert.Zero(t, calc.calls)
}

func TestMakeMoveUnknownGame(t *testing.T) {
	calc := &fakeCalculator{move: "e7e5"}
	svc := New(newMemStore(), calc, nil, nil)

	_, err := svc.MakeMove(context.Background(), "missing", afterE4)
	require.ErrorIs(t, err, storage.ErrGameNotFound)
	assert.Zero(t, calc.calls)
}

func TestMakeMoveEngineFailureKeepsPosition(t *testing.T) {
	store := newMemStore()
	audit := &fakeAudit{healthy: true}
	svc := New(store, &fakeCalculator{err: engine.ErrTimeout}, audit, nil)
	ctx := context.Background()
	created, err := svc.CreateGame(ctx, "g1", NewGame{})
	require.NoError(t, err)

	_, err = svc.MakeMove(ctx, "g1", afterE4)
	require.ErrorIs(t, err, engine.ErrTimeout)

	rec, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, created.FEN, rec.FEN)

	require.Len(t, audit.records, 1)
	assert.Equal(t, "timeout", audit.records[0].Outcome)
	assert.Empty(t, audit.records[0].Move)
}

func TestDeleteGame(t *testing.T) {
	svc := New(newMemStore(), &fakeCalculator{}, nil, nil)
	ctx := context.Background()
	_, err := svc.CreateGame(ctx, "g1", NewGame{})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteGame(ctx, "g1"))
	assert.ErrorIs(t, svc.DeleteGame(ctx, "g1"), storage.ErrGameNotFound)

	games, err := svc.ListGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestDeepHealth(t *testing.T) {
	calc := &fakeCalculator{}
	svc := New(newMemStore(), calc, nil, nil)
	require.NoError(t, svc.DeepHealth(context.Background()))

	calc.health = engine.ErrNotReady
	assert.ErrorIs(t, svc.DeepHealth(context.Background()), engine.ErrNotReady)
}

func TestAuditHealth(t *testing.T) {
	assert.Equal(t, "disabled", New(newMemStore(), &fakeCalculator{}, nil, nil).AuditHealth())

	audit := &fakeAudit{healthy: true}
	svc := New(newMemStore(), &fakeCalculator{}, audit, nil)
	assert.Equal(t, "ok", svc.AuditHealth())
	audit.healthy = false
	assert.Equal(t, "degraded", svc.AuditHealth())
}
