package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chessd/internal/server/logging"
	"chessd/internal/server/position"
	"chessd/internal/server/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeEngine plays both ends of the session: it records commands and emits
// scripted output lines in response.
type fakeEngine struct {
	mu      sync.Mutex
	sent    []string
	resets  int
	lines   chan string
	ready   int // isready commands seen
	readyAt int // answer readyok from this isready on; 0 never answers
	onGo    func(fen string) []string
	failOn  string
	lastFEN string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		lines:   make(chan string, 256),
		readyAt: 1,
		onGo: func(string) []string {
			return []string{"info depth 1 score cp 30", "bestmove e2e4 ponder e7e5"}
		},
	}
}

func (f *fakeEngine) Send(_ context.Context, command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failOn != "" && strings.HasPrefix(command, f.failOn) {
		return fmt.Errorf("%w: send %q: broken pipe", session.ErrDelivery, command)
	}
	f.sent = append(f.sent, command)

	switch {
	case command == "isready":
		f.ready++
		if f.readyAt > 0 && f.ready >= f.readyAt {
			f.lines <- "readyok"
		}
	case strings.HasPrefix(command, "position fen "):
		f.lastFEN = strings.TrimPrefix(command, "position fen ")
	case strings.HasPrefix(command, "go "):
		for _, l := range f.onGo(f.lastFEN) {
			f.lines <- l
		}
	}
	return nil
}

func (f *fakeEngine) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	for {
		select {
		case <-f.lines:
		default:
			return nil
		}
	}
}

func (f *fakeEngine) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-f.lines:
		return l, nil
	}
}

func (f *fakeEngine) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CalcTimeout = 200 * time.Millisecond
	cfg.ReadyWait = 20 * time.Millisecond
	return cfg
}

func TestCalculateStartingPosition(t *testing.T) {
	fe := newFakeEngine()
	e := New(fe, fe, DefaultConfig(), nil)

	move, err := e.Calculate(context.Background(), position.Start)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", move)

	assert.Equal(t, []string{
		"isready",
		"ucinewgame",
		"position fen rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0",
		"go wtime 120000 btime 120000 winc 2000 binc 2000",
	}, fe.commands())
	// Once before the probe and once after readyok
	assert.Equal(t, 2, fe.resets)
}

func TestCalculateReadyOnLaterAttempt(t *testing.T) {
	for k := 1; k <= 3; k++ {
		t.Run(fmt.Sprintf("attempt_%d", k), func(t *testing.T) {
			fe := newFakeEngine()
			fe.readyAt = k
			e := New(fe, fe, testConfig(), nil)

			move, err := e.Calculate(context.Background(), position.Start)
			require.NoError(t, err)
			assert.Equal(t, "e2e4", move)
			assert.Equal(t, k, fe.ready)
		})
	}
}

func TestCalculateNeverReady(t *testing.T) {
	fe := newFakeEngine()
	fe.readyAt = 0
	e := New(fe, fe, testConfig(), nil)

	_, err := e.Calculate(context.Background(), position.Start)
	require.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 3, fe.ready)
	for _, c := range fe.commands() {
		assert.Equal(t, "isready", c, "nothing but probes may be sent")
	}
}

func TestCalculateTimesOutOnce(t *testing.T) {
	fe := newFakeEngine()
	fe.onGo = func(string) []string { return []string{"info depth 20 score cp 12"} }
	cfg := testConfig()
	cfg.CalcTimeout = 50 * time.Millisecond
	e := New(fe, fe, cfg, nil)

	start := time.Now()
	_, err := e.Calculate(context.Background(), position.Start)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)

	goCount := 0
	for _, c := range fe.commands() {
		if strings.HasPrefix(c, "go ") {
			goCount++
		}
	}
	assert.Equal(t, 1, goCount)
}

func TestCalculateIgnoresInvalidTokens(t *testing.T) {
	fe := newFakeEngine()
	fe.onGo = func(string) []string {
		return []string{"bestmove (none)", "bestmove e9e4", "bestmove i2i4", "bestmove E2E4"}
	}
	cfg := testConfig()
	cfg.CalcTimeout = 50 * time.Millisecond
	e := New(fe, fe, cfg, nil)

	_, err := e.Calculate(context.Background(), position.Start)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCalculateFirstMatchWins(t *testing.T) {
	fe := newFakeEngine()
	fe.onGo = func(string) []string {
		return []string{"info pv g1f3", "bestmove g1f3", "bestmove e2e4"}
	}
	e := New(fe, fe, testConfig(), nil)

	move, err := e.Calculate(context.Background(), position.Start)
	require.NoError(t, err)
	assert.Equal(t, "g1f3", move)
}

func TestCalculateDeliveryFailure(t *testing.T) {
	fe := newFakeEngine()
	fe.failOn = "position"
	e := New(fe, fe, testConfig(), nil)

	_, err := e.Calculate(context.Background(), position.Start)
	require.ErrorIs(t, err, session.ErrDelivery)
	for _, c := range fe.commands() {
		assert.False(t, strings.HasPrefix(c, "go "), "go must not follow a failed delivery")
	}

	// The lock is released on the failure path
	fe.failOn = ""
	move, err := e.Calculate(context.Background(), position.Start)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", move)
}

func TestCalculateStaleOutputIgnored(t *testing.T) {
	fe := newFakeEngine()
	// Left over from an earlier timed out calculation
	fe.lines <- "bestmove a2a3"
	e := New(fe, fe, testConfig(), nil)

	move, err := e.Calculate(context.Background(), position.Start)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", move)
}

func TestConcurrentCalculationsDoNotInterleave(t *testing.T) {
	fe := newFakeEngine()
	moves := map[string]string{}
	fens := []string{
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
		"rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 1 1",
		"rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b KQkq d3 0 1",
	}
	replies := []string{"e7e5", "g1f3", "d7d5", "g8f6"}
	for i, fen := range fens {
		moves[fen] = replies[i]
	}
	fe.onGo = func(fen string) []string { return []string{"bestmove " + moves[fen]} }
	e := New(fe, fe, testConfig(), nil)

	var wg sync.WaitGroup
	results := make([]string, len(fens))
	errs := make([]error, len(fens))
	for i, fen := range fens {
		wg.Add(1)
		go func(i int, fen string) {
			defer wg.Done()
			pos, err := position.Parse(fen)
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = e.Calculate(context.Background(), pos)
		}(i, fen)
	}
	wg.Wait()

	for i := range fens {
		require.NoError(t, errs[i])
		assert.Equal(t, replies[i], results[i])
	}

	cmds := fe.commands()
	require.Len(t, cmds, 4*len(fens))
	for i := 0; i < len(cmds); i += 4 {
		assert.Equal(t, "isready", cmds[i])
		assert.Equal(t, "ucinewgame", cmds[i+1])
		assert.True(t, strings.HasPrefix(cmds[i+2], "position fen "))
		assert.True(t, strings.HasPrefix(cmds[i+3], "go "))
	}
}

func TestCalculateWaitsForLockWithContext(t *testing.T) {
	fe := newFakeEngine()
	e := New(fe, fe, testConfig(), nil)

	e.lock <- struct{}{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Calculate(ctx, position.Start)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, fe.commands())
	e.release()
}

func TestCalculateCallerCancellation(t *testing.T) {
	fe := newFakeEngine()
	fe.onGo = func(string) []string { return nil }
	cfg := testConfig()
	cfg.CalcTimeout = 5 * time.Second
	e := New(fe, fe, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.Calculate(ctx, position.Start)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout), "caller deadline is not an engine timeout")
}

func TestHealthCheck(t *testing.T) {
	fe := newFakeEngine()
	fe.readyAt = 2
	e := New(fe, fe, testConfig(), nil)

	require.NoError(t, e.HealthCheck(context.Background()))
	assert.Equal(t, []string{"isready", "isready"}, fe.commands())
	assert.Equal(t, 1, fe.resets)

	fe.readyAt = 0
	fe.ready = 0
	assert.ErrorIs(t, e.HealthCheck(context.Background()), ErrNotReady)
}

// liveEngine adds a session liveness probe to fakeEngine
type liveEngine struct {
	*fakeEngine
	aliveErr error
}

func (l *liveEngine) Alive(context.Context) error { return l.aliveErr }

func TestHealthCheckLostSession(t *testing.T) {
	fe := newFakeEngine()
	le := &liveEngine{fakeEngine: fe, aliveErr: session.ErrSessionGone}
	e := New(le, fe, testConfig(), nil)

	assert.ErrorIs(t, e.HealthCheck(context.Background()), session.ErrSessionGone)
	assert.Empty(t, fe.commands(), "no probe is sent to a missing session")

	le.aliveErr = nil
	require.NoError(t, e.HealthCheck(context.Background()))
	assert.Equal(t, []string{"isready"}, fe.commands())
}

func TestFailureLoggedWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fe := newFakeEngine()
	fe.readyAt = 0
	e := New(fe, fe, testConfig(), zap.New(core))

	ctx := logging.WithRequestID(context.Background(), "req-42")
	_, err := e.Calculate(ctx, position.Start)
	require.ErrorIs(t, err, ErrNotReady)

	assert.Equal(t, 3, logs.FilterMessage("engine not ready").Len())
	failed := logs.FilterMessage("calculation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "req-42", failed[0].ContextMap()[logging.RequestIDField])
	assert.Equal(t, "not_ready", failed[0].ContextMap()["outcome"])
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "timeout", Outcome(ErrTimeout))
	assert.Equal(t, "not_ready", Outcome(fmt.Errorf("wrapped: %w", ErrNotReady)))
	assert.Equal(t, "delivery_failed", Outcome(session.ErrDelivery))
	assert.Equal(t, "canceled", Outcome(context.Canceled))
	assert.Equal(t, "error", Outcome(errors.New("disk full")))
}
