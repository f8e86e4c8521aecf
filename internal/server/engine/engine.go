// Package engine speaks the UCI text protocol to an engine running inside a
// terminal session and turns it into a synchronous best-move call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"chessd/internal/server/logging"
	"chessd/internal/server/metrics"
	"chessd/internal/server/position"
	"chessd/internal/server/session"

	"go.uber.org/zap"
)

var (
	// ErrNotReady means the engine never answered the readiness probe
	ErrNotReady = errors.New("engine not ready")
	// ErrTimeout means no best move appeared before the calculation deadline
	ErrTimeout = errors.New("engine took too long to respond")
)

var bestMovePattern = regexp.MustCompile(`bestmove ([a-h][1-8][a-h][1-8])`)

// Commander delivers one command line to the engine
type Commander interface {
	Send(ctx context.Context, command string) error
}

// Liveness is optionally implemented by a Commander that can tell whether the
// engine's session still exists
type Liveness interface {
	Alive(ctx context.Context) error
}

// Transcript is the engine output stream
type Transcript interface {
	// Reset discards all output produced so far
	Reset() error
	// Next blocks for the next output line produced after the last Reset
	Next(ctx context.Context) (string, error)
}

type Config struct {
	CalcTimeout   time.Duration
	ReadyAttempts int
	ReadyWait     time.Duration
	WhiteTimeMs   int
	BlackTimeMs   int
	WhiteIncMs    int
	BlackIncMs    int
}

// DefaultConfig mirrors a two-minute game with two-second increments
func DefaultConfig() Config {
	return Config{
		CalcTimeout:   60 * time.Second,
		ReadyAttempts: 3,
		ReadyWait:     time.Second,
		WhiteTimeMs:   120000,
		BlackTimeMs:   120000,
		WhiteIncMs:    2000,
		BlackIncMs:    2000,
	}
}

// Engine owns exclusive access to one engine session
type Engine struct {
	cmd    Commander
	out    Transcript
	cfg    Config
	logger *zap.Logger

	// Single slot semaphore so waiting for the engine honours ctx
	lock chan struct{}
}

func New(cmd Commander, out Transcript, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.CalcTimeout <= 0 {
		cfg.CalcTimeout = def.CalcTimeout
	}
	if cfg.ReadyAttempts <= 0 {
		cfg.ReadyAttempts = def.ReadyAttempts
	}
	if cfg.ReadyWait <= 0 {
		cfg.ReadyWait = def.ReadyWait
	}
	return &Engine{
		cmd:    cmd,
		out:    out,
		cfg:    cfg,
		logger: logger.Named("engine"),
		lock:   make(chan struct{}, 1),
	}
}

func (e *Engine) acquire(ctx context.Context) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() {
	<-e.lock
}

// Calculate returns the engine's best move for pos.
// Calls are strictly sequential; each one starts from a cleared output log.
func (e *Engine) Calculate(ctx context.Context, pos position.Position) (string, error) {
	log := logging.FromContext(ctx, e.logger)

	waitStart := time.Now()
	if err := e.acquire(ctx); err != nil {
		metrics.CalculationsTotal.WithLabelValues(metrics.OutcomeCanceled).Inc()
		return "", err
	}
	defer e.release()
	metrics.LockWait.Observe(time.Since(waitStart).Seconds())

	start := time.Now()
	move, err := e.calculate(ctx, log, pos)
	outcome := Outcome(err)
	metrics.CalculationsTotal.WithLabelValues(outcome).Inc()
	metrics.CalculationDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error("calculation failed",
			zap.String("fen", pos.String()),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	log.Info("calculation finished",
		zap.String("fen", pos.String()),
		zap.String("move", move),
		zap.Duration("elapsed", time.Since(start)))
	return move, nil
}

func (e *Engine) calculate(ctx context.Context, log *zap.Logger, pos position.Position) (string, error) {
	if err := e.out.Reset(); err != nil {
		return "", err
	}
	if err := e.healthCheck(ctx, log); err != nil {
		return "", err
	}

	commands := []string{
		"ucinewgame",
		"position fen " + pos.String(),
		fmt.Sprintf("go wtime %d btime %d winc %d binc %d",
			e.cfg.WhiteTimeMs, e.cfg.BlackTimeMs, e.cfg.WhiteIncMs, e.cfg.BlackIncMs),
	}
	for _, c := range commands {
		if err := e.cmd.Send(ctx, c); err != nil {
			return "", err
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.CalcTimeout)
	defer cancel()
	for {
		text, err := e.out.Next(waitCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return "", ErrTimeout
			}
			return "", err
		}
		if m := bestMovePattern.FindStringSubmatch(text); m != nil {
			return m[1], nil
		}
	}
}

// HealthCheck runs the readiness probe with exclusive access to the engine
func (e *Engine) HealthCheck(ctx context.Context) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	log := logging.FromContext(ctx, e.logger)
	if l, ok := e.cmd.(Liveness); ok {
		if err := l.Alive(ctx); err != nil {
			log.Error("engine session lost", zap.Error(err))
			return err
		}
	}
	if err := e.healthCheck(ctx, log); err != nil {
		log.Error("health check failed", zap.Error(err))
		return err
	}
	return nil
}

// healthCheck expects the caller to hold the engine lock
func (e *Engine) healthCheck(ctx context.Context, log *zap.Logger) error {
	for attempt := 1; attempt <= e.cfg.ReadyAttempts; attempt++ {
		if err := e.cmd.Send(ctx, "isready"); err != nil {
			return err
		}

		ok, err := e.awaitReady(ctx)
		if err != nil {
			return err
		}
		if ok {
			metrics.ReadinessAttemptsTotal.WithLabelValues("ok").Inc()
			return e.out.Reset()
		}

		metrics.ReadinessAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn("engine not ready",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.cfg.ReadyAttempts))
	}
	return ErrNotReady
}

// awaitReady reports whether readyok shows up within the ready wait
func (e *Engine) awaitReady(ctx context.Context) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.ReadyWait)
	defer cancel()
	for {
		text, err := e.out.Next(waitCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return false, nil
			}
			return false, err
		}
		if strings.Contains(text, "readyok") {
			return true, nil
		}
	}
}

// Outcome classifies a Calculate error for metrics and audit records
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, ErrNotReady):
		return metrics.OutcomeNotReady
	case errors.Is(err, session.ErrDelivery):
		return metrics.OutcomeDelivery
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeError
	}
}
