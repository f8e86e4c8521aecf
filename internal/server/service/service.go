// Package service coordinates the game store and the engine.
package service

import (
	"context"
	"fmt"
	"time"

	"chessd/internal/server/engine"
	"chessd/internal/server/logging"
	"chessd/internal/server/position"
	"chessd/internal/server/storage"

	"go.uber.org/zap"
)

// Calculator produces best moves; satisfied by *engine.Engine
type Calculator interface {
	Calculate(ctx context.Context, pos position.Position) (string, error)
	HealthCheck(ctx context.Context) error
}

// HealthReporter is implemented by stores that can degrade
type HealthReporter interface {
	IsHealthy() bool
}

type NewGame struct {
	WhitePlayerName string
	BlackPlayerName string
	GameType        string
}

type MoveResult struct {
	GameID   string
	FEN      string
	BestMove string
}

// Service coordinates game records, engine calculations and the audit trail
type Service struct {
	store  storage.GameStore
	engine Calculator
	audit  storage.AuditLog // nil disables the audit trail
	logger *zap.Logger
}

func New(store storage.GameStore, calc Calculator, audit storage.AuditLog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		engine: calc,
		audit:  audit,
		logger: logger.Named("service"),
	}
}

// CreateGame stores a new game under id, starting from the initial position
func (s *Service) CreateGame(ctx context.Context, id string, g NewGame) (storage.GameRecord, error) {
	rec := storage.GameRecord{
		ID:              id,
		WhitePlayerName: g.WhitePlayerName,
		BlackPlayerName: g.BlackPlayerName,
		GameType:        g.GameType,
		FEN:             position.Start.String(),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return storage.GameRecord{}, err
	}
	logging.FromContext(ctx, s.logger).Info("game created",
		zap.String("game", id),
		zap.String("resource", storage.ResourceName(id)))
	return rec, nil
}

func (s *Service) GetGame(ctx context.Context, id string) (storage.GameRecord, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListGames(ctx context.Context) ([]storage.GameRecord, error) {
	return s.store.List(ctx)
}

func (s *Service) DeleteGame(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx, s.logger).Info("game deleted", zap.String("game", id))
	return nil
}

// MakeMove asks the engine for a reply to fen and stores fen as the game's
// current position. The engine's move is returned, not applied.
func (s *Service) MakeMove(ctx context.Context, id, fen string) (MoveResult, error) {
	pos, err := position.Parse(fen)
	if err != nil {
		return MoveResult{}, err
	}

	if _, err := s.store.Get(ctx, id); err != nil {
		return MoveResult{}, err
	}

	log := logging.FromContext(ctx, s.logger).With(zap.String("game", id))
	log.Debug("calculating", zap.String("fen", pos.String()))

	start := time.Now()
	move, err := s.engine.Calculate(ctx, pos)
	s.record(ctx, id, pos, move, err, time.Since(start))
	if err != nil {
		return MoveResult{}, err
	}

	if err := s.store.SetFEN(ctx, id, pos.String()); err != nil {
		return MoveResult{}, err
	}

	log.Info("move calculated", zap.String("move", move))
	return MoveResult{GameID: id, FEN: pos.String(), BestMove: move}, nil
}

func (s *Service) record(ctx context.Context, id string, pos position.Position, move string, err error, d time.Duration) {
	if s.audit == nil {
		return
	}
	rec := storage.CalculationRecord{
		RequestID: logging.RequestIDFromContext(ctx),
		GameID:    id,
		FEN:       pos.String(),
		Move:      move,
		Outcome:   engine.Outcome(err),
		Duration:  d,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.RecordCalculation(rec); err != nil {
		logging.FromContext(ctx, s.logger).Warn("audit record dropped", zap.Error(err))
	}
}

// DeepHealth runs the engine readiness probe
func (s *Service) DeepHealth(ctx context.Context) error {
	if err := s.engine.HealthCheck(ctx); err != nil {
		return fmt.Errorf("engine unhealthy: %w", err)
	}
	return nil
}

// AuditHealth reports "disabled", "ok" or "degraded"
func (s *Service) AuditHealth() string {
	if s.audit == nil {
		return "disabled"
	}
	if h, ok := s.audit.(HealthReporter); ok && !h.IsHealthy() {
		return "degraded"
	}
	return "ok"
}
