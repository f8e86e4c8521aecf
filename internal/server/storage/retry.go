package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chessd/internal/server/logging"
	"chessd/internal/server/metrics"

	"go.uber.org/zap"
)

// retryStore retries failed backend calls. Not-found and duplicate errors are
// answers, not failures, and pass through untouched.
type retryStore struct {
	next    GameStore
	retries int
	delay   time.Duration
	logger  *zap.Logger
}

// WithRetry wraps a backend so every operation is retried up to retries times,
// after which the failure surfaces as ErrUnavailable.
func WithRetry(next GameStore, retries int, delay time.Duration, logger *zap.Logger) GameStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retries < 0 {
		retries = 0
	}
	return &retryStore{next: next, retries: retries, delay: delay, logger: logger.Named("store")}
}

func (r *retryStore) do(ctx context.Context, op string, fn func(context.Context) error) error {
	log := logging.FromContext(ctx, r.logger)

	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			metrics.StoreRetriesTotal.WithLabelValues(op).Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.delay):
			}
		}

		err = fn(ctx)
		if err == nil || errors.Is(err, ErrGameNotFound) || errors.Is(err, ErrGameExists) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("store operation failed",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	log.Error("store operation gave up", zap.String("operation", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func (r *retryStore) Create(ctx context.Context, rec GameRecord) error {
	return r.do(ctx, "create", func(ctx context.Context) error {
		return r.next.Create(ctx, rec)
	})
}

func (r *retryStore) Get(ctx context.Context, id string) (GameRecord, error) {
	var rec GameRecord
	err := r.do(ctx, "get", func(ctx context.Context) error {
		var err error
		rec, err = r.next.Get(ctx, id)
		return err
	})
	return rec, err
}

func (r *retryStore) List(ctx context.Context) ([]GameRecord, error) {
	var recs []GameRecord
	err := r.do(ctx, "list", func(ctx context.Context) error {
		var err error
		recs, err = r.next.List(ctx)
		return err
	})
	return recs, err
}

func (r *retryStore) Delete(ctx context.Context, id string) error {
	return r.do(ctx, "delete", func(ctx context.Context) error {
		return r.next.Delete(ctx, id)
	})
}

func (r *retryStore) SetFEN(ctx context.Context, id, fen string) error {
	return r.do(ctx, "set_fen", func(ctx context.Context) error {
		return r.next.SetFEN(ctx, id, fen)
	})
}
