// Package http serves the chessd REST API on fiber.
package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chessd/internal/server/board"
	"chessd/internal/server/core"
	"chessd/internal/server/position"
	"chessd/internal/server/service"
	"chessd/internal/server/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// GameService is the part of service.Service the handlers need
type GameService interface {
	CreateGame(ctx context.Context, id string, g service.NewGame) (storage.GameRecord, error)
	GetGame(ctx context.Context, id string) (storage.GameRecord, error)
	ListGames(ctx context.Context) ([]storage.GameRecord, error)
	DeleteGame(ctx context.Context, id string) error
	MakeMove(ctx context.Context, id, fen string) (service.MoveResult, error)
	DeepHealth(ctx context.Context) error
	AuditHealth() string
}

type Options struct {
	Dev          bool
	RateLimit    int // req/sec per client
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	AuthSecret   []byte // nil leaves the API open
	Logger       *zap.Logger
	Gatherer     prometheus.Gatherer
}

// HTTPHandler handles HTTP requests and routes them to the service
type HTTPHandler struct {
	svc    GameService
	logger *zap.Logger
}

func NewHTTPHandler(svc GameService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

func NewFiberApp(svc GameService, opts Options) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")
	h := NewHTTPHandler(svc, logger)

	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		IdleTimeout:           opts.IdleTimeout,
		DisableStartupMessage: true,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(requestID(), requestContext)
	app.Use(accessLog(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization",
		ExposeHeaders: RequestIDHeader,
	}))

	// Health and metrics (no rate limit)
	app.Get("/health", h.Health)
	app.Get("/health/deep", h.DeepHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	api := app.Group("/api/v1")

	maxReq := opts.RateLimit
	if opts.Dev {
		maxReq = opts.RateLimit * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	if len(opts.AuthSecret) > 0 {
		api.Use(AuthRequired(NewTokenValidator(opts.AuthSecret)))
	}

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Post("/games", h.CreateGame)
	api.Get("/games", h.ListGames)
	api.Get("/games/:gameId", h.GetGame)
	api.Delete("/games/:gameId", h.DeleteGame)
	api.Put("/games/:gameId/move", h.MakeMove)
	api.Get("/games/:gameId/board", h.GetBoard)

	return app
}

// contentTypeValidator ensures POST and PUT requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodPost || method == fiber.MethodPut {
		contentType := c.Get("Content-Type")
		if !strings.HasPrefix(contentType, "application/json") && contentType != "" {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Status).JSON(apiErr.Response)
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// Health is the shallow liveness check
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"msg":   "healthy",
		"time":  time.Now().Unix(),
		"audit": h.svc.AuditHealth(),
	})
}

// DeepHealth probes the engine through the readiness protocol
func (h *HTTPHandler) DeepHealth(c *fiber.Ctx) error {
	if err := h.svc.DeepHealth(c.UserContext()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error:   "Engine is unhealthy",
			Code:    core.ErrEngineNotReady,
			Details: err.Error(),
		})
	}
	return c.JSON(core.MessageResponse{Msg: "healthy"})
}

// CreateGame stores a new game; its id is the request id
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req, err := validatedBody[core.CreateGameRequest](c)
	if err != nil {
		return err
	}

	gameID := RequestIDFromCtx(c)
	if !isValidUUID(gameID) {
		return newAPIError(fiber.StatusBadRequest, core.ErrInvalidRequest,
			"invalid request id", RequestIDHeader+" must be a valid UUID")
	}

	rec, err := h.svc.CreateGame(c.UserContext(), gameID, service.NewGame{
		WhitePlayerName: req.WhitePlayerName,
		BlackPlayerName: req.BlackPlayerName,
		GameType:        req.GameType,
	})
	if err != nil {
		return h.apiError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(core.CreateGameResponse{GameID: rec.ID})
}

func (h *HTTPHandler) ListGames(c *fiber.Ctx) error {
	games, err := h.svc.ListGames(c.UserContext())
	if err != nil {
		return h.apiError(c, err)
	}

	resp := make([]core.GameResponse, 0, len(games))
	for _, g := range games {
		resp = append(resp, gameResponse(g))
	}
	return c.JSON(resp)
}

func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	gameID, err := gameIDParam(c)
	if err != nil {
		return err
	}

	rec, err := h.svc.GetGame(c.UserContext(), gameID)
	if err != nil {
		return h.apiError(c, err)
	}
	return c.JSON(gameResponse(rec))
}

func (h *HTTPHandler) DeleteGame(c *fiber.Ctx) error {
	gameID, err := gameIDParam(c)
	if err != nil {
		return err
	}

	if err := h.svc.DeleteGame(c.UserContext(), gameID); err != nil {
		return h.apiError(c, err)
	}
	return c.JSON(core.MessageResponse{Msg: "deleted"})
}

// MakeMove returns the engine's reply to the submitted position
func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	gameID, err := gameIDParam(c)
	if err != nil {
		return err
	}
	req, err := validatedBody[core.MoveRequest](c)
	if err != nil {
		return err
	}

	res, err := h.svc.MakeMove(c.UserContext(), gameID, req.FEN)
	if err != nil {
		return h.apiError(c, err)
	}

	return c.JSON(core.MoveResponse{
		GameID:   res.GameID,
		FEN:      res.FEN,
		BestMove: res.BestMove,
	})
}

// GetBoard renders the stored position as ASCII
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	gameID, err := gameIDParam(c)
	if err != nil {
		return err
	}

	rec, err := h.svc.GetGame(c.UserContext(), gameID)
	if err != nil {
		return h.apiError(c, err)
	}

	pos, err := position.Parse(rec.FEN)
	if err != nil {
		return h.apiError(c, err)
	}
	b, err := board.FromPosition(pos)
	if err != nil {
		return h.apiError(c, err)
	}

	return c.JSON(core.BoardResponse{
		FEN:   rec.FEN,
		Board: b.ToASCII(),
	})
}

func gameIDParam(c *fiber.Ctx) (string, error) {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return "", newAPIError(fiber.StatusBadRequest, core.ErrInvalidRequest,
			"invalid game ID format", "game ID must be a valid UUID")
	}
	return gameID, nil
}

func gameResponse(rec storage.GameRecord) core.GameResponse {
	return core.GameResponse{
		GameID:          rec.ID,
		WhitePlayerName: rec.WhitePlayerName,
		BlackPlayerName: rec.BlackPlayerName,
		GameType:        rec.GameType,
		FEN:             rec.FEN,
		CreatedAt:       rec.CreatedAt,
	}
}
