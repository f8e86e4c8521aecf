package http

import (
	"context"
	"errors"

	"chessd/internal/server/board"
	"chessd/internal/server/core"
	"chessd/internal/server/engine"
	"chessd/internal/server/logging"
	"chessd/internal/server/position"
	"chessd/internal/server/session"
	"chessd/internal/server/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIError carries a ready-made error body to customErrorHandler
type APIError struct {
	Status   int
	Response core.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response.Details != "" {
		return e.Response.Error + ": " + e.Response.Details
	}
	return e.Response.Error
}

func newAPIError(status int, code, msg, details string) *APIError {
	return &APIError{
		Status:   status,
		Response: core.ErrorResponse{Error: msg, Code: code, Details: details},
	}
}

// classify maps domain errors onto status, code and client-facing message
func classify(err error) *APIError {
	switch {
	case errors.Is(err, position.ErrMalformed):
		return newAPIError(fiber.StatusBadRequest, core.ErrInvalidFEN, "invalid FEN string", err.Error())
	case errors.Is(err, board.ErrPlacement):
		return newAPIError(fiber.StatusUnprocessableEntity, core.ErrInvalidFEN, "stored position cannot be rendered", err.Error())
	case errors.Is(err, storage.ErrGameNotFound):
		return newAPIError(fiber.StatusNotFound, core.ErrGameNotFound, "game not found", "")
	case errors.Is(err, storage.ErrGameExists):
		return newAPIError(fiber.StatusConflict, core.ErrGameExists, "game already exists", "")
	case errors.Is(err, storage.ErrUnavailable):
		return newAPIError(fiber.StatusInternalServerError, core.ErrStoreUnavailable, "Unexpected Error", "")
	case errors.Is(err, session.ErrDelivery):
		return newAPIError(fiber.StatusInternalServerError, core.ErrEngineDelivery, "Engine command delivery failed", "")
	case errors.Is(err, engine.ErrNotReady):
		return newAPIError(fiber.StatusInternalServerError, core.ErrEngineNotReady, "Unknown Error", "")
	case errors.Is(err, engine.ErrTimeout):
		return newAPIError(fiber.StatusInternalServerError, core.ErrEngineTimeout, "Engine took too long to respond", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newAPIError(fiber.StatusServiceUnavailable, core.ErrInternalError, "request canceled", "")
	default:
		return newAPIError(fiber.StatusInternalServerError, core.ErrInternalError, "internal server error", "")
	}
}

// apiError logs a service failure with the request id and turns it into a response error
func (h *HTTPHandler) apiError(c *fiber.Ctx, err error) error {
	apiErr := classify(err)
	log := logging.FromContext(c.UserContext(), h.logger)
	if apiErr.Status >= fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.String("code", apiErr.Response.Code), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", c.Path()), zap.String("code", apiErr.Response.Code), zap.Error(err))
	}
	return apiErr
}
