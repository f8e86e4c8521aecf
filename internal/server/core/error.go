package core

// Error codes
const (
	ErrNotFound          = "NOT_FOUND"
	ErrGameNotFound      = "GAME_NOT_FOUND"
	ErrGameExists        = "GAME_EXISTS"
	ErrRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrInvalidContent    = "INVALID_CONTENT_TYPE"
	ErrInvalidRequest    = "INVALID_REQUEST"
	ErrInvalidFEN        = "INVALID_FEN"
	ErrInternalError     = "INTERNAL_ERROR"
	ErrUnauthorized      = "UNAUTHORIZED"
	ErrStoreUnavailable  = "STORE_UNAVAILABLE"
	ErrEngineDelivery    = "ENGINE_DELIVERY_FAILED"
	ErrEngineNotReady    = "ENGINE_NOT_READY"
	ErrEngineTimeout     = "ENGINE_TIMEOUT"
)
