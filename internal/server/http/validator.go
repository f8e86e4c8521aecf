package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"chessd/internal/server/core"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

const validatedBodyKey = "validatedBody"

// validationMiddleware parses and validates request bodies by route
func validationMiddleware(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodGet || method == fiber.MethodDelete || method == fiber.MethodOptions {
		return c.Next()
	}

	path := strings.TrimSuffix(c.Path(), "/")
	var requestType any

	switch {
	case strings.HasSuffix(path, "/games") && method == fiber.MethodPost:
		requestType = &core.CreateGameRequest{}
	case strings.HasSuffix(path, "/move") && method == fiber.MethodPut:
		requestType = &core.MoveRequest{}
	default:
		return c.Next()
	}

	if err := c.BodyParser(requestType); err != nil {
		return newAPIError(fiber.StatusBadRequest, core.ErrInvalidRequest, "invalid request body", err.Error())
	}

	if errs := validate.Struct(requestType); errs != nil {
		var verrs validator.ValidationErrors
		if !errors.As(errs, &verrs) {
			return newAPIError(fiber.StatusBadRequest, core.ErrInvalidRequest, "validation failed", errs.Error())
		}
		return newAPIError(fiber.StatusBadRequest, core.ErrInvalidRequest, "validation failed", describe(verrs))
	}

	c.Locals(validatedBodyKey, requestType)
	return c.Next()
}

func describe(errs validator.ValidationErrors) string {
	var details strings.Builder
	for _, err := range errs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch err.Tag() {
		case "required":
			fmt.Fprintf(&details, "%s is required", err.Field())
		case "min":
			if err.Type().Kind() == reflect.String {
				fmt.Fprintf(&details, "%s must be at least %s characters", err.Field(), err.Param())
			} else {
				fmt.Fprintf(&details, "%s must be at least %s", err.Field(), err.Param())
			}
		case "max":
			if err.Type().Kind() == reflect.String {
				fmt.Fprintf(&details, "%s must be at most %s characters", err.Field(), err.Param())
			} else {
				fmt.Fprintf(&details, "%s must be at most %s", err.Field(), err.Param())
			}
		default:
			fmt.Fprintf(&details, "%s failed %s validation", err.Field(), err.Tag())
		}
	}
	return details.String()
}

// validatedBody returns the body validationMiddleware stored for this route
func validatedBody[T any](c *fiber.Ctx) (T, error) {
	var zero T
	body, ok := c.Locals(validatedBodyKey).(*T)
	if !ok || body == nil {
		return zero, newAPIError(fiber.StatusInternalServerError, core.ErrInternalError, "validation bypass detected", "")
	}
	return *body, nil
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
