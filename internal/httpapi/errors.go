// Copyright (c) Microsoft. All rights reserved.

package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/internal/config"
	"github.com/microsoft/foundry-agents/go/internal/conversation"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, af.ErrValidation), errors.Is(err, config.ErrAgentNotConfigured):
		return http.StatusBadRequest
	case errors.Is(err, af.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrApprovalLimit):
		return http.StatusConflict
	case errors.Is(err, af.ErrService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	return c.JSON(statusOf(err), errorBody{Error: err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}

// errorHandler renders errors returned by middleware and the router.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, msg := http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			} else {
				msg = http.StatusText(code)
			}
		} else {
			logger.ErrorContext(c.Request().Context(), "unhandled error", "error", err)
		}
		if werr := c.JSON(code, errorBody{Error: msg}); werr != nil {
			logger.ErrorContext(c.Request().Context(), "write error response", "error", werr)
		}
	}
}
