// Copyright (c) Microsoft. All rights reserved.

package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/microsoft/foundry-agents/go/internal/conversation"
)

// MessageRequest is the body of POST /message and the thread routes.
type MessageRequest struct {
	Message   string `json:"message"`
	ThreadID  string `json:"threadId,omitempty"`
	AgentID   string `json:"agentId,omitempty"`
	AgentType string `json:"agentType,omitempty"`
}

// sendMessage handles POST /message.
func (s *Server) sendMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	return s.ask(c, req)
}

// createThread handles POST /threads. The message opens a new thread.
func (s *Server) createThread(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.ThreadID = ""
	return s.ask(c, req)
}

// addMessage handles POST /threads/:threadId/messages.
func (s *Server) addMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.ThreadID = c.Param("threadId")
	return s.ask(c, req)
}

func (s *Server) ask(c echo.Context, req MessageRequest) error {
	ctx, cancel := s.roundTrip(c)
	defer cancel()

	resp, err := s.deps.Conversation.Ask(ctx, conversation.AskRequest{
		Message:   req.Message,
		ThreadID:  req.ThreadID,
		AgentID:   req.AgentID,
		AgentType: req.AgentType,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// roundTrip returns the request context bounded by RequestTimeout.
func (s *Server) roundTrip(c echo.Context) (context.Context, context.CancelFunc) {
	if s.deps.RequestTimeout > 0 {
		return context.WithTimeout(c.Request().Context(), s.deps.RequestTimeout)
	}
	return context.WithCancel(c.Request().Context())
}
