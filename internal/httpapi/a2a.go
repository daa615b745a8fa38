// Copyright (c) Microsoft. All rights reserved.

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/internal/conversation"
)

// A2A serves one agent over the Agent2Agent protocol under /a2a. A2A
// context ids are thread ids.
type A2A struct {
	AgentID     string
	AgentType   string
	Name        string
	Description string

	// BaseURL is advertised in the agent card. Empty derives it from the
	// request.
	BaseURL string
}

// JSON-RPC error codes.
const (
	rpcParseError     = -32700
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcAgentError     = -32000
	rpcTaskNotFound   = -32001
)

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type messageSendParams struct {
	Message  a2aMessage     `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type a2aMessage struct {
	Kind      string    `json:"kind"`
	Role      string    `json:"role"`
	MessageID string    `json:"messageId"`
	ContextID string    `json:"contextId,omitempty"`
	Parts     []a2aPart `json:"parts"`
}

type a2aPart struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

type taskGetParams struct {
	ID string `json:"id"`
}

type agentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
	Capabilities       agentCapabilities `json:"capabilities"`
	Skills             []agentSkill      `json:"skills"`
}

type agentCapabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

type agentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

func (s *Server) agentCard(c echo.Context) error {
	a := s.deps.A2A
	card := agentCard{
		Name:               a.Name,
		Description:        a.Description,
		URL:                s.baseURL(c) + "/a2a/",
		Version:            "1.0.0",
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []agentSkill{{
			ID:          strings.ToLower(strings.ReplaceAll(a.Name, " ", "_")) + "_chat",
			Name:        a.Name,
			Description: a.Description,
			Tags:        []string{"chat"},
		}},
	}
	return c.JSON(http.StatusOK, card)
}

func (s *Server) baseURL(c echo.Context) string {
	if s.deps.A2A.BaseURL != "" {
		return strings.TrimRight(s.deps.A2A.BaseURL, "/")
	}
	r := c.Request()
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = c.Scheme()
	}
	return scheme + "://" + host
}

// a2aRPC handles the JSON-RPC endpoint. Protocol errors travel in the
// JSON-RPC envelope with HTTP 200.
func (s *Server) a2aRPC(c echo.Context) error {
	var req jsonRPCRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return rpcFail(c, nil, rpcParseError, "Parse error")
	}

	switch req.Method {
	case "message/send":
		return s.a2aMessageSend(c, &req)
	case "tasks/get":
		var params taskGetParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return rpcFail(c, req.ID, rpcInvalidParams, "Invalid params")
		}
		return rpcFail(c, req.ID, rpcTaskNotFound, "Task not found (this agent only supports synchronous message/send)")
	default:
		return rpcFail(c, req.ID, rpcMethodNotFound, "Method not found: "+req.Method)
	}
}

func (s *Server) a2aMessageSend(c echo.Context, req *jsonRPCRequest) error {
	var params messageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return rpcFail(c, req.ID, rpcInvalidParams, "Invalid params")
	}
	var texts []string
	for _, p := range params.Message.Parts {
		if p.Kind == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}

	ctx, cancel := s.roundTrip(c)
	defer cancel()
	resp, err := s.deps.Conversation.Ask(ctx, conversation.AskRequest{
		Message:   strings.Join(texts, "\n"),
		ThreadID:  params.Message.ContextID,
		AgentID:   s.deps.A2A.AgentID,
		AgentType: s.deps.A2A.AgentType,
	})
	if err != nil {
		if errors.Is(err, af.ErrValidation) {
			return rpcFail(c, req.ID, rpcInvalidParams, err.Error())
		}
		s.deps.Logger.ErrorContext(ctx, "a2a message failed", "error", err)
		return rpcFail(c, req.ID, rpcAgentError, fmt.Sprintf("Agent error: %v", err))
	}

	return c.JSON(http.StatusOK, jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: a2aMessage{
			Kind:      "message",
			Role:      "agent",
			MessageID: "resp-" + string(req.ID),
			ContextID: resp.ThreadID,
			Parts:     []a2aPart{{Kind: "text", Text: resp.Text()}},
		},
	})
}

func rpcFail(c echo.Context, id json.RawMessage, code int, msg string) error {
	return c.JSON(http.StatusOK, jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: msg},
	})
}
