// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Agent is the top-level conversational agent. It composes a [ChatClient] with
// tools, middleware, and session management.
//
// Create one with [NewAgent] and functional options:
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithName("GlobalAgent"),
//	    agentframework.WithInstructions("You are a helpful assistant."),
//	    agentframework.WithTools(tools.Customer()...),
//	)
type Agent struct {
	id                  string
	name                string
	description         string
	client              ChatClient
	instructions        string
	tools               []Tool
	defaultOptions      *ChatOptions
	messageStoreFactory func() MessageStore
	agentMiddleware     []AgentMiddleware
	chatMiddleware      []ChatMiddleware
	functionMiddleware  []FunctionMiddleware
	invocationConfig    InvocationConfig
}

// AgentOption configures an [Agent] via [NewAgent].
type AgentOption func(*Agent)

// WithID sets the agent identifier. Agents hosted by a service use the id
// the service assigned; otherwise a random UUID is generated.
func WithID(id string) AgentOption {
	return func(a *Agent) { a.id = id }
}

// WithName sets the agent's display name.
func WithName(name string) AgentOption {
	return func(a *Agent) { a.name = name }
}

// WithDescription sets the agent's description.
func WithDescription(desc string) AgentOption {
	return func(a *Agent) { a.description = desc }
}

// WithInstructions sets the system instructions for the agent.
func WithInstructions(instructions string) AgentOption {
	return func(a *Agent) { a.instructions = instructions }
}

// WithTools adds tools to the agent's default tool set.
func WithTools(tools ...Tool) AgentOption {
	return func(a *Agent) { a.tools = append(a.tools, tools...) }
}

// WithDefaultOptions sets default [ChatOptions] for all requests.
func WithDefaultOptions(opts *ChatOptions) AgentOption {
	return func(a *Agent) { a.defaultOptions = opts }
}

// WithMessageStoreFactory sets a factory for creating message stores
// when a session is initialized in local mode.
func WithMessageStoreFactory(f func() MessageStore) AgentOption {
	return func(a *Agent) { a.messageStoreFactory = f }
}

// WithAgentMiddleware adds [AgentMiddleware] to the agent pipeline.
func WithAgentMiddleware(mws ...AgentMiddleware) AgentOption {
	return func(a *Agent) { a.agentMiddleware = append(a.agentMiddleware, mws...) }
}

// WithChatMiddleware adds [ChatMiddleware] around every model call.
func WithChatMiddleware(mws ...ChatMiddleware) AgentOption {
	return func(a *Agent) { a.chatMiddleware = append(a.chatMiddleware, mws...) }
}

// WithFunctionMiddleware adds [FunctionMiddleware] to the tool invocation pipeline.
func WithFunctionMiddleware(mws ...FunctionMiddleware) AgentOption {
	return func(a *Agent) { a.functionMiddleware = append(a.functionMiddleware, mws...) }
}

// WithInvocationConfig overrides the default [InvocationConfig] for the
// function calling loop.
func WithInvocationConfig(cfg InvocationConfig) AgentOption {
	return func(a *Agent) { a.invocationConfig = cfg }
}

// NewAgent creates an Agent with the given [ChatClient] and options.
func NewAgent(client ChatClient, opts ...AgentOption) *Agent {
	a := &Agent{
		client:           client,
		invocationConfig: DefaultInvocationConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.id == "" {
		a.id = uuid.NewString()
	}
	if len(a.chatMiddleware) > 0 {
		a.client = &middlewareClient{
			handler: chainChatMiddleware(client.Response, a.chatMiddleware...),
		}
	}
	return a
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// Instructions returns the agent's system instructions.
func (a *Agent) Instructions() string { return a.instructions }

// Tools returns the agent's default tool set. The slice is fixed at
// construction time.
func (a *Agent) Tools() []Tool { return a.tools }

// RunOption configures a single [Agent.Run] call.
type RunOption func(*runConfig)

type runConfig struct {
	session *Session
	tools   []Tool
	options *ChatOptions
}

// WithSession attaches a [Session] for multi-turn conversation.
func WithSession(s *Session) RunOption {
	return func(c *runConfig) { c.session = s }
}

// WithRunTools provides per-call tool overrides (merged with agent defaults).
func WithRunTools(tools ...Tool) RunOption {
	return func(c *runConfig) { c.tools = tools }
}

// WithRunOptions provides per-call [ChatOptions] overrides.
func WithRunOptions(opts *ChatOptions) RunOption {
	return func(c *runConfig) { c.options = opts }
}

// Run sends messages to the agent and returns a complete response.
//
// Messages carrying [ApprovalResponseContent] resolve tool calls that an
// earlier run surfaced as [ApprovalRequestContent]: approved calls are
// executed, rejected calls are reported back to the model.
func (a *Agent) Run(ctx context.Context, messages []Message, opts ...RunOption) (*AgentResponse, error) {
	cfg := a.buildRunConfig(opts)

	handler := a.buildHandler(cfg)
	wrapped := chainAgentMiddleware(handler, a.agentMiddleware...)

	req := &AgentRequest{
		AgentID:  a.id,
		Messages: messages,
		Session:  cfg.session,
		Options:  cfg.options,
	}

	return wrapped(ctx, req)
}

// NewSession creates an empty [Session]. The session settles into service
// or local mode after the first run.
func (a *Agent) NewSession() *Session {
	return NewSession()
}

// RestoreSession rebuilds a [Session] from the output of [Session.MarshalState].
func (a *Agent) RestoreSession(data []byte) (*Session, error) {
	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: decode session state: %w", ErrSession, err)
	}

	var sessOpts []SessionOption
	if state.SessionID != "" {
		sessOpts = append(sessOpts, WithSessionID(state.SessionID))
	}
	s := NewSession(sessOpts...)

	if state.ConversationID != "" {
		if err := s.SetServiceID(state.ConversationID); err != nil {
			return nil, err
		}
		return s, nil
	}
	if len(state.StoreState) > 0 {
		store := a.newMessageStore()
		r, ok := store.(StoreRestorer)
		if !ok {
			return nil, fmt.Errorf("%w: message store %T cannot be restored", ErrSession, store)
		}
		if err := r.Restore(state.StoreState); err != nil {
			return nil, fmt.Errorf("%w: restore store: %w", ErrSession, err)
		}
		if err := s.SetStore(store); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (a *Agent) newMessageStore() MessageStore {
	if a.messageStoreFactory != nil {
		return a.messageStoreFactory()
	}
	return NewInMemoryStore()
}

func (a *Agent) buildRunConfig(opts []RunOption) *runConfig {
	cfg := &runConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (a *Agent) prepareChatOptions(cfg *runConfig) *ChatOptions {
	opts := MergeChatOptions(a.defaultOptions, cfg.options)

	allTools := make([]Tool, 0, len(a.tools)+len(cfg.tools))
	allTools = append(allTools, a.tools...)
	allTools = append(allTools, cfg.tools...)
	if len(allTools) > 0 {
		opts.Tools = allTools
	}

	if a.instructions != "" {
		if opts.Instructions != "" {
			opts.Instructions = a.instructions + "\n" + opts.Instructions
		} else {
			opts.Instructions = a.instructions
		}
	}

	return opts
}

func (a *Agent) prepareMessages(ctx context.Context, messages []Message, cfg *runConfig, opts *ChatOptions) ([]Message, error) {
	var allMessages []Message

	if cfg.session != nil {
		if store := cfg.session.Store(); store != nil {
			history, err := store.ListMessages(ctx)
			if err != nil {
				return nil, fmt.Errorf("load session history: %w", err)
			}
			allMessages = append(allMessages, stripApprovalContents(history)...)
		}
		if sid := cfg.session.ServiceID(); sid != "" {
			opts.ConversationID = sid
		}
	}

	allMessages = append(allMessages, messages...)

	allMessages = PrependInstructions(allMessages, opts.Instructions)

	return allMessages, nil
}

func (a *Agent) buildHandler(cfg *runConfig) AgentHandler {
	return func(ctx context.Context, req *AgentRequest) (*AgentResponse, error) {
		chatOpts := a.prepareChatOptions(cfg)

		request := resolveApprovalResponses(ctx, req.Messages, chatOpts.Tools, a.invocationConfig, a.functionMiddleware)

		allMessages, err := a.prepareMessages(ctx, request, cfg, chatOpts)
		if err != nil {
			return nil, err
		}

		slog.DebugContext(ctx, "agent run",
			"agent_id", a.id,
			"agent_name", a.name,
			"message_count", len(allMessages),
			"tool_count", len(chatOpts.Tools),
			"conversation_id", chatOpts.ConversationID,
		)

		var chatResp *ChatResponse
		if len(chatOpts.Tools) > 0 {
			chatResp, err = invokeFunctions(ctx, a.client, allMessages, chatOpts, a.invocationConfig, a.functionMiddleware)
		} else {
			chatResp, err = a.client.Response(ctx, allMessages, chatOpts)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecution, err)
		}

		if cfg.session != nil {
			if err := a.updateSession(ctx, cfg.session, request, chatResp); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrSession, err)
			}
		}

		createdAt := chatResp.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		conversationID := chatResp.ConversationID
		if conversationID == "" {
			conversationID = chatOpts.ConversationID
		}

		return &AgentResponse{
			Messages:       chatResp.Messages,
			ResponseID:     chatResp.ResponseID,
			AgentID:        a.id,
			ConversationID: conversationID,
			CreatedAt:      createdAt,
			Usage:          chatResp.Usage,
			Extra:          chatResp.Extra,
			Raw:            chatResp.Raw,
		}, nil
	}
}

func (a *Agent) updateSession(ctx context.Context, session *Session, request []Message, resp *ChatResponse) error {
	store := session.Store()
	if store == nil {
		// A conversation id means the service keeps the history.
		if resp.ConversationID != "" {
			return session.SetServiceID(resp.ConversationID)
		}
		if session.ServiceID() != "" {
			return nil
		}
		store = a.newMessageStore()
		if err := session.SetStore(store); err != nil {
			return err
		}
	}

	if err := store.AddMessages(ctx, request); err != nil {
		return err
	}
	return store.AddMessages(ctx, resp.Messages)
}

// middlewareClient routes model calls through a chat middleware chain.
type middlewareClient struct {
	handler ChatHandler
}

func (c *middlewareClient) Response(ctx context.Context, messages []Message, opts *ChatOptions) (*ChatResponse, error) {
	return c.handler(ctx, messages, opts)
}
