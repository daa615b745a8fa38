// Copyright (c) Microsoft. All rights reserved.

// Package app wires the agent services from process settings.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/foundry"
	"github.com/microsoft/foundry-agents/go/internal/config"
	"github.com/microsoft/foundry-agents/go/internal/console"
	"github.com/microsoft/foundry-agents/go/internal/conversation"
	"github.com/microsoft/foundry-agents/go/internal/history"
	"github.com/microsoft/foundry-agents/go/internal/httpapi"
	"github.com/microsoft/foundry-agents/go/internal/knowledge"
	"github.com/microsoft/foundry-agents/go/internal/metrics"
	"github.com/microsoft/foundry-agents/go/internal/registry"
	"github.com/microsoft/foundry-agents/go/internal/threadstore"
	"github.com/microsoft/foundry-agents/go/openai"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "agents"

// App holds the wired services. Knowledge services are nil on the Azure
// OpenAI backend, which has no hosted vector stores.
type App struct {
	Settings     *config.Settings
	AgentConfig  *config.AgentConfiguration
	Conversation *conversation.Service
	VectorStores *knowledge.VectorStores
	Datasets     *knowledge.Datasets
	Metrics      *metrics.Collector
	Logger       *slog.Logger

	closers []io.Closer
}

type options struct {
	console    *console.Console
	logger     *slog.Logger
	credential azcore.TokenCredential
	foundry    []foundry.Option
}

// Option customizes [New].
type Option func(*options)

// WithConsole echoes tool calls, approval requests and token usage to c.
func WithConsole(c *console.Console) Option {
	return func(o *options) { o.console = c }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCredential replaces DefaultAzureCredential when no API key is set.
func WithCredential(cred azcore.TokenCredential) Option {
	return func(o *options) { o.credential = cred }
}

// WithFoundryOptions adds options to the Foundry client.
func WithFoundryOptions(opts ...foundry.Option) Option {
	return func(o *options) { o.foundry = append(o.foundry, opts...) }
}

// NewLogger returns a text logger at the level the settings ask for.
func NewLogger(s *config.Settings, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.LogLevel()}))
}

// New loads the agent configuration and wires the services. Close releases
// the thread store and the chat history backend.
func New(ctx context.Context, s *config.Settings, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cfg, err := config.Load(s.AgentConfigFile)
	if err != nil {
		return nil, err
	}
	endpoint, err := cfg.GetEndpoint()
	if err != nil {
		return nil, err
	}
	deployment, err := cfg.GetDeploymentName()
	if err != nil {
		return nil, err
	}

	a := &App{
		Settings:    s,
		AgentConfig: cfg,
		Metrics:     metrics.NewCollector(MetricsNamespace),
		Logger:      o.logger,
	}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close()
		}
	}()

	regOpts := []registry.Option{
		registry.WithLogger(o.logger),
		registry.WithAgentOptions(af.WithChatMiddleware(af.ChatLoggingMiddleware(o.logger))),
	}
	if o.console != nil {
		regOpts = append(regOpts, registry.WithToolCallOutput(o.console))
	}
	if s.MaxToolIterations > 0 {
		ic := af.DefaultInvocationConfig()
		ic.MaxIterations = s.MaxToolIterations
		regOpts = append(regOpts, registry.WithAgentOptions(af.WithInvocationConfig(ic)))
	}

	backend, historyCloser, err := history.Open(ctx, history.Config{
		Kind:          s.HistoryStore,
		RedisAddr:     s.RedisAddr,
		RedisPrefix:   s.RedisPrefix,
		RedisTTL:      s.RedisTTL,
		MongoURI:      s.MongoURI,
		MongoDatabase: s.MongoDatabase,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, historyCloser)
	if backend != nil {
		regOpts = append(regOpts, registry.WithAgentOptions(
			af.WithMessageStoreFactory(history.Factory(backend, s.HistoryWindow))))
	}

	var reg registry.Registry
	switch s.Backend {
	case config.BackendFoundry, "":
		fopts := []foundry.Option{}
		if s.FoundryAPIVersion != "" {
			fopts = append(fopts, foundry.WithAPIVersion(s.FoundryAPIVersion))
		}
		if s.APIKey != "" {
			fopts = append(fopts, foundry.WithAPIKey(s.APIKey))
		} else {
			cred, err := o.tokenCredential()
			if err != nil {
				return nil, err
			}
			fopts = append(fopts, foundry.WithCredential(cred))
		}
		client, err := foundry.New(endpoint, append(fopts, o.foundry...)...)
		if err != nil {
			return nil, err
		}
		reg = registry.NewFoundry(client, cfg, deployment, regOpts...)
		a.Datasets = knowledge.NewDatasets(client, s.FilesDir)
		a.VectorStores = knowledge.NewVectorStores(client, a.Datasets, o.logger)

	case config.BackendOpenAI:
		copts := []openai.Option{openai.WithAzureDeployment(endpoint, deployment, s.OpenAIAPIVersion)}
		if s.APIKey == "" {
			cred, err := o.tokenCredential()
			if err != nil {
				return nil, err
			}
			copts = append(copts, openai.WithAzureCredential(cred))
		}
		reg = registry.NewLocal(openai.New(s.APIKey, copts...), cfg, regOpts...)

	default:
		return nil, fmt.Errorf("%w: unknown agent backend %q (want foundry or openai)", af.ErrConfiguration, s.Backend)
	}

	store, closer, err := threadstore.Open(ctx, threadstore.Config{
		Kind:          s.ThreadStore,
		Dir:           s.ThreadStoreDir,
		RedisAddr:     s.RedisAddr,
		RedisPrefix:   s.RedisPrefix,
		RedisTTL:      s.RedisTTL,
		SQLDriver:     s.SQLDriver,
		SQLDSN:        s.SQLDSN,
		MongoURI:      s.MongoURI,
		MongoDatabase: s.MongoDatabase,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)

	convOpts := []conversation.Option{
		conversation.WithMaxApprovalRounds(s.MaxApprovalRounds),
		conversation.WithRecorder(a.Metrics),
		conversation.WithLogger(o.logger),
	}
	if o.console != nil {
		convOpts = append(convOpts, conversation.WithConsole(o.console))
	}
	if s.ApprovalPolicyFile != "" {
		approver, err := conversation.LoadPolicyApprover(ctx, s.ApprovalPolicyFile)
		if err != nil {
			return nil, err
		}
		convOpts = append(convOpts, conversation.WithApprover(approver))
		o.logger.InfoContext(ctx, "tool approval policy loaded", "path", s.ApprovalPolicyFile)
	}
	a.Conversation = conversation.NewService(reg, store, convOpts...)

	ready = true
	o.logger.InfoContext(ctx, "agent services ready",
		"backend", s.Backend, "thread_store", s.ThreadStore, "chat_history", s.HistoryStore, "deployment", deployment)
	return a, nil
}

func (o *options) tokenCredential() (azcore.TokenCredential, error) {
	if o.credential != nil {
		return o.credential, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create Azure credential: %w", af.ErrConfiguration, err)
	}
	return cred, nil
}

// HTTPServer returns the HTTP front end over the wired services.
func (a *App) HTTPServer() *httpapi.Server {
	var a2a *httpapi.A2A
	if s := a.Settings; s.A2AAgentID != "" || s.A2AAgentType != "" {
		a2a = &httpapi.A2A{
			AgentID:     s.A2AAgentID,
			AgentType:   s.A2AAgentType,
			Name:        s.A2AAgentName,
			Description: s.A2AAgentDescription,
			BaseURL:     s.A2ABaseURL,
		}
	}
	return httpapi.New(httpapi.Deps{
		Conversation:   a.Conversation,
		VectorStores:   a.VectorStores,
		Datasets:       a.Datasets,
		AgentConfig:    a.AgentConfig,
		Metrics:        a.Metrics,
		Logger:         a.Logger,
		RateLimit:      a.Settings.RateLimitRPS,
		RequestTimeout: a.Settings.RequestTimeout,
		A2A:            a2a,
	})
}

// Close releases the thread store and the chat history backend.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
