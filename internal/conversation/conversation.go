// Copyright (c) Microsoft. All rights reserved.

// Package conversation drives one user message through an agent: thread
// resume, tool approval rounds and thread persistence.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/internal/console"
	"github.com/microsoft/foundry-agents/go/internal/metrics"
	"github.com/microsoft/foundry-agents/go/internal/registry"
	"github.com/microsoft/foundry-agents/go/internal/response"
	"github.com/microsoft/foundry-agents/go/internal/threadstore"
)

// DefaultMaxApprovalRounds bounds approval rounds per message.
const DefaultMaxApprovalRounds = 8

var (
	// ErrEmptyMessage is returned for an empty or whitespace message.
	ErrEmptyMessage = fmt.Errorf("%w: Message cannot be null or empty.", af.ErrValidation)

	// ErrAgentSelectorRequired is returned when neither an agent id nor an
	// agent type is given.
	ErrAgentSelectorRequired = registry.ErrSelectorRequired

	// ErrApprovalLimit is returned when approvals keep coming after the
	// configured number of rounds.
	ErrApprovalLimit = fmt.Errorf("%w: too many tool approval rounds", af.ErrExecution)

	// ErrOperationFailed wraps vendor failures while running the agent.
	ErrOperationFailed = fmt.Errorf("%w: operation failed", af.ErrExecution)
)

// AskRequest is one user message. AgentID wins over AgentType; AgentType is
// required when AgentID is empty. An empty ThreadID starts a new thread.
type AskRequest struct {
	Message   string
	ThreadID  string
	AgentID   string
	AgentType string
}

// Recorder receives run loop measurements. *metrics.Collector implements it.
type Recorder interface {
	RecordAsk(outcome string, d time.Duration)
	RecordApproval(tool string, approved bool)
	RecordTokens(input, output int)
	RecordThreadLoad(found bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordAsk(string, time.Duration) {}
func (nopRecorder) RecordApproval(string, bool)     {}
func (nopRecorder) RecordTokens(int, int)           {}
func (nopRecorder) RecordThreadLoad(bool)           {}

// Service answers messages.
type Service struct {
	registry  registry.Registry
	store     threadstore.Store
	locks     *threadstore.KeyedMutex
	approver  Approver
	maxRounds int
	recorder  Recorder
	console   *console.Console
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a [Service].
type Option func(*Service)

// WithApprover sets the approval policy. The default approves everything.
func WithApprover(a Approver) Option {
	return func(s *Service) { s.approver = a }
}

// WithMaxApprovalRounds bounds the approval rounds of one message.
func WithMaxApprovalRounds(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// WithRecorder reports outcomes, approval decisions and token usage to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithConsole echoes approval requests and token usage to c.
func WithConsole(c *console.Console) Option {
	return func(s *Service) { s.console = c }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTracerProvider sets the provider of the conversation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("github.com/microsoft/foundry-agents/go/internal/conversation") }
}

// NewService returns a Service resolving agents from reg and persisting
// threads in store.
func NewService(reg registry.Registry, store threadstore.Store, opts ...Option) *Service {
	s := &Service{
		registry:  reg,
		store:     store,
		locks:     threadstore.NewKeyedMutex(),
		approver:  AutoApprove,
		maxRounds: DefaultMaxApprovalRounds,
		recorder:  nopRecorder{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("github.com/microsoft/foundry-agents/go/internal/conversation"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Validate rejects a request before any vendor call.
func Validate(req AskRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return ErrEmptyMessage
	}
	if strings.TrimSpace(req.AgentID) == "" && strings.TrimSpace(req.AgentType) == "" {
		return ErrAgentSelectorRequired
	}
	if req.ThreadID != "" {
		if err := threadstore.ValidateKey(req.ThreadID); err != nil {
			return err
		}
	}
	return nil
}

// Ask sends the message and returns the agent's answer. Pending tool
// approvals are decided by the approver, after which the original message is
// sent again. Thread state is saved only after a complete answer.
func (s *Service) Ask(ctx context.Context, req AskRequest) (resp *response.AgentResponse, err error) {
	start := time.Now()
	defer func() { s.recorder.RecordAsk(outcome(err), time.Since(start)) }()

	if err := Validate(req); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "conversation.ask", trace.WithAttributes(
		attribute.String("agent.id", req.AgentID),
		attribute.String("agent.type", req.AgentType),
		attribute.String("thread.id", req.ThreadID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	h, err := s.registry.GetOrCreate(ctx, req.AgentID, req.AgentType)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("agent.id", h.ID))

	session := h.Agent.NewSession()
	if req.ThreadID != "" {
		unlock, err := s.locks.Lock(ctx, threadstore.ThreadKey(h.ID, req.ThreadID))
		if err != nil {
			return nil, err
		}
		defer unlock()

		if session, err = s.resume(ctx, h, req.ThreadID); err != nil {
			return nil, err
		}
	}

	run, err := s.run(ctx, h, session, req.Message)
	if err != nil {
		return nil, err
	}

	state, err := session.MarshalState()
	if err != nil {
		return nil, fmt.Errorf("serialize thread: %w", err)
	}
	threadID, err := s.store.Save(ctx, h.ID, state)
	if err != nil {
		return nil, fmt.Errorf("save thread: %w", err)
	}
	span.SetAttributes(attribute.String("thread.id", threadID))

	s.recorder.RecordTokens(run.Usage.InputTokens, run.Usage.OutputTokens)
	out := response.FromAgentRun(run, threadID)
	if s.console != nil {
		response.LogTokenUsage(s.console, out)
	}
	return out, nil
}

// resume loads persisted state. Missing or unreadable state starts a new
// thread.
func (s *Service) resume(ctx context.Context, h *registry.Handle, threadID string) (*af.Session, error) {
	state, found, err := s.store.Load(ctx, h.ID, threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	s.recorder.RecordThreadLoad(found)
	if !found {
		s.logger.InfoContext(ctx, "no saved thread, starting a new one", "agent_id", h.ID, "thread_id", threadID)
		return h.Agent.NewSession(), nil
	}
	session, err := h.Agent.RestoreSession(state)
	if err != nil {
		s.logger.WarnContext(ctx, "cannot restore saved thread, starting a new one",
			"agent_id", h.ID, "thread_id", threadID, "error", err)
		return h.Agent.NewSession(), nil
	}
	return session, nil
}

// run sends the message and settles approval rounds. Usage is summed over
// every call.
func (s *Service) run(ctx context.Context, h *registry.Handle, session *af.Session, message string) (*af.AgentResponse, error) {
	var usage af.UsageDetails
	send := func(msg af.Message) (*af.AgentResponse, error) {
		resp, err := h.Agent.Run(ctx, []af.Message{msg}, af.WithSession(session))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOperationFailed, err)
		}
		usage.Add(resp.Usage)
		return resp, nil
	}

	resp, err := send(af.NewUserMessage(message))
	if err != nil {
		return nil, err
	}

	for round := 1; ; round++ {
		pending := resp.ApprovalRequests()
		if len(pending) == 0 {
			break
		}
		if round > s.maxRounds {
			return nil, fmt.Errorf("%w: %d pending after %d rounds", ErrApprovalLimit, len(pending), s.maxRounds)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if resp, err = s.approvalRound(ctx, round, pending, send); err != nil {
			return nil, err
		}
		// Approved calls can lead straight to more approvals on the same run.
		if len(resp.ApprovalRequests()) > 0 {
			continue
		}
		if resp, err = send(af.NewUserMessage(message)); err != nil {
			return nil, err
		}
	}

	resp.Usage = usage
	return resp, nil
}

func (s *Service) approvalRound(ctx context.Context, round int, pending []*af.ApprovalRequestContent, send func(af.Message) (*af.AgentResponse, error)) (*af.AgentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.approval_round", trace.WithAttributes(
		attribute.Int("round", round),
		attribute.Int("pending", len(pending)),
	))
	defer span.End()

	decisions := make(af.Contents, 0, len(pending))
	for _, p := range pending {
		if s.console != nil {
			s.console.SystemLine(fmt.Sprintf("We require approval to execute '%s'", p.Name))
		}
		d, err := s.approver.Decide(ctx, p)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("decide approval for %s: %w", p.Name, err)
		}
		s.recorder.RecordApproval(p.Name, d.Approved)
		s.logger.InfoContext(ctx, "tool approval decided", "tool", p.Name, "call_id", p.CallID, "approved", d.Approved)
		decisions = append(decisions, p.CreateResponse(d.Approved, d.Reason))
	}
	return send(af.Message{Role: af.RoleUser, Contents: decisions})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, af.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrApprovalLimit):
		return metrics.OutcomeApprovalLimit
	default:
		return metrics.OutcomeFailed
	}
}
