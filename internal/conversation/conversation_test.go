// Copyright (c) Microsoft. All rights reserved.

package conversation_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/foundry"
	"github.com/microsoft/foundry-agents/go/foundry/foundrytest"
	"github.com/microsoft/foundry-agents/go/internal/config"
	"github.com/microsoft/foundry-agents/go/internal/conversation"
	"github.com/microsoft/foundry-agents/go/internal/history"
	"github.com/microsoft/foundry-agents/go/internal/metrics"
	"github.com/microsoft/foundry-agents/go/internal/registry"
	"github.com/microsoft/foundry-agents/go/internal/response"
	"github.com/microsoft/foundry-agents/go/internal/threadstore"
)

const agentsYAML = `
agentConfiguration:
  deploymentName: AZURE_FOUNDRY_DEPLOYMENT
  endpoint: AZURE_FOUNDRY_PROJECT_ENDPOINT
  agents:
    GlobalAgent:
      name: Global Agent
      instructions: You are a helpful assistant.
    CustomerAgent:
      name: Customer Agent
      instructions: Help customers with their accounts.
      tools:
        functions: [CustomerTools]
`

const cancelAndChange = "Cancel my account and change my password"

type recorder struct {
	mu        sync.Mutex
	outcomes  []string
	approvals []string
	tokens    int
	loads     []bool
}

func (r *recorder) RecordAsk(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorder) RecordApproval(tool string, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if approved {
		r.approvals = append(r.approvals, tool+"=approved")
	} else {
		r.approvals = append(r.approvals, tool+"=denied")
	}
}

func (r *recorder) RecordTokens(input, output int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens += input + output
}

func (r *recorder) RecordThreadLoad(found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, found)
}

type fixture struct {
	svc   *conversation.Service
	srv   *foundrytest.Server
	store *threadstore.FileStore
	dir   string
	rec   *recorder
}

func newFixture(t *testing.T, responder foundrytest.Responder, opts ...conversation.Option) *fixture {
	t.Helper()
	cfg, err := config.Parse([]byte(agentsYAML))
	require.NoError(t, err)

	srv := foundrytest.NewServer(t, responder)
	reg := registry.NewFoundry(srv.Client(t), cfg, "gpt-4o")
	dir := t.TempDir()
	store := threadstore.NewFileStore(dir)
	rec := &recorder{}
	opts = append([]conversation.Option{conversation.WithRecorder(rec)}, opts...)
	return &fixture{
		svc:   conversation.NewService(reg, store, opts...),
		srv:   srv,
		store: store,
		dir:   dir,
		rec:   rec,
	}
}

func userTexts(thread []foundry.ThreadMessage, text string) int {
	n := 0
	for _, m := range thread {
		if m.Role == "user" && len(m.Content) > 0 && m.Content[0].Text.Value == text {
			n++
		}
	}
	return n
}

func TestAsk_GlobalAgentConversation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, conversation.AskRequest{Message: "Hello", AgentType: string(config.GlobalAgent)})
	require.NoError(t, err)
	assert.NotEmpty(t, first.AgentID)
	assert.NotEmpty(t, first.ThreadID)
	require.Len(t, first.Messages, 1)
	assert.Equal(t, response.RoleAssistant, first.Messages[0].Role)
	assert.Equal(t, "echo: Hello", first.Messages[0].Content)
	require.NotNil(t, first.Usage)
	assert.Equal(t, 15, first.Usage.TotalTokenCount)

	_, err = os.Stat(f.store.Path(first.AgentID, first.ThreadID))
	require.NoError(t, err, "thread state is persisted")

	second, err := f.svc.Ask(ctx, conversation.AskRequest{
		Message:  "Follow-up",
		ThreadID: first.ThreadID,
		AgentID:  first.AgentID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.AgentID, second.AgentID)
	assert.Equal(t, first.ThreadID, second.ThreadID, "the persisted thread is resumed")
	assert.Equal(t, "echo: Follow-up", second.Messages[0].Content)
	assert.Len(t, f.srv.Thread(first.ThreadID), 4)
	assert.Equal(t, 1, f.srv.AgentCount())
	assert.Equal(t, []bool{true}, f.rec.loads)
	assert.Equal(t, []string{metrics.OutcomeOK, metrics.OutcomeOK}, f.rec.outcomes)
}

func TestAsk_AgentIDWinsOverType(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, conversation.AskRequest{Message: "Hello", AgentType: string(config.GlobalAgent)})
	require.NoError(t, err)

	again, err := f.svc.Ask(ctx, conversation.AskRequest{Message: "Hi", AgentID: first.AgentID, AgentType: "CustomerAgent"})
	require.NoError(t, err)
	assert.Equal(t, first.AgentID, again.AgentID)
	assert.NotEqual(t, first.ThreadID, again.ThreadID, "no thread id starts a new thread")
	assert.Equal(t, 1, f.srv.AgentCount())
}

func TestAsk_RejectsBeforeAnyVendorCall(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  conversation.AskRequest
		want error
	}{
		{"empty message", conversation.AskRequest{AgentType: string(config.GlobalAgent)}, conversation.ErrEmptyMessage},
		{"whitespace message", conversation.AskRequest{Message: " \t\n", AgentType: string(config.GlobalAgent)}, conversation.ErrEmptyMessage},
		{"no selector", conversation.AskRequest{Message: "Hello"}, conversation.ErrAgentSelectorRequired},
		{"bad thread id", conversation.AskRequest{Message: "Hello", AgentType: string(config.GlobalAgent), ThreadID: "../x"}, threadstore.ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Ask(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, af.ErrValidation)
		})
	}
	assert.Empty(t, f.srv.Requests())
	assert.Equal(t, []string{metrics.OutcomeInvalid, metrics.OutcomeInvalid, metrics.OutcomeInvalid, metrics.OutcomeInvalid}, f.rec.outcomes)
}

func TestAsk_CorruptStateStartsNewThread(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, conversation.AskRequest{Message: "Hello", AgentType: string(config.GlobalAgent)})
	require.NoError(t, err)

	path := f.store.Path(first.AgentID, "thread_broken")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	resp, err := f.svc.Ask(ctx, conversation.AskRequest{Message: "Again", AgentID: first.AgentID, ThreadID: "thread_broken"})
	require.NoError(t, err)
	assert.NotEqual(t, "thread_broken", resp.ThreadID)
	assert.NotEqual(t, first.ThreadID, resp.ThreadID)
	assert.Equal(t, "echo: Again", resp.Messages[0].Content)
	assert.Len(t, f.srv.Thread(resp.ThreadID), 2)
}

func TestAsk_UnknownThreadStartsNewThread(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := f.svc.Ask(context.Background(), conversation.AskRequest{
		Message:   "Hello",
		AgentType: string(config.GlobalAgent),
		ThreadID:  "thread_never_saved",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "thread_never_saved", resp.ThreadID)
	assert.Equal(t, []bool{false}, f.rec.loads)
}

// approvalResponder asks for both sensitive tools on the first run, answers
// the submitted outputs, then answers the re-sent message.
type approvalResponder struct {
	mu      sync.Mutex
	runs    int
	outputs []foundry.ToolOutput
}

func (r *approvalResponder) respond(_ foundry.Agent, _ []foundry.ThreadMessage, outputs []foundry.ToolOutput) foundrytest.Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	switch {
	case len(outputs) > 0:
		r.outputs = append(r.outputs, outputs...)
		return foundrytest.Turn{Text: "Both requests are done."}
	case r.runs == 1:
		return foundrytest.Turn{ToolCalls: []foundrytest.ToolCall{
			{Name: "CancelAccount", Arguments: `{"customerId":"42","reason":"moving"}`},
			{Name: "ChangePassword", Arguments: `{"customerId":"42","newPassword":"s3cret!"}`},
		}}
	default:
		return foundrytest.Turn{Text: "Your account is cancelled and your password was changed."}
	}
}

func (r *approvalResponder) submitted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, o := range r.outputs {
		out = append(out, o.Output)
	}
	return out
}

func TestAsk_TwoApprovalsInOneBatch(t *testing.T) {
	r := &approvalResponder{}
	f := newFixture(t, r.respond)

	resp, err := f.svc.Ask(context.Background(), conversation.AskRequest{Message: cancelAndChange, AgentType: "CustomerAgent"})
	require.NoError(t, err)

	assert.Equal(t, []string{"CancelAccount=approved", "ChangePassword=approved"}, f.rec.approvals)
	assert.Equal(t, []string{
		"Account for customer 42 has been successfully cancelled. Reason: moving",
		"Password successfully changed for customer 42. A confirmation email has been sent.",
	}, r.submitted())

	assert.Equal(t, 2, userTexts(f.srv.Thread(resp.ThreadID), cancelAndChange), "original message is sent once more after the batch")
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "Your account is cancelled and your password was changed.", resp.Messages[0].Content)
	assert.Equal(t, 45, resp.Usage.TotalTokenCount, "usage covers every run of the message")
	assert.Equal(t, 3, r.runs)

	_, err = os.Stat(f.store.Path(resp.AgentID, resp.ThreadID))
	assert.NoError(t, err)
}

func TestAsk_DeniedApprovals(t *testing.T) {
	r := &approvalResponder{}
	f := newFixture(t, r.respond, conversation.WithApprover(conversation.DenyAll))

	_, err := f.svc.Ask(context.Background(), conversation.AskRequest{Message: cancelAndChange, AgentType: "CustomerAgent"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CancelAccount=denied", "ChangePassword=denied"}, f.rec.approvals)
	assert.Equal(t, []string{
		af.RejectedToolCallResult + " Denied by policy.",
		af.RejectedToolCallResult + " Denied by policy.",
	}, r.submitted())
}

func TestAsk_ApprovalLimit(t *testing.T) {
	always := func(foundry.Agent, []foundry.ThreadMessage, []foundry.ToolOutput) foundrytest.Turn {
		return foundrytest.Turn{ToolCalls: []foundrytest.ToolCall{{Name: "CancelAccount", Arguments: `{"customerId":"42"}`}}}
	}
	f := newFixture(t, always, conversation.WithMaxApprovalRounds(2))

	_, err := f.svc.Ask(context.Background(), conversation.AskRequest{Message: "Cancel it", AgentType: "CustomerAgent"})
	require.ErrorIs(t, err, conversation.ErrApprovalLimit)
	assert.Len(t, f.rec.approvals, 2)
	assert.Equal(t, []string{metrics.OutcomeApprovalLimit}, f.rec.outcomes)

	_, statErr := os.Stat(filepath.Join(f.dir, "AgentsThreads"))
	assert.True(t, os.IsNotExist(statErr), "nothing is persisted")
}

func TestAsk_ApproverError(t *testing.T) {
	r := &approvalResponder{}
	boom := errors.New("approver offline")
	f := newFixture(t, r.respond, conversation.WithApprover(conversation.ApproverFunc(
		func(context.Context, *af.ApprovalRequestContent) (conversation.Decision, error) {
			return conversation.Decision{}, boom
		})))

	_, err := f.svc.Ask(context.Background(), conversation.AskRequest{Message: cancelAndChange, AgentType: "CustomerAgent"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, r.submitted())
}

func TestAsk_VendorFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, conversation.AskRequest{Message: "Hello", AgentType: string(config.GlobalAgent)})
	require.NoError(t, err)

	f.srv.Close()
	_, err = f.svc.Ask(ctx, conversation.AskRequest{Message: "Follow-up", AgentID: first.AgentID, ThreadID: first.ThreadID})
	require.ErrorIs(t, err, conversation.ErrOperationFailed)
	assert.ErrorIs(t, err, af.ErrService)

	state, found, err := f.store.Load(ctx, first.AgentID, first.ThreadID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first.ThreadID, threadstore.ThreadIDFromState(state))
	assert.Equal(t, metrics.OutcomeFailed, f.rec.outcomes[len(f.rec.outcomes)-1])
}

func TestAsk_UnknownAgent(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Ask(context.Background(), conversation.AskRequest{Message: "Hello", AgentID: "asst_missing"})
	assert.ErrorIs(t, err, registry.ErrAgentNotFound)
}

func TestAsk_SameThreadIsSerialized(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, conversation.AskRequest{Message: "Hello", AgentType: string(config.GlobalAgent)})
	require.NoError(t, err)

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Ask(ctx, conversation.AskRequest{Message: "More", AgentID: first.AgentID, ThreadID: first.ThreadID})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, f.srv.Thread(first.ThreadID), 2+2*n)
}

func TestAsk_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := &approvalResponder{}
	f := newFixture(t, r.respond, conversation.WithTracerProvider(tp))
	_, err := f.svc.Ask(context.Background(), conversation.AskRequest{Message: cancelAndChange, AgentType: "CustomerAgent"})
	require.NoError(t, err)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"conversation.approval_round", "conversation.ask"}, names)
}

// historyClient replies with the number of non-system messages it was sent.
type historyClient struct{}

func (historyClient) Response(_ context.Context, msgs []af.Message, _ *af.ChatOptions) (*af.ChatResponse, error) {
	n := 0
	for _, m := range msgs {
		if m.Role != af.RoleSystem {
			n++
		}
	}
	return &af.ChatResponse{
		Messages: []af.Message{af.NewAssistantMessage("seen " + strings.Repeat("*", n))},
		Usage:    af.UsageDetails{InputTokens: 3, OutputTokens: 2, TotalTokens: 5},
	}, nil
}

func TestAsk_LocalHistoryIsResumed(t *testing.T) {
	cfg, err := config.Parse([]byte(agentsYAML))
	require.NoError(t, err)
	store := threadstore.NewFileStore(t.TempDir())
	svc := conversation.NewService(registry.NewLocal(historyClient{}, cfg), store)
	ctx := context.Background()

	first, err := svc.Ask(ctx, conversation.AskRequest{Message: "Hello", AgentType: string(config.GlobalAgent)})
	require.NoError(t, err)
	assert.Equal(t, "seen *", first.Messages[0].Content)
	assert.NotEqual(t, threadstore.SentinelThreadID, first.ThreadID)

	second, err := svc.Ask(ctx, conversation.AskRequest{Message: "Follow-up", AgentID: first.AgentID, ThreadID: first.ThreadID})
	require.NoError(t, err)
	assert.Equal(t, "seen ***", second.Messages[0].Content)
	assert.Equal(t, first.ThreadID, second.ThreadID)

	other, err := svc.Ask(ctx, conversation.AskRequest{Message: "Hello", AgentID: first.AgentID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ThreadID, other.ThreadID, "local threads do not share a file")
}

func TestAsk_LocalHistoryInExternalStore(t *testing.T) {
	cfg, err := config.Parse([]byte(agentsYAML))
	require.NoError(t, err)
	dir := t.TempDir()
	backend := history.NewMemoryBackend()
	reg := registry.NewLocal(historyClient{}, cfg,
		registry.WithAgentOptions(af.WithMessageStoreFactory(history.Factory(backend, 2))))
	svc := conversation.NewService(reg, threadstore.NewFileStore(dir))
	ctx := context.Background()

	first, err := svc.Ask(ctx, conversation.AskRequest{Message: "Hello", AgentType: string(config.GlobalAgent)})
	require.NoError(t, err)
	assert.Equal(t, "seen *", first.Messages[0].Content)
	path := filepath.Join(dir, "AgentsThreads", first.AgentID, "Threads", first.ThreadID+".json")
	saved, err := os.ReadFile(path)
	require.NoError(t, err)

	for _, want := range []string{"seen ***", "seen ***"} {
		resp, err := svc.Ask(ctx, conversation.AskRequest{Message: "Follow-up", AgentID: first.AgentID, ThreadID: first.ThreadID})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Messages[0].Content)
		assert.Equal(t, first.ThreadID, resp.ThreadID)
	}

	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, string(saved), string(again))
	assert.NotContains(t, string(again), "Follow-up")
}
