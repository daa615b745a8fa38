// Copyright (c) Microsoft. All rights reserved.

package httpapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/foundry-agents/go/foundry"
	"github.com/microsoft/foundry-agents/go/foundry/foundrytest"
	"github.com/microsoft/foundry-agents/go/internal/config"
	"github.com/microsoft/foundry-agents/go/internal/conversation"
	"github.com/microsoft/foundry-agents/go/internal/httpapi"
	"github.com/microsoft/foundry-agents/go/internal/knowledge"
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
  vectorStores:
    - vectorStoreName: products
      enabled: true
      files:
        - filePath: catalog.md
    - vectorStoreName: archive
      enabled: false
`

type fixture struct {
	server  *httpapi.Server
	srv     *foundrytest.Server
	metrics *metrics.Collector
}

type options struct {
	responder foundrytest.Responder
	rateLimit float64
	maxRounds int
	a2a       *httpapi.A2A
}

func newFixture(t *testing.T, o options) *fixture {
	t.Helper()
	cfg, err := config.Parse([]byte(agentsYAML))
	require.NoError(t, err)

	files := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(files, "catalog.md"), []byte("# Catalog"), 0o644))

	srv := foundrytest.NewServer(t, o.responder)
	client := srv.Client(t)
	collector := metrics.NewCollector("agents")

	convOpts := []conversation.Option{conversation.WithRecorder(collector)}
	if o.maxRounds > 0 {
		convOpts = append(convOpts, conversation.WithMaxApprovalRounds(o.maxRounds))
	}
	svc := conversation.NewService(
		registry.NewFoundry(client, cfg, "gpt-4o"),
		threadstore.NewFileStore(t.TempDir()),
		convOpts...,
	)
	datasets := knowledge.NewDatasets(client, files)

	server := httpapi.New(httpapi.Deps{
		Conversation: svc,
		VectorStores: knowledge.NewVectorStores(client, datasets, nil),
		Datasets:     datasets,
		AgentConfig:  cfg,
		Metrics:      collector,
		RateLimit:    o.rateLimit,
		A2A:          o.a2a,
	})
	return &fixture{server: server, srv: srv, metrics: collector}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestMessage_GlobalAgentConversation(t *testing.T) {
	f := newFixture(t, options{})

	rec := f.do(t, http.MethodPost, "/message", `{"message":"Hello","agentType":"GlobalAgent"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[response.AgentResponse](t, rec)
	assert.NotEmpty(t, first.AgentID)
	assert.NotEmpty(t, first.ThreadID)
	require.NotEmpty(t, first.Messages)
	last := first.Messages[len(first.Messages)-1]
	assert.Equal(t, response.RoleAssistant, last.Role)
	assert.Equal(t, "echo: Hello", last.Content)

	rec = f.do(t, http.MethodPost, "/threads/"+first.ThreadID+"/messages",
		`{"message":"Follow-up","agentId":"`+first.AgentID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[response.AgentResponse](t, rec)
	assert.Equal(t, first.AgentID, second.AgentID)
	assert.Equal(t, first.ThreadID, second.ThreadID)
	assert.Equal(t, "echo: Follow-up", second.Text())
}

func TestCreateThread_StartsNewThreads(t *testing.T) {
	f := newFixture(t, options{})

	rec := f.do(t, http.MethodPost, "/message", `{"message":"Hello","agentType":"GlobalAgent"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	agentID := decode[response.AgentResponse](t, rec).AgentID

	body := `{"message":"Hi","agentId":"` + agentID + `","threadId":"ignored"}`
	a := decode[response.AgentResponse](t, f.do(t, http.MethodPost, "/threads", body))
	b := decode[response.AgentResponse](t, f.do(t, http.MethodPost, "/threads", body))
	assert.NotEmpty(t, a.ThreadID)
	assert.NotEqual(t, a.ThreadID, b.ThreadID)
	assert.Equal(t, agentID, a.AgentID)
}

func TestMessage_RejectedBeforeVendorCall(t *testing.T) {
	f := newFixture(t, options{})

	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"empty message", "/message", `{"message":"","agentType":"GlobalAgent"}`, "Message cannot be null or empty."},
		{"whitespace message", "/message", `{"message":"  \t","agentType":"GlobalAgent"}`, "Message cannot be null or empty."},
		{"no selector", "/message", `{"message":"Hello"}`, "agent id or agent type is required"},
		{"bad thread id", "/threads/a..b/messages", `{"message":"Hello","agentType":"GlobalAgent"}`, "relative path element"},
		{"malformed body", "/message", `{"message":`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, errorOf(t, rec), tt.want)
		})
	}
	assert.Empty(t, f.srv.Requests())
}

func TestMessage_ErrorStatuses(t *testing.T) {
	f := newFixture(t, options{})

	rec := f.do(t, http.MethodPost, "/message", `{"message":"Hello","agentId":"asst_missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/message", `{"message":"Hello","agentType":"NoSuchAgent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, errorOf(t, rec), "Agent 'NoSuchAgent' is not found in the configuration.")

	f.srv.Close()
	rec = f.do(t, http.MethodPost, "/message", `{"message":"Hello","agentType":"GlobalAgent"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
}

func TestMessage_ApprovalLimitIsConflict(t *testing.T) {
	alwaysCancel := func(foundry.Agent, []foundry.ThreadMessage, []foundry.ToolOutput) foundrytest.Turn {
		return foundrytest.Turn{ToolCalls: []foundrytest.ToolCall{{
			Name:      "CancelAccount",
			Arguments: `{"customerId":"42","reason":"moving"}`,
		}}}
	}
	f := newFixture(t, options{responder: alwaysCancel, maxRounds: 1})

	rec := f.do(t, http.MethodPost, "/message", `{"message":"Cancel my account","agentType":"CustomerAgent"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Contains(t, errorOf(t, rec), "too many tool approval rounds")
}

func TestVectorStoresAndDatasets(t *testing.T) {
	f := newFixture(t, options{})

	rec := f.do(t, http.MethodPost, "/datasets/files", `{"filePath":"catalog.md"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	file := decode[foundry.File](t, rec)
	assert.Equal(t, "catalog.md", file.Filename)

	rec = f.do(t, http.MethodGet, "/datasets/files/"+file.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/datasets/files", "")
	assert.Len(t, decode[map[string][]foundry.File](t, rec)["files"], 1)

	rec = f.do(t, http.MethodPost, "/vector-stores", `{"name":"products"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	vs := decode[foundry.VectorStore](t, rec)

	rec = f.do(t, http.MethodPost, "/vector-stores/"+vs.ID+"/files", `{"fileId":"`+file.ID+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, []string{file.ID}, f.srv.VectorStoreFiles(vs.ID))

	rec = f.do(t, http.MethodGet, "/vector-stores/"+vs.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[foundry.VectorStore](t, rec).FileCounts.Total)

	rec = f.do(t, http.MethodGet, "/vector-stores/"+vs.ID+"/files", "")
	assert.Len(t, decode[map[string][]foundry.VectorStoreFile](t, rec)["files"], 1)

	rec = f.do(t, http.MethodPost, "/vector-stores/"+vs.ID+"/clean", `{"removeFilesFromDatasets":true}`)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Empty(t, f.srv.VectorStoreFiles(vs.ID))
	rec = f.do(t, http.MethodGet, "/datasets/files/"+file.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/vector-stores/vs_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodPost, "/vector-stores", `{"name":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/datasets/files", `{"filePath":"../outside.md"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteFile(t *testing.T) {
	f := newFixture(t, options{})

	file := decode[foundry.File](t, f.do(t, http.MethodPost, "/datasets/files", `{"filePath":"catalog.md"}`))
	rec := f.do(t, http.MethodDelete, "/datasets/files/"+file.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodGet, "/datasets/files/"+file.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitializeVectorStores(t *testing.T) {
	f := newFixture(t, options{})

	rec := f.do(t, http.MethodPost, "/vector-stores/initialize", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	all := decode[map[string][]knowledge.InitializationResult](t, rec)["initializedStores"]
	require.Len(t, all, 1)
	assert.Equal(t, "products", all[0].VectorStoreName)
	require.Len(t, all[0].Files, 1)
	assert.Equal(t, "catalog.md", all[0].Files[0].FileName)
	assert.Equal(t, []string{all[0].Files[0].FileID}, f.srv.VectorStoreFiles(all[0].VectorStoreID))

	rec = f.do(t, http.MethodPost, "/vector-stores/initialize",
		`{"vectorStoreId":"`+all[0].VectorStoreID+`","cleanVectorStore":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	one := decode[map[string][]knowledge.InitializationResult](t, rec)["initializedStores"]
	require.Len(t, one, 1)
	assert.Equal(t, all[0].VectorStoreID, one[0].VectorStoreID)
	assert.Empty(t, f.srv.VectorStoreFiles(all[0].VectorStoreID))
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, options{})

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/message", `{"message":"Hello","agentType":"GlobalAgent"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `agents_http_requests_total{method="POST",path="/message",status="200"} 1`)
	assert.Contains(t, body, `agents_agent_asks_total{outcome="ok"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, options{})

	rec := f.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", errorOf(t, rec))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, options{rateLimit: 1})

	rec := f.do(t, http.MethodPost, "/message", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/message", `{"message":""}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", errorOf(t, rec))

	rec = f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type rpcResult struct {
	ID     json.RawMessage `json:"id"`
	Result struct {
		Kind      string `json:"kind"`
		Role      string `json:"role"`
		MessageID string `json:"messageId"`
		ContextID string `json:"contextId"`
		Parts     []struct {
			Kind string `json:"kind"`
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func sendA2A(t *testing.T, f *fixture, text, contextID string) rpcResult {
	t.Helper()
	msg := map[string]any{
		"kind":      "message",
		"role":      "user",
		"messageId": "m1",
		"parts":     []map[string]string{{"kind": "text", "text": text}},
	}
	if contextID != "" {
		msg["contextId"] = contextID
	}
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "message/send",
		"params":  map[string]any{"message": msg},
	})
	require.NoError(t, err)
	rec := f.do(t, http.MethodPost, "/a2a/", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[rpcResult](t, rec)
}

func TestA2A_AgentCard(t *testing.T) {
	f := newFixture(t, options{a2a: &httpapi.A2A{
		AgentType:   "GlobalAgent",
		Name:        "GlobalAgent",
		Description: "A global agent that can answer questions about any topic.",
		BaseURL:     "https://agents.example.com/",
	}})

	for _, path := range []string{"/a2a/.well-known/agent-card.json", "/a2a/.well-known/agent.json"} {
		rec := f.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		card := decode[map[string]any](t, rec)
		assert.Equal(t, "GlobalAgent", card["name"])
		assert.Equal(t, "https://agents.example.com/a2a/", card["url"])
		assert.Equal(t, "1.0.0", card["version"])
		assert.Equal(t, []any{"text"}, card["defaultInputModes"])
		assert.Equal(t, map[string]any{"streaming": false, "pushNotifications": false}, card["capabilities"])
		assert.Len(t, card["skills"], 1)
	}

	req := httptest.NewRequest(http.MethodGet, "/a2a/.well-known/agent-card.json", nil)
	req.Host = "internal:8080"
	req.Header.Set("X-Forwarded-Host", "public.example.com")
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	noBase := newFixture(t, options{a2a: &httpapi.A2A{AgentType: "GlobalAgent", Name: "GlobalAgent"}})
	noBase.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://public.example.com/a2a/", decode[map[string]any](t, rec)["url"])
}

func TestA2A_MessageSendServesAgentByID(t *testing.T) {
	a2a := &httpapi.A2A{Name: "GlobalAgent"}
	f := newFixture(t, options{a2a: a2a})

	rec := f.do(t, http.MethodPost, "/message", `{"message":"Hello","agentType":"GlobalAgent"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	a2a.AgentID = decode[response.AgentResponse](t, rec).AgentID
	agents := f.srv.AgentCount()

	first := sendA2A(t, f, "What is A2A?", "")
	require.Nil(t, first.Error)
	assert.Equal(t, "message", first.Result.Kind)
	assert.Equal(t, "agent", first.Result.Role)
	assert.Equal(t, "resp-1", first.Result.MessageID)
	require.NotEmpty(t, first.Result.ContextID)
	require.Len(t, first.Result.Parts, 1)
	assert.Equal(t, "echo: What is A2A?", first.Result.Parts[0].Text)

	second := sendA2A(t, f, "And again?", first.Result.ContextID)
	require.Nil(t, second.Error)
	assert.Equal(t, first.Result.ContextID, second.Result.ContextID)
	assert.Equal(t, "echo: And again?", second.Result.Parts[0].Text)
	assert.Equal(t, agents, f.srv.AgentCount())
}

func TestA2A_Errors(t *testing.T) {
	f := newFixture(t, options{a2a: &httpapi.A2A{AgentType: "GlobalAgent", Name: "GlobalAgent"}})

	empty := sendA2A(t, f, "", "")
	require.NotNil(t, empty.Error)
	assert.Equal(t, -32602, empty.Error.Code)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{not json`, -32700},
		{"unknown method", `{"jsonrpc":"2.0","id":2,"method":"tasks/cancel","params":{}}`, -32601},
		{"tasks get", `{"jsonrpc":"2.0","id":3,"method":"tasks/get","params":{"id":"t1"}}`, -32001},
		{"bad params", `{"jsonrpc":"2.0","id":4,"method":"message/send","params":[]}`, -32602},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/a2a", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			res := decode[rpcResult](t, rec)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.code, res.Error.Code)
		})
	}
}

func TestA2A_DisabledByDefault(t *testing.T) {
	f := newFixture(t, options{})
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/a2a/.well-known/agent-card.json", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/a2a", `{}`).Code)
}
