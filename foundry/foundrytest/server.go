// Copyright (c) Microsoft. All rights reserved.

// Package foundrytest provides an in-memory Persistent Agents service for
// tests. Runs are settled by a [Responder] instead of a model.
package foundrytest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/microsoft/foundry-agents/go/foundry"
)

// ToolCall is a function call the fake model asks for.
type ToolCall struct {
	Name      string
	Arguments string
}

// Turn is the outcome of one run: a reply, or function calls that put the
// run in requires_action.
type Turn struct {
	Text      string
	ToolCalls []ToolCall
}

// Responder decides a run's outcome from the thread so far. outputs holds the
// tool outputs just submitted, if any.
type Responder func(agent foundry.Agent, thread []foundry.ThreadMessage, outputs []foundry.ToolOutput) Turn

// Echo replies with the text of the last user message.
func Echo(_ foundry.Agent, thread []foundry.ThreadMessage, _ []foundry.ToolOutput) Turn {
	for i := len(thread) - 1; i >= 0; i-- {
		if thread[i].Role == "user" && len(thread[i].Content) > 0 {
			return Turn{Text: "echo: " + thread[i].Content[0].Text.Value}
		}
	}
	return Turn{Text: "echo"}
}

// Server is a fake Foundry project endpoint.
type Server struct {
	*httptest.Server

	// Usage is reported on every settled run.
	Usage foundry.RunUsage

	mu           sync.Mutex
	seq          int
	responder    Responder
	agents       map[string]foundry.Agent
	threads      map[string][]foundry.ThreadMessage
	runs         map[string]*foundry.Run
	runOrder     map[string][]string
	vectorStores map[string]*foundry.VectorStore
	storeFiles   map[string][]string
	files        map[string]foundry.File
	contents     map[string][]byte
	requests     []string
	onRequest    func(r *http.Request)
}

// NewServer starts a fake service that is closed with the test.
func NewServer(t testing.TB, responder Responder) *Server {
	t.Helper()
	if responder == nil {
		responder = Echo
	}
	s := &Server{
		Usage:        foundry.RunUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		responder:    responder,
		agents:       make(map[string]foundry.Agent),
		threads:      make(map[string][]foundry.ThreadMessage),
		runs:         make(map[string]*foundry.Run),
		runOrder:     make(map[string][]string),
		vectorStores: make(map[string]*foundry.VectorStore),
		storeFiles:   make(map[string][]string),
		files:        make(map[string]foundry.File),
		contents:     make(map[string][]byte),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Client returns a foundry client pointed at the server.
func (s *Server) Client(t testing.TB) *foundry.Client {
	t.Helper()
	c, err := foundry.New(s.URL, foundry.WithAPIKey("test-key"), foundry.WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("foundry.New: %v", err)
	}
	return c
}

// OnRequest installs fn to run ahead of every handler, for example to hold
// a request in flight.
func (s *Server) OnRequest(fn func(r *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRequest = fn
}

// Requests returns "METHOD path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Agent returns a stored agent.
func (s *Server) Agent(id string) (foundry.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	return a, ok
}

// AgentCount returns the number of stored agents.
func (s *Server) AgentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.agents)
}

// Thread returns the messages of a thread.
func (s *Server) Thread(id string) []foundry.ThreadMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]foundry.ThreadMessage(nil), s.threads[id]...)
}

// VectorStoreFiles returns the file ids attached to a vector store.
func (s *Server) VectorStoreFiles(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.storeFiles[id]...)
}

// FileContent returns the bytes uploaded for a file.
func (s *Server) FileContent(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.contents[id]
	return b, ok
}

func (s *Server) routes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s.mu.Lock()
			s.requests = append(s.requests, c.Request().Method+" "+c.Request().URL.Path)
			hook := s.onRequest
			s.mu.Unlock()
			if hook != nil {
				hook(c.Request())
			}
			if c.QueryParam("api-version") == "" {
				return apiError(c, http.StatusBadRequest, "missing api-version")
			}
			return next(c)
		}
	})

	e.POST("/assistants", s.createAgent)
	e.GET("/assistants/:id", s.getAgent)
	e.DELETE("/assistants/:id", s.deleteAgent)
	e.POST("/threads", s.createThread)
	e.POST("/threads/:tid/messages", s.createMessage)
	e.GET("/threads/:tid/messages", s.listMessages)
	e.POST("/threads/:tid/runs", s.createRun)
	e.GET("/threads/:tid/runs", s.listRuns)
	e.GET("/threads/:tid/runs/:rid", s.getRun)
	e.POST("/threads/:tid/runs/:rid/submit_tool_outputs", s.submitToolOutputs)
	e.POST("/vector_stores", s.createVectorStore)
	e.GET("/vector_stores/:id", s.getVectorStore)
	e.GET("/vector_stores/:id/files", s.listVectorStoreFiles)
	e.POST("/vector_stores/:id/files", s.addVectorStoreFile)
	e.DELETE("/vector_stores/:id/files/:fid", s.deleteVectorStoreFile)
	e.POST("/files", s.uploadFile)
	e.GET("/files", s.listFiles)
	e.GET("/files/:id", s.getFile)
	e.DELETE("/files/:id", s.deleteFile)
	return e
}

func apiError(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"error": map[string]string{"code": strconv.Itoa(status), "message": msg}})
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%03d", prefix, s.seq)
}

func (s *Server) now() int64 {
	return time.Date(2025, 1, 1, 0, 0, s.seq, 0, time.UTC).Unix()
}

func list[T any](data []T) map[string]any {
	return map[string]any{"object": "list", "data": data, "has_more": false}
}

func (s *Server) createAgent(c echo.Context) error {
	var req foundry.CreateAgentRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := foundry.Agent{
		ID:            s.nextID("asst"),
		Object:        "assistant",
		CreatedAt:     s.now(),
		Name:          req.Name,
		Description:   req.Description,
		Model:         req.Model,
		Instructions:  req.Instructions,
		Tools:         req.Tools,
		ToolResources: req.ToolResources,
		Metadata:      req.Metadata,
	}
	s.agents[a.ID] = a
	return c.JSON(http.StatusOK, a)
}

func (s *Server) getAgent(c echo.Context) error {
	a, ok := s.Agent(c.Param("id"))
	if !ok {
		return apiError(c, http.StatusNotFound, "No assistant found with id '"+c.Param("id")+"'.")
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) deleteAgent(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.agents[id]; !ok {
		return apiError(c, http.StatusNotFound, "No assistant found with id '"+id+"'.")
	}
	delete(s.agents, id)
	return c.JSON(http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (s *Server) createThread(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	th := foundry.Thread{ID: s.nextID("thread"), CreatedAt: s.now()}
	s.threads[th.ID] = nil
	return c.JSON(http.StatusOK, th)
}

func (s *Server) createMessage(c echo.Context) error {
	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid := c.Param("tid")
	if _, ok := s.threads[tid]; !ok {
		return apiError(c, http.StatusNotFound, "No thread found with id '"+tid+"'.")
	}
	if _, busy := s.pendingRun(tid); busy {
		return apiError(c, http.StatusBadRequest, "Can't add messages to "+tid+" while a run is active.")
	}
	m := textMessage(s.nextID("msg"), tid, req.Role, req.Content, s.now())
	s.threads[tid] = append(s.threads[tid], m)
	return c.JSON(http.StatusOK, m)
}

func (s *Server) listMessages(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tid := c.Param("tid")
	msgs, ok := s.threads[tid]
	if !ok {
		return apiError(c, http.StatusNotFound, "No thread found with id '"+tid+"'.")
	}
	runID := c.QueryParam("run_id")
	out := make([]foundry.ThreadMessage, 0, len(msgs))
	for _, m := range msgs {
		if runID == "" || m.RunID == runID {
			out = append(out, m)
		}
	}
	if c.QueryParam("order") == "desc" {
		slices.Reverse(out)
	}
	return c.JSON(http.StatusOK, list(out))
}

func (s *Server) createRun(c echo.Context) error {
	var req struct {
		AssistantID string `json:"assistant_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tid := c.Param("tid")
	if _, ok := s.threads[tid]; !ok {
		return apiError(c, http.StatusNotFound, "No thread found with id '"+tid+"'.")
	}
	if _, ok := s.agents[req.AssistantID]; !ok {
		return apiError(c, http.StatusNotFound, "No assistant found with id '"+req.AssistantID+"'.")
	}
	if _, busy := s.pendingRun(tid); busy {
		return apiError(c, http.StatusBadRequest, "Thread "+tid+" already has an active run.")
	}
	run := &foundry.Run{
		ID:          s.nextID("run"),
		ThreadID:    tid,
		AssistantID: req.AssistantID,
		Status:      foundry.RunQueued,
		CreatedAt:   s.now(),
	}
	s.runs[run.ID] = run
	s.runOrder[tid] = append(s.runOrder[tid], run.ID)
	queued := *run
	s.settle(run, nil)
	return c.JSON(http.StatusOK, queued)
}

func (s *Server) listRuns(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.runOrder[c.Param("tid")]
	out := make([]foundry.Run, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *s.runs[ids[i]])
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit < len(out) {
		out = out[:limit]
	}
	return c.JSON(http.StatusOK, list(out))
}

func (s *Server) getRun(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[c.Param("rid")]
	if !ok || run.ThreadID != c.Param("tid") {
		return apiError(c, http.StatusNotFound, "No run found with id '"+c.Param("rid")+"'.")
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) submitToolOutputs(c echo.Context) error {
	var req struct {
		ToolOutputs []foundry.ToolOutput `json:"tool_outputs"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[c.Param("rid")]
	if !ok {
		return apiError(c, http.StatusNotFound, "No run found with id '"+c.Param("rid")+"'.")
	}
	if run.Status != foundry.RunRequiresAction {
		return apiError(c, http.StatusBadRequest, "Run "+run.ID+" is not waiting for tool outputs.")
	}
	want := make(map[string]bool)
	for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
		want[tc.ID] = true
	}
	for _, o := range req.ToolOutputs {
		delete(want, o.ToolCallID)
	}
	if len(want) > 0 {
		return apiError(c, http.StatusBadRequest, "Tool outputs are missing for some tool calls.")
	}
	run.Status = foundry.RunInProgress
	run.RequiredAction = nil
	queued := *run
	s.settle(run, req.ToolOutputs)
	return c.JSON(http.StatusOK, queued)
}

// settle asks the responder for the run's outcome. Callers hold s.mu.
func (s *Server) settle(run *foundry.Run, outputs []foundry.ToolOutput) {
	agent := s.agents[run.AssistantID]
	turn := s.responder(agent, append([]foundry.ThreadMessage(nil), s.threads[run.ThreadID]...), outputs)
	usage := s.Usage
	run.Usage = &usage

	if len(turn.ToolCalls) > 0 {
		ra := &foundry.RequiredAction{Type: "submit_tool_outputs"}
		for _, tc := range turn.ToolCalls {
			call := foundry.RequiredToolCall{ID: s.nextID("call"), Type: "function"}
			call.Function.Name = tc.Name
			call.Function.Arguments = tc.Arguments
			ra.SubmitToolOutputs.ToolCalls = append(ra.SubmitToolOutputs.ToolCalls, call)
		}
		run.Status = foundry.RunRequiresAction
		run.RequiredAction = ra
		return
	}

	m := textMessage(s.nextID("msg"), run.ThreadID, "assistant", turn.Text, s.now())
	m.RunID = run.ID
	m.AssistantID = run.AssistantID
	s.threads[run.ThreadID] = append(s.threads[run.ThreadID], m)
	run.Status = foundry.RunCompleted
}

func (s *Server) pendingRun(tid string) (*foundry.Run, bool) {
	ids := s.runOrder[tid]
	if len(ids) == 0 {
		return nil, false
	}
	run := s.runs[ids[len(ids)-1]]
	return run, run.Status.Pending() || run.Status == foundry.RunRequiresAction
}

func textMessage(id, tid, role, text string, createdAt int64) foundry.ThreadMessage {
	return foundry.ThreadMessage{
		ID:        id,
		ThreadID:  tid,
		Role:      role,
		CreatedAt: createdAt,
		Content:   []foundry.MessageContent{{Type: "text", Text: &foundry.MessageText{Value: text}}},
	}
}

func (s *Server) createVectorStore(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	vs := &foundry.VectorStore{ID: s.nextID("vs"), Name: req.Name, Status: "completed", CreatedAt: s.now()}
	s.vectorStores[vs.ID] = vs
	return c.JSON(http.StatusOK, vs)
}

func (s *Server) getVectorStore(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs, ok := s.vectorStores[c.Param("id")]
	if !ok {
		return apiError(c, http.StatusNotFound, "No vector store found with id '"+c.Param("id")+"'.")
	}
	out := *vs
	out.FileCounts.Completed = len(s.storeFiles[vs.ID])
	out.FileCounts.Total = len(s.storeFiles[vs.ID])
	return c.JSON(http.StatusOK, out)
}

func (s *Server) listVectorStoreFiles(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.vectorStores[id]; !ok {
		return apiError(c, http.StatusNotFound, "No vector store found with id '"+id+"'.")
	}
	out := make([]foundry.VectorStoreFile, 0, len(s.storeFiles[id]))
	for _, fid := range s.storeFiles[id] {
		out = append(out, foundry.VectorStoreFile{ID: fid, VectorStoreID: id, Status: "completed"})
	}
	return c.JSON(http.StatusOK, list(out))
}

func (s *Server) addVectorStoreFile(c echo.Context) error {
	var req struct {
		FileID string `json:"file_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.vectorStores[id]; !ok {
		return apiError(c, http.StatusNotFound, "No vector store found with id '"+id+"'.")
	}
	if _, ok := s.files[req.FileID]; !ok {
		return apiError(c, http.StatusNotFound, "No file found with id '"+req.FileID+"'.")
	}
	s.storeFiles[id] = append(s.storeFiles[id], req.FileID)
	return c.JSON(http.StatusOK, foundry.VectorStoreFile{ID: req.FileID, VectorStoreID: id, Status: "completed"})
}

func (s *Server) deleteVectorStoreFile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, fid := c.Param("id"), c.Param("fid")
	files := s.storeFiles[id]
	for i, f := range files {
		if f == fid {
			s.storeFiles[id] = append(files[:i:i], files[i+1:]...)
			return c.JSON(http.StatusOK, map[string]any{"id": fid, "deleted": true})
		}
	}
	return apiError(c, http.StatusNotFound, "No file '"+fid+"' in vector store '"+id+"'.")
}

func (s *Server) uploadFile(c echo.Context) error {
	if c.FormValue("purpose") != foundry.PurposeAgents {
		return apiError(c, http.StatusBadRequest, "purpose must be "+foundry.PurposeAgents)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}
	src, err := fh.Open()
	if err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return apiError(c, http.StatusBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f := foundry.File{
		ID:        s.nextID("file"),
		Filename:  fh.Filename,
		Bytes:     int64(len(data)),
		Purpose:   foundry.PurposeAgents,
		CreatedAt: s.now(),
	}
	s.files[f.ID] = f
	s.contents[f.ID] = data
	return c.JSON(http.StatusOK, f)
}

func (s *Server) listFiles(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]foundry.File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, list(out))
}

func (s *Server) getFile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[c.Param("id")]
	if !ok {
		return apiError(c, http.StatusNotFound, "No file found with id '"+c.Param("id")+"'.")
	}
	return c.JSON(http.StatusOK, f)
}

func (s *Server) deleteFile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.files[id]; !ok {
		return apiError(c, http.StatusNotFound, "No file found with id '"+id+"'.")
	}
	delete(s.files, id)
	delete(s.contents, id)
	return c.JSON(http.StatusOK, map[string]any{"id": id, "deleted": true})
}
