// Copyright (c) Microsoft. All rights reserved.

package foundry

import "encoding/json"

// Agent is a hosted Persistent Agent.
type Agent struct {
	ID            string            `json:"id"`
	Object        string            `json:"object,omitempty"`
	CreatedAt     int64             `json:"created_at,omitempty"`
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	Model         string            `json:"model"`
	Instructions  string            `json:"instructions,omitempty"`
	Tools         []ToolSpec        `json:"tools,omitempty"`
	ToolResources *ToolResources    `json:"tool_resources,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ToolSpec is one entry of an agent's tool list.
type ToolSpec struct {
	Type       string          `json:"type"`
	Function   *FunctionSpec   `json:"function,omitempty"`
	FileSearch *FileSearchSpec `json:"file_search,omitempty"`
}

// FunctionSpec declares a client-side function tool.
type FunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// FileSearchSpec configures the hosted file search tool.
type FileSearchSpec struct {
	MaxNumResults int `json:"max_num_results,omitempty"`
}

// ToolResources binds hosted tools to their data.
type ToolResources struct {
	FileSearch *FileSearchResources `json:"file_search,omitempty"`
}

// FileSearchResources lists the vector stores searched by file search.
type FileSearchResources struct {
	VectorStoreIDs []string `json:"vector_store_ids"`
}

// Thread is a server-side conversation.
type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// ThreadMessage is one message of a thread.
type ThreadMessage struct {
	ID          string           `json:"id"`
	ThreadID    string           `json:"thread_id,omitempty"`
	Role        string           `json:"role"`
	CreatedAt   int64            `json:"created_at,omitempty"`
	AssistantID string           `json:"assistant_id,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
	Content     []MessageContent `json:"content"`
}

// MessageContent is one part of a thread message.
type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

// MessageText is the text part of a message with its annotations.
type MessageText struct {
	Value       string       `json:"value"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation marks a span of message text. File search produces file_citation annotations.
type Annotation struct {
	Type         string        `json:"type"`
	Text         string        `json:"text,omitempty"`
	FileCitation *FileCitation `json:"file_citation,omitempty"`
}

// FileCitation points at the file a span was drawn from.
type FileCitation struct {
	FileID string `json:"file_id"`
	Quote  string `json:"quote,omitempty"`
}

// RunStatus is the lifecycle state of a [Run].
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCancelled      RunStatus = "cancelled"
	RunFailed         RunStatus = "failed"
	RunCompleted      RunStatus = "completed"
	RunExpired        RunStatus = "expired"
	RunIncomplete     RunStatus = "incomplete"
)

// Pending reports whether the service is still working on the run.
func (s RunStatus) Pending() bool {
	return s == RunQueued || s == RunInProgress || s == RunCancelling
}

// Run is one execution of an agent over a thread.
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	AssistantID    string          `json:"assistant_id"`
	Status         RunStatus       `json:"status"`
	CreatedAt      int64           `json:"created_at,omitempty"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
	Usage          *RunUsage       `json:"usage,omitempty"`
}

// RequiredAction lists the tool calls a run is waiting on.
type RequiredAction struct {
	Type              string `json:"type"`
	SubmitToolOutputs struct {
		ToolCalls []RequiredToolCall `json:"tool_calls"`
	} `json:"submit_tool_outputs"`
}

// RequiredToolCall is a function call the client must execute.
type RequiredToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// RunError describes why a run failed.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunUsage is the token consumption of a run.
type RunUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolOutput is the result of one required tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// VectorStore is a hosted index of files for file search.
type VectorStore struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status,omitempty"`
	CreatedAt  int64      `json:"created_at,omitempty"`
	FileCounts FileCounts `json:"file_counts"`
}

// FileCounts summarizes vector store ingestion.
type FileCounts struct {
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

// VectorStoreFile is a file attached to a vector store.
type VectorStoreFile struct {
	ID            string `json:"id"`
	VectorStoreID string `json:"vector_store_id"`
	Status        string `json:"status,omitempty"`
	CreatedAt     int64  `json:"created_at,omitempty"`
}

// File is an uploaded file (a dataset entry in the portal).
type File struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Bytes     int64  `json:"bytes"`
	Purpose   string `json:"purpose"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type listResponse[T any] struct {
	Data    []T    `json:"data"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
	HasMore bool   `json:"has_more"`
}

type deletionStatus struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
