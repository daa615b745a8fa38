// Copyright (c) Microsoft. All rights reserved.

package agentframework

// ContentType identifies the kind of content within a message.
type ContentType string

const (
	ContentTypeText             ContentType = "text"
	ContentTypeError            ContentType = "error"
	ContentTypeFunctionCall     ContentType = "functionCall"
	ContentTypeFunctionResult   ContentType = "functionResult"
	ContentTypeUsage            ContentType = "usage"
	ContentTypeHostedFile       ContentType = "hostedFile"
	ContentTypeApprovalRequest  ContentType = "functionApprovalRequest"
	ContentTypeApprovalResponse ContentType = "functionApprovalResponse"
)

// Content is a sealed interface representing a piece of content within a [Message].
// Each concrete type carries data specific to its [ContentType].
// Use a type switch to inspect the underlying type.
type Content interface {
	// Type returns the discriminator for this content item.
	Type() ContentType

	// sealed prevents external implementations.
	sealed()
}

// base is embedded by every concrete Content type to satisfy the sealed marker.
type base struct{}

func (base) sealed() {}

// TextContent holds plain text.
type TextContent struct {
	base
	Text string
}

func (c *TextContent) Type() ContentType { return ContentTypeText }

// ErrorContent represents an error returned as message content, such as the
// last_error of a failed run.
type ErrorContent struct {
	base
	Message   string
	ErrorCode string
	Details   any
}

func (c *ErrorContent) Type() ContentType { return ContentTypeError }

// FunctionCallContent represents a tool/function call requested by the model.
type FunctionCallContent struct {
	base
	CallID    string
	Name      string
	Arguments string // JSON-encoded arguments
}

func (c *FunctionCallContent) Type() ContentType { return ContentTypeFunctionCall }

// FunctionResultContent represents the result of a tool/function call.
type FunctionResultContent struct {
	base
	CallID string
	Result any
}

func (c *FunctionResultContent) Type() ContentType { return ContentTypeFunctionResult }

// UsageContent carries token usage information.
type UsageContent struct {
	base
	Usage UsageDetails
}

func (c *UsageContent) Type() ContentType { return ContentTypeUsage }

// HostedFileContent references a service-hosted file, typically a file_search
// citation attached to assistant text.
type HostedFileContent struct {
	base
	FileID string
	Quote  string
}

func (c *HostedFileContent) Type() ContentType { return ContentTypeHostedFile }

// ApprovalRequestContent asks the caller to approve a pending tool call
// before it is executed.
type ApprovalRequestContent struct {
	base
	CallID    string
	Name      string
	Arguments string
}

func (c *ApprovalRequestContent) Type() ContentType { return ContentTypeApprovalRequest }

// CreateResponse builds the decision for this request. The response carries
// the original call so it can be executed without the request in history.
func (c *ApprovalRequestContent) CreateResponse(approved bool, reason string) *ApprovalResponseContent {
	return &ApprovalResponseContent{
		CallID:    c.CallID,
		Name:      c.Name,
		Arguments: c.Arguments,
		Approved:  approved,
		Reason:    reason,
	}
}

// ApprovalResponseContent carries an approval decision for a pending tool call.
type ApprovalResponseContent struct {
	base
	CallID    string
	Name      string
	Arguments string
	Approved  bool
	Reason    string
}

func (c *ApprovalResponseContent) Type() ContentType { return ContentTypeApprovalResponse }

// FunctionCall returns the call the decision applies to.
func (c *ApprovalResponseContent) FunctionCall() *FunctionCallContent {
	return &FunctionCallContent{CallID: c.CallID, Name: c.Name, Arguments: c.Arguments}
}
