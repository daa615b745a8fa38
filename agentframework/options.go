// Copyright (c) Microsoft. All rights reserved.

package agentframework

// ToolChoice controls how the model selects tools.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
	ToolChoiceNone     ToolChoice = "none"
)

// ChatOptions configures one model call. Nil pointers and empty values
// leave the backend default in place.
type ChatOptions struct {
	ModelID     string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Tools       []Tool
	ToolChoice  ToolChoice
	Metadata    map[string]string
	User        string

	// Instructions are sent ahead of the conversation. Hosted agents carry
	// their own and ignore this field.
	Instructions string

	// ConversationID names the server-side thread when the backend keeps
	// the history.
	ConversationID string
}

// MergeChatOptions overlays override onto base and returns a new value.
// Set fields of override win, instructions are joined with a newline, tools
// are merged by name and metadata keys from override replace base keys.
func MergeChatOptions(base, override *ChatOptions) *ChatOptions {
	var merged ChatOptions
	if base != nil {
		merged = *base
	}
	if override == nil {
		return &merged
	}

	if override.ModelID != "" {
		merged.ModelID = override.ModelID
	}
	if override.Temperature != nil {
		merged.Temperature = override.Temperature
	}
	if override.TopP != nil {
		merged.TopP = override.TopP
	}
	if override.MaxTokens != nil {
		merged.MaxTokens = override.MaxTokens
	}
	if override.ToolChoice != "" {
		merged.ToolChoice = override.ToolChoice
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.ConversationID != "" {
		merged.ConversationID = override.ConversationID
	}
	switch {
	case override.Instructions == "":
	case merged.Instructions == "":
		merged.Instructions = override.Instructions
	default:
		merged.Instructions += "\n" + override.Instructions
	}

	merged.Tools = mergeTools(merged.Tools, override.Tools)

	if len(override.Metadata) > 0 {
		md := make(map[string]string, len(merged.Metadata)+len(override.Metadata))
		for k, v := range merged.Metadata {
			md[k] = v
		}
		for k, v := range override.Metadata {
			md[k] = v
		}
		merged.Metadata = md
	}
	return &merged
}

// mergeTools keeps the order of base, replaces same-named tools with the
// override version and appends the rest.
func mergeTools(base, override []Tool) []Tool {
	if len(override) == 0 {
		return base
	}
	replace := make(map[string]Tool, len(override))
	for _, t := range override {
		replace[t.Name()] = t
	}
	out := make([]Tool, 0, len(base)+len(override))
	for _, t := range base {
		if r, ok := replace[t.Name()]; ok {
			t = r
			delete(replace, t.Name())
		}
		out = append(out, t)
	}
	for _, t := range override {
		if _, ok := replace[t.Name()]; ok {
			out = append(out, t)
		}
	}
	return out
}
