// Copyright (c) Microsoft. All rights reserved.

package agentframework

// UsageDetails holds token consumption statistics for a model response.
type UsageDetails struct {
	InputTokens      int            `json:"inputTokenCount,omitempty"`
	OutputTokens     int            `json:"outputTokenCount,omitempty"`
	TotalTokens      int            `json:"totalTokenCount,omitempty"`
	AdditionalCounts map[string]int `json:"additionalCounts,omitempty"`
}

// IsZero reports whether no usage was recorded.
func (u UsageDetails) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 && u.TotalTokens == 0 && len(u.AdditionalCounts) == 0
}

// Add accumulates other into u.
func (u *UsageDetails) Add(other UsageDetails) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	for k, v := range other.AdditionalCounts {
		if u.AdditionalCounts == nil {
			u.AdditionalCounts = make(map[string]int, len(other.AdditionalCounts))
		}
		u.AdditionalCounts[k] += v
	}
}
