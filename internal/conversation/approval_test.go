// Copyright (c) Microsoft. All rights reserved.

package conversation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

const testPolicy = `
package tool_approval

default decision := "approve"

decision := "deny" if {
	input.tool_name == "CancelAccount"
	input.args.reason == ""
}

decision := "deny" if {
	input.tool_name == "ChangePassword"
	count(input.args.newPassword) < 8
}
`

func TestPolicyApprover(t *testing.T) {
	ctx := context.Background()
	p, err := NewPolicyApprover(ctx, testPolicy)
	require.NoError(t, err)

	tests := []struct {
		name     string
		tool     string
		args     string
		approved bool
	}{
		{"cancel with reason", "CancelAccount", `{"customerId":"42","reason":"moving"}`, true},
		{"cancel without reason", "CancelAccount", `{"customerId":"42","reason":""}`, false},
		{"short password", "ChangePassword", `{"customerId":"42","newPassword":"abc"}`, false},
		{"long password", "ChangePassword", `{"customerId":"42","newPassword":"correct-horse"}`, true},
		{"other tool", "EditAddress", `{"customerId":"42"}`, true},
		{"unparsable args", "EditAddress", `not json`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := p.Decide(ctx, &af.ApprovalRequestContent{CallID: "c1", Name: tt.tool, Arguments: tt.args})
			require.NoError(t, err)
			assert.Equal(t, tt.approved, d.Approved)
			if !tt.approved {
				assert.Equal(t, "Denied by policy.", d.Reason)
			}
		})
	}
}

func TestPolicyApprover_UndefinedDecisionDenies(t *testing.T) {
	p, err := NewPolicyApprover(context.Background(), "package tool_approval\n\ndecision := \"approve\" if input.tool_name == \"EditAddress\"\n")
	require.NoError(t, err)

	d, err := p.Decide(context.Background(), &af.ApprovalRequestContent{Name: "CancelAccount"})
	require.NoError(t, err)
	assert.False(t, d.Approved)
}

func TestPolicyApprover_UnexpectedValue(t *testing.T) {
	p, err := NewPolicyApprover(context.Background(), "package tool_approval\n\ndecision := \"maybe\"\n")
	require.NoError(t, err)

	_, err = p.Decide(context.Background(), &af.ApprovalRequestContent{Name: "CancelAccount"})
	assert.ErrorIs(t, err, af.ErrConfiguration)
}

func TestLoadPolicyApprover(t *testing.T) {
	_, err := LoadPolicyApprover(context.Background(), filepath.Join(t.TempDir(), "missing.rego"))
	assert.ErrorIs(t, err, af.ErrConfiguration)

	_, err = NewPolicyApprover(context.Background(), "package tool_approval\n\ndecision := ")
	assert.ErrorIs(t, err, af.ErrConfiguration)

	path := filepath.Join(t.TempDir(), "policy.rego")
	require.NoError(t, os.WriteFile(path, []byte(testPolicy), 0o644))
	p, err := LoadPolicyApprover(context.Background(), path)
	require.NoError(t, err)
	d, err := p.Decide(context.Background(), &af.ApprovalRequestContent{Name: "EditAddress", Arguments: "{}"})
	require.NoError(t, err)
	assert.True(t, d.Approved)
}

func TestBuiltinApprovers(t *testing.T) {
	req := &af.ApprovalRequestContent{Name: "CancelAccount"}
	d, err := AutoApprove.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, d.Approved)

	d, err = DenyAll.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.NotEmpty(t, d.Reason)
}

func TestDecodeArgs(t *testing.T) {
	assert.Equal(t, map[string]any{}, decodeArgs(""))
	assert.Equal(t, map[string]any{"a": 1.0}, decodeArgs(`{"a":1}`))
	assert.Equal(t, "nope", decodeArgs("nope"))
}

func TestShippedPolicy(t *testing.T) {
	p, err := LoadPolicyApprover(context.Background(), filepath.Join("..", "..", "policies", "tool_approval.rego"))
	require.NoError(t, err)

	tests := []struct {
		tool string
		args string
		want bool
	}{
		{"CancelAccount", `{"customerId":"42","reason":"moving"}`, true},
		{"CancelAccount", `{"customerId":"42"}`, false},
		{"ChangePassword", `{"customerId":"","newPassword":"s3cret!"}`, false},
		{"EditAddress", `{}`, true},
	}
	for _, tt := range tests {
		d, err := p.Decide(context.Background(), &af.ApprovalRequestContent{Name: tt.tool, Arguments: tt.args})
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Approved, "%s %s", tt.tool, tt.args)
	}
}
