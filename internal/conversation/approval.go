// Copyright (c) Microsoft. All rights reserved.

package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// Decision is the outcome of an approval request.
type Decision struct {
	Approved bool
	Reason   string
}

// Approver decides pending tool calls.
type Approver interface {
	Decide(ctx context.Context, req *af.ApprovalRequestContent) (Decision, error)
}

// ApproverFunc adapts a function to [Approver].
type ApproverFunc func(ctx context.Context, req *af.ApprovalRequestContent) (Decision, error)

func (f ApproverFunc) Decide(ctx context.Context, req *af.ApprovalRequestContent) (Decision, error) {
	return f(ctx, req)
}

// AutoApprove approves every request.
var AutoApprove = ApproverFunc(func(context.Context, *af.ApprovalRequestContent) (Decision, error) {
	return Decision{Approved: true}, nil
})

// DenyAll rejects every request.
var DenyAll = ApproverFunc(func(context.Context, *af.ApprovalRequestContent) (Decision, error) {
	return Decision{Reason: "Denied by policy."}, nil
})

// PolicyQuery is the Rego query a policy must define. It evaluates to
// "approve" or "deny".
const PolicyQuery = "data.tool_approval.decision"

// PolicyApprover decides with an OPA policy. The input document is
// {"tool_name": ..., "args": ...}.
type PolicyApprover struct {
	query rego.PreparedEvalQuery
}

// NewPolicyApprover compiles a Rego module defining [PolicyQuery].
func NewPolicyApprover(ctx context.Context, module string) (*PolicyApprover, error) {
	q, err := rego.New(
		rego.Query(PolicyQuery),
		rego.Module("tool_approval.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: prepare approval policy: %w", af.ErrConfiguration, err)
	}
	return &PolicyApprover{query: q}, nil
}

// LoadPolicyApprover reads and compiles the policy at path.
func LoadPolicyApprover(ctx context.Context, path string) (*PolicyApprover, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read approval policy: %w", af.ErrConfiguration, err)
	}
	return NewPolicyApprover(ctx, string(data))
}

func (p *PolicyApprover) Decide(ctx context.Context, req *af.ApprovalRequestContent) (Decision, error) {
	input := map[string]any{"tool_name": req.Name, "args": decodeArgs(req.Arguments)}
	rs, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("evaluate approval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{Reason: "No policy decision."}, nil
	}
	switch v := rs[0].Expressions[0].Value; v {
	case "approve":
		return Decision{Approved: true}, nil
	case "deny":
		return Decision{Reason: "Denied by policy."}, nil
	default:
		return Decision{}, fmt.Errorf("%w: approval policy returned %v", af.ErrConfiguration, v)
	}
}

// decodeArgs returns the arguments as a JSON value, or the raw string when
// they do not parse.
func decodeArgs(raw string) any {
	if raw == "" {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
