// Package policy decides which identities may perform privileged HTTP
// actions.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Actions guarded by the policy.
const (
	ActionPurchase       = "purchase"
	ActionSettingsUpdate = "settings.update"
	ActionBalanceReset   = "balance.reset"
)

// Decisions returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Input is the document the policy is evaluated against.
type Input struct {
	Action        string `json:"action"`
	Role          string `json:"role"`
	Authenticated bool   `json:"authenticated"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.access_policy.decision"),
		rego.Module("access_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the decision for input. A policy without a matching
// rule denies.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"action":        input.Action,
		"role":          input.Role,
		"authenticated": input.Authenticated,
	}))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionDeny, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionDeny, nil
}

// Allowed is a convenience wrapper around Evaluate.
func (e *Engine) Allowed(ctx context.Context, input Input) (bool, error) {
	decision, err := e.Evaluate(ctx, input)
	if err != nil {
		return false, err
	}
	return decision == DecisionAllow, nil
}

// DefaultPolicy lets any authenticated viewer purchase and restricts
// settings changes to admins.
const DefaultPolicy = `
package access_policy

default decision = "deny"

decision = "allow" {
	input.authenticated
	input.action == "purchase"
}

decision = "allow" {
	input.authenticated
	input.role == "admin"
	input.action == "settings.update"
}

decision = "allow" {
	input.authenticated
	input.role == "admin"
	input.action == "balance.reset"
}
`
