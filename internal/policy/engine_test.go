package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	cases := []struct {
		name  string
		input Input
		want  string
	}{
		{"viewer purchase", Input{Action: ActionPurchase, Role: "user", Authenticated: true}, DecisionAllow},
		{"anonymous purchase", Input{Action: ActionPurchase}, DecisionDeny},
		{"viewer settings", Input{Action: ActionSettingsUpdate, Role: "user", Authenticated: true}, DecisionDeny},
		{"admin settings", Input{Action: ActionSettingsUpdate, Role: "admin", Authenticated: true}, DecisionAllow},
		{"admin reset", Input{Action: ActionBalanceReset, Role: "admin", Authenticated: true}, DecisionAllow},
		{"unauthenticated admin claim", Input{Action: ActionBalanceReset, Role: "admin"}, DecisionDeny},
		{"unknown action", Input{Action: "drop.tables", Role: "admin", Authenticated: true}, DecisionDeny},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Evaluate(ctx, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewEngineRejectsBrokenPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package broken\n decision = {")
	require.Error(t, err)
}

func TestAllowed(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	ok, err := engine.Allowed(ctx, Input{Action: ActionPurchase, Role: "user", Authenticated: true})
	require.NoError(t, err)
	assert.True(t, ok)
}
