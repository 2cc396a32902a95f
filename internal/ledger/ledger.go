// Package ledger holds the streamer's wallet: a single balance bounded by a
// maximum, debited by purchases and reset by administrators.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/streamreact/companion/internal/domain"
)

// State is a point-in-time view of the ledger.
type State struct {
	Balance decimal.Decimal
	Max     decimal.Decimal
}

// CommitFunc persists a proposed transition. It runs inside the ledger's
// critical section; returning an error aborts the transition and leaves the
// in-memory state untouched.
type CommitFunc func(ctx context.Context, next State) error

// Ledger serializes every mutation of the balance behind one mutex so that
// a debit's read-check-write never interleaves with another debit or reset.
type Ledger struct {
	mu       sync.Mutex
	state    State
	onChange func(State)
}

// New creates a ledger. It fails unless 0 <= balance <= max.
func New(balance, max decimal.Decimal) (*Ledger, error) {
	if err := validate(State{Balance: balance, Max: max}); err != nil {
		return nil, err
	}
	return &Ledger{state: State{Balance: balance, Max: max}}, nil
}

// OnChange registers fn to observe every applied transition.
func (l *Ledger) OnChange(fn func(State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// CurrentBalance returns the current balance.
func (l *Ledger) CurrentBalance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Balance
}

// Snapshot returns the current balance and maximum together.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// TryDebit decreases the balance by amount, failing with
// domain.ErrInsufficientFunds when amount exceeds the balance.
func (l *Ledger) TryDebit(amount decimal.Decimal) (decimal.Decimal, error) {
	return l.DebitWith(context.Background(), amount, nil)
}

// DebitWith is TryDebit with a commit step executed before the new balance
// becomes visible.
func (l *Ledger) DebitWith(ctx context.Context, amount decimal.Decimal, commit CommitFunc) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: amount must not be negative", domain.ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.GreaterThan(l.state.Balance) {
		return l.state.Balance, domain.ErrInsufficientFunds
	}
	next := State{Balance: l.state.Balance.Sub(amount), Max: l.state.Max}
	if err := l.apply(ctx, next, commit); err != nil {
		return l.state.Balance, err
	}
	return next.Balance, nil
}

// Credit returns amount to the balance, capped at the maximum. It exists for
// reconciling a debit whose follow-up work failed.
func (l *Ledger) Credit(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: amount must not be negative", domain.ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := State{Balance: decimal.Min(l.state.Balance.Add(amount), l.state.Max), Max: l.state.Max}
	if err := l.apply(context.Background(), next, nil); err != nil {
		return l.state.Balance, err
	}
	return next.Balance, nil
}

// ResetToMax sets the balance to the maximum.
func (l *Ledger) ResetToMax() decimal.Decimal {
	balance, _ := l.ResetWith(context.Background(), nil)
	return balance
}

// ResetWith is ResetToMax with a commit step.
func (l *Ledger) ResetWith(ctx context.Context, commit CommitFunc) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := State{Balance: l.state.Max, Max: l.state.Max}
	if err := l.apply(ctx, next, commit); err != nil {
		return l.state.Balance, err
	}
	return next.Balance, nil
}

// SetWith overwrites the balance. It must stay within [0, max].
func (l *Ledger) SetWith(ctx context.Context, balance decimal.Decimal, commit CommitFunc) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := State{Balance: balance, Max: l.state.Max}
	if err := validate(next); err != nil {
		return l.state, err
	}
	if err := l.apply(ctx, next, commit); err != nil {
		return l.state, err
	}
	return next, nil
}

// SetMaxWith changes the maximum. A balance above the new maximum is lowered
// to it.
func (l *Ledger) SetMaxWith(ctx context.Context, max decimal.Decimal, commit CommitFunc) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := State{Balance: decimal.Min(l.state.Balance, max), Max: max}
	if err := validate(next); err != nil {
		return l.state, err
	}
	if err := l.apply(ctx, next, commit); err != nil {
		return l.state, err
	}
	return next, nil
}

// apply must be called with l.mu held.
func (l *Ledger) apply(ctx context.Context, next State, commit CommitFunc) error {
	if commit != nil {
		if err := commit(ctx, next); err != nil {
			return err
		}
	}
	l.state = next
	if l.onChange != nil {
		l.onChange(next)
	}
	return nil
}

func validate(s State) error {
	if s.Max.IsNegative() {
		return fmt.Errorf("%w: max balance must not be negative", domain.ErrValidation)
	}
	if s.Balance.IsNegative() || s.Balance.GreaterThan(s.Max) {
		return fmt.Errorf("%w: balance must be between 0 and %s", domain.ErrValidation, s.Max)
	}
	return nil
}
