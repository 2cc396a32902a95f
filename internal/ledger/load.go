package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/streamreact/companion/internal/domain"
)

// SettingsStore is the subset of the store the ledger is backed by.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	SetSetting(ctx context.Context, key, value, description string) error
}

// Load builds a ledger from the balance and max_balance settings. Missing
// rows default to defaultMax and are written back.
func Load(ctx context.Context, s SettingsStore, defaultMax decimal.Decimal) (*Ledger, error) {
	max, err := readAmount(ctx, s, domain.SettingMaxBalance, defaultMax, "Maximum wallet balance")
	if err != nil {
		return nil, err
	}
	balance, err := readAmount(ctx, s, domain.SettingBalance, max, "Current wallet balance")
	if err != nil {
		return nil, err
	}
	if balance.GreaterThan(max) {
		balance = max
	}
	return New(balance, max)
}

func readAmount(ctx context.Context, s SettingsStore, key string, fallback decimal.Decimal, description string) (decimal.Decimal, error) {
	setting, err := s.GetSetting(ctx, key)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if setting == nil {
		if err := s.SetSetting(ctx, key, fallback.String(), description); err != nil {
			return decimal.Decimal{}, fmt.Errorf("failed to initialise %s: %w", key, err)
		}
		return fallback, nil
	}
	amount, err := domain.ParseAmount(setting.Value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("setting %s is not a number: %w", key, err)
	}
	return amount, nil
}
