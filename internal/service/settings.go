package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/ledger"
)

// Balance is the wallet as shown to viewers.
type Balance struct {
	Balance    decimal.Decimal `json:"balance"`
	MaxBalance decimal.Decimal `json:"maxBalance"`
}

// GetBalance returns the in-memory ledger state.
func (s *Service) GetBalance() Balance {
	st := s.ledger.Snapshot()
	return Balance{Balance: st.Balance, MaxBalance: st.Max}
}

// ListSettings returns all settings.
func (s *Service) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	settings, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if settings == nil {
		settings = []domain.Setting{}
	}
	return settings, nil
}

// GetSetting returns one setting.
func (s *Service) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	st, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: setting %s", domain.ErrNotFound, key)
	}
	return st, nil
}

// UpdateSetting upserts a setting. The two ledger keys go through the
// ledger so memory and store never disagree.
func (s *Service) UpdateSetting(ctx context.Context, key, value, description string) (*domain.Setting, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", domain.ErrValidation)
	}

	switch key {
	case domain.SettingBalance:
		amount, err := parseAmount(value)
		if err != nil {
			return nil, err
		}
		_, err = s.ledger.SetWith(ctx, amount, func(ctx context.Context, next ledger.State) error {
			return s.store.SetSetting(ctx, key, next.Balance.String(), description)
		})
		if err != nil {
			return nil, classifyLedgerErr(err)
		}
	case domain.SettingMaxBalance:
		amount, err := parseAmount(value)
		if err != nil {
			return nil, err
		}
		_, err = s.ledger.SetMaxWith(ctx, amount, func(ctx context.Context, next ledger.State) error {
			return s.store.SetBalances(ctx, next.Balance, next.Max, description)
		})
		if err != nil {
			return nil, classifyLedgerErr(err)
		}
	default:
		if err := s.store.SetSetting(ctx, key, value, description); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
	}

	return s.GetSetting(ctx, key)
}

// ResetBalance refills the wallet to its maximum and clears the purchase
// history.
func (s *Service) ResetBalance(ctx context.Context) (Balance, error) {
	_, err := s.ledger.ResetWith(ctx, func(ctx context.Context, next ledger.State) error {
		return s.store.ResetBalance(ctx, next.Balance)
	})
	if err != nil {
		return Balance{}, classifyLedgerErr(err)
	}
	s.log.Info("balance reset to maximum")
	return s.GetBalance(), nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	return domain.ParseAmount(value)
}

func classifyLedgerErr(err error) error {
	if errors.Is(err, domain.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}
