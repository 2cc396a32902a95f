package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/ledger"
)

// PurchaseResult is returned for a successful purchase.
type PurchaseResult struct {
	Purchase   *domain.Purchase `json:"purchase"`
	NewBalance decimal.Decimal  `json:"newBalance"`
}

// Purchase buys quantity units of a product from the shared wallet. The
// purchase row is written inside the ledger's critical section, so either
// both the row and the debit land or neither does.
func (s *Service) Purchase(ctx context.Context, buyer domain.Identity, productID string, quantity int) (*PurchaseResult, error) {
	if quantity < 1 {
		s.metrics.ObservePurchase(domain.PurchaseFailed)
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		s.metrics.ObservePurchase(domain.PurchaseFailed)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if product == nil || !product.Active {
		s.metrics.ObservePurchase(domain.PurchaseFailed)
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}

	total := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	purchase := &domain.Purchase{
		ID:         uuid.New().String(),
		ProductID:  product.ID,
		UserID:     buyer.ID,
		Username:   buyer.Username,
		Quantity:   quantity,
		TotalPrice: total,
		CreatedAt:  time.Now(),
		Product:    product,
	}

	balance, err := s.ledger.DebitWith(ctx, total, func(ctx context.Context, next ledger.State) error {
		purchase.BalanceAfter = next.Balance
		return s.store.CreatePurchase(ctx, purchase)
	})
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		s.metrics.ObservePurchase(domain.PurchaseInsufficientFunds)
		return nil, fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientFunds, total, balance)
	case errors.Is(err, domain.ErrValidation):
		s.metrics.ObservePurchase(domain.PurchaseFailed)
		return nil, err
	case err != nil:
		s.metrics.ObservePurchase(domain.PurchaseFailed)
		s.log.Error("failed to record purchase", zap.String("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.metrics.ObservePurchase(domain.PurchaseOK)
	s.log.Info("purchase completed",
		zap.String("product_id", product.ID),
		zap.String("user_id", buyer.ID),
		zap.Int("quantity", quantity),
		zap.String("total", total.String()),
		zap.String("balance", balance.String()))

	return &PurchaseResult{Purchase: purchase, NewBalance: balance}, nil
}

// PurchaseStats returns aggregate purchase figures.
func (s *Service) PurchaseStats(ctx context.Context) (*domain.PurchaseStats, error) {
	stats, err := s.store.GetPurchaseStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return stats, nil
}
