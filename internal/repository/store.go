// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/streamreact/companion/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Trigger operations
	CreateTrigger(ctx context.Context, trigger *domain.Trigger) error
	GetTrigger(ctx context.Context, id string) (*domain.Trigger, error)
	ListTriggers(ctx context.Context, activeOnly bool) ([]domain.Trigger, error)

	// Chat operations
	CreateMessage(ctx context.Context, message *domain.ChatMessage) error
	ListMessages(ctx context.Context, limit int) ([]domain.ChatMessage, error)

	// Donation operations
	CreateDonation(ctx context.Context, donation *domain.Donation) error
	ListDonations(ctx context.Context, limit int) ([]domain.Donation, error)

	// Product operations
	CreateProduct(ctx context.Context, product *domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// Purchase operations. CreatePurchase writes the purchase row and the
	// balance setting in one transaction.
	CreatePurchase(ctx context.Context, purchase *domain.Purchase) error
	GetPurchaseStats(ctx context.Context) (*domain.PurchaseStats, error)

	// Settings operations
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	SetSetting(ctx context.Context, key, value, description string) error
	ListSettings(ctx context.Context) ([]domain.Setting, error)
	SetBalances(ctx context.Context, balance, max decimal.Decimal, maxDescription string) error
	ResetBalance(ctx context.Context, balance decimal.Decimal) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// DefaultListLimit caps history reads when the caller passes no limit.
const DefaultListLimit = 50
