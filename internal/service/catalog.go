package service

import (
	"context"
	"fmt"

	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/repository"
)

// ListTriggers returns every trigger, highest priority first.
func (s *Service) ListTriggers(ctx context.Context) ([]domain.Trigger, error) {
	triggers, err := s.store.ListTriggers(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if triggers == nil {
		triggers = []domain.Trigger{}
	}
	return triggers, nil
}

// ListProducts returns active products, newest first.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// ListMessages returns recent chat history, oldest first.
func (s *Service) ListMessages(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	messages, err := s.store.ListMessages(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return messages, nil
}

// ListDonations returns recent donations, newest first.
func (s *Service) ListDonations(ctx context.Context, limit int) ([]domain.Donation, error) {
	donations, err := s.store.ListDonations(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if donations == nil {
		donations = []domain.Donation{}
	}
	return donations, nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return store.DefaultListLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}
