package service

import (
	"context"
	"fmt"
)

// DashboardSummary aggregates the admin console counters.
type DashboardSummary struct {
	Users        int64
	Orders       int64
	RevenueCents int64
	Products     int64
	OutOfStock   int64
}

// Dashboard returns the global counters shown on the admin landing page.
func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	users, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	orders, revenueCents, err := s.repo.CountOrdersAndPaidRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	products, outOfStock, err := s.repo.CountProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	return &DashboardSummary{
		Users:        users,
		Orders:       orders,
		RevenueCents: revenueCents,
		Products:     products,
		OutOfStock:   outOfStock,
	}, nil
}
