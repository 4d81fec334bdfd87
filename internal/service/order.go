package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/repository"
	"github.com/carmonterr/tejon/internal/validation"
)

// CreateOrder records a checkout. The shipping address and phone are copied
// from the user profile as a snapshot.
func (s *Service) CreateOrder(ctx context.Context, user *model.User, items []model.OrderItem, shippingCents, totalCents int64) (*model.Order, error) {
	if len(items) == 0 {
		return nil, errOrderItemsRequired
	}
	if !user.HasShippingProfile() {
		return nil, errShippingInfoMissing
	}

	o := &model.Order{
		UserID: user.ID,
		Items:  items,
		Shipping: model.OrderShipping{
			Address: user.ShippingAddress.Address,
			City:    user.ShippingAddress.City,
			Country: user.ShippingAddress.Country,
			Phone:   user.Phone,
		},
		ShippingCents: shippingCents,
		TotalCents:    totalCents,
	}
	id, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("order created", zap.Int64("orderID", id), zap.Int64("userID", user.ID))
	return s.getOrder(ctx, id)
}

func (s *Service) getOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, errOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetOrder returns one order, visible only to its owner or an admin.
func (s *Service) GetOrder(ctx context.Context, user *model.User, id int64) (*model.Order, error) {
	o, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.ID && !user.IsAdmin {
		return nil, errOrderForbidden
	}
	return o, nil
}

// MyOrders returns the orders of the authenticated user.
func (s *Service) MyOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, err := s.repo.GetOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// PayOrder marks the order paid, decrementing stock (floored at zero) and
// incrementing sold counters for every line item.
func (s *Service) PayOrder(ctx context.Context, id int64) (*model.Order, error) {
	if err := s.repo.PayOrder(ctx, id, s.now()); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, errOrderNotFound
		case errors.Is(err, repository.ErrOrderAlreadyPaid):
			return nil, errOrderAlreadyPaid
		}
		return nil, fmt.Errorf("pay order: %w", err)
	}
	s.logger.Info("order paid", zap.Int64("orderID", id))
	return s.getOrder(ctx, id)
}

// RevertPayment undoes a payment, restoring stock and sold counters.
func (s *Service) RevertPayment(ctx context.Context, id int64) (*model.Order, error) {
	if err := s.repo.RevertOrderPayment(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, errOrderNotFound
		case errors.Is(err, repository.ErrOrderNotPaid):
			return nil, errOrderNotPaid
		}
		return nil, fmt.Errorf("revert payment: %w", err)
	}
	s.logger.Info("order payment reverted", zap.Int64("orderID", id))
	return s.getOrder(ctx, id)
}

// MarkInTransit moves the delivery status forward to "en tránsito".
func (s *Service) MarkInTransit(ctx context.Context, id int64) (*model.Order, error) {
	if err := s.repo.SetInTransit(ctx, id); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, errOrderNotFound
		}
		return nil, fmt.Errorf("mark in transit: %w", err)
	}
	return s.getOrder(ctx, id)
}

// MarkDelivered flags the order delivered with the current timestamp.
func (s *Service) MarkDelivered(ctx context.Context, id int64) (*model.Order, error) {
	if err := s.repo.SetDelivered(ctx, id, s.now()); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, errOrderNotFound
		}
		return nil, fmt.Errorf("mark delivered: %w", err)
	}
	return s.getOrder(ctx, id)
}

// DeleteOrder removes an order, refused while the order is paid.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUnpaidOrder(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return errOrderNotFound
		case errors.Is(err, repository.ErrOrderPaid):
			return errOrderPaidDelete
		}
		return fmt.Errorf("delete order: %w", err)
	}
	s.logger.Info("order deleted", zap.Int64("orderID", id))
	return nil
}

// OrderSearchParams is the admin console search input. Status is the wire
// value: "pagado", "pendiente" or "entregado"; empty means all.
type OrderSearchParams struct {
	Query  string
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// endOfDay pushes a date-only bound to the last instant of its day, so a
// range like from=to=2026-01-15 still covers the whole day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// SearchOrders runs the two-phase admin search. A free-text query is folded
// (case and accents ignored), resolved against account names and emails and
// matched against the order id as text; an order is a hit when either side
// matches, so digits in a name or email still find that account's orders.
func (s *Service) SearchOrders(ctx context.Context, p OrderSearchParams) ([]model.AdminOrder, int64, int64, error) {
	f := repository.OrderSearchFilter{
		From:   p.From,
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if p.To != nil {
		to := endOfDay(*p.To)
		f.To = &to
	}

	truth := func(v bool) *bool { return &v }
	switch p.Status {
	case "pagado":
		f.Paid = truth(true)
	case "pendiente":
		f.Paid = truth(false)
	case "entregado":
		f.Delivered = truth(true)
	}

	query := strings.ToLower(strings.TrimSpace(validation.Fold(p.Query)))
	if query != "" {
		f.Query = query
		ids, err := s.repo.FindUserIDsByNameOrEmail(ctx, query)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("resolve accounts: %w", err)
		}
		f.UserIDs = ids
		// Order ids are decimal, so only a numeric query can match the id
		// text; with no account match either, the result is empty.
		if len(ids) == 0 && !isNumeric(query) {
			return []model.AdminOrder{}, 0, 0, nil
		}
	}

	orders, total, revenueCents, err := s.repo.SearchOrders(ctx, f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("search orders: %w", err)
	}
	return orders, total, revenueCents, nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// OrderStats returns the order count and revenue inside an inclusive date
// range. Both bounds are required.
func (s *Service) OrderStats(ctx context.Context, from, to *time.Time) (int64, int64, error) {
	if from == nil || to == nil {
		return 0, 0, errDatesRequired
	}
	count, totalCents, err := s.repo.OrderStatsBetween(ctx, *from, endOfDay(*to))
	if err != nil {
		return 0, 0, fmt.Errorf("order stats: %w", err)
	}
	return count, totalCents, nil
}

// SalesByDate returns paid revenue bucketed per day or per month.
func (s *Service) SalesByDate(ctx context.Context, from, to *time.Time, byMonth bool) ([]model.SalesBucket, error) {
	if from == nil || to == nil {
		return nil, errDatesRequired
	}
	buckets, err := s.repo.SalesByDate(ctx, *from, endOfDay(*to), byMonth)
	if err != nil {
		return nil, fmt.Errorf("sales by date: %w", err)
	}
	return buckets, nil
}
