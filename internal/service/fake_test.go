package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/repository"
)

// fakeRepo is an in-memory Repository with the same observable semantics as
// the Postgres implementation.
type fakeRepo struct {
	users    map[int64]*model.User
	products map[int64]*model.Product
	reviews  map[int64]*model.Review
	orders   map[int64]*model.Order
	banners  map[int64]*model.Banner
	nextID   int64

	lastSearch   repository.OrderSearchFilter
	searchCalled bool
	searchResult []model.AdminOrder
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    map[int64]*model.User{},
		products: map[int64]*model.Product{},
		reviews:  map[int64]*model.Review{},
		orders:   map[int64]*model.Order{},
		banners:  map[int64]*model.Banner{},
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) Close() error { return nil }

func (f *fakeRepo) CreateUser(_ context.Context, u *model.User) (int64, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return 0, repository.ErrEmailTaken
		}
	}
	cp := *u
	cp.ID = f.id()
	f.users[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) MarkVerified(_ context.Context, id int64) error {
	u := f.users[id]
	u.IsVerified = true
	u.VerificationCode = nil
	u.VerificationCodeExpires = nil
	return nil
}

func (f *fakeRepo) UpdateLoginThrottle(_ context.Context, id int64, attempts int, lastAttempt, blockedUntil *time.Time) error {
	u := f.users[id]
	u.LoginAttempts = attempts
	u.LoginLastAttempt = lastAttempt
	u.LoginBlockedUntil = blockedUntil
	return nil
}

func (f *fakeRepo) UpdateResetRequest(_ context.Context, id int64, attempts int, lastAttempt time.Time, tokenHash string, expires time.Time) error {
	u := f.users[id]
	u.ResetAttempts = attempts
	u.ResetLastAttempt = &lastAttempt
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpires = &expires
	return nil
}

func (f *fakeRepo) GetUserByResetToken(_ context.Context, tokenHash string, now time.Time) (*model.User, error) {
	for _, u := range f.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
			u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id int64, passwordHash []byte) error {
	u := f.users[id]
	u.PasswordHash = passwordHash
	u.ResetTokenHash = nil
	u.ResetTokenExpires = nil
	return nil
}

func (f *fakeRepo) UpdateShippingProfile(_ context.Context, id int64, phone string, addr model.ShippingAddress) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Phone = phone
	u.ShippingAddress = addr
	return nil
}

func (f *fakeRepo) UpdateUser(_ context.Context, id int64, name, email *string, isAdmin *bool) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if email != nil {
		u.Email = *email
	}
	if isAdmin != nil {
		u.IsAdmin = *isAdmin
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) DeleteUser(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeRepo) ListUsers(_ context.Context, search string, limit, offset int) ([]model.User, int64, error) {
	var res []model.User
	for _, u := range f.users {
		if search == "" ||
			strings.Contains(strings.ToLower(u.Name), strings.ToLower(search)) ||
			strings.Contains(strings.ToLower(u.Email), strings.ToLower(search)) {
			res = append(res, *u)
		}
	}
	return res, int64(len(res)), nil
}

func (f *fakeRepo) CountUsers(_ context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeRepo) FindUserIDsByNameOrEmail(_ context.Context, query string) ([]int64, error) {
	var ids []int64
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) ||
			strings.Contains(strings.ToLower(u.Email), strings.ToLower(query)) {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (f *fakeRepo) DeleteExpiredUnverified(_ context.Context, createdBefore, now time.Time) (int64, error) {
	var deleted int64
	for id, u := range f.users {
		if u.IsVerified {
			continue
		}
		expired := u.VerificationCodeExpires != nil && u.VerificationCodeExpires.Before(now)
		if u.CreatedAt.Before(createdBefore) || expired {
			delete(f.users, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeRepo) CreateProduct(_ context.Context, p *model.Product) (int64, error) {
	cp := *p
	cp.ID = f.id()
	f.products[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRepo) GetProductByID(_ context.Context, id int64) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) UpdateProduct(_ context.Context, p *model.Product) (*model.Product, error) {
	stored, ok := f.products[p.ID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	cp.Rating = stored.Rating
	cp.NumRatings = stored.NumRatings
	cp.Sold = stored.Sold
	f.products[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRepo) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(f.products, id)
	for rid, rev := range f.reviews {
		if rev.ProductID == id {
			delete(f.reviews, rid)
		}
	}
	return nil
}

func (f *fakeRepo) ListProducts(_ context.Context, _ repository.ProductFilter) ([]model.Product, int64, error) {
	var res []model.Product
	for _, p := range f.products {
		res = append(res, *p)
	}
	return res, int64(len(res)), nil
}

func (f *fakeRepo) CountProducts(_ context.Context) (int64, int64, error) {
	var out int64
	for _, p := range f.products {
		if p.Stock == 0 {
			out++
		}
	}
	return int64(len(f.products)), out, nil
}

func (f *fakeRepo) InsertReview(_ context.Context, rev *model.Review) (int64, error) {
	for _, existing := range f.reviews {
		if existing.ProductID == rev.ProductID && existing.UserID == rev.UserID {
			return 0, repository.ErrAlreadyReviewed
		}
	}
	cp := *rev
	cp.ID = f.id()
	f.reviews[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRepo) ListReviews(_ context.Context, productID int64) ([]model.Review, error) {
	var res []model.Review
	for _, rev := range f.reviews {
		if rev.ProductID == productID {
			res = append(res, *rev)
		}
	}
	return res, nil
}

func (f *fakeRepo) DeleteReview(_ context.Context, productID, reviewID int64) (*model.Review, error) {
	rev, ok := f.reviews[reviewID]
	if !ok || rev.ProductID != productID {
		return nil, repository.ErrReviewNotFound
	}
	delete(f.reviews, reviewID)
	cp := *rev
	return &cp, nil
}

func (f *fakeRepo) SetProductRating(_ context.Context, productID int64, rating float64, numRatings int) error {
	p := f.products[productID]
	p.Rating = rating
	p.NumRatings = numRatings
	return nil
}

func (f *fakeRepo) HasPaidOrderWithProduct(_ context.Context, userID, productID int64) (bool, error) {
	for _, o := range f.orders {
		if o.UserID != userID || !o.IsPaid {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateOrder(_ context.Context, o *model.Order) (int64, error) {
	cp := *o
	cp.ID = f.id()
	cp.DeliveryStatus = model.DeliveryPending
	f.orders[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRepo) GetOrderByID(_ context.Context, id int64) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) GetOrdersByUser(_ context.Context, userID int64) ([]model.Order, error) {
	var res []model.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			res = append(res, *o)
		}
	}
	return res, nil
}

func (f *fakeRepo) PayOrder(_ context.Context, id int64, paidAt time.Time) error {
	o, ok := f.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.IsPaid {
		return repository.ErrOrderAlreadyPaid
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	for _, item := range o.Items {
		if p, ok := f.products[item.ProductID]; ok {
			p.Stock -= item.Qty
			if p.Stock < 0 {
				p.Stock = 0
			}
			p.Sold += item.Qty
		}
	}
	return nil
}

func (f *fakeRepo) RevertOrderPayment(_ context.Context, id int64) error {
	o, ok := f.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if !o.IsPaid {
		return repository.ErrOrderNotPaid
	}
	o.IsPaid = false
	o.PaidAt = nil
	for _, item := range o.Items {
		if p, ok := f.products[item.ProductID]; ok {
			p.Stock += item.Qty
			p.Sold -= item.Qty
		}
	}
	return nil
}

func (f *fakeRepo) SetInTransit(_ context.Context, id int64) error {
	o, ok := f.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.DeliveryStatus = model.DeliveryInTransit
	return nil
}

func (f *fakeRepo) SetDelivered(_ context.Context, id int64, deliveredAt time.Time) error {
	o, ok := f.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.IsDelivered = true
	o.DeliveredAt = &deliveredAt
	o.DeliveryStatus = model.DeliveryDelivered
	return nil
}

func (f *fakeRepo) DeleteUnpaidOrder(_ context.Context, id int64) error {
	o, ok := f.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.IsPaid {
		return repository.ErrOrderPaid
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeRepo) SearchOrders(_ context.Context, filter repository.OrderSearchFilter) ([]model.AdminOrder, int64, int64, error) {
	f.lastSearch = filter
	f.searchCalled = true
	var revenue int64
	for _, o := range f.searchResult {
		if o.IsPaid {
			revenue += o.TotalCents
		}
	}
	return f.searchResult, int64(len(f.searchResult)), revenue, nil
}

func (f *fakeRepo) OrderStatsBetween(_ context.Context, from, to time.Time) (int64, int64, error) {
	var count, total int64
	for _, o := range f.orders {
		if !o.CreatedAt.Before(from) && !o.CreatedAt.After(to) {
			count++
			if o.IsPaid {
				total += o.TotalCents
			}
		}
	}
	return count, total, nil
}

func (f *fakeRepo) CountOrdersAndPaidRevenue(_ context.Context) (int64, int64, error) {
	var revenue int64
	for _, o := range f.orders {
		if o.IsPaid {
			revenue += o.TotalCents
		}
	}
	return int64(len(f.orders)), revenue, nil
}

func (f *fakeRepo) SalesByDate(_ context.Context, from, to time.Time, byMonth bool) ([]model.SalesBucket, error) {
	format := "2006-01-02"
	if byMonth {
		format = "2006-01"
	}
	buckets := map[string]int64{}
	for _, o := range f.orders {
		if o.IsPaid && o.PaidAt != nil && !o.PaidAt.Before(from) && !o.PaidAt.After(to) {
			buckets[o.PaidAt.Format(format)] += o.TotalCents
		}
	}
	var res []model.SalesBucket
	for date, total := range buckets {
		res = append(res, model.SalesBucket{Date: date, TotalCents: total})
	}
	return res, nil
}

func (f *fakeRepo) CreateBanner(_ context.Context, b *model.Banner) (int64, error) {
	cp := *b
	cp.ID = f.id()
	f.banners[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRepo) GetBannerByID(_ context.Context, id int64) (*model.Banner, error) {
	b, ok := f.banners[id]
	if !ok {
		return nil, repository.ErrBannerNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) ListBanners(_ context.Context) ([]model.Banner, error) {
	var res []model.Banner
	for _, b := range f.banners {
		res = append(res, *b)
	}
	return res, nil
}

func (f *fakeRepo) UpdateBanner(_ context.Context, b *model.Banner) (*model.Banner, error) {
	if _, ok := f.banners[b.ID]; !ok {
		return nil, repository.ErrBannerNotFound
	}
	cp := *b
	f.banners[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRepo) DeleteBanner(_ context.Context, id int64) error {
	if _, ok := f.banners[id]; !ok {
		return repository.ErrBannerNotFound
	}
	delete(f.banners, id)
	return nil
}

// fakeMailer records outgoing mail.
type fakeMailer struct {
	sent []string // recipients in send order
	body string   // last body
	err  error
}

func (m *fakeMailer) Send(to, _, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	m.body = body
	return nil
}

// fakeImages records destroyed public ids.
type fakeImages struct {
	destroyed []string
}

func (i *fakeImages) Configured() bool { return true }

func (i *fakeImages) Destroy(_ context.Context, publicID string) error {
	i.destroyed = append(i.destroyed, publicID)
	return nil
}

// newTestService wires a service around the fake repo with a pinned clock.
func newTestService(repo *fakeRepo) (*Service, *fakeMailer, *fakeImages) {
	mailer := &fakeMailer{}
	images := &fakeImages{}
	svc := NewService(repo, mailer, images, zap.NewNop(), "http://localhost:5173")
	svc.now = func() time.Time {
		return time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc, mailer, images
}
