package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carmonterr/tejon/internal/apperr"
	"github.com/carmonterr/tejon/internal/cloudinary"
	"github.com/carmonterr/tejon/internal/middleware"
	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/service"
)

// stubService implements Service for the methods a test overrides; calling an
// unstubbed method panics, which fails the test loudly.
type stubService struct {
	Service

	loginFn        func(ctx context.Context, email, password string) (*model.User, error)
	registerFn     func(ctx context.Context, name, email, password string) (*model.User, error)
	createOrderFn  func(ctx context.Context, user *model.User, items []model.OrderItem, shippingCents, totalCents int64) (*model.Order, error)
	myOrdersFn     func(ctx context.Context, userID int64) ([]model.Order, error)
	searchOrdersFn func(ctx context.Context, p service.OrderSearchParams) ([]model.AdminOrder, int64, int64, error)
	listBannersFn  func(ctx context.Context) ([]model.Banner, error)
}

func (s *stubService) Login(ctx context.Context, email, password string) (*model.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	return s.registerFn(ctx, name, email, password)
}

func (s *stubService) CreateOrder(ctx context.Context, user *model.User, items []model.OrderItem, shippingCents, totalCents int64) (*model.Order, error) {
	return s.createOrderFn(ctx, user, items, shippingCents, totalCents)
}

func (s *stubService) MyOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.myOrdersFn(ctx, userID)
}

func (s *stubService) SearchOrders(ctx context.Context, p service.OrderSearchParams) ([]model.AdminOrder, int64, int64, error) {
	return s.searchOrdersFn(ctx, p)
}

func (s *stubService) ListBanners(ctx context.Context) ([]model.Banner, error) {
	return s.listBannersFn(ctx)
}

// stubUsers backs the auth middleware.
type stubUsers struct {
	users map[int64]*model.User
}

func (s *stubUsers) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.New(http.StatusNotFound, "USER_NOT_FOUND", "no existe")
	}
	return u, nil
}

func newTestServer(t *testing.T, svc Service) (*httptest.Server, *middleware.AuthMiddleware, *stubUsers) {
	t.Helper()

	users := &stubUsers{users: map[int64]*model.User{}}
	auth := middleware.NewAuthMiddleware("test-secret", users)
	h := NewHandler(svc, auth, cloudinary.NewClient("", "", ""), zap.NewNop())

	srv := httptest.NewServer(h.Router("http://localhost:5173"))
	t.Cleanup(srv.Close)
	return srv, auth, users
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestLoginReturnsTokenAndProfile(t *testing.T) {
	svc := &stubService{
		loginFn: func(_ context.Context, email, password string) (*model.User, error) {
			assert.Equal(t, "ana@example.com", email)
			assert.Equal(t, "secreta1", password)
			return &model.User{ID: 7, Name: "Ana", Email: email}, nil
		},
	}
	srv, _, _ := newTestServer(t, svc)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/users/login", "",
		map[string]string{"email": "ana@example.com", "password": "secreta1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		ID    int64  `json:"_id"`
		Name  string `json:"name"`
		Token string `json:"token"`
	}
	decodeInto(t, resp, &body)
	assert.Equal(t, int64(7), body.ID)
	assert.Equal(t, "Ana", body.Name)
	assert.NotEmpty(t, body.Token)
}

func TestLoginBlockedEnvelope(t *testing.T) {
	until := time.Now().Add(10 * time.Minute)
	svc := &stubService{
		loginFn: func(_ context.Context, _, _ string) (*model.User, error) {
			return nil, apperr.New(http.StatusTooManyRequests, "LOGIN_BLOCKED", "Demasiados intentos fallidos.").
				WithDetails(map[string]any{"blockedUntil": until})
		},
	}
	srv, _, _ := newTestServer(t, svc)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/users/login", "",
		map[string]string{"email": "ana@example.com", "password": "x"})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var body struct {
		Message string         `json:"message"`
		Code    string         `json:"code"`
		Errors  map[string]any `json:"errors"`
	}
	decodeInto(t, resp, &body)
	assert.Equal(t, "LOGIN_BLOCKED", body.Code)
	assert.NotEmpty(t, body.Message)
	assert.Contains(t, body.Errors, "blockedUntil")
}

func TestRegisterValidationEnvelope(t *testing.T) {
	svc := &stubService{
		registerFn: func(_ context.Context, _, _, _ string) (*model.User, error) {
			return nil, apperr.Validation([]apperr.FieldError{
				{Field: "email", Message: "Debe ser un correo válido"},
			})
		},
	}
	srv, _, _ := newTestServer(t, svc)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/users/register", "",
		map[string]string{"name": "Ana", "email": "x", "password": "secreta1"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Code   string             `json:"code"`
		Errors []apperr.FieldError `json:"errors"`
	}
	decodeInto(t, resp, &body)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "email", body.Errors[0].Field)
}

func TestOrdersRequireAuthentication(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubService{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/orders/mine", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminSearchForbiddenForCustomers(t *testing.T) {
	srv, auth, users := newTestServer(t, &stubService{})
	users.users[3] = &model.User{ID: 3, Name: "Cliente"}

	token, err := auth.GenerateToken(3)
	require.NoError(t, err)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/orders/", token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeInto(t, resp, &body)
	assert.Equal(t, "FORBIDDEN", body.Code)
}

func TestCreateOrderConvertsMoney(t *testing.T) {
	var gotShipping, gotTotal int64
	svc := &stubService{
		createOrderFn: func(_ context.Context, user *model.User, items []model.OrderItem, shippingCents, totalCents int64) (*model.Order, error) {
			gotShipping, gotTotal = shippingCents, totalCents
			return &model.Order{
				ID:             11,
				UserID:         user.ID,
				Items:          items,
				ShippingCents:  shippingCents,
				TotalCents:     totalCents,
				DeliveryStatus: model.DeliveryPending,
			}, nil
		},
	}
	srv, auth, users := newTestServer(t, svc)
	users.users[3] = &model.User{ID: 3, Name: "Cliente"}
	token, err := auth.GenerateToken(3)
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders/", token, map[string]any{
		"orderItems": []map[string]any{
			{"product": 5, "name": "Bota Tejon", "qty": 2, "talla": 37, "price": 120000.50},
		},
		"shippingPrice": 12000.0,
		"totalPrice":    252001.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, int64(1200000), gotShipping)
	assert.Equal(t, int64(25200100), gotTotal)

	var body struct {
		ID         int64 `json:"_id"`
		OrderItems []struct {
			Price float64 `json:"price"`
			Qty   int32   `json:"qty"`
			Talla *int32  `json:"talla"`
		} `json:"orderItems"`
		TotalPrice     float64 `json:"totalPrice"`
		DeliveryStatus string  `json:"deliveryStatus"`
	}
	decodeInto(t, resp, &body)
	assert.Equal(t, int64(11), body.ID)
	require.Len(t, body.OrderItems, 1)
	assert.Equal(t, 120000.50, body.OrderItems[0].Price)
	require.NotNil(t, body.OrderItems[0].Talla)
	assert.Equal(t, int32(37), *body.OrderItems[0].Talla)
	assert.Equal(t, 252001.0, body.TotalPrice)
	assert.Equal(t, "pendiente", body.DeliveryStatus)
}

func TestSearchOrdersResponseShape(t *testing.T) {
	svc := &stubService{
		searchOrdersFn: func(_ context.Context, p service.OrderSearchParams) ([]model.AdminOrder, int64, int64, error) {
			assert.Equal(t, "maria", p.Query)
			assert.Equal(t, "pagado", p.Status)
			assert.Equal(t, 10, p.Limit)
			assert.Equal(t, 10, p.Offset)
			return []model.AdminOrder{{
				Order:     model.Order{ID: 1, UserID: 2, IsPaid: true, TotalCents: 5000_00, DeliveryStatus: model.DeliveryPending},
				UserName:  "María",
				UserEmail: "maria@example.com",
			}}, 21, 40000_00, nil
		},
	}
	srv, auth, users := newTestServer(t, svc)
	users.users[1] = &model.User{ID: 1, Name: "Admin", IsAdmin: true}
	token, err := auth.GenerateToken(1)
	require.NoError(t, err)

	resp := doJSON(t, http.MethodGet,
		srv.URL+"/api/orders/?search=maria&estado=pagado&page=2&limit=10", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Orders []struct {
			ID   int64 `json:"_id"`
			User struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"user"`
		} `json:"orders"`
		Page        int     `json:"page"`
		Pages       int64   `json:"pages"`
		Total       int64   `json:"total"`
		TotalVentas float64 `json:"totalVentas"`
	}
	decodeInto(t, resp, &body)
	require.Len(t, body.Orders, 1)
	assert.Equal(t, "María", body.Orders[0].User.Name)
	assert.Equal(t, "maria@example.com", body.Orders[0].User.Email)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, int64(3), body.Pages)
	assert.Equal(t, int64(21), body.Total)
	assert.Equal(t, 40000.0, body.TotalVentas)
}

func TestBannersArePublic(t *testing.T) {
	svc := &stubService{
		listBannersFn: func(_ context.Context) ([]model.Banner, error) {
			return []model.Banner{{
				ID:    1,
				Image: model.Image{URL: "https://img/b.jpg", PublicID: "tejon/b"},
				Align: model.AlignLeft,
			}}, nil
		},
	}
	srv, _, _ := newTestServer(t, svc)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/banners/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body []struct {
		ID    int64  `json:"_id"`
		Align string `json:"align"`
	}
	decodeInto(t, resp, &body)
	require.Len(t, body, 1)
	assert.Equal(t, "left", body[0].Align)
}

func TestUnknownRouteEnvelope(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubService{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/no-such-route", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeInto(t, resp, &body)
	assert.Equal(t, "NOT_FOUND", body.Code)
}

func TestMoneyConversionRoundTrip(t *testing.T) {
	tests := []struct {
		pesos float64
		cents int64
	}{
		{0, 0},
		{120000.50, 12000050},
		{0.01, 1},
		{99999.99, 9999999},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.cents, pesosToCents(tt.pesos))
		assert.Equal(t, tt.pesos, centsToPesos(tt.cents))
	}
}
