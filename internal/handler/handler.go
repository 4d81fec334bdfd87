// Package handler exposes the REST API of the Tejon store.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/carmonterr/tejon/internal/apperr"
	"github.com/carmonterr/tejon/internal/cloudinary"
	"github.com/carmonterr/tejon/internal/middleware"
	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/repository"
	"github.com/carmonterr/tejon/internal/service"
)

// Service is the business-logic contract the handlers call into.
type Service interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	VerifyEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*model.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, password string) error

	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpdateShippingProfile(ctx context.Context, id int64, phone string, addr model.ShippingAddress) (*model.User, error)
	ListUsers(ctx context.Context, search string, limit, offset int) ([]model.User, int64, error)
	UpdateUser(ctx context.Context, id int64, name, email *string, isAdmin *bool) (*model.User, error)
	DeleteUser(ctx context.Context, adminID, targetID int64) error

	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error)
	AddReview(ctx context.Context, user *model.User, productID int64, rating int, comment string, image *model.Image) (*model.Review, error)
	DeleteReview(ctx context.Context, productID, reviewID int64) error
	ListReviews(ctx context.Context, productID int64) ([]model.Review, error)
	CanReview(ctx context.Context, userID, productID int64) (bool, error)

	CreateOrder(ctx context.Context, user *model.User, items []model.OrderItem, shippingCents, totalCents int64) (*model.Order, error)
	GetOrder(ctx context.Context, user *model.User, id int64) (*model.Order, error)
	MyOrders(ctx context.Context, userID int64) ([]model.Order, error)
	PayOrder(ctx context.Context, id int64) (*model.Order, error)
	RevertPayment(ctx context.Context, id int64) (*model.Order, error)
	MarkInTransit(ctx context.Context, id int64) (*model.Order, error)
	MarkDelivered(ctx context.Context, id int64) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	SearchOrders(ctx context.Context, p service.OrderSearchParams) ([]model.AdminOrder, int64, int64, error)
	OrderStats(ctx context.Context, from, to *time.Time) (int64, int64, error)
	SalesByDate(ctx context.Context, from, to *time.Time, byMonth bool) ([]model.SalesBucket, error)

	CreateBanner(ctx context.Context, b *model.Banner) (*model.Banner, error)
	ListBanners(ctx context.Context) ([]model.Banner, error)
	UpdateBanner(ctx context.Context, b *model.Banner) (*model.Banner, error)
	DeleteBanner(ctx context.Context, id int64) error

	Dashboard(ctx context.Context) (*service.DashboardSummary, error)
}

// Handler holds the HTTP handlers of the API.
type Handler struct {
	svc     Service
	auth    *middleware.AuthMiddleware
	uploads *cloudinary.Client
	logger  *zap.Logger
}

// NewHandler creates the handler set.
func NewHandler(svc Service, auth *middleware.AuthMiddleware, uploads *cloudinary.Client, logger *zap.Logger) *Handler {
	return &Handler{
		svc:     svc,
		auth:    auth,
		uploads: uploads,
		logger:  logger,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

// respondError renders any error as the {message, code, errors} envelope.
// Unknown errors become a generic 500 so internals never leak to clients.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		h.writeJSON(w, appErr.Status, map[string]any{
			"message": appErr.Message,
			"code":    appErr.Code,
			"errors":  appErr.Details,
		})
		return
	}

	h.logger.Error("internal error", zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, map[string]any{
		"message": "Error interno del servidor",
		"code":    "INTERNAL_ERROR",
		"errors":  nil,
	})
}

var (
	errBadRequest           = apperr.New(http.StatusBadRequest, "BAD_REQUEST", "Solicitud inválida")
	errUploadsNotConfigured = apperr.New(http.StatusServiceUnavailable, "CLOUDINARY_NOT_CONFIGURED", "El servicio de imágenes no está configurado")
)

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, errBadRequest)
		return false
	}
	return true
}

// decodeOptional decodes a JSON body, tolerating an empty or absent one.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// urlID parses the {id}-style path parameter as an int64.
func (h *Handler) urlID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, errBadRequest)
		return 0, false
	}
	return id, true
}

// authedUser returns the account placed in the context by Authenticate.
func (h *Handler) authedUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.respondError(w, apperr.New(http.StatusUnauthorized, "UNAUTHORIZED", "No autorizado"))
		return nil, false
	}
	return user, true
}

// Money crosses the wire as pesos with decimals; internally it is cents.
func centsToPesos(c int64) float64 {
	return float64(c) / 100
}

func pesosToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// pagination reads ?page= and ?limit= with the catalog defaults.
func pagination(r *http.Request, defaultLimit int) (page, limit, offset int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit, (page - 1) * limit
}

func totalPages(total int64, limit int) int64 {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}
