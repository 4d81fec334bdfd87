// Package service implements the business logic of the Tejon store.
package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/carmonterr/tejon/internal/apperr"
	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/repository"
)

// Repository describes the data-access contract used by the service.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u *model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	MarkVerified(ctx context.Context, id int64) error
	UpdateLoginThrottle(ctx context.Context, id int64, attempts int, lastAttempt, blockedUntil *time.Time) error
	UpdateResetRequest(ctx context.Context, id int64, attempts int, lastAttempt time.Time, tokenHash string, expires time.Time) error
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash []byte) error
	UpdateShippingProfile(ctx context.Context, id int64, phone string, addr model.ShippingAddress) error
	UpdateUser(ctx context.Context, id int64, name, email *string, isAdmin *bool) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, search string, limit, offset int) ([]model.User, int64, error)
	CountUsers(ctx context.Context) (int64, error)
	FindUserIDsByNameOrEmail(ctx context.Context, query string) ([]int64, error)
	DeleteExpiredUnverified(ctx context.Context, createdBefore, now time.Time) (int64, error)

	CreateProduct(ctx context.Context, p *model.Product) (int64, error)
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error)
	CountProducts(ctx context.Context) (total, outOfStock int64, err error)
	InsertReview(ctx context.Context, rev *model.Review) (int64, error)
	ListReviews(ctx context.Context, productID int64) ([]model.Review, error)
	DeleteReview(ctx context.Context, productID, reviewID int64) (*model.Review, error)
	SetProductRating(ctx context.Context, productID int64, rating float64, numRatings int) error
	HasPaidOrderWithProduct(ctx context.Context, userID, productID int64) (bool, error)

	CreateOrder(ctx context.Context, o *model.Order) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	PayOrder(ctx context.Context, id int64, paidAt time.Time) error
	RevertOrderPayment(ctx context.Context, id int64) error
	SetInTransit(ctx context.Context, id int64) error
	SetDelivered(ctx context.Context, id int64, deliveredAt time.Time) error
	DeleteUnpaidOrder(ctx context.Context, id int64) error
	SearchOrders(ctx context.Context, f repository.OrderSearchFilter) ([]model.AdminOrder, int64, int64, error)
	OrderStatsBetween(ctx context.Context, from, to time.Time) (int64, int64, error)
	CountOrdersAndPaidRevenue(ctx context.Context) (int64, int64, error)
	SalesByDate(ctx context.Context, from, to time.Time, byMonth bool) ([]model.SalesBucket, error)

	CreateBanner(ctx context.Context, b *model.Banner) (int64, error)
	GetBannerByID(ctx context.Context, id int64) (*model.Banner, error)
	ListBanners(ctx context.Context) ([]model.Banner, error)
	UpdateBanner(ctx context.Context, b *model.Banner) (*model.Banner, error)
	DeleteBanner(ctx context.Context, id int64) error
}

// Mailer delivers transactional mail. Sends are synchronous single attempts.
type Mailer interface {
	Send(to, subject, body string) error
}

// ImageStore removes hosted images when their owning records go away.
type ImageStore interface {
	Configured() bool
	Destroy(ctx context.Context, publicID string) error
}

// Domain errors shared across handlers. Messages stay in Spanish for wire
// compatibility with the existing client.
var (
	errEmailInUse            = apperr.New(http.StatusBadRequest, "EMAIL_IN_USE", "El correo ya está registrado. Intenta con otro.")
	errUserNotFound          = apperr.New(http.StatusNotFound, "USER_NOT_FOUND", "No se encontró una cuenta registrada con este correo.")
	errAlreadyVerified       = apperr.New(http.StatusBadRequest, "ALREADY_VERIFIED", "Esta cuenta ya fue verificada previamente.")
	errInvalidCode           = apperr.New(http.StatusBadRequest, "INVALID_CODE", "El código ingresado no es válido. Verifica tu correo.")
	errCodeExpired           = apperr.New(http.StatusBadRequest, "CODE_EXPIRED", "El código de verificación ha expirado. Solicita uno nuevo.")
	errInvalidCredentials    = apperr.New(http.StatusBadRequest, "INVALID_CREDENTIALS", "El correo o la contraseña no son correctos.")
	errAccountNotVerified    = apperr.New(http.StatusForbidden, "ACCOUNT_NOT_VERIFIED", "Debes verificar tu cuenta antes de iniciar sesión. Revisa tu correo.")
	errLoginBlocked          = apperr.New(http.StatusTooManyRequests, "LOGIN_BLOCKED", "Demasiados intentos fallidos. Intenta nuevamente en unos minutos.")
	errEmailNotFound         = apperr.New(http.StatusNotFound, "EMAIL_NOT_FOUND", "No existe ninguna cuenta asociada a este correo electrónico.")
	errResetAttemptsExceeded = apperr.New(http.StatusTooManyRequests, "RESET_ATTEMPTS_EXCEEDED", "Has alcanzado el límite de solicitudes de recuperación para hoy. Intenta nuevamente mañana.")
	errInvalidResetToken     = apperr.New(http.StatusBadRequest, "INVALID_OR_EXPIRED_TOKEN", "El token es inválido o ha expirado. Solicita uno nuevo.")
	errCannotDeleteSelf      = apperr.New(http.StatusBadRequest, "CANNOT_DELETE_SELF", "No puedes eliminar tu propia cuenta.")

	errProductNotFound     = apperr.New(http.StatusNotFound, "PRODUCT_NOT_FOUND", "Producto no encontrado")
	errReviewNotFound      = apperr.New(http.StatusNotFound, "REVIEW_NOT_FOUND", "Opinión no encontrada")
	errAlreadyReviewed     = apperr.New(http.StatusBadRequest, "ALREADY_REVIEWED", "Ya has dejado una opinión para este producto.")
	errNotEligibleToReview = apperr.New(http.StatusForbidden, "NOT_ELIGIBLE_TO_REVIEW", "Debes haber comprado este producto para dejar una opinión.")

	errOrderItemsRequired  = apperr.New(http.StatusBadRequest, "ORDER_ITEMS_REQUIRED", "No hay productos en el pedido")
	errShippingInfoMissing = apperr.New(http.StatusBadRequest, "SHIPPING_INFO_MISSING", "Falta información de envío en el perfil del usuario")
	errOrderNotFound       = apperr.New(http.StatusNotFound, "ORDER_NOT_FOUND", "Pedido no encontrado")
	errOrderAlreadyPaid    = apperr.New(http.StatusBadRequest, "ORDER_ALREADY_PAID", "Este pedido ya está pagado.")
	errOrderNotPaid        = apperr.New(http.StatusBadRequest, "ORDER_NOT_PAID", "El pedido ya está marcado como no pagado.")
	errOrderPaidDelete     = apperr.New(http.StatusBadRequest, "ORDER_PAID", "No se puede eliminar un pedido pagado")
	errOrderForbidden      = apperr.New(http.StatusForbidden, "UNAUTHORIZED_ORDER_ACCESS", "No estás autorizado a ver este pedido")
	errDatesRequired       = apperr.New(http.StatusBadRequest, "DATE_RANGE_REQUIRED", "Las fechas \"from\" y \"to\" son requeridas")

	errBannerNotFound = apperr.New(http.StatusNotFound, "BANNER_NOT_FOUND", "Banner no encontrado")
	errImageRequired  = apperr.New(http.StatusBadRequest, "IMAGE_REQUIRED", "La imagen es requerida")
)

// Service holds the business logic of the store.
type Service struct {
	repo      Repository
	mailer    Mailer
	images    ImageStore
	logger    *zap.Logger
	clientURL string

	// now is injected so tests can pin the clock.
	now func() time.Time
}

// NewService creates the service. clientURL is the public origin used in the
// password-reset link.
func NewService(repo Repository, mailer Mailer, images ImageStore, logger *zap.Logger, clientURL string) *Service {
	return &Service{
		repo:      repo,
		mailer:    mailer,
		images:    images,
		logger:    logger,
		clientURL: clientURL,
		now:       time.Now,
	}
}

// Close releases the service resources.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// destroyImage is a best-effort cleanup of a hosted asset. Failures are logged
// and never abort the primary operation.
func (s *Service) destroyImage(ctx context.Context, publicID string) {
	if publicID == "" || s.images == nil || !s.images.Configured() {
		return
	}
	if err := s.images.Destroy(ctx, publicID); err != nil {
		s.logger.Warn("destroy hosted image", zap.String("publicID", publicID), zap.Error(err))
	}
}
