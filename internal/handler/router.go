package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/carmonterr/tejon/internal/middleware"
	"github.com/carmonterr/tejon/internal/model"
)

// Router assembles the chi router with the full API surface. clientURL is the
// allowed CORS origin of the storefront.
func (h *Handler) Router(clientURL string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Gzip)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{clientURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusNotFound, map[string]any{
			"message": "Ruta no encontrada",
			"code":    "NOT_FOUND",
			"errors":  nil,
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"message": "Método no permitido",
			"code":    "METHOD_NOT_ALLOWED",
			"errors":  nil,
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/verify-email", h.verifyEmail)
			r.Post("/login", h.login)
			r.Post("/forgot-password", h.forgotPassword)
			r.Post("/reset-password/{token}", h.resetPassword)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.Authenticate)
				r.Get("/profile", h.profile)
				r.Patch("/profile", h.updateProfile)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.auth.Authenticate, middleware.RequireAdmin)
				r.Get("/", h.listUsers)
				r.Put("/{id}", h.updateUser)
				r.Delete("/{id}", h.deleteUser)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/{id}", h.getProduct)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.Authenticate)
				r.Post("/{id}/reviews", h.addReview)
				r.Get("/{id}/can-review", h.canReview)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.auth.Authenticate, middleware.RequireAdmin)
				r.Post("/", h.createProduct)
				r.Put("/{id}", h.updateProduct)
				r.Delete("/{id}", h.deleteProduct)
				r.Delete("/{id}/reviews/{reviewId}", h.deleteReview)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.auth.Authenticate)

			r.Post("/", h.createOrder)
			r.Get("/mine", h.myOrders)
			r.Get("/{id}", h.getOrder)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", h.searchOrders)
				r.Put("/{id}/pay", h.orderTransition("Pedido marcado como pagado y stock actualizado", func(req *http.Request, id int64) (*model.Order, error) {
					return h.svc.PayOrder(req.Context(), id)
				}))
				r.Put("/{id}/revert", h.orderTransition("Pago revertido y stock restaurado", func(req *http.Request, id int64) (*model.Order, error) {
					return h.svc.RevertPayment(req.Context(), id)
				}))
				r.Put("/{id}/transit", h.orderTransition("Pedido en tránsito", func(req *http.Request, id int64) (*model.Order, error) {
					return h.svc.MarkInTransit(req.Context(), id)
				}))
				r.Put("/{id}/deliver", h.orderTransition("Pedido marcado como entregado", func(req *http.Request, id int64) (*model.Order, error) {
					return h.svc.MarkDelivered(req.Context(), id)
				}))
				r.Delete("/{id}", h.deleteOrder)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.auth.Authenticate, middleware.RequireAdmin)
			r.Get("/users/count", h.userCount)
			r.Get("/orders/summary", h.orderSummary)
			r.Get("/products/summary", h.productSummary)
			r.Get("/ventas/por-fecha", h.salesByDate)
		})

		r.Route("/banners", func(r chi.Router) {
			r.Get("/", h.listBanners)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.Authenticate, middleware.RequireAdmin)
				r.Post("/", h.createBanner)
				r.Put("/{id}", h.updateBanner)
				r.Delete("/{id}", h.deleteBanner)
			})
		})

		r.With(h.auth.Authenticate, middleware.RequireAdmin).
			Post("/cloudinary/signature", h.uploadSignature)
	})

	return r
}
