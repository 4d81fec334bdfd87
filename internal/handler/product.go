package handler

import (
	"net/http"
	"time"

	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/repository"
)

type reviewPayload struct {
	ID            int64        `json:"_id"`
	NombreCliente string       `json:"nombreCliente"`
	Rating        int          `json:"rating"`
	Comentario    string       `json:"comentario"`
	Imagen        *model.Image `json:"imagen,omitempty"`
	User          int64        `json:"user"`
	CreatedAt     time.Time    `json:"createdAt"`
}

func toReviewPayload(rev *model.Review) reviewPayload {
	return reviewPayload{
		ID:            rev.ID,
		NombreCliente: rev.AuthorName,
		Rating:        rev.Rating,
		Comentario:    rev.Comment,
		Imagen:        rev.Image,
		User:          rev.UserID,
		CreatedAt:     rev.CreatedAt,
	}
}

type productPayload struct {
	ID                int64           `json:"_id"`
	Nombre            string          `json:"nombre"`
	Precio            float64         `json:"precio"`
	Descripcion       string          `json:"descripcion"`
	Imagen            []model.Image   `json:"imagen"`
	Calificacion      float64         `json:"calificacion"`
	NumCalificaciones int             `json:"numCalificaciones"`
	Categoria         string          `json:"categoria"`
	Tallas            []int32         `json:"tallasDisponibles"`
	Vendedor          string          `json:"vendedor"`
	Inventario        int32           `json:"inventario"`
	Vendidos          int32           `json:"sold"`
	Opiniones         []reviewPayload `json:"opiniones,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func toProductPayload(p *model.Product) productPayload {
	return productPayload{
		ID:                p.ID,
		Nombre:            p.Name,
		Precio:            centsToPesos(p.PriceCents),
		Descripcion:       p.Description,
		Imagen:            p.Images,
		Calificacion:      p.Rating,
		NumCalificaciones: p.NumRatings,
		Categoria:         string(p.Category),
		Tallas:            p.Sizes,
		Vendedor:          p.Seller,
		Inventario:        p.Stock,
		Vendidos:          p.Sold,
		CreatedAt:         p.CreatedAt,
	}
}

type productRequest struct {
	Nombre      string        `json:"nombre"`
	Precio      float64       `json:"precio"`
	Descripcion string        `json:"descripcion"`
	Imagen      []model.Image `json:"imagen"`
	Categoria   string        `json:"categoria"`
	Tallas      []int32       `json:"tallasDisponibles"`
	Vendedor    string        `json:"vendedor"`
	Inventario  int32         `json:"inventario"`
}

func (req *productRequest) toModel() *model.Product {
	return &model.Product{
		Name:        req.Nombre,
		PriceCents:  pesosToCents(req.Precio),
		Description: req.Descripcion,
		Images:      req.Imagen,
		Category:    model.Category(req.Categoria),
		Sizes:       req.Tallas,
		Seller:      req.Vendedor,
		Stock:       req.Inventario,
	}
}

// listProducts handles GET /api/products.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r, 10)
	q := r.URL.Query()

	products, total, err := h.svc.ListProducts(r.Context(), repository.ProductFilter{
		Search:   q.Get("search"),
		Category: model.Category(q.Get("categoria")),
		Sort:     q.Get("sort"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	payload := make([]productPayload, 0, len(products))
	for i := range products {
		payload = append(payload, toProductPayload(&products[i]))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":    total,
		"page":     page,
		"pages":    totalPages(total, limit),
		"products": payload,
	})
}

// getProduct handles GET /api/products/{id}, returning the product together
// with its reviews.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	reviews, err := h.svc.ListReviews(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	payload := toProductPayload(p)
	payload.Opiniones = make([]reviewPayload, 0, len(reviews))
	for i := range reviews {
		payload.Opiniones = append(payload.Opiniones, toReviewPayload(&reviews[i]))
	}

	h.writeJSON(w, http.StatusOK, payload)
}

// createProduct handles POST /api/products (admin).
func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}

	var req productRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	p := req.toModel()
	p.CreatedBy = user.ID
	created, err := h.svc.CreateProduct(r.Context(), p)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toProductPayload(created))
}

// updateProduct handles PUT /api/products/{id} (admin).
func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	var req productRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	p := req.toModel()
	p.ID = id
	updated, err := h.svc.UpdateProduct(r.Context(), p)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toProductPayload(updated))
}

// deleteProduct handles DELETE /api/products/{id} (admin).
func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Producto eliminado correctamente"})
}

// addReview handles POST /api/products/{id}/reviews.
func (h *Handler) addReview(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Rating        int          `json:"rating"`
		Comentario    string       `json:"comentario"`
		ImagenCliente *model.Image `json:"imagenCliente"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	if _, err := h.svc.AddReview(r.Context(), user, id, req.Rating, req.Comentario, req.ImagenCliente); err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"message": "Opinión añadida correctamente"})
}

// deleteReview handles DELETE /api/products/{id}/reviews/{reviewId} (admin).
func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}
	reviewID, ok := h.urlID(w, r, "reviewId")
	if !ok {
		return
	}

	if err := h.svc.DeleteReview(r.Context(), id, reviewID); err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Opinión eliminada correctamente"})
}

// canReview handles GET /api/products/{id}/can-review.
func (h *Handler) canReview(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	can, err := h.svc.CanReview(r.Context(), user.ID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"canReview": can})
}
