package handler

import (
	"net/http"
	"time"

	"github.com/carmonterr/tejon/internal/model"
)

type bannerPayload struct {
	ID          int64       `json:"_id"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       model.Image `json:"image"`
	Link        string      `json:"link,omitempty"`
	Order       int32       `json:"order"`
	Align       string      `json:"align"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func toBannerPayload(b *model.Banner) bannerPayload {
	return bannerPayload{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Image:       b.Image,
		Link:        b.Link,
		Order:       b.Order,
		Align:       string(b.Align),
		CreatedAt:   b.CreatedAt,
	}
}

type bannerRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Image       model.Image `json:"image"`
	Link        string      `json:"link"`
	Order       int32       `json:"order"`
	Align       string      `json:"align"`
}

func (req *bannerRequest) toModel() *model.Banner {
	return &model.Banner{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Link:        req.Link,
		Order:       req.Order,
		Align:       model.BannerAlign(req.Align),
	}
}

// listBanners handles GET /api/banners.
func (h *Handler) listBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.svc.ListBanners(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	payload := make([]bannerPayload, 0, len(banners))
	for i := range banners {
		payload = append(payload, toBannerPayload(&banners[i]))
	}
	h.writeJSON(w, http.StatusOK, payload)
}

// createBanner handles POST /api/banners (admin).
func (h *Handler) createBanner(w http.ResponseWriter, r *http.Request) {
	var req bannerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	created, err := h.svc.CreateBanner(r.Context(), req.toModel())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Banner creado",
		"banner":  toBannerPayload(created),
	})
}

// updateBanner handles PUT /api/banners/{id} (admin).
func (h *Handler) updateBanner(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	var req bannerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	b := req.toModel()
	b.ID = id
	updated, err := h.svc.UpdateBanner(r.Context(), b)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Banner actualizado",
		"banner":  toBannerPayload(updated),
	})
}

// deleteBanner handles DELETE /api/banners/{id} (admin).
func (h *Handler) deleteBanner(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteBanner(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Banner eliminado correctamente"})
}
