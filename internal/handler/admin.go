package handler

import (
	"net/http"
	"time"
)

// userCount handles GET /api/admin/users/count.
func (h *Handler) userCount(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"totalUsers": sum.Users})
}

// orderSummary handles GET /api/admin/orders/summary. Without a date range it
// reports the global counters; with ?from and ?to it reports the range.
func (h *Handler) orderSummary(w http.ResponseWriter, r *http.Request) {
	from, to := queryDate(r, "from"), queryDate(r, "to")

	if from == nil && to == nil {
		sum, err := h.svc.Dashboard(r.Context())
		if err != nil {
			h.respondError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{
			"totalPedidos": sum.Orders,
			"totalVentas":  centsToPesos(sum.RevenueCents),
		})
		return
	}

	count, totalCents, err := h.svc.OrderStats(r.Context(), from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"totalPedidos": count,
		"totalVentas":  centsToPesos(totalCents),
	})
}

// productSummary handles GET /api/admin/products/summary.
func (h *Handler) productSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{
		"totalProducts": sum.Products,
		"outOfStock":    sum.OutOfStock,
	})
}

// salesByDate handles GET /api/admin/ventas/por-fecha. ?tipo=mes buckets by
// month, anything else by day.
func (h *Handler) salesByDate(w http.ResponseWriter, r *http.Request) {
	byMonth := r.URL.Query().Get("tipo") == "mes"

	buckets, err := h.svc.SalesByDate(r.Context(), queryDate(r, "from"), queryDate(r, "to"), byMonth)
	if err != nil {
		h.respondError(w, err)
		return
	}

	type bucketPayload struct {
		Fecha       string  `json:"fecha"`
		TotalVentas float64 `json:"totalVentas"`
	}
	payload := make([]bucketPayload, 0, len(buckets))
	for _, b := range buckets {
		payload = append(payload, bucketPayload{Fecha: b.Date, TotalVentas: centsToPesos(b.TotalCents)})
	}
	h.writeJSON(w, http.StatusOK, payload)
}

// uploadSignature handles POST /api/cloudinary/signature (admin).
func (h *Handler) uploadSignature(w http.ResponseWriter, r *http.Request) {
	if !h.uploads.Configured() {
		h.respondError(w, errUploadsNotConfigured)
		return
	}

	var req struct {
		Folder string `json:"folder"`
	}
	// The body is optional; a missing folder falls back to the default.
	_ = decodeOptional(r, &req)
	if req.Folder == "" {
		req.Folder = "tejon"
	}

	h.writeJSON(w, http.StatusOK, h.uploads.NewUploadSignature(req.Folder, time.Now()))
}
