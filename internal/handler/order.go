package handler

import (
	"net/http"
	"time"

	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/service"
)

type orderItemPayload struct {
	Product int64   `json:"product"`
	Name    string  `json:"name"`
	Qty     int32   `json:"qty"`
	Talla   *int32  `json:"talla,omitempty"`
	Image   string  `json:"image,omitempty"`
	Price   float64 `json:"price"`
}

type shippingPayload struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

type orderPayload struct {
	ID              int64              `json:"_id"`
	User            any                `json:"user"`
	OrderItems      []orderItemPayload `json:"orderItems"`
	ShippingAddress shippingPayload    `json:"shippingAddress"`
	ShippingPrice   float64            `json:"shippingPrice"`
	TotalPrice      float64            `json:"totalPrice"`
	IsPaid          bool               `json:"isPaid"`
	PaidAt          *time.Time         `json:"paidAt,omitempty"`
	IsDelivered     bool               `json:"isDelivered"`
	DeliveredAt     *time.Time         `json:"deliveredAt,omitempty"`
	DeliveryStatus  string             `json:"deliveryStatus"`
	CreatedAt       time.Time          `json:"createdAt"`
}

func toOrderPayload(o *model.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemPayload{
			Product: item.ProductID,
			Name:    item.Name,
			Qty:     item.Qty,
			Talla:   item.Size,
			Image:   item.Image,
			Price:   centsToPesos(item.PriceCents),
		})
	}

	return orderPayload{
		ID:         o.ID,
		User:       o.UserID,
		OrderItems: items,
		ShippingAddress: shippingPayload{
			Address: o.Shipping.Address,
			City:    o.Shipping.City,
			Country: o.Shipping.Country,
			Phone:   o.Shipping.Phone,
		},
		ShippingPrice:  centsToPesos(o.ShippingCents),
		TotalPrice:     centsToPesos(o.TotalCents),
		IsPaid:         o.IsPaid,
		PaidAt:         o.PaidAt,
		IsDelivered:    o.IsDelivered,
		DeliveredAt:    o.DeliveredAt,
		DeliveryStatus: string(o.DeliveryStatus),
		CreatedAt:      o.CreatedAt,
	}
}

// toAdminOrderPayload embeds the owning account's identity in the user field,
// the shape the admin console expects.
func toAdminOrderPayload(o *model.AdminOrder) orderPayload {
	payload := toOrderPayload(&o.Order)
	payload.User = map[string]any{
		"_id":   o.UserID,
		"name":  o.UserName,
		"email": o.UserEmail,
	}
	return payload
}

// createOrder handles POST /api/orders.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}

	var req struct {
		OrderItems    []orderItemPayload `json:"orderItems"`
		ShippingPrice float64            `json:"shippingPrice"`
		TotalPrice    float64            `json:"totalPrice"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	items := make([]model.OrderItem, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		items = append(items, model.OrderItem{
			ProductID:  item.Product,
			Name:       item.Name,
			Qty:        item.Qty,
			Size:       item.Talla,
			Image:      item.Image,
			PriceCents: pesosToCents(item.Price),
		})
	}

	o, err := h.svc.CreateOrder(r.Context(), user, items, pesosToCents(req.ShippingPrice), pesosToCents(req.TotalPrice))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderPayload(o))
}

// myOrders handles GET /api/orders/mine.
func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}

	orders, err := h.svc.MyOrders(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for i := range orders {
		payload = append(payload, toOrderPayload(&orders[i]))
	}
	h.writeJSON(w, http.StatusOK, payload)
}

// getOrder handles GET /api/orders/{id}.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.svc.GetOrder(r.Context(), user, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderPayload(o))
}

// orderTransition returns a handler for one admin order state transition. The
// response wraps the refreshed order together with a confirmation message.
func (h *Handler) orderTransition(message string, apply func(*http.Request, int64) (*model.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.urlID(w, r, "id")
		if !ok {
			return
		}

		o, err := apply(r, id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{
			"message": message,
			"order":   toOrderPayload(o),
		})
	}
}

// deleteOrder handles DELETE /api/orders/{id} (admin).
func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Pedido eliminado correctamente"})
}

// searchOrders handles GET /api/orders (admin).
func (h *Handler) searchOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r, 10)
	q := r.URL.Query()

	orders, total, revenueCents, err := h.svc.SearchOrders(r.Context(), service.OrderSearchParams{
		Query:  q.Get("search"),
		Status: q.Get("estado"),
		From:   queryDate(r, "from"),
		To:     queryDate(r, "to"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for i := range orders {
		payload = append(payload, toAdminOrderPayload(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"orders":      payload,
		"page":        page,
		"pages":       totalPages(total, limit),
		"total":       total,
		"totalVentas": centsToPesos(revenueCents),
	})
}
