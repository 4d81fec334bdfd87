package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carmonterr/tejon/internal/model"
)

type shippingAddressPayload struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type userPayload struct {
	ID              int64                  `json:"_id"`
	Name            string                 `json:"name"`
	Email           string                 `json:"email"`
	IsAdmin         bool                   `json:"isAdmin"`
	IsVerified      bool                   `json:"isVerified"`
	Phone           string                 `json:"phone,omitempty"`
	ShippingAddress shippingAddressPayload `json:"shippingAddress"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func toUserPayload(u *model.User) userPayload {
	return userPayload{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
		IsVerified: u.IsVerified,
		Phone:      u.Phone,
		ShippingAddress: shippingAddressPayload{
			Address: u.ShippingAddress.Address,
			City:    u.ShippingAddress.City,
			Country: u.ShippingAddress.Country,
		},
		CreatedAt: u.CreatedAt,
	}
}

// authPayload is the login response: the identity the client stores together
// with the bearer token.
type authPayload struct {
	ID      int64  `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}

// register handles POST /api/users/register.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registro exitoso. Revisa tu correo para verificar tu cuenta.",
		"userId":  u.ID,
	})
}

// verifyEmail handles POST /api/users/verify-email.
func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Tu cuenta ha sido verificada correctamente.",
	})
}

// login handles POST /api/users/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}

	token, err := h.auth.GenerateToken(user.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, authPayload{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		Token:   token,
	})
}

// forgotPassword handles POST /api/users/forgot-password.
func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Correo de recuperación enviado correctamente. Revisa tu bandeja de entrada.",
	})
}

// resetPassword handles POST /api/users/reset-password/{token}.
func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	token := chi.URLParam(r, "token")
	if err := h.svc.ResetPassword(r.Context(), token, req.Password); err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Contraseña actualizada correctamente. Ya puedes iniciar sesión.",
	})
}

// profile handles GET /api/users/profile.
func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, toUserPayload(user))
}

// updateProfile handles PATCH /api/users/profile.
func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Phone   string `json:"phone"`
		Address string `json:"address"`
		City    string `json:"city"`
		Country string `json:"country"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	updated, err := h.svc.UpdateShippingProfile(r.Context(), user.ID, req.Phone, model.ShippingAddress{
		Address: req.Address,
		City:    req.City,
		Country: req.Country,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Perfil actualizado correctamente.",
		"user":    toUserPayload(updated),
	})
}

// listUsers handles GET /api/users (admin).
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r, 5)
	search := r.URL.Query().Get("search")

	users, total, err := h.svc.ListUsers(r.Context(), search, limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}

	payload := make([]userPayload, 0, len(users))
	for i := range users {
		payload = append(payload, toUserPayload(&users[i]))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"users": payload,
		"page":  page,
		"pages": totalPages(total, limit),
	})
}

// updateUser handles PUT /api/users/{id} (admin).
func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Name    *string `json:"name"`
		Email   *string `json:"email"`
		IsAdmin *bool   `json:"isAdmin"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	updated, err := h.svc.UpdateUser(r.Context(), id, req.Name, req.Email, req.IsAdmin)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"_id":     updated.ID,
		"name":    updated.Name,
		"email":   updated.Email,
		"isAdmin": updated.IsAdmin,
		"message": "Usuario actualizado correctamente.",
	})
}

// deleteUser handles DELETE /api/users/{id} (admin).
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.authedUser(w, r)
	if !ok {
		return
	}
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(r.Context(), admin.ID, id); err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Usuario eliminado correctamente."})
}
