// Package middleware contains the HTTP middleware of the Tejon API.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carmonterr/tejon/internal/model"
)

type contextKey string

const userKey contextKey = "user"

const tokenTTL = 30 * 24 * time.Hour

// UserStore resolves the account behind a token. The user is re-fetched on
// every request so role and verification changes take effect immediately.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthMiddleware authenticates requests via a bearer JWT.
type AuthMiddleware struct {
	secretKey []byte
	users     UserStore
}

// NewAuthMiddleware creates an AuthMiddleware with the given signing secret.
// An empty secret is replaced by a random one, which invalidates tokens on
// restart but never leaves the service unsigned.
func NewAuthMiddleware(secret string, users UserStore) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}

	return &AuthMiddleware{
		secretKey: key,
		users:     users,
	}
}

// GenerateToken issues a signed token for the given user id.
func (a *AuthMiddleware) GenerateToken(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secretKey)
}

// Authenticate validates the Authorization header, loads the account and
// stores it in the request context.
func (a *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "No autorizado, token faltante", "UNAUTHORIZED")
			return
		}

		userID, ok := a.parseToken(strings.TrimPrefix(header, "Bearer "))
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "Token no válido", "UNAUTHORIZED")
			return
		}

		user, err := a.users.GetUserByID(r.Context(), userID)
		if err != nil || user == nil {
			writeAuthError(w, http.StatusUnauthorized, "Usuario no encontrado", "UNAUTHORIZED")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests whose account lacks the administrator flag.
// Must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAdmin {
			writeAuthError(w, http.StatusForbidden, "Acceso denegado. No eres administrador.", "FORBIDDEN")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *AuthMiddleware) parseToken(raw string) (int64, bool) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secretKey, nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// UserFromContext extracts the authenticated account from the request context.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message": message,
		"code":    code,
		"errors":  nil,
	})
}
