// Package validation contains input validation helpers.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/carmonterr/tejon/internal/apperr"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether the string looks like an email address.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// Registration checks the register request fields and returns one entry per
// invalid field so the client can highlight them individually.
func Registration(name, email, password string) []apperr.FieldError {
	var errs []apperr.FieldError
	if strings.TrimSpace(name) == "" {
		errs = append(errs, apperr.FieldError{Field: "name", Message: "El nombre es obligatorio"})
	}
	if !IsValidEmail(email) {
		errs = append(errs, apperr.FieldError{Field: "email", Message: "Debe ser un correo válido"})
	}
	if len(password) < MinPasswordLength {
		errs = append(errs, apperr.FieldError{Field: "password", Message: "La contraseña debe tener al menos 6 caracteres"})
	}
	return errs
}

// Fold strips diacritics from the text so that admin searches match
// accent-insensitively ("tránsito" == "transito").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
