package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/carmonterr/tejon/internal/apperr"
	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/repository"
	"github.com/carmonterr/tejon/internal/throttle"
	"github.com/carmonterr/tejon/internal/validation"
)

const (
	verificationCodeTTL = time.Hour
	resetTokenTTL       = 40 * time.Minute
)

// randomCode returns a 6-digit verification code.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// randomToken returns a 64-hex-char reset token.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Register creates an unverified account and mails the verification code.
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	if fields := validation.Registration(name, email, password); len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := randomCode()
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(verificationCodeTTL)

	u := &model.User{
		Name:                    name,
		Email:                   email,
		PasswordHash:            hash,
		VerificationCode:        &code,
		VerificationCodeExpires: &expires,
	}
	id, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, errEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.ID = id

	body := fmt.Sprintf(
		"Hola %s,\n\nTu código de verificación es: %s\n\nEste código expira en 1 hora.\n\nEquipo Tejon",
		name, code)
	if err := s.mailer.Send(email, "Verifica tu cuenta en Tejon", body); err != nil {
		return nil, fmt.Errorf("send verification mail: %w", err)
	}

	s.logger.Info("user registered", zap.Int64("userID", id))
	return u, nil
}

// VerifyEmail checks the mailed code and activates the account.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	if u.IsVerified {
		return errAlreadyVerified
	}
	if u.VerificationCode == nil || *u.VerificationCode != code {
		return errInvalidCode
	}
	if u.VerificationCodeExpires == nil || u.VerificationCodeExpires.Before(s.now()) {
		return errCodeExpired
	}

	if err := s.repo.MarkVerified(ctx, u.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	s.logger.Info("account verified", zap.Int64("userID", u.ID))
	return nil
}

// Login authenticates the account, enforcing verification and the failed
// attempt lockout. On success the throttle counters are cleared.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !u.IsVerified {
		return nil, errAccountNotVerified
	}

	now := s.now()
	state := throttle.LoginState{
		Attempts:     u.LoginAttempts,
		LastAttempt:  u.LoginLastAttempt,
		BlockedUntil: u.LoginBlockedUntil,
	}
	if state.Locked(now) {
		return nil, errLoginBlocked.WithDetails(map[string]any{"blockedUntil": *state.BlockedUntil})
	}

	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		state = state.Fail(now)
		if err := s.repo.UpdateLoginThrottle(ctx, u.ID, state.Attempts, state.LastAttempt, state.BlockedUntil); err != nil {
			return nil, fmt.Errorf("update login throttle: %w", err)
		}
		if state.Locked(now) {
			s.logger.Warn("account locked out", zap.Int64("userID", u.ID))
			return nil, errLoginBlocked.WithDetails(map[string]any{"blockedUntil": *state.BlockedUntil})
		}
		return nil, errInvalidCredentials
	}

	if state.Attempts > 0 || state.BlockedUntil != nil {
		state = state.Reset()
		if err := s.repo.UpdateLoginThrottle(ctx, u.ID, state.Attempts, state.LastAttempt, state.BlockedUntil); err != nil {
			return nil, fmt.Errorf("reset login throttle: %w", err)
		}
	}

	return u, nil
}

// ForgotPassword issues a reset token and mails the reset link. Requests are
// capped per account per calendar day.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errEmailNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	now := s.now()
	state := throttle.ResetState{Attempts: u.ResetAttempts, LastAttempt: u.ResetLastAttempt}
	state, ok := state.Register(now)
	if !ok {
		return errResetAttemptsExceeded.WithDetails(map[string]any{
			"attemptsUsed": u.ResetAttempts,
			"maxAttempts":  throttle.MaxResetPerDay,
		})
	}

	raw, err := randomToken()
	if err != nil {
		return err
	}
	expires := now.Add(resetTokenTTL)
	if err := s.repo.UpdateResetRequest(ctx, u.ID, state.Attempts, *state.LastAttempt, hashToken(raw), expires); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.clientURL, raw)
	body := fmt.Sprintf(
		"Hola %s,\n\nPara restablecer tu contraseña visita:\n%s\n\nEl enlace expira en 40 minutos. Si no solicitaste este cambio, ignora este correo.\n\nEquipo Tejon",
		u.Name, link)
	if err := s.mailer.Send(email, "Recupera tu contraseña de Tejon", body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}

	s.logger.Info("reset token issued", zap.Int64("userID", u.ID))
	return nil
}

// ResetPassword redeems a reset token and replaces the credential. The token
// is single-use: the hash is cleared together with the password update.
func (s *Service) ResetPassword(ctx context.Context, rawToken, password string) error {
	if len(password) < validation.MinPasswordLength {
		return apperr.Validation([]apperr.FieldError{{
			Field:   "password",
			Message: fmt.Sprintf("La contraseña debe tener al menos %d caracteres", validation.MinPasswordLength),
		}})
	}

	u, err := s.repo.GetUserByResetToken(ctx, hashToken(rawToken), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errInvalidResetToken
		}
		return fmt.Errorf("get user by token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password reset", zap.Int64("userID", u.ID))
	return nil
}
