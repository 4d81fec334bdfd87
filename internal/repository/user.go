package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carmonterr/tejon/internal/model"
)

const userColumns = `id, name, email, password_hash, is_admin, is_verified,
	verification_code, verification_code_expires,
	login_attempts, login_last_attempt, login_blocked_until,
	reset_token_hash, reset_token_expires, reset_attempts, reset_last_attempt,
	phone, address, city, country, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsVerified,
		&u.VerificationCode, &u.VerificationCodeExpires,
		&u.LoginAttempts, &u.LoginLastAttempt, &u.LoginBlockedUntil,
		&u.ResetTokenHash, &u.ResetTokenExpires, &u.ResetAttempts, &u.ResetLastAttempt,
		&u.Phone, &u.ShippingAddress.Address, &u.ShippingAddress.City, &u.ShippingAddress.Country,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new unverified account.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, is_verified, verification_code, verification_code_expires)
		 VALUES ($1, $2, $3, FALSE, $4, $5)
		 RETURNING id`,
		u.Name, u.Email, u.PasswordHash, u.VerificationCode, u.VerificationCodeExpires,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrEmailTaken, u.Email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail returns the account with the given email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetUserByID returns the account with the given id.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// MarkVerified flags the account verified and clears the one-time code.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET is_verified = TRUE, verification_code = NULL, verification_code_expires = NULL, updated_at = now()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// UpdateLoginThrottle persists the login attempt counters for one account.
func (r *PostgresRepository) UpdateLoginThrottle(ctx context.Context, id int64, attempts int, lastAttempt, blockedUntil *time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET login_attempts = $2, login_last_attempt = $3, login_blocked_until = $4, updated_at = now()
		 WHERE id = $1`,
		id, attempts, lastAttempt, blockedUntil)
	if err != nil {
		return fmt.Errorf("update login throttle: %w", err)
	}
	return nil
}

// UpdateResetRequest stores the daily reset counter together with the freshly
// issued token hash, replacing any previously issued token.
func (r *PostgresRepository) UpdateResetRequest(ctx context.Context, id int64, attempts int, lastAttempt time.Time, tokenHash string, expires time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET reset_attempts = $2, reset_last_attempt = $3, reset_token_hash = $4, reset_token_expires = $5, updated_at = now()
		 WHERE id = $1`,
		id, attempts, lastAttempt, tokenHash, expires)
	if err != nil {
		return fmt.Errorf("update reset request: %w", err)
	}
	return nil
}

// GetUserByResetToken returns the account holding a non-expired reset token.
func (r *PostgresRepository) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE reset_token_hash = $1 AND reset_token_expires > $2`,
		tokenHash, now))
}

// UpdatePassword replaces the credential and clears the reset token state.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET password_hash = $2, reset_token_hash = NULL, reset_token_expires = NULL, updated_at = now()
		 WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateShippingProfile stores the phone and shipping address of the account.
func (r *PostgresRepository) UpdateShippingProfile(ctx context.Context, id int64, phone string, addr model.ShippingAddress) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET phone = $2, address = $3, city = $4, country = $5, updated_at = now()
		 WHERE id = $1`,
		id, phone, addr.Address, addr.City, addr.Country)
	if err != nil {
		return fmt.Errorf("update shipping profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUser applies a partial admin edit; nil fields keep their value.
func (r *PostgresRepository) UpdateUser(ctx context.Context, id int64, name, email *string, isAdmin *bool) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`UPDATE users
		 SET name = COALESCE($2, name),
		     email = COALESCE($3, email),
		     is_admin = COALESCE($4, is_admin),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, name, email, isAdmin))
}

// DeleteUser removes an account.
func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers returns one page of accounts matching the name/email search plus
// the total match count.
func (r *PostgresRepository) ListUsers(ctx context.Context, search string, limit, offset int) ([]model.User, int64, error) {
	pattern := "%" + search + "%"

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE name ILIKE $1 OR email ILIKE $1`, pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE name ILIKE $1 OR email ILIKE $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return users, total, nil
}

// CountUsers returns the total number of accounts.
func (r *PostgresRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// FindUserIDsByNameOrEmail resolves the candidate owner ids for the admin
// order search (first phase of the two-phase lookup).
func (r *PostgresRepository) FindUserIDsByNameOrEmail(ctx context.Context, query string) ([]int64, error) {
	pattern := "%" + query + "%"

	rows, err := r.pool.Query(ctx,
		`SELECT id FROM users WHERE name ILIKE $1 OR email ILIKE $1`, pattern)
	if err != nil {
		return nil, fmt.Errorf("select user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

// DeleteExpiredUnverified removes unverified accounts created before the
// grace cutoff or whose verification code already expired.
func (r *PostgresRepository) DeleteExpiredUnverified(ctx context.Context, createdBefore, now time.Time) (int64, error) {
	var deleted int64
	err := r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM users
			 WHERE NOT is_verified
			   AND (created_at < $1 OR verification_code_expires < $2)`,
			createdBefore, now)
		if err != nil {
			return fmt.Errorf("delete unverified: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}
