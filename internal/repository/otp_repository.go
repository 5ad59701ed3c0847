package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eato/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// otpRepository implements the OTPRepository interface using PostgreSQL.
type otpRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOTPRepository creates a new PostgreSQL-backed OTP repository.
func NewOTPRepository(pool *pgxpool.Pool, logger zerolog.Logger) OTPRepository {
	return &otpRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "otp").Logger(),
	}
}

// Upsert stores a fresh code, resetting attempts and verification.
func (r *otpRepository) Upsert(ctx context.Context, otp *model.OTP) error {
	query := `
		INSERT INTO otp (email, action, code_hash, expires_at, attempts, verified, created_at)
		VALUES ($1, $2, $3, $4, 0, FALSE, $5)
		ON CONFLICT (email) DO UPDATE
		SET action = EXCLUDED.action,
		    code_hash = EXCLUDED.code_hash,
		    expires_at = EXCLUDED.expires_at,
		    attempts = 0,
		    verified = FALSE,
		    created_at = EXCLUDED.created_at
	`

	_, err := r.pool.Exec(ctx, query, otp.Email, otp.Action, otp.CodeHash, otp.ExpiresAt, otp.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("email", otp.Email).Msg("failed to store otp")
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

// Get returns the stored code for an email or nil.
func (r *otpRepository) Get(ctx context.Context, email string) (*model.OTP, error) {
	query := `
		SELECT email, action, code_hash, expires_at, attempts, verified, created_at
		FROM otp
		WHERE email = $1
	`

	var o model.OTP
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&o.Email,
		&o.Action,
		&o.CodeHash,
		&o.ExpiresAt,
		&o.Attempts,
		&o.Verified,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("email", email).Msg("failed to query otp")
		return nil, fmt.Errorf("failed to query otp: %w", err)
	}
	return &o, nil
}

// ClaimAttempt spends one verification attempt on a code that is unexpired
// at now and returns the row as it stands afterwards. Nil means no such code
// has attempts left.
func (r *otpRepository) ClaimAttempt(ctx context.Context, email string, maxAttempts int, now time.Time) (*model.OTP, error) {
	query := `
		UPDATE otp
		SET attempts = attempts + 1
		WHERE email = $1 AND attempts < $2 AND expires_at > $3
		RETURNING email, action, code_hash, expires_at, attempts, verified, created_at
	`

	var o model.OTP
	err := r.pool.QueryRow(ctx, query, email, maxAttempts, now).Scan(
		&o.Email,
		&o.Action,
		&o.CodeHash,
		&o.ExpiresAt,
		&o.Attempts,
		&o.Verified,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("email", email).Msg("failed to claim otp attempt")
		return nil, fmt.Errorf("failed to claim otp attempt: %w", err)
	}
	return &o, nil
}

// MarkVerified flags the code as verified.
func (r *otpRepository) MarkVerified(ctx context.Context, email string) error {
	if _, err := r.pool.Exec(ctx, "UPDATE otp SET verified = TRUE WHERE email = $1", email); err != nil {
		r.logger.Error().Err(err).Str("email", email).Msg("failed to mark otp verified")
		return fmt.Errorf("failed to mark otp verified: %w", err)
	}
	return nil
}

// Delete removes the code for an email.
func (r *otpRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM otp WHERE email = $1", email); err != nil {
		r.logger.Error().Err(err).Str("email", email).Msg("failed to delete otp")
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

// DeleteExpired removes every code that expired before now.
func (r *otpRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM otp WHERE expires_at < $1", now)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to delete expired otps")
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	return tag.RowsAffected(), nil
}
