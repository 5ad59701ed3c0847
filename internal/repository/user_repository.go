package repository

import (
	"context"
	"errors"
	"fmt"

	"eato/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const userColumns = `id, first_name, middle_name, last_name, email, contact_no, address, password_hash, role, created_at`

// userRepository implements the UserRepository interface using PostgreSQL.
type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *userRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.MiddleName,
		&u.LastName,
		&u.Email,
		&u.ContactNo,
		&u.Address,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// uniqueError maps a users uniqueness violation to its domain error.
func uniqueError(err error) error {
	constraint, ok := uniqueConstraint(err)
	if !ok {
		return nil
	}
	switch constraint {
	case "users_email_key":
		return model.ErrEmailExists
	case "users_contact_no_key":
		return model.ErrContactExists
	}
	return nil
}

// Create inserts an account and fills its id and creation time.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (first_name, middle_name, last_name, email, contact_no, address, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.Email,
		user.ContactNo,
		user.Address,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if domainErr := uniqueError(err); domainErr != nil {
			r.logger.Warn().Str("email", user.Email).Err(domainErr).Msg("duplicate account")
			return domainErr
		}
		r.logger.Error().Err(err).Str("email", user.Email).Msg("failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) getOne(ctx context.Context, q querier, query string, arg any) (*model.User, error) {
	user, err := scanUser(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("lookup", arg).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// GetByID returns an account or nil.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns an account or nil.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByContactNo returns an account or nil.
func (r *userRepository) GetByContactNo(ctx context.Context, contactNo string) (*model.User, error) {
	return r.getOne(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE contact_no = $1`, contactNo)
}

// GetForUpdate locks an account row.
func (r *userRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.User, error) {
	return r.getOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

// ExistsByEmail reports whether another account uses email.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, excludeID)
}

// ExistsByContactNo reports whether another account uses contactNo.
func (r *userRepository) ExistsByContactNo(ctx context.Context, contactNo string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE contact_no = $1 AND id <> $2)`, contactNo, excludeID)
}

func (r *userRepository) exists(ctx context.Context, query, value string, excludeID int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, query, value, excludeID).Scan(&exists); err != nil {
		r.logger.Error().Err(err).Msg("failed to check user uniqueness")
		return false, fmt.Errorf("failed to check user uniqueness: %w", err)
	}
	return exists, nil
}

// Update writes every mutable field of an account.
func (r *userRepository) Update(ctx context.Context, tx pgx.Tx, user *model.User) error {
	query := `
		UPDATE users
		SET first_name = $2, middle_name = $3, last_name = $4, email = $5,
		    contact_no = $6, address = $7, password_hash = $8
		WHERE id = $1
	`

	_, err := tx.Exec(ctx, query,
		user.ID,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.Email,
		user.ContactNo,
		user.Address,
		user.PasswordHash,
	)
	if err != nil {
		if domainErr := uniqueError(err); domainErr != nil {
			return domainErr
		}
		r.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update user")
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// Delete removes an account.
func (r *userRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", id).Msg("failed to delete user")
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns all accounts ordered by id.
func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query users")
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan user row")
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating user rows")
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
