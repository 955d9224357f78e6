package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/corvael/provision-api/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implements user.Repository using PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user account. The unique index on email is the
// backstop against concurrent duplicate creation.
func (r *UserRepository) Create(ctx context.Context, a *user.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, first_name, last_name, company, company_size,
		                    paid_registration, provisioned_by, password_hash, email_confirmed,
		                    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.Email, a.FirstName, a.LastName, a.Company, a.CompanySize,
		a.PaidRegistration, a.ProvisionedBy, a.PasswordHash, a.EmailConfirmed,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByEmail retrieves an account by email. Returns (nil, nil) when absent.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.Account, error) {
	a := &user.Account{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, first_name, last_name, company, company_size,
		        paid_registration, provisioned_by, password_hash, email_confirmed,
		        created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Company, &a.CompanySize,
		&a.PaidRegistration, &a.ProvisionedBy, &a.PasswordHash, &a.EmailConfirmed,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return a, nil
}

// Update persists the mutable registration fields of an existing account.
func (r *UserRepository) Update(ctx context.Context, a *user.Account) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET first_name = $1, last_name = $2, company = $3, company_size = $4,
		     paid_registration = $5, provisioned_by = $6, updated_at = $7
		 WHERE id = $8`,
		a.FirstName, a.LastName, a.Company, a.CompanySize,
		a.PaidRegistration, a.ProvisionedBy, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Delete removes an account by id.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
