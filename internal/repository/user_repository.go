package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/examportal/exam-portal-api/internal/models"
)

// UserRepository manages persistence for accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername fetches one account. Returns sql.ErrNoRows when absent.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	const query = `SELECT username, password_hash, name, role, created_at, updated_at
        FROM accounts WHERE username = $1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, username); err != nil {
		return nil, err
	}
	return &account, nil
}

// List returns every account ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT username, password_hash, name, role, created_at, updated_at
        FROM accounts ORDER BY username ASC`
	var accounts []models.Account
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// Upsert inserts the account or replaces the row with the same username.
func (r *UserRepository) Upsert(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	const query = `INSERT INTO accounts (username, password_hash, name, role, created_at, updated_at)
        VALUES (:username, :password_hash, :name, :role, :created_at, :updated_at)
        ON CONFLICT (username) DO UPDATE SET
            password_hash = EXCLUDED.password_hash,
            name = EXCLUDED.name,
            role = EXCLUDED.role,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}
