package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/staybridge/booking-confirmation/internal/models"
)

// ErrCustomerExists is returned when a customer with the same email was
// inserted concurrently
var ErrCustomerExists = errors.New("customer with this email already exists")

const customerColumns = `
	id, email, first_name, last_name, phone, password_hash,
	roles, email_verified_at, created_at, updated_at`

// CustomerRepository handles customer identity operations
type CustomerRepository struct {
	db DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetCustomerByEmail retrieves a customer by email (case-insensitive).
// Returns nil, nil when no customer exists.
func (r *CustomerRepository) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer

	query := `SELECT` + customerColumns + `
		FROM customers
		WHERE lower(email) = lower($1)`

	err := r.db.GetContext(ctx, &customer, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get customer by email: %w", err)
	}

	return &customer, nil
}

// CreateCustomer inserts a new customer. ID and timestamps are filled in when unset.
// A unique violation on email yields ErrCustomerExists.
func (r *CustomerRepository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	now := time.Now()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	if len(customer.Roles) == 0 {
		customer.Roles = pq.StringArray{models.RoleCustomer}
	}

	query := `
		INSERT INTO customers (
			id, email, first_name, last_name, phone, password_hash,
			roles, email_verified_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.Email,
		customer.FirstName,
		customer.LastName,
		customer.Phone,
		customer.PasswordHash,
		pq.Array([]string(customer.Roles)),
		customer.EmailVerifiedAt,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrCustomerExists
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}
