package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/database"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// CustomerStore is the identity store used by AccountResolver
type CustomerStore interface {
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
}

// AccountResolver finds or creates the local customer behind a booking
type AccountResolver struct {
	customers  CustomerStore
	bcryptCost int
	now        func() time.Time
	logger     *logrus.Logger
}

// NewAccountResolver creates an account resolver
func NewAccountResolver(customers CustomerStore, bcryptCost int, logger *logrus.Logger) *AccountResolver {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountResolver{
		customers:  customers,
		bcryptCost: bcryptCost,
		now:        time.Now,
		logger:     logger,
	}
}

// ResolveCustomer returns the customer owning guest.Email, creating one if needed.
//
// New customers get a verified email (the supplier already validated the
// contact during purchase) and a bcrypt hash of a random secret nobody
// holds. Losing a concurrent create race is resolved by re-reading.
func (r *AccountResolver) ResolveCustomer(ctx context.Context, guest *models.GuestInfo) (*models.Customer, error) {
	existing, err := r.customers.GetCustomerByEmail(ctx, guest.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	hash, err := placeholderPasswordHash(r.bcryptCost)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		Email:        guest.Email,
		FirstName:    guest.FirstName,
		LastName:     guest.LastName,
		Phone:        models.NewNullString(guest.Phone),
		PasswordHash: hash,
		Roles:        []string{models.RoleCustomer},
		EmailVerifiedAt: models.NullTime{NullTime: sql.NullTime{
			Time:  r.now(),
			Valid: true,
		}},
	}

	err = r.customers.CreateCustomer(ctx, customer)
	if errors.Is(err, database.ErrCustomerExists) {
		r.logger.WithField("email", guest.Email).Info("Customer created concurrently, re-fetching")
		winner, getErr := r.customers.GetCustomerByEmail(ctx, guest.Email)
		if getErr != nil {
			return nil, fmt.Errorf("failed to re-fetch customer: %w", getErr)
		}
		if winner == nil {
			return nil, fmt.Errorf("customer %s reported as existing but not found", guest.Email)
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"customer_id": customer.ID,
		"email":       customer.Email,
	}).Info("Customer created for booking")

	return customer, nil
}

func placeholderPasswordHash(cost int) (string, error) {
	secret, err := utils.GenerateSecret(32)
	if err != nil {
		return "", err
	}
	// bcrypt only reads the first 72 bytes; 64 hex chars fit.
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash placeholder credential: %w", err)
	}
	return string(hash), nil
}
