package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/staybridge/booking-confirmation/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func guest() *models.GuestInfo {
	return &models.GuestInfo{FirstName: "Ada", LastName: "Lind", Email: "ada@example.com", Phone: "+4712345678"}
}

func TestResolveCustomer_CreatesVerifiedCustomer(t *testing.T) {
	store := newMemoryCustomerStore()
	resolver := NewAccountResolver(store, bcrypt.MinCost, quietLogger())

	customer, err := resolver.ResolveCustomer(context.Background(), guest())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, customer.ID)
	assert.Equal(t, "ada@example.com", customer.Email)
	assert.True(t, customer.EmailVerifiedAt.Valid)
	assert.True(t, customer.HasRole(models.RoleCustomer))
	assert.Equal(t, "+4712345678", customer.Phone.String)

	cost, err := bcrypt.Cost([]byte(customer.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestResolveCustomer_ReturnsExisting(t *testing.T) {
	store := newMemoryCustomerStore()
	existing := &models.Customer{ID: uuid.New(), Email: "ada@example.com"}
	store.customers[existing.Email] = existing
	resolver := NewAccountResolver(store, bcrypt.MinCost, quietLogger())

	customer, err := resolver.ResolveCustomer(context.Background(), guest())
	require.NoError(t, err)

	assert.Equal(t, existing.ID, customer.ID)
	assert.Zero(t, store.createCalls)
}

func TestResolveCustomer_LostCreateRaceRefetches(t *testing.T) {
	store := newMemoryCustomerStore()
	winner := &models.Customer{ID: uuid.New(), Email: "ada@example.com"}
	store.raceWinner = winner
	resolver := NewAccountResolver(store, bcrypt.MinCost, quietLogger())

	customer, err := resolver.ResolveCustomer(context.Background(), guest())
	require.NoError(t, err)

	assert.Equal(t, winner.ID, customer.ID)
	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 2, store.getCalls)
}

func TestResolveCustomer_StoreError(t *testing.T) {
	store := newMemoryCustomerStore()
	store.getErr = errStoreDown
	resolver := NewAccountResolver(store, bcrypt.MinCost, quietLogger())

	_, err := resolver.ResolveCustomer(context.Background(), guest())
	assert.ErrorIs(t, err, errStoreDown)
}

func TestNewAccountResolver_InvalidCostFallsBack(t *testing.T) {
	resolver := NewAccountResolver(newMemoryCustomerStore(), 99, quietLogger())
	assert.Equal(t, bcrypt.DefaultCost, resolver.bcryptCost)
}
