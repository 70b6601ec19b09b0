package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/staybridge/booking-confirmation/internal/database"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rateLimitNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupRateLimitTest(t *testing.T, config RateLimitConfig) (*RateLimitService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	service := NewRateLimitService(&database.PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}, config)
	service.now = func() time.Time { return rateLimitNow }
	return service, mock
}

func windowRows(count int, oldest time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count", "oldest"}).AddRow(count, oldest)
}

func TestCheckFinalize_UnderLimit(t *testing.T) {
	service, mock := setupRateLimitTest(t, RateLimitConfig{})

	mock.ExpectQuery("SELECT COUNT(.+) FROM booking_audit_logs(.+)partner_id = ").
		WithArgs(models.BookingEventFinalizeRequested, "acme-travel", rateLimitNow.Add(-time.Minute), rateLimitNow).
		WillReturnRows(windowRows(3, rateLimitNow.Add(-30*time.Second)))
	mock.ExpectQuery("SELECT COUNT(.+) FROM booking_audit_logs(.+)ip_address = ").
		WithArgs(models.BookingEventFinalizeRequested, "203.0.113.7", rateLimitNow.Add(-time.Minute), rateLimitNow).
		WillReturnRows(windowRows(0, rateLimitNow))

	err := service.CheckFinalize(context.Background(), "acme-travel", "203.0.113.7")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckFinalize_PartnerExceeded(t *testing.T) {
	service, mock := setupRateLimitTest(t, RateLimitConfig{MaxPartnerRequests: 5})
	oldest := rateLimitNow.Add(-40 * time.Second)

	mock.ExpectQuery("SELECT COUNT(.+) FROM booking_audit_logs(.+)partner_id = ").
		WillReturnRows(windowRows(5, oldest))

	err := service.CheckFinalize(context.Background(), "acme-travel", "203.0.113.7")

	var rateLimitErr *RateLimitError
	require.True(t, errors.As(err, &rateLimitErr))
	assert.Equal(t, "partner", rateLimitErr.Type)
	assert.Equal(t, oldest.Add(time.Minute), rateLimitErr.RetryAfter)
	assert.Contains(t, rateLimitErr.Message, "acme-travel")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckFinalize_IPExceeded(t *testing.T) {
	service, mock := setupRateLimitTest(t, RateLimitConfig{MaxIPRequests: 2, IPWindow: 10 * time.Minute})

	mock.ExpectQuery("SELECT COUNT(.+) FROM booking_audit_logs(.+)ip_address = ").
		WithArgs(models.BookingEventFinalizeRequested, "203.0.113.7", rateLimitNow.Add(-10*time.Minute), rateLimitNow).
		WillReturnRows(windowRows(2, rateLimitNow.Add(-time.Minute)))

	err := service.CheckFinalize(context.Background(), "", "203.0.113.7")

	var rateLimitErr *RateLimitError
	require.True(t, errors.As(err, &rateLimitErr))
	assert.Equal(t, "ip", rateLimitErr.Type)
	assert.Equal(t, rateLimitNow.Add(9*time.Minute), rateLimitErr.RetryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckFinalize_DatabaseError(t *testing.T) {
	service, mock := setupRateLimitTest(t, RateLimitConfig{})

	mock.ExpectQuery("SELECT COUNT(.+) FROM booking_audit_logs").
		WillReturnError(errors.New("connection reset"))

	err := service.CheckFinalize(context.Background(), "acme-travel", "")

	require.Error(t, err)
	var rateLimitErr *RateLimitError
	assert.False(t, errors.As(err, &rateLimitErr))
	assert.Contains(t, err.Error(), "partner rate limit")
}

func TestNewRateLimitService_Defaults(t *testing.T) {
	service := NewRateLimitService(nil, RateLimitConfig{MaxIPRequests: 7})

	assert.Equal(t, 7, service.config.MaxIPRequests)
	assert.Equal(t, DefaultRateLimitConfig().MaxPartnerRequests, service.config.MaxPartnerRequests)
	assert.Equal(t, time.Minute, service.config.PartnerWindow)
}
