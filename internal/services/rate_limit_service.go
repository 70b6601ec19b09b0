package services

import (
	"context"
	"fmt"
	"time"

	"github.com/staybridge/booking-confirmation/internal/database"
	"github.com/staybridge/booking-confirmation/internal/models"
)

// RateLimitService throttles finalize calls per partner and per client IP.
// It counts finalize_requested rows in booking_audit_logs, so it only works
// while audit logging is enabled.
type RateLimitService struct {
	db     database.DB
	config RateLimitConfig
	now    func() time.Time
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxPartnerRequests int           // Max finalize calls per partner
	PartnerWindow      time.Duration // Time window for partner rate limit
	MaxIPRequests      int           // Max finalize calls per IP
	IPWindow           time.Duration // Time window for IP rate limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPartnerRequests: 600,         // 600 requests
		PartnerWindow:      time.Minute, // per minute
		MaxIPRequests:      120,         // 120 requests
		IPWindow:           time.Minute, // per minute
	}
}

// NewRateLimitService creates a new rate limit service. Zero fields in
// config fall back to the defaults.
func NewRateLimitService(db database.DB, config RateLimitConfig) *RateLimitService {
	defaults := DefaultRateLimitConfig()
	if config.MaxPartnerRequests <= 0 {
		config.MaxPartnerRequests = defaults.MaxPartnerRequests
	}
	if config.PartnerWindow <= 0 {
		config.PartnerWindow = defaults.PartnerWindow
	}
	if config.MaxIPRequests <= 0 {
		config.MaxIPRequests = defaults.MaxIPRequests
	}
	if config.IPWindow <= 0 {
		config.IPWindow = defaults.IPWindow
	}
	return &RateLimitService{
		db:     db,
		config: config,
		now:    time.Now,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "partner" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

type requestWindow struct {
	Count  int       `db:"count"`
	Oldest time.Time `db:"oldest"`
}

// CheckFinalize returns a *RateLimitError when the partner or the IP has
// used up its window. Empty identifiers are not checked.
func (s *RateLimitService) CheckFinalize(ctx context.Context, partnerID, ip string) error {
	if partnerID != "" {
		window, err := s.getRequestWindow(ctx, "partner_id", partnerID, s.config.PartnerWindow)
		if err != nil {
			return fmt.Errorf("failed to check partner rate limit: %w", err)
		}
		if window.Count >= s.config.MaxPartnerRequests {
			retryAfter := window.Oldest.Add(s.config.PartnerWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many finalize requests for partner %s. Please try again after %s", partnerID, retryAfter.UTC().Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "partner",
			}
		}
	}

	if ip != "" {
		window, err := s.getRequestWindow(ctx, "ip_address", ip, s.config.IPWindow)
		if err != nil {
			return fmt.Errorf("failed to check IP rate limit: %w", err)
		}
		if window.Count >= s.config.MaxIPRequests {
			retryAfter := window.Oldest.Add(s.config.IPWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many finalize requests from this IP address. Please try again after %s", retryAfter.UTC().Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "ip",
			}
		}
	}

	return nil
}

// getRequestWindow counts finalize requests inside the window. column is
// one of the two fixed names above, never caller input.
func (s *RateLimitService) getRequestWindow(ctx context.Context, column, identifier string, window time.Duration) (requestWindow, error) {
	now := s.now()
	query := fmt.Sprintf(`
		SELECT COUNT(*) AS count, COALESCE(MIN(created_at), $4) AS oldest
		FROM booking_audit_logs
		WHERE event_type = $1
		  AND %s = $2
		  AND created_at > $3
	`, column)

	var result requestWindow
	err := s.db.GetContext(ctx, &result, query, models.BookingEventFinalizeRequested, identifier, now.Add(-window), now)
	if err != nil {
		return requestWindow{}, err
	}
	return result, nil
}
