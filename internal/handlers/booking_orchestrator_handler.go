package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/middleware"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/internal/services"
	"github.com/staybridge/booking-confirmation/internal/utils"
	"github.com/staybridge/booking-confirmation/pkg/jwt"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 500
)

// BookingService is the orchestrator as seen by the HTTP layer
type BookingService interface {
	FinalizeBooking(ctx context.Context, req *models.BookingRequest) (*models.BookingResult, error)
	RecheckBooking(ctx context.Context, partnerOrderID string) (*models.BookingResult, error)
	GetReservation(ctx context.Context, partnerOrderID string) (*models.ReservationRecord, error)
}

// AuditTrail reads recorded booking events
type AuditTrail interface {
	ListByPartnerOrderID(ctx context.Context, partnerOrderID, partnerID string, limit int) ([]models.BookingAudit, error)
}

// FinalizeLimiter throttles finalize calls
type FinalizeLimiter interface {
	CheckFinalize(ctx context.Context, partnerID, ip string) error
}

// BookingOrchestratorHandler handles partner booking confirmation endpoints
type BookingOrchestratorHandler struct {
	bookings BookingService
	audits   AuditTrail
	limiter  FinalizeLimiter
	logger   *logrus.Logger
}

// NewBookingOrchestratorHandler creates a new BookingOrchestratorHandler
func NewBookingOrchestratorHandler(bookings BookingService, audits AuditTrail, logger *logrus.Logger) *BookingOrchestratorHandler {
	return &BookingOrchestratorHandler{
		bookings: bookings,
		audits:   audits,
		logger:   logger,
	}
}

// WithRateLimiter enables finalize throttling
func (h *BookingOrchestratorHandler) WithRateLimiter(limiter FinalizeLimiter) *BookingOrchestratorHandler {
	h.limiter = limiter
	return h
}

// RegisterRoutes mounts the booking endpoints on an authenticated group
func (h *BookingOrchestratorHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/finalize", middleware.RequireScope(jwt.ScopeBookingsWrite), h.FinalizeBooking)
	group.GET("/:partner_order_id", middleware.RequireScope(jwt.ScopeBookingsRead), h.GetBooking)
	group.POST("/:partner_order_id/recheck", middleware.RequireScope(jwt.ScopeBookingsWrite), h.RecheckBooking)
	group.GET("/:partner_order_id/events", middleware.RequireScope(jwt.ScopeBookingsRead), h.ListEvents)
}

// ============================================================================
// FINALIZE - POST /api/v1/bookings/finalize
// ============================================================================

// FinalizeBooking finishes a prebooked stay and waits for the supplier's verdict
// @Summary Finalize booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.BookingRequest true "Finalize booking request"
// @Success 200 {object} models.BookingResult "Confirmed, 3DS required or failed"
// @Success 202 {object} models.BookingResult "Still processing, re-check later"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 429 {object} map[string]interface{} "Rate limit exceeded"
// @Router /bookings/finalize [post]
func (h *BookingOrchestratorHandler) FinalizeBooking(c *gin.Context) {
	if !h.allowFinalize(c) {
		return
	}

	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a JSON booking request",
		})
		return
	}

	result, err := h.bookings.FinalizeBooking(h.requestContext(c), &req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "validation_failed",
				"fields": verr.Fields,
			})
			return
		}

		h.logger.WithError(err).WithField("partner_order_id", req.PartnerOrderID).Error("Failed to finalize booking")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Booking could not be finalized",
		})
		return
	}

	c.JSON(statusFor(result), result)
}

// ============================================================================
// READ / RE-CHECK - /api/v1/bookings/:partner_order_id
// ============================================================================

// GetBooking returns the stored reservation for a partner order id
func (h *BookingOrchestratorHandler) GetBooking(c *gin.Context) {
	partnerOrderID := c.Param("partner_order_id")

	record, err := h.bookings.GetReservation(h.requestContext(c), partnerOrderID)
	if err != nil {
		h.writeLookupError(c, partnerOrderID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservation": record,
		"result":      services.ResultFromRecord(record),
	})
}

// RecheckBooking asks the supplier again about a booking that timed out
func (h *BookingOrchestratorHandler) RecheckBooking(c *gin.Context) {
	partnerOrderID := c.Param("partner_order_id")

	result, err := h.bookings.RecheckBooking(h.requestContext(c), partnerOrderID)
	if err != nil {
		h.writeLookupError(c, partnerOrderID, err)
		return
	}

	c.JSON(statusFor(result), result)
}

// ListEvents returns the audit trail of a booking, oldest first
func (h *BookingOrchestratorHandler) ListEvents(c *gin.Context) {
	partnerOrderID := c.Param("partner_order_id")

	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if parsed > maxEventLimit {
			parsed = maxEventLimit
		}
		limit = parsed
	}

	ctx := h.requestContext(c)
	entries, err := h.audits.ListByPartnerOrderID(ctx, partnerOrderID, services.CallerPartnerID(ctx), limit)
	if err != nil {
		h.logger.WithError(err).WithField("partner_order_id", partnerOrderID).Error("Failed to list booking events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if entries == nil {
		entries = []models.BookingAudit{}
	}

	c.JSON(http.StatusOK, gin.H{
		"partner_order_id": partnerOrderID,
		"events":           entries,
		"count":            len(entries),
	})
}

// ============================================================================
// HELPERS
// ============================================================================

// requestContext carries caller details into the audit trail and scopes
// lookups to the calling partner
func (h *BookingOrchestratorHandler) requestContext(c *gin.Context) context.Context {
	meta := services.RequestMeta{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
	if partner, ok := middleware.GetPartnerContext(c); ok {
		meta.PartnerID = partner.PartnerID
	}
	return services.WithRequestMeta(c.Request.Context(), meta)
}

// allowFinalize applies the rate limiter. Limiter failures let the call through.
func (h *BookingOrchestratorHandler) allowFinalize(c *gin.Context) bool {
	if h.limiter == nil {
		return true
	}

	partnerID := ""
	if partner, ok := middleware.GetPartnerContext(c); ok {
		partnerID = partner.PartnerID
	}

	err := h.limiter.CheckFinalize(c.Request.Context(), partnerID, utils.GetRealIP(c))
	if err == nil {
		return true
	}

	var limitErr *services.RateLimitError
	if errors.As(err, &limitErr) {
		retryAfter := int(time.Until(limitErr.RetryAfter).Seconds()) + 1
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limited",
			"message":     limitErr.Message,
			"limit_type":  limitErr.Type,
			"retry_after": limitErr.RetryAfter,
		})
		return false
	}

	h.logger.WithError(err).WithField("partner_id", partnerID).Warn("Rate limit check failed, allowing request")
	return true
}

func (h *BookingOrchestratorHandler) writeLookupError(c *gin.Context, partnerOrderID string, err error) {
	if errors.Is(err, services.ErrBookingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No booking for partner order id " + partnerOrderID,
		})
		return
	}
	h.logger.WithError(err).WithField("partner_order_id", partnerOrderID).Error("Booking lookup failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

// statusFor maps a result onto an HTTP status. A timed-out booking is
// accepted but not settled.
func statusFor(result *models.BookingResult) int {
	if result.Outcome == models.OutcomeTimedOut {
		return http.StatusAccepted
	}
	return http.StatusOK
}
